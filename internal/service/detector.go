package service

import (
	"github.com/locvowork/sheetlens/internal/cell"
	"github.com/locvowork/sheetlens/internal/domain"
)

// DetectSections splits a raw sheet matrix into sections. Row 0 is the
// document title and is skipped. Blank rows separate blocks; each block is
// parsed by parseBlock. Detection never fails: odd blocks degrade to a
// header plus data.
func DetectSections(raw domain.DataMatrix) []domain.Section {
	sections := []domain.Section{}
	if len(raw) <= 1 {
		return sections
	}

	var block domain.DataMatrix
	for _, row := range raw[1:] {
		if !row.IsBlank() {
			block = append(block, row)
			continue
		}
		if len(block) > 0 {
			sections = append(sections, parseBlock(block))
			block = nil
		}
	}
	if len(block) > 0 {
		sections = append(sections, parseBlock(block))
	}
	return sections
}

// parseBlock reads a titled section when the first row has exactly one
// filled cell and more rows follow; otherwise the first row is the header.
func parseBlock(block domain.DataMatrix) domain.Section {
	first := block[0]
	if first.FilledCount() == 1 && len(block) > 1 {
		return domain.NewSection(firstFilled(first), block[1], block[2:])
	}
	return domain.NewSection(nil, first, block[1:])
}

func firstFilled(r domain.Row) *cell.Cell {
	for _, c := range r.Cells {
		if !cell.IsEmpty(c) {
			return c
		}
	}
	return nil
}

// BuildSheet parses a raw matrix into a sheet. The sheet title is the
// display text of the top-left cell.
func BuildSheet(name string, ws domain.WorksheetRef, raw domain.DataMatrix) domain.Sheet {
	title := ""
	if len(raw) > 0 {
		title = cell.String(raw[0].Cell(0))
	}
	return domain.NewSheet(name, ws, raw, title, DetectSections(raw))
}
