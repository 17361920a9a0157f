// Package reader loads spreadsheet files into raw cell matrices.
package reader

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/locvowork/sheetlens/internal/cell"
	"github.com/locvowork/sheetlens/internal/domain"
	"github.com/locvowork/sheetlens/internal/formula"
	"github.com/locvowork/sheetlens/internal/logger"
)

// Worksheet identifies one sheet of an opened workbook.
type Worksheet struct {
	name  string
	index int
}

func (w Worksheet) Name() string { return w.name }
func (w Worksheet) Index() int   { return w.index }

// Workbook is an opened spreadsheet file.
type Workbook struct {
	file     *excelize.File
	names    []string
	date1904 bool
}

// Open reads a workbook from disk.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return newWorkbook(f), nil
}

// OpenReader reads a workbook from r. Content that is not an xlsx package
// is reported as domain.ErrUnsupportedFile.
func OpenReader(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedFile, err)
	}
	return newWorkbook(f), nil
}

// FromFile wraps an excelize file that is already open.
func FromFile(f *excelize.File) *Workbook {
	return newWorkbook(f)
}

func newWorkbook(f *excelize.File) *Workbook {
	wb := &Workbook{file: f, names: f.GetSheetList()}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		wb.date1904 = *props.Date1904
	}
	return wb
}

func (wb *Workbook) SheetNames() []string {
	out := make([]string, len(wb.names))
	copy(out, wb.names)
	return out
}

// Worksheet looks up a sheet by name.
func (wb *Workbook) Worksheet(name string) (Worksheet, bool) {
	for i, n := range wb.names {
		if n == name {
			return Worksheet{name: n, index: i}, true
		}
	}
	return Worksheet{}, false
}

func (wb *Workbook) Close() error { return wb.file.Close() }

// RawData reads every cell of a sheet, row by row, up to the last used
// cell of each row. Empty positions get an empty cell so that every
// coordinate of the matrix is addressable.
func (wb *Workbook) RawData(ctx context.Context, name string) (domain.DataMatrix, error) {
	if _, ok := wb.Worksheet(name); !ok {
		return nil, fmt.Errorf("read %q: %w", name, domain.ErrSheetNotFound)
	}
	rows, err := wb.file.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read rows of %q: %w", name, err)
	}

	rows = wb.withTrailingFormulas(name, rows)

	grid := make([][]*cell.Cell, len(rows))
	for r, values := range rows {
		grid[r] = make([]*cell.Cell, len(values))
		for c, raw := range values {
			v, err := wb.readCell(name, r, c, raw)
			if err != nil {
				logger.WarnLog(ctx, "reader: %s!%s: %v", name, axis(r, c), err)
				v = cell.Literal(raw)
			}
			grid[r][c] = cell.New(r, c, v)
		}
	}
	return domain.NewMatrix(grid), nil
}

// withTrailingFormulas restores formula cells that GetRows dropped from the
// end of a row because no cached result was saved with them.
func (wb *Workbook) withTrailingFormulas(sheet string, rows [][]string) [][]string {
	width := 0
	for _, values := range rows {
		if len(values) > width {
			width = len(values)
		}
	}
	for r, values := range rows {
		last := len(values)
		for c := len(values); c < width; c++ {
			if f, err := wb.file.GetCellFormula(sheet, axis(r, c)); err == nil && f != "" {
				last = c + 1
			}
		}
		for len(rows[r]) < last {
			rows[r] = append(rows[r], "")
		}
	}
	return rows
}

// AllRawData reads every sheet of the workbook.
func (wb *Workbook) AllRawData(ctx context.Context) (map[string]domain.DataMatrix, error) {
	out := make(map[string]domain.DataMatrix, len(wb.names))
	for _, name := range wb.names {
		m, err := wb.RawData(ctx, name)
		if err != nil {
			return nil, err
		}
		out[name] = m
	}
	return out, nil
}

func (wb *Workbook) readCell(sheet string, row, col int, raw string) (cell.Value, error) {
	ref := axis(row, col)

	f, err := wb.file.GetCellFormula(sheet, ref)
	if err != nil {
		return cell.Value{}, err
	}
	typ, err := wb.file.GetCellType(sheet, ref)
	if err != nil {
		return cell.Value{}, err
	}

	if f != "" {
		if raw == "" {
			return cell.Formula(f, wb.calculate(sheet, ref)), nil
		}
		result, err := wb.typed(sheet, ref, typ, raw)
		if err != nil {
			return cell.Value{}, err
		}
		return cell.Formula(f, result), nil
	}
	if raw == "" {
		return cell.Empty(), nil
	}

	if ok, target, err := wb.file.GetCellHyperLink(sheet, ref); err == nil && ok {
		return cell.Hyperlink(raw, target), nil
	}

	if typ == excelize.CellTypeSharedString || typ == excelize.CellTypeInlineString {
		runs, err := wb.file.GetCellRichText(sheet, ref)
		if err == nil && isStyled(runs) {
			out := make([]cell.RichTextRun, len(runs))
			for i, run := range runs {
				out[i] = cell.RichTextRun{Text: run.Text}
			}
			return cell.RichText(out...), nil
		}
	}

	v, err := wb.typed(sheet, ref, typ, raw)
	if err != nil {
		return cell.Value{}, err
	}
	return cell.Literal(v), nil
}

// typed converts the stored text of a cell to its Go value.
func (wb *Workbook) typed(sheet, ref string, typ excelize.CellType, raw string) (interface{}, error) {
	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	case excelize.CellTypeDate:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, nil
			}
		}
		return raw, nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeError:
		return raw, nil
	}

	// cached formula results are stored as text; numbers and dates among
	// them take the numeric path below
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw, nil
	}
	isDate, err := wb.hasDateFormat(sheet, ref)
	if err != nil {
		return nil, err
	}
	if isDate {
		t, err := excelize.ExcelDateToTime(n, wb.date1904)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	return n, nil
}

// calculate evaluates a formula whose cached result was never saved, as
// happens with files written by libraries rather than by a spreadsheet app.
func (wb *Workbook) calculate(sheet, ref string) interface{} {
	res, err := wb.file.CalcCellValue(sheet, ref, excelize.Options{RawCellValue: true})
	if err != nil {
		if strings.HasPrefix(err.Error(), "#") {
			return err.Error()
		}
		return nil
	}
	return formula.ParseLiteral(res)
}

func (wb *Workbook) hasDateFormat(sheet, ref string) (bool, error) {
	idx, err := wb.file.GetCellStyle(sheet, ref)
	if err != nil || idx == 0 {
		return false, err
	}
	style, err := wb.file.GetStyle(idx)
	if err != nil {
		return false, err
	}
	return IsDateFormat(style.NumFmt, style.CustomNumFmt), nil
}

// IsDateFormat reports whether a number format renders dates or times.
// Built-in ids follow the OOXML table; custom codes are scanned for date
// tokens outside quoted literals and bracketed sections.
func IsDateFormat(numFmt int, custom *string) bool {
	if custom != nil && *custom != "" {
		return customHasDate(*custom)
	}
	switch {
	case numFmt >= 14 && numFmt <= 22,
		numFmt >= 27 && numFmt <= 36,
		numFmt >= 45 && numFmt <= 47,
		numFmt >= 50 && numFmt <= 58:
		return true
	}
	return false
}

func customHasDate(code string) bool {
	inQuote, inBracket := false, false
	for _, r := range strings.ToLower(code) {
		switch {
		case r == '"':
			inQuote = !inQuote
		case inQuote:
		case r == '[':
			inBracket = true
		case r == ']':
			inBracket = false
		case inBracket:
		case r == 'y' || r == 'd' || r == 'h' || r == 's':
			return true
		}
	}
	return false
}

func isStyled(runs []excelize.RichTextRun) bool {
	if len(runs) > 1 {
		return true
	}
	return len(runs) == 1 && runs[0].Font != nil
}

func axis(row, col int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, row+1)
	return name
}
