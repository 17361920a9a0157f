package domain

import (
	"context"
	"strings"

	"github.com/locvowork/sheetlens/internal/cell"
	"github.com/locvowork/sheetlens/internal/formula"
)

// WorksheetRef is the reader's handle on the worksheet a Sheet came from.
type WorksheetRef interface {
	Name() string
}

// CellEditor feeds one cell edit to a recalculation engine.
type CellEditor interface {
	SetCellValue(ctx context.Context, sheetName string, row, col int, value interface{}) []formula.Change
}

// SheetConfig is the plain record behind a Sheet.
type SheetConfig struct {
	Name      string          `json:"name"`
	Worksheet WorksheetRef    `json:"-"`
	RawData   DataMatrix      `json:"rawData"`
	Title     string          `json:"title"`
	Sections  []SectionConfig `json:"sections"`
}

type SheetMetadata struct {
	TotalRows    int  `json:"totalRows"`
	TotalColumns int  `json:"totalColumns"`
	SectionCount int  `json:"sectionCount"`
	HasTitle     bool `json:"hasTitle"`
	IsEmpty      bool `json:"isEmpty"`
}

// Sheet is a parsed worksheet: its raw cells and the sections detected in
// them once, at build time.
type Sheet struct {
	config SheetConfig
}

func NewSheet(name string, ws WorksheetRef, rawData DataMatrix, title string, sections []Section) Sheet {
	cfgs := make([]SectionConfig, len(sections))
	for i, s := range sections {
		cfgs[i] = s.ToConfig()
	}
	return Sheet{config: SheetConfig{
		Name:      name,
		Worksheet: ws,
		RawData:   rawData,
		Title:     title,
		Sections:  cfgs,
	}}
}

func SheetFromConfig(cfg SheetConfig) Sheet {
	return Sheet{config: copySheetConfig(cfg)}
}

func (s Sheet) Name() string            { return s.config.Name }
func (s Sheet) Worksheet() WorksheetRef { return s.config.Worksheet }
func (s Sheet) RawData() DataMatrix     { return s.config.RawData }
func (s Sheet) Title() string           { return s.config.Title }
func (s Sheet) SectionCount() int       { return len(s.config.Sections) }
func (s Sheet) HasSections() bool       { return len(s.config.Sections) > 0 }
func (s Sheet) IsEmpty() bool           { return len(s.config.RawData) == 0 }
func (s Sheet) ToConfig() SheetConfig   { return copySheetConfig(s.config) }

func (s Sheet) Sections() []Section {
	out := make([]Section, len(s.config.Sections))
	for i, c := range s.config.Sections {
		out[i] = SectionFromConfig(c)
	}
	return out
}

// Section returns the section at index, if any.
func (s Sheet) Section(index int) (Section, bool) {
	if index < 0 || index >= len(s.config.Sections) {
		return Section{}, false
	}
	return SectionFromConfig(s.config.Sections[index]), true
}

// UpdateSection applies fn to the section at index. An out of range index
// returns an equal sheet.
func (s Sheet) UpdateSection(index int, fn func(Section) Section) Sheet {
	cfg := s.ToConfig()
	if index >= 0 && index < len(cfg.Sections) {
		cfg.Sections[index] = fn(SectionFromConfig(cfg.Sections[index])).ToConfig()
	}
	return Sheet{config: cfg}
}

// UpdateSections applies fn to every section.
func (s Sheet) UpdateSections(fn func(int, Section) Section) Sheet {
	cfg := s.ToConfig()
	for i := range cfg.Sections {
		cfg.Sections[i] = fn(i, SectionFromConfig(cfg.Sections[i])).ToConfig()
	}
	return Sheet{config: cfg}
}

// UpdateCell sends an edit of target to editor and writes every returned
// change back into the live cells. A formula target receives newValue as its
// new formula text; a plain target receives the computed literal; every
// other changed cell keeps its own formula with the new result. Changes of
// other sheets are resolved through matrices; changes without an address
// are skipped.
func (s Sheet) UpdateCell(ctx context.Context, editor CellEditor, target *cell.Cell, newValue interface{}, matrices map[string]DataMatrix) (Sheet, []formula.Change) {
	if target == nil || editor == nil {
		return s, nil
	}

	value := newValue
	newFormula := ""
	if cell.HasFormula(target) {
		newFormula = trimFormula(cell.Stringify(newValue))
		value = "=" + newFormula
	} else if text, ok := newValue.(string); ok && strings.HasPrefix(text, "=") && len(text) > 1 {
		// typing a formula into a plain cell turns it into a formula cell
		newFormula = text[1:]
	}

	changes := editor.SetCellValue(ctx, s.config.Name, target.Row, target.Col, value)
	for _, ch := range changes {
		if ch.Address == nil {
			continue
		}
		raw := s.config.RawData
		if ch.Address.SheetName != "" && ch.Address.SheetName != s.config.Name {
			other, ok := matrices[ch.Address.SheetName]
			if !ok {
				continue
			}
			raw = other
		}
		changed := raw.At(ch.Address.Row, ch.Address.Col)
		if changed == nil {
			continue
		}

		switch {
		case changed == target && newFormula != "":
			changed.Value = cell.Formula(newFormula, ch.NewValue)
		case changed == target:
			changed.Value = cell.Literal(ch.NewValue)
		default:
			if f, ok := cell.FormulaText(changed); ok {
				changed.Value = cell.Formula(f, ch.NewValue)
			} else {
				changed.Value = cell.Literal(ch.NewValue)
			}
		}
	}
	return Sheet{config: s.ToConfig()}, changes
}

func trimFormula(f string) string { return strings.TrimPrefix(f, "=") }

func (s Sheet) Metadata() SheetMetadata {
	return SheetMetadata{
		TotalRows:    len(s.config.RawData),
		TotalColumns: s.config.RawData.Width(),
		SectionCount: len(s.config.Sections),
		HasTitle:     s.config.Title != "",
		IsEmpty:      len(s.config.RawData) == 0,
	}
}

func copySheetConfig(cfg SheetConfig) SheetConfig {
	sections := make([]SectionConfig, len(cfg.Sections))
	for i, sc := range cfg.Sections {
		sections[i] = copySectionConfig(sc)
	}
	cfg.Sections = sections
	return cfg
}
