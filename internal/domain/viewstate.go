package domain

import (
	"errors"
	"time"
)

var (
	ErrSheetNotFound     = errors.New("sheet not found")
	ErrSessionNotFound   = errors.New("workbook session not found")
	ErrViewStateNotFound = errors.New("view state not found")
	ErrUnsupportedFile   = errors.New("unsupported file type")
	ErrCellReadOnly      = errors.New("cell is read-only")
)

// CardState records where a card came from and how it is styled; the value
// itself is taken again from the sheet when the state is applied.
type CardState struct {
	RowIndex int              `json:"rowIndex"`
	ColIndex int              `json:"colIndex"`
	Label    string           `json:"label,omitempty"`
	Unit     string           `json:"unit,omitempty"`
	Color    string           `json:"color,omitempty"`
	Icon     string           `json:"icon,omitempty"`
	Style    *CardStyleConfig `json:"style,omitempty"`
}

// SectionState is the user-controlled part of a section.
type SectionState struct {
	Index                int                 `json:"index"`
	SearchText           string              `json:"searchText,omitempty"`
	Sort                 *SortConfig         `json:"sort,omitempty"`
	ApplyFiltersToCharts bool                `json:"applyFiltersToCharts"`
	Style                *SectionStyleConfig `json:"style,omitempty"`
	Charts               []ChartConfig       `json:"charts,omitempty"`
	Card                 *CardState          `json:"card,omitempty"`
}

// ViewState is the saved view of one sheet of one workbook file.
type ViewState struct {
	FileName  string         `json:"fileName"`
	SheetName string         `json:"sheetName"`
	Sections  []SectionState `json:"sections"`
	UpdatedAt time.Time      `json:"updatedAt"`
}
