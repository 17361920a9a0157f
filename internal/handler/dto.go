package handler

import (
	"github.com/xuri/excelize/v2"

	"github.com/locvowork/sheetlens/internal/domain"
	"github.com/locvowork/sheetlens/internal/formula"
)

// ==================== Requests ====================

type SelectSheetRequest struct {
	Name string `json:"name" validate:"required"`
}

type SearchRequest struct {
	Text string `json:"text" validate:"max=200"`
}

type SortRequest struct {
	Column *int `json:"column" validate:"required,min=0"`
}

type ApplyFiltersRequest struct {
	Apply *bool `json:"apply" validate:"required"`
}

type ToggleChartRequest struct {
	Column *int             `json:"column" validate:"required,min=0"`
	Type   domain.ChartType `json:"type" validate:"omitempty,oneof=bar pie line"`
}

type UpdateChartRequest struct {
	Type        domain.ChartType `json:"type" validate:"omitempty,oneof=bar pie line"`
	LabelColumn *int             `json:"labelColumn" validate:"omitempty,min=0"`
}

type RowExclusionRequest struct {
	Row *int `json:"row" validate:"required,min=0"`
}

type SetCardRequest struct {
	Row   *int                    `json:"row" validate:"required,min=0"`
	Col   *int                    `json:"col" validate:"required,min=0"`
	Style *domain.CardStyleConfig `json:"style"`
}

type UpdateCardRequest struct {
	Label *string                 `json:"label"`
	Unit  *string                 `json:"unit"`
	Color *string                 `json:"color"`
	Icon  *string                 `json:"icon"`
	Style *domain.CardStyleConfig `json:"style"`
	// Replace swaps the whole style instead of merging it.
	Replace bool `json:"replace"`
}

type EditCellRequest struct {
	Row   *int        `json:"row" validate:"required,min=0"`
	Col   *int        `json:"col" validate:"required,min=0"`
	Value interface{} `json:"value"`
}

type SearchQuery struct {
	Query    string `query:"q" validate:"required,min=1"`
	Workbook string `query:"workbook" validate:"omitempty,uuid"`
}

type ExportQuery struct {
	Format string `query:"format" validate:"omitempty,oneof=xlsx csv"`
	Charts bool   `query:"charts"`
	Native bool   `query:"native"`
}

// ==================== Responses ====================

type RowView struct {
	Index  int           `json:"index"`
	Values []interface{} `json:"values"`
	Text   []string      `json:"text"`
}

// ChartView is a prepared chart. PointRows[i] is the row index behind
// Points[i], the index an exclusion toggle expects.
type ChartView struct {
	Config          domain.ChartConfig      `json:"config"`
	Metadata        domain.ChartMetadata    `json:"metadata"`
	Points          []domain.ChartDataPoint `json:"points"`
	PointRows       []int                   `json:"pointRows"`
	LabelCandidates []domain.ColumnInfo     `json:"labelCandidates"`
}

type CardView struct {
	RowIndex  int                      `json:"rowIndex"`
	ColIndex  int                      `json:"colIndex"`
	Label     string                   `json:"label"`
	Value     interface{}              `json:"value"`
	Formatted string                   `json:"formatted"`
	Unit      string                   `json:"unit,omitempty"`
	Color     string                   `json:"color,omitempty"`
	Icon      string                   `json:"icon,omitempty"`
	Style     domain.CardStyleConfig   `json:"style"`
	Metadata  domain.CardRecapMetadata `json:"metadata"`
}

type SectionView struct {
	Index                int                       `json:"index"`
	Title                string                    `json:"title"`
	Header               []string                  `json:"header"`
	Columns              []domain.ColumnInfo       `json:"columns"`
	Rows                 []RowView                 `json:"rows"`
	SearchText           string                    `json:"searchText"`
	Sort                 *domain.SortConfig        `json:"sort,omitempty"`
	ApplyFiltersToCharts bool                      `json:"applyFiltersToCharts"`
	Style                domain.SectionStyleConfig `json:"style"`
	Charts               []ChartView               `json:"charts"`
	Card                 *CardView                 `json:"card,omitempty"`
	Metadata             domain.SectionMetadata    `json:"metadata"`
	FilteredRowCount     int                       `json:"filteredRowCount"`
}

type SheetView struct {
	Name     string               `json:"name"`
	Title    string               `json:"title"`
	Sections []SectionView        `json:"sections"`
	Metadata domain.SheetMetadata `json:"metadata"`
}

type SectionResponse struct {
	Changed bool        `json:"changed"`
	Section SectionView `json:"section"`
}

type ChangeView struct {
	Sheet string      `json:"sheet"`
	Cell  string      `json:"cell"`
	Row   int         `json:"row"`
	Col   int         `json:"col"`
	Value interface{} `json:"value"`
}

type EditCellResponse struct {
	Changes []ChangeView `json:"changes"`
	Sheet   SheetView    `json:"sheet"`
}

// ChangeViews names each changed cell in A1 notation.
func ChangeViews(changes []formula.Change) []ChangeView {
	out := make([]ChangeView, 0, len(changes))
	for _, ch := range changes {
		if ch.Address == nil {
			continue
		}
		name, _ := excelize.CoordinatesToCellName(ch.Address.Col+1, ch.Address.Row+1)
		out = append(out, ChangeView{
			Sheet: ch.Address.SheetName,
			Cell:  name,
			Row:   ch.Address.Row,
			Col:   ch.Address.Col,
			Value: ch.NewValue,
		})
	}
	return out
}
