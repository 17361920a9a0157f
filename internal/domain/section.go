package domain

import (
	"strings"

	"github.com/locvowork/sheetlens/internal/cell"
)

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

type SortConfig struct {
	ColumnIndex int           `json:"columnIndex"`
	Direction   SortDirection `json:"direction"`
}

// SectionConfig is the plain record behind a Section. A nil
// ApplyFiltersToCharts means true.
type SectionConfig struct {
	Title                *cell.Cell          `json:"title,omitempty"`
	Header               Row                 `json:"header"`
	Data                 DataMatrix          `json:"data"`
	CardRecap            *CardRecapConfig    `json:"cardRecap,omitempty"`
	Charts               []ChartConfig       `json:"charts"`
	SearchText           string              `json:"searchText,omitempty"`
	SortConfig           *SortConfig         `json:"sortConfig,omitempty"`
	ApplyFiltersToCharts *bool               `json:"applyFiltersToCharts,omitempty"`
	Style                *SectionStyleConfig `json:"style,omitempty"`
}

// SectionMetadata summarizes a section.
type SectionMetadata struct {
	ColumnCount       int  `json:"columnCount"`
	RowCount          int  `json:"rowCount"`
	ChartCount        int  `json:"chartCount"`
	VisibleChartCount int  `json:"visibleChartCount"`
	HasCardRecap      bool `json:"hasCardRecap"`
	HasActiveSearch   bool `json:"hasActiveSearch"`
	HasActiveSort     bool `json:"hasActiveSort"`
	IsEmpty           bool `json:"isEmpty"`
}

// Section is a blank-row delimited block of a sheet: an optional title, one
// header row and the data rows below it. Sections are immutable; the data
// rows are shared between versions and point into the sheet's cells.
type Section struct {
	config SectionConfig
}

func NewSection(title *cell.Cell, header Row, data DataMatrix) Section {
	if data == nil {
		data = DataMatrix{}
	}
	return Section{config: SectionConfig{
		Title:  title,
		Header: header,
		Data:   data,
		Charts: []ChartConfig{},
	}}
}

func SectionFromConfig(cfg SectionConfig) Section {
	return Section{config: copySectionConfig(cfg)}
}

func (s Section) Title() *cell.Cell { return s.config.Title }

// TitleText is the title's plain text, "" when untitled.
func (s Section) TitleText() string { return cell.String(s.config.Title) }

func (s Section) HasTitle() bool   { return s.config.Title != nil }
func (s Section) Header() Row      { return s.config.Header }
func (s Section) Data() DataMatrix { return s.config.Data }

func (s Section) CardRecap() (CardRecap, bool) {
	if s.config.CardRecap == nil {
		return CardRecap{}, false
	}
	return CardRecapFromConfig(*s.config.CardRecap), true
}

func (s Section) Charts() []Chart {
	out := make([]Chart, len(s.config.Charts))
	for i, c := range s.config.Charts {
		out[i] = ChartFromConfig(c)
	}
	return out
}

func (s Section) SearchText() string { return s.config.SearchText }

func (s Section) SortConfig() (SortConfig, bool) {
	if s.config.SortConfig == nil {
		return SortConfig{}, false
	}
	return *s.config.SortConfig, true
}

func (s Section) ApplyFiltersToCharts() bool {
	return s.config.ApplyFiltersToCharts == nil || *s.config.ApplyFiltersToCharts
}

func (s Section) Style() SectionStyleConfig {
	if s.config.Style == nil {
		return DefaultSectionStyle
	}
	return *s.config.Style
}

// HasActiveSearch ignores whitespace-only search text.
func (s Section) HasActiveSearch() bool { return strings.TrimSpace(s.config.SearchText) != "" }
func (s Section) HasActiveSort() bool   { return s.config.SortConfig != nil }

func (s Section) WithTitle(title string) Section {
	cfg := s.ToConfig()
	row, col := 0, 0
	if cfg.Title != nil {
		row, col = cfg.Title.Row, cfg.Title.Col
	}
	cfg.Title = cell.New(row, col, cell.Literal(title))
	return Section{config: cfg}
}

func (s Section) WithSearchText(text string) Section {
	cfg := s.ToConfig()
	cfg.SearchText = text
	return Section{config: cfg}
}

func (s Section) ClearSearch() Section { return s.WithSearchText("") }

func (s Section) WithSort(sc SortConfig) Section {
	cfg := s.ToConfig()
	cfg.SortConfig = &sc
	return Section{config: cfg}
}

func (s Section) ClearSort() Section {
	cfg := s.ToConfig()
	cfg.SortConfig = nil
	return Section{config: cfg}
}

// ToggleSort cycles a column through unsorted, ascending, descending and
// back to unsorted. Selecting another column starts it at ascending.
func (s Section) ToggleSort(columnIndex int) Section {
	current, ok := s.SortConfig()
	switch {
	case !ok || current.ColumnIndex != columnIndex:
		return s.WithSort(SortConfig{ColumnIndex: columnIndex, Direction: SortAsc})
	case current.Direction == SortAsc:
		return s.WithSort(SortConfig{ColumnIndex: columnIndex, Direction: SortDesc})
	default:
		return s.ClearSort()
	}
}

func (s Section) WithApplyFiltersToCharts(apply bool) Section {
	cfg := s.ToConfig()
	cfg.ApplyFiltersToCharts = &apply
	return Section{config: cfg}
}

func (s Section) SetCardRecap(card CardRecap) Section {
	cfg := s.ToConfig()
	cc := card.ToConfig()
	cfg.CardRecap = &cc
	return Section{config: cfg}
}

// UpdateCardRecap returns s unchanged when there is no card.
func (s Section) UpdateCardRecap(fn func(CardRecap) CardRecap) Section {
	card, ok := s.CardRecap()
	if !ok {
		return s
	}
	return s.SetCardRecap(fn(card))
}

func (s Section) ClearCardRecap() Section {
	cfg := s.ToConfig()
	cfg.CardRecap = nil
	return Section{config: cfg}
}

// AddChart adds chart, replacing any chart of the same value column.
func (s Section) AddChart(chart Chart) Section {
	cfg := s.ToConfig()
	charts := make([]ChartConfig, 0, len(cfg.Charts)+1)
	for _, c := range cfg.Charts {
		if c.ColumnIndex != chart.ColumnIndex() {
			charts = append(charts, c)
		}
	}
	cfg.Charts = append(charts, chart.ToConfig())
	return Section{config: cfg}
}

// UpdateChart applies fn to the chart of columnIndex, if any.
func (s Section) UpdateChart(columnIndex int, fn func(Chart) Chart) Section {
	cfg := s.ToConfig()
	for i, c := range cfg.Charts {
		if c.ColumnIndex == columnIndex {
			cfg.Charts[i] = fn(ChartFromConfig(c)).ToConfig()
		}
	}
	return Section{config: cfg}
}

func (s Section) RemoveChart(columnIndex int) Section {
	cfg := s.ToConfig()
	charts := make([]ChartConfig, 0, len(cfg.Charts))
	for _, c := range cfg.Charts {
		if c.ColumnIndex != columnIndex {
			charts = append(charts, c)
		}
	}
	cfg.Charts = charts
	return Section{config: cfg}
}

// ToggleChart creates a visible bar chart for the column, labelled by the
// section's label column, or flips the visibility of the existing one.
// Toggling never drops a chart's configuration.
func (s Section) ToggleChart(columnIndex int) Section {
	if s.HasChart(columnIndex) {
		return s.UpdateChart(columnIndex, Chart.ToggleVisibility)
	}
	return s.AddChart(NewChart(columnIndex, s.LabelColumn(), ChartTypeBar))
}

// ToggleRowExclusion toggles row in every visible chart.
func (s Section) ToggleRowExclusion(row Row) Section {
	cfg := s.ToConfig()
	for i, c := range cfg.Charts {
		if c.Visible {
			cfg.Charts[i] = ChartFromConfig(c).ToggleRowExclusion(row).ToConfig()
		}
	}
	return Section{config: cfg}
}

func (s Section) HasChart(columnIndex int) bool {
	_, ok := s.Chart(columnIndex)
	return ok
}

func (s Section) Chart(columnIndex int) (Chart, bool) {
	for _, c := range s.config.Charts {
		if c.ColumnIndex == columnIndex {
			return ChartFromConfig(c), true
		}
	}
	return Chart{}, false
}

func (s Section) VisibleCharts() []Chart {
	var out []Chart
	for _, c := range s.config.Charts {
		if c.Visible {
			out = append(out, ChartFromConfig(c))
		}
	}
	return out
}

func (s Section) WithStyle(patch SectionStylePatch) Section {
	cfg := s.ToConfig()
	style := patch.Apply(s.Style())
	cfg.Style = &style
	return Section{config: cfg}
}

func (s Section) WithFullStyle(style SectionStyleConfig) Section {
	cfg := s.ToConfig()
	cfg.Style = &style
	return Section{config: cfg}
}

func (s Section) Metadata() SectionMetadata {
	visible := 0
	for _, c := range s.config.Charts {
		if c.Visible {
			visible++
		}
	}
	return SectionMetadata{
		ColumnCount:       s.config.Header.Len(),
		RowCount:          len(s.config.Data),
		ChartCount:        len(s.config.Charts),
		VisibleChartCount: visible,
		HasCardRecap:      s.config.CardRecap != nil,
		HasActiveSearch:   s.HasActiveSearch(),
		HasActiveSort:     s.HasActiveSort(),
		IsEmpty:           len(s.config.Data) == 0,
	}
}

func (s Section) IsNumericColumn(col int) bool { return IsNumericColumn(s.config.Data, col) }
func (s Section) LabelColumn() int             { return FindLabelColumn(s.config.Header, s.config.Data) }
func (s Section) ColumnInfo(col int) ColumnInfo {
	return DescribeColumn(s.config.Header, s.config.Data, col)
}

func (s Section) AllColumnInfo() []ColumnInfo {
	out := make([]ColumnInfo, s.config.Header.Len())
	for i := range out {
		out[i] = s.ColumnInfo(i)
	}
	return out
}

// NumericColumns lists non-empty numeric columns.
func (s Section) NumericColumns() []ColumnInfo {
	var out []ColumnInfo
	for _, ci := range s.AllColumnInfo() {
		if ci.IsNumeric && !ci.IsEmpty {
			out = append(out, ci)
		}
	}
	return out
}

// TextColumns lists non-empty text columns.
func (s Section) TextColumns() []ColumnInfo {
	var out []ColumnInfo
	for _, ci := range s.AllColumnInfo() {
		if ci.Type == ColumnText {
			out = append(out, ci)
		}
	}
	return out
}

func (s Section) ToConfig() SectionConfig { return copySectionConfig(s.config) }

// copySectionConfig copies the small fields; Data and Header are shared.
func copySectionConfig(cfg SectionConfig) SectionConfig {
	charts := make([]ChartConfig, len(cfg.Charts))
	for i, c := range cfg.Charts {
		charts[i] = ChartFromConfig(c).config
	}
	cfg.Charts = charts
	if cfg.CardRecap != nil {
		cc := copyCardConfig(*cfg.CardRecap)
		cfg.CardRecap = &cc
	}
	if cfg.SortConfig != nil {
		sc := *cfg.SortConfig
		cfg.SortConfig = &sc
	}
	if cfg.ApplyFiltersToCharts != nil {
		b := *cfg.ApplyFiltersToCharts
		cfg.ApplyFiltersToCharts = &b
	}
	if cfg.Style != nil {
		st := *cfg.Style
		cfg.Style = &st
	}
	if cfg.Data == nil {
		cfg.Data = DataMatrix{}
	}
	return cfg
}
