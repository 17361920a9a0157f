package domain

// ChartType is how a chart series is drawn.
type ChartType string

const (
	ChartTypeBar  ChartType = "bar"
	ChartTypePie  ChartType = "pie"
	ChartTypeLine ChartType = "line"
)

// Valid reports whether t is a known chart type.
func (t ChartType) Valid() bool {
	switch t {
	case ChartTypeBar, ChartTypePie, ChartTypeLine:
		return true
	}
	return false
}

// ChartConfig is the plain record behind a Chart. ExcludedRows holds row
// indices (Row.Index), never positions in a filtered view.
type ChartConfig struct {
	ColumnIndex      int       `json:"columnIndex"`
	LabelColumnIndex int       `json:"labelColumnIndex"`
	Type             ChartType `json:"type"`
	ExcludedRows     []int     `json:"excludedRows"`
	Visible          bool      `json:"visible"`
	Color            string    `json:"color,omitempty"`
	Title            string    `json:"title,omitempty"`
}

// ChartDataPoint is one plotted value.
type ChartDataPoint struct {
	Index      int     `json:"index"`
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// ChartMetadata summarizes a prepared chart.
type ChartMetadata struct {
	ValueLabel     string `json:"valueLabel"`
	LabelName      string `json:"labelName"`
	DataPointCount int    `json:"dataPointCount"`
	ExcludedCount  int    `json:"excludedCount"`
}

// Chart is an immutable chart of one value column. Every With/Toggle method
// returns a new Chart.
type Chart struct {
	config ChartConfig
}

// NewChart returns a visible chart with no exclusions. An empty type means bar.
func NewChart(columnIndex, labelColumnIndex int, t ChartType) Chart {
	if t == "" {
		t = ChartTypeBar
	}
	return Chart{config: ChartConfig{
		ColumnIndex:      columnIndex,
		LabelColumnIndex: labelColumnIndex,
		Type:             t,
		ExcludedRows:     []int{},
		Visible:          true,
	}}
}

// ChartFromConfig wraps a copy of cfg.
func ChartFromConfig(cfg ChartConfig) Chart {
	cfg.ExcludedRows = copyInts(cfg.ExcludedRows)
	return Chart{config: cfg}
}

func (c Chart) ColumnIndex() int      { return c.config.ColumnIndex }
func (c Chart) LabelColumnIndex() int { return c.config.LabelColumnIndex }
func (c Chart) Type() ChartType       { return c.config.Type }
func (c Chart) Visible() bool         { return c.config.Visible }
func (c Chart) Color() string         { return c.config.Color }
func (c Chart) Title() string         { return c.config.Title }

// ExcludedRows returns a copy of the excluded row indices.
func (c Chart) ExcludedRows() []int { return copyInts(c.config.ExcludedRows) }

func (c Chart) WithType(t ChartType) Chart {
	cfg := c.ToConfig()
	cfg.Type = t
	return Chart{config: cfg}
}

func (c Chart) WithLabelColumn(labelColumnIndex int) Chart {
	cfg := c.ToConfig()
	cfg.LabelColumnIndex = labelColumnIndex
	return Chart{config: cfg}
}

func (c Chart) WithColor(color string) Chart {
	cfg := c.ToConfig()
	cfg.Color = color
	return Chart{config: cfg}
}

func (c Chart) WithTitle(title string) Chart {
	cfg := c.ToConfig()
	cfg.Title = title
	return Chart{config: cfg}
}

func (c Chart) ToggleVisibility() Chart { return c.withVisible(!c.config.Visible) }
func (c Chart) Show() Chart             { return c.withVisible(true) }
func (c Chart) Hide() Chart             { return c.withVisible(false) }

func (c Chart) withVisible(v bool) Chart {
	cfg := c.ToConfig()
	cfg.Visible = v
	return Chart{config: cfg}
}

// ToggleRowExclusion excludes row if it is plotted, and includes it back if
// it was excluded.
func (c Chart) ToggleRowExclusion(row Row) Chart {
	if c.IsRowExcluded(row) {
		return c.IncludeRow(row)
	}
	return c.ExcludeRow(row)
}

// ExcludeRow is a no-op returning c when row is already excluded.
func (c Chart) ExcludeRow(row Row) Chart {
	if c.IsRowExcluded(row) {
		return c
	}
	cfg := c.ToConfig()
	cfg.ExcludedRows = append(cfg.ExcludedRows, row.Index)
	return Chart{config: cfg}
}

func (c Chart) IncludeRow(row Row) Chart {
	cfg := c.ToConfig()
	kept := make([]int, 0, len(cfg.ExcludedRows))
	for _, idx := range cfg.ExcludedRows {
		if idx != row.Index {
			kept = append(kept, idx)
		}
	}
	cfg.ExcludedRows = kept
	return Chart{config: cfg}
}

func (c Chart) ClearExcludedRows() Chart {
	cfg := c.ToConfig()
	cfg.ExcludedRows = []int{}
	return Chart{config: cfg}
}

func (c Chart) IsRowExcluded(row Row) bool {
	for _, idx := range c.config.ExcludedRows {
		if idx == row.Index {
			return true
		}
	}
	return false
}

func (c Chart) HasExcludedRows() bool { return len(c.config.ExcludedRows) > 0 }
func (c Chart) ExcludedRowCount() int { return len(c.config.ExcludedRows) }
func (c Chart) ToConfig() ChartConfig { return ChartFromConfig(c.config).config }

func copyInts(in []int) []int {
	out := make([]int, len(in))
	copy(out, in)
	return out
}
