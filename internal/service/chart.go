package service

import (
	"github.com/locvowork/sheetlens/internal/cell"
	"github.com/locvowork/sheetlens/internal/domain"
)

// ==================== Chart data ====================

// chartSource picks the rows a chart plots: the filtered and sorted view
// when filters apply to charts and one is active, else the raw data.
func chartSource(section domain.Section) domain.DataMatrix {
	if section.ApplyFiltersToCharts() && (section.HasActiveSearch() || section.HasActiveSort()) {
		return ApplyFiltersAndSort(section)
	}
	return section.Data()
}

// PrepareChartData projects a section column into chart points. Excluded
// rows are dropped by row index; Index is the position among the points
// that remain. Percentages are zero when the values sum to zero.
func PrepareChartData(section domain.Section, chart domain.Chart) []domain.ChartDataPoint {
	source := chartSource(section)
	points := make([]domain.ChartDataPoint, 0, len(source))
	total := 0.0
	for _, row := range source {
		if chart.IsRowExcluded(row) {
			continue
		}
		v := cell.Number(row.Cell(chart.ColumnIndex()))
		total += v
		points = append(points, domain.ChartDataPoint{
			Index: len(points),
			Name:  cell.String(row.Cell(chart.LabelColumnIndex())),
			Value: v,
		})
	}
	if total != 0 {
		for i := range points {
			points[i].Percentage = points[i].Value / total * 100
		}
	}
	return points
}

// ChartRows returns the rows behind PrepareChartData in the same order, so
// a point index maps back to the row it came from.
func ChartRows(section domain.Section, chart domain.Chart) domain.DataMatrix {
	source := chartSource(section)
	out := make(domain.DataMatrix, 0, len(source))
	for _, row := range source {
		if !chart.IsRowExcluded(row) {
			out = append(out, row)
		}
	}
	return out
}

// ==================== Column helpers ====================

func IsNumericColumn(section domain.Section, col int) bool { return section.IsNumericColumn(col) }
func FindLabelColumn(section domain.Section) int          { return section.LabelColumn() }

// LabelCandidateColumns lists the non-numeric columns a chart may be labeled
// by, never the charted one.
func LabelCandidateColumns(section domain.Section, chartColumn int) []domain.ColumnInfo {
	out := []domain.ColumnInfo{}
	for _, info := range section.AllColumnInfo() {
		if info.Index != chartColumn && !info.IsNumeric {
			out = append(out, info)
		}
	}
	return out
}

// ValueLabel is the header text of the charted column.
func ValueLabel(section domain.Section, chart domain.Chart) string {
	if s := cell.String(section.Header().Cell(chart.ColumnIndex())); s != "" {
		return s
	}
	return "Value"
}

// LabelName is the header text of the label column.
func LabelName(section domain.Section, chart domain.Chart) string {
	if s := cell.String(section.Header().Cell(chart.LabelColumnIndex())); s != "" {
		return s
	}
	return "Label"
}

func ChartMetadata(section domain.Section, chart domain.Chart) domain.ChartMetadata {
	return domain.ChartMetadata{
		ValueLabel:     ValueLabel(section, chart),
		LabelName:      LabelName(section, chart),
		DataPointCount: len(PrepareChartData(section, chart)),
		ExcludedCount:  chart.ExcludedRowCount(),
	}
}

// ==================== Chart mutations ====================

// CreateChart builds a visible chart on col labeled by the section's label
// column.
func CreateChart(section domain.Section, col int, t domain.ChartType) domain.Chart {
	return domain.NewChart(col, section.LabelColumn(), t)
}

func ChangeChartType(chart domain.Chart, t domain.ChartType) domain.Chart {
	return chart.WithType(t)
}

func ChangeChartLabelColumn(chart domain.Chart, col int) domain.Chart {
	return chart.WithLabelColumn(col)
}

func ToggleRowExclusion(chart domain.Chart, row domain.Row) domain.Chart {
	return chart.ToggleRowExclusion(row)
}
