package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChartDefaults(t *testing.T) {
	c := NewChart(2, 0, "")
	assert.Equal(t, ChartTypeBar, c.Type())
	assert.True(t, c.Visible())
	assert.Empty(t, c.ExcludedRows())
	assert.False(t, c.HasExcludedRows())
}

func TestChartIsImmutable(t *testing.T) {
	c := NewChart(1, 0, ChartTypeBar)
	pie := c.WithType(ChartTypePie).WithColor("#ff0000").WithTitle("Sales")

	assert.Equal(t, ChartTypeBar, c.Type())
	assert.Equal(t, "", c.Color())
	assert.Equal(t, ChartTypePie, pie.Type())
	assert.Equal(t, "#ff0000", pie.Color())
	assert.Equal(t, "Sales", pie.Title())

	hidden := c.Hide()
	assert.True(t, c.Visible())
	assert.False(t, hidden.Visible())
	assert.True(t, hidden.ToggleVisibility().Visible())
	assert.True(t, hidden.Show().Visible())
}

func TestChartRowExclusion(t *testing.T) {
	rowA := Row{Index: 4}
	rowB := Row{Index: 5}
	c := NewChart(1, 0, ChartTypeBar)

	excluded := c.ToggleRowExclusion(rowA)
	assert.True(t, excluded.IsRowExcluded(rowA))
	assert.False(t, excluded.IsRowExcluded(rowB))
	assert.False(t, c.IsRowExcluded(rowA))
	assert.Equal(t, 1, excluded.ExcludedRowCount())

	same := excluded.ExcludeRow(rowA)
	assert.Equal(t, 1, same.ExcludedRowCount())

	restored := excluded.ToggleRowExclusion(rowA)
	assert.False(t, restored.IsRowExcluded(rowA))
	assert.Equal(t, 0, restored.ExcludedRowCount())

	both := c.ExcludeRow(rowA).ExcludeRow(rowB)
	assert.Equal(t, []int{4, 5}, both.ExcludedRows())
	assert.Empty(t, both.ClearExcludedRows().ExcludedRows())
	assert.Equal(t, []int{5}, both.IncludeRow(rowA).ExcludedRows())
}

func TestChartExcludedRowsAreCopied(t *testing.T) {
	c := NewChart(1, 0, ChartTypeBar).ExcludeRow(Row{Index: 3})
	rows := c.ExcludedRows()
	rows[0] = 99
	assert.Equal(t, []int{3}, c.ExcludedRows())

	cfg := c.ToConfig()
	cfg.ExcludedRows[0] = 42
	assert.Equal(t, []int{3}, c.ExcludedRows())
}

func TestChartConfigRoundTrip(t *testing.T) {
	c := NewChart(3, 1, ChartTypeLine).WithColor("teal").WithTitle("Trend").ExcludeRow(Row{Index: 7}).Hide()

	back := ChartFromConfig(c.ToConfig())
	assert.Equal(t, c.ToConfig(), back.ToConfig())

	data, err := json.Marshal(c)
	require.NoError(t, err)
	var decoded Chart
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, c.ColumnIndex(), decoded.ColumnIndex())
	assert.Equal(t, c.LabelColumnIndex(), decoded.LabelColumnIndex())
	assert.Equal(t, c.Type(), decoded.Type())
	assert.Equal(t, c.Visible(), decoded.Visible())
	assert.Equal(t, c.ExcludedRows(), decoded.ExcludedRows())
	assert.Equal(t, c.Color(), decoded.Color())
	assert.Equal(t, c.Title(), decoded.Title())
}

func TestChartTypeValid(t *testing.T) {
	assert.True(t, ChartTypePie.Valid())
	assert.False(t, ChartType("radar").Valid())
}
