package seeder

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/sheetlens/internal/cell"
	"github.com/locvowork/sheetlens/internal/domain"
	"github.com/locvowork/sheetlens/internal/reader"
	"github.com/locvowork/sheetlens/internal/repository"
	"github.com/locvowork/sheetlens/internal/service"
)

func TestGetPresetConfig(t *testing.T) {
	assert.Equal(t, Config{Brands: 2, ProductsPerBrand: 5, CountriesPerBrand: 2}, GetPresetConfig(PresetSmall))
	assert.Equal(t, GetPresetConfig(PresetMedium), GetPresetConfig("unknown"))
	assert.Equal(t, 500, GetPresetConfig(PresetXLarge).ProductsPerBrand)
}

func TestRandomSelect(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	got := randomSelect(rnd, []string{"a", "b", "c"}, 5)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, got)
	assert.Len(t, randomSelect(rnd, []string{"a", "b", "c"}, 2), 2)
}

func seededWorkbook(t *testing.T) *reader.Workbook {
	t.Helper()
	f, err := New(42).Workbook(context.Background(), Config{Brands: 2, ProductsPerBrand: 3, CountriesPerBrand: 2})
	require.NoError(t, err)
	wb := reader.FromFile(f)
	t.Cleanup(func() { wb.Close() })
	return wb
}

func TestWorkbookLayout(t *testing.T) {
	ctx := context.Background()
	wb := seededWorkbook(t)
	assert.Equal(t, []string{SalesSheet, SummarySheet}, wb.SheetNames())

	raw, err := wb.RawData(ctx, SalesSheet)
	require.NoError(t, err)
	sheet := service.BuildSheet(SalesSheet, nil, raw)
	assert.Equal(t, "Sales report 2024", sheet.Title())
	require.Equal(t, 2, sheet.SectionCount())

	sec, _ := sheet.Section(0)
	assert.Equal(t, "Apple", sec.TitleText())
	assert.Equal(t, "Product", cell.String(sec.Header().Cell(0)))
	require.Len(t, sec.Data(), 4, "three products and a total")

	var units float64
	for _, row := range sec.Data()[:3] {
		require.True(t, cell.IsNumeric(row.Cell(2)))
		require.True(t, cell.IsNumeric(row.Cell(3)))
		u, r, p := cell.Number(row.Cell(2)), cell.Number(row.Cell(3)), cell.Number(row.Cell(4))
		assert.InDelta(t, u*p, r, 0.01)
		units += u
	}
	total := sec.Data()[3]
	assert.Equal(t, "Total", cell.String(total.Cell(0)))
	assert.InDelta(t, units, cell.Number(total.Cell(2)), 0.001)
	assert.True(t, cell.HasFormula(total.Cell(3)))
}

func TestWorkbookIsDeterministic(t *testing.T) {
	ctx := context.Background()
	read := func() domain.DataMatrix {
		f, err := New(7).Workbook(ctx, GetPresetConfig(PresetSmall))
		require.NoError(t, err)
		wb := reader.FromFile(f)
		defer wb.Close()
		raw, err := wb.RawData(ctx, SalesSheet)
		require.NoError(t, err)
		return raw
	}
	a, b := read(), read()
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].DisplayValues(), b[i].DisplayValues())
	}
}

func TestDefaultViewsAndSeeding(t *testing.T) {
	ctx := context.Background()
	wb := seededWorkbook(t)

	views, err := DefaultViews(ctx, wb, "demo.xlsx")
	require.NoError(t, err)
	require.Len(t, views, 2)

	sales := views[0]
	assert.Equal(t, SalesSheet, sales.SheetName)
	require.Len(t, sales.Sections, 2)
	require.Len(t, sales.Sections[0].Charts, 1)
	assert.Equal(t, domain.ChartTypePie, sales.Sections[0].Charts[0].Type)
	require.NotNil(t, sales.Sections[0].Card)
	assert.Equal(t, 3, sales.Sections[0].Card.RowIndex)
	assert.Equal(t, "Revenue", sales.Sections[0].Card.Label)

	summary := views[1]
	require.NotEmpty(t, summary.Sections)
	require.Len(t, summary.Sections[0].Charts, 1)
	assert.Equal(t, domain.ChartTypeBar, summary.Sections[0].Charts[0].Type)

	repo := repository.NewMemoryViewStateRepository()
	require.NoError(t, SeedViews(ctx, repo, views))
	saved, err := repo.List(ctx, "demo.xlsx")
	require.NoError(t, err)
	assert.Len(t, saved, 2)

	n, err := ClearViews(ctx, repo, "demo.xlsx")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = repo.Get(ctx, "demo.xlsx", SalesSheet)
	assert.ErrorIs(t, err, domain.ErrViewStateNotFound)
}
