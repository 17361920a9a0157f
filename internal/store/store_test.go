package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/sheetlens/internal/cell"
	"github.com/locvowork/sheetlens/internal/domain"
	"github.com/locvowork/sheetlens/internal/service"
)

type matrixSource struct {
	names  []string
	sheets map[string]domain.DataMatrix
}

func (m matrixSource) SheetNames() []string { return m.names }

func (m matrixSource) RawData(_ context.Context, name string) (domain.DataMatrix, error) {
	raw, ok := m.sheets[name]
	if !ok {
		return nil, domain.ErrSheetNotFound
	}
	return raw, nil
}

func budgetSource() matrixSource {
	return matrixSource{
		names: []string{"Budget", "Summary"},
		sheets: map[string]domain.DataMatrix{
			"Budget": domain.MatrixFromValues([][]interface{}{
				{"Budget 2024"},
				{},
				{"Expenses"},
				{"Item", "Amount"},
				{"Rent", 1000},
				{"Food", 400},
				{"Total", cell.Formula("B5+B6", 1400)},
			}),
			"Summary": domain.MatrixFromValues([][]interface{}{
				{"Summary"},
				{"Label", "Value"},
				{"Budget total", cell.Formula("Budget!B7", 1400)},
			}),
		},
	}
}

func loadedStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := New(opts...)
	require.NoError(t, s.LoadWorkbook(context.Background(), budgetSource(), "budget.xlsx"))
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestLoadWorkbook(t *testing.T) {
	s := New()
	var events []Event
	unsubscribe := s.Subscribe(func(ev Event) { events = append(events, ev) })

	require.NoError(t, s.LoadWorkbook(context.Background(), budgetSource(), "budget.xlsx"))
	state := s.State()
	assert.True(t, state.Loaded)
	assert.Equal(t, "budget.xlsx", state.FileName)
	assert.Equal(t, []string{"Budget", "Summary"}, state.SheetNames)
	assert.Equal(t, "Budget", state.CurrentSheet)

	sheet, ok := s.CurrentSheet()
	require.True(t, ok)
	assert.Equal(t, "Budget 2024", sheet.Title())
	assert.Equal(t, 1, sheet.SectionCount())

	require.Len(t, events, 1)
	assert.Equal(t, EventWorkbookLoaded, events[0].Kind)

	unsubscribe()
	assert.True(t, s.ClearWorkbook(context.Background()))
	assert.Len(t, events, 1)
	assert.False(t, s.State().Loaded)
	assert.False(t, s.ClearWorkbook(context.Background()))
	_, ok = s.CurrentSheet()
	assert.False(t, ok)
}

func TestLoadWorkbookError(t *testing.T) {
	s := New()
	src := budgetSource()
	src.names = append(src.names, "Ghost")
	err := s.LoadWorkbook(context.Background(), src, "broken.xlsx")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSheetNotFound))
	assert.False(t, s.State().Loaded)
}

func TestSelectSheet(t *testing.T) {
	s := loadedStore(t)
	var kinds []EventKind
	s.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })

	require.NoError(t, s.SelectSheet(context.Background(), "Summary"))
	sheet, ok := s.CurrentSheet()
	require.True(t, ok)
	assert.Equal(t, "Summary", sheet.Name())

	require.NoError(t, s.SelectSheet(context.Background(), "Summary"))
	assert.Equal(t, []EventKind{EventSheetSelected}, kinds)

	err := s.SelectSheet(context.Background(), "Nope")
	assert.True(t, errors.Is(err, domain.ErrSheetNotFound))
}

func TestSheetStateSurvivesSwitching(t *testing.T) {
	s := loadedStore(t)
	require.True(t, s.SetSearchText(0, "rent"))
	require.NoError(t, s.SelectSheet(context.Background(), "Summary"))
	require.NoError(t, s.SelectSheet(context.Background(), "Budget"))

	sheet, _ := s.CurrentSheet()
	section, _ := sheet.Section(0)
	assert.Equal(t, "rent", section.SearchText())

	summary, ok := s.Sheet("Summary")
	require.True(t, ok)
	other, _ := summary.Section(0)
	assert.Equal(t, "", other.SearchText())
}

func TestSectionCommands(t *testing.T) {
	s := loadedStore(t)
	var events []Event
	s.Subscribe(func(ev Event) { events = append(events, ev) })

	assert.False(t, s.SetSearchText(5, "x"), "unknown section")
	assert.False(t, s.ClearSearch(0), "nothing to clear")
	assert.True(t, s.ToggleSort(0, 1))
	assert.True(t, s.ClearSort(0))
	assert.False(t, s.ClearSort(0))
	assert.False(t, s.SetApplyFiltersToCharts(0, true))
	assert.True(t, s.SetApplyFiltersToCharts(0, false))

	assert.False(t, s.SetChartType(0, 1, domain.ChartTypePie), "no chart yet")
	assert.True(t, s.ToggleChart(0, 1))
	assert.True(t, s.SetChartType(0, 1, domain.ChartTypePie))
	assert.False(t, s.SetChartType(0, 1, "radar"))
	assert.True(t, s.SetChartLabelColumn(0, 1, 0))
	assert.True(t, s.ToggleRowExclusion(0, 5))
	assert.False(t, s.ToggleRowExclusion(0, 42))

	sheet, _ := s.CurrentSheet()
	section, _ := sheet.Section(0)
	chart, ok := section.Chart(1)
	require.True(t, ok)
	assert.Equal(t, domain.ChartTypePie, chart.Type())
	assert.Equal(t, []int{5}, chart.ExcludedRows())
	assert.False(t, section.ApplyFiltersToCharts())

	points := service.PrepareChartData(section, chart)
	require.Len(t, points, 2)
	assert.Equal(t, "Rent", points[0].Name)
	assert.Equal(t, "Total", points[1].Name)

	for _, ev := range events {
		assert.Equal(t, EventSectionUpdated, ev.Kind)
		assert.Equal(t, "Budget", ev.Sheet)
		assert.Equal(t, 0, ev.Section)
	}
	assert.Len(t, events, 7)
}

func TestCardCommands(t *testing.T) {
	preset := domain.CardStyleConfig{ColorTheme: "emerald", Size: "small"}
	s := loadedStore(t, WithDefaultStyles(&domain.SectionStyleConfig{ColorTheme: "slate"}, &preset))

	sheet, _ := s.CurrentSheet()
	section, _ := sheet.Section(0)
	assert.Equal(t, "slate", section.Style().ColorTheme)

	assert.False(t, s.UpdateCardStyle(0, domain.CardStyleConfig{Size: "large"}), "no card yet")
	assert.False(t, s.SetCardRecap(0, 9, 1, nil))
	require.True(t, s.SetCardRecap(0, 2, 1, nil))

	sheet, _ = s.CurrentSheet()
	section, _ = sheet.Section(0)
	card, ok := section.CardRecap()
	require.True(t, ok)
	assert.Equal(t, 1400.0, cell.DisplayValue(card.Value()))
	assert.Equal(t, "Amount", card.LabelText())
	assert.Equal(t, preset, card.Style())

	require.True(t, s.UpdateCardStyle(0, domain.CardStyleConfig{Size: "large"}))
	require.True(t, s.UpdateCard(0, func(c domain.CardRecap) domain.CardRecap { return c.WithUnit("€") }))
	sheet, _ = s.CurrentSheet()
	section, _ = sheet.Section(0)
	card, _ = section.CardRecap()
	assert.Equal(t, "large", card.Style().Size)
	assert.Equal(t, "emerald", card.Style().ColorTheme)
	assert.Equal(t, "€", card.Unit())

	require.True(t, s.SetCardStyle(0, domain.CardStyleConfig{ColorTheme: "rose"}))
	require.True(t, s.ClearCardRecap(0))
	assert.False(t, s.ClearCardRecap(0))
}

func TestEditCellPropagates(t *testing.T) {
	s := loadedStore(t)
	var edited []Event
	s.Subscribe(func(ev Event) {
		if ev.Kind == EventCellEdited {
			edited = append(edited, ev)
		}
	})

	changes, err := s.EditCell(context.Background(), 4, 1, 1500)
	require.NoError(t, err)
	require.NotEmpty(t, changes)
	require.Len(t, edited, 1)

	raw, _ := s.RawData("Budget")
	assert.Equal(t, 1500.0, cell.DisplayValue(raw.At(4, 1)))
	assert.Equal(t, 1900.0, cell.DisplayValue(raw.At(6, 1)))

	sheet, _ := s.CurrentSheet()
	section, _ := sheet.Section(0)
	assert.Equal(t, 1900.0, cell.DisplayValue(section.Data()[2].Cell(1)))

	summary, _ := s.RawData("Summary")
	f, ok := cell.FormulaText(summary.At(2, 1))
	require.True(t, ok)
	assert.Equal(t, "Budget!B7", f)
	assert.Equal(t, 1900.0, cell.DisplayValue(summary.At(2, 1)))
}

func TestEditCellEdgeCases(t *testing.T) {
	s := New()
	_, err := s.EditCell(context.Background(), 0, 0, 1)
	assert.True(t, errors.Is(err, domain.ErrSheetNotFound))

	src := budgetSource()
	src.sheets["Budget"][0].Cells[0].Value = cell.Hyperlink("Budget 2024", "https://example.com")
	require.NoError(t, s.LoadWorkbook(context.Background(), src, "budget.xlsx"))
	defer s.Close(context.Background())

	_, err = s.EditCell(context.Background(), 0, 0, "x")
	assert.True(t, errors.Is(err, domain.ErrCellReadOnly))

	changes, err := s.EditCell(context.Background(), 99, 0, 1)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestViewStateCommands(t *testing.T) {
	s := loadedStore(t)
	_, ok := New().CaptureViewState()
	assert.False(t, ok)

	require.True(t, s.SetSearchText(0, "o"))
	require.True(t, s.ToggleChart(0, 1))
	vs, ok := s.CaptureViewState()
	require.True(t, ok)
	assert.Equal(t, "budget.xlsx", vs.FileName)
	assert.Equal(t, "Budget", vs.SheetName)

	fresh := loadedStore(t)
	require.True(t, fresh.ApplyViewState(vs))
	sheet, _ := fresh.CurrentSheet()
	section, _ := sheet.Section(0)
	assert.Equal(t, "o", section.SearchText())
	assert.True(t, section.HasChart(1))

	assert.False(t, fresh.ApplyViewState(domain.ViewState{SheetName: "Nope"}))
}
