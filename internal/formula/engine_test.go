package formula

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/sheetlens/internal/cell"
)

func grid(sheet [][]cell.Value) [][]*cell.Cell {
	out := make([][]*cell.Cell, len(sheet))
	for r, row := range sheet {
		out[r] = make([]*cell.Cell, len(row))
		for c, v := range row {
			out[r][c] = cell.New(r, c, v)
		}
	}
	return out
}

func sampleWorkbook() ([]string, map[string][][]*cell.Cell) {
	names := []string{"Data", "Summary"}
	sheets := map[string][][]*cell.Cell{
		"Data": grid([][]cell.Value{
			{cell.Literal(100), cell.Formula("IF(A1>0,1,0)", 1)},
			{cell.Literal(200)},
			{cell.Formula("A1+A2", 300)},
		}),
		"Summary": grid([][]cell.Value{
			{cell.Literal("Total x2"), cell.Formula("Data!A3*2", 600)},
		}),
	}
	return names, sheets
}

func changeAt(changes []Change, sheet string, row, col int) (Change, bool) {
	for _, ch := range changes {
		if ch.Address != nil && ch.Address.SheetName == sheet && ch.Address.Row == row && ch.Address.Col == col {
			return ch, true
		}
	}
	return Change{}, false
}

func TestSetCellValueUninitialized(t *testing.T) {
	e := New()
	var changes []Change
	require.NotPanics(t, func() {
		changes = e.SetCellValue(context.Background(), "Data", 0, 0, 1)
	})
	assert.NotNil(t, changes)
	assert.Empty(t, changes)
	assert.False(t, e.Initialized())
}

func TestSetCellValuePropagates(t *testing.T) {
	ctx := context.Background()
	e := New()
	names, sheets := sampleWorkbook()
	require.NoError(t, e.Initialize(ctx, names, sheets))
	defer e.Destroy(ctx)

	changes := e.SetCellValue(ctx, "Data", 0, 0, 150)
	require.NotEmpty(t, changes)

	first := changes[0]
	require.NotNil(t, first.Address)
	assert.Equal(t, "Data", first.Address.SheetName)
	assert.Equal(t, 0, first.Address.Row)
	assert.Equal(t, 0, first.Address.Col)
	assert.Equal(t, 150.0, first.NewValue)

	sum, ok := changeAt(changes, "Data", 2, 0)
	require.True(t, ok)
	assert.Equal(t, 350.0, sum.NewValue)

	double, ok := changeAt(changes, "Summary", 0, 1)
	require.True(t, ok, "cross-sheet dependent must be reported")
	assert.Equal(t, 700.0, double.NewValue)

	_, ok = changeAt(changes, "Data", 0, 1)
	assert.False(t, ok, "dependent with unchanged value must not be reported")
}

func TestSetCellValueFormula(t *testing.T) {
	ctx := context.Background()
	e := New()
	names, sheets := sampleWorkbook()
	require.NoError(t, e.Initialize(ctx, names, sheets))
	defer e.Destroy(ctx)

	changes := e.SetCellValue(ctx, "Data", 2, 0, "=A1*10")
	edited, ok := changeAt(changes, "Data", 2, 0)
	require.True(t, ok)
	assert.Equal(t, 1000.0, edited.NewValue)

	double, ok := changeAt(changes, "Summary", 0, 1)
	require.True(t, ok)
	assert.Equal(t, 2000.0, double.NewValue)
}

func TestSetCellValueTextLiteral(t *testing.T) {
	ctx := context.Background()
	e := New()
	names, sheets := sampleWorkbook()
	require.NoError(t, e.Initialize(ctx, names, sheets))
	defer e.Destroy(ctx)

	changes := e.SetCellValue(ctx, "Summary", 0, 0, "Grand total")
	require.Len(t, changes, 1)
	assert.Equal(t, "Grand total", changes[0].NewValue)
}

func TestSetCellValueUnknownSheet(t *testing.T) {
	ctx := context.Background()
	e := New()
	names, sheets := sampleWorkbook()
	require.NoError(t, e.Initialize(ctx, names, sheets))

	assert.Empty(t, e.SetCellValue(ctx, "Missing", 0, 0, 1))

	e.Destroy(ctx)
	assert.False(t, e.Initialized())
	assert.Empty(t, e.SetCellValue(ctx, "Data", 0, 0, 1))
}

type fakeBackend struct {
	changes []Change
	err     error
	panics  bool
}

func (f *fakeBackend) SheetID(name string) (int, bool) { return 0, name == "Only" }
func (f *fakeBackend) Close() error                    { return nil }
func (f *fakeBackend) SetCellContents(Address, interface{}) ([]Change, error) {
	if f.panics {
		panic("boom")
	}
	return f.changes, f.err
}

func withFake(f *fakeBackend) Option {
	return WithBuilder(func(context.Context, []string, map[string][][]*cell.Cell) (Backend, error) {
		return f, nil
	})
}

func TestSetCellValueRecoversBackendFailures(t *testing.T) {
	ctx := context.Background()
	testCases := map[string]*fakeBackend{
		"panic": {panics: true},
		"error": {err: errors.New("cycle")},
	}
	for name, fake := range testCases {
		t.Run(name, func(t *testing.T) {
			e := New(withFake(fake))
			require.NoError(t, e.Initialize(ctx, []string{"Only"}, nil))
			var changes []Change
			require.NotPanics(t, func() {
				changes = e.SetCellValue(ctx, "Only", 0, 0, 1)
			})
			assert.NotNil(t, changes)
			assert.Empty(t, changes)
		})
	}
}

func TestInitializeFailureLeavesEngineEmpty(t *testing.T) {
	ctx := context.Background()
	e := New(WithBuilder(func(context.Context, []string, map[string][][]*cell.Cell) (Backend, error) {
		return nil, errors.New("bad workbook")
	}))
	assert.Error(t, e.Initialize(ctx, []string{"A"}, nil))
	assert.False(t, e.Initialized())
}

func TestExtractRefs(t *testing.T) {
	refs := extractRefs("SUM(A1:A3)+'My Sheet'!$B$2", "Data")
	assert.ElementsMatch(t, []area{
		{sheet: "Data", r1: 0, c1: 0, r2: 2, c2: 0},
		{sheet: "My Sheet", r1: 1, c1: 1, r2: 1, c2: 1},
	}, refs)

	column := extractRefs("SUM(C:C)", "Data")
	require.Len(t, column, 1)
	assert.True(t, column[0].contains(cellKey{sheet: "Data", row: 5000, col: 2}))
	assert.False(t, column[0].contains(cellKey{sheet: "Data", row: 0, col: 3}))

	assert.Empty(t, extractRefs("Total*2", "Data"))
}

func TestSetCellValueBeyondUsedArea(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit range", func(t *testing.T) {
		e := New()
		require.NoError(t, e.Initialize(ctx, []string{"S"}, map[string][][]*cell.Cell{
			"S": grid([][]cell.Value{
				{cell.Literal(1), cell.Formula("SUM(A1:A10)", 3)},
				{cell.Literal(2)},
			}),
		}))
		defer e.Destroy(ctx)

		changes := e.SetCellValue(ctx, "S", 4, 0, 100)
		require.Len(t, changes, 2)
		sum, ok := changeAt(changes, "S", 0, 1)
		require.True(t, ok, "range reader of a cell outside the used area must be reported")
		assert.Equal(t, 103.0, sum.NewValue)
	})

	t.Run("whole column", func(t *testing.T) {
		e := New()
		require.NoError(t, e.Initialize(ctx, []string{"S"}, map[string][][]*cell.Cell{
			"S": grid([][]cell.Value{
				{cell.Literal(1), cell.Formula("SUM(A:A)", 3)},
				{cell.Literal(2)},
			}),
		}))
		defer e.Destroy(ctx)

		changes := e.SetCellValue(ctx, "S", 6, 0, 10)
		sum, ok := changeAt(changes, "S", 0, 1)
		require.True(t, ok)
		assert.Equal(t, 13.0, sum.NewValue)

		changes = e.SetCellValue(ctx, "S", 6, 0, 20)
		sum, ok = changeAt(changes, "S", 0, 1)
		require.True(t, ok)
		assert.Equal(t, 23.0, sum.NewValue)
	})
}

func TestParseLiteral(t *testing.T) {
	assert.Equal(t, 42.0, ParseLiteral("42"))
	assert.Equal(t, true, ParseLiteral("true"))
	assert.Nil(t, ParseLiteral("  "))
	assert.Equal(t, "abc", ParseLiteral("abc"))
	assert.Equal(t, 3.0, ParseLiteral(3))
}

func TestSerialDate(t *testing.T) {
	assert.Equal(t, 45292.0, SerialDate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1.5, SerialDate(time.Date(1899, 12, 31, 12, 0, 0, 0, time.UTC)))
}
