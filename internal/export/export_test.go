package export

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/sheetlens/internal/cell"
	"github.com/locvowork/sheetlens/internal/domain"
	"github.com/locvowork/sheetlens/internal/reader"
	"github.com/locvowork/sheetlens/internal/service"
)

func reportSheet() domain.Sheet {
	raw := domain.MatrixFromValues([][]interface{}{
		{"Quarterly report"},
		{},
		{"Sales"},
		{"Region", "Amount"},
		{"North", 120},
		{"South", 80},
		{"East", 200},
		{},
		{"Staff"},
		{"Name", "Team"},
		{"Ann", "North"},
	})
	return service.BuildSheet("Report", nil, raw)
}

func TestBuildSheetRoundTrip(t *testing.T) {
	sheet := reportSheet()
	sheet = sheet.UpdateSection(0, func(s domain.Section) domain.Section {
		return s.WithSearchText("th").WithSort(domain.SortConfig{ColumnIndex: 1, Direction: domain.SortDesc})
	})

	f, err := New().BuildSheet(sheet)
	require.NoError(t, err)
	data, err := ToBytes(f)
	require.NoError(t, err)

	wb, err := reader.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer wb.Close()
	assert.Equal(t, []string{"Report"}, wb.SheetNames())

	raw, err := wb.RawData(context.Background(), "Report")
	require.NoError(t, err)
	assert.Equal(t, "Quarterly report", cell.String(raw.At(0, 0)))

	sections := service.DetectSections(raw)
	require.Len(t, sections, 2)
	sales := sections[0]
	assert.Equal(t, "Sales", sales.TitleText())
	require.Len(t, sales.Data(), 2, "only rows matching the search are exported")
	assert.Equal(t, "North", cell.String(sales.Data()[0].Cell(0)))
	assert.Equal(t, 120.0, cell.DisplayValue(sales.Data()[0].Cell(1)))
	assert.Equal(t, "South", cell.String(sales.Data()[1].Cell(0)))

	assert.Equal(t, "Staff", sections[1].TitleText())
	assert.Len(t, sections[1].Data(), 1)
}

func TestBuildSectionWithCharts(t *testing.T) {
	section, ok := reportSheet().Section(0)
	require.True(t, ok)
	section = section.AddChart(service.CreateChart(section, 1, domain.ChartTypePie).WithTitle("Sales"))

	f, err := New(WithChartSheets(true), WithAutoFilter()).BuildSection("Sales/2024", section)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Sales_2024", "Chart Amount"}, f.GetSheetList())

	rows, err := f.GetRows("Chart Amount")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Region", "Amount", "%"}, rows[0])
	assert.Equal(t, "East", rows[3][0])
	assert.Equal(t, "200", rows[3][1])

	title, err := f.GetCellValue("Sales_2024", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Sales", title)
	merged, err := f.GetMergeCells("Sales_2024")
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, "A1", merged[0].GetStartAxis())
	assert.Equal(t, "B1", merged[0].GetEndAxis())
}

func TestHiddenChartsAreSkipped(t *testing.T) {
	section, _ := reportSheet().Section(0)
	section = section.AddChart(service.CreateChart(section, 1, domain.ChartTypeBar).Hide())

	f, err := New(WithChartSheets(false)).BuildSection("Sales", section)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Sales"}, f.GetSheetList())
}

func TestToCSV(t *testing.T) {
	sheet := reportSheet()
	sections := sheet.Sections()
	sections[0] = sections[0].WithSort(domain.SortConfig{ColumnIndex: 1, Direction: domain.SortAsc})

	var buf bytes.Buffer
	require.NoError(t, New().ToCSV(&buf, sections...))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"Sales",
		"Region,Amount",
		"South,80",
		"North,120",
		"East,200",
		"",
		"Staff",
		"Name,Team",
		"Ann,North",
	}, lines)
}

func TestSheetName(t *testing.T) {
	testCases := map[string]struct {
		in, expected string
	}{
		"plain":     {"Sales", "Sales"},
		"forbidden": {"a/b:c[d]", "a_b_c_d_"},
		"empty":     {"  ", "Sheet3"},
		"quoted":    {"'x'", "x"},
		"long":      {strings.Repeat("x", 40), strings.Repeat("x", 31)},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SheetName(tc.in, 2))
		})
	}
}

func TestStylesMerge(t *testing.T) {
	custom := Styles{Header: &StyleTemplate{Fill: &FillTemplate{Color: "#111111"}}}
	merged := custom.Merge(DefaultStyles)

	require.NotNil(t, merged.Header)
	assert.Equal(t, "#111111", merged.Header.Fill.Color)
	assert.True(t, merged.Header.Font.Bold, "font comes from the default")
	assert.Equal(t, DefaultStyles.Title, merged.Title)
	assert.NotSame(t, DefaultStyles.Title, merged.Title)
	assert.Nil(t, merged.Data)
}
