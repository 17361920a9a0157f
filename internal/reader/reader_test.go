package reader

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/locvowork/sheetlens/internal/cell"
	"github.com/locvowork/sheetlens/internal/domain"
)

func fixtureWorkbook(t *testing.T) *Workbook {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetName(sheet, "Budget"))

	set := func(ref string, v interface{}) {
		require.NoError(t, f.SetCellValue("Budget", ref, v))
	}
	set("A1", "Budget 2024")
	set("A3", "Item")
	set("B3", "Amount")
	set("C3", "Paid")
	set("D3", "Due")
	set("A4", "Rent")
	set("B4", 1000)
	set("C4", true)
	set("D4", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	set("A5", "Food")
	set("B5", 400.5)
	set("C5", false)
	set("A6", "Total")
	require.NoError(t, f.SetCellFormula("Budget", "B6", "SUM(B4:B5)"))

	set("A8", "Docs")
	require.NoError(t, f.SetCellHyperLink("Budget", "A8", "https://example.com/docs", "External"))
	require.NoError(t, f.SetCellRichText("Budget", "A9", []excelize.RichTextRun{
		{Text: "Bold", Font: &excelize.Font{Bold: true}},
		{Text: " note"},
	}))

	_, err := f.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Notes", "B2", "hello"))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	wb, err := OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	t.Cleanup(func() { wb.Close() })
	return wb
}

func TestSheetNames(t *testing.T) {
	wb := fixtureWorkbook(t)
	assert.Equal(t, []string{"Budget", "Notes"}, wb.SheetNames())

	ws, ok := wb.Worksheet("Notes")
	require.True(t, ok)
	assert.Equal(t, "Notes", ws.Name())
	assert.Equal(t, 1, ws.Index())

	_, ok = wb.Worksheet("Missing")
	assert.False(t, ok)
}

func TestRawDataTypes(t *testing.T) {
	wb := fixtureWorkbook(t)
	m, err := wb.RawData(context.Background(), "Budget")
	require.NoError(t, err)

	assert.Equal(t, "Budget 2024", cell.DisplayValue(m.At(0, 0)))
	assert.True(t, m[1].IsBlank())
	assert.Equal(t, 1000.0, cell.DisplayValue(m.At(3, 1)))
	assert.Equal(t, 400.5, cell.DisplayValue(m.At(4, 1)))
	assert.Equal(t, true, cell.DisplayValue(m.At(3, 2)))
	assert.Equal(t, false, cell.DisplayValue(m.At(4, 2)))

	due, ok := cell.DisplayValue(m.At(3, 3)).(time.Time)
	require.True(t, ok, "date formatted numbers read as time")
	assert.Equal(t, 2024, due.Year())
	assert.Equal(t, time.March, due.Month())
	assert.Equal(t, 5, due.Day())

	total := m.At(5, 1)
	f, ok := cell.FormulaText(total)
	require.True(t, ok)
	assert.Equal(t, "SUM(B4:B5)", f)
	assert.Equal(t, 1400.5, cell.DisplayValue(total))

	link := m.At(7, 0)
	assert.Equal(t, cell.KindHyperlink, cell.Type(link))
	url, _ := cell.HyperlinkURL(link)
	assert.Equal(t, "https://example.com/docs", url)
	assert.Equal(t, "Docs", cell.DisplayValue(link))

	rich := m.At(8, 0)
	assert.Equal(t, cell.KindRichText, cell.Type(rich))
	assert.Equal(t, "Bold note", cell.DisplayValue(rich))
}

func TestRawDataCoordinates(t *testing.T) {
	wb := fixtureWorkbook(t)
	m, err := wb.RawData(context.Background(), "Notes")
	require.NoError(t, err)
	require.Len(t, m, 2)

	assert.Empty(t, m[0].Cells)
	require.Len(t, m[1].Cells, 2)
	assert.True(t, cell.IsEmpty(m.At(1, 0)))
	assert.Equal(t, 1, m[1].Index)
	c := m.At(1, 1)
	assert.Equal(t, 1, c.Row)
	assert.Equal(t, 1, c.Col)
	assert.Equal(t, "B2", cell.Address(c))
}

func TestRawDataTrailingFormulaWithoutCache(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Item", "Qty", "Price", "Total"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Bolts", 4, 2.5}))
	require.NoError(t, f.SetCellFormula("Sheet1", "D2", "B2*C2"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	wb, err := OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer wb.Close()
	m, err := wb.RawData(context.Background(), "Sheet1")
	require.NoError(t, err)

	require.Len(t, m[1].Cells, 4)
	formula, ok := cell.FormulaText(m.At(1, 3))
	require.True(t, ok)
	assert.Equal(t, "B2*C2", formula)
	assert.Equal(t, 10.0, cell.DisplayValue(m.At(1, 3)))
}

func TestRawDataCachedFormulaResults(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Item", "Qty", "Price", "Total", "Label"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Bolts", 4, 2.5, 10, "Bolts x4"}))
	// a value written before the formula stays behind as its cached result
	require.NoError(t, f.SetCellFormula("Sheet1", "D2", "B2*C2"))
	require.NoError(t, f.SetCellFormula("Sheet1", "E2", `A2&" x"&B2`))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	wb, err := OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer wb.Close()
	m, err := wb.RawData(context.Background(), "Sheet1")
	require.NoError(t, err)

	total := m.At(1, 3)
	require.True(t, cell.HasFormula(total))
	assert.Equal(t, 10.0, cell.DisplayValue(total))
	assert.True(t, cell.IsNumeric(total))

	label := m.At(1, 4)
	require.True(t, cell.HasFormula(label))
	assert.Equal(t, "Bolts x4", cell.DisplayValue(label))
}

func TestRawDataUnknownSheet(t *testing.T) {
	wb := fixtureWorkbook(t)
	_, err := wb.RawData(context.Background(), "Nope")
	assert.True(t, errors.Is(err, domain.ErrSheetNotFound))

	all, err := wb.AllRawData(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestOpenReaderRejectsGarbage(t *testing.T) {
	_, err := OpenReader(strings.NewReader("name,value\na,1\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedFile))
}

func TestIsDateFormat(t *testing.T) {
	custom := func(s string) *string { return &s }
	testCases := map[string]struct {
		numFmt   int
		custom   *string
		expected bool
	}{
		"general":       {0, nil, false},
		"number":        {2, nil, false},
		"builtin date":  {14, nil, true},
		"builtin time":  {21, nil, true},
		"datetime":      {22, nil, true},
		"percent":       {10, nil, false},
		"custom date":   {164, custom("dd/mm/yyyy"), true},
		"custom number": {164, custom("#,##0.00"), false},
		"quoted text":   {164, custom(`0 "days"`), false},
		"currency tag":  {164, custom("[$€-fr-FR] #,##0"), false},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsDateFormat(tc.numFmt, tc.custom))
		})
	}
}
