// Package export writes section views (filtered and sorted as displayed)
// to xlsx or CSV.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/locvowork/sheetlens/internal/cell"
	"github.com/locvowork/sheetlens/internal/domain"
	"github.com/locvowork/sheetlens/internal/service"
)

const (
	maxSheetNameLen = 31
	maxColumnWidth  = 60.0
	minColumnWidth  = 8.0
)

type Option func(*Exporter)

// WithStyles overrides the default styles; nil entries keep the default.
func WithStyles(s Styles) Option {
	return func(e *Exporter) { e.styles = s.Merge(DefaultStyles) }
}

// WithChartSheets adds one sheet per visible chart holding its data points.
// With native set, an xlsx chart is drawn next to the data.
func WithChartSheets(native bool) Option {
	return func(e *Exporter) {
		e.chartSheets = true
		e.nativeCharts = native
	}
}

// WithAutoFilter adds a filter on the header of a single exported section.
func WithAutoFilter() Option {
	return func(e *Exporter) { e.autoFilter = true }
}

// Exporter renders sections as they are displayed: search applied, sort
// applied, values taken from the display value of each cell.
type Exporter struct {
	styles       Styles
	chartSheets  bool
	nativeCharts bool
	autoFilter   bool
}

func New(opts ...Option) *Exporter {
	e := &Exporter{styles: DefaultStyles}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ==================== xlsx ====================

// BuildSection renders one section on its own sheet.
func (e *Exporter) BuildSection(sheetName string, section domain.Section) (*excelize.File, error) {
	f := excelize.NewFile()
	name := SheetName(sheetName, 0)
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		f.Close()
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	w := &sheetWriter{f: f, sheet: name, styles: newStyleCache(f), e: e, row: 1}
	headerRow, lastRow, err := w.section(section)
	if err != nil {
		f.Close()
		return nil, err
	}
	if e.autoFilter && section.Header().Len() > 0 {
		first, _ := excelize.CoordinatesToCellName(1, headerRow)
		last, _ := excelize.CoordinatesToCellName(section.Header().Len(), lastRow)
		if err := f.AutoFilter(name, first+":"+last, nil); err != nil {
			f.Close()
			return nil, fmt.Errorf("add filter: %w", err)
		}
	}
	w.fitColumns()

	if e.chartSheets {
		if err := e.addChartSheets(f, section); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// BuildSheet renders every section of sheet, stacked and separated by a
// blank row under the document title, the layout section detection reads.
func (e *Exporter) BuildSheet(sheet domain.Sheet) (*excelize.File, error) {
	f := excelize.NewFile()
	name := SheetName(sheet.Name(), 0)
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		f.Close()
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	w := &sheetWriter{f: f, sheet: name, styles: newStyleCache(f), e: e, row: 1}
	if err := w.value(1, sheet.Title(), e.styles.DocumentTitle); err != nil {
		f.Close()
		return nil, err
	}
	w.row = 3
	for _, section := range sheet.Sections() {
		if _, _, err := w.section(section); err != nil {
			f.Close()
			return nil, err
		}
		w.row++
	}
	w.fitColumns()

	if e.chartSheets {
		for _, section := range sheet.Sections() {
			if err := e.addChartSheets(f, section); err != nil {
				f.Close()
				return nil, err
			}
		}
	}
	return f, nil
}

// ToBytes serializes f and closes it.
func ToBytes(f *excelize.File) ([]byte, error) {
	defer f.Close()
	buf := new(bytes.Buffer)
	if _, err := f.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter appends rows to one sheet. row is the next 1-based row.
type sheetWriter struct {
	f      *excelize.File
	sheet  string
	styles *styleCache
	e      *Exporter
	row    int
	widths map[int]float64
}

// section writes title, header and the displayed rows. It returns the
// header row and the last written row.
func (w *sheetWriter) section(section domain.Section) (int, int, error) {
	width := section.Header().Len()
	if section.HasTitle() {
		if err := w.value(1, section.TitleText(), w.e.styles.Title); err != nil {
			return 0, 0, err
		}
		if width > 1 {
			start, _ := excelize.CoordinatesToCellName(1, w.row)
			end, _ := excelize.CoordinatesToCellName(width, w.row)
			if err := w.f.MergeCell(w.sheet, start, end); err != nil {
				return 0, 0, fmt.Errorf("merge title: %w", err)
			}
		}
		w.row++
	}

	headerRow := w.row
	for i, c := range section.Header().Cells {
		if err := w.value(i+1, cell.DisplayValue(c), w.e.styles.Header); err != nil {
			return 0, 0, err
		}
	}
	w.row++

	for _, r := range service.ApplyFiltersAndSort(section) {
		for i, c := range r.Cells {
			v := cell.DisplayValue(c)
			style := w.e.styles.Data
			if _, ok := v.(time.Time); ok {
				style = w.e.styles.Date
			}
			if err := w.value(i+1, v, style); err != nil {
				return 0, 0, err
			}
		}
		w.row++
	}
	return headerRow, w.row - 1, nil
}

func (w *sheetWriter) value(col int, v interface{}, style *StyleTemplate) error {
	ref, err := excelize.CoordinatesToCellName(col, w.row)
	if err != nil {
		return err
	}
	if v != nil {
		if err := w.f.SetCellValue(w.sheet, ref, v); err != nil {
			return fmt.Errorf("write %s: %w", ref, err)
		}
	}
	id, err := w.styles.id(style)
	if err != nil {
		return fmt.Errorf("style %s: %w", ref, err)
	}
	if id != 0 {
		if err := w.f.SetCellStyle(w.sheet, ref, ref, id); err != nil {
			return fmt.Errorf("style %s: %w", ref, err)
		}
	}
	w.track(col, v)
	return nil
}

func (w *sheetWriter) track(col int, v interface{}) {
	if w.widths == nil {
		w.widths = map[int]float64{}
	}
	n := float64(utf8.RuneCountInString(cell.Stringify(v))) + 2
	if n > w.widths[col] {
		w.widths[col] = n
	}
}

func (w *sheetWriter) fitColumns() {
	for col, width := range w.widths {
		if width < minColumnWidth {
			width = minColumnWidth
		}
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			continue
		}
		_ = w.f.SetColWidth(w.sheet, name, name, width)
	}
}

// ==================== Charts ====================

func (e *Exporter) addChartSheets(f *excelize.File, section domain.Section) error {
	for _, chart := range section.VisibleCharts() {
		name := SheetName("Chart "+service.ValueLabel(section, chart), len(f.GetSheetList()))
		if idx, _ := f.GetSheetIndex(name); idx != -1 {
			name = SheetName(fmt.Sprintf("Chart %d", len(f.GetSheetList())), 0)
		}
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("add chart sheet: %w", err)
		}

		points := service.PrepareChartData(section, chart)
		header := []interface{}{service.LabelName(section, chart), service.ValueLabel(section, chart), "%"}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return fmt.Errorf("write chart header: %w", err)
		}
		for i, p := range points {
			ref, _ := excelize.CoordinatesToCellName(1, i+2)
			row := []interface{}{p.Name, p.Value, p.Percentage}
			if err := f.SetSheetRow(name, ref, &row); err != nil {
				return fmt.Errorf("write chart data: %w", err)
			}
		}

		if e.nativeCharts && len(points) > 0 {
			if err := f.AddChart(name, "E2", nativeChart(name, chart, len(points))); err != nil {
				return fmt.Errorf("draw chart: %w", err)
			}
		}
	}
	return nil
}

func nativeChart(sheet string, chart domain.Chart, n int) *excelize.Chart {
	typ := excelize.Col
	switch chart.Type() {
	case domain.ChartTypePie:
		typ = excelize.Pie
	case domain.ChartTypeLine:
		typ = excelize.Line
	}
	quoted := "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	c := &excelize.Chart{
		Type: typ,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$B$1", quoted),
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", quoted, n+1),
			Values:     fmt.Sprintf("%s!$B$2:$B$%d", quoted, n+1),
		}},
	}
	if chart.Title() != "" {
		c.Title = []excelize.RichTextRun{{Text: chart.Title()}}
	}
	return c
}

// SheetName makes s a valid, unique-enough sheet name: forbidden
// characters are replaced and the result fits the 31 character limit. An
// empty name becomes "Sheet<n+1>".
func SheetName(s string, n int) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
	s = strings.Trim(s, "'")
	if s == "" {
		s = fmt.Sprintf("Sheet%d", n+1)
	}
	if utf8.RuneCountInString(s) > maxSheetNameLen {
		s = string([]rune(s)[:maxSheetNameLen])
	}
	return s
}

// ==================== CSV ====================

// ToCSV writes sections one after another: title line, header, displayed
// rows, then an empty line.
func (e *Exporter) ToCSV(w io.Writer, sections ...domain.Section) error {
	cw := csv.NewWriter(w)
	for _, section := range sections {
		if section.HasTitle() {
			if err := cw.Write([]string{section.TitleText()}); err != nil {
				return err
			}
		}
		if err := cw.Write(csvRow(section.Header())); err != nil {
			return err
		}
		for _, r := range service.ApplyFiltersAndSort(section) {
			if err := cw.Write(csvRow(r)); err != nil {
				return err
			}
		}
		if err := cw.Write([]string{""}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(r domain.Row) []string {
	out := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		if t, ok := cell.DisplayValue(c).(time.Time); ok {
			out[i] = t.Format("2006-01-02")
			continue
		}
		out[i] = cell.String(c)
	}
	return out
}
