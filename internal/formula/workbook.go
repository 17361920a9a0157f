package formula

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/locvowork/sheetlens/internal/cell"
	"github.com/locvowork/sheetlens/internal/logger"
)

// excelEpoch is day zero of spreadsheet serial dates.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// workbook evaluates formulas with an in-memory excelize file and tracks
// dependencies itself.
type workbook struct {
	ctx    context.Context
	file   *excelize.File
	names  []string
	ids    map[string]int
	graph  *depGraph
	values map[cellKey]interface{}
}

// BuildWorkbook is the default Builder.
func BuildWorkbook(ctx context.Context, sheetNames []string, sheets map[string][][]*cell.Cell) (Backend, error) {
	if len(sheetNames) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	wb := &workbook{
		ctx:    ctx,
		file:   excelize.NewFile(),
		names:  append([]string(nil), sheetNames...),
		ids:    make(map[string]int, len(sheetNames)),
		graph:  newDepGraph(),
		values: make(map[cellKey]interface{}),
	}

	for i, name := range sheetNames {
		var err error
		if i == 0 {
			err = wb.file.SetSheetName(wb.file.GetSheetName(0), name)
		} else {
			_, err = wb.file.NewSheet(name)
		}
		if err != nil {
			_ = wb.file.Close()
			return nil, fmt.Errorf("create sheet %q: %w", name, err)
		}
		wb.ids[name] = i
	}

	formulas := make(map[cellKey]string)
	for _, name := range sheetNames {
		for r, row := range sheets[name] {
			for c, cl := range row {
				if cl == nil || cell.Type(cl) == cell.KindEmpty {
					continue
				}
				key := cellKey{sheet: name, row: r, col: c}
				if f, ok := cell.FormulaText(cl); ok {
					if err := wb.setFormula(key, f); err != nil {
						logger.WarnLog(ctx, "formula engine skipped %s: %v", describe(key), err)
						continue
					}
					formulas[key] = f
					continue
				}
				v := engineInput(cl)
				if err := wb.setLiteral(key, v); err != nil {
					logger.WarnLog(ctx, "formula engine skipped %s: %v", describe(key), err)
					continue
				}
				wb.values[key] = v
			}
		}
	}

	for key, f := range formulas {
		wb.graph.set(key, extractRefs(f, key.sheet))
	}
	for key := range formulas {
		wb.values[key] = wb.evaluate(key)
	}
	return wb, nil
}

func (w *workbook) SheetID(name string) (int, bool) {
	id, ok := w.ids[name]
	return id, ok
}

func (w *workbook) Close() error { return w.file.Close() }

// SetCellContents writes value into the cell at addr and recomputes every
// dependent. The edited cell is always reported; dependents only when their
// value changed.
func (w *workbook) SetCellContents(addr Address, value interface{}) ([]Change, error) {
	if addr.Sheet < 0 || addr.Sheet >= len(w.names) {
		return nil, fmt.Errorf("unknown sheet id %d", addr.Sheet)
	}
	if addr.Row < 0 || addr.Col < 0 {
		return nil, fmt.Errorf("invalid cell R%dC%d", addr.Row, addr.Col)
	}
	key := cellKey{sheet: w.names[addr.Sheet], row: addr.Row, col: addr.Col}

	if s, ok := value.(string); ok && strings.HasPrefix(s, "=") && len(s) > 1 {
		f := s[1:]
		if err := w.setFormula(key, f); err != nil {
			return nil, err
		}
		w.graph.set(key, extractRefs(f, key.sheet))
		w.values[key] = w.evaluate(key)
	} else {
		lit := ParseLiteral(value)
		if _, wasFormula := w.graph.precedents[key]; wasFormula {
			w.graph.clear(key)
		}
		if err := w.file.SetCellFormula(key.sheet, axis(key), ""); err != nil {
			return nil, err
		}
		if err := w.setLiteral(key, lit); err != nil {
			return nil, err
		}
		w.values[key] = lit
	}

	changes := []Change{w.change(key)}
	for _, dep := range w.graph.affected(key) {
		next := w.evaluate(dep)
		prev, known := w.values[dep]
		w.values[dep] = next
		if known && sameResult(prev, next) {
			continue
		}
		changes = append(changes, w.change(dep))
	}
	return changes, nil
}

func (w *workbook) change(key cellKey) Change {
	return Change{
		Address:  &Address{Sheet: w.ids[key.sheet], SheetName: key.sheet, Row: key.row, Col: key.col},
		NewValue: w.values[key],
	}
}

func (w *workbook) setFormula(key cellKey, f string) error {
	return w.file.SetCellFormula(key.sheet, axis(key), strings.TrimPrefix(f, "="))
}

func (w *workbook) setLiteral(key cellKey, v interface{}) error {
	if v == nil {
		return w.file.SetCellValue(key.sheet, axis(key), nil)
	}
	return w.file.SetCellValue(key.sheet, axis(key), v)
}

// evaluate computes a formula cell; evaluation errors become their error
// literal (for example "#DIV/0!").
func (w *workbook) evaluate(key cellKey) interface{} {
	res, err := w.file.CalcCellValue(key.sheet, axis(key), excelize.Options{RawCellValue: true})
	if err != nil {
		if strings.HasPrefix(res, "#") {
			return res
		}
		if strings.HasPrefix(err.Error(), "#") {
			return err.Error()
		}
		logger.DebugLog(w.ctx, "formula engine could not evaluate %s: %v", describe(key), err)
		return "#VALUE!"
	}
	return ParseLiteral(res)
}

// ParseLiteral types a scalar the way a spreadsheet does on entry: numeric
// text becomes a number, TRUE/FALSE a boolean, empty text nothing.
func ParseLiteral(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		switch strings.ToUpper(s) {
		case "TRUE":
			return true
		case "FALSE":
			return false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
		return t
	case time.Time:
		return SerialDate(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}

// SerialDate converts a calendar time to a spreadsheet serial number.
func SerialDate(t time.Time) float64 {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return wall.Sub(excelEpoch).Hours() / 24
}

// engineInput reduces a non-formula cell to a scalar the engine accepts.
func engineInput(c *cell.Cell) interface{} {
	switch cell.Type(c) {
	case cell.KindRichText, cell.KindHyperlink:
		return cell.String(c)
	}
	switch v := cell.DisplayValue(c).(type) {
	case time.Time:
		return SerialDate(v)
	default:
		return v
	}
}

func sameResult(a, b interface{}) bool {
	fa, aok := a.(float64)
	fb, bok := b.(float64)
	if aok && bok {
		return fa == fb || math.Abs(fa-fb) < 1e-12
	}
	return a == b
}

func axis(key cellKey) string {
	name, _ := excelize.CoordinatesToCellName(key.col+1, key.row+1)
	return name
}

func describe(key cellKey) string {
	return key.sheet + "!" + axis(key)
}
