package cell

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Cell is one spreadsheet cell. Row and Col are 0-based sheet coordinates.
// Editing a cell rewrites Value in place; it is the only mutation point of
// the document model.
type Cell struct {
	Row   int   `json:"row"`
	Col   int   `json:"col"`
	Value Value `json:"value"`
}

// New returns a cell at the given coordinates.
func New(row, col int, v Value) *Cell {
	return &Cell{Row: row, Col: col, Value: v}
}

// Address returns the A1-style reference of the cell, or "" if absent.
func Address(c *Cell) string {
	if c == nil {
		return ""
	}
	name, err := excelize.CoordinatesToCellName(c.Col+1, c.Row+1)
	if err != nil {
		return ""
	}
	return name
}

// DisplayValue returns what a reader would see: the formula result, the
// concatenated rich text, the hyperlink text (falling back to its URL) or
// the literal. Absent cells yield nil.
func DisplayValue(c *Cell) interface{} {
	if c == nil {
		return nil
	}
	v := c.Value
	switch v.kind {
	case KindFormula:
		return v.result
	case KindRichText:
		var sb strings.Builder
		for _, r := range v.runs {
			sb.WriteString(r.Text)
		}
		return sb.String()
	case KindHyperlink:
		if v.text != "" {
			return v.text
		}
		return v.hyperlink
	case KindPrimitive:
		return v.literal
	default:
		return nil
	}
}

// RawValue returns the untouched value, or the empty value if absent.
func RawValue(c *Cell) Value {
	if c == nil {
		return Empty()
	}
	return c.Value
}

func HasFormula(c *Cell) bool   { return c != nil && c.Value.kind == KindFormula }
func HasRichText(c *Cell) bool  { return c != nil && c.Value.kind == KindRichText }
func HasHyperlink(c *Cell) bool { return c != nil && c.Value.kind == KindHyperlink }

// FormulaText returns the formula text without the leading "=".
func FormulaText(c *Cell) (string, bool) {
	if !HasFormula(c) {
		return "", false
	}
	return c.Value.formula, true
}

// FormulaResult returns the cached result of a formula cell.
func FormulaResult(c *Cell) (interface{}, bool) {
	if !HasFormula(c) {
		return nil, false
	}
	return c.Value.result, true
}

// RichTextRuns returns a copy of the runs of a rich text cell.
func RichTextRuns(c *Cell) []RichTextRun {
	if !HasRichText(c) {
		return nil
	}
	out := make([]RichTextRun, len(c.Value.runs))
	copy(out, c.Value.runs)
	return out
}

// HyperlinkURL returns the target of a hyperlink cell.
func HyperlinkURL(c *Cell) (string, bool) {
	if !HasHyperlink(c) {
		return "", false
	}
	return c.Value.hyperlink, true
}

// HyperlinkText returns the label of a hyperlink cell.
func HyperlinkText(c *Cell) (string, bool) {
	if !HasHyperlink(c) {
		return "", false
	}
	return c.Value.text, true
}

// Type classifies the cell, testing empty, primitive, formula, rich text
// and hyperlink in that order.
func Type(c *Cell) Kind {
	if c == nil {
		return KindEmpty
	}
	return c.Value.kind
}

// IsEditable is true for primitive and formula cells only.
func IsEditable(c *Cell) bool {
	t := Type(c)
	return t == KindPrimitive || t == KindFormula
}

// IsEmpty is true when the display value is nil or the empty string.
func IsEmpty(c *Cell) bool {
	return isBlank(DisplayValue(c))
}

func IsNumeric(c *Cell) bool {
	_, ok := DisplayValue(c).(float64)
	return ok
}

func IsBoolean(c *Cell) bool {
	_, ok := DisplayValue(c).(bool)
	return ok
}

func IsDate(c *Cell) bool {
	_, ok := DisplayValue(c).(time.Time)
	return ok
}

// IsString is true when the display value is a string (possibly empty).
func IsString(c *Cell) bool {
	_, ok := DisplayValue(c).(string)
	return ok
}

// Equals compares two cells by display value, so two formulas with the same
// result are equal.
func Equals(a, b *Cell) bool {
	return sameValue(DisplayValue(a), DisplayValue(b))
}

// String casts the display value to a plain, locale-free string. It is the
// representation used for searching and chart labels.
func String(c *Cell) string {
	return Stringify(DisplayValue(c))
}

// Stringify casts an arbitrary display value to a plain string.
func Stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

// Number casts the display value to a float64. Strings are parsed, booleans
// map to 1/0, dates to epoch milliseconds; anything else is 0.
func Number(c *Cell) float64 {
	return ToNumber(DisplayValue(c))
}

// ToNumber is the numeric cast used by Number.
func ToNumber(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		if t != t {
			return 0
		}
		return t
	case bool:
		if t {
			return 1
		}
		return 0
	case time.Time:
		return float64(t.UnixMilli())
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != f {
			return 0
		}
		return f
	default:
		return 0
	}
}

func isBlank(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func sameValue(a, b interface{}) bool {
	ta, aok := a.(time.Time)
	tb, bok := b.(time.Time)
	if aok || bok {
		return aok && bok && ta.Equal(tb)
	}
	return a == b
}
