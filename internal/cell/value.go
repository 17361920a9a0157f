// Package cell models a single spreadsheet cell and the uniform read access
// every other component uses to get at its displayable value.
package cell

import (
	"time"
)

// Kind is the structural shape of a cell value.
type Kind int

const (
	KindEmpty Kind = iota
	KindPrimitive
	KindFormula
	KindRichText
	KindHyperlink
)

// String returns the lower camel name used on the wire.
func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindFormula:
		return "formula"
	case KindRichText:
		return "richText"
	case KindHyperlink:
		return "hyperlink"
	default:
		return "empty"
	}
}

// RichTextRun is one text fragment of a rich text value.
type RichTextRun struct {
	Text string `json:"text"`
}

// Value is a tagged variant holding exactly one of: nothing, a literal
// (string, float64, bool, time.Time), a formula with its cached result,
// rich text runs, or a hyperlink.
type Value struct {
	kind      Kind
	literal   interface{}
	formula   string
	result    interface{}
	runs      []RichTextRun
	text      string
	hyperlink string
}

// Empty returns the empty value.
func Empty() Value {
	return Value{kind: KindEmpty}
}

// Literal wraps a primitive. Integer types are normalized to float64 and a
// nil input yields the empty value.
func Literal(v interface{}) Value {
	v = normalize(v)
	if v == nil {
		return Empty()
	}
	return Value{kind: KindPrimitive, literal: v}
}

// Formula builds a formula value. A leading "=" is stripped from the text.
func Formula(formula string, result interface{}) Value {
	if len(formula) > 0 && formula[0] == '=' {
		formula = formula[1:]
	}
	return Value{kind: KindFormula, formula: formula, result: normalize(result)}
}

// RichText builds a rich text value from its runs.
func RichText(runs ...RichTextRun) Value {
	cp := make([]RichTextRun, len(runs))
	copy(cp, runs)
	return Value{kind: KindRichText, runs: cp}
}

// Hyperlink builds a hyperlink value.
func Hyperlink(text, target string) Value {
	return Value{kind: KindHyperlink, text: text, hyperlink: target}
}

// Kind reports the variant tag.
func (v Value) Kind() Kind {
	return v.kind
}

// Interface returns the raw payload of the variant: the literal, or the
// variant itself for structured values, or nil when empty.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindEmpty:
		return nil
	case KindPrimitive:
		return v.literal
	default:
		return v
	}
}

func normalize(v interface{}) interface{} {
	switch n := v.(type) {
	case nil:
		return nil
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case *time.Time:
		if n == nil {
			return nil
		}
		return *n
	default:
		return v
	}
}
