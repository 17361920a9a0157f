package cell

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type formulaJSON struct {
	Formula string          `json:"formula"`
	Result  json.RawMessage `json:"result"`
}

type richTextJSON struct {
	RichText []RichTextRun `json:"richText"`
}

type hyperlinkJSON struct {
	Text      string `json:"text"`
	Hyperlink string `json:"hyperlink"`
}

type dateJSON struct {
	Date time.Time `json:"date"`
}

// MarshalJSON encodes the variant in the same shapes a spreadsheet reader
// produces: a bare literal, {formula,result}, {richText}, {text,hyperlink}.
// Dates are wrapped as {date} so they survive the round trip.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindEmpty:
		return []byte("null"), nil
	case KindPrimitive:
		return marshalLiteral(v.literal)
	case KindFormula:
		res, err := marshalLiteral(v.result)
		if err != nil {
			return nil, err
		}
		return json.Marshal(formulaJSON{Formula: v.formula, Result: res})
	case KindRichText:
		runs := v.runs
		if runs == nil {
			runs = []RichTextRun{}
		}
		return json.Marshal(richTextJSON{RichText: runs})
	case KindHyperlink:
		return json.Marshal(hyperlinkJSON{Text: v.text, Hyperlink: v.hyperlink})
	}
	return nil, fmt.Errorf("cell: unknown value kind %d", v.kind)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Empty()
		return nil
	}
	if data[0] != '{' {
		lit, err := unmarshalLiteral(data)
		if err != nil {
			return err
		}
		*v = Literal(lit)
		return nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch {
	case probe["formula"] != nil:
		var f formulaJSON
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		res, err := unmarshalLiteral(f.Result)
		if err != nil {
			return err
		}
		*v = Formula(f.Formula, res)
	case probe["richText"] != nil:
		var r richTextJSON
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		*v = RichText(r.RichText...)
	case probe["hyperlink"] != nil:
		var h hyperlinkJSON
		if err := json.Unmarshal(data, &h); err != nil {
			return err
		}
		*v = Hyperlink(h.Text, h.Hyperlink)
	case probe["date"] != nil:
		var d dateJSON
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		*v = Literal(d.Date)
	default:
		return fmt.Errorf("cell: unrecognized value object %s", string(data))
	}
	return nil
}

func marshalLiteral(lit interface{}) ([]byte, error) {
	if t, ok := lit.(time.Time); ok {
		return json.Marshal(dateJSON{Date: t})
	}
	return json.Marshal(lit)
}

func unmarshalLiteral(data []byte) (interface{}, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	if data[0] == '{' {
		var d dateJSON
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return d.Date, nil
	}
	var lit interface{}
	if err := json.Unmarshal(data, &lit); err != nil {
		return nil, err
	}
	return lit, nil
}
