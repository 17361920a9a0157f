package domain

import (
	"math"
	"time"

	"github.com/locvowork/sheetlens/internal/cell"
	"github.com/locvowork/sheetlens/internal/locale"
)

// CardValueType classifies the value shown by a card.
type CardValueType string

const (
	CardValueNumber  CardValueType = "number"
	CardValueText    CardValueType = "text"
	CardValueDate    CardValueType = "date"
	CardValueBoolean CardValueType = "boolean"
	CardValueEmpty   CardValueType = "empty"
)

// CardRecapConfig is the plain record behind a CardRecap. Value and Label
// are copies taken when the card was created, not live cells.
type CardRecapConfig struct {
	RowIndex int              `json:"rowIndex"`
	ColIndex int              `json:"colIndex"`
	Value    *cell.Cell       `json:"value"`
	Label    *cell.Cell       `json:"label"`
	Unit     string           `json:"unit,omitempty"`
	Color    string           `json:"color,omitempty"`
	Icon     string           `json:"icon,omitempty"`
	Style    *CardStyleConfig `json:"style,omitempty"`
}

// CardRecapMetadata summarizes the card value.
type CardRecapMetadata struct {
	ValueType CardValueType `json:"valueType"`
	IsNumeric bool          `json:"isNumeric"`
	IsEmpty   bool          `json:"isEmpty"`
}

// CardRecap promotes one section cell to a formatted summary value.
type CardRecap struct {
	config CardRecapConfig
}

// NewCardRecap snapshots value and label.
func NewCardRecap(rowIndex, colIndex int, value, label *cell.Cell) CardRecap {
	return CardRecap{config: CardRecapConfig{
		RowIndex: rowIndex,
		ColIndex: colIndex,
		Value:    snapshot(value),
		Label:    snapshot(label),
	}}
}

func CardRecapFromConfig(cfg CardRecapConfig) CardRecap {
	return CardRecap{config: copyCardConfig(cfg)}
}

func (c CardRecap) RowIndex() int     { return c.config.RowIndex }
func (c CardRecap) ColIndex() int     { return c.config.ColIndex }
func (c CardRecap) Value() *cell.Cell { return snapshot(c.config.Value) }
func (c CardRecap) Label() *cell.Cell { return snapshot(c.config.Label) }
func (c CardRecap) Unit() string      { return c.config.Unit }
func (c CardRecap) Color() string     { return c.config.Color }
func (c CardRecap) Icon() string      { return c.config.Icon }

// LabelText is the label's plain text.
func (c CardRecap) LabelText() string { return cell.String(c.config.Label) }

// Style returns the card style, or the default when none was set.
func (c CardRecap) Style() CardStyleConfig {
	if c.config.Style == nil {
		return DefaultCardStyle
	}
	return *c.config.Style
}

// HasStyle reports whether a style was set explicitly.
func (c CardRecap) HasStyle() bool { return c.config.Style != nil }

func (c CardRecap) WithLabel(label string) CardRecap {
	cfg := c.ToConfig()
	cfg.Label = cell.New(labelRow(cfg.Label), labelCol(cfg.Label), cell.Literal(label))
	return CardRecap{config: cfg}
}

func (c CardRecap) WithUnit(unit string) CardRecap {
	cfg := c.ToConfig()
	cfg.Unit = unit
	return CardRecap{config: cfg}
}

func (c CardRecap) WithColor(color string) CardRecap {
	cfg := c.ToConfig()
	cfg.Color = color
	return CardRecap{config: cfg}
}

func (c CardRecap) WithIcon(icon string) CardRecap {
	cfg := c.ToConfig()
	cfg.Icon = icon
	return CardRecap{config: cfg}
}

// WithStyle overlays the non-empty fields of partial onto the current style.
func (c CardRecap) WithStyle(partial CardStyleConfig) CardRecap {
	cfg := c.ToConfig()
	merged := c.Style().Merge(partial)
	cfg.Style = &merged
	return CardRecap{config: cfg}
}

// WithFullStyle replaces the style.
func (c CardRecap) WithFullStyle(style CardStyleConfig) CardRecap {
	cfg := c.ToConfig()
	cfg.Style = &style
	return CardRecap{config: cfg}
}

func (c CardRecap) IsNumeric() bool { return cell.IsNumeric(c.config.Value) }
func (c CardRecap) IsEmpty() bool   { return cell.IsEmpty(c.config.Value) }

func (c CardRecap) ValueType() CardValueType {
	return ValueTypeOf(cell.DisplayValue(c.config.Value))
}

func (c CardRecap) Metadata() CardRecapMetadata {
	return CardRecapMetadata{
		ValueType: c.ValueType(),
		IsNumeric: c.IsNumeric(),
		IsEmpty:   c.IsEmpty(),
	}
}

// FormatValue renders the card value with the process-wide locale.
func (c CardRecap) FormatValue() string {
	return c.FormatValueIn(locale.Default())
}

// FormatValueIn renders the card value following the style's value format.
func (c CardRecap) FormatValueIn(l *locale.Locale) string {
	return FormatCardValue(cell.DisplayValue(c.config.Value), c.Style().ValueFormat, l)
}

// FormatCardValue renders v for a card: "-" when empty; numbers as integer,
// percentage, currency or plain number; dates and booleans localized.
func FormatCardValue(v interface{}, format CardValueFormatConfig, l *locale.Locale) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case string:
		if t == "" {
			return "-"
		}
		return t
	case float64:
		switch format.Type {
		case ValueFormatInteger:
			return l.Decimal(math.Round(t), 0)
		case ValueFormatPercentage:
			return l.Decimal(t, 1) + " %"
		case ValueFormatCurrency:
			unit := format.CustomUnit
			if unit == "" {
				unit = l.CurrencySymbol
			}
			return l.Decimal(t, 2) + " " + unit
		default:
			return l.Decimal(t, 2)
		}
	case time.Time:
		return l.Date(t)
	case bool:
		return l.Bool(t)
	default:
		return cell.Stringify(t)
	}
}

// ValueTypeOf classifies a display value.
func ValueTypeOf(v interface{}) CardValueType {
	switch t := v.(type) {
	case nil:
		return CardValueEmpty
	case string:
		if t == "" {
			return CardValueEmpty
		}
		return CardValueText
	case float64:
		return CardValueNumber
	case bool:
		return CardValueBoolean
	case time.Time:
		return CardValueDate
	default:
		return CardValueText
	}
}

func (c CardRecap) ToConfig() CardRecapConfig { return copyCardConfig(c.config) }

func copyCardConfig(cfg CardRecapConfig) CardRecapConfig {
	cfg.Value = snapshot(cfg.Value)
	cfg.Label = snapshot(cfg.Label)
	if cfg.Style != nil {
		s := *cfg.Style
		cfg.Style = &s
	}
	return cfg
}

func snapshot(c *cell.Cell) *cell.Cell {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func labelRow(c *cell.Cell) int {
	if c == nil {
		return 0
	}
	return c.Row
}

func labelCol(c *cell.Cell) int {
	if c == nil {
		return 0
	}
	return c.Col
}
