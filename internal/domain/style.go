package domain

// Color themes shared by cards and sections.
var ColorThemes = []string{
	"slate", "neutral", "red", "orange", "amber", "yellow",
	"lime", "green", "emerald", "teal", "cyan", "sky",
	"blue", "indigo", "violet", "purple", "fuchsia", "pink", "rose",
}

// ValueFormat selects how a card renders a numeric value.
type ValueFormat string

const (
	ValueFormatNumber     ValueFormat = "number"
	ValueFormatInteger    ValueFormat = "integer"
	ValueFormatPercentage ValueFormat = "percentage"
	ValueFormatCurrency   ValueFormat = "currency"
)

type CardTypography struct {
	TitleSize string `json:"titleSize" yaml:"title_size"`
	ValueSize string `json:"valueSize" yaml:"value_size"`
}

type CardValueFormatConfig struct {
	Type       ValueFormat `json:"type" yaml:"type"`
	CustomUnit string      `json:"customUnit,omitempty" yaml:"custom_unit"`
}

// CardStyleConfig is the display configuration of a recap card.
type CardStyleConfig struct {
	ColorTheme   string                `json:"colorTheme" yaml:"color_theme"`
	Size         string                `json:"size" yaml:"size"`
	IconPosition string                `json:"iconPosition" yaml:"icon_position"`
	Typography   CardTypography        `json:"typography" yaml:"typography"`
	ValueFormat  CardValueFormatConfig `json:"valueFormat" yaml:"value_format"`
}

// DefaultCardStyle is used for cards created without an explicit style.
var DefaultCardStyle = CardStyleConfig{
	ColorTheme:   "blue",
	Size:         "medium",
	IconPosition: "left",
	Typography: CardTypography{
		TitleSize: "medium",
		ValueSize: "large",
	},
	ValueFormat: CardValueFormatConfig{
		Type: ValueFormatNumber,
	},
}

// Merge overlays the non-empty fields of patch onto s.
func (s CardStyleConfig) Merge(patch CardStyleConfig) CardStyleConfig {
	if patch.ColorTheme != "" {
		s.ColorTheme = patch.ColorTheme
	}
	if patch.Size != "" {
		s.Size = patch.Size
	}
	if patch.IconPosition != "" {
		s.IconPosition = patch.IconPosition
	}
	if patch.Typography.TitleSize != "" {
		s.Typography.TitleSize = patch.Typography.TitleSize
	}
	if patch.Typography.ValueSize != "" {
		s.Typography.ValueSize = patch.Typography.ValueSize
	}
	if patch.ValueFormat.Type != "" {
		s.ValueFormat.Type = patch.ValueFormat.Type
	}
	if patch.ValueFormat.CustomUnit != "" {
		s.ValueFormat.CustomUnit = patch.ValueFormat.CustomUnit
	}
	return s
}

type SectionTableStyle struct {
	ShowBorders     bool `json:"showBorders" yaml:"show_borders"`
	RoundedBorders  bool `json:"roundedBorders" yaml:"rounded_borders"`
	AlternatingRows bool `json:"alternatingRows" yaml:"alternating_rows"`
}

// SectionStyleConfig is the display configuration of a section.
type SectionStyleConfig struct {
	ColorTheme    string            `json:"colorTheme" yaml:"color_theme"`
	TitleSize     string            `json:"titleSize" yaml:"title_size"`
	TableStyle    SectionTableStyle `json:"tableStyle" yaml:"table_style"`
	ChartPosition string            `json:"chartPosition" yaml:"chart_position"`
}

var DefaultSectionStyle = SectionStyleConfig{
	ColorTheme: "blue",
	TitleSize:  "xlarge",
	TableStyle: SectionTableStyle{
		ShowBorders:     true,
		RoundedBorders:  true,
		AlternatingRows: true,
	},
	ChartPosition: "right",
}

// SectionStylePatch is a partial section style; nil and empty fields are
// left untouched.
type SectionStylePatch struct {
	ColorTheme      string `json:"colorTheme,omitempty"`
	TitleSize       string `json:"titleSize,omitempty"`
	ShowBorders     *bool  `json:"showBorders,omitempty"`
	RoundedBorders  *bool  `json:"roundedBorders,omitempty"`
	AlternatingRows *bool  `json:"alternatingRows,omitempty"`
	ChartPosition   string `json:"chartPosition,omitempty"`
}

// Apply overlays p onto s.
func (p SectionStylePatch) Apply(s SectionStyleConfig) SectionStyleConfig {
	if p.ColorTheme != "" {
		s.ColorTheme = p.ColorTheme
	}
	if p.TitleSize != "" {
		s.TitleSize = p.TitleSize
	}
	if p.ShowBorders != nil {
		s.TableStyle.ShowBorders = *p.ShowBorders
	}
	if p.RoundedBorders != nil {
		s.TableStyle.RoundedBorders = *p.RoundedBorders
	}
	if p.AlternatingRows != nil {
		s.TableStyle.AlternatingRows = *p.AlternatingRows
	}
	if p.ChartPosition != "" {
		s.ChartPosition = p.ChartPosition
	}
	return s
}
