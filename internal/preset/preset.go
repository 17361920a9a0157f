// Package preset loads display defaults from a YAML file.
package preset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/locvowork/sheetlens/internal/domain"
	"github.com/locvowork/sheetlens/internal/export"
	"github.com/locvowork/sheetlens/internal/locale"
)

// Preset is the file layout:
//
//	locale: fr-FR
//	currency_symbol: "€"
//	card_style:
//	  color_theme: emerald
//	section_style:
//	  chart_position: bottom
//	export:
//	  header:
//	    fill: {color: "0F766E"}
//
// Style fields left out keep the built-in default.
type Preset struct {
	Locale         string                    `yaml:"locale"`
	CurrencySymbol string                    `yaml:"currency_symbol"`
	CardStyle      domain.CardStyleConfig    `yaml:"card_style"`
	SectionStyle   domain.SectionStyleConfig `yaml:"section_style"`
	Export         export.Styles             `yaml:"export"`
}

// Default is the preset used when no file is configured.
func Default() Preset {
	return Preset{
		Locale:       "fr-FR",
		CardStyle:    domain.DefaultCardStyle,
		SectionStyle: domain.DefaultSectionStyle,
		Export:       export.DefaultStyles,
	}
}

// Load reads path over the defaults. An empty path or a missing file yields
// Default().
func Load(path string) (Preset, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Preset{}, fmt.Errorf("read preset: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML preset over the defaults.
func Parse(data []byte) (Preset, error) {
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Preset{}, fmt.Errorf("decode preset: %w", err)
	}
	return p.withDefaults(), nil
}

func (p Preset) withDefaults() Preset {
	d := Default()
	if p.Locale == "" {
		p.Locale = d.Locale
	}
	p.CardStyle = d.CardStyle.Merge(p.CardStyle)
	p.SectionStyle = sectionDefaults(p.SectionStyle, d.SectionStyle)
	p.Export = p.Export.Merge(d.Export)
	return p
}

// sectionDefaults fills the empty fields of s from d. A table style with
// every flag off counts as unset.
func sectionDefaults(s, d domain.SectionStyleConfig) domain.SectionStyleConfig {
	if s.ColorTheme == "" {
		s.ColorTheme = d.ColorTheme
	}
	if s.TitleSize == "" {
		s.TitleSize = d.TitleSize
	}
	if s.ChartPosition == "" {
		s.ChartPosition = d.ChartPosition
	}
	if s.TableStyle == (domain.SectionTableStyle{}) {
		s.TableStyle = d.TableStyle
	}
	return s
}

// LocaleFormatter builds the preset locale. An empty currency symbol keeps
// the symbol of the language.
func (p Preset) LocaleFormatter() *locale.Locale {
	return locale.New(p.Locale).WithCurrency(p.CurrencySymbol)
}
