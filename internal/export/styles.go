package export

import (
	"strings"

	"github.com/xuri/excelize/v2"
)

type AlignmentTemplate struct {
	Horizontal string `yaml:"horizontal" json:"horizontal,omitempty"` // center, left, right
	Vertical   string `yaml:"vertical" json:"vertical,omitempty"`     // top, center, bottom
}

type FontTemplate struct {
	Bold  bool    `yaml:"bold" json:"bold,omitempty"`
	Size  float64 `yaml:"size" json:"size,omitempty"`
	Color string  `yaml:"color" json:"color,omitempty"` // Hex color
}

type FillTemplate struct {
	Color string `yaml:"color" json:"color,omitempty"` // Hex color
}

// StyleTemplate is a small, serializable subset of an excelize style.
type StyleTemplate struct {
	Font      *FontTemplate      `yaml:"font" json:"font,omitempty"`
	Fill      *FillTemplate      `yaml:"fill" json:"fill,omitempty"`
	Alignment *AlignmentTemplate `yaml:"alignment" json:"alignment,omitempty"`
	NumFmt    string             `yaml:"num_fmt" json:"numFmt,omitempty"`
}

// Styles groups the styles of each exported row kind.
type Styles struct {
	DocumentTitle *StyleTemplate `yaml:"document_title" json:"documentTitle,omitempty"`
	Title         *StyleTemplate `yaml:"title" json:"title,omitempty"`
	Header        *StyleTemplate `yaml:"header" json:"header,omitempty"`
	Data          *StyleTemplate `yaml:"data" json:"data,omitempty"`
	Date          *StyleTemplate `yaml:"date" json:"date,omitempty"`
}

var DefaultStyles = Styles{
	DocumentTitle: &StyleTemplate{
		Font: &FontTemplate{Bold: true, Size: 14},
	},
	Title: &StyleTemplate{
		Font:      &FontTemplate{Bold: true},
		Alignment: &AlignmentTemplate{Horizontal: "center", Vertical: "top"},
	},
	Header: &StyleTemplate{
		Font:      &FontTemplate{Bold: true, Color: "FFFFFF"},
		Fill:      &FillTemplate{Color: "2563EB"},
		Alignment: &AlignmentTemplate{Horizontal: "center", Vertical: "top"},
	},
	Date: &StyleTemplate{NumFmt: "dd/mm/yyyy"},
}

// Merge fills the nil entries of s from defaults.
func (s Styles) Merge(defaults Styles) Styles {
	s.DocumentTitle = resolveStyle(s.DocumentTitle, defaults.DocumentTitle)
	s.Title = resolveStyle(s.Title, defaults.Title)
	s.Header = resolveStyle(s.Header, defaults.Header)
	s.Data = resolveStyle(s.Data, defaults.Data)
	s.Date = resolveStyle(s.Date, defaults.Date)
	return s
}

// resolveStyle merges a defined style with its default, part by part.
func resolveStyle(base, defaultStyle *StyleTemplate) *StyleTemplate {
	if base == nil {
		if defaultStyle == nil {
			return nil
		}
		s := *defaultStyle
		return &s
	}
	s := *base
	if defaultStyle == nil {
		return &s
	}
	if s.Font == nil {
		s.Font = defaultStyle.Font
	}
	if s.Fill == nil {
		s.Fill = defaultStyle.Fill
	}
	if s.Alignment == nil {
		s.Alignment = defaultStyle.Alignment
	}
	if s.NumFmt == "" {
		s.NumFmt = defaultStyle.NumFmt
	}
	return &s
}

// styleCache creates each template once per file.
type styleCache struct {
	f   *excelize.File
	ids map[*StyleTemplate]int
}

func newStyleCache(f *excelize.File) *styleCache {
	return &styleCache{f: f, ids: map[*StyleTemplate]int{}}
}

func (c *styleCache) id(tmpl *StyleTemplate) (int, error) {
	if tmpl == nil {
		return 0, nil
	}
	if id, ok := c.ids[tmpl]; ok {
		return id, nil
	}
	id, err := createStyle(c.f, tmpl)
	if err != nil {
		return 0, err
	}
	c.ids[tmpl] = id
	return id, nil
}

func createStyle(f *excelize.File, tmpl *StyleTemplate) (int, error) {
	if tmpl == nil {
		return 0, nil
	}

	style := &excelize.Style{}
	if tmpl.Font != nil {
		style.Font = &excelize.Font{
			Bold:  tmpl.Font.Bold,
			Size:  tmpl.Font.Size,
			Color: strings.TrimPrefix(tmpl.Font.Color, "#"),
		}
	}
	if tmpl.Fill != nil {
		style.Fill = excelize.Fill{
			Type:    "pattern",
			Color:   []string{strings.TrimPrefix(tmpl.Fill.Color, "#")},
			Pattern: 1,
		}
	}
	if tmpl.Alignment != nil {
		style.Alignment = &excelize.Alignment{
			Horizontal: tmpl.Alignment.Horizontal,
			Vertical:   tmpl.Alignment.Vertical,
		}
	}
	if tmpl.NumFmt != "" {
		numFmt := tmpl.NumFmt
		style.CustomNumFmt = &numFmt
	}
	return f.NewStyle(style)
}
