// Package locale renders numbers, dates and booleans the way a given
// language expects them (grouping, decimal separator, yes/no tokens).
package locale

import (
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Locale bundles the printer and the tokens for one language.
type Locale struct {
	Tag            language.Tag
	Yes            string
	No             string
	DateLayout     string
	CurrencySymbol string

	printer *message.Printer
}

type tokens struct {
	yes, no, dateLayout, currency string
}

var known = map[language.Base]tokens{
	mustBase("fr"): {"Oui", "Non", "02/01/2006", "€"},
	mustBase("en"): {"Yes", "No", "1/2/2006", "$"},
	mustBase("de"): {"Ja", "Nein", "2.1.2006", "€"},
	mustBase("es"): {"Sí", "No", "2/1/2006", "€"},
}

func mustBase(s string) language.Base {
	b, err := language.ParseBase(s)
	if err != nil {
		panic(err)
	}
	return b
}

// New builds a Locale for a BCP 47 tag such as "fr-FR". Unknown or invalid
// tags fall back to French.
func New(tag string) *Locale {
	t, err := language.Parse(tag)
	if err != nil {
		t = language.French
	}
	base, _ := t.Base()
	tk, ok := known[base]
	if !ok {
		t = language.French
		tk = known[mustBase("fr")]
	}
	return &Locale{
		Tag:            t,
		Yes:            tk.yes,
		No:             tk.no,
		DateLayout:     tk.dateLayout,
		CurrencySymbol: tk.currency,
		printer:        message.NewPrinter(t),
	}
}

// WithCurrency returns a copy using a different default currency symbol.
func (l *Locale) WithCurrency(symbol string) *Locale {
	cp := *l
	if symbol != "" {
		cp.CurrencySymbol = symbol
	}
	return &cp
}

// Decimal formats f with grouping and at most maxFraction fractional digits.
func (l *Locale) Decimal(f float64, maxFraction int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return l.printer.Sprint(f)
	}
	out := l.printer.Sprint(number.Decimal(f, number.MaxFractionDigits(maxFraction)))
	// "-0" after rounding reads oddly
	if strings.TrimLeft(out, "-0") == "" && strings.HasPrefix(out, "-") {
		return out[1:]
	}
	return out
}

// Number mirrors a default locale number rendering: grouped, up to three
// fractional digits.
func (l *Locale) Number(f float64) string {
	return l.Decimal(f, 3)
}

// Bool renders a localized yes/no token.
func (l *Locale) Bool(b bool) string {
	if b {
		return l.Yes
	}
	return l.No
}

// Date renders a localized calendar date.
func (l *Locale) Date(t time.Time) string {
	return t.Format(l.DateLayout)
}

var (
	defaultMu     sync.RWMutex
	defaultLocale = New("fr-FR")
)

// Default returns the process-wide locale.
func Default() *Locale {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLocale
}

// SetDefault replaces the process-wide locale.
func SetDefault(l *Locale) {
	if l == nil {
		return
	}
	defaultMu.Lock()
	defaultLocale = l
	defaultMu.Unlock()
}

// NormalizeSpaces replaces the narrow and regular no-break spaces some
// locales use as group separators with a plain space.
func NormalizeSpaces(s string) string {
	return strings.NewReplacer("\u202f", " ", "\u00a0", " ").Replace(s)
}
