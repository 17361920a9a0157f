package cell

import (
	"time"

	"github.com/locvowork/sheetlens/internal/locale"
)

// FormatAsString renders the display value for plain text contexts using the
// process-wide locale.
func FormatAsString(c *Cell) string {
	return FormatAsStringIn(c, locale.Default())
}

// FormatAsStringIn renders the display value with an explicit locale: grouped
// numbers, yes/no tokens for booleans, calendar dates, "" when empty.
func FormatAsStringIn(c *Cell, l *locale.Locale) string {
	if IsEmpty(c) {
		return ""
	}
	switch v := DisplayValue(c).(type) {
	case string:
		return v
	case float64:
		return l.Number(v)
	case bool:
		return l.Bool(v)
	case time.Time:
		return l.Date(v)
	default:
		return Stringify(v)
	}
}
