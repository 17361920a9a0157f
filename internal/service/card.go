package service

import (
	"github.com/locvowork/sheetlens/internal/domain"
	"github.com/locvowork/sheetlens/internal/locale"
)

// CreateCardRecap promotes data[rowIndex][colIndex] to a card labeled by
// the column header. A section without data rows is its own summary row:
// the value is header[colIndex] and the label is header[0]. Out of range
// coordinates report false.
func CreateCardRecap(section domain.Section, rowIndex, colIndex int) (domain.CardRecap, bool) {
	if colIndex < 0 {
		return domain.CardRecap{}, false
	}
	header := section.Header()
	data := section.Data()

	if len(data) == 0 {
		if colIndex >= header.Len() {
			return domain.CardRecap{}, false
		}
		return domain.NewCardRecap(rowIndex, colIndex, header.Cell(colIndex), header.Cell(0)), true
	}
	if rowIndex < 0 || rowIndex >= len(data) || colIndex >= data[rowIndex].Len() {
		return domain.CardRecap{}, false
	}
	return domain.NewCardRecap(rowIndex, colIndex, data[rowIndex].Cell(colIndex), header.Cell(colIndex)), true
}

// SetCardRecap creates the card and installs it on the section, applying
// style as a partial override when given.
func SetCardRecap(section domain.Section, rowIndex, colIndex int, style *domain.CardStyleConfig) (domain.Section, bool) {
	card, ok := CreateCardRecap(section, rowIndex, colIndex)
	if !ok {
		return section, false
	}
	if style != nil {
		card = card.WithStyle(*style)
	}
	return section.SetCardRecap(card), true
}

// UpdateCardStyle merges a partial style into the section's card.
func UpdateCardStyle(section domain.Section, partial domain.CardStyleConfig) domain.Section {
	return section.UpdateCardRecap(func(c domain.CardRecap) domain.CardRecap { return c.WithStyle(partial) })
}

// SetCardStyle replaces the card style.
func SetCardStyle(section domain.Section, style domain.CardStyleConfig) domain.Section {
	return section.UpdateCardRecap(func(c domain.CardRecap) domain.CardRecap { return c.WithFullStyle(style) })
}

func FormatCardValue(card domain.CardRecap, l *locale.Locale) string {
	if l == nil {
		return card.FormatValue()
	}
	return card.FormatValueIn(l)
}
