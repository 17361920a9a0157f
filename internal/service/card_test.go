package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/sheetlens/internal/cell"
	"github.com/locvowork/sheetlens/internal/domain"
	"github.com/locvowork/sheetlens/internal/locale"
)

func TestCreateCardRecap(t *testing.T) {
	s := salesSection()
	card, ok := CreateCardRecap(s, 1, 1)
	require.True(t, ok)
	assert.Equal(t, 200.0, cell.DisplayValue(card.Value()))
	assert.Equal(t, "Sales", card.LabelText())
	assert.Equal(t, 1, card.RowIndex())
	assert.Equal(t, 1, card.ColIndex())

	for _, pos := range [][2]int{{-1, 0}, {3, 0}, {0, 2}, {0, -1}} {
		_, ok := CreateCardRecap(s, pos[0], pos[1])
		assert.False(t, ok, "position %v", pos)
	}
}

func TestCreateCardRecapHeaderOnly(t *testing.T) {
	raw := domain.MatrixFromValues([][]interface{}{
		{"Doc"},
		{"Grand total", 4200},
	})
	s := domain.NewSection(nil, raw[1], nil)

	card, ok := CreateCardRecap(s, 0, 1)
	require.True(t, ok)
	assert.Equal(t, 4200.0, cell.DisplayValue(card.Value()))
	assert.Equal(t, "Grand total", card.LabelText())

	_, ok = CreateCardRecap(s, 0, 2)
	assert.False(t, ok)
}

func TestCardRecapIsSnapshot(t *testing.T) {
	s := salesSection()
	card, ok := CreateCardRecap(s, 0, 1)
	require.True(t, ok)

	s.Data()[0].Cell(1).Value = cell.Literal(999)
	assert.Equal(t, 100.0, cell.DisplayValue(card.Value()))
}

func TestSetCardRecapAndStyles(t *testing.T) {
	s := salesSection()
	style := domain.CardStyleConfig{ValueFormat: domain.CardValueFormatConfig{Type: domain.ValueFormatCurrency, CustomUnit: "$"}}

	withCard, ok := SetCardRecap(s, 2, 1, &style)
	require.True(t, ok)
	card, ok := withCard.CardRecap()
	require.True(t, ok)
	assert.Equal(t, "150 $", locale.NormalizeSpaces(FormatCardValue(card, locale.New("fr-FR"))))

	_, ok = SetCardRecap(s, 10, 1, nil)
	assert.False(t, ok)

	updated := UpdateCardStyle(withCard, domain.CardStyleConfig{ColorTheme: "amber"})
	card, _ = updated.CardRecap()
	assert.Equal(t, "amber", card.Style().ColorTheme)
	assert.Equal(t, domain.ValueFormatCurrency, card.Style().ValueFormat.Type)

	replaced := SetCardStyle(updated, domain.CardStyleConfig{ColorTheme: "slate"})
	card, _ = replaced.CardRecap()
	assert.Equal(t, "slate", card.Style().ColorTheme)
	assert.Equal(t, domain.ValueFormat(""), card.Style().ValueFormat.Type)

	assert.Equal(t, s.ToConfig(), UpdateCardStyle(s, domain.CardStyleConfig{ColorTheme: "x"}).ToConfig())
}

func TestFormatCardValueCurrencyGrouping(t *testing.T) {
	raw := domain.MatrixFromValues([][]interface{}{
		{"Doc"},
		{"Revenue"},
		{1234.56},
	})
	s := domain.NewSection(nil, raw[1], raw[2:])
	style := domain.CardStyleConfig{ValueFormat: domain.CardValueFormatConfig{Type: domain.ValueFormatCurrency, CustomUnit: "$"}}
	withCard, ok := SetCardRecap(s, 0, 0, &style)
	require.True(t, ok)
	card, _ := withCard.CardRecap()
	assert.Equal(t, "1 234,56 $", locale.NormalizeSpaces(FormatCardValue(card, locale.New("fr-FR"))))
}
