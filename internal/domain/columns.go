package domain

import (
	"fmt"

	"github.com/locvowork/sheetlens/internal/cell"
)

// ColumnType is the detected type of a section column.
type ColumnType string

const (
	ColumnEmpty   ColumnType = "empty"
	ColumnNumber  ColumnType = "number"
	ColumnText    ColumnType = "text"
	ColumnDate    ColumnType = "date"
	ColumnBoolean ColumnType = "boolean"
	ColumnMixed   ColumnType = "mixed"
)

// ColumnInfo describes one section column from its data cells.
type ColumnInfo struct {
	Index     int        `json:"index"`
	Label     string     `json:"label"`
	Type      ColumnType `json:"type"`
	IsNumeric bool       `json:"isNumeric"`
	IsEmpty   bool       `json:"isEmpty"`
}

// IsNumericColumn is true when the section has data rows and every cell of
// the column is empty or numeric by display value. A section without data
// rows is never numeric, even though an all-empty column of a populated
// section is.
func IsNumericColumn(data DataMatrix, col int) bool {
	if len(data) == 0 {
		return false
	}
	return everyCell(data, col, func(c *cell.Cell) bool {
		return cell.IsEmpty(c) || cell.IsNumeric(c)
	})
}

// FindLabelColumn returns the lowest column whose cells are all empty or
// strings, or 0 when no column qualifies.
func FindLabelColumn(header Row, data DataMatrix) int {
	for i := 0; i < header.Len(); i++ {
		if everyCell(data, i, func(c *cell.Cell) bool {
			return cell.IsEmpty(c) || cell.IsString(c)
		}) {
			return i
		}
	}
	return 0
}

// ColumnLabel is the header text of a column, or "Col N" when blank.
func ColumnLabel(header Row, col int) string {
	if s := cell.String(header.Cell(col)); s != "" {
		return s
	}
	return fmt.Sprintf("Col %d", col+1)
}

// DescribeColumn classifies a column of data.
func DescribeColumn(header Row, data DataMatrix, col int) ColumnInfo {
	isEmpty := everyCell(data, col, cell.IsEmpty)
	isNumeric := everyCell(data, col, func(c *cell.Cell) bool {
		return cell.IsEmpty(c) || cell.IsNumeric(c)
	})

	t := ColumnMixed
	switch {
	case isEmpty:
		t = ColumnEmpty
	case isNumeric:
		t = ColumnNumber
	case everyCell(data, col, func(c *cell.Cell) bool { return cell.IsEmpty(c) || cell.IsString(c) }):
		t = ColumnText
	case everyCell(data, col, func(c *cell.Cell) bool { return cell.IsEmpty(c) || cell.IsDate(c) }):
		t = ColumnDate
	case everyCell(data, col, func(c *cell.Cell) bool { return cell.IsEmpty(c) || cell.IsBoolean(c) }):
		t = ColumnBoolean
	}

	return ColumnInfo{
		Index:     col,
		Label:     ColumnLabel(header, col),
		Type:      t,
		IsNumeric: isNumeric,
		IsEmpty:   isEmpty,
	}
}

func everyCell(data DataMatrix, col int, pred func(*cell.Cell) bool) bool {
	for _, r := range data {
		if !pred(r.Cell(col)) {
			return false
		}
	}
	return true
}
