package domain

import "github.com/locvowork/sheetlens/internal/cell"

// Row is one sheet row. Index is the 0-based sheet row number and is the
// identity of the row: filtering and sorting move Row values around but never
// change Index or reallocate the cells it points to.
type Row struct {
	Index int          `json:"index"`
	Cells []*cell.Cell `json:"cells"`
}

// Cell returns the cell at col, or nil when the row is shorter.
func (r Row) Cell(col int) *cell.Cell {
	if col < 0 || col >= len(r.Cells) {
		return nil
	}
	return r.Cells[col]
}

// Len is the number of cell positions in the row.
func (r Row) Len() int { return len(r.Cells) }

// IsBlank is true when every cell displays nothing.
func (r Row) IsBlank() bool {
	for _, c := range r.Cells {
		if !cell.IsEmpty(c) {
			return false
		}
	}
	return true
}

// FilledCount counts cells with a non-empty display value.
func (r Row) FilledCount() int {
	n := 0
	for _, c := range r.Cells {
		if !cell.IsEmpty(c) {
			n++
		}
	}
	return n
}

// DisplayValues returns the display value of every position.
func (r Row) DisplayValues() []interface{} {
	out := make([]interface{}, len(r.Cells))
	for i, c := range r.Cells {
		out[i] = cell.DisplayValue(c)
	}
	return out
}

// DataMatrix is an ordered list of rows.
type DataMatrix []Row

// Cells exposes the matrix as a plain grid, the shape the formula engine and
// exporters consume.
func (m DataMatrix) Cells() [][]*cell.Cell {
	out := make([][]*cell.Cell, len(m))
	for i, r := range m {
		out[i] = r.Cells
	}
	return out
}

// At returns the cell at a sheet position. For a raw sheet matrix row
// positions equal row indices.
func (m DataMatrix) At(row, col int) *cell.Cell {
	if row < 0 || row >= len(m) {
		return nil
	}
	return m[row].Cell(col)
}

// Width is the length of the longest row.
func (m DataMatrix) Width() int {
	w := 0
	for _, r := range m {
		if len(r.Cells) > w {
			w = len(r.Cells)
		}
	}
	return w
}

// NewMatrix builds a raw sheet matrix from a grid of cells.
func NewMatrix(grid [][]*cell.Cell) DataMatrix {
	m := make(DataMatrix, len(grid))
	for i, cells := range grid {
		m[i] = Row{Index: i, Cells: cells}
	}
	return m
}

// MatrixFromValues builds a raw sheet matrix from plain literals, placing a
// cell at every position. Handy for fixtures.
func MatrixFromValues(rows [][]interface{}) DataMatrix {
	grid := make([][]*cell.Cell, len(rows))
	for r, vals := range rows {
		grid[r] = make([]*cell.Cell, len(vals))
		for c, v := range vals {
			if cv, ok := v.(cell.Value); ok {
				grid[r][c] = cell.New(r, c, cv)
				continue
			}
			grid[r][c] = cell.New(r, c, cell.Literal(v))
		}
	}
	return NewMatrix(grid)
}
