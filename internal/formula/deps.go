package formula

import (
	"sort"
	"strings"

	"github.com/xuri/efp"
	"github.com/xuri/excelize/v2"
)

// cellKey identifies a cell across sheets.
type cellKey struct {
	sheet string
	row   int // 0-based
	col   int // 0-based
}

// area is an inclusive rectangle of cells on one sheet, 0-based.
type area struct {
	sheet  string
	r1, c1 int
	r2, c2 int
}

func (a area) single() bool { return a.r1 == a.r2 && a.c1 == a.c2 }

func (a area) contains(k cellKey) bool {
	return k.sheet == a.sheet && k.row >= a.r1 && k.row <= a.r2 && k.col >= a.c1 && k.col <= a.c2
}

// depGraph maps formula cells to the areas they read and back. Single-cell
// references are indexed by cell; ranges are kept whole so that cells outside
// the current used area still reach their readers.
type depGraph struct {
	precedents map[cellKey][]area
	dependents map[cellKey]map[cellKey]struct{}
	ranged     map[cellKey][]area
}

func newDepGraph() *depGraph {
	return &depGraph{
		precedents: make(map[cellKey][]area),
		dependents: make(map[cellKey]map[cellKey]struct{}),
		ranged:     make(map[cellKey][]area),
	}
}

// set replaces the precedents of a formula cell.
func (g *depGraph) set(target cellKey, refs []area) {
	g.clear(target)
	if len(refs) == 0 {
		return
	}
	g.precedents[target] = refs
	for _, ref := range refs {
		if !ref.single() {
			g.ranged[target] = append(g.ranged[target], ref)
			continue
		}
		k := cellKey{sheet: ref.sheet, row: ref.r1, col: ref.c1}
		m, ok := g.dependents[k]
		if !ok {
			m = make(map[cellKey]struct{})
			g.dependents[k] = m
		}
		m[target] = struct{}{}
	}
}

// clear drops target as a formula cell.
func (g *depGraph) clear(target cellKey) {
	for _, ref := range g.precedents[target] {
		if !ref.single() {
			continue
		}
		k := cellKey{sheet: ref.sheet, row: ref.r1, col: ref.c1}
		if m, ok := g.dependents[k]; ok {
			delete(m, target)
			if len(m) == 0 {
				delete(g.dependents, k)
			}
		}
	}
	delete(g.precedents, target)
	delete(g.ranged, target)
}

// readers returns the formula cells that read k directly.
func (g *depGraph) readers(k cellKey) []cellKey {
	var out []cellKey
	for dep := range g.dependents[k] {
		out = append(out, dep)
	}
	for target, areas := range g.ranged {
		for _, a := range areas {
			if a.contains(k) {
				out = append(out, target)
				break
			}
		}
	}
	return out
}

// affected returns every cell that transitively reads from start, breadth
// first, without start itself. Cycles are visited once.
func (g *depGraph) affected(start cellKey) []cellKey {
	seen := map[cellKey]bool{start: true}
	queue := []cellKey{start}
	var out []cellKey
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, dep := range g.readers(cur) {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			out = append(out, dep)
			queue = append(queue, dep)
		}
	}
	sortKeys(out)
	return out
}

// extractRefs tokenizes a formula and resolves every range operand to the
// area it covers. Whole-column and whole-row ranges span the full sheet;
// names and malformed references are ignored.
func extractRefs(formula, currentSheet string) []area {
	ps := efp.ExcelParser()
	tokens := ps.Parse(formula)
	seen := make(map[area]bool)
	var refs []area
	add := func(a area) {
		if !seen[a] {
			seen[a] = true
			refs = append(refs, a)
		}
	}

	for _, token := range tokens {
		if token.TType != efp.TokenTypeOperand || token.TSubType != efp.TokenSubTypeRange {
			continue
		}
		sheet, ref := splitSheet(token.TValue, currentSheet)
		ref = strings.ReplaceAll(ref, "$", "")
		parts := strings.Split(ref, ":")
		switch len(parts) {
		case 1:
			if k, ok := parseCellRef(sheet, parts[0]); ok {
				add(area{sheet: sheet, r1: k.row, c1: k.col, r2: k.row, c2: k.col})
			}
		case 2:
			if a, ok := parseArea(sheet, parts[0], parts[1]); ok {
				add(a)
			}
		}
	}
	return refs
}

func splitSheet(ref, currentSheet string) (string, string) {
	idx := strings.LastIndex(ref, "!")
	if idx < 0 {
		return currentSheet, ref
	}
	sheet := ref[:idx]
	if strings.HasPrefix(sheet, "'") && strings.HasSuffix(sheet, "'") && len(sheet) >= 2 {
		sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
	}
	return sheet, ref[idx+1:]
}

func parseCellRef(sheet, ref string) (cellKey, bool) {
	col, row, err := excelize.CellNameToCoordinates(ref)
	if err != nil {
		return cellKey{}, false
	}
	return cellKey{sheet: sheet, row: row - 1, col: col - 1}, true
}

func parseArea(sheet, from, to string) (area, bool) {
	r1, c1, ok1 := parseRangeEnd(from)
	r2, c2, ok2 := parseRangeEnd(to)
	if !ok1 || !ok2 {
		return area{}, false
	}
	// a missing row means a whole column, a missing column a whole row
	if r1 < 0 || r2 < 0 {
		r1, r2 = 0, excelize.TotalRows-1
	}
	if c1 < 0 || c2 < 0 {
		c1, c2 = 0, excelize.MaxColumns-1
	}
	if r1 > r2 {
		r1, r2 = r2, r1
	}
	if c1 > c2 {
		c1, c2 = c2, c1
	}
	return area{sheet: sheet, r1: r1, c1: c1, r2: r2, c2: c2}, true
}

// parseRangeEnd parses "B3", "B" or "3"; a missing part is returned as -1.
func parseRangeEnd(s string) (row, col int, ok bool) {
	if s == "" {
		return 0, 0, false
	}
	if c, r, err := excelize.CellNameToCoordinates(s); err == nil {
		return r - 1, c - 1, true
	}
	if c, err := excelize.ColumnNameToNumber(s); err == nil {
		return -1, c - 1, true
	}
	n := 0
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return 0, 0, false
		}
		n = n*10 + int(ch-'0')
	}
	if n == 0 {
		return 0, 0, false
	}
	return n - 1, -1, true
}

func sortKeys(keys []cellKey) {
	sort.Slice(keys, func(i, j int) bool { return keyLess(keys[i], keys[j]) })
}

func keyLess(a, b cellKey) bool {
	if a.sheet != b.sheet {
		return a.sheet < b.sheet
	}
	if a.row != b.row {
		return a.row < b.row
	}
	return a.col < b.col
}
