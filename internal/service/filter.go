package service

import (
	"sort"
	"strings"
	"time"

	"github.com/locvowork/sheetlens/internal/cell"
	"github.com/locvowork/sheetlens/internal/domain"
)

// MatchesSearchText reports whether any cell of row contains searchText,
// case-insensitively, in its display text. Blank search text matches;
// otherwise surrounding spaces are part of the needle.
func MatchesSearchText(row domain.Row, searchText string) bool {
	if strings.TrimSpace(searchText) == "" {
		return true
	}
	needle := strings.ToLower(searchText)
	for _, c := range row.Cells {
		if cell.IsEmpty(c) {
			continue
		}
		if strings.Contains(strings.ToLower(cell.String(c)), needle) {
			return true
		}
	}
	return false
}

// FilterSectionData keeps the matching rows in order. Without active search
// text the section data is returned as is.
func FilterSectionData(section domain.Section) domain.DataMatrix {
	data := section.Data()
	if !section.HasActiveSearch() {
		return data
	}
	out := make(domain.DataMatrix, 0, len(data))
	for _, row := range data {
		if MatchesSearchText(row, section.SearchText()) {
			out = append(out, row)
		}
	}
	return out
}

// CompareValues orders two display values. Nil and empty values go last in
// both directions; numbers and dates compare by magnitude; everything else
// compares as lowercase text.
func CompareValues(a, b interface{}, direction domain.SortDirection) int {
	aNil, bNil := isNil(a), isNil(b)
	switch {
	case aNil && bNil:
		return 0
	case aNil:
		return 1
	case bNil:
		return -1
	}

	cmp := 0
	fa, aNum := a.(float64)
	fb, bNum := b.(float64)
	ta, aDate := a.(time.Time)
	tb, bDate := b.(time.Time)
	switch {
	case aNum && bNum:
		cmp = compareFloat(fa, fb)
	case aDate && bDate:
		cmp = compareInt(ta.UnixMilli(), tb.UnixMilli())
	default:
		cmp = strings.Compare(strings.ToLower(cell.Stringify(a)), strings.ToLower(cell.Stringify(b)))
	}
	if direction == domain.SortDesc {
		return -cmp
	}
	return cmp
}

// SortSectionData stably sorts a copy of data by the configured column.
// A nil config returns data unchanged.
func SortSectionData(data domain.DataMatrix, sc *domain.SortConfig) domain.DataMatrix {
	if sc == nil {
		return data
	}
	out := make(domain.DataMatrix, len(data))
	copy(out, data)
	sort.SliceStable(out, func(i, j int) bool {
		a := cell.DisplayValue(out[i].Cell(sc.ColumnIndex))
		b := cell.DisplayValue(out[j].Cell(sc.ColumnIndex))
		return CompareValues(a, b, sc.Direction) < 0
	})
	return out
}

// ApplyFiltersAndSort filters, then sorts.
func ApplyFiltersAndSort(section domain.Section) domain.DataMatrix {
	filtered := FilterSectionData(section)
	sc, ok := section.SortConfig()
	if !ok {
		return filtered
	}
	return SortSectionData(filtered, &sc)
}

func HasActiveSearch(section domain.Section) bool { return section.HasActiveSearch() }
func HasActiveSort(section domain.Section) bool   { return section.HasActiveSort() }

// FilteredRowCount is the number of rows left after search filtering.
func FilteredRowCount(section domain.Section) int { return len(FilterSectionData(section)) }

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
