package store

import (
	"context"
	"fmt"

	"github.com/locvowork/sheetlens/internal/cell"
	"github.com/locvowork/sheetlens/internal/domain"
	"github.com/locvowork/sheetlens/internal/formula"
	"github.com/locvowork/sheetlens/internal/logger"
	"github.com/locvowork/sheetlens/internal/service"
)

// updateSection applies fn to a section of the current sheet. fn reports
// whether it changed anything; nothing is stored or notified otherwise.
func (s *Store) updateSection(index int, fn func(domain.Section) (domain.Section, bool)) bool {
	s.mu.Lock()
	sheet, ok := s.sheets[s.current]
	if !ok {
		s.mu.Unlock()
		return false
	}
	section, ok := sheet.Section(index)
	if !ok {
		s.mu.Unlock()
		return false
	}
	updated, changed := fn(section)
	if !changed {
		s.mu.Unlock()
		return false
	}
	s.sheets[s.current] = sheet.UpdateSection(index, func(domain.Section) domain.Section { return updated })
	name := s.current
	s.mu.Unlock()

	s.notify(Event{Kind: EventSectionUpdated, Sheet: name, Section: index})
	return true
}

func always(fn func(domain.Section) domain.Section) func(domain.Section) (domain.Section, bool) {
	return func(sec domain.Section) (domain.Section, bool) { return fn(sec), true }
}

// ==================== Search and sort ====================

func (s *Store) SetSearchText(section int, text string) bool {
	return s.updateSection(section, always(func(sec domain.Section) domain.Section {
		return sec.WithSearchText(text)
	}))
}

func (s *Store) ClearSearch(section int) bool {
	return s.updateSection(section, func(sec domain.Section) (domain.Section, bool) {
		return sec.ClearSearch(), sec.SearchText() != ""
	})
}

// ToggleSort cycles the column through ascending, descending and unsorted.
func (s *Store) ToggleSort(section, column int) bool {
	return s.updateSection(section, always(func(sec domain.Section) domain.Section {
		return sec.ToggleSort(column)
	}))
}

func (s *Store) ClearSort(section int) bool {
	return s.updateSection(section, func(sec domain.Section) (domain.Section, bool) {
		return sec.ClearSort(), sec.HasActiveSort()
	})
}

func (s *Store) SetApplyFiltersToCharts(section int, apply bool) bool {
	return s.updateSection(section, func(sec domain.Section) (domain.Section, bool) {
		return sec.WithApplyFiltersToCharts(apply), sec.ApplyFiltersToCharts() != apply
	})
}

// ==================== Charts ====================

// ToggleChart creates a chart on column or flips its visibility.
func (s *Store) ToggleChart(section, column int) bool {
	return s.updateSection(section, always(func(sec domain.Section) domain.Section {
		return sec.ToggleChart(column)
	}))
}

func (s *Store) SetChartType(section, column int, t domain.ChartType) bool {
	if !t.Valid() {
		return false
	}
	return s.updateChart(section, column, func(c domain.Chart) domain.Chart {
		return service.ChangeChartType(c, t)
	})
}

func (s *Store) SetChartLabelColumn(section, column, labelColumn int) bool {
	return s.updateChart(section, column, func(c domain.Chart) domain.Chart {
		return service.ChangeChartLabelColumn(c, labelColumn)
	})
}

func (s *Store) updateChart(section, column int, fn func(domain.Chart) domain.Chart) bool {
	return s.updateSection(section, func(sec domain.Section) (domain.Section, bool) {
		if !sec.HasChart(column) {
			return sec, false
		}
		return sec.UpdateChart(column, fn), true
	})
}

// ToggleRowExclusion flips the exclusion of the row with sheet index
// rowIndex on every visible chart of the section.
func (s *Store) ToggleRowExclusion(section, rowIndex int) bool {
	return s.updateSection(section, func(sec domain.Section) (domain.Section, bool) {
		for _, row := range sec.Data() {
			if row.Index == rowIndex {
				return sec.ToggleRowExclusion(row), len(sec.VisibleCharts()) > 0
			}
		}
		return sec, false
	})
}

// ==================== Cards ====================

// SetCardRecap promotes a section cell to the section card. Without an
// explicit style the store's default card style is used when one is set.
func (s *Store) SetCardRecap(section, rowIndex, colIndex int, style *domain.CardStyleConfig) bool {
	return s.updateSection(section, func(sec domain.Section) (domain.Section, bool) {
		card, ok := service.CreateCardRecap(sec, rowIndex, colIndex)
		if !ok {
			return sec, false
		}
		switch {
		case style != nil:
			card = card.WithStyle(*style)
		case s.cardStyle != nil:
			card = card.WithFullStyle(*s.cardStyle)
		}
		return sec.SetCardRecap(card), true
	})
}

func (s *Store) UpdateCardStyle(section int, partial domain.CardStyleConfig) bool {
	return s.updateCard(section, func(sec domain.Section) domain.Section {
		return service.UpdateCardStyle(sec, partial)
	})
}

func (s *Store) SetCardStyle(section int, style domain.CardStyleConfig) bool {
	return s.updateCard(section, func(sec domain.Section) domain.Section {
		return service.SetCardStyle(sec, style)
	})
}

// UpdateCard applies label, unit, color and icon changes to the card.
func (s *Store) UpdateCard(section int, fn func(domain.CardRecap) domain.CardRecap) bool {
	return s.updateCard(section, func(sec domain.Section) domain.Section {
		return sec.UpdateCardRecap(fn)
	})
}

func (s *Store) ClearCardRecap(section int) bool {
	return s.updateCard(section, func(sec domain.Section) domain.Section {
		return sec.ClearCardRecap()
	})
}

func (s *Store) updateCard(section int, fn func(domain.Section) domain.Section) bool {
	return s.updateSection(section, func(sec domain.Section) (domain.Section, bool) {
		if _, ok := sec.CardRecap(); !ok {
			return sec, false
		}
		return fn(sec), true
	})
}

// ==================== Style ====================

func (s *Store) UpdateSectionStyle(section int, patch domain.SectionStylePatch) bool {
	return s.updateSection(section, always(func(sec domain.Section) domain.Section {
		return sec.WithStyle(patch)
	}))
}

// ==================== Cells ====================

// EditCell sends a new value for a cell of the current sheet to the formula
// engine and writes every recomputed value back into the raw matrices.
// Sections of every built sheet see the new values since they share cells
// with the raw matrices. Rich text and hyperlink cells are read-only.
func (s *Store) EditCell(ctx context.Context, row, col int, value interface{}) ([]formula.Change, error) {
	s.mu.Lock()
	sheet, ok := s.sheets[s.current]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("edit cell: %w", domain.ErrSheetNotFound)
	}
	target := sheet.RawData().At(row, col)
	if target == nil {
		s.mu.Unlock()
		return []formula.Change{}, nil
	}
	if !cell.IsEditable(target) && cell.Type(target) != cell.KindEmpty {
		s.mu.Unlock()
		return nil, fmt.Errorf("cell %s holds %s: %w", cell.Address(target), cell.Type(target), domain.ErrCellReadOnly)
	}

	updated, changes := sheet.UpdateCell(ctx, s.engine, target, value, s.raw)
	s.sheets[s.current] = updated
	name := s.current
	s.mu.Unlock()

	logger.DebugLog(ctx, "store: %s!%s edited, %d cells recomputed", name, cell.Address(target), len(changes))
	if len(changes) > 0 {
		s.notify(Event{Kind: EventCellEdited, Sheet: name, Section: -1, Changes: changes})
	}
	return changes, nil
}

// ==================== View state ====================

// CaptureViewState records the view of the current sheet.
func (s *Store) CaptureViewState() (domain.ViewState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sheet, ok := s.sheets[s.current]
	if !ok {
		return domain.ViewState{}, false
	}
	return service.CaptureViewState(s.fileName, sheet), true
}

// ApplyViewState replays vs onto the sheet it names, building the sheet if
// needed.
func (s *Store) ApplyViewState(vs domain.ViewState) bool {
	s.mu.Lock()
	sheet, ok := s.buildLocked(vs.SheetName)
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.sheets[vs.SheetName] = service.ApplyViewState(sheet, vs)
	s.mu.Unlock()

	s.notify(Event{Kind: EventViewStateApplied, Sheet: vs.SheetName, Section: -1})
	return true
}
