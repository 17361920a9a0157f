package service

import (
	"time"

	"github.com/locvowork/sheetlens/internal/domain"
)

// CaptureViewState records the user-controlled parts of every section of
// sheet: search, sort, chart configuration, card and style.
func CaptureViewState(fileName string, sheet domain.Sheet) domain.ViewState {
	vs := domain.ViewState{
		FileName:  fileName,
		SheetName: sheet.Name(),
		Sections:  make([]domain.SectionState, 0, sheet.SectionCount()),
		UpdatedAt: time.Now().UTC(),
	}
	for i, s := range sheet.Sections() {
		cfg := s.ToConfig()
		state := domain.SectionState{
			Index:                i,
			SearchText:           cfg.SearchText,
			Sort:                 cfg.SortConfig,
			ApplyFiltersToCharts: s.ApplyFiltersToCharts(),
			Style:                cfg.Style,
			Charts:               cfg.Charts,
		}
		if card, ok := s.CardRecap(); ok {
			cc := card.ToConfig()
			state.Card = &domain.CardState{
				RowIndex: cc.RowIndex,
				ColIndex: cc.ColIndex,
				Label:    card.LabelText(),
				Unit:     cc.Unit,
				Color:    cc.Color,
				Icon:     cc.Icon,
				Style:    cc.Style,
			}
		}
		vs.Sections = append(vs.Sections, state)
	}
	return vs
}

// ApplyViewState replays a saved view onto freshly detected sections.
// States whose index no longer exists are ignored, as are cards whose
// source cell is gone.
func ApplyViewState(sheet domain.Sheet, vs domain.ViewState) domain.Sheet {
	for _, state := range vs.Sections {
		state := state
		sheet = sheet.UpdateSection(state.Index, func(s domain.Section) domain.Section {
			return applySectionState(s, state)
		})
	}
	return sheet
}

func applySectionState(s domain.Section, state domain.SectionState) domain.Section {
	s = s.WithSearchText(state.SearchText).WithApplyFiltersToCharts(state.ApplyFiltersToCharts)
	if state.Sort != nil {
		s = s.WithSort(*state.Sort)
	} else {
		s = s.ClearSort()
	}
	if state.Style != nil {
		s = s.WithFullStyle(*state.Style)
	}

	for _, c := range s.Charts() {
		s = s.RemoveChart(c.ColumnIndex())
	}
	for _, cfg := range state.Charts {
		s = s.AddChart(domain.ChartFromConfig(cfg))
	}

	s = s.ClearCardRecap()
	if cs := state.Card; cs != nil {
		if card, ok := CreateCardRecap(s, cs.RowIndex, cs.ColIndex); ok {
			if cs.Label != "" && cs.Label != card.LabelText() {
				card = card.WithLabel(cs.Label)
			}
			card = card.WithUnit(cs.Unit).WithColor(cs.Color).WithIcon(cs.Icon)
			if cs.Style != nil {
				card = card.WithFullStyle(*cs.Style)
			}
			s = s.SetCardRecap(card)
		}
	}
	return s
}
