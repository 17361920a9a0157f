package handler

import (
	"github.com/locvowork/sheetlens/internal/cell"
	"github.com/locvowork/sheetlens/internal/domain"
	"github.com/locvowork/sheetlens/internal/locale"
	"github.com/locvowork/sheetlens/internal/service"
)

// PresentSheet renders every section of sheet with its rows formatted in l.
func PresentSheet(sheet domain.Sheet, l *locale.Locale) SheetView {
	view := SheetView{
		Name:     sheet.Name(),
		Title:    sheet.Title(),
		Sections: make([]SectionView, 0, sheet.SectionCount()),
		Metadata: sheet.Metadata(),
	}
	for i, s := range sheet.Sections() {
		view.Sections = append(view.Sections, presentSection(i, s, l))
	}
	return view
}

// presentSection renders the filtered and sorted rows with their charts.
func presentSection(index int, s domain.Section, l *locale.Locale) SectionView {
	cfg := s.ToConfig()
	view := SectionView{
		Index:                index,
		Title:                s.TitleText(),
		Header:               make([]string, 0, s.Header().Len()),
		Columns:              s.AllColumnInfo(),
		SearchText:           s.SearchText(),
		Sort:                 cfg.SortConfig,
		ApplyFiltersToCharts: s.ApplyFiltersToCharts(),
		Style:                s.Style(),
		Charts:               make([]ChartView, 0, len(cfg.Charts)),
		Metadata:             s.Metadata(),
		FilteredRowCount:     service.FilteredRowCount(s),
	}
	for _, c := range s.Header().Cells {
		view.Header = append(view.Header, cell.String(c))
	}

	rows := service.ApplyFiltersAndSort(s)
	view.Rows = make([]RowView, 0, len(rows))
	for _, r := range rows {
		text := make([]string, len(r.Cells))
		for i, c := range r.Cells {
			text[i] = cell.FormatAsStringIn(c, l)
		}
		view.Rows = append(view.Rows, RowView{Index: r.Index, Values: r.DisplayValues(), Text: text})
	}

	for _, ch := range s.Charts() {
		rows := service.ChartRows(s, ch)
		pointRows := make([]int, len(rows))
		for i, r := range rows {
			pointRows[i] = r.Index
		}
		view.Charts = append(view.Charts, ChartView{
			Config:          ch.ToConfig(),
			Metadata:        service.ChartMetadata(s, ch),
			Points:          service.PrepareChartData(s, ch),
			PointRows:       pointRows,
			LabelCandidates: service.LabelCandidateColumns(s, ch.ColumnIndex()),
		})
	}

	if card, ok := s.CardRecap(); ok {
		cv := presentCard(card, l)
		view.Card = &cv
	}
	return view
}

func presentCard(card domain.CardRecap, l *locale.Locale) CardView {
	return CardView{
		RowIndex:  card.RowIndex(),
		ColIndex:  card.ColIndex(),
		Label:     card.LabelText(),
		Value:     cell.DisplayValue(card.Value()),
		Formatted: service.FormatCardValue(card, l),
		Unit:      card.Unit(),
		Color:     card.Color(),
		Icon:      card.Icon(),
		Style:     card.Style(),
		Metadata:  card.Metadata(),
	}
}
