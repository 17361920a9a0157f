// Package seeder generates demo workbooks and their saved views.
package seeder

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/locvowork/sheetlens/internal/domain"
	"github.com/locvowork/sheetlens/internal/logger"
	"github.com/locvowork/sheetlens/internal/reader"
	"github.com/locvowork/sheetlens/internal/service"
)

// Presets
type SeedPreset string

const (
	PresetSmall  SeedPreset = "small"
	PresetMedium SeedPreset = "medium"
	PresetLarge  SeedPreset = "large"
	PresetXLarge SeedPreset = "xlarge"
)

const (
	SalesSheet   = "Sales"
	SummarySheet = "Summary"
)

var (
	brands    = []string{"Apple", "Samsung", "Sony", "LG", "Panasonic", "Philips", "Dell", "HP", "Lenovo", "ASUS"}
	countries = []string{"USA", "China", "Vietnam", "Japan", "South Korea", "Germany", "Taiwan", "Thailand", "Malaysia", "Indonesia"}
	products  = []string{"Laptop", "Monitor", "Headphones", "Speaker", "Camera", "Tablet", "Router", "Keyboard", "Phone", "Watch"}

	salesHeader = []interface{}{"Product", "Country", "Units", "Revenue", "Unit price", "Launched", "On sale"}
)

// Config sizes a generated workbook.
type Config struct {
	Brands            int
	ProductsPerBrand  int
	CountriesPerBrand int
}

// GetPresetConfig returns the size of a preset. Unknown presets are medium.
func GetPresetConfig(preset SeedPreset) Config {
	switch preset {
	case PresetSmall:
		return Config{Brands: 2, ProductsPerBrand: 5, CountriesPerBrand: 2}
	case PresetLarge:
		return Config{Brands: 10, ProductsPerBrand: 100, CountriesPerBrand: 5}
	case PresetXLarge:
		return Config{Brands: 10, ProductsPerBrand: 500, CountriesPerBrand: 10}
	default:
		return Config{Brands: 5, ProductsPerBrand: 20, CountriesPerBrand: 3}
	}
}

type Seeder struct {
	rnd *rand.Rand
}

// New returns a seeder whose output depends only on seed.
func New(seed int64) *Seeder {
	return &Seeder{rnd: rand.New(rand.NewSource(seed))}
}

// Workbook builds a Sales sheet with one section per brand, each ending with
// a total row, and a Summary sheet that references the totals.
func (s *Seeder) Workbook(ctx context.Context, cfg Config) (*excelize.File, error) {
	start := time.Now()
	if cfg.Brands > len(brands) {
		cfg.Brands = len(brands)
	}
	if cfg.CountriesPerBrand < 1 {
		cfg.CountriesPerBrand = 1
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SalesSheet); err != nil {
		f.Close()
		return nil, err
	}
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		f.Close()
		return nil, err
	}

	if err := f.SetCellRichText(SalesSheet, "A1", []excelize.RichTextRun{
		{Text: "Sales report ", Font: &excelize.Font{Bold: true}},
		{Text: "2024"},
	}); err != nil {
		f.Close()
		return nil, err
	}

	totals := make([]string, 0, cfg.Brands)
	row := 3
	for b := 0; b < cfg.Brands; b++ {
		total, next, err := s.writeBrand(f, brands[b], row, cfg, dateStyle)
		if err != nil {
			f.Close()
			return nil, err
		}
		totals = append(totals, total)
		row = next + 1
	}

	if err := writeSummary(f, totals, cfg.Brands); err != nil {
		f.Close()
		return nil, err
	}

	logger.InfoLog(ctx, "seeder: generated %d brands x %d products in %v", cfg.Brands, cfg.ProductsPerBrand, time.Since(start))
	return f, nil
}

// writeBrand writes one section at row and returns the total cell and the
// row after the section.
func (s *Seeder) writeBrand(f *excelize.File, brand string, row int, cfg Config, dateStyle int) (string, int, error) {
	set := func(col, r int, v interface{}) error {
		ref, _ := excelize.CoordinatesToCellName(col, r)
		return f.SetCellValue(SalesSheet, ref, v)
	}
	if err := set(1, row, brand); err != nil {
		return "", 0, err
	}
	ref, _ := excelize.CoordinatesToCellName(1, row+1)
	if err := f.SetSheetRow(SalesSheet, ref, &salesHeader); err != nil {
		return "", 0, err
	}

	selected := randomSelect(s.rnd, countries, cfg.CountriesPerBrand)
	first := row + 2
	r := first
	for p := 0; p < cfg.ProductsPerBrand; p++ {
		units := s.rnd.Intn(500) + 1
		price := float64(s.rnd.Intn(200000)+999) / 100
		values := []interface{}{
			fmt.Sprintf("%s %s %d", brand, products[p%len(products)], p/len(products)+1),
			selected[p%len(selected)],
			units,
			float64(units) * price,
			price,
			time.Date(2020+s.rnd.Intn(5), time.Month(s.rnd.Intn(12)+1), s.rnd.Intn(28)+1, 0, 0, 0, 0, time.UTC),
			s.rnd.Intn(3) == 0,
		}
		ref, _ := excelize.CoordinatesToCellName(1, r)
		if err := f.SetSheetRow(SalesSheet, ref, &values); err != nil {
			return "", 0, err
		}
		// The cached value stays next to the formula, as spreadsheet apps save it.
		if err := f.SetCellFormula(SalesSheet, fmt.Sprintf("D%d", r), fmt.Sprintf("C%d*E%d", r, r)); err != nil {
			return "", 0, err
		}
		if err := f.SetCellStyle(SalesSheet, fmt.Sprintf("F%d", r), fmt.Sprintf("F%d", r), dateStyle); err != nil {
			return "", 0, err
		}
		r++
	}

	if err := set(1, r, "Total"); err != nil {
		return "", 0, err
	}
	last := r - 1
	for _, col := range []string{"C", "D"} {
		if err := f.SetCellFormula(SalesSheet, fmt.Sprintf("%s%d", col, r), fmt.Sprintf("SUM(%s%d:%s%d)", col, first, col, last)); err != nil {
			return "", 0, err
		}
	}
	return fmt.Sprintf("D%d", r), r + 1, nil
}

func writeSummary(f *excelize.File, totals []string, n int) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return err
	}
	if err := f.SetCellValue(SummarySheet, "A1", "Summary"); err != nil {
		return err
	}
	if err := f.SetSheetRow(SummarySheet, "A3", &[]interface{}{"Brand", "Revenue", "Share"}); err != nil {
		return err
	}
	for i, total := range totals {
		r := i + 4
		if err := f.SetCellValue(SummarySheet, fmt.Sprintf("A%d", r), brands[i]); err != nil {
			return err
		}
		if err := f.SetCellFormula(SummarySheet, fmt.Sprintf("B%d", r), fmt.Sprintf("%s!%s", SalesSheet, total)); err != nil {
			return err
		}
		if err := f.SetCellFormula(SummarySheet, fmt.Sprintf("C%d", r), fmt.Sprintf("B%d/SUM(B$4:B$%d)", r, n+3)); err != nil {
			return err
		}
	}
	source := fmt.Sprintf("A%d", n+5)
	if err := f.SetCellValue(SummarySheet, source, "Source"); err != nil {
		return err
	}
	return f.SetCellHyperLink(SummarySheet, source, "https://example.com/sales", "External")
}

// DefaultViews is the view a first-time user would set up: a pie of revenue
// per product and a card on the total for every brand section, and a bar
// chart of the summary.
func DefaultViews(ctx context.Context, wb *reader.Workbook, fileName string) ([]domain.ViewState, error) {
	var views []domain.ViewState
	for _, name := range wb.SheetNames() {
		raw, err := wb.RawData(ctx, name)
		if err != nil {
			return nil, err
		}
		sheet := service.BuildSheet(name, nil, raw)
		sheet = sheet.UpdateSections(func(_ int, sec domain.Section) domain.Section {
			if len(sec.Data()) == 0 {
				return sec
			}
			if name == SummarySheet {
				return sec.AddChart(service.CreateChart(sec, 1, domain.ChartTypeBar))
			}
			sec = sec.AddChart(service.CreateChart(sec, 3, domain.ChartTypePie))
			style := domain.DefaultCardStyle
			style.ValueFormat.Type = domain.ValueFormatCurrency
			if updated, ok := service.SetCardRecap(sec, len(sec.Data())-1, 3, &style); ok {
				sec = updated
			}
			return sec
		})
		views = append(views, service.CaptureViewState(fileName, sheet))
	}
	return views, nil
}

// SeedViews saves the default views of a generated workbook.
func SeedViews(ctx context.Context, repo domain.ViewStateRepository, views []domain.ViewState) error {
	for i := range views {
		if err := repo.Save(ctx, &views[i]); err != nil {
			return fmt.Errorf("failed to save view of %s: %w", views[i].SheetName, err)
		}
	}
	logger.InfoLog(ctx, "seeder: saved %d views", len(views))
	return nil
}

// ClearViews deletes every saved view of fileName and returns how many
// were removed.
func ClearViews(ctx context.Context, repo domain.ViewStateRepository, fileName string) (int, error) {
	views, err := repo.List(ctx, fileName)
	if err != nil {
		return 0, err
	}
	for _, vs := range views {
		if err := repo.Delete(ctx, fileName, vs.SheetName); err != nil {
			return 0, err
		}
	}
	return len(views), nil
}

// randomSelect randomly selects N items from a list
func randomSelect(rnd *rand.Rand, items []string, count int) []string {
	if count > len(items) {
		count = len(items)
	}
	result := make([]string, count)
	perm := rnd.Perm(len(items))
	for i := 0; i < count; i++ {
		result[i] = items[perm[i]]
	}
	return result
}
