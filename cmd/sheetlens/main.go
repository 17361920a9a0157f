// Command sheetlens inspects and edits workbooks from the terminal.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"

	"github.com/locvowork/sheetlens/internal/bootstrap"
	"github.com/locvowork/sheetlens/internal/config"
	"github.com/locvowork/sheetlens/internal/domain"
	"github.com/locvowork/sheetlens/internal/handler"
	"github.com/locvowork/sheetlens/internal/locale"
	"github.com/locvowork/sheetlens/internal/logger"
	"github.com/locvowork/sheetlens/internal/preset"
	"github.com/locvowork/sheetlens/internal/reader"
	"github.com/locvowork/sheetlens/internal/store"
)

var (
	sheetName   string
	pretty      bool
	chartColumn int
	chartType   string
	searchText  string
	cellRef     string
	cellValue   string
	showSheet   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sheetlens",
		Short: "Browse spreadsheet sections, charts and cards",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvConfig(); err != nil {
				return fmt.Errorf("failed to load env config: %w", err)
			}
			cfg := config.DefaultEnvConfig
			logger.InitLogging(cfg.LOG_FILE_PATH, cfg.LOG_LEVEL)
			p, err := preset.Load(cfg.PRESET_FILE)
			if err != nil {
				return fmt.Errorf("failed to load preset: %w", err)
			}
			locale.SetDefault(bootstrap.Locale(p))
			return nil
		},
		SilenceUsage: true,
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect <file.xlsx>",
		Short: "Print the detected sections of a sheet as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	inspectCmd.Flags().StringVar(&sheetName, "sheet", "", "Sheet to inspect (default: first sheet)")
	inspectCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	inspectCmd.Flags().IntVar(&chartColumn, "chart", -1, "Add a chart of this column to every section")
	inspectCmd.Flags().StringVar(&chartType, "chart-type", string(domain.ChartTypeBar), "Chart type: bar, pie, line")
	inspectCmd.Flags().StringVar(&searchText, "search", "", "Filter the rows of every section")

	editCmd := &cobra.Command{
		Use:   "edit <file.xlsx>",
		Short: "Set a cell and print every recomputed cell",
		Args:  cobra.ExactArgs(1),
		RunE:  runEdit,
	}
	editCmd.Flags().StringVar(&sheetName, "sheet", "", "Sheet holding the cell (default: first sheet)")
	editCmd.Flags().StringVar(&cellRef, "cell", "", "Cell reference, e.g. B3")
	editCmd.Flags().StringVar(&cellValue, "value", "", "New value; a leading = makes it a formula")
	editCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	editCmd.Flags().BoolVar(&showSheet, "show-sheet", false, "Print the updated sheet with the changes")
	_ = editCmd.MarkFlagRequired("cell")

	rootCmd.AddCommand(inspectCmd, editCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// load opens path and selects sheetName, or the first sheet when empty.
func load(ctx context.Context, path string) (*store.Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	wb, err := reader.Open(path)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	s := store.New()
	if err := s.LoadWorkbook(ctx, wb, filepath.Base(path)); err != nil {
		return nil, err
	}
	if sheetName != "" {
		if err := s.SelectSheet(ctx, sheetName); err != nil {
			return nil, err
		}
	}
	state := s.State()
	fmt.Fprintf(os.Stderr, "%s: %s, %d sheets, showing %q\n",
		state.FileName, humanize.Bytes(uint64(info.Size())), len(state.SheetNames), state.CurrentSheet)
	return s, nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := load(ctx, args[0])
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	sheet, _ := s.CurrentSheet()
	for i := 0; i < sheet.SectionCount(); i++ {
		if searchText != "" {
			s.SetSearchText(i, searchText)
		}
		if chartColumn >= 0 && s.ToggleChart(i, chartColumn) {
			s.SetChartType(i, chartColumn, domain.ChartType(chartType))
		}
	}
	sheet, _ = s.CurrentSheet()
	return printJSON(handler.PresentSheet(sheet, locale.Default()))
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	col, row, err := excelize.CellNameToCoordinates(cellRef)
	if err != nil {
		return err
	}
	s, err := load(ctx, args[0])
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	changes, err := s.EditCell(ctx, row-1, col-1, cellValue)
	if err != nil {
		return err
	}
	if !showSheet {
		return printJSON(handler.ChangeViews(changes))
	}
	sheet, _ := s.CurrentSheet()
	return printJSON(handler.EditCellResponse{
		Changes: handler.ChangeViews(changes),
		Sheet:   handler.PresentSheet(sheet, locale.Default()),
	})
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
