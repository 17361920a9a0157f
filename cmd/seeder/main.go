package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/locvowork/sheetlens/internal/bootstrap"
	"github.com/locvowork/sheetlens/internal/config"
	"github.com/locvowork/sheetlens/internal/database"
	"github.com/locvowork/sheetlens/internal/domain"
	"github.com/locvowork/sheetlens/internal/logger"
	"github.com/locvowork/sheetlens/internal/reader"
	"github.com/locvowork/sheetlens/internal/seeder"
)

var (
	presetName string
	brands     int
	products   int
	countries  int
	seed       int64
	outPath    string
	withViews  bool
	assumeYes  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "seeder",
		Short: "Generate demo workbooks and saved views",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvConfig(); err != nil {
				return fmt.Errorf("failed to load env config: %w", err)
			}
			logger.InitLogging(config.DefaultEnvConfig.LOG_FILE_PATH, config.DefaultEnvConfig.LOG_LEVEL)
			return nil
		},
		SilenceUsage: true,
	}

	workbookCmd := &cobra.Command{
		Use:   "workbook",
		Short: "Write a demo workbook, optionally saving its default views",
		RunE:  runWorkbook,
	}
	workbookCmd.Flags().StringVar(&presetName, "preset", string(seeder.PresetMedium), "Data preset: small, medium, large, xlarge")
	workbookCmd.Flags().IntVar(&brands, "brands", 0, "Number of brand sections (overrides preset)")
	workbookCmd.Flags().IntVar(&products, "products", 0, "Number of products per brand (overrides preset)")
	workbookCmd.Flags().IntVar(&countries, "countries", 0, "Number of countries per brand (overrides preset)")
	workbookCmd.Flags().Int64Var(&seed, "seed", 1, "Random seed")
	workbookCmd.Flags().StringVarP(&outPath, "out", "o", "demo.xlsx", "Output file")
	workbookCmd.Flags().BoolVar(&withViews, "views", false, "Save default views to VIEW_STORE_DRIVER")

	clearCmd := &cobra.Command{
		Use:   "clear [file name]",
		Short: "Delete every saved view of a workbook file",
		Args:  cobra.ExactArgs(1),
		RunE:  runClear,
	}
	clearCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")

	rootCmd.AddCommand(workbookCmd, clearCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runWorkbook(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := seeder.GetPresetConfig(seeder.SeedPreset(presetName))
	if brands > 0 {
		cfg.Brands = brands
	}
	if products > 0 {
		cfg.ProductsPerBrand = products
	}
	if countries > 0 {
		cfg.CountriesPerBrand = countries
	}
	fmt.Printf("Generating %d brands x %d products (preset %s)\n", cfg.Brands, cfg.ProductsPerBrand, presetName)

	f, err := seeder.New(seed).Workbook(ctx, cfg)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}
	wb := reader.FromFile(f)
	defer wb.Close()

	if err := f.SaveAs(outPath); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}
	fmt.Printf("Wrote %s\n", outPath)

	if !withViews {
		return nil
	}
	views, err := seeder.DefaultViews(ctx, wb, filepath.Base(outPath))
	if err != nil {
		return err
	}
	return withRepository(ctx, func(repo domain.ViewStateRepository) error {
		return seeder.SeedViews(ctx, repo, views)
	})
}

func runClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	fileName := args[0]

	if !assumeYes {
		fmt.Printf("This will delete every saved view of %s.\nContinue? (yes/no): ", fileName)
		var response string
		fmt.Scanln(&response)
		if strings.TrimSpace(response) != "yes" {
			fmt.Println("Cancelled.")
			return nil
		}
	}
	return withRepository(ctx, func(repo domain.ViewStateRepository) error {
		n, err := seeder.ClearViews(ctx, repo, fileName)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d views\n", n)
		return nil
	})
}

func withRepository(ctx context.Context, fn func(domain.ViewStateRepository) error) error {
	repo, db, ds, err := bootstrap.NewViewStateRepository(ctx)
	if err != nil {
		return err
	}
	defer closeBackends(ctx, db, ds)
	return fn(repo)
}

func closeBackends(ctx context.Context, db *sql.DB, ds *database.DatastoreClient) {
	if db != nil {
		if err := db.Close(); err != nil {
			logger.ErrorLog(ctx, err, "close database")
		}
	}
	if ds != nil {
		if err := ds.Close(); err != nil {
			logger.ErrorLog(ctx, err, "close datastore")
		}
	}
}
