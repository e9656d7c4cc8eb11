package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"platecost/internal/config"
	"platecost/internal/cost"
	"platecost/internal/db"
	applog "platecost/internal/log"
	"platecost/internal/service"
)

var priceListColumns = []string{
	"name",
	"standard_measurement_unit",
	"purchase_pack_price",
	"pack_quantity_in_standard_units",
}

// priceRow is one ingredient read from a supplier price list, with the line it came from.
type priceRow struct {
	line  int
	input service.IngredientInput
}

type importOptions struct {
	dryRun bool
}

type importResult struct {
	created int
	updated int
}

var (
	openDatabaseFunc = openConfiguredDatabase
	openScratchFunc  = openScratchDatabase
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import_ingredients <price-list.csv|price-list.pdf>",
		Short: "Import ingredient pack prices from a supplier price list",
		Long: `Create or replace ingredients by name from a CSV or PDF price list.

Each row carries name, standard_measurement_unit, purchase_pack_price and
pack_quantity_in_standard_units. Existing ingredients with the same name are
replaced and their cost per standard unit is recomputed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), cmd.OutOrStdout(), args[0], *opts)
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "validate the price list without writing to the database")

	return cmd
}

func runImport(ctx context.Context, out io.Writer, path string, opts importOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("price list path must not be empty")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("locate price list: %w", err)
	}

	rows, err := readPriceList(path)
	if err != nil {
		return fmt.Errorf("read price list: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("price list %s has no ingredient rows", filepath.Base(path))
	}

	open := openDatabaseFunc
	if opts.dryRun {
		open = openScratchFunc
	}
	database, err := open(ctx)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(database); err != nil {
			applog.Warn(ctx, "failed to close database", "error", err)
		}
	}()

	result, err := importRows(ctx, service.NewIngredientService(database), rows)
	if err != nil {
		return err
	}

	if opts.dryRun {
		fmt.Fprintf(out, "Validated %d ingredients from %s (dry run, nothing written)\n", len(rows), filepath.Base(path))
		return nil
	}
	fmt.Fprintf(out, "Imported %d ingredients from %s (%d created, %d updated)\n",
		result.created+result.updated, filepath.Base(path), result.created, result.updated)
	return nil
}

func importRows(ctx context.Context, ingredients *service.IngredientService, rows []priceRow) (importResult, error) {
	var result importResult
	for _, row := range rows {
		ingredient, created, err := ingredients.Upsert(ctx, row.input)
		if err != nil {
			return result, fmt.Errorf("line %d (%s): %w", row.line, row.input.Name, err)
		}
		if created {
			result.created++
		} else {
			result.updated++
		}
		applog.Debug(ctx, "ingredient imported",
			"name", ingredient.Name,
			"created", created,
			"cost_per_standard_unit", ingredient.CostPerStandardUnit.String())
	}
	return result, nil
}

func openConfiguredDatabase(ctx context.Context) (*gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := applog.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return nil, err
	}

	database, err := db.Initialize(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(database); err != nil {
		_ = db.Close(database)
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	applog.Info(ctx, "importing into database", "driver", cfg.Database.Driver)
	return database, nil
}

// openScratchDatabase gives a dry run the real validation and constraints without
// touching the configured store.
func openScratchDatabase(context.Context) (*gorm.DB, error) {
	database, err := db.OpenMemory("platecost-import-"+uuid.NewString(), logger.Silent)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(database); err != nil {
		_ = db.Close(database)
		return nil, err
	}
	return database, nil
}

func readPriceList(path string) ([]priceRow, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err := extractTextFromPDF(path)
		if err != nil {
			return nil, fmt.Errorf("extract pdf text: %w", err)
		}
		return parsePriceText(text)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return readCSV(file)
}

func readCSV(r io.Reader) ([]priceRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, errors.New("csv is empty")
	}

	index := make(map[string]int, len(records[0]))
	for idx, key := range records[0] {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(key, "\ufeff")))] = idx
	}
	for _, column := range priceListColumns {
		if _, ok := index[column]; !ok {
			return nil, fmt.Errorf("csv header is missing column %q", column)
		}
	}

	rows := make([]priceRow, 0, len(records)-1)
	for offset, record := range records[1:] {
		line := offset + 2
		if blankRecord(record) {
			continue
		}

		fields := make([]string, len(priceListColumns))
		for i, column := range priceListColumns {
			if idx := index[column]; idx < len(record) {
				fields[i] = record[idx]
			}
		}

		row, err := buildRow(line, fields)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func extractTextFromPDF(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var builder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

// parsePriceText reads price list rows out of free text. Lines that do not carry exactly four
// columns (titles, page footers) are skipped, as is a header line.
func parsePriceText(text string) ([]priceRow, error) {
	var rows []priceRow
	for idx, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		separator := ","
		if strings.Contains(line, ";") {
			separator = ";"
		}
		fields := strings.Split(line, separator)
		if len(fields) != len(priceListColumns) {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(fields[0]), priceListColumns[0]) {
			continue
		}

		row, err := buildRow(idx+1, fields)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func buildRow(line int, fields []string) (priceRow, error) {
	price, err := parseAmount(fields[2])
	if err != nil {
		return priceRow{}, fmt.Errorf("line %d: purchase_pack_price: %w", line, err)
	}
	quantity, err := parseAmount(fields[3])
	if err != nil {
		return priceRow{}, fmt.Errorf("line %d: pack_quantity_in_standard_units: %w", line, err)
	}

	return priceRow{
		line: line,
		input: service.IngredientInput{
			Name:                        strings.TrimSpace(fields[0]),
			StandardMeasurementUnit:     strings.TrimSpace(fields[1]),
			PurchasePackPrice:           price,
			PackQuantityInStandardUnits: quantity,
		},
	}, nil
}

// parseAmount accepts plain decimals, a decimal comma and a leading currency sign. A blank
// value yields nil so the service reports the missing field.
func parseAmount(value string) (*decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimLeft(value, "$€£ ")
	if value == "" {
		return nil, nil
	}
	if !strings.Contains(value, ".") {
		value = strings.ReplaceAll(value, ",", ".")
	}
	parsed, err := cost.ParseAmount(value)
	if err != nil {
		return nil, fmt.Errorf("%.40q: %w", value, err)
	}
	return &parsed, nil
}

func blankRecord(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}
