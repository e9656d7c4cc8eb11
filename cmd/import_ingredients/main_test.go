package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"platecost/internal/cost"
	"platecost/internal/db"
	"platecost/internal/service"
	"platecost/models"
)

const samplePriceList = `name,standard_measurement_unit,purchase_pack_price,pack_quantity_in_standard_units
Flour,g,15.50,5000
Butter,g,"4,20",250

Eggs,piece,€3.60,12
`

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// useDatabase points the importer at a shared in-memory database for the duration of the test.
func useDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	name := "import_" + uuid.NewString()
	keeper, err := db.OpenMemory(name, logger.Silent)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(keeper); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(keeper) })

	previous := openDatabaseFunc
	openDatabaseFunc = func(context.Context) (*gorm.DB, error) {
		return db.OpenMemory(name, logger.Silent)
	}
	t.Cleanup(func() { openDatabaseFunc = previous })
	return keeper
}

func TestReadCSVParsesRows(t *testing.T) {
	rows, err := readCSV(strings.NewReader(samplePriceList))
	if err != nil {
		t.Fatalf("readCSV returned error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	butter := rows[1]
	if butter.line != 3 {
		t.Fatalf("expected butter on line 3, got %d", butter.line)
	}
	if butter.input.PurchasePackPrice == nil || butter.input.PurchasePackPrice.String() != "4.2" {
		t.Fatalf("expected decimal comma to parse as 4.2, got %v", butter.input.PurchasePackPrice)
	}

	eggs := rows[2]
	if eggs.line != 5 || eggs.input.StandardMeasurementUnit != "piece" {
		t.Fatalf("unexpected eggs row: %+v", eggs)
	}
	if eggs.input.PurchasePackPrice.String() != "3.6" {
		t.Fatalf("expected currency sign to be stripped, got %s", eggs.input.PurchasePackPrice)
	}
}

func TestReadCSVAcceptsReorderedColumns(t *testing.T) {
	rows, err := readCSV(strings.NewReader("pack_quantity_in_standard_units,Name,purchase_pack_price,standard_measurement_unit\n1000,Milk,1.35,ml\n"))
	if err != nil {
		t.Fatalf("readCSV returned error: %v", err)
	}
	if len(rows) != 1 || rows[0].input.Name != "Milk" || rows[0].input.PackQuantityInStandardUnits.String() != "1000" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestReadCSVRejectsBadInput(t *testing.T) {
	tests := map[string]string{
		"empty":          "",
		"missing column": "name,standard_measurement_unit,purchase_pack_price\nFlour,g,1\n",
		"bad price":      "name,standard_measurement_unit,purchase_pack_price,pack_quantity_in_standard_units\nFlour,g,cheap,1000\n",
		"huge exponent":  "name,standard_measurement_unit,purchase_pack_price,pack_quantity_in_standard_units\nFlour,g,1e999999999,1000\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := readCSV(strings.NewReader(input)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestParsePriceTextSkipsNoise(t *testing.T) {
	text := strings.Join([]string{
		"Spring price list",
		"name;standard_measurement_unit;purchase_pack_price;pack_quantity_in_standard_units",
		"Flour;g;15,50;5000",
		"Sea salt, g, 2.50, 500",
		"Page 1 of 1",
	}, "\n")

	rows, err := parsePriceText(text)
	if err != nil {
		t.Fatalf("parsePriceText returned error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %+v", len(rows), rows)
	}
	if rows[0].input.Name != "Flour" || rows[0].input.PurchasePackPrice.String() != "15.5" {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[0].line != 3 {
		t.Fatalf("expected flour on line 3, got %d", rows[0].line)
	}
	if rows[1].input.Name != "Sea salt" || rows[1].input.StandardMeasurementUnit != "g" {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
}

func TestParseAmountBlankIsNil(t *testing.T) {
	value, err := parseAmount("  ")
	if err != nil || value != nil {
		t.Fatalf("expected nil amount without error, got %v, %v", value, err)
	}
}

func TestParseAmountRejectsOutOfRange(t *testing.T) {
	for _, input := range []string{"1e999999999", "1e-999999999", "$12345678901", "0,000000000000000000001"} {
		t.Run(input, func(t *testing.T) {
			if _, err := parseAmount(input); !errors.Is(err, cost.ErrOutOfRange) {
				t.Fatalf("parseAmount(%q) error = %v, want ErrOutOfRange", input, err)
			}
		})
	}

	value, err := parseAmount("€ 9999999999,9999")
	if err != nil || value.String() != "9999999999.9999" {
		t.Fatalf("expected the largest amount to parse, got %v, %v", value, err)
	}
}

func TestRunImportCreatesThenUpdates(t *testing.T) {
	database := useDatabase(t)
	ctx := context.Background()
	path := writeFile(t, "prices.csv", samplePriceList)

	var out bytes.Buffer
	if err := runImport(ctx, &out, path, importOptions{}); err != nil {
		t.Fatalf("runImport returned error: %v", err)
	}
	if !strings.Contains(out.String(), "Imported 3 ingredients from prices.csv (3 created, 0 updated)") {
		t.Fatalf("unexpected output: %q", out.String())
	}

	var flour models.Ingredient
	if err := database.Where("name = ?", "Flour").First(&flour).Error; err != nil {
		t.Fatalf("find flour: %v", err)
	}
	if flour.CostPerStandardUnit.String() != "0.0031" {
		t.Fatalf("expected flour unit cost 0.0031, got %s", flour.CostPerStandardUnit)
	}

	repriced := writeFile(t, "repriced.csv", "name,standard_measurement_unit,purchase_pack_price,pack_quantity_in_standard_units\nFlour,g,20,5000\n")
	out.Reset()
	if err := runImport(ctx, &out, repriced, importOptions{}); err != nil {
		t.Fatalf("second runImport returned error: %v", err)
	}
	if !strings.Contains(out.String(), "(0 created, 1 updated)") {
		t.Fatalf("unexpected output: %q", out.String())
	}
	if err := database.First(&flour, flour.ID).Error; err != nil {
		t.Fatalf("reload flour: %v", err)
	}
	if flour.CostPerStandardUnit.String() != "0.004" {
		t.Fatalf("expected repriced unit cost 0.004, got %s", flour.CostPerStandardUnit)
	}
}

func TestRunImportDryRunWritesNothing(t *testing.T) {
	database := useDatabase(t)
	path := writeFile(t, "prices.csv", samplePriceList)

	var out bytes.Buffer
	if err := runImport(context.Background(), &out, path, importOptions{dryRun: true}); err != nil {
		t.Fatalf("dry run returned error: %v", err)
	}
	if !strings.Contains(out.String(), "Validated 3 ingredients") {
		t.Fatalf("unexpected output: %q", out.String())
	}

	var count int64
	if err := database.Model(&models.Ingredient{}).Count(&count).Error; err != nil {
		t.Fatalf("count ingredients: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected dry run to leave the database empty, found %d ingredients", count)
	}
}

func TestRunImportReportsInvalidRow(t *testing.T) {
	useDatabase(t)
	path := writeFile(t, "prices.csv", "name,standard_measurement_unit,purchase_pack_price,pack_quantity_in_standard_units\nFlour,g,15.50,0\n")

	err := runImport(context.Background(), &bytes.Buffer{}, path, importOptions{dryRun: true})
	if err == nil {
		t.Fatal("expected a zero pack quantity to be rejected")
	}
	if !errors.Is(err, service.ErrInvalidInput) {
		t.Fatalf("expected an invalid input error, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 2 (Flour)") {
		t.Fatalf("expected the failing line to be named, got %v", err)
	}
}

func TestRunImportRequiresExistingFile(t *testing.T) {
	err := runImport(context.Background(), &bytes.Buffer{}, filepath.Join(t.TempDir(), "missing.csv"), importOptions{})
	if err == nil || !strings.Contains(err.Error(), "locate price list") {
		t.Fatalf("expected a locate error, got %v", err)
	}
}

func TestRootCommandRequiresOneArgument(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an argument error")
	}
}

func TestRootCommandDryRunFlag(t *testing.T) {
	path := writeFile(t, "prices.csv", samplePriceList)

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--dry-run", path})
	cmd.SetOut(&out)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !strings.Contains(out.String(), "dry run") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}
