package mock

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"platecost/internal/db"
	"platecost/internal/service"
	"platecost/models"
)

func TestNewSeedsExpectedRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	database, err := New(ctx)
	if err != nil {
		t.Fatalf("mock database initialization failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(database) })

	var ingredients []models.Ingredient
	if err := database.WithContext(ctx).Find(&ingredients).Error; err != nil {
		t.Fatalf("query ingredients: %v", err)
	}
	if len(ingredients) != len(ingredientSeeds) {
		t.Fatalf("expected %d seeded ingredients, got %d", len(ingredientSeeds), len(ingredients))
	}
	for _, ingredient := range ingredients {
		want := ingredient.PurchasePackPrice.DivRound(ingredient.PackQuantityInStandardUnits, 8)
		if !ingredient.CostPerStandardUnit.Equal(want) {
			t.Fatalf("ingredient %q has unit cost %s, want %s", ingredient.Name, ingredient.CostPerStandardUnit, want)
		}
	}

	var lines int64
	if err := database.WithContext(ctx).Model(&models.RecipeIngredient{}).Count(&lines).Error; err != nil {
		t.Fatalf("query recipe lines: %v", err)
	}
	if lines == 0 {
		t.Fatal("expected seeded recipe lines")
	}

	page, err := service.NewRecipeService(database).List(ctx, 1, 10)
	if err != nil {
		t.Fatalf("list recipes: %v", err)
	}
	if page.Total != int64(len(recipeSeeds)) {
		t.Fatalf("expected %d recipes, got %d", len(recipeSeeds), page.Total)
	}
	for _, item := range page.Items {
		if item.Name == "Country loaf" && !item.CalculatedCost.GreaterThan(decimal.RequireFromString("3.10")) {
			t.Fatalf("expected country loaf to cost more than its flour alone, got %s", item.CalculatedCost)
		}
	}
}

func TestNewIsolatesDatabases(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	first, err := New(ctx)
	if err != nil {
		t.Fatalf("first mock database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(first) })

	second, err := New(ctx)
	if err != nil {
		t.Fatalf("second mock database must seed cleanly: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(second) })
}
