package mock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"platecost/internal/db"
	applog "platecost/internal/log"
	"platecost/internal/service"
)

type ingredientSeed struct {
	name     string
	unit     string
	price    string
	quantity string
}

type lineSeed struct {
	ingredient string
	quantity   string
	unit       string
}

type recipeSeed struct {
	name     string
	price    string
	grams    string
	portions int
	lines    []lineSeed
}

var ingredientSeeds = []ingredientSeed{
	{"Flour", "g", "15.50", "5000"},
	{"Butter", "g", "4.20", "250"},
	{"Caster sugar", "g", "2.10", "1000"},
	{"Eggs", "piece", "3.60", "12"},
	{"Whole milk", "ml", "1.35", "1000"},
	{"Dried yeast", "g", "1.80", "56"},
	{"Sea salt", "g", "2.50", "500"},
}

var recipeSeeds = []recipeSeed{
	{
		name: "Country loaf", price: "6.50", grams: "1550", portions: 12,
		lines: []lineSeed{
			{"Flour", "1000", "g"},
			{"Dried yeast", "7", "g"},
			{"Sea salt", "20", "g"},
		},
	},
	{
		name: "Shortbread", price: "9.00", grams: "580", portions: 16,
		lines: []lineSeed{
			{"Flour", "300", "g"},
			{"Butter", "200", "g"},
			{"Caster sugar", "100", "g"},
		},
	},
	{
		name: "Crepes", price: "7.25", portions: 10,
		lines: []lineSeed{
			{"Flour", "250", "g"},
			{"Eggs", "3", "piece"},
			{"Whole milk", "500", "ml"},
			{"Butter", "30", "g"},
		},
	},
	{name: "House lemonade", price: "3.00"},
}

// New returns an in-memory sqlite database seeded with a small bakery kitchen. Every call
// gets its own database.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	database, err := db.OpenMemory("platecost-mock-"+uuid.NewString(), logger.Silent)
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(database); err != nil {
		_ = db.Close(database)
		return nil, err
	}

	if err := seed(ctx, database); err != nil {
		_ = db.Close(database)
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return database, nil
}

func seed(ctx context.Context, database *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	ingredients := service.NewIngredientService(database)
	recipes := service.NewRecipeService(database)

	ids := make(map[string]uint, len(ingredientSeeds))
	for _, s := range ingredientSeeds {
		price := decimal.RequireFromString(s.price)
		quantity := decimal.RequireFromString(s.quantity)
		created, err := ingredients.Create(ctx, service.IngredientInput{
			Name:                        s.name,
			StandardMeasurementUnit:     s.unit,
			PurchasePackPrice:           &price,
			PackQuantityInStandardUnits: &quantity,
		})
		if err != nil {
			return fmt.Errorf("seed ingredient %q: %w", s.name, err)
		}
		ids[s.name] = created.ID
	}

	for _, s := range recipeSeeds {
		price := decimal.RequireFromString(s.price)
		recipe, err := recipes.Create(ctx, service.RecipeInput{Name: s.name, Price: &price})
		if err != nil {
			return fmt.Errorf("seed recipe %q: %w", s.name, err)
		}

		for _, line := range s.lines {
			quantity := decimal.RequireFromString(line.quantity)
			_, err := recipes.AddIngredient(ctx, recipe.ID, service.RecipeLineInput{
				IngredientID: ids[line.ingredient],
				Quantity:     &quantity,
				Unit:         line.unit,
			})
			if err != nil {
				return fmt.Errorf("seed line %q in %q: %w", line.ingredient, s.name, err)
			}
		}

		var yield service.YieldInput
		if s.grams != "" {
			grams := decimal.RequireFromString(s.grams)
			yield.FinalYieldWeightGrams = &grams
		}
		if s.portions > 0 {
			portions := s.portions
			yield.ServingPortions = &portions
		}
		if yield.FinalYieldWeightGrams == nil && yield.ServingPortions == nil {
			continue
		}
		if err := recipes.UpdateYield(ctx, recipe.ID, yield); err != nil {
			return fmt.Errorf("seed yield for %q: %w", s.name, err)
		}
	}

	return nil
}
