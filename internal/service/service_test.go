package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"platecost/internal/db"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "_" + uuid.NewString()
	database, err := db.OpenMemory(name, logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(database) })

	require.NoError(t, db.AutoMigrate(database))
	return database
}

func dec(t *testing.T, value string) *decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	require.NoError(t, err)
	return &d
}

func intPtr(v int) *int {
	return &v
}

func flourInput(t *testing.T) IngredientInput {
	return IngredientInput{
		Name:                        "Flour",
		StandardMeasurementUnit:     "g",
		PurchasePackPrice:           dec(t, "15.50"),
		PackQuantityInStandardUnits: dec(t, "5000"),
	}
}

type fixture struct {
	ingredients *IngredientService
	recipes     *RecipeService
}

func newFixture(t *testing.T) fixture {
	database := newTestDB(t)
	return fixture{
		ingredients: NewIngredientService(database),
		recipes:     NewRecipeService(database),
	}
}

func requireKind(t *testing.T, err error, want Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, KindOf(err), "error: %v", err)
}

func TestErrorIsMatchesKind(t *testing.T) {
	t.Parallel()

	dup := &Error{Kind: KindDuplicateName, Message: "dup"}
	require.ErrorIs(t, dup, ErrConflict)
	require.NotErrorIs(t, dup, ErrNotFound)

	ref := &Error{Kind: KindReferentialIntegrity, Message: "Recipe not found"}
	require.ErrorIs(t, ref, ErrNotFound)
	require.ErrorIs(t, ref, ErrReferentialIntegrity)

	require.Equal(t, "Server error", MessageOf(unavailable("op", context.Canceled)))
	require.Equal(t, "dup", MessageOf(dup))
	require.Equal(t, KindUnavailable, KindOf(context.Canceled))
}
