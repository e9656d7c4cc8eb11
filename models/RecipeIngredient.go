package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecipeIngredient is one line of a recipe. The (recipe, ingredient) pair is the identity
// of the row, so an ingredient appears at most once per recipe.
type RecipeIngredient struct {
	RecipeID     uint            `gorm:"primaryKey;autoIncrement:false" json:"recipe_id"`
	IngredientID uint            `gorm:"primaryKey;autoIncrement:false;index" json:"ingredient_id"`
	Quantity     decimal.Decimal `gorm:"type:numeric(14,4);not null;check:chk_recipe_ingredients_quantity,quantity > 0" json:"quantity"`
	Unit         string          `gorm:"type:varchar(16);not null" json:"unit"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	// Owning recipe: lines go away with it.
	Recipe *Recipe `gorm:"foreignKey:RecipeID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	// Referenced ingredient: cannot be deleted while a line points at it.
	Ingredient *Ingredient `gorm:"foreignKey:IngredientID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}
