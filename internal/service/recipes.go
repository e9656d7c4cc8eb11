package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"platecost/internal/cost"
	applog "platecost/internal/log"
	"platecost/models"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// RecipeInput is the full replaceable state of a recipe. A nil Price means zero.
type RecipeInput struct {
	Name  string
	Price *decimal.Decimal
}

// YieldInput lists the yield fields to change. Nil fields are left untouched.
type YieldInput struct {
	FinalYieldWeightGrams *decimal.Decimal
	ServingPortions       *int
}

// RecipeLineInput describes an ingredient to add to a recipe.
type RecipeLineInput struct {
	IngredientID uint
	Quantity     *decimal.Decimal
	Unit         string
}

// RecipeSummary is one row of the recipe listing.
type RecipeSummary struct {
	ID             uint            `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	CalculatedCost decimal.Decimal `json:"calculated_cost"`
}

// RecipePage is one page of recipes plus the unfiltered total.
type RecipePage struct {
	Items []RecipeSummary `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// RecipeLine is a recipe line joined with its ingredient.
type RecipeLine struct {
	IngredientID            uint
	Name                    string
	StandardMeasurementUnit string
	Quantity                decimal.Decimal
	Unit                    string
	CostPerStandardUnit     decimal.Decimal
	LineCost                decimal.Decimal
}

// RecipeDetail is a recipe with its lines and read-time costing.
type RecipeDetail struct {
	Recipe models.Recipe
	Lines  []RecipeLine
	Cost   cost.Breakdown
}

// costRow is the minimal projection needed to price a recipe line.
type costRow struct {
	RecipeID            uint
	CostPerStandardUnit decimal.Decimal
	Quantity            decimal.Decimal
}

type lineRow struct {
	IngredientID            uint
	Name                    string
	StandardMeasurementUnit string
	Quantity                decimal.Decimal
	Unit                    string
	CostPerStandardUnit     decimal.Decimal
}

// RecipeService manages recipes and their ingredient lines.
type RecipeService struct {
	db *gorm.DB
}

// NewRecipeService binds the service to a store handle.
func NewRecipeService(db *gorm.DB) *RecipeService {
	return &RecipeService{db: db}
}

// NormalizePage applies the listing defaults and bounds.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// List returns one page of recipes ordered by name, each with its calculated cost.
func (s *RecipeService) List(ctx context.Context, page, limit int) (RecipePage, error) {
	page, limit = NormalizePage(page, limit)
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Recipe{}).Count(&total).Error; err != nil {
		applog.Error(ctx, "failed to count recipes", "error", err)
		return RecipePage{}, unavailable("count recipes", err)
	}

	var recipes []models.Recipe
	err := db.Order("name asc").Order("id asc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&recipes).Error
	if err != nil {
		applog.Error(ctx, "failed to list recipes", "error", err, "page", page, "limit", limit)
		return RecipePage{}, unavailable("list recipes", err)
	}

	result := RecipePage{Items: make([]RecipeSummary, 0, len(recipes)), Total: total, Page: page, Limit: limit}
	if len(recipes) == 0 {
		return result, nil
	}

	ids := make([]uint, 0, len(recipes))
	for _, recipe := range recipes {
		ids = append(ids, recipe.ID)
	}

	var rows []costRow
	err = db.Table("recipe_ingredients AS ri").
		Select("ri.recipe_id, i.cost_per_standard_unit, ri.quantity").
		Joins("JOIN ingredients AS i ON i.id = ri.ingredient_id").
		Where("ri.recipe_id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		applog.Error(ctx, "failed to load recipe costs", "error", err)
		return RecipePage{}, unavailable("load recipe costs", err)
	}

	lines := make(map[uint][]cost.Line, len(recipes))
	for _, row := range rows {
		lines[row.RecipeID] = append(lines[row.RecipeID], cost.Line{
			CostPerStandardUnit: row.CostPerStandardUnit,
			Quantity:            row.Quantity,
		})
	}

	for _, recipe := range recipes {
		result.Items = append(result.Items, RecipeSummary{
			ID:             recipe.ID,
			Name:           recipe.Name,
			Price:          recipe.Price,
			CalculatedCost: cost.Calculated(lines[recipe.ID]),
		})
	}
	return result, nil
}

// Get returns the recipe, its lines and its costing. The recipe row and the lines are
// read with two separate queries.
func (s *RecipeService) Get(ctx context.Context, id uint) (RecipeDetail, error) {
	db := s.db.WithContext(ctx)

	recipe, err := s.get(db, id)
	if err != nil {
		return RecipeDetail{}, err
	}

	var rows []lineRow
	err = db.Table("recipe_ingredients AS ri").
		Select("ri.ingredient_id, i.name, i.standard_measurement_unit, ri.quantity, ri.unit, i.cost_per_standard_unit").
		Joins("JOIN ingredients AS i ON i.id = ri.ingredient_id").
		Where("ri.recipe_id = ?", id).
		Order("i.name asc").
		Scan(&rows).Error
	if err != nil {
		applog.Error(ctx, "failed to load recipe lines", "error", err, "id", id)
		return RecipeDetail{}, unavailable("load recipe lines", err)
	}

	detail := RecipeDetail{Recipe: recipe, Lines: make([]RecipeLine, 0, len(rows))}
	costLines := make([]cost.Line, 0, len(rows))
	for _, row := range rows {
		line := cost.Line{CostPerStandardUnit: row.CostPerStandardUnit, Quantity: row.Quantity}
		costLines = append(costLines, line)
		detail.Lines = append(detail.Lines, RecipeLine{
			IngredientID:            row.IngredientID,
			Name:                    row.Name,
			StandardMeasurementUnit: row.StandardMeasurementUnit,
			Quantity:                row.Quantity,
			Unit:                    row.Unit,
			CostPerStandardUnit:     row.CostPerStandardUnit,
			LineCost:                line.Total(),
		})
	}
	detail.Cost = cost.Summarize(costLines, recipe.ServingPortions, recipe.FinalYieldWeightGrams)
	return detail, nil
}

func (s *RecipeService) get(tx *gorm.DB, id uint) (models.Recipe, error) {
	var recipe models.Recipe
	if err := tx.First(&recipe, id).Error; err != nil {
		if isRecordNotFound(err) {
			return models.Recipe{}, notFound("Recipe not found")
		}
		applog.Error(tx.Statement.Context, "failed to load recipe", "error", err, "id", id)
		return models.Recipe{}, unavailable("load recipe", err)
	}
	return recipe, nil
}

func (in RecipeInput) validate() (string, decimal.Decimal, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", decimal.Zero, invalidInput("A recipe name is required")
	}
	price := decimal.Zero
	if in.Price != nil {
		price = *in.Price
	}
	if err := checkAmount("price", price); err != nil {
		return "", decimal.Zero, err
	}
	if price.IsNegative() {
		return "", decimal.Zero, invalidInput("price must not be negative")
	}
	return name, price, nil
}

// Create stores a new recipe with no lines and no yield.
func (s *RecipeService) Create(ctx context.Context, input RecipeInput) (models.Recipe, error) {
	name, price, err := input.validate()
	if err != nil {
		return models.Recipe{}, err
	}

	recipe := models.Recipe{Name: name, Price: price}
	if err := s.db.WithContext(ctx).Create(&recipe).Error; err != nil {
		return models.Recipe{}, recipeWriteError(ctx, "create recipe", err)
	}

	applog.Debug(ctx, "recipe created", "id", recipe.ID, "name", recipe.Name)
	return recipe, nil
}

// Update replaces the name and selling price of a recipe.
func (s *RecipeService) Update(ctx context.Context, id uint, input RecipeInput) (models.Recipe, error) {
	name, price, err := input.validate()
	if err != nil {
		return models.Recipe{}, err
	}

	var updated models.Recipe
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.get(tx, id)
		if err != nil {
			return err
		}
		existing.Name = name
		existing.Price = price

		result := tx.Model(&existing).Select("name", "price", "updated_at").Updates(&existing)
		if result.Error != nil {
			return recipeWriteError(ctx, "update recipe", result.Error)
		}
		if result.RowsAffected == 0 {
			return notFound("Recipe not found")
		}
		updated = existing
		return nil
	})
	if err != nil {
		return models.Recipe{}, err
	}
	return updated, nil
}

// UpdateYield changes only the yield fields present in input.
func (s *RecipeService) UpdateYield(ctx context.Context, id uint, input YieldInput) error {
	changes := make(map[string]any, 2)
	if input.FinalYieldWeightGrams != nil {
		if err := checkAmount("final_yield_weight_grams", *input.FinalYieldWeightGrams); err != nil {
			return err
		}
		if input.FinalYieldWeightGrams.IsNegative() {
			return invalidInput("final_yield_weight_grams must not be negative")
		}
		changes["final_yield_weight_grams"] = *input.FinalYieldWeightGrams
	}
	if input.ServingPortions != nil {
		if *input.ServingPortions < 0 {
			return invalidInput("serving_portions must not be negative")
		}
		if *input.ServingPortions > math.MaxInt32 {
			return invalidInput("serving_portions is out of range")
		}
		changes["serving_portions"] = *input.ServingPortions
	}
	if len(changes) == 0 {
		return invalidInput("No valid fields to update.")
	}

	result := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("id = ?", id).Updates(changes)
	if result.Error != nil {
		if v, _ := storeViolation(result.Error); v == violationCheck {
			return &Error{Kind: KindInvalidInput, Message: "Yield values violate a constraint", Err: result.Error}
		}
		applog.Error(ctx, "failed to update recipe yield", "error", result.Error, "id", id)
		return unavailable("update recipe yield", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("Recipe not found")
	}
	applog.Debug(ctx, "recipe yield updated", "id", id, "fields", len(changes))
	return nil
}

// Delete removes the recipe and, through the cascade, its lines. The removed row is returned.
func (s *RecipeService) Delete(ctx context.Context, id uint) (models.Recipe, error) {
	var deleted models.Recipe
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipe, err := s.get(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(&recipe).Error; err != nil {
			applog.Error(ctx, "failed to delete recipe", "error", err, "id", id)
			return unavailable("delete recipe", err)
		}
		deleted = recipe
		return nil
	})
	if err != nil {
		return models.Recipe{}, err
	}
	applog.Debug(ctx, "recipe deleted", "id", id)
	return deleted, nil
}

// DeleteMany removes every listed recipe that exists. It fails only when none matched.
func (s *RecipeService) DeleteMany(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, invalidInput("Please provide an array of IDs to delete.")
	}

	result := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Recipe{})
	if result.Error != nil {
		applog.Error(ctx, "failed to delete recipes", "error", result.Error, "count", len(ids))
		return 0, unavailable("delete recipes", result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, notFound("None of the provided recipe IDs were found.")
	}
	applog.Debug(ctx, "recipes deleted", "requested", len(ids), "deleted", result.RowsAffected)
	return result.RowsAffected, nil
}

// AddIngredient links an ingredient to a recipe. Each ingredient may appear once per recipe.
func (s *RecipeService) AddIngredient(ctx context.Context, recipeID uint, input RecipeLineInput) (models.RecipeIngredient, error) {
	unit := strings.TrimSpace(input.Unit)
	if input.IngredientID == 0 || input.Quantity == nil || unit == "" {
		return models.RecipeIngredient{}, invalidInput("Please provide an ingredient_id, quantity, and unit")
	}
	if err := checkAmount("quantity", *input.Quantity); err != nil {
		return models.RecipeIngredient{}, err
	}
	if !input.Quantity.IsPositive() {
		return models.RecipeIngredient{}, invalidInput("quantity must be greater than zero")
	}

	line := models.RecipeIngredient{
		RecipeID:     recipeID,
		IngredientID: input.IngredientID,
		Quantity:     *input.Quantity,
		Unit:         unit,
	}
	db := s.db.WithContext(ctx)
	if err := db.Create(&line).Error; err != nil {
		switch v, _ := storeViolation(err); v {
		case violationUnique:
			return models.RecipeIngredient{}, &Error{Kind: KindConflict, Message: "This ingredient is already in this recipe. Please update the quantity instead.", Err: err}
		case violationForeignKey:
			return models.RecipeIngredient{}, s.missingRelation(db, recipeID, err)
		case violationCheck:
			return models.RecipeIngredient{}, &Error{Kind: KindInvalidInput, Message: "quantity must be greater than zero", Err: err}
		}
		applog.Error(ctx, "failed to add recipe line", "error", err, "recipe_id", recipeID, "ingredient_id", input.IngredientID)
		return models.RecipeIngredient{}, unavailable("add recipe line", err)
	}

	applog.Debug(ctx, "recipe line added", "recipe_id", recipeID, "ingredient_id", input.IngredientID)
	return line, nil
}

// missingRelation works out which side of a failed recipe line insert does not exist.
func (s *RecipeService) missingRelation(db *gorm.DB, recipeID uint, cause error) error {
	missing := "Ingredient"
	var count int64
	if err := db.Model(&models.Recipe{}).Where("id = ?", recipeID).Count(&count).Error; err == nil && count == 0 {
		missing = "Recipe"
	}
	return &Error{Kind: KindReferentialIntegrity, Message: missing + " not found", Err: cause}
}

// UpdateIngredientQuantity sets the quantity of an existing recipe line.
func (s *RecipeService) UpdateIngredientQuantity(ctx context.Context, recipeID, ingredientID uint, quantity *decimal.Decimal) (models.RecipeIngredient, error) {
	if quantity == nil {
		return models.RecipeIngredient{}, invalidInput("Please provide a quantity")
	}
	if err := checkAmount("quantity", *quantity); err != nil {
		return models.RecipeIngredient{}, err
	}
	if !quantity.IsPositive() {
		return models.RecipeIngredient{}, invalidInput("quantity must be greater than zero")
	}

	var updated models.RecipeIngredient
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		line, err := s.line(tx, recipeID, ingredientID)
		if err != nil {
			return err
		}
		line.Quantity = *quantity

		result := tx.Model(&line).Select("quantity", "updated_at").Updates(&line)
		if result.Error != nil {
			applog.Error(ctx, "failed to update recipe line", "error", result.Error, "recipe_id", recipeID, "ingredient_id", ingredientID)
			return unavailable("update recipe line", result.Error)
		}
		if result.RowsAffected == 0 {
			return notFound("Ingredient not found in this recipe")
		}
		updated = line
		return nil
	})
	if err != nil {
		return models.RecipeIngredient{}, err
	}
	return updated, nil
}

// RemoveIngredient deletes a recipe line and returns it.
func (s *RecipeService) RemoveIngredient(ctx context.Context, recipeID, ingredientID uint) (models.RecipeIngredient, error) {
	var removed models.RecipeIngredient
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		line, err := s.line(tx, recipeID, ingredientID)
		if err != nil {
			return err
		}
		err = tx.Where("recipe_id = ? AND ingredient_id = ?", recipeID, ingredientID).
			Delete(&models.RecipeIngredient{}).Error
		if err != nil {
			applog.Error(ctx, "failed to remove recipe line", "error", err, "recipe_id", recipeID, "ingredient_id", ingredientID)
			return unavailable("remove recipe line", err)
		}
		removed = line
		return nil
	})
	if err != nil {
		return models.RecipeIngredient{}, err
	}
	return removed, nil
}

func (s *RecipeService) line(tx *gorm.DB, recipeID, ingredientID uint) (models.RecipeIngredient, error) {
	var line models.RecipeIngredient
	err := tx.Where("recipe_id = ? AND ingredient_id = ?", recipeID, ingredientID).First(&line).Error
	if err != nil {
		if isRecordNotFound(err) {
			return models.RecipeIngredient{}, notFound("Ingredient not found in this recipe")
		}
		return models.RecipeIngredient{}, unavailable("load recipe line", err)
	}
	return line, nil
}

func recipeWriteError(ctx context.Context, op string, err error) error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	switch v, _ := storeViolation(err); v {
	case violationUnique:
		return &Error{Kind: KindDuplicateName, Message: "A recipe with this name already exists.", Err: err}
	case violationCheck, violationNotNull:
		return &Error{Kind: KindInvalidInput, Message: "Recipe values violate a constraint", Err: err}
	}
	applog.Error(ctx, "recipe write failed", "op", op, "error", err)
	return unavailable(op, err)
}
