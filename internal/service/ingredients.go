package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"platecost/internal/cost"
	applog "platecost/internal/log"
	"platecost/models"
)

// ingredientColumns lists every column a full replace writes. The derived unit cost is
// part of it so that the hook-recomputed value is persisted with its inputs.
var ingredientColumns = []string{
	"name",
	"standard_measurement_unit",
	"purchase_pack_price",
	"pack_quantity_in_standard_units",
	"cost_per_standard_unit",
	"updated_at",
}

// IngredientInput carries the user supplied fields of an ingredient. Nil pointers mean
// the field was not supplied.
type IngredientInput struct {
	Name                        string
	StandardMeasurementUnit     string
	PurchasePackPrice           *decimal.Decimal
	PackQuantityInStandardUnits *decimal.Decimal
}

func (in IngredientInput) validate() (IngredientInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.StandardMeasurementUnit = strings.TrimSpace(in.StandardMeasurementUnit)

	if in.Name == "" || in.StandardMeasurementUnit == "" || in.PurchasePackPrice == nil || in.PackQuantityInStandardUnits == nil {
		return in, invalidInput("Please provide all required fields")
	}
	if err := checkAmount("purchase_pack_price", *in.PurchasePackPrice); err != nil {
		return in, err
	}
	if err := checkAmount("pack_quantity_in_standard_units", *in.PackQuantityInStandardUnits); err != nil {
		return in, err
	}
	if in.PurchasePackPrice.IsNegative() {
		return in, invalidInput("purchase_pack_price must not be negative")
	}
	if !in.PackQuantityInStandardUnits.IsPositive() {
		return in, invalidInput("pack_quantity_in_standard_units must be greater than zero")
	}
	return in, nil
}

func (in IngredientInput) apply(ingredient *models.Ingredient) error {
	ingredient.Name = in.Name
	ingredient.StandardMeasurementUnit = in.StandardMeasurementUnit
	if err := ingredient.Reprice(*in.PurchasePackPrice, *in.PackQuantityInStandardUnits); err != nil {
		switch {
		case errors.Is(err, cost.ErrInvalidQuantity):
			return invalidInput("pack_quantity_in_standard_units must be greater than zero")
		case errors.Is(err, cost.ErrOutOfRange):
			return &Error{Kind: KindInvalidInput, Message: "cost_per_standard_unit is out of range", Err: err}
		}
		return err
	}
	return nil
}

// IngredientService manages the ingredients table.
type IngredientService struct {
	db *gorm.DB
}

// NewIngredientService binds the service to a store handle.
func NewIngredientService(db *gorm.DB) *IngredientService {
	return &IngredientService{db: db}
}

// List returns all ingredients ordered by name. A non-empty search keeps only names
// containing it, ignoring case.
func (s *IngredientService) List(ctx context.Context, search string) ([]models.Ingredient, error) {
	query := s.db.WithContext(ctx).Order("name asc")
	if term := strings.TrimSpace(search); term != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(term))+"%")
	}

	var ingredients []models.Ingredient
	if err := query.Find(&ingredients).Error; err != nil {
		applog.Error(ctx, "failed to list ingredients", "error", err)
		return nil, unavailable("list ingredients", err)
	}
	return ingredients, nil
}

// Get loads one ingredient.
func (s *IngredientService) Get(ctx context.Context, id uint) (models.Ingredient, error) {
	return s.get(s.db.WithContext(ctx), id)
}

func (s *IngredientService) get(tx *gorm.DB, id uint) (models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := tx.First(&ingredient, id).Error; err != nil {
		if isRecordNotFound(err) {
			return models.Ingredient{}, notFound("Ingredient not found")
		}
		applog.Error(tx.Statement.Context, "failed to load ingredient", "error", err, "id", id)
		return models.Ingredient{}, unavailable("load ingredient", err)
	}
	return ingredient, nil
}

// Create validates the input, derives the unit cost and stores a new ingredient.
func (s *IngredientService) Create(ctx context.Context, input IngredientInput) (models.Ingredient, error) {
	input, err := input.validate()
	if err != nil {
		return models.Ingredient{}, err
	}

	var ingredient models.Ingredient
	if err := input.apply(&ingredient); err != nil {
		return models.Ingredient{}, err
	}

	if err := s.db.WithContext(ctx).Create(&ingredient).Error; err != nil {
		return models.Ingredient{}, s.writeError(ctx, "create ingredient", input.Name, err)
	}

	applog.Debug(ctx, "ingredient created", "id", ingredient.ID, "name", ingredient.Name)
	return ingredient, nil
}

// Update replaces every user supplied field of an ingredient and recomputes its unit cost.
func (s *IngredientService) Update(ctx context.Context, id uint, input IngredientInput) (models.Ingredient, error) {
	input, err := input.validate()
	if err != nil {
		return models.Ingredient{}, err
	}

	var updated models.Ingredient
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.get(tx, id)
		if err != nil {
			return err
		}
		if err := input.apply(&existing); err != nil {
			return err
		}
		if err := s.replace(tx, &existing); err != nil {
			return s.writeError(ctx, "update ingredient", input.Name, err)
		}
		updated = existing
		return nil
	})
	if err != nil {
		return models.Ingredient{}, err
	}

	applog.Debug(ctx, "ingredient updated", "id", updated.ID, "cost_per_standard_unit", updated.CostPerStandardUnit.String())
	return updated, nil
}

// Upsert creates the ingredient or fully replaces the one with the same name.
func (s *IngredientService) Upsert(ctx context.Context, input IngredientInput) (models.Ingredient, bool, error) {
	input, err := input.validate()
	if err != nil {
		return models.Ingredient{}, false, err
	}

	var (
		result  models.Ingredient
		created bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Ingredient
		err := tx.Where("name = ?", input.Name).First(&existing).Error
		switch {
		case err == nil:
		case isRecordNotFound(err):
			created = true
		default:
			return unavailable("find ingredient by name", err)
		}

		if err := input.apply(&existing); err != nil {
			return err
		}

		if created {
			err = tx.Create(&existing).Error
		} else {
			err = s.replace(tx, &existing)
		}
		if err != nil {
			return s.writeError(ctx, "upsert ingredient", input.Name, err)
		}
		result = existing
		return nil
	})
	if err != nil {
		return models.Ingredient{}, false, err
	}
	return result, created, nil
}

func (s *IngredientService) replace(tx *gorm.DB, ingredient *models.Ingredient) error {
	result := tx.Model(ingredient).Select(ingredientColumns).Updates(ingredient)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes an ingredient that no recipe line references.
func (s *IngredientService) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Ingredient{}, id)
	if result.Error != nil {
		if v, _ := storeViolation(result.Error); v == violationForeignKey {
			return &Error{
				Kind:    KindConflict,
				Message: "Ingredient is used by one or more recipes. Remove it from those recipes first.",
				Err:     result.Error,
			}
		}
		applog.Error(ctx, "failed to delete ingredient", "error", result.Error, "id", id)
		return unavailable("delete ingredient", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("Ingredient not found")
	}
	applog.Debug(ctx, "ingredient deleted", "id", id)
	return nil
}

func (s *IngredientService) writeError(ctx context.Context, op, name string, err error) error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	if isRecordNotFound(err) {
		return notFound("Ingredient not found")
	}
	switch v, _ := storeViolation(err); v {
	case violationUnique:
		return &Error{Kind: KindDuplicateName, Message: "An ingredient with this name already exists.", Err: err}
	case violationCheck, violationNotNull:
		return &Error{Kind: KindInvalidInput, Message: "Ingredient values violate a constraint", Err: err}
	}
	applog.Error(ctx, "ingredient write failed", "op", op, "name", name, "error", err)
	return unavailable(op, err)
}

// escapeLike neutralises LIKE wildcards in user supplied search terms.
func escapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}
