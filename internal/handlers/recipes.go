package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	applog "platecost/internal/log"
	"platecost/internal/service"
	"platecost/models"
)

type recipeRequest struct {
	Name  string       `json:"name"`
	Price decimalField `json:"price"`
}

type yieldRequest struct {
	FinalYieldWeightGrams decimalField `json:"final_yield_weight_grams"`
	ServingPortions       decimalField `json:"serving_portions"`
}

type recipeLineRequest struct {
	IngredientID decimalField `json:"ingredient_id"`
	Quantity     decimalField `json:"quantity"`
	Unit         string       `json:"unit"`
}

type quantityRequest struct {
	Quantity decimalField `json:"quantity"`
}

type bulkDeleteRequest struct {
	IDs json.RawMessage `json:"ids"`
}

type recipeLineResponse struct {
	IngredientID            uint            `json:"ingredient_id"`
	Name                    string          `json:"name"`
	Quantity                decimal.Decimal `json:"quantity"`
	Unit                    string          `json:"unit"`
	StandardMeasurementUnit string          `json:"standard_measurement_unit"`
	CostPerStandardUnit     decimal.Decimal `json:"cost_per_standard_unit"`
	LineCost                decimal.Decimal `json:"line_cost"`
}

type recipeDetailResponse struct {
	ID                    uint                 `json:"id"`
	Name                  string               `json:"name"`
	SellingPrice          decimal.Decimal      `json:"selling_price"`
	FinalYieldWeightGrams decimal.NullDecimal  `json:"final_yield_weight_grams"`
	ServingPortions       *int                 `json:"serving_portions"`
	CalculatedCost        decimal.Decimal      `json:"calculated_cost"`
	CostPerPortion        decimal.NullDecimal  `json:"cost_per_portion"`
	CostPerKg             decimal.NullDecimal  `json:"cost_per_kg"`
	CreatedAt             time.Time            `json:"created_at"`
	Ingredients           []recipeLineResponse `json:"ingredients"`
}

type recipeDeletedResponse struct {
	Msg           string        `json:"msg"`
	DeletedRecipe models.Recipe `json:"deletedRecipe"`
}

type bulkDeletedResponse struct {
	Msg     string `json:"msg"`
	Deleted int64  `json:"deleted"`
}

type lineRemovedResponse struct {
	Msg               string                  `json:"msg"`
	DeletedIngredient models.RecipeIngredient `json:"deletedIngredient"`
}

func projectRecipeDetail(detail service.RecipeDetail) recipeDetailResponse {
	lines := make([]recipeLineResponse, 0, len(detail.Lines))
	for _, line := range detail.Lines {
		lines = append(lines, recipeLineResponse{
			IngredientID:            line.IngredientID,
			Name:                    line.Name,
			Quantity:                line.Quantity,
			Unit:                    line.Unit,
			StandardMeasurementUnit: line.StandardMeasurementUnit,
			CostPerStandardUnit:     line.CostPerStandardUnit,
			LineCost:                line.LineCost,
		})
	}

	return recipeDetailResponse{
		ID:                    detail.Recipe.ID,
		Name:                  detail.Recipe.Name,
		SellingPrice:          detail.Recipe.Price,
		FinalYieldWeightGrams: detail.Recipe.FinalYieldWeightGrams,
		ServingPortions:       detail.Recipe.ServingPortions,
		CalculatedCost:        detail.Cost.Calculated,
		CostPerPortion:        detail.Cost.PerPortion,
		CostPerKg:             detail.Cost.PerKg,
		CreatedAt:             detail.Recipe.CreatedAt,
		Ingredients:           lines,
	}
}

func (a *API) listRecipes(w http.ResponseWriter, r *http.Request) {
	page, okPage := queryInt(r, "page")
	limit, okLimit := queryInt(r, "limit")
	if !okPage || !okLimit {
		writeJSONError(w, http.StatusBadRequest, "page and limit must be integers")
		return
	}

	result, err := a.recipes.List(r.Context(), page, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) showRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	detail, err := a.recipes.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projectRecipeDetail(detail))
}

func (a *API) createRecipe(w http.ResponseWriter, r *http.Request) {
	var payload recipeRequest
	if !readPayload(w, r, &payload) {
		return
	}
	recipe, err := a.recipes.Create(r.Context(), service.RecipeInput{Name: payload.Name, Price: payload.Price.Ptr()})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, recipe)
}

func (a *API) updateRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var payload recipeRequest
	if !readPayload(w, r, &payload) {
		return
	}
	recipe, err := a.recipes.Update(r.Context(), id, service.RecipeInput{Name: payload.Name, Price: payload.Price.Ptr()})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

func (a *API) updateRecipeYield(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var payload yieldRequest
	if !readPayload(w, r, &payload) {
		return
	}

	input := service.YieldInput{FinalYieldWeightGrams: payload.FinalYieldWeightGrams.Ptr()}
	if payload.ServingPortions.Set {
		portions, whole := payload.ServingPortions.Whole()
		if !whole {
			writeJSONError(w, http.StatusBadRequest, "serving_portions must be a whole number")
			return
		}
		value := int(portions)
		input.ServingPortions = &value
	}

	if err := a.recipes.UpdateYield(r.Context(), id, input); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Msg: "Yield information updated successfully."})
}

func (a *API) deleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	recipe, err := a.recipes.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recipeDeletedResponse{Msg: "Recipe deleted successfully", DeletedRecipe: recipe})
}

// parseIDs accepts integers and integer strings. Anything else rejects the whole list.
func parseIDs(raw json.RawMessage) ([]uint, bool, error) {
	var items []json.RawMessage
	if len(raw) == 0 {
		return nil, false, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false, nil
	}

	ids := make([]uint, 0, len(items))
	for _, item := range items {
		var field decimalField
		if err := json.Unmarshal(item, &field); err != nil {
			return nil, true, err
		}
		value, whole := field.Whole()
		if !whole || value <= 0 {
			return nil, true, fmt.Errorf("invalid id %s", item)
		}
		ids = append(ids, uint(value))
	}
	return ids, true, nil
}

func (a *API) deleteRecipes(w http.ResponseWriter, r *http.Request) {
	var payload bulkDeleteRequest
	if !readPayload(w, r, &payload) {
		return
	}

	ids, isArray, err := parseIDs(payload.IDs)
	if !isArray {
		writeJSONError(w, http.StatusBadRequest, "Please provide an array of IDs to delete.")
		return
	}
	if err != nil {
		applog.Debug(r.Context(), "invalid recipe id list", "error", err)
		writeJSONError(w, http.StatusBadRequest, "All IDs must be valid integers.")
		return
	}

	deleted, err := a.recipes.DeleteMany(r.Context(), ids)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkDeletedResponse{
		Msg:     fmt.Sprintf("%d Recipe(s) deleted successfully.", deleted),
		Deleted: deleted,
	})
}

func (a *API) addRecipeIngredient(w http.ResponseWriter, r *http.Request) {
	recipeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var payload recipeLineRequest
	if !readPayload(w, r, &payload) {
		return
	}

	input := service.RecipeLineInput{Quantity: payload.Quantity.Ptr(), Unit: payload.Unit}
	if payload.IngredientID.Set {
		value, whole := payload.IngredientID.Whole()
		if !whole || value <= 0 {
			writeJSONError(w, http.StatusBadRequest, "ingredient_id must be a positive integer")
			return
		}
		input.IngredientID = uint(value)
	}

	line, err := a.recipes.AddIngredient(r.Context(), recipeID, input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, line)
}

func (a *API) updateRecipeIngredient(w http.ResponseWriter, r *http.Request) {
	recipeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ingredientID, ok := pathID(w, r, "ingredientId")
	if !ok {
		return
	}
	var payload quantityRequest
	if !readPayload(w, r, &payload) {
		return
	}

	line, err := a.recipes.UpdateIngredientQuantity(r.Context(), recipeID, ingredientID, payload.Quantity.Ptr())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (a *API) removeRecipeIngredient(w http.ResponseWriter, r *http.Request) {
	recipeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ingredientID, ok := pathID(w, r, "ingredientId")
	if !ok {
		return
	}

	line, err := a.recipes.RemoveIngredient(r.Context(), recipeID, ingredientID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lineRemovedResponse{Msg: "Ingredient removed successfully", DeletedIngredient: line})
}
