package handlers

import (
	"net/http"

	"platecost/internal/service"
	"platecost/models"
)

type ingredientRequest struct {
	Name                        string       `json:"name"`
	StandardMeasurementUnit     string       `json:"standard_measurement_unit"`
	PurchasePackPrice           decimalField `json:"purchase_pack_price"`
	PackQuantityInStandardUnits decimalField `json:"pack_quantity_in_standard_units"`
}

func (p ingredientRequest) input() service.IngredientInput {
	return service.IngredientInput{
		Name:                        p.Name,
		StandardMeasurementUnit:     p.StandardMeasurementUnit,
		PurchasePackPrice:           p.PurchasePackPrice.Ptr(),
		PackQuantityInStandardUnits: p.PackQuantityInStandardUnits.Ptr(),
	}
}

func (a *API) listIngredients(w http.ResponseWriter, r *http.Request) {
	ingredients, err := a.ingredients.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if ingredients == nil {
		ingredients = []models.Ingredient{}
	}
	writeJSON(w, http.StatusOK, ingredients)
}

func (a *API) showIngredient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ingredient, err := a.ingredients.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ingredient)
}

func (a *API) createIngredient(w http.ResponseWriter, r *http.Request) {
	var payload ingredientRequest
	if !readPayload(w, r, &payload) {
		return
	}
	ingredient, err := a.ingredients.Create(r.Context(), payload.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ingredient)
}

func (a *API) updateIngredient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var payload ingredientRequest
	if !readPayload(w, r, &payload) {
		return
	}
	ingredient, err := a.ingredients.Update(r.Context(), id, payload.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ingredient)
}

func (a *API) deleteIngredient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := a.ingredients.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Msg: "Ingredient deleted successfully"})
}
