package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	applog "platecost/internal/log"
	"platecost/internal/service"
	"platecost/models"
)

// IngredientService is the ingredient behaviour the API depends on.
type IngredientService interface {
	List(ctx context.Context, search string) ([]models.Ingredient, error)
	Get(ctx context.Context, id uint) (models.Ingredient, error)
	Create(ctx context.Context, input service.IngredientInput) (models.Ingredient, error)
	Update(ctx context.Context, id uint, input service.IngredientInput) (models.Ingredient, error)
	Delete(ctx context.Context, id uint) error
}

// RecipeService is the recipe behaviour the API depends on.
type RecipeService interface {
	List(ctx context.Context, page, limit int) (service.RecipePage, error)
	Get(ctx context.Context, id uint) (service.RecipeDetail, error)
	Create(ctx context.Context, input service.RecipeInput) (models.Recipe, error)
	Update(ctx context.Context, id uint, input service.RecipeInput) (models.Recipe, error)
	UpdateYield(ctx context.Context, id uint, input service.YieldInput) error
	Delete(ctx context.Context, id uint) (models.Recipe, error)
	DeleteMany(ctx context.Context, ids []uint) (int64, error)
	AddIngredient(ctx context.Context, recipeID uint, input service.RecipeLineInput) (models.RecipeIngredient, error)
	UpdateIngredientQuantity(ctx context.Context, recipeID, ingredientID uint, quantity *decimal.Decimal) (models.RecipeIngredient, error)
	RemoveIngredient(ctx context.Context, recipeID, ingredientID uint) (models.RecipeIngredient, error)
}

// API serves the JSON interface over ingredients and recipes.
type API struct {
	ingredients IngredientService
	recipes     RecipeService
}

func NewAPI(ingredients IngredientService, recipes RecipeService) *API {
	return &API{ingredients: ingredients, recipes: recipes}
}

// Register mounts every API route on r. Callers pass the /api subrouter.
func (a *API) Register(r *mux.Router) {
	r.HandleFunc("/ingredients", a.listIngredients).Methods(http.MethodGet)
	r.HandleFunc("/ingredients", a.createIngredient).Methods(http.MethodPost)
	r.HandleFunc("/ingredients/{id}", a.showIngredient).Methods(http.MethodGet)
	r.HandleFunc("/ingredients/{id}", a.updateIngredient).Methods(http.MethodPut)
	r.HandleFunc("/ingredients/{id}", a.deleteIngredient).Methods(http.MethodDelete)

	r.HandleFunc("/recipes", a.listRecipes).Methods(http.MethodGet)
	r.HandleFunc("/recipes", a.createRecipe).Methods(http.MethodPost)
	r.HandleFunc("/recipes", a.deleteRecipes).Methods(http.MethodDelete)
	r.HandleFunc("/recipes/{id}", a.showRecipe).Methods(http.MethodGet)
	r.HandleFunc("/recipes/{id}", a.updateRecipe).Methods(http.MethodPut)
	r.HandleFunc("/recipes/{id}", a.deleteRecipe).Methods(http.MethodDelete)
	r.HandleFunc("/recipes/{id}/yield", a.updateRecipeYield).Methods(http.MethodPatch)
	r.HandleFunc("/recipes/{id}/ingredients", a.addRecipeIngredient).Methods(http.MethodPost)
	r.HandleFunc("/recipes/{id}/ingredients/{ingredientId}", a.updateRecipeIngredient).Methods(http.MethodPut)
	r.HandleFunc("/recipes/{id}/ingredients/{ingredientId}", a.removeRecipeIngredient).Methods(http.MethodDelete)
}

// Unavailable answers every request with 503. It stands in for the API when no
// database is configured.
func Unavailable(w http.ResponseWriter, r *http.Request) {
	applog.Debug(r.Context(), "api request without database", "path", r.URL.Path)
	writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
}
