package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mealsync/server/internal/events"
	"github.com/mealsync/server/internal/middleware"
	"github.com/mealsync/server/internal/models"
	"github.com/mealsync/server/internal/repository"
)

// PlannedItemHandler handles meal plan CRUD endpoints. Every mutation
// publishes the matching domain event so the sync engine picks it up.
type PlannedItemHandler struct {
	itemRepo   repository.PlannedItemRepo
	recipeRepo repository.RecipeRepo
	bus        *events.Bus
}

// NewPlannedItemHandler creates a new PlannedItemHandler
func NewPlannedItemHandler(itemRepo repository.PlannedItemRepo, recipeRepo repository.RecipeRepo, bus *events.Bus) *PlannedItemHandler {
	return &PlannedItemHandler{
		itemRepo:   itemRepo,
		recipeRepo: recipeRepo,
		bus:        bus,
	}
}

// PlanItem schedules a recipe or note onto a date and meal slot
// @Summary Plan an item
// @Description Schedules a recipe or free-text note onto a date and meal slot
// @Tags items
// @Accept json
// @Produce json
// @Param request body models.PlanItemRequest true "Item"
// @Success 201 {object} models.PlannedItem
// @Failure 400 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/items [post]
func (h *PlannedItemHandler) PlanItem(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.PlanItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !models.ValidSlot(req.Slot) {
		http.Error(w, "Invalid meal slot", http.StatusBadRequest)
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	title := req.Title
	switch req.ItemType {
	case models.ItemTypeRecipe:
		if req.RecipeID == nil {
			http.Error(w, "recipeId is required for recipe items", http.StatusBadRequest)
			return
		}
		recipe, err := h.recipeRepo.GetByID(r.Context(), *req.RecipeID)
		if err != nil {
			http.Error(w, "Database error", http.StatusInternalServerError)
			return
		}
		if recipe == nil {
			http.Error(w, "Recipe not found", http.StatusNotFound)
			return
		}
		title = recipe.Name
	case models.ItemTypeNote:
		if title == "" {
			http.Error(w, "Title is required for note items", http.StatusBadRequest)
			return
		}
	default:
		http.Error(w, "Invalid item type", http.StatusBadRequest)
		return
	}

	item := models.NewPlannedItem(user.ID, req.ItemType, title, req.Slot, date)
	item.RecipeID = req.RecipeID
	item.HouseholdID = req.HouseholdID

	if err := h.itemRepo.Add(r.Context(), item); err != nil {
		http.Error(w, "Failed to save item", http.StatusInternalServerError)
		return
	}

	h.bus.Publish(events.ItemPlanned, &events.ItemEvent{UserID: user.ID, Item: item})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(item)
}

// ListItems returns the current user's planned items
// @Summary List planned items
// @Tags items
// @Produce json
// @Success 200 {array} models.PlannedItem
// @Security ApiKeyAuth
// @Router /api/items [get]
func (h *PlannedItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	items, err := h.itemRepo.ListByUser(r.Context(), user.ID)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []*models.PlannedItem{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

// UpdateItem moves or retitles a planned item
// @Summary Update a planned item
// @Description Changes a planned item's date, slot or title
// @Tags items
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param request body models.UpdateItemRequest true "Changes"
// @Success 200 {object} models.PlannedItem
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/items/{id} [put]
func (h *PlannedItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	item, err := h.itemRepo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if item == nil || item.UserID != user.ID {
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}

	var req models.UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Title != "" {
		item.Title = req.Title
	}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		item.Date = date
	}
	if req.Slot != "" {
		if !models.ValidSlot(req.Slot) {
			http.Error(w, "Invalid meal slot", http.StatusBadRequest)
			return
		}
		item.Slot = req.Slot
	}

	if err := h.itemRepo.Update(r.Context(), item); err != nil {
		http.Error(w, "Failed to update item", http.StatusInternalServerError)
		return
	}

	h.bus.Publish(events.ItemUpdated, &events.ItemEvent{UserID: user.ID, Item: item})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(item)
}

// DeleteItem unplans an item
// @Summary Delete a planned item
// @Tags items
// @Param id path string true "Item ID"
// @Success 204 "Deleted"
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/items/{id} [delete]
func (h *PlannedItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	itemID := chi.URLParam(r, "id")
	item, err := h.itemRepo.GetByID(r.Context(), itemID)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if item == nil || item.UserID != user.ID {
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}

	if _, err := h.itemRepo.Delete(r.Context(), itemID); err != nil {
		http.Error(w, "Failed to delete item", http.StatusInternalServerError)
		return
	}

	h.bus.Publish(events.ItemDeleted, &events.ItemDeletedEvent{UserID: user.ID, ItemID: itemID})

	w.WriteHeader(http.StatusNoContent)
}

// CreateRecipe creates a recipe
// @Summary Create a recipe
// @Tags recipes
// @Accept json
// @Produce json
// @Param request body models.CreateRecipeRequest true "Recipe"
// @Success 201 {object} models.Recipe
// @Failure 400 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/recipes [post]
func (h *PlannedItemHandler) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.CreateRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "Recipe name is required", http.StatusBadRequest)
		return
	}

	recipe := models.NewRecipe(user.ID, req.Name)
	if err := h.recipeRepo.Add(r.Context(), recipe); err != nil {
		http.Error(w, "Failed to save recipe", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(recipe)
}

// RenameRecipe renames a recipe and retitles its planned instances
// @Summary Rename a recipe
// @Description Renames the recipe, updates every planned instance's title and resyncs their calendar events
// @Tags recipes
// @Accept json
// @Produce json
// @Param id path string true "Recipe ID"
// @Param request body models.RenameRecipeRequest true "New name"
// @Success 200 {object} models.Recipe
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/recipes/{id}/rename [post]
func (h *PlannedItemHandler) RenameRecipe(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	recipeID := chi.URLParam(r, "id")
	recipe, err := h.recipeRepo.GetByID(r.Context(), recipeID)
	if err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	if recipe == nil || recipe.UserID != user.ID {
		http.Error(w, "Recipe not found", http.StatusNotFound)
		return
	}

	var req models.RenameRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "Recipe name is required", http.StatusBadRequest)
		return
	}

	if err := h.recipeRepo.Rename(r.Context(), recipeID, req.Name); err != nil {
		http.Error(w, "Failed to rename recipe", http.StatusInternalServerError)
		return
	}
	if _, err := h.itemRepo.UpdateTitlesByRecipe(r.Context(), recipeID, req.Name); err != nil {
		http.Error(w, "Failed to update planned items", http.StatusInternalServerError)
		return
	}

	h.bus.Publish(events.RecipeRenamed, &events.RecipeRenamedEvent{
		UserID:   user.ID,
		RecipeID: recipeID,
		NewName:  req.Name,
	})

	recipe.Name = req.Name
	recipe.UpdatedAt = time.Now().UTC()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(recipe)
}
