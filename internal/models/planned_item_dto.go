package models

// PlanItemRequest is the request body for planning a meal or note
type PlanItemRequest struct {
	ItemType    string  `json:"itemType"`
	Title       string  `json:"title"`
	RecipeID    *string `json:"recipeId,omitempty"`
	HouseholdID *string `json:"householdId,omitempty"`
	Date        string  `json:"date"` // YYYY-MM-DD
	Slot        string  `json:"slot"`
}

// UpdateItemRequest moves or retitles a planned item
type UpdateItemRequest struct {
	Title string `json:"title,omitempty"`
	Date  string `json:"date,omitempty"`
	Slot  string `json:"slot,omitempty"`
}

// CreateRecipeRequest is the request body for creating a recipe
type CreateRecipeRequest struct {
	Name string `json:"name"`
}

// RenameRecipeRequest is the request body for renaming a recipe
type RenameRecipeRequest struct {
	Name string `json:"name"`
}
