package dto

import "github.com/recipebox/recipebox/internal/model"

// NameRequest is the write body shared by tags and ingredients.
// Name is a pointer so an omitted field can be told apart from "".
type NameRequest struct {
	Name *string `json:"name"`
}

// TagResponse represents a tag in API responses.
type TagResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IngredientResponse represents an ingredient in API responses.
type IngredientResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ToTagResponse converts a model.Tag.
func ToTagResponse(tag *model.Tag) TagResponse {
	return TagResponse{ID: tag.ID, Name: tag.Name}
}

// ToTagList converts a slice of tags. The result is never nil.
func ToTagList(tags []model.Tag) []TagResponse {
	out := make([]TagResponse, len(tags))
	for i := range tags {
		out[i] = ToTagResponse(&tags[i])
	}
	return out
}

// ToIngredientResponse converts a model.Ingredient.
func ToIngredientResponse(ing *model.Ingredient) IngredientResponse {
	return IngredientResponse{ID: ing.ID, Name: ing.Name}
}

// ToIngredientList converts a slice of ingredients. The result is never nil.
func ToIngredientList(ings []model.Ingredient) []IngredientResponse {
	out := make([]IngredientResponse, len(ings))
	for i := range ings {
		out[i] = ToIngredientResponse(&ings[i])
	}
	return out
}
