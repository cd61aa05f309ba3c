// Package model defines domain entities for the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recipe represents a recipe entity with its resolved relations.
type Recipe struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Title       string          `json:"title"`
	TimeMinutes int             `json:"time_minutes"`
	Price       decimal.Decimal `json:"price"`
	Link        string          `json:"link"`
	Image       string          `json:"image,omitempty"` // Path relative to the media root
	Ingredients []Ingredient    `json:"ingredients"`
	Tags        []Tag           `json:"tags"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// IngredientIDs returns the ids of the attached ingredients in order.
func (r *Recipe) IngredientIDs() []string {
	ids := make([]string, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		ids[i] = ing.ID
	}
	return ids
}

// TagIDs returns the ids of the attached tags in order.
func (r *Recipe) TagIDs() []string {
	ids := make([]string, len(r.Tags))
	for i, tag := range r.Tags {
		ids[i] = tag.ID
	}
	return ids
}

// HasImage reports whether an image has been uploaded for the recipe.
func (r *Recipe) HasImage() bool {
	return r.Image != ""
}

// RecipeFilter narrows recipe listings. A recipe matches when it carries
// any of the given tags and any of the given ingredients.
type RecipeFilter struct {
	TagIDs        []string
	IngredientIDs []string
}

// IsEmpty reports whether the filter applies no restriction.
func (f RecipeFilter) IsEmpty() bool {
	return len(f.TagIDs) == 0 && len(f.IngredientIDs) == 0
}
