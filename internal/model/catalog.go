// Package model defines domain entities for the application.
package model

// Tag labels recipes for a single owner.
type Tag struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	UserID string `json:"user_id"`
}

// Ingredient is an owner-scoped item a recipe can reference.
type Ingredient struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	UserID string `json:"user_id"`
}

// CatalogFilter narrows tag and ingredient listings.
type CatalogFilter struct {
	// AssignedOnly keeps only items attached to at least one recipe.
	AssignedOnly bool
}
