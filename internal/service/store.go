package service

import (
	"context"
	"io"

	"github.com/recipebox/recipebox/internal/model"
	"github.com/recipebox/recipebox/internal/repository"
)

// The store interfaces below are satisfied by *repository.Repository.
// Services depend on them so they can run against an in-memory fake.

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
}

// TagStore persists tags.
type TagStore interface {
	CreateTag(ctx context.Context, tag *model.Tag) error
	GetTag(ctx context.Context, userID, id string) (*model.Tag, error)
	ListTags(ctx context.Context, userID string, filter model.CatalogFilter) ([]model.Tag, error)
	UpdateTag(ctx context.Context, tag *model.Tag) error
	DeleteTag(ctx context.Context, userID, id string) error
	ExistingTagIDs(ctx context.Context, userID string, ids []string) ([]string, error)
}

// IngredientStore persists ingredients.
type IngredientStore interface {
	CreateIngredient(ctx context.Context, ing *model.Ingredient) error
	GetIngredient(ctx context.Context, userID, id string) (*model.Ingredient, error)
	ListIngredients(ctx context.Context, userID string, filter model.CatalogFilter) ([]model.Ingredient, error)
	UpdateIngredient(ctx context.Context, ing *model.Ingredient) error
	DeleteIngredient(ctx context.Context, userID, id string) error
	ExistingIngredientIDs(ctx context.Context, userID string, ids []string) ([]string, error)
}

// RecipeStore persists recipes and their tag and ingredient links.
type RecipeStore interface {
	CreateRecipe(ctx context.Context, recipe *model.Recipe) error
	GetRecipe(ctx context.Context, userID, id string) (*model.Recipe, error)
	ListRecipes(ctx context.Context, userID string, filter model.RecipeFilter) ([]*model.Recipe, error)
	UpdateRecipe(ctx context.Context, recipe *model.Recipe) error
	SetRecipeImage(ctx context.Context, userID, id, image string) error
	DeleteRecipe(ctx context.Context, userID, id string) error
}

// APIKeyStore persists API keys.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	GetAPIKeyByID(ctx context.Context, id string) (*model.APIKey, error)
	ListAPIKeysByUserID(ctx context.Context, userID string) ([]*model.APIKey, error)
	RevokeAPIKey(ctx context.Context, userID, id string) error
}

// AuthCacheInvalidator drops cached credentials for a user.
type AuthCacheInvalidator interface {
	InvalidateUserAuthContexts(ctx context.Context, userID string) error
}

// ImageStore saves and removes uploaded recipe images.
type ImageStore interface {
	Save(ctx context.Context, r io.Reader) (string, error)
	Delete(path string) error
}

var (
	_ UserStore       = (*repository.Repository)(nil)
	_ TagStore        = (*repository.Repository)(nil)
	_ IngredientStore = (*repository.Repository)(nil)
	_ RecipeStore     = (*repository.Repository)(nil)
	_ APIKeyStore     = (*repository.Repository)(nil)
)
