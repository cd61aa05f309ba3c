package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/recipebox/recipebox/internal/media"
	"github.com/recipebox/recipebox/internal/metrics"
	"github.com/recipebox/recipebox/internal/model"
	"github.com/recipebox/recipebox/internal/repository"
	"github.com/shopspring/decimal"
)

// RecipeInput carries the writable recipe fields. A nil pointer or nil
// slice means the field was not supplied; an empty slice clears the links.
type RecipeInput struct {
	Title         *string
	TimeMinutes   *int
	Price         *decimal.Decimal
	Link          *string
	IngredientIDs []string
	TagIDs        []string
}

// RecipeService handles recipe business logic.
type RecipeService struct {
	recipes     RecipeStore
	tags        TagStore
	ingredients IngredientStore
	images      ImageStore
	metrics     metrics.Recorder
	now         func() time.Time
}

// NewRecipeService creates a new RecipeService.
func NewRecipeService(recipes RecipeStore, tags TagStore, ingredients IngredientStore, images ImageStore, recorder metrics.Recorder) *RecipeService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &RecipeService{
		recipes:     recipes,
		tags:        tags,
		ingredients: ingredients,
		images:      images,
		metrics:     recorder,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// List returns the user's recipes, newest first.
func (s *RecipeService) List(ctx context.Context, userID string, filter model.RecipeFilter) ([]*model.Recipe, error) {
	return s.recipes.ListRecipes(ctx, userID, filter)
}

// Get returns one of the user's recipes with its tags and ingredients.
func (s *RecipeService) Get(ctx context.Context, userID, id string) (*model.Recipe, error) {
	recipe, err := s.recipes.GetRecipe(ctx, userID, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return recipe, nil
}

// Create validates in and stores a new recipe owned by userID.
func (s *RecipeService) Create(ctx context.Context, userID string, in RecipeInput) (*model.Recipe, error) {
	in = in.normalized()
	if err := s.validate(ctx, userID, in, false); err != nil {
		return nil, err
	}

	now := s.now()
	recipe := &model.Recipe{
		ID:          ulid.Make().String(),
		UserID:      userID,
		Ingredients: []model.Ingredient{},
		Tags:        []model.Tag{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	apply(recipe, in)

	if err := s.recipes.CreateRecipe(ctx, recipe); err != nil {
		return nil, mapWriteError(err)
	}

	s.metrics.IncCreated(metrics.KindRecipe)
	return s.Get(ctx, userID, recipe.ID)
}

// Update changes one of the user's recipes. With partial set, fields absent
// from in keep their stored values; otherwise title, time_minutes and price
// are required and absent links are cleared.
func (s *RecipeService) Update(ctx context.Context, userID, id string, in RecipeInput, partial bool) (*model.Recipe, error) {
	recipe, err := s.recipes.GetRecipe(ctx, userID, id)
	if err != nil {
		return nil, mapNotFound(err)
	}

	in = in.normalized()
	if err := s.validate(ctx, userID, in, partial); err != nil {
		return nil, err
	}

	if !partial {
		recipe.Link = ""
		if in.IngredientIDs == nil {
			recipe.Ingredients = []model.Ingredient{}
		}
		if in.TagIDs == nil {
			recipe.Tags = []model.Tag{}
		}
	}
	apply(recipe, in)
	recipe.UpdatedAt = s.now()

	if err := s.recipes.UpdateRecipe(ctx, recipe); err != nil {
		return nil, mapWriteError(err)
	}

	s.metrics.IncUpdated(metrics.KindRecipe)
	return s.Get(ctx, userID, recipe.ID)
}

// Delete removes one of the user's recipes and its stored image.
func (s *RecipeService) Delete(ctx context.Context, userID, id string) error {
	recipe, err := s.recipes.GetRecipe(ctx, userID, id)
	if err != nil {
		return mapNotFound(err)
	}

	if err := s.recipes.DeleteRecipe(ctx, userID, id); err != nil {
		return mapNotFound(err)
	}

	if recipe.HasImage() && s.images != nil {
		// The row is gone; a stale file is harmless.
		_ = s.images.Delete(recipe.Image)
	}

	s.metrics.IncDeleted(metrics.KindRecipe)
	return nil
}

// UploadImage stores r as the recipe's image, replacing any previous one.
func (s *RecipeService) UploadImage(ctx context.Context, userID, id string, r io.Reader) (*model.Recipe, error) {
	recipe, err := s.recipes.GetRecipe(ctx, userID, id)
	if err != nil {
		return nil, mapNotFound(err)
	}

	if s.images == nil {
		return nil, errors.New("image storage is not configured")
	}

	path, err := s.images.Save(ctx, r)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrNotImage):
			return nil, fieldError("image", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
		case errors.Is(err, media.ErrTooLarge):
			return nil, fieldError("image", "The uploaded image is too large.")
		default:
			return nil, fmt.Errorf("save image: %w", err)
		}
	}

	if err := s.recipes.SetRecipeImage(ctx, userID, id, path); err != nil {
		_ = s.images.Delete(path)
		return nil, mapNotFound(err)
	}

	if recipe.HasImage() && recipe.Image != path {
		_ = s.images.Delete(recipe.Image)
	}

	recipe.Image = path
	s.metrics.IncImageUploaded()
	return recipe, nil
}

// validate checks field rules and that every referenced tag and ingredient
// belongs to userID.
func (s *RecipeService) validate(ctx context.Context, userID string, in RecipeInput, partial bool) error {
	v := &ValidationError{}

	if !partial {
		if in.Title == nil {
			v.Add("title", msgRequired)
		}
		if in.TimeMinutes == nil {
			v.Add("time_minutes", msgRequired)
		}
		if in.Price == nil {
			v.Add("price", msgRequired)
		}
	}

	if in.Title != nil {
		validateText(v, "title", *in.Title, true)
	}
	if in.TimeMinutes != nil {
		switch {
		case *in.TimeMinutes < 0:
			v.Add("time_minutes", msgMinZero)
		case *in.TimeMinutes > maxTimeMinutes:
			v.Add("time_minutes", msgMaxInt32)
		}
	}
	if in.Price != nil {
		validatePrice(v, *in.Price)
	}
	if in.Link != nil {
		validateText(v, "link", *in.Link, false)
	}

	if len(in.IngredientIDs) > 0 {
		ids := dedupe(in.IngredientIDs)
		found, err := s.ingredients.ExistingIngredientIDs(ctx, userID, ids)
		if err != nil {
			return fmt.Errorf("check ingredients: %w", err)
		}
		if missing, ok := firstMissing(ids, found); ok {
			v.Add("ingredients", invalidPK(missing))
		}
	}
	if len(in.TagIDs) > 0 {
		ids := dedupe(in.TagIDs)
		found, err := s.tags.ExistingTagIDs(ctx, userID, ids)
		if err != nil {
			return fmt.Errorf("check tags: %w", err)
		}
		if missing, ok := firstMissing(ids, found); ok {
			v.Add("tags", invalidPK(missing))
		}
	}

	return v.Err()
}

// normalized trims the free-text fields.
func (in RecipeInput) normalized() RecipeInput {
	in.Title = trimmed(in.Title)
	in.Link = trimmed(in.Link)
	return in
}

// apply copies the supplied fields of in onto recipe.
func apply(recipe *model.Recipe, in RecipeInput) {
	if in.Title != nil {
		recipe.Title = *in.Title
	}
	if in.TimeMinutes != nil {
		recipe.TimeMinutes = *in.TimeMinutes
	}
	if in.Price != nil {
		recipe.Price = *in.Price
	}
	if in.Link != nil {
		recipe.Link = *in.Link
	}
	if in.IngredientIDs != nil {
		ids := dedupe(in.IngredientIDs)
		recipe.Ingredients = make([]model.Ingredient, len(ids))
		for i, id := range ids {
			recipe.Ingredients[i] = model.Ingredient{ID: id, UserID: recipe.UserID}
		}
	}
	if in.TagIDs != nil {
		ids := dedupe(in.TagIDs)
		recipe.Tags = make([]model.Tag, len(ids))
		for i, id := range ids {
			recipe.Tags[i] = model.Tag{ID: id, UserID: recipe.UserID}
		}
	}
}

// mapWriteError translates repository errors from recipe writes.
func mapWriteError(err error) error {
	if errors.Is(err, repository.ErrUnknownReference) {
		return fieldError(NonFieldErrors, "A referenced tag or ingredient no longer exists.")
	}
	return mapNotFound(err)
}
