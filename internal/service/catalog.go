package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/recipebox/recipebox/internal/metrics"
	"github.com/recipebox/recipebox/internal/model"
	"github.com/recipebox/recipebox/internal/repository"
)

// TagService handles tag business logic. Every method takes the owner's
// user id explicitly; records owned by anyone else behave as missing.
type TagService struct {
	store   TagStore
	metrics metrics.Recorder
}

// NewTagService creates a new TagService.
func NewTagService(store TagStore, recorder metrics.Recorder) *TagService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &TagService{store: store, metrics: recorder}
}

// List returns the user's tags ordered by name descending.
func (s *TagService) List(ctx context.Context, userID string, filter model.CatalogFilter) ([]model.Tag, error) {
	return s.store.ListTags(ctx, userID, filter)
}

// Get returns one of the user's tags.
func (s *TagService) Get(ctx context.Context, userID, id string) (*model.Tag, error) {
	tag, err := s.store.GetTag(ctx, userID, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return tag, nil
}

// Create validates name and stores a new tag owned by userID.
func (s *TagService) Create(ctx context.Context, userID, name string) (*model.Tag, error) {
	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	tag := &model.Tag{ID: ulid.Make().String(), Name: name, UserID: userID}
	if err := s.store.CreateTag(ctx, tag); err != nil {
		return nil, fmt.Errorf("create tag: %w", err)
	}

	s.metrics.IncCreated(metrics.KindTag)
	return tag, nil
}

// Rename changes the name of one of the user's tags.
func (s *TagService) Rename(ctx context.Context, userID, id, name string) (*model.Tag, error) {
	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	tag := &model.Tag{ID: id, Name: name, UserID: userID}
	if err := s.store.UpdateTag(ctx, tag); err != nil {
		return nil, mapNotFound(err)
	}

	s.metrics.IncUpdated(metrics.KindTag)
	return tag, nil
}

// Delete removes one of the user's tags.
func (s *TagService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteTag(ctx, userID, id); err != nil {
		return mapNotFound(err)
	}
	s.metrics.IncDeleted(metrics.KindTag)
	return nil
}

// IngredientService handles ingredient business logic.
type IngredientService struct {
	store   IngredientStore
	metrics metrics.Recorder
}

// NewIngredientService creates a new IngredientService.
func NewIngredientService(store IngredientStore, recorder metrics.Recorder) *IngredientService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &IngredientService{store: store, metrics: recorder}
}

// List returns the user's ingredients ordered by name descending.
func (s *IngredientService) List(ctx context.Context, userID string, filter model.CatalogFilter) ([]model.Ingredient, error) {
	return s.store.ListIngredients(ctx, userID, filter)
}

// Get returns one of the user's ingredients.
func (s *IngredientService) Get(ctx context.Context, userID, id string) (*model.Ingredient, error) {
	ing, err := s.store.GetIngredient(ctx, userID, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return ing, nil
}

// Create validates name and stores a new ingredient owned by userID.
func (s *IngredientService) Create(ctx context.Context, userID, name string) (*model.Ingredient, error) {
	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	ing := &model.Ingredient{ID: ulid.Make().String(), Name: name, UserID: userID}
	if err := s.store.CreateIngredient(ctx, ing); err != nil {
		return nil, fmt.Errorf("create ingredient: %w", err)
	}

	s.metrics.IncCreated(metrics.KindIngredient)
	return ing, nil
}

// Rename changes the name of one of the user's ingredients.
func (s *IngredientService) Rename(ctx context.Context, userID, id, name string) (*model.Ingredient, error) {
	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	ing := &model.Ingredient{ID: id, Name: name, UserID: userID}
	if err := s.store.UpdateIngredient(ctx, ing); err != nil {
		return nil, mapNotFound(err)
	}

	s.metrics.IncUpdated(metrics.KindIngredient)
	return ing, nil
}

// Delete removes one of the user's ingredients.
func (s *IngredientService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteIngredient(ctx, userID, id); err != nil {
		return mapNotFound(err)
	}
	s.metrics.IncDeleted(metrics.KindIngredient)
	return nil
}

// ParseIDList splits a comma separated query value into trimmed, non-empty ids.
func ParseIDList(raw string) []string {
	if raw == "" {
		return nil
	}
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// mapNotFound turns any repository not-found sentinel into ErrNotFound.
func mapNotFound(err error) error {
	switch {
	case errors.Is(err, repository.ErrTagNotFound),
		errors.Is(err, repository.ErrIngredientNotFound),
		errors.Is(err, repository.ErrRecipeNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrAPIKeyNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	default:
		return err
	}
}
