// Package memstore is an in-memory implementation of the repository method
// set. It returns the same sentinel errors as the PostgreSQL repository and
// is used by service and handler tests.
package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/recipebox/recipebox/internal/model"
	"github.com/recipebox/recipebox/internal/repository"
)

// Store holds every entity in maps guarded by one mutex.
type Store struct {
	mu          sync.RWMutex
	users       map[string]model.User
	apiKeys     map[string]model.APIKey
	tags        map[string]model.Tag
	ingredients map[string]model.Ingredient
	recipes     map[string]storedRecipe
	seq         int64
}

// storedRecipe keeps relation ids only, like the join tables.
type storedRecipe struct {
	recipe        model.Recipe
	ingredientIDs []string
	tagIDs        []string
	seq           int64
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:       make(map[string]model.User),
		apiKeys:     make(map[string]model.APIKey),
		tags:        make(map[string]model.Tag),
		ingredients: make(map[string]model.Ingredient),
		recipes:     make(map[string]storedRecipe),
	}
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return nil }

// ============================================================================
// Users
// ============================================================================

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrEmailExists
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *Store) UpdateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	for id, u := range s.users {
		if id != user.ID && strings.EqualFold(u.Email, user.Email) {
			return repository.ErrEmailExists
		}
	}
	s.users[user.ID] = *user
	return nil
}

// ============================================================================
// API keys
// ============================================================================

func (s *Store) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[key.UserID]; !ok {
		return repository.ErrUserNotFound
	}
	k := *key
	k.Scopes = slices.Clone(key.Scopes)
	s.apiKeys[key.ID] = k
	return nil
}

func (s *Store) GetAPIKeyByID(ctx context.Context, id string) (*model.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k, ok := s.apiKeys[id]
	if !ok {
		return nil, repository.ErrAPIKeyNotFound
	}
	return &k, nil
}

func (s *Store) GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*model.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := []*model.APIKey{}
	for _, k := range s.apiKeys {
		if k.KeyPrefix == prefix && !k.IsRevoked() {
			k := k
			keys = append(keys, &k)
		}
	}
	return keys, nil
}

func (s *Store) ListAPIKeysByUserID(ctx context.Context, userID string) ([]*model.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := []*model.APIKey{}
	for _, k := range s.apiKeys {
		if k.UserID == userID {
			k := k
			keys = append(keys, &k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].CreatedAt.After(keys[j].CreatedAt) })
	return keys, nil
}

func (s *Store) RevokeAPIKey(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.apiKeys[id]
	if !ok || k.UserID != userID || k.IsRevoked() {
		return repository.ErrAPIKeyNotFound
	}
	now := time.Now().UTC()
	k.RevokedAt = &now
	s.apiKeys[id] = k
	return nil
}

func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k, ok := s.apiKeys[id]; ok {
		now := time.Now().UTC()
		k.LastUsedAt = &now
		s.apiKeys[id] = k
	}
	return nil
}

// ============================================================================
// Tags and ingredients
// ============================================================================

func (s *Store) CreateTag(ctx context.Context, tag *model.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[tag.UserID]; !ok {
		return repository.ErrUserNotFound
	}
	s.tags[tag.ID] = *tag
	return nil
}

func (s *Store) GetTag(ctx context.Context, userID, id string) (*model.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tags[id]
	if !ok || t.UserID != userID {
		return nil, repository.ErrTagNotFound
	}
	return &t, nil
}

func (s *Store) ListTags(ctx context.Context, userID string, filter model.CatalogFilter) ([]model.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tags := []model.Tag{}
	for _, t := range s.tags {
		if t.UserID != userID {
			continue
		}
		if filter.AssignedOnly && !s.linked(t.ID, func(r storedRecipe) []string { return r.tagIDs }) {
			continue
		}
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return nameDesc(tags[i].Name, tags[i].ID, tags[j].Name, tags[j].ID) })
	return tags, nil
}

func (s *Store) UpdateTag(ctx context.Context, tag *model.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tags[tag.ID]
	if !ok || t.UserID != tag.UserID {
		return repository.ErrTagNotFound
	}
	s.tags[tag.ID] = *tag
	return nil
}

func (s *Store) DeleteTag(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tags[id]
	if !ok || t.UserID != userID {
		return repository.ErrTagNotFound
	}
	delete(s.tags, id)
	for rid, r := range s.recipes {
		r.tagIDs = slices.DeleteFunc(r.tagIDs, func(v string) bool { return v == id })
		s.recipes[rid] = r
	}
	return nil
}

func (s *Store) ExistingTagIDs(ctx context.Context, userID string, ids []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := []string{}
	for _, id := range ids {
		if t, ok := s.tags[id]; ok && t.UserID == userID {
			found = append(found, id)
		}
	}
	return found, nil
}

func (s *Store) CreateIngredient(ctx context.Context, ing *model.Ingredient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[ing.UserID]; !ok {
		return repository.ErrUserNotFound
	}
	s.ingredients[ing.ID] = *ing
	return nil
}

func (s *Store) GetIngredient(ctx context.Context, userID, id string) (*model.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.ingredients[id]
	if !ok || i.UserID != userID {
		return nil, repository.ErrIngredientNotFound
	}
	return &i, nil
}

func (s *Store) ListIngredients(ctx context.Context, userID string, filter model.CatalogFilter) ([]model.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ings := []model.Ingredient{}
	for _, i := range s.ingredients {
		if i.UserID != userID {
			continue
		}
		if filter.AssignedOnly && !s.linked(i.ID, func(r storedRecipe) []string { return r.ingredientIDs }) {
			continue
		}
		ings = append(ings, i)
	}
	sort.Slice(ings, func(a, b int) bool { return nameDesc(ings[a].Name, ings[a].ID, ings[b].Name, ings[b].ID) })
	return ings, nil
}

func (s *Store) UpdateIngredient(ctx context.Context, ing *model.Ingredient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.ingredients[ing.ID]
	if !ok || i.UserID != ing.UserID {
		return repository.ErrIngredientNotFound
	}
	s.ingredients[ing.ID] = *ing
	return nil
}

func (s *Store) DeleteIngredient(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.ingredients[id]
	if !ok || i.UserID != userID {
		return repository.ErrIngredientNotFound
	}
	delete(s.ingredients, id)
	for rid, r := range s.recipes {
		r.ingredientIDs = slices.DeleteFunc(r.ingredientIDs, func(v string) bool { return v == id })
		s.recipes[rid] = r
	}
	return nil
}

func (s *Store) ExistingIngredientIDs(ctx context.Context, userID string, ids []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := []string{}
	for _, id := range ids {
		if i, ok := s.ingredients[id]; ok && i.UserID == userID {
			found = append(found, id)
		}
	}
	return found, nil
}

// linked reports whether any recipe references id through ids.
// Callers hold the lock.
func (s *Store) linked(id string, ids func(storedRecipe) []string) bool {
	for _, r := range s.recipes {
		if slices.Contains(ids(r), id) {
			return true
		}
	}
	return false
}

func nameDesc(nameA, idA, nameB, idB string) bool {
	if nameA != nameB {
		return nameA > nameB
	}
	return idA > idB
}

// ============================================================================
// Recipes
// ============================================================================

func (s *Store) CreateRecipe(ctx context.Context, recipe *model.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[recipe.UserID]; !ok {
		return repository.ErrUserNotFound
	}
	stored, err := s.toStored(recipe)
	if err != nil {
		return err
	}
	s.seq++
	stored.seq = s.seq
	s.recipes[recipe.ID] = stored
	return nil
}

func (s *Store) GetRecipe(ctx context.Context, userID, id string) (*model.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.recipes[id]
	if !ok || r.recipe.UserID != userID {
		return nil, repository.ErrRecipeNotFound
	}
	return s.load(r), nil
}

func (s *Store) ListRecipes(ctx context.Context, userID string, filter model.RecipeFilter) ([]*model.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := []storedRecipe{}
	for _, r := range s.recipes {
		if r.recipe.UserID != userID {
			continue
		}
		if len(filter.TagIDs) > 0 && !overlaps(r.tagIDs, filter.TagIDs) {
			continue
		}
		if len(filter.IngredientIDs) > 0 && !overlaps(r.ingredientIDs, filter.IngredientIDs) {
			continue
		}
		matches = append(matches, r)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].seq > matches[j].seq })

	recipes := make([]*model.Recipe, len(matches))
	for i, r := range matches {
		recipes[i] = s.load(r)
	}
	return recipes, nil
}

func (s *Store) UpdateRecipe(ctx context.Context, recipe *model.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.recipes[recipe.ID]
	if !ok || existing.recipe.UserID != recipe.UserID {
		return repository.ErrRecipeNotFound
	}
	stored, err := s.toStored(recipe)
	if err != nil {
		return err
	}
	stored.seq = existing.seq
	stored.recipe.Image = existing.recipe.Image
	s.recipes[recipe.ID] = stored
	return nil
}

func (s *Store) SetRecipeImage(ctx context.Context, userID, id, image string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recipes[id]
	if !ok || r.recipe.UserID != userID {
		return repository.ErrRecipeNotFound
	}
	r.recipe.Image = image
	r.recipe.UpdatedAt = time.Now().UTC()
	s.recipes[id] = r
	return nil
}

func (s *Store) DeleteRecipe(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recipes[id]
	if !ok || r.recipe.UserID != userID {
		return repository.ErrRecipeNotFound
	}
	delete(s.recipes, id)
	return nil
}

// toStored copies recipe and checks its references exist. Callers hold the lock.
func (s *Store) toStored(recipe *model.Recipe) (storedRecipe, error) {
	stored := storedRecipe{recipe: *recipe}
	stored.recipe.Ingredients = nil
	stored.recipe.Tags = nil

	for _, ing := range recipe.Ingredients {
		if _, ok := s.ingredients[ing.ID]; !ok {
			return storedRecipe{}, repository.ErrUnknownReference
		}
		if !slices.Contains(stored.ingredientIDs, ing.ID) {
			stored.ingredientIDs = append(stored.ingredientIDs, ing.ID)
		}
	}
	for _, tag := range recipe.Tags {
		if _, ok := s.tags[tag.ID]; !ok {
			return storedRecipe{}, repository.ErrUnknownReference
		}
		if !slices.Contains(stored.tagIDs, tag.ID) {
			stored.tagIDs = append(stored.tagIDs, tag.ID)
		}
	}
	return stored, nil
}

// load resolves a stored recipe's relations. Callers hold the lock.
func (s *Store) load(r storedRecipe) *model.Recipe {
	recipe := r.recipe
	recipe.Ingredients = make([]model.Ingredient, 0, len(r.ingredientIDs))
	for _, id := range r.ingredientIDs {
		if ing, ok := s.ingredients[id]; ok {
			recipe.Ingredients = append(recipe.Ingredients, ing)
		}
	}
	recipe.Tags = make([]model.Tag, 0, len(r.tagIDs))
	for _, id := range r.tagIDs {
		if tag, ok := s.tags[id]; ok {
			recipe.Tags = append(recipe.Tags, tag)
		}
	}
	return &recipe
}

func overlaps(have, want []string) bool {
	for _, id := range want {
		if slices.Contains(have, id) {
			return true
		}
	}
	return false
}
