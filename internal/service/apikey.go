package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/recipebox/recipebox/internal/auth"
	"github.com/recipebox/recipebox/internal/model"
)

// APIKeyService manages API keys for their owner.
type APIKeyService struct {
	store APIKeyStore
	cache AuthCacheInvalidator
	env   string
}

// NewAPIKeyService creates a new APIKeyService. env selects the key
// environment marker (auth.EnvLive or auth.EnvTest). cache may be nil.
func NewAPIKeyService(store APIKeyStore, cache AuthCacheInvalidator, env string) *APIKeyService {
	return &APIKeyService{store: store, cache: cache, env: env}
}

// Create generates a key for userID. The plaintext is only ever returned here.
func (s *APIKeyService) Create(ctx context.Context, userID string, req model.APIKeyCreateRequest) (*model.APIKeyCreateResponse, error) {
	for _, scope := range req.Scopes {
		if !slices.Contains(model.ValidScopes, scope) {
			return nil, fieldError("scopes", fmt.Sprintf("Invalid scope %q. Valid scopes: %s.", scope, strings.Join(model.ValidScopes, ", ")))
		}
	}
	if utf8.RuneCountInString(req.Name) > maxNameLength {
		return nil, fieldError("name", msgMaxLength)
	}

	scopes := req.Scopes
	if len(scopes) == 0 {
		scopes = []string{model.ScopeRead}
	}

	key, plaintext, err := s.newKey(userID, req.Name, scopes, model.TierFree)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return nil, fmt.Errorf("create API key: %w", err)
	}

	return createResponse(key, plaintext), nil
}

// List returns every key owned by userID, newest first.
func (s *APIKeyService) List(ctx context.Context, userID string) ([]*model.APIKey, error) {
	return s.store.ListAPIKeysByUserID(ctx, userID)
}

// Revoke revokes one of the user's active keys.
func (s *APIKeyService) Revoke(ctx context.Context, userID, id string) error {
	if err := s.store.RevokeAPIKey(ctx, userID, id); err != nil {
		return mapNotFound(err)
	}
	s.invalidate(ctx, userID)
	return nil
}

// Rotate issues a replacement with the same name, scopes and tier, then
// revokes the old key.
func (s *APIKeyService) Rotate(ctx context.Context, userID, id string) (*model.APIKeyRotateResponse, error) {
	old, err := s.store.GetAPIKeyByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	// Foreign and revoked keys look missing.
	if old.UserID != userID || old.IsRevoked() {
		return nil, ErrNotFound
	}

	key, plaintext, err := s.newKey(userID, old.Name, old.Scopes, old.RateLimitTier)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateAPIKey(ctx, key); err != nil {
		return nil, fmt.Errorf("create rotated API key: %w", err)
	}

	if err := s.store.RevokeAPIKey(ctx, userID, old.ID); err != nil {
		return nil, fmt.Errorf("revoke rotated API key: %w", err)
	}
	s.invalidate(ctx, userID)

	return &model.APIKeyRotateResponse{
		OldKeyID:        old.ID,
		OldKeyRevokedAt: key.CreatedAt,
		NewKey:          *createResponse(key, plaintext),
	}, nil
}

func (s *APIKeyService) newKey(userID, name string, scopes []string, tier string) (*model.APIKey, string, error) {
	generated, err := auth.GenerateAPIKey(s.env)
	if err != nil {
		return nil, "", fmt.Errorf("generate API key: %w", err)
	}
	return &model.APIKey{
		ID:            ulid.Make().String(),
		UserID:        userID,
		KeyHash:       generated.Hash,
		KeyPrefix:     generated.Prefix,
		Scopes:        scopes,
		RateLimitTier: tier,
		Name:          name,
		CreatedAt:     time.Now().UTC(),
	}, generated.Plaintext, nil
}

func (s *APIKeyService) invalidate(ctx context.Context, userID string) {
	if s.cache != nil {
		_ = s.cache.InvalidateUserAuthContexts(ctx, userID)
	}
}

func createResponse(key *model.APIKey, plaintext string) *model.APIKeyCreateResponse {
	return &model.APIKeyCreateResponse{
		ID:            key.ID,
		Key:           plaintext,
		Name:          key.Name,
		KeyPrefix:     key.KeyPrefix,
		Scopes:        key.Scopes,
		RateLimitTier: key.RateLimitTier,
		CreatedAt:     key.CreatedAt,
	}
}
