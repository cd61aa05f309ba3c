package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/recipebox/recipebox/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420421

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema drops and recreates every table from the init migration.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, name := range []string{"000001_init.down.sql", "000001_init.up.sql"} {
		sql, err := ReadMigration(name)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

// ReadMigration returns the contents of a file in the migrations directory.
func ReadMigration(name string) (string, error) {
	root, err := ProjectRoot()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(root, "migrations", name))
	if err != nil {
		return "", fmt.Errorf("read migration %s: %w", name, err)
	}
	return string(data), nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

var seq atomic.Int64

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), seq.Add(1))
}

// NewTestUser creates a test user with sensible defaults.
func NewTestUser(t testing.TB) *model.User {
	t.Helper()
	id := UniqueID("user")
	return &model.User{
		ID:           id,
		Email:        id + "@example.com",
		Name:         "Test User",
		PasswordHash: "hash-" + id,
		IsActive:     true,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

// NewTestAPIKey creates a test API key with sensible defaults.
func NewTestAPIKey(t testing.TB, userID string) *model.APIKey {
	t.Helper()
	id := UniqueID("key")
	return &model.APIKey{
		ID:            id,
		UserID:        userID,
		KeyHash:       "hash-" + id,
		KeyPrefix:     "abc123",
		Scopes:        []string{model.ScopeRead, model.ScopeWrite},
		RateLimitTier: model.TierFree,
		Name:          "Test Key",
		CreatedAt:     time.Now().UTC(),
	}
}

// NewTestAPIKeyWithTier creates a test API key with a specific tier.
func NewTestAPIKeyWithTier(t testing.TB, userID string, tier string) *model.APIKey {
	t.Helper()
	key := NewTestAPIKey(t, userID)
	key.RateLimitTier = tier
	return key
}

// NewTestTag creates a tag owned by userID.
func NewTestTag(t testing.TB, userID, name string) *model.Tag {
	t.Helper()
	return &model.Tag{ID: UniqueID("tag"), Name: name, UserID: userID}
}

// NewTestIngredient creates an ingredient owned by userID.
func NewTestIngredient(t testing.TB, userID, name string) *model.Ingredient {
	t.Helper()
	return &model.Ingredient{ID: UniqueID("ing"), Name: name, UserID: userID}
}

// NewTestRecipe creates a recipe owned by userID with no relations.
func NewTestRecipe(t testing.TB, userID, title string) *model.Recipe {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.Recipe{
		ID:          UniqueID("recipe"),
		UserID:      userID,
		Title:       title,
		TimeMinutes: 5,
		Price:       decimal.RequireFromString("5.50"),
		Link:        "https://example.com/recipe.pdf",
		Ingredients: []model.Ingredient{},
		Tags:        []model.Tag{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
