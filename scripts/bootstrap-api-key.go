// Command bootstrap-api-key creates (or reuses) an account and mints an
// API key for it, typically the first admin key of a fresh deployment.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/recipebox/recipebox/internal/auth"
	"github.com/recipebox/recipebox/internal/model"
	"github.com/recipebox/recipebox/internal/repository"
	"github.com/recipebox/recipebox/internal/service"
)

type output struct {
	UserID    string   `json:"user_id"`
	Email     string   `json:"email"`
	KeyID     string   `json:"key_id"`
	Key       string   `json:"key"`
	KeyPrefix string   `json:"key_prefix"`
	Scopes    []string `json:"scopes"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		email       = flag.String("email", "admin@recipe.local", "Account email; created when missing")
		userName    = flag.String("user-name", "Admin", "Display name for a new account")
		password    = flag.String("password", os.Getenv("BOOTSTRAP_PASSWORD"), "Password for a new account (optional)")
		keyName     = flag.String("name", "bootstrap", "API key name")
		scopesInput = flag.String("scopes", "admin", "Comma-separated scopes (read,write,admin)")
		env         = flag.String("env", auth.EnvLive, "Key environment marker: live or test")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	scopes, err := parseScopes(*scopesInput)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	user, err := ensureUser(ctx, repo, service.NormalizeEmail(*email), *userName, *password)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	generated, err := auth.GenerateAPIKey(*env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "generate api key:", err)
		os.Exit(1)
	}

	apiKey := &model.APIKey{
		ID:            ulid.Make().String(),
		UserID:        user.ID,
		KeyHash:       generated.Hash,
		KeyPrefix:     generated.Prefix,
		Scopes:        scopes,
		RateLimitTier: model.TierUnlimited,
		Name:          *keyName,
		CreatedAt:     time.Now().UTC(),
	}

	if err := repo.CreateAPIKey(ctx, apiKey); err != nil {
		fmt.Fprintln(os.Stderr, "create api key:", err)
		os.Exit(1)
	}

	out := output{
		UserID:    user.ID,
		Email:     user.Email,
		KeyID:     apiKey.ID,
		Key:       generated.Plaintext,
		KeyPrefix: apiKey.KeyPrefix,
		Scopes:    scopes,
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.Key)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

func parseScopes(input string) ([]string, error) {
	scopes := make([]string, 0, 3)
	for _, part := range strings.Split(input, ",") {
		scope := strings.TrimSpace(part)
		if scope == "" {
			continue
		}
		if !slices.Contains(model.ValidScopes, scope) {
			return nil, fmt.Errorf("invalid scope: %s", scope)
		}
		scopes = append(scopes, scope)
	}
	if len(scopes) == 0 {
		scopes = []string{model.ScopeAdmin}
	}
	return scopes, nil
}

// ensureUser returns the account for email, creating an active one if needed.
// Without a password the new account can only authenticate with API keys.
func ensureUser(ctx context.Context, repo *repository.Repository, email, name, password string) (*model.User, error) {
	existing, err := repo.GetUserByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("look up user: %w", err)
	}

	user := &model.User{
		ID:        ulid.Make().String(),
		Email:     email,
		Name:      name,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}
	if err := repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}
