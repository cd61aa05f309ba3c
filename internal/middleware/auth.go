package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/recipebox/recipebox/internal/auth"
	"github.com/recipebox/recipebox/internal/metrics"
	"github.com/recipebox/recipebox/internal/model"
)

// DefaultMinAuthDuration is the floor applied to API key authentication so
// hits and misses take the same time.
const DefaultMinAuthDuration = 200 * time.Millisecond

// KeyStore looks up API keys. *repository.Repository satisfies it.
type KeyStore interface {
	GetAPIKeysByPrefix(ctx context.Context, prefix string) ([]*model.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
}

// UserLookup resolves session token subjects. *repository.Repository satisfies it.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// AuthCache caches resolved API key contexts. *cache.Cache satisfies it.
type AuthCache interface {
	GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error)
	SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext) error
}

// TokenVerifier validates session tokens. *auth.TokenIssuer satisfies it.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger  *slog.Logger
	Keys    KeyStore
	Users   UserLookup
	Cache   AuthCache // optional
	Tokens  TokenVerifier
	Metrics metrics.Recorder
	// MinDuration pads API key verification. Zero disables padding.
	MinDuration time.Duration
}

// Auth returns a middleware that authenticates API requests.
// The credential comes from "Authorization: Bearer" or "X-API-Key" and is
// either an API key or a session token issued by /api/user/token/.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := extractCredential(r)
			if credential == "" {
				cfg.fail(w, r, "missing_credential")
				return
			}

			var (
				authCtx *model.AuthContext
				reason  string
			)
			if auth.LooksLikeAPIKey(credential) {
				authCtx, reason = cfg.authenticateKey(r, credential)
			} else {
				authCtx, reason = cfg.authenticateToken(r, credential)
			}
			if authCtx == nil {
				cfg.fail(w, r, reason)
				return
			}

			ctx := auth.ContextWithAuth(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticateKey verifies an API key, consulting the cache first.
func (cfg AuthConfig) authenticateKey(r *http.Request, key string) (*model.AuthContext, string) {
	start := time.Now()
	defer func() {
		if elapsed := time.Since(start); elapsed < cfg.MinDuration {
			time.Sleep(cfg.MinDuration - elapsed)
		}
	}()

	parsed, err := auth.ParseAPIKey(key)
	if err != nil {
		return nil, "invalid_format"
	}

	cacheKey := auth.QuickHash(key)
	if cfg.Cache != nil {
		if authCtx, _ := cfg.Cache.GetAuthContext(r.Context(), cacheKey); authCtx != nil {
			cfg.logSuccess(r, authCtx, true)
			return authCtx, ""
		}
	}

	keys, err := cfg.Keys.GetAPIKeysByPrefix(r.Context(), parsed.Prefix)
	if err != nil {
		cfg.Logger.Error("database error during auth",
			slog.String("error", err.Error()),
			slog.String("request_id", GetRequestID(r.Context())),
		)
		return nil, "lookup_error"
	}

	// Prefixes can collide, so verify against each candidate.
	var matched *model.APIKey
	for _, k := range keys {
		if ok, err := auth.VerifyPassword(key, k.KeyHash); err == nil && ok {
			matched = k
			break
		}
	}
	if matched == nil {
		return nil, "invalid_key"
	}

	if cfg.Users != nil {
		user, err := cfg.Users.GetUserByID(r.Context(), matched.UserID)
		if err != nil || !user.IsActive {
			return nil, "inactive_user"
		}
	}

	authCtx := &model.AuthContext{
		Method:        model.AuthMethodAPIKey,
		KeyID:         matched.ID,
		KeyPrefix:     matched.KeyPrefix,
		UserID:        matched.UserID,
		Scopes:        matched.Scopes,
		RateLimitTier: matched.RateLimitTier,
	}

	if cfg.Cache != nil {
		_ = cfg.Cache.SetAuthContext(r.Context(), cacheKey, authCtx)
	}

	go func(ctx context.Context, id string) {
		_ = cfg.Keys.UpdateAPIKeyLastUsed(ctx, id)
	}(context.WithoutCancel(r.Context()), matched.ID)

	cfg.logSuccess(r, authCtx, false)
	return authCtx, ""
}

// authenticateToken verifies a session token and checks its user is active.
func (cfg AuthConfig) authenticateToken(r *http.Request, token string) (*model.AuthContext, string) {
	if cfg.Tokens == nil {
		return nil, "invalid_format"
	}

	claims, err := cfg.Tokens.Verify(token)
	if err != nil {
		return nil, "invalid_token"
	}

	if cfg.Users != nil {
		user, err := cfg.Users.GetUserByID(r.Context(), claims.UserID)
		if err != nil || !user.IsActive {
			return nil, "inactive_user"
		}
	}

	authCtx := &model.AuthContext{
		Method:        model.AuthMethodToken,
		KeyID:         claims.ID,
		UserID:        claims.UserID,
		Scopes:        model.SessionScopes,
		RateLimitTier: model.TierFree,
	}
	cfg.logSuccess(r, authCtx, false)
	return authCtx, ""
}

func (cfg AuthConfig) fail(w http.ResponseWriter, r *http.Request, reason string) {
	cfg.Metrics.IncAuthFailure()
	cfg.Logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
	writeAuthError(w)
}

func (cfg AuthConfig) logSuccess(r *http.Request, authCtx *model.AuthContext, cacheHit bool) {
	cfg.Logger.Debug("authentication successful",
		slog.String("method", string(authCtx.Method)),
		slog.String("key_prefix", authCtx.KeyPrefix),
		slog.String("user_id", authCtx.UserID),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.Bool("cache_hit", cacheHit),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// extractCredential reads "Authorization: Bearer <credential>", falling back
// to "X-API-Key". The "Token" scheme is accepted as an alias of Bearer.
func extractCredential(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		for _, scheme := range []string{"Bearer ", "Token "} {
			if strings.HasPrefix(header, scheme) {
				return strings.TrimSpace(strings.TrimPrefix(header, scheme))
			}
		}
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}
