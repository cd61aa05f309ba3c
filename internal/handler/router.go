package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/recipebox/recipebox/internal/metrics"
	"github.com/recipebox/recipebox/internal/middleware"
	"github.com/recipebox/recipebox/internal/service"
)

// uploadOverhead covers multipart framing around the image itself.
const uploadOverhead = 64 << 10

// RouterConfig holds everything the router wires together.
type RouterConfig struct {
	Logger *slog.Logger

	Tags        *service.TagService
	Ingredients *service.IngredientService
	Recipes     *service.RecipeService
	Users       *service.UserService
	APIKeys     *service.APIKeyService

	Health  *HealthHandler
	Admin   *AdminHandler // optional
	Metrics *metrics.InMemoryRecorder

	Auth      middleware.AuthConfig
	RateLimit middleware.RateLimitConfig

	// Media serves stored files under MediaURL. Nil disables file serving.
	Media    http.Handler
	MediaURL string

	CORSOrigins   []string
	IsDevelopment bool
	MaxBodySize   int64
	MaxImageSize  int64
}

// NewRouter builds the HTTP handler for the API.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var recorder metrics.Recorder = metrics.NewNoop()
	if cfg.Metrics != nil {
		recorder = cfg.Metrics
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 1 << 20
	}
	if cfg.MaxImageSize <= 0 {
		cfg.MaxImageSize = 5 << 20
	}
	mediaURL := cfg.MediaURL
	if mediaURL == "" {
		mediaURL = "/media/"
	}
	if !strings.HasSuffix(mediaURL, "/") {
		mediaURL += "/"
	}

	h := New()
	tags := NewTagHandler(cfg.Tags, logger)
	ingredients := NewIngredientHandler(cfg.Ingredients, logger)
	recipes := NewRecipeHandler(cfg.Recipes, mediaURL, logger)
	users := NewUserHandler(cfg.Users, logger)
	keys := NewAPIKeyHandler(cfg.APIKeys, logger)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSOrigins

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.StripSlashes)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger, recorder))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:     cfg.IsDevelopment,
		CacheablePrefixes: []string{mediaURL},
	}))
	r.Use(middleware.CORS(corsCfg))

	// Operational endpoints (no auth required)
	if cfg.Health != nil {
		r.Get("/healthz", cfg.Health.Healthz)
		r.Get("/readyz", cfg.Health.Readyz)
	}
	if cfg.Metrics != nil {
		r.Get("/metrics", NewMetricsHandler(cfg.Metrics).Metrics)
	}
	r.Get("/", h.Hello)

	if cfg.Media != nil {
		r.Handle(mediaURL+"*", cfg.Media)
	}

	r.Route("/api", func(r chi.Router) {
		// Public account routes, limited per client IP
		r.Group(func(r chi.Router) {
			r.Use(middleware.MaxBodySize(cfg.MaxBodySize))
			r.Use(middleware.RateLimitIP(cfg.RateLimit))
			r.Post("/user/create", users.Create)
			r.Post("/user/token", users.Token)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Auth))
			r.Use(middleware.RateLimitAPI(cfg.RateLimit))

			r.Group(func(r chi.Router) {
				r.Use(middleware.MaxBodySize(cfg.MaxBodySize))

				r.Get("/user/me", users.Me)
				r.Put("/user/me", users.UpdateMe)
				r.Patch("/user/me", users.UpdateMe)

				r.Route("/recipe", func(r chi.Router) {
					r.Use(middleware.RequireMethodScope())
					r.Route("/tags", tags.Routes)
					r.Route("/ingredients", ingredients.Routes)
					r.Route("/recipes", recipes.Routes)
				})

				// API key management (requires admin scope for mutations)
				r.Route("/keys", func(r chi.Router) {
					r.With(middleware.RequireRead()).Get("/", keys.ListAPIKeys)
					r.With(middleware.RequireAdmin()).Post("/", keys.CreateAPIKey)
					r.With(middleware.RequireAdmin()).Delete("/{key_id}", keys.RevokeAPIKey)
					r.With(middleware.RequireAdmin()).Post("/{key_id}/rotate", keys.RotateAPIKey)
				})

				if cfg.Admin != nil {
					r.Route("/admin", func(r chi.Router) {
						r.Use(middleware.RequireAdmin())
						r.Get("/users", cfg.Admin.LookupUser)
						r.Get("/api-keys", cfg.Admin.ListAPIKeysByUser)
						r.Get("/stats", cfg.Admin.Stats)
					})
				}
			})

			r.With(
				middleware.RequireWrite(),
				middleware.MaxBodySize(cfg.MaxImageSize+uploadOverhead),
			).Post("/recipe/recipes/{id}/upload-image", recipes.UploadImage)
		})
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
