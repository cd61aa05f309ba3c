// Package config loads application configuration from the environment.
// A .env file in the working directory is applied first when present.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// devJWTSecret is accepted outside production only.
const devJWTSecret = "dev-secret-change-me"

// ErrInsecureJWTSecret is returned when production runs with the dev secret.
var ErrInsecureJWTSecret = errors.New("JWT_SECRET must be set in production")

// Config holds all application configuration.
type Config struct {
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`

	RedisPoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	RedisMinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	RedisDialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`

	// Session tokens
	JWTSecret string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting. Public limits apply per client IP to the user endpoints.
	RateLimitAPIEnabled    bool `env:"RATE_LIMIT_API_ENABLED" envDefault:"true"`
	RateLimitPublicEnabled bool `env:"RATE_LIMIT_PUBLIC_ENABLED" envDefault:"true"`
	RateLimitPublicRPS     int  `env:"RATE_LIMIT_PUBLIC_RPS" envDefault:"5"`
	RateLimitPublicBurst   int  `env:"RATE_LIMIT_PUBLIC_BURST" envDefault:"10"`

	// Comma-separated list of allowed origins
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Uploaded recipe images
	MediaRoot    string `env:"MEDIA_ROOT" envDefault:"./media"`
	MediaURL     string `env:"MEDIA_URL" envDefault:"/media/"`
	MaxImageSize int64  `env:"MAX_IMAGE_SIZE" envDefault:"5242880"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))
	for _, origin := range origins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	if c.IsProduction() && c.JWTSecret == devJWTSecret {
		return ErrInsecureJWTSecret
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
	}
	if !strings.HasPrefix(c.MediaURL, "/") || !strings.HasSuffix(c.MediaURL, "/") {
		return fmt.Errorf("MEDIA_URL must start and end with '/', got %q", c.MediaURL)
	}
	return nil
}

// Load reads an optional .env file, parses environment variables and validates
// the result. Variables already set in the environment win over .env values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// A missing file is fine; the environment alone may be complete.
		_ = godotenv.Load(f)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
