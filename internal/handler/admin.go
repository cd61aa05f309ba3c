package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/recipebox/recipebox/internal/model"
	"github.com/recipebox/recipebox/internal/repository"
	"github.com/recipebox/recipebox/internal/service"
)

// AdminUserFinder looks up accounts by email.
type AdminUserFinder interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// AdminKeyLister defines the interface for listing API keys.
type AdminKeyLister interface {
	ListAPIKeysByUserID(ctx context.Context, userID string) ([]*model.APIKey, error)
}

// AdminHandler provides admin-only endpoints for support and operations.
type AdminHandler struct {
	users     AdminUserFinder
	keys      AdminKeyLister
	logger    *slog.Logger
	startedAt time.Time
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(users AdminUserFinder, keys AdminKeyLister, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		users:     users,
		keys:      keys,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// AdminUserResponse describes an account for support staff.
type AdminUserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// AdminAPIKeyListResponse represents the response for listing API keys.
type AdminAPIKeyListResponse struct {
	Keys  []model.APIKeyResponse `json:"keys"`
	Total int                    `json:"total"`
}

// LookupUser handles GET /api/admin/users?email={email}
func (h *AdminHandler) LookupUser(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "MISSING_EMAIL", "query parameter 'email' is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := h.users.GetUserByEmail(ctx, service.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found.")
			return
		}
		handleServiceError(h.logger, w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AdminUserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	})
}

// ListAPIKeysByUser handles GET /api/admin/api-keys?user_id={id}
// Lists all API keys for a specific user, revoked ones included.
func (h *AdminHandler) ListAPIKeysByUser(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_USER_ID", "query parameter 'user_id' is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	keys, err := h.keys.ListAPIKeysByUserID(ctx, userID)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	response := AdminAPIKeyListResponse{
		Keys:  make([]model.APIKeyResponse, 0, len(keys)),
		Total: len(keys),
	}
	for _, key := range keys {
		response.Keys = append(response.Keys, key.ToResponse())
	}

	writeJSON(w, http.StatusOK, response)
}

// StatsResponse represents operational statistics.
type StatsResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
}

// Stats handles GET /api/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatsResponse{
		Timestamp: time.Now().UTC(),
		Service:   "recipe-api",
		Version:   Version,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
	})
}
