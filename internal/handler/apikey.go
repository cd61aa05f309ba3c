package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/recipebox/recipebox/internal/model"
	"github.com/recipebox/recipebox/internal/service"
)

// APIKeyHandler handles API key management endpoints.
type APIKeyHandler struct {
	svc    *service.APIKeyService
	logger *slog.Logger
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(svc *service.APIKeyService, logger *slog.Logger) *APIKeyHandler {
	return &APIKeyHandler{svc: svc, logger: logger}
}

// CreateAPIKey handles POST /api/keys.
// The plaintext key appears in this response only.
func (h *APIKeyHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req model.APIKeyCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID := callerID(r)
	created, err := h.svc.Create(r.Context(), userID, req)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.Info("api_key_created",
		slog.String("key_id", created.ID),
		slog.String("key_prefix", created.KeyPrefix),
		slog.String("user_id", userID),
	)
	writeJSON(w, http.StatusCreated, created)
}

// ListAPIKeys handles GET /api/keys.
func (h *APIKeyHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.svc.List(r.Context(), callerID(r))
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	responses := make([]model.APIKeyResponse, 0, len(keys))
	for _, key := range keys {
		responses = append(responses, key.ToResponse())
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": responses})
}

// RevokeAPIKey handles DELETE /api/keys/{key_id}.
// Foreign and already revoked keys are reported as missing.
func (h *APIKeyHandler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "key_id")
	userID := callerID(r)

	if err := h.svc.Revoke(r.Context(), userID, keyID); err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.Info("api_key_revoked",
		slog.String("key_id", keyID),
		slog.String("user_id", userID),
	)
	w.WriteHeader(http.StatusNoContent)
}

// RotateAPIKey handles POST /api/keys/{key_id}/rotate.
func (h *APIKeyHandler) RotateAPIKey(w http.ResponseWriter, r *http.Request) {
	keyID := chi.URLParam(r, "key_id")
	userID := callerID(r)

	rotated, err := h.svc.Rotate(r.Context(), userID, keyID)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.Info("api_key_rotated",
		slog.String("old_key_id", rotated.OldKeyID),
		slog.String("new_key_id", rotated.NewKey.ID),
		slog.String("user_id", userID),
	)
	writeJSON(w, http.StatusCreated, rotated)
}
