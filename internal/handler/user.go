package handler

import (
	"log/slog"
	"net/http"

	"github.com/recipebox/recipebox/internal/handler/dto"
	"github.com/recipebox/recipebox/internal/service"
)

// UserHandler handles account endpoints.
type UserHandler struct {
	svc    *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// Create handles POST /api/user/create.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.UserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.svc.Create(r.Context(), req.ToInput())
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.Info("user_created", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, dto.ToUserResponse(user))
}

// Token handles POST /api/user/token.
func (h *UserHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req dto.TokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := h.svc.IssueToken(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.TokenResponse{Token: token})
}

// Me handles GET /api/user/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Get(r.Context(), callerID(r))
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// UpdateMe handles PUT (full) and PATCH (partial) /api/user/me.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req dto.UserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	partial := r.Method == http.MethodPatch
	user, err := h.svc.Update(r.Context(), callerID(r), req.ToInput(), partial)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.Info("user_updated", "user_id", user.ID, "password_changed", req.Password != nil)
	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}
