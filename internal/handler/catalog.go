package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/recipebox/recipebox/internal/handler/dto"
	"github.com/recipebox/recipebox/internal/model"
	"github.com/recipebox/recipebox/internal/service"
)

// catalogService is the method set shared by TagService and IngredientService.
type catalogService[T any] interface {
	List(ctx context.Context, userID string, filter model.CatalogFilter) ([]T, error)
	Get(ctx context.Context, userID, id string) (*T, error)
	Create(ctx context.Context, userID, name string) (*T, error)
	Rename(ctx context.Context, userID, id, name string) (*T, error)
	Delete(ctx context.Context, userID, id string) error
}

// CatalogHandler serves the owner-scoped name-only resources: tags and ingredients.
type CatalogHandler[T, R any] struct {
	svc     catalogService[T]
	convert func(*T) R
	event   string
	logger  *slog.Logger
}

// TagHandler handles /api/recipe/tags.
type TagHandler = CatalogHandler[model.Tag, dto.TagResponse]

// IngredientHandler handles /api/recipe/ingredients.
type IngredientHandler = CatalogHandler[model.Ingredient, dto.IngredientResponse]

// NewTagHandler creates a new TagHandler.
func NewTagHandler(svc *service.TagService, logger *slog.Logger) *TagHandler {
	return &TagHandler{svc: svc, convert: dto.ToTagResponse, event: "tag", logger: logger}
}

// NewIngredientHandler creates a new IngredientHandler.
func NewIngredientHandler(svc *service.IngredientService, logger *slog.Logger) *IngredientHandler {
	return &IngredientHandler{svc: svc, convert: dto.ToIngredientResponse, event: "ingredient", logger: logger}
}

// List handles GET /. ?assigned_only=1 keeps items used by a recipe.
func (h *CatalogHandler[T, R]) List(w http.ResponseWriter, r *http.Request) {
	filter := model.CatalogFilter{AssignedOnly: isTruthy(r.URL.Query().Get("assigned_only"))}

	items, err := h.svc.List(r.Context(), callerID(r), filter)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	out := make([]R, len(items))
	for i := range items {
		out[i] = h.convert(&items[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// Create handles POST /.
func (h *CatalogHandler[T, R]) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.NameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Name == nil {
		writeValidationError(w, nameRequired())
		return
	}

	item, err := h.svc.Create(r.Context(), callerID(r), *req.Name)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.Info(h.event+"_created", "user_id", callerID(r))
	writeJSON(w, http.StatusCreated, h.convert(item))
}

// Get handles GET /{id}.
func (h *CatalogHandler[T, R]) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Get(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.convert(item))
}

// Update handles PUT and PATCH /{id}. A PATCH without a name changes nothing.
func (h *CatalogHandler[T, R]) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.NameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if req.Name == nil {
		if r.Method == http.MethodPatch {
			h.Get(w, r)
			return
		}
		writeValidationError(w, nameRequired())
		return
	}

	item, err := h.svc.Rename(r.Context(), callerID(r), id, *req.Name)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.Info(h.event+"_updated", "id", id)
	writeJSON(w, http.StatusOK, h.convert(item))
}

// Delete handles DELETE /{id}.
func (h *CatalogHandler[T, R]) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), callerID(r), id); err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.Info(h.event+"_deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// Routes mounts the collection and item routes.
func (h *CatalogHandler[T, R]) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

func nameRequired() *service.ValidationError {
	v := &service.ValidationError{}
	v.Add("name", msgRequired)
	return v
}

func isTruthy(v string) bool {
	switch v {
	case "1", "true", "True", "yes":
		return true
	}
	return false
}
