package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/recipebox/recipebox/internal/handler/dto"
	"github.com/recipebox/recipebox/internal/model"
	"github.com/recipebox/recipebox/internal/service"
)

// multipartMemory is the part of an upload kept in memory before spilling to disk.
const multipartMemory = 1 << 20

// RecipeHandler handles HTTP requests for recipe operations.
type RecipeHandler struct {
	svc      *service.RecipeService
	mediaURL string
	logger   *slog.Logger
}

// NewRecipeHandler creates a new RecipeHandler. mediaURL is the path or
// absolute URL the media root is served under, e.g. "/media/".
func NewRecipeHandler(svc *service.RecipeService, mediaURL string, logger *slog.Logger) *RecipeHandler {
	if !strings.HasSuffix(mediaURL, "/") {
		mediaURL += "/"
	}
	return &RecipeHandler{svc: svc, mediaURL: mediaURL, logger: logger}
}

// List handles GET /api/recipe/recipes.
// Query: tags=<id,id>, ingredients=<id,id>
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.RecipeFilter{
		TagIDs:        service.ParseIDList(q.Get("tags")),
		IngredientIDs: service.ParseIDList(q.Get("ingredients")),
	}

	recipes, err := h.svc.List(r.Context(), callerID(r), filter)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToRecipeList(recipes))
}

// Create handles POST /api/recipe/recipes.
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	recipe, err := h.svc.Create(r.Context(), callerID(r), in)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.Info("recipe_created",
		"recipe_id", recipe.ID,
		"user_id", recipe.UserID,
		"tags", len(recipe.Tags),
		"ingredients", len(recipe.Ingredients),
	)
	writeJSON(w, http.StatusCreated, dto.ToRecipeResponse(recipe))
}

// Get handles GET /api/recipe/recipes/{id}. Relations are expanded.
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.svc.Get(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToRecipeDetailResponse(recipe))
}

// Update handles PUT (full) and PATCH (partial) /api/recipe/recipes/{id}.
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	partial := r.Method == http.MethodPatch
	recipe, err := h.svc.Update(r.Context(), callerID(r), chi.URLParam(r, "id"), in, partial)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.Info("recipe_updated", "recipe_id", recipe.ID, "partial", partial)
	writeJSON(w, http.StatusOK, dto.ToRecipeResponse(recipe))
}

// Delete handles DELETE /api/recipe/recipes/{id}.
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(r.Context(), callerID(r), id); err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.Info("recipe_deleted", "recipe_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// UploadImage handles POST /api/recipe/recipes/{id}/upload-image.
// The image is read from the multipart field "image".
func (h *RecipeHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large.")
			return
		}
		writeValidationError(w, noFileSubmitted())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, _, err := r.FormFile("image")
	if err != nil {
		writeValidationError(w, noFileSubmitted())
		return
	}
	defer file.Close()

	recipe, err := h.svc.UploadImage(r.Context(), callerID(r), chi.URLParam(r, "id"), file)
	if err != nil {
		handleServiceError(h.logger, w, r, err)
		return
	}

	h.logger.Info("recipe_image_uploaded", "recipe_id", recipe.ID, "path", recipe.Image)
	writeJSON(w, http.StatusOK, dto.ToRecipeImageResponse(recipe, h.mediaBase(r)))
}

// Routes mounts the recipe routes.
func (h *RecipeHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

func (h *RecipeHandler) decodeInput(w http.ResponseWriter, r *http.Request) (service.RecipeInput, bool) {
	var req dto.RecipeRequest
	if !decodeJSON(w, r, &req) {
		return service.RecipeInput{}, false
	}
	in, err := req.ToInput()
	if err != nil {
		v := &service.ValidationError{}
		v.Add("price", "A valid number is required.")
		writeValidationError(w, v)
		return service.RecipeInput{}, false
	}
	return in, true
}

func noFileSubmitted() *service.ValidationError {
	v := &service.ValidationError{}
	v.Add("image", "No file was submitted.")
	return v
}

// mediaBase returns the absolute URL prefix for stored files.
func (h *RecipeHandler) mediaBase(r *http.Request) string {
	if strings.HasPrefix(h.mediaURL, "http://") || strings.HasPrefix(h.mediaURL, "https://") {
		return h.mediaURL
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + h.mediaURL
}
