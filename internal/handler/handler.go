// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"

	"github.com/recipebox/recipebox/internal/auth"
	"github.com/recipebox/recipebox/internal/handler/dto"
	"github.com/recipebox/recipebox/internal/middleware"
	"github.com/recipebox/recipebox/internal/service"
)

// Version is reported by the service info endpoint.
const Version = "1.0.0"

const msgRequired = "This field is required."

// Handler serves the endpoints that have no dependencies.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Hello reports the service name and version.
// GET /
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.InfoResponse{Name: "recipe-api", Version: Version})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found.")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method \""+r.Method+"\" not allowed.")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: message, Code: code})
}

// writeValidationError writes a 400 with per-field messages.
func writeValidationError(w http.ResponseWriter, v *service.ValidationError) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
		Error:  "Validation failed",
		Code:   "VALIDATION_ERROR",
		Fields: v.Fields,
	})
}

// decodeJSON reads the request body into dst. An empty body decodes to the
// zero value so that required-field checks report on it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large.")
		return false
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		v := &service.ValidationError{}
		v.Add(typeErr.Field, typeMismatchMessage(typeErr))
		writeValidationError(w, v)
		return false
	}
	writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
	return false
}

func typeMismatchMessage(err *json.UnmarshalTypeError) string {
	switch err.Type.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "A valid integer is required."
	case reflect.String:
		return "Not a valid string."
	case reflect.Slice:
		return fmt.Sprintf("Expected a list of items but got type %q.", err.Value)
	default:
		return "Invalid value."
	}
}

// callerID returns the authenticated user id. Routes using it sit behind
// the auth middleware.
func callerID(r *http.Request) string {
	userID, _ := auth.UserIDFromContext(r.Context())
	return userID
}

// handleServiceError maps service errors to HTTP responses.
func handleServiceError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	if v, ok := service.AsValidationError(err); ok {
		writeValidationError(w, v)
		return
	}
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found.")
	default:
		logger.Error("internal_error",
			"request_id", middleware.GetRequestID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
