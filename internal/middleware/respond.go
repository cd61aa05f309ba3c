package middleware

import (
	"encoding/json"
	"net/http"
)

// errorBody mirrors dto.ErrorResponse so middleware and handlers emit the
// same error shape.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: message, Code: code})
}

// writeAuthError writes a 401 Unauthorized response.
// Every auth failure gets the same message to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication credentials were not provided or are invalid.")
}
