// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// InfoResponse describes the running service.
type InfoResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}
