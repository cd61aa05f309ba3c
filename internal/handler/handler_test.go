package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/recipebox/recipebox/internal/handler/dto"
	"github.com/recipebox/recipebox/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeError(t *testing.T, body io.Reader) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return resp
}

func TestHandler_Hello(t *testing.T) {
	h := New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	h.Hello(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var response dto.InfoResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Name != "recipe-api" || response.Version != Version {
		t.Errorf("unexpected info: %+v", response)
	}
}

func TestHandler_NotFound(t *testing.T) {
	h := New()

	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	rec := httptest.NewRecorder()

	h.NotFound(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
	if resp := decodeError(t, rec.Body); resp.Code != "NOT_FOUND" {
		t.Errorf("unexpected code: %s", resp.Code)
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := New()

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()

	h.MethodNotAllowed(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rec.Code)
	}
	resp := decodeError(t, rec.Body)
	if resp.Code != "METHOD_NOT_ALLOWED" || !strings.Contains(resp.Error, "POST") {
		t.Errorf("unexpected body: %+v", resp)
	}
}

func TestHandleServiceError(t *testing.T) {
	t.Parallel()

	validation := &service.ValidationError{}
	validation.Add("name", "This field may not be blank.")

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantField  string
	}{
		{"validation", validation, http.StatusBadRequest, "VALIDATION_ERROR", "name"},
		{"wrapped validation", fmt.Errorf("create: %w", validation), http.StatusBadRequest, "VALIDATION_ERROR", "name"},
		{"not found", service.ErrNotFound, http.StatusNotFound, "NOT_FOUND", ""},
		{"wrapped not found", fmt.Errorf("get: %w", service.ErrNotFound), http.StatusNotFound, "NOT_FOUND", ""},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()

			handleServiceError(discardLogger(), rec, req, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			resp := decodeError(t, rec.Body)
			if resp.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Code, tt.wantCode)
			}
			if tt.wantField != "" && len(resp.Fields[tt.wantField]) == 0 {
				t.Errorf("expected field error on %s, got %v", tt.wantField, resp.Fields)
			}
			if tt.wantField == "" && resp.Fields != nil {
				t.Errorf("expected no fields, got %v", resp.Fields)
			}
			if tt.wantStatus == http.StatusInternalServerError && strings.Contains(resp.Error, "connection reset") {
				t.Error("internal error detail leaked to client")
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		body      string
		wantOK    bool
		wantCode  string
		wantField string
	}{
		{"valid", `{"name":"Salt"}`, true, "", ""},
		{"empty body", ``, true, "", ""},
		{"malformed", `{"name":`, false, "INVALID_JSON", ""},
		{"wrong type", `{"name":5}`, false, "VALIDATION_ERROR", "name"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			var dst dto.NameRequest
			ok := decodeJSON(rec, req, &dst)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				resp := decodeError(t, rec.Body)
				if resp.Code != tt.wantCode {
					t.Errorf("code = %s, want %s", resp.Code, tt.wantCode)
				}
				if tt.wantField != "" && len(resp.Fields[tt.wantField]) == 0 {
					t.Errorf("expected error on %s, got %v", tt.wantField, resp.Fields)
				}
			}
		})
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("a", 64)+`"}`))
	rec := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(rec, req.Body, 16)

	var dst dto.NameRequest
	if decodeJSON(rec, req, &dst) {
		t.Fatal("expected decode to fail")
	}
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}
