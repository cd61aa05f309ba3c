package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		incoming string
		wantSame bool
	}{
		{"absent", "", false},
		{"client id reused", "req-42.abc_DEF", true},
		{"newline rejected", "abc\nforged=1", false},
		{"spaces rejected", "a b", false},
		{"too long", strings.Repeat("a", maxRequestIDLength+1), false},
		{"max length", strings.Repeat("a", maxRequestIDLength), true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var seen string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if got := rec.Header().Get(RequestIDHeader); got != seen {
				t.Errorf("header %q differs from context %q", got, seen)
			}
			if tt.wantSame {
				if seen != tt.incoming {
					t.Errorf("id = %q, want %q", seen, tt.incoming)
				}
				return
			}
			if _, err := uuid.Parse(seen); err != nil {
				t.Errorf("id = %q, want a generated UUID", seen)
			}
		})
	}
}
