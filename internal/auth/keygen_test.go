package auth

import (
	"strings"
	"testing"
)

func TestGenerateAPIKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		env        string
		wantPrefix string
	}{
		{EnvLive, "rb_live_"},
		{EnvTest, "rb_test_"},
		{"", "rb_live_"},
		{"staging", "rb_live_"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run("env="+tt.env, func(t *testing.T) {
			t.Parallel()

			key, err := GenerateAPIKey(tt.env)
			if err != nil {
				t.Fatalf("GenerateAPIKey failed: %v", err)
			}
			if !strings.HasPrefix(key.Plaintext, tt.wantPrefix) {
				t.Errorf("plaintext %q should start with %q", key.Plaintext, tt.wantPrefix)
			}
			if len(key.Prefix) != KeyPrefixLen {
				t.Errorf("prefix length = %d, want %d", len(key.Prefix), KeyPrefixLen)
			}
			if !LooksLikeAPIKey(key.Plaintext) {
				t.Errorf("generated key %q does not match the key format", key.Plaintext)
			}

			match, err := VerifyPassword(key.Plaintext, key.Hash)
			if err != nil || !match {
				t.Errorf("stored hash should verify the plaintext key (match=%v, err=%v)", match, err)
			}
		})
	}
}

func TestGenerateAPIKey_Unique(t *testing.T) {
	t.Parallel()

	const n = 20
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		key, err := GenerateAPIKey(EnvTest)
		if err != nil {
			t.Fatalf("GenerateAPIKey failed: %v", err)
		}
		if seen[key.Plaintext] {
			t.Fatalf("duplicate key generated at iteration %d", i)
		}
		seen[key.Plaintext] = true
	}
}

func TestParseAPIKey(t *testing.T) {
	t.Parallel()

	const secret = "4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b"

	tests := []struct {
		name       string
		key        string
		wantEnv    string
		wantPrefix string
		wantErr    error
	}{
		{"live key", "rb_live_abc123_" + secret, "live", "abc123", nil},
		{"test key", "rb_test_def456_" + secret, "test", "def456", nil},
		{"foreign prefix", "pk_live_abc123_" + secret, "", "", ErrInvalidKeyFormat},
		{"unknown env", "rb_prod_abc123_" + secret, "", "", ErrInvalidKeyFormat},
		{"short prefix", "rb_live_abc_" + secret, "", "", ErrInvalidKeyFormat},
		{"short secret", "rb_live_abc123_4f8d2e1b", "", "", ErrInvalidKeyFormat},
		{"long secret", "rb_live_abc123_" + secret + "0", "", "", ErrInvalidKeyFormat},
		{"uppercase hex", "rb_live_ABC123_" + strings.ToUpper(secret), "", "", ErrInvalidKeyFormat},
		{"jwt shaped", "eyJhbGciOiJIUzI1NiJ9.e30.sig", "", "", ErrInvalidKeyFormat},
		{"empty", "", "", "", ErrInvalidKeyFormat},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			parsed, err := ParseAPIKey(tt.key)
			if err != tt.wantErr {
				t.Fatalf("ParseAPIKey(%q) error = %v, want %v", tt.key, err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if LooksLikeAPIKey(tt.key) {
					t.Errorf("LooksLikeAPIKey(%q) = true for an invalid key", tt.key)
				}
				return
			}
			if parsed.Env != tt.wantEnv || parsed.Prefix != tt.wantPrefix {
				t.Errorf("parsed = %+v, want env %s prefix %s", parsed, tt.wantEnv, tt.wantPrefix)
			}
		})
	}
}
