package auth

import (
	"strings"
	"testing"
)

func TestHashPassword_Format(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("testpass")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		t.Fatalf("hash should have 6 parts, got %d: %s", len(parts), hash)
	}
	if parts[1] != "argon2id" || parts[2] != "v=19" || parts[3] != "m=65536,t=3,p=4" {
		t.Errorf("unexpected PHC header: %s", hash)
	}
}

func TestVerifyPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("testpass")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	other, err := HashPassword("testpass")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == other {
		t.Error("hashes of the same password should differ by salt")
	}

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"correct", "testpass", true},
		{"wrong", "otherpass", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := VerifyPassword(tt.password, hash)
			if err != nil {
				t.Fatalf("VerifyPassword returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("VerifyPassword(%q) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}
}

func TestVerifyPassword_InvalidHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		hash    string
		wantErr error
	}{
		{"empty", "", ErrInvalidHash},
		{"garbage", "not-a-hash", ErrInvalidHash},
		{"bcrypt", "$2a$10$abcdefghijklmnopqrstuv", ErrInvalidHash},
		{"truncated", "$argon2id$v=19$m=65536", ErrInvalidHash},
		{"bad params", "$argon2id$v=19$m=x,t=3,p=4$c2FsdA$aGFzaA", ErrInvalidHash},
		{"old version", "$argon2id$v=18$m=65536,t=3,p=4$c29tZXNhbHRoZXJl$c29tZWhhc2hoZXJl", ErrIncompatibleVersion},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			match, err := VerifyPassword("password", tt.hash)
			if err != tt.wantErr {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if match {
				t.Error("malformed hash must never match")
			}
		})
	}
}

func TestNeedsRehash(t *testing.T) {
	t.Parallel()

	current, err := HashPassword("testpass")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if NeedsRehash(current) {
		t.Error("hash with default params should not need rehash")
	}

	weak, err := HashWithParams("testpass", Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16})
	if err != nil {
		t.Fatalf("HashWithParams failed: %v", err)
	}
	if !NeedsRehash(weak) {
		t.Error("hash with weaker params should need rehash")
	}
	if ok, _ := VerifyPassword("testpass", weak); !ok {
		t.Error("hash with custom params should still verify")
	}

	if !NeedsRehash("garbage") {
		t.Error("unparseable hash should need rehash")
	}
}

func TestQuickHash(t *testing.T) {
	t.Parallel()

	a := QuickHash("rb_live_abc123_secret")
	if a != QuickHash("rb_live_abc123_secret") {
		t.Error("QuickHash should be deterministic")
	}
	if len(a) != 32 {
		t.Errorf("QuickHash length = %d, want 32", len(a))
	}
	if a == QuickHash("rb_live_abc123_other") {
		t.Error("different inputs should hash differently")
	}
}
