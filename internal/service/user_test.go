package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/recipebox/recipebox/internal/auth"
	"github.com/recipebox/recipebox/internal/metrics"
	"github.com/recipebox/recipebox/internal/repository/memstore"
)

func newUserService(t *testing.T) (*UserService, *auth.TokenIssuer, *metrics.InMemoryRecorder) {
	t.Helper()
	issuer := auth.NewTokenIssuer("test-secret-test-secret-test-secret", time.Hour)
	recorder := metrics.NewInMemory()
	return NewUserService(memstore.New(), issuer, recorder), issuer, recorder
}

func validUserInput() UserInput {
	return UserInput{
		Email:    ptr("test@EXAMPLE.com"),
		Password: ptr("testpass123"),
		Name:     ptr("Test Name"),
	}
}

func TestUserService_Create(t *testing.T) {
	t.Parallel()
	svc, _, recorder := newUserService(t)

	user, err := svc.Create(context.Background(), validUserInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.Email != "test@example.com" {
		t.Errorf("Email = %q, want normalized domain", user.Email)
	}
	if user.PasswordHash == "testpass123" {
		t.Error("password stored in plaintext")
	}
	ok, err := auth.VerifyPassword("testpass123", user.PasswordHash)
	if err != nil || !ok {
		t.Errorf("stored hash does not verify: %v", err)
	}
	if !user.IsActive {
		t.Error("new users should be active")
	}
	if got := recorder.Snapshot().UsersRegistered; got != 1 {
		t.Errorf("users registered = %d, want 1", got)
	}
}

func TestUserService_CreateDuplicateEmail(t *testing.T) {
	t.Parallel()
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, validUserInput()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err := svc.Create(ctx, validUserInput())
	v, ok := AsValidationError(err)
	if !ok || !v.Has("email") {
		t.Fatalf("expected email validation error, got %v", err)
	}
	if got := v.Fields["email"][0]; got != "user with this email already exists." {
		t.Errorf("message = %q", got)
	}
}

func TestUserService_CreateValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*UserInput)
		field  string
	}{
		{"short password", func(in *UserInput) { in.Password = ptr("pw") }, "password"},
		{"missing password", func(in *UserInput) { in.Password = nil }, "password"},
		{"bad email", func(in *UserInput) { in.Email = ptr("not-an-email") }, "email"},
		{"blank name", func(in *UserInput) { in.Name = ptr("") }, "name"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, _, _ := newUserService(t)

			in := validUserInput()
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), in)
			if v, ok := AsValidationError(err); !ok || !v.Has(tt.field) {
				t.Fatalf("expected %s validation error, got %v", tt.field, err)
			}
		})
	}
}

func TestUserService_IssueToken(t *testing.T) {
	t.Parallel()
	svc, issuer, recorder := newUserService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, validUserInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	token, err := svc.IssueToken(ctx, "test@example.com", "testpass123")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("token user = %q, want %q", claims.UserID, user.ID)
	}
	if got := recorder.Snapshot().TokensIssued; got != 1 {
		t.Errorf("tokens issued = %d, want 1", got)
	}
}

func TestUserService_IssueTokenFailures(t *testing.T) {
	t.Parallel()
	svc, _, recorder := newUserService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, validUserInput()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "test@example.com", "badpass"},
		{"unknown email", "nobody@example.com", "testpass123"},
	}
	for _, tt := range tests {
		_, err := svc.IssueToken(ctx, tt.email, tt.password)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%s: got %v, want ErrInvalidCredentials", tt.name, err)
			continue
		}
		v, _ := AsValidationError(err)
		if !v.Has(NonFieldErrors) {
			t.Errorf("%s: expected non_field_errors, got %v", tt.name, v.Fields)
		}
	}

	_, err := svc.IssueToken(ctx, "test@example.com", "")
	if v, ok := AsValidationError(err); !ok || !v.Has("password") {
		t.Errorf("blank password: got %v", err)
	}

	if got := recorder.Snapshot().LoginsFailed; got != 2 {
		t.Errorf("logins failed = %d, want 2", got)
	}
}

func TestUserService_Update(t *testing.T) {
	t.Parallel()
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, validUserInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Update(ctx, user.ID, UserInput{Name: ptr("Updated name"), Password: ptr("newpassword123")}, true)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Updated name" || updated.Email != user.Email {
		t.Errorf("unexpected user after update: %+v", updated)
	}

	if _, err := svc.IssueToken(ctx, user.Email, "newpassword123"); err != nil {
		t.Errorf("new password should authenticate: %v", err)
	}
	if _, err := svc.IssueToken(ctx, user.Email, "testpass123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password should be rejected, got %v", err)
	}

	if _, err := svc.Update(ctx, user.ID, UserInput{Name: ptr("Only name")}, false); err == nil {
		t.Error("full update without every field should fail")
	}
	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
}
