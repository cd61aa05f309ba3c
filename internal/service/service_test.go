package service

import (
	"context"
	"testing"
	"time"

	"github.com/recipebox/recipebox/internal/model"
	"github.com/recipebox/recipebox/internal/repository/memstore"
)

func newStoreWithUser(t *testing.T) (*memstore.Store, *model.User) {
	t.Helper()
	store := memstore.New()
	return store, addUser(t, store, "owner@example.com")
}

func addUser(t *testing.T, store *memstore.Store, email string) *model.User {
	t.Helper()
	user := &model.User{
		ID:        email,
		Email:     email,
		Name:      "Test",
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func ptr[T any](v T) *T {
	return &v
}
