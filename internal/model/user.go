// Package model defines domain entities for the application.
package model

import "time"

// User is the account that owns tags, ingredients and recipes.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // Never serialize
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}
