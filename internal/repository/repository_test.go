package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestPgErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		unique     bool
		foreignKey bool
	}{
		{"nil", nil, false, false},
		{"plain", errors.New("unique something"), false, false},
		{"unique", &pgconn.PgError{Code: pgUniqueViolation}, true, false},
		{"wrapped unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgUniqueViolation}), true, false},
		{"foreign key", &pgconn.PgError{Code: pgForeignKeyViolation}, false, true},
		{"other code", &pgconn.PgError{Code: "23502"}, false, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isUniqueViolation(tt.err); got != tt.unique {
				t.Errorf("isUniqueViolation() = %v, want %v", got, tt.unique)
			}
			if got := isForeignKeyViolation(tt.err); got != tt.foreignKey {
				t.Errorf("isForeignKeyViolation() = %v, want %v", got, tt.foreignKey)
			}
		})
	}
}

func TestCatalogTables(t *testing.T) {
	t.Parallel()

	if tagTable.notFound != ErrTagNotFound || ingredientTable.notFound != ErrIngredientNotFound {
		t.Fatal("catalog tables map to the wrong not-found errors")
	}
	if tagTable.join != "recipe_tags" || ingredientTable.join != "recipe_ingredients" {
		t.Fatal("catalog tables point at the wrong join tables")
	}
}
