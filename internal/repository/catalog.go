package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/recipebox/recipebox/internal/model"
)

// Common errors for tag and ingredient repository operations.
var (
	ErrTagNotFound        = errors.New("tag not found")
	ErrIngredientNotFound = errors.New("ingredient not found")
)

// catalogTable describes one of the owner-scoped name tables and the
// join table that attaches it to recipes.
type catalogTable struct {
	name     string
	join     string
	joinCol  string
	notFound error
}

var (
	tagTable        = catalogTable{name: "tags", join: "recipe_tags", joinCol: "tag_id", notFound: ErrTagNotFound}
	ingredientTable = catalogTable{name: "ingredients", join: "recipe_ingredients", joinCol: "ingredient_id", notFound: ErrIngredientNotFound}
)

// catalogRow has the same shape as model.Tag and model.Ingredient.
type catalogRow struct {
	ID     string
	Name   string
	UserID string
}

// CreateTag inserts a new tag.
func (r *Repository) CreateTag(ctx context.Context, tag *model.Tag) error {
	return r.createCatalogRow(ctx, tagTable, catalogRow(*tag))
}

// GetTag retrieves a tag owned by userID.
func (r *Repository) GetTag(ctx context.Context, userID, id string) (*model.Tag, error) {
	row, err := r.getCatalogRow(ctx, tagTable, userID, id)
	if err != nil {
		return nil, err
	}
	tag := model.Tag(*row)
	return &tag, nil
}

// ListTags returns the tags owned by userID ordered by name descending.
func (r *Repository) ListTags(ctx context.Context, userID string, filter model.CatalogFilter) ([]model.Tag, error) {
	rows, err := r.listCatalogRows(ctx, tagTable, userID, filter)
	if err != nil {
		return nil, err
	}
	tags := make([]model.Tag, len(rows))
	for i, row := range rows {
		tags[i] = model.Tag(row)
	}
	return tags, nil
}

// UpdateTag renames a tag owned by tag.UserID.
func (r *Repository) UpdateTag(ctx context.Context, tag *model.Tag) error {
	return r.updateCatalogRow(ctx, tagTable, catalogRow(*tag))
}

// DeleteTag removes a tag owned by userID. Recipe links go with it.
func (r *Repository) DeleteTag(ctx context.Context, userID, id string) error {
	return r.deleteCatalogRow(ctx, tagTable, userID, id)
}

// ExistingTagIDs returns the subset of ids that are tags owned by userID.
func (r *Repository) ExistingTagIDs(ctx context.Context, userID string, ids []string) ([]string, error) {
	return r.existingCatalogIDs(ctx, tagTable, userID, ids)
}

// CreateIngredient inserts a new ingredient.
func (r *Repository) CreateIngredient(ctx context.Context, ing *model.Ingredient) error {
	return r.createCatalogRow(ctx, ingredientTable, catalogRow(*ing))
}

// GetIngredient retrieves an ingredient owned by userID.
func (r *Repository) GetIngredient(ctx context.Context, userID, id string) (*model.Ingredient, error) {
	row, err := r.getCatalogRow(ctx, ingredientTable, userID, id)
	if err != nil {
		return nil, err
	}
	ing := model.Ingredient(*row)
	return &ing, nil
}

// ListIngredients returns the ingredients owned by userID ordered by name descending.
func (r *Repository) ListIngredients(ctx context.Context, userID string, filter model.CatalogFilter) ([]model.Ingredient, error) {
	rows, err := r.listCatalogRows(ctx, ingredientTable, userID, filter)
	if err != nil {
		return nil, err
	}
	ings := make([]model.Ingredient, len(rows))
	for i, row := range rows {
		ings[i] = model.Ingredient(row)
	}
	return ings, nil
}

// UpdateIngredient renames an ingredient owned by ing.UserID.
func (r *Repository) UpdateIngredient(ctx context.Context, ing *model.Ingredient) error {
	return r.updateCatalogRow(ctx, ingredientTable, catalogRow(*ing))
}

// DeleteIngredient removes an ingredient owned by userID.
func (r *Repository) DeleteIngredient(ctx context.Context, userID, id string) error {
	return r.deleteCatalogRow(ctx, ingredientTable, userID, id)
}

// ExistingIngredientIDs returns the subset of ids that are ingredients owned by userID.
func (r *Repository) ExistingIngredientIDs(ctx context.Context, userID string, ids []string) ([]string, error) {
	return r.existingCatalogIDs(ctx, ingredientTable, userID, ids)
}

func (r *Repository) createCatalogRow(ctx context.Context, t catalogTable, row catalogRow) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, user_id, name) VALUES ($1, $2, $3)`, t.name)

	if _, err := r.pool.Exec(ctx, query, row.ID, row.UserID, row.Name); err != nil {
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create %s row: %w", t.name, err)
	}
	return nil
}

func (r *Repository) getCatalogRow(ctx context.Context, t catalogTable, userID, id string) (*catalogRow, error) {
	query := fmt.Sprintf(`SELECT id, name, user_id FROM %s WHERE id = $1 AND user_id = $2`, t.name)

	var row catalogRow
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(&row.ID, &row.Name, &row.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, t.notFound
		}
		return nil, fmt.Errorf("failed to get %s row: %w", t.name, err)
	}
	return &row, nil
}

func (r *Repository) listCatalogRows(ctx context.Context, t catalogTable, userID string, filter model.CatalogFilter) ([]catalogRow, error) {
	query := fmt.Sprintf(`SELECT c.id, c.name, c.user_id FROM %s c WHERE c.user_id = $1`, t.name)
	if filter.AssignedOnly {
		query += fmt.Sprintf(` AND EXISTS (SELECT 1 FROM %s j WHERE j.%s = c.id)`, t.join, t.joinCol)
	}
	query += ` ORDER BY c.name DESC, c.id DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", t.name, err)
	}
	defer rows.Close()

	result := []catalogRow{}
	for rows.Next() {
		var row catalogRow
		if err := rows.Scan(&row.ID, &row.Name, &row.UserID); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", t.name, err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", t.name, err)
	}
	return result, nil
}

func (r *Repository) updateCatalogRow(ctx context.Context, t catalogTable, row catalogRow) error {
	query := fmt.Sprintf(`UPDATE %s SET name = $3 WHERE id = $1 AND user_id = $2`, t.name)

	result, err := r.pool.Exec(ctx, query, row.ID, row.UserID, row.Name)
	if err != nil {
		return fmt.Errorf("failed to update %s row: %w", t.name, err)
	}
	if result.RowsAffected() == 0 {
		return t.notFound
	}
	return nil
}

func (r *Repository) deleteCatalogRow(ctx context.Context, t catalogTable, userID, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, t.name)

	result, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete %s row: %w", t.name, err)
	}
	if result.RowsAffected() == 0 {
		return t.notFound
	}
	return nil
}

func (r *Repository) existingCatalogIDs(ctx context.Context, t catalogTable, userID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}

	query := fmt.Sprintf(`SELECT id FROM %s WHERE user_id = $1 AND id = ANY($2::text[])`, t.name)

	rows, err := r.pool.Query(ctx, query, userID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s ids: %w", t.name, err)
	}
	defer rows.Close()

	found := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan %s id: %w", t.name, err)
		}
		found = append(found, id)
	}
	return found, rows.Err()
}
