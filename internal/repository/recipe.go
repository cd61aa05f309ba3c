package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/recipebox/recipebox/internal/model"
	"github.com/shopspring/decimal"
)

// Common errors for recipe repository operations.
var (
	ErrRecipeNotFound = errors.New("recipe not found")
)

const recipeColumns = `r.id, r.user_id, r.title, r.time_minutes, r.price::text, r.link, r.image, r.created_at, r.updated_at`

// CreateRecipe inserts a recipe and its ingredient and tag links in one transaction.
// Only the IDs of recipe.Ingredients and recipe.Tags are read.
func (r *Repository) CreateRecipe(ctx context.Context, recipe *model.Recipe) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO recipes (id, user_id, title, time_minutes, price, link, image, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9)
		`
		_, err := tx.Exec(ctx, query,
			recipe.ID,
			recipe.UserID,
			recipe.Title,
			recipe.TimeMinutes,
			recipe.Price.String(),
			recipe.Link,
			recipe.Image,
			recipe.CreatedAt,
			recipe.UpdatedAt,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to create recipe: %w", err)
		}

		return writeRecipeLinks(ctx, tx, recipe)
	})
}

// GetRecipe retrieves a recipe owned by userID with its ingredients and tags.
func (r *Repository) GetRecipe(ctx context.Context, userID, id string) (*model.Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes r WHERE r.id = $1 AND r.user_id = $2`

	recipe, err := scanRecipe(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}

	if err := loadRecipeRelations(ctx, r.pool, []*model.Recipe{recipe}); err != nil {
		return nil, err
	}
	return recipe, nil
}

// ListRecipes returns the recipes owned by userID, newest first.
// Filters match recipes linked to any of the given tags and any of the
// given ingredients.
func (r *Repository) ListRecipes(ctx context.Context, userID string, filter model.RecipeFilter) ([]*model.Recipe, error) {
	var (
		conditions = []string{"r.user_id = $1"}
		args       = []any{userID}
	)

	if len(filter.TagIDs) > 0 {
		args = append(args, pq.Array(filter.TagIDs))
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM recipe_tags rt WHERE rt.recipe_id = r.id AND rt.tag_id = ANY($%d::text[]))", len(args)))
	}
	if len(filter.IngredientIDs) > 0 {
		args = append(args, pq.Array(filter.IngredientIDs))
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM recipe_ingredients ri WHERE ri.recipe_id = r.id AND ri.ingredient_id = ANY($%d::text[]))", len(args)))
	}

	query := `SELECT ` + recipeColumns + ` FROM recipes r WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY r.id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	recipes := []*model.Recipe{}
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipes: %w", err)
	}

	if err := loadRecipeRelations(ctx, r.pool, recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// UpdateRecipe overwrites the scalar fields and replaces the ingredient and
// tag links with the ones on recipe. The image is left alone; only
// SetRecipeImage writes it.
func (r *Repository) UpdateRecipe(ctx context.Context, recipe *model.Recipe) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE recipes
			SET title = $3, time_minutes = $4, price = $5::numeric, link = $6, updated_at = $7
			WHERE id = $1 AND user_id = $2
		`
		result, err := tx.Exec(ctx, query,
			recipe.ID,
			recipe.UserID,
			recipe.Title,
			recipe.TimeMinutes,
			recipe.Price.String(),
			recipe.Link,
			recipe.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update recipe: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrRecipeNotFound
		}

		for _, table := range []string{"recipe_ingredients", "recipe_tags"} {
			if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE recipe_id = $1`, recipe.ID); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		return writeRecipeLinks(ctx, tx, recipe)
	})
}

// SetRecipeImage stores the media path of the recipe's image.
func (r *Repository) SetRecipeImage(ctx context.Context, userID, id, image string) error {
	query := `UPDATE recipes SET image = $3, updated_at = $4 WHERE id = $1 AND user_id = $2`

	result, err := r.pool.Exec(ctx, query, id, userID, image, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set recipe image: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRecipeNotFound
	}
	return nil
}

// DeleteRecipe removes a recipe owned by userID. Its links cascade.
func (r *Repository) DeleteRecipe(ctx context.Context, userID, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM recipes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrRecipeNotFound
	}
	return nil
}

func writeRecipeLinks(ctx context.Context, q querier, recipe *model.Recipe) error {
	for i, ing := range recipe.Ingredients {
		_, err := q.Exec(ctx,
			`INSERT INTO recipe_ingredients (recipe_id, ingredient_id, position) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			recipe.ID, ing.ID, i)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrUnknownReference
			}
			return fmt.Errorf("failed to link ingredient: %w", err)
		}
	}

	for i, tag := range recipe.Tags {
		_, err := q.Exec(ctx,
			`INSERT INTO recipe_tags (recipe_id, tag_id, position) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			recipe.ID, tag.ID, i)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrUnknownReference
			}
			return fmt.Errorf("failed to link tag: %w", err)
		}
	}

	return nil
}

// loadRecipeRelations fills Ingredients and Tags for every recipe with two queries.
func loadRecipeRelations(ctx context.Context, q querier, recipes []*model.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}

	byID := make(map[string]*model.Recipe, len(recipes))
	ids := make([]string, len(recipes))
	for i, recipe := range recipes {
		recipe.Ingredients = []model.Ingredient{}
		recipe.Tags = []model.Tag{}
		byID[recipe.ID] = recipe
		ids[i] = recipe.ID
	}

	ingRows, err := q.Query(ctx, `
		SELECT ri.recipe_id, i.id, i.name, i.user_id
		FROM recipe_ingredients ri
		JOIN ingredients i ON i.id = ri.ingredient_id
		WHERE ri.recipe_id = ANY($1::text[])
		ORDER BY ri.recipe_id, ri.position
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load recipe ingredients: %w", err)
	}
	for ingRows.Next() {
		var recipeID string
		var ing model.Ingredient
		if err := ingRows.Scan(&recipeID, &ing.ID, &ing.Name, &ing.UserID); err != nil {
			ingRows.Close()
			return fmt.Errorf("failed to scan recipe ingredient: %w", err)
		}
		byID[recipeID].Ingredients = append(byID[recipeID].Ingredients, ing)
	}
	ingRows.Close()
	if err := ingRows.Err(); err != nil {
		return fmt.Errorf("error iterating recipe ingredients: %w", err)
	}

	tagRows, err := q.Query(ctx, `
		SELECT rt.recipe_id, t.id, t.name, t.user_id
		FROM recipe_tags rt
		JOIN tags t ON t.id = rt.tag_id
		WHERE rt.recipe_id = ANY($1::text[])
		ORDER BY rt.recipe_id, rt.position
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load recipe tags: %w", err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var recipeID string
		var tag model.Tag
		if err := tagRows.Scan(&recipeID, &tag.ID, &tag.Name, &tag.UserID); err != nil {
			return fmt.Errorf("failed to scan recipe tag: %w", err)
		}
		byID[recipeID].Tags = append(byID[recipeID].Tags, tag)
	}
	if err := tagRows.Err(); err != nil {
		return fmt.Errorf("error iterating recipe tags: %w", err)
	}

	return nil
}

// scanRecipe scans the recipeColumns projection. pgx.ErrNoRows is passed through.
func scanRecipe(row pgx.Row) (*model.Recipe, error) {
	var recipe model.Recipe
	var price string

	err := row.Scan(
		&recipe.ID,
		&recipe.UserID,
		&recipe.Title,
		&recipe.TimeMinutes,
		&price,
		&recipe.Link,
		&recipe.Image,
		&recipe.CreatedAt,
		&recipe.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	recipe.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid stored price %q: %w", price, err)
	}
	return &recipe, nil
}
