package dto

import (
	"encoding/json"
	"errors"

	"github.com/recipebox/recipebox/internal/model"
	"github.com/recipebox/recipebox/internal/service"
	"github.com/shopspring/decimal"
)

// ErrInvalidPrice is returned when price is neither a JSON number nor a numeric string.
var ErrInvalidPrice = errors.New("price is not a number")

// RecipeBase holds the fields every recipe representation shares.
type RecipeBase struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	TimeMinutes int    `json:"time_minutes"`
	Price       string `json:"price"`
	Link        string `json:"link"`
}

// RecipeResponse is the list and write representation. Relations are ids.
type RecipeResponse struct {
	RecipeBase
	Ingredients []string `json:"ingredients"`
	Tags        []string `json:"tags"`
}

// RecipeDetailResponse is the retrieve representation with expanded relations.
type RecipeDetailResponse struct {
	RecipeBase
	Ingredients []IngredientResponse `json:"ingredients"`
	Tags        []TagResponse        `json:"tags"`
}

// RecipeImageResponse is returned by the image upload.
type RecipeImageResponse struct {
	ID    string  `json:"id"`
	Image *string `json:"image"`
}

// RecipeRequest is the create/update body. Nil fields were not supplied.
type RecipeRequest struct {
	Title       *string          `json:"title"`
	TimeMinutes *int             `json:"time_minutes"`
	Price       *json.RawMessage `json:"price"`
	Link        *string          `json:"link"`
	Ingredients []string         `json:"ingredients"`
	Tags        []string         `json:"tags"`
}

// ToInput converts the request into service input. A price that is not a
// number yields ErrInvalidPrice. An explicit null price counts as omitted.
func (r *RecipeRequest) ToInput() (service.RecipeInput, error) {
	in := service.RecipeInput{
		Title:         r.Title,
		TimeMinutes:   r.TimeMinutes,
		Link:          r.Link,
		IngredientIDs: r.Ingredients,
		TagIDs:        r.Tags,
	}
	if r.Price != nil {
		var price decimal.Decimal
		if err := price.UnmarshalJSON(*r.Price); err != nil {
			return in, ErrInvalidPrice
		}
		in.Price = &price
	}
	return in, nil
}

func toBase(r *model.Recipe) RecipeBase {
	return RecipeBase{
		ID:          r.ID,
		Title:       r.Title,
		TimeMinutes: r.TimeMinutes,
		Price:       r.Price.StringFixed(2),
		Link:        r.Link,
	}
}

// ToRecipeResponse converts a recipe into the list/write representation.
func ToRecipeResponse(r *model.Recipe) RecipeResponse {
	return RecipeResponse{
		RecipeBase:  toBase(r),
		Ingredients: r.IngredientIDs(),
		Tags:        r.TagIDs(),
	}
}

// ToRecipeList converts a slice of recipes. The result is never nil.
func ToRecipeList(recipes []*model.Recipe) []RecipeResponse {
	out := make([]RecipeResponse, len(recipes))
	for i, r := range recipes {
		out[i] = ToRecipeResponse(r)
	}
	return out
}

// ToRecipeDetailResponse converts a recipe into the retrieve representation.
func ToRecipeDetailResponse(r *model.Recipe) RecipeDetailResponse {
	return RecipeDetailResponse{
		RecipeBase:  toBase(r),
		Ingredients: ToIngredientList(r.Ingredients),
		Tags:        ToTagList(r.Tags),
	}
}

// ToRecipeImageResponse converts a recipe into the upload representation.
// mediaBase is the absolute URL the media root is served under.
func ToRecipeImageResponse(r *model.Recipe, mediaBase string) RecipeImageResponse {
	resp := RecipeImageResponse{ID: r.ID}
	if r.HasImage() {
		url := mediaBase + r.Image
		resp.Image = &url
	}
	return resp
}
