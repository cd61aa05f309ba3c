package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/recipebox/recipebox/internal/media"
	"github.com/recipebox/recipebox/internal/metrics"
	"github.com/recipebox/recipebox/internal/model"
	"github.com/recipebox/recipebox/internal/repository/memstore"
	"github.com/shopspring/decimal"
)

type fakeImages struct {
	mu      sync.Mutex
	saveErr error
	saved   []string
	deleted []string
}

func (f *fakeImages) Save(ctx context.Context, r io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return "", f.saveErr
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	path := "uploads/recipe/" + string(rune('a'+len(f.saved))) + ".png"
	f.saved = append(f.saved, path)
	return path, nil
}

func (f *fakeImages) Delete(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, path)
	return nil
}

type recipeFixture struct {
	ctx     context.Context
	store   *memstore.Store
	user    *model.User
	svc     *RecipeService
	tags    *TagService
	ings    *IngredientService
	images  *fakeImages
	metrics *metrics.InMemoryRecorder
}

func newRecipeFixture(t *testing.T) *recipeFixture {
	t.Helper()
	store, user := newStoreWithUser(t)
	images := &fakeImages{}
	recorder := metrics.NewInMemory()
	return &recipeFixture{
		ctx:     context.Background(),
		store:   store,
		user:    user,
		svc:     NewRecipeService(store, store, store, images, recorder),
		tags:    NewTagService(store, recorder),
		ings:    NewIngredientService(store, recorder),
		images:  images,
		metrics: recorder,
	}
}

func sampleInput() RecipeInput {
	return RecipeInput{
		Title:       ptr("Sample recipe"),
		TimeMinutes: ptr(22),
		Price:       ptr(decimal.RequireFromString("5.25")),
		Link:        ptr("https://example.com/recipe.pdf"),
	}
}

func TestRecipeService_CreateWithRelations(t *testing.T) {
	t.Parallel()
	f := newRecipeFixture(t)

	vegan, _ := f.tags.Create(f.ctx, f.user.ID, "Vegan")
	kale, _ := f.ings.Create(f.ctx, f.user.ID, "Kale")

	in := sampleInput()
	in.TagIDs = []string{vegan.ID, vegan.ID}
	in.IngredientIDs = []string{kale.ID}

	recipe, err := f.svc.Create(f.ctx, f.user.ID, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if recipe.UserID != f.user.ID || recipe.Title != "Sample recipe" {
		t.Errorf("unexpected recipe %+v", recipe)
	}
	if len(recipe.Tags) != 1 || recipe.Tags[0].Name != "Vegan" {
		t.Errorf("Tags = %+v, want [Vegan]", recipe.Tags)
	}
	if len(recipe.Ingredients) != 1 || recipe.Ingredients[0].Name != "Kale" {
		t.Errorf("Ingredients = %+v, want [Kale]", recipe.Ingredients)
	}
	if got := f.metrics.Snapshot().Created[metrics.KindRecipe]; got != 1 {
		t.Errorf("created recipes = %d, want 1", got)
	}
}

func TestRecipeService_CreateValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*RecipeInput)
		field  string
		msg    string
	}{
		{"missing title", func(in *RecipeInput) { in.Title = nil }, "title", msgRequired},
		{"blank title", func(in *RecipeInput) { in.Title = ptr("  ") }, "title", msgBlank},
		{"long title", func(in *RecipeInput) { in.Title = ptr(strings.Repeat("x", 256)) }, "title", msgMaxLength},
		{"missing time", func(in *RecipeInput) { in.TimeMinutes = nil }, "time_minutes", msgRequired},
		{"negative time", func(in *RecipeInput) { in.TimeMinutes = ptr(-1) }, "time_minutes", msgMinZero},
		{"time beyond int32", func(in *RecipeInput) { in.TimeMinutes = ptr(3000000000) }, "time_minutes", msgMaxInt32},
		{"missing price", func(in *RecipeInput) { in.Price = nil }, "price", msgRequired},
		{"too precise price", func(in *RecipeInput) { in.Price = ptr(decimal.RequireFromString("1.999")) }, "price", "Ensure that there are no more than 2 decimal places."},
		{"unknown tag", func(in *RecipeInput) { in.TagIDs = []string{"nope"} }, "tags", `Invalid pk "nope" - object does not exist.`},
		{"unknown ingredient", func(in *RecipeInput) { in.IngredientIDs = []string{"gone"} }, "ingredients", `Invalid pk "gone" - object does not exist.`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newRecipeFixture(t)

			in := sampleInput()
			tt.mutate(&in)

			_, err := f.svc.Create(f.ctx, f.user.ID, in)
			v, ok := AsValidationError(err)
			if !ok {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if got := v.Fields[tt.field]; len(got) == 0 || got[0] != tt.msg {
				t.Errorf("%s errors = %v, want %q", tt.field, got, tt.msg)
			}

			list, _ := f.svc.List(f.ctx, f.user.ID, model.RecipeFilter{})
			if len(list) != 0 {
				t.Errorf("nothing should be persisted, got %d recipes", len(list))
			}
		})
	}
}

func TestRecipeService_CannotReferenceOtherUsersTags(t *testing.T) {
	t.Parallel()
	f := newRecipeFixture(t)
	other := addUser(t, f.store, "other@example.com")

	foreign, err := f.tags.Create(f.ctx, other.ID, "Foreign")
	if err != nil {
		t.Fatalf("Create tag: %v", err)
	}

	in := sampleInput()
	in.TagIDs = []string{foreign.ID}
	_, err = f.svc.Create(f.ctx, f.user.ID, in)
	if v, ok := AsValidationError(err); !ok || !v.Has("tags") {
		t.Fatalf("expected tags validation error, got %v", err)
	}
}

func TestRecipeService_ListScopedAndNewestFirst(t *testing.T) {
	t.Parallel()
	f := newRecipeFixture(t)
	other := addUser(t, f.store, "other@example.com")

	first, _ := f.svc.Create(f.ctx, f.user.ID, sampleInput())
	second, _ := f.svc.Create(f.ctx, f.user.ID, sampleInput())
	if _, err := f.svc.Create(f.ctx, other.ID, sampleInput()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := f.svc.List(f.ctx, f.user.ID, model.RecipeFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Errorf("List returned wrong order or scope: %+v", list)
	}

	if _, err := f.svc.Get(f.ctx, other.ID, first.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get by other user: got %v, want ErrNotFound", err)
	}
}

func TestRecipeService_ListFilters(t *testing.T) {
	t.Parallel()
	f := newRecipeFixture(t)

	vegan, _ := f.tags.Create(f.ctx, f.user.ID, "Vegan")
	cheese, _ := f.ings.Create(f.ctx, f.user.ID, "Cheese")

	tagged := sampleInput()
	tagged.TagIDs = []string{vegan.ID}
	withTag, _ := f.svc.Create(f.ctx, f.user.ID, tagged)

	cheesy := sampleInput()
	cheesy.IngredientIDs = []string{cheese.ID}
	withIng, _ := f.svc.Create(f.ctx, f.user.ID, cheesy)

	if _, err := f.svc.Create(f.ctx, f.user.ID, sampleInput()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	byTag, _ := f.svc.List(f.ctx, f.user.ID, model.RecipeFilter{TagIDs: []string{vegan.ID}})
	if len(byTag) != 1 || byTag[0].ID != withTag.ID {
		t.Errorf("tag filter = %+v", byTag)
	}
	byIng, _ := f.svc.List(f.ctx, f.user.ID, model.RecipeFilter{IngredientIDs: []string{cheese.ID}})
	if len(byIng) != 1 || byIng[0].ID != withIng.ID {
		t.Errorf("ingredient filter = %+v", byIng)
	}
}

func TestRecipeService_PartialUpdateKeepsOtherFields(t *testing.T) {
	t.Parallel()
	f := newRecipeFixture(t)

	vegan, _ := f.tags.Create(f.ctx, f.user.ID, "Vegan")
	in := sampleInput()
	in.TagIDs = []string{vegan.ID}
	recipe, _ := f.svc.Create(f.ctx, f.user.ID, in)

	updated, err := f.svc.Update(f.ctx, f.user.ID, recipe.ID, RecipeInput{Title: ptr("New title")}, true)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "New title" {
		t.Errorf("Title = %q", updated.Title)
	}
	if updated.Link != "https://example.com/recipe.pdf" || updated.TimeMinutes != 22 {
		t.Errorf("partial update changed other fields: %+v", updated)
	}
	if len(updated.Tags) != 1 {
		t.Errorf("partial update dropped tags: %+v", updated.Tags)
	}
	if updated.UserID != f.user.ID {
		t.Errorf("owner changed to %q", updated.UserID)
	}
}

func TestRecipeService_PartialUpdateEmptyTagsClears(t *testing.T) {
	t.Parallel()
	f := newRecipeFixture(t)

	vegan, _ := f.tags.Create(f.ctx, f.user.ID, "Vegan")
	in := sampleInput()
	in.TagIDs = []string{vegan.ID}
	recipe, _ := f.svc.Create(f.ctx, f.user.ID, in)

	updated, err := f.svc.Update(f.ctx, f.user.ID, recipe.ID, RecipeInput{TagIDs: []string{}}, true)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(updated.Tags) != 0 {
		t.Errorf("Tags = %+v, want none", updated.Tags)
	}

	tags, _ := f.tags.List(f.ctx, f.user.ID, model.CatalogFilter{})
	if len(tags) != 1 {
		t.Errorf("clearing links must not delete the tag itself")
	}
}

func TestRecipeService_FullUpdate(t *testing.T) {
	t.Parallel()
	f := newRecipeFixture(t)

	vegan, _ := f.tags.Create(f.ctx, f.user.ID, "Vegan")
	in := sampleInput()
	in.TagIDs = []string{vegan.ID}
	recipe, _ := f.svc.Create(f.ctx, f.user.ID, in)

	if _, err := f.svc.Update(f.ctx, f.user.ID, recipe.ID, RecipeInput{Title: ptr("Only title")}, false); err == nil {
		t.Fatal("full update without required fields should fail")
	}

	replacement := RecipeInput{
		Title:       ptr("Spaghetti carbonara"),
		TimeMinutes: ptr(25),
		Price:       ptr(decimal.RequireFromString("5.00")),
	}
	updated, err := f.svc.Update(f.ctx, f.user.ID, recipe.ID, replacement, false)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Spaghetti carbonara" || updated.TimeMinutes != 25 || !updated.Price.Equal(decimal.RequireFromString("5")) {
		t.Errorf("unexpected recipe after full update: %+v", updated)
	}
	if updated.Link != "" || len(updated.Tags) != 0 {
		t.Errorf("full update should clear omitted link and tags: %+v", updated)
	}
}

func TestRecipeService_UpdateOtherUsersRecipe(t *testing.T) {
	t.Parallel()
	f := newRecipeFixture(t)
	other := addUser(t, f.store, "other@example.com")

	recipe, _ := f.svc.Create(f.ctx, f.user.ID, sampleInput())

	if _, err := f.svc.Update(f.ctx, other.ID, recipe.ID, RecipeInput{Title: ptr("x")}, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update by other user: got %v, want ErrNotFound", err)
	}
	if err := f.svc.Delete(f.ctx, other.ID, recipe.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete by other user: got %v, want ErrNotFound", err)
	}
}

func TestRecipeService_DeleteRemovesImage(t *testing.T) {
	t.Parallel()
	f := newRecipeFixture(t)

	recipe, _ := f.svc.Create(f.ctx, f.user.ID, sampleInput())
	withImage, err := f.svc.UploadImage(f.ctx, f.user.ID, recipe.ID, strings.NewReader("png bytes"))
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}

	if err := f.svc.Delete(f.ctx, f.user.ID, recipe.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.svc.Get(f.ctx, f.user.ID, recipe.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: got %v, want ErrNotFound", err)
	}
	if len(f.images.deleted) != 1 || f.images.deleted[0] != withImage.Image {
		t.Errorf("deleted images = %v, want [%s]", f.images.deleted, withImage.Image)
	}
	if got := f.metrics.Snapshot().Deleted[metrics.KindRecipe]; got != 1 {
		t.Errorf("deleted recipes = %d, want 1", got)
	}
}

func TestRecipeService_UploadImageReplacesPrevious(t *testing.T) {
	t.Parallel()
	f := newRecipeFixture(t)

	recipe, _ := f.svc.Create(f.ctx, f.user.ID, sampleInput())

	first, err := f.svc.UploadImage(f.ctx, f.user.ID, recipe.ID, strings.NewReader("one"))
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	second, err := f.svc.UploadImage(f.ctx, f.user.ID, recipe.ID, strings.NewReader("two"))
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}

	if first.Image == second.Image {
		t.Fatal("second upload should get a new path")
	}
	if len(f.images.deleted) != 1 || f.images.deleted[0] != first.Image {
		t.Errorf("previous image should be deleted, got %v", f.images.deleted)
	}

	stored, _ := f.svc.Get(f.ctx, f.user.ID, recipe.ID)
	if stored.Image != second.Image {
		t.Errorf("stored image = %q, want %q", stored.Image, second.Image)
	}
	if got := f.metrics.Snapshot().ImagesUploaded; got != 2 {
		t.Errorf("images uploaded = %d, want 2", got)
	}
}

func TestRecipeService_UploadImageErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"not an image", media.ErrNotImage, "Upload a valid image. The file you uploaded was either not an image or a corrupted image."},
		{"too large", media.ErrTooLarge, "The uploaded image is too large."},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newRecipeFixture(t)
			f.images.saveErr = tt.err

			recipe, _ := f.svc.Create(f.ctx, f.user.ID, sampleInput())
			_, err := f.svc.UploadImage(f.ctx, f.user.ID, recipe.ID, strings.NewReader("bytes"))

			v, ok := AsValidationError(err)
			if !ok {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if got := v.Fields["image"]; len(got) != 1 || got[0] != tt.msg {
				t.Errorf("image errors = %v", got)
			}

			stored, _ := f.svc.Get(f.ctx, f.user.ID, recipe.ID)
			if stored.HasImage() {
				t.Error("failed upload must not set an image")
			}
		})
	}
}

func TestRecipeService_UploadImageWithMediaStore(t *testing.T) {
	t.Parallel()

	store, user := newStoreWithUser(t)
	images, err := media.NewStore(t.TempDir(), 1<<20)
	if err != nil {
		t.Fatalf("media.NewStore: %v", err)
	}
	svc := NewRecipeService(store, store, store, images, nil)
	ctx := context.Background()

	recipe, err := svc.Create(ctx, user.ID, sampleInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 10))); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	updated, err := svc.UploadImage(ctx, user.ID, recipe.ID, &buf)
	if err != nil {
		t.Fatalf("UploadImage: %v", err)
	}
	if !strings.HasPrefix(updated.Image, "uploads/recipe/") || !strings.HasSuffix(updated.Image, ".png") {
		t.Errorf("Image = %q", updated.Image)
	}
}

func TestRecipeService_TrimsTextFields(t *testing.T) {
	t.Parallel()
	f := newRecipeFixture(t)

	in := sampleInput()
	in.Title = ptr("  Pad thai ")
	in.Link = ptr(" https://example.com/pad-thai ")

	recipe, err := f.svc.Create(f.ctx, f.user.ID, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if recipe.Title != "Pad thai" || recipe.Link != "https://example.com/pad-thai" {
		t.Errorf("Title = %q, Link = %q, want trimmed values", recipe.Title, recipe.Link)
	}
}

// uploadDuringUpdate sets an image right before each UpdateRecipe, the way
// a concurrent upload would land between Update's read and write.
type uploadDuringUpdate struct {
	*memstore.Store
	image string
}

func (s *uploadDuringUpdate) UpdateRecipe(ctx context.Context, recipe *model.Recipe) error {
	if err := s.Store.SetRecipeImage(ctx, recipe.UserID, recipe.ID, s.image); err != nil {
		return err
	}
	return s.Store.UpdateRecipe(ctx, recipe)
}

func TestRecipeService_UpdateKeepsConcurrentImage(t *testing.T) {
	t.Parallel()
	f := newRecipeFixture(t)

	recipe, err := f.svc.Create(f.ctx, f.user.ID, sampleInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	racing := &uploadDuringUpdate{Store: f.store, image: "uploads/recipe/late.png"}
	svc := NewRecipeService(racing, f.store, f.store, f.images, nil)

	updated, err := svc.Update(f.ctx, f.user.ID, recipe.ID, RecipeInput{Title: ptr("Renamed")}, true)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Image != "uploads/recipe/late.png" || updated.Title != "Renamed" {
		t.Errorf("Image = %q, Title = %q; upload should survive the update", updated.Image, updated.Title)
	}
}
