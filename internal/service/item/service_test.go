package item

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/karming-leong/datacentric-assingment/internal/apperr"
	"github.com/karming-leong/datacentric-assingment/internal/domain"
	"github.com/karming-leong/datacentric-assingment/internal/repository"
	"github.com/karming-leong/datacentric-assingment/internal/repository/memory"
)

var (
	alice = domain.Identity{UserID: "user-alice"}
	bob   = domain.Identity{UserID: "user-bob"}
)

func TestCreateSetsServerFields(t *testing.T) {
	svc := newTestService(memory.New())
	created, err := svc.Create(context.Background(), alice, CreateInput{Name: " Pencil ", Type: "Stationery", PrimaryLevel: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Owner != alice.UserID {
		t.Fatalf("expected owner %q, got %q", alice.UserID, created.Owner)
	}
	if created.Name != "Pencil" {
		t.Fatalf("expected trimmed name, got %q", created.Name)
	}
	if created.Acquired || created.Comment != "" {
		t.Fatalf("unexpected defaults: %+v", created)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("missing generated fields: %+v", created)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(memory.New())
	cases := map[string]CreateInput{
		"blank name":   {Name: "  ", Type: "Book", PrimaryLevel: 2},
		"missing type": {Name: "Atlas", PrimaryLevel: 2},
		"level zero":   {Name: "Atlas", Type: "Book", PrimaryLevel: 0},
		"level seven":  {Name: "Atlas", Type: "Book", PrimaryLevel: 7},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), alice, input)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	_, err := svc.Create(context.Background(), alice, CreateInput{Name: "Atlas", Type: "Book", PrimaryLevel: 9})
	if err == nil || !strings.Contains(err.Error(), "primaryLevel must be between 1 and 6") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestListByLevelScopesToOwner(t *testing.T) {
	svc := newTestService(memory.New())
	ctx := context.Background()
	mustCreate(t, svc, alice, "Ruler", "Stationery", 2)
	mustCreate(t, svc, alice, "Eraser", "Stationery", 2)
	mustCreate(t, svc, alice, "Glue", "Craft", 3)
	mustCreate(t, svc, bob, "Scissors", "Craft", 2)

	items, err := svc.ListByLevel(ctx, alice, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].Name != "Ruler" || items[1].Name != "Eraser" {
		t.Fatalf("unexpected items: %+v", items)
	}
	for _, item := range items {
		if item.Owner != alice.UserID {
			t.Fatalf("foreign item leaked: %+v", item)
		}
	}

	empty, err := svc.ListByLevel(ctx, alice, 6)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}
}

func TestSearchFiltersAndSorts(t *testing.T) {
	svc := newTestService(memory.New())
	ctx := context.Background()
	mustCreate(t, svc, alice, "Pencil", "Stationery", 1)
	mustCreate(t, svc, alice, "Crayons", "Art", 1)
	notebook := mustCreate(t, svc, alice, "Notebook", "Paper", 2)
	if _, err := svc.Update(ctx, alice, notebook.ID, UpdateInput{Comment: strPtr("for pencil notes")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	mustCreate(t, svc, bob, "Pen", "Stationery", 1)

	items, err := svc.Search(ctx, alice, SearchInput{Query: "PEN"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if names(items) != "Notebook,Pencil" {
		t.Fatalf("unexpected text search result: %s", names(items))
	}

	level := 1
	items, err = svc.Search(ctx, alice, SearchInput{Level: &level, Sort: "type"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if names(items) != "Crayons,Pencil" {
		t.Fatalf("unexpected type sort: %s", names(items))
	}

	items, err = svc.Search(ctx, alice, SearchInput{Type: "Paper", Sort: "bogus"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if names(items) != "Notebook" {
		t.Fatalf("unexpected type filter: %s", names(items))
	}

	items, err = svc.Search(ctx, alice, SearchInput{Query: "zzz"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty result, got %#v", items)
	}
}

func TestSearchNewestFirst(t *testing.T) {
	svc := newTestService(memory.New())
	base := time.Date(2025, time.May, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	mustCreate(t, svc, alice, "First", "A", 1)
	mustCreate(t, svc, alice, "Second", "A", 1)

	items, err := svc.Search(context.Background(), alice, SearchInput{Sort: "createdAt"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if names(items) != "Second,First" {
		t.Fatalf("unexpected order: %s", names(items))
	}
}

func TestUpdateChangesOnlyProvidedFields(t *testing.T) {
	svc := newTestService(memory.New())
	created := mustCreate(t, svc, alice, "Pencil", "Stationery", 1)

	updated, err := svc.Update(context.Background(), alice, created.ID, UpdateInput{Acquired: boolPtr(true)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Acquired || updated.Name != "Pencil" || updated.Type != "Stationery" || updated.PrimaryLevel != 1 {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if updated.Owner != alice.UserID || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("immutable fields changed: %+v", updated)
	}

}

func TestUpdateRejectsBlankNameOrType(t *testing.T) {
	svc := newTestService(memory.New())
	ctx := context.Background()
	created := mustCreate(t, svc, alice, "Pencil", "Stationery", 1)

	cases := map[string]UpdateInput{
		"empty name":      {Name: strPtr("")},
		"whitespace name": {Name: strPtr("   ")},
		"empty type":      {Type: strPtr("")},
		"whitespace type": {Type: strPtr(" \t")},
		"both blank":      {Name: strPtr(""), Type: strPtr(" ")},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Update(ctx, alice, created.ID, input)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), "must not be blank") {
				t.Fatalf("unexpected message: %q", err.Error())
			}
		})
	}

	items, err := svc.ListByLevel(ctx, alice, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Pencil" || items[0].Type != "Stationery" {
		t.Fatalf("rejected update changed the item: %+v", items)
	}
}

func TestSearchKeepsQueryTextVerbatim(t *testing.T) {
	svc := newTestService(memory.New())
	ctx := context.Background()
	mustCreate(t, svc, alice, "Red pen", "Stationery", 1)
	mustCreate(t, svc, alice, "Pencil", "Stationery", 1)

	items, err := svc.Search(ctx, alice, SearchInput{Query: " pen"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if names(items) != "Red pen" {
		t.Fatalf("leading space was dropped: %s", names(items))
	}

	items, err = svc.Search(ctx, alice, SearchInput{Type: "Stationery "})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("type filter should match exactly, got %s", names(items))
	}
}

func TestConstraintViolationsAreValidationErrors(t *testing.T) {
	svc := newTestService(failingRepo{err: repository.ErrConstraint})
	_, err := svc.Create(context.Background(), alice, CreateInput{Name: "Pencil", Type: "Stationery", PrimaryLevel: 1})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestForeignAndMissingItemsAreNotFound(t *testing.T) {
	svc := newTestService(memory.New())
	ctx := context.Background()
	created := mustCreate(t, svc, alice, "Pencil", "Stationery", 1)

	for _, id := range []string{created.ID, "5d0b8a4e-4f0f-4c1b-9f57-000000000000", "not-a-uuid"} {
		if _, err := svc.Update(ctx, bob, id, UpdateInput{Acquired: boolPtr(true)}); !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("update %q: expected not found, got %v", id, err)
		}
		if err := svc.Delete(ctx, bob, id); !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("delete %q: expected not found, got %v", id, err)
		}
	}

	items, err := svc.ListByLevel(ctx, alice, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Acquired {
		t.Fatalf("foreign caller changed the item: %+v", items)
	}

	if err := svc.Delete(ctx, alice, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, alice, created.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("second delete: expected not found, got %v", err)
	}
}

func TestMissingIdentityRejected(t *testing.T) {
	svc := newTestService(memory.New())
	if _, err := svc.Search(context.Background(), domain.Identity{}, SearchInput{}); !errors.Is(err, apperr.ErrAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}
}

func TestStorageErrorsMapToTransient(t *testing.T) {
	svc := newTestService(failingRepo{err: repository.ErrUnavailable})
	_, err := svc.ListByLevel(context.Background(), alice, 1)
	if !errors.Is(err, apperr.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}

	svc = newTestService(failingRepo{err: errors.New("boom")})
	_, err = svc.Create(context.Background(), alice, CreateInput{Name: "Pencil", Type: "Stationery", PrimaryLevel: 1})
	if !errors.Is(err, apperr.ErrInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if err.Error() != apperr.MsgInternal {
		t.Fatalf("cause leaked into message: %q", err.Error())
	}
}

func newTestService(items repository.ItemRepository) Service {
	return New(items, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func mustCreate(t *testing.T, svc Service, id domain.Identity, name, typ string, level int) *domain.Item {
	t.Helper()
	item, err := svc.Create(context.Background(), id, CreateInput{Name: name, Type: typ, PrimaryLevel: level})
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return item
}

func names(items []domain.Item) string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}
	return strings.Join(out, ",")
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

type failingRepo struct {
	err error
}

func (f failingRepo) CreateItem(context.Context, *domain.Item) error { return f.err }

func (f failingRepo) ListItems(context.Context, domain.ItemQuery) ([]domain.Item, error) {
	return nil, f.err
}

func (f failingRepo) UpdateItem(context.Context, string, string, domain.ItemPatch) (*domain.Item, error) {
	return nil, f.err
}

func (f failingRepo) DeleteItem(context.Context, string, string) error { return f.err }
