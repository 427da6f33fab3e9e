package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/karming-leong/datacentric-assingment/internal/domain"
	"github.com/karming-leong/datacentric-assingment/internal/repository"
)

func seed(t *testing.T, repo *Repository, items ...domain.Item) {
	t.Helper()
	base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := range items {
		items[i].CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.CreateItem(context.Background(), &items[i]))
	}
}

func names(items []domain.Item) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Name)
	}
	return out
}

func TestUsersAreUniqueAndCaseSensitive(t *testing.T) {
	ctx := context.Background()
	repo := New()

	require.NoError(t, repo.CreateUser(ctx, &domain.User{ID: "u1", Username: "alice", PasswordHash: []byte("h1")}))
	require.ErrorIs(t, repo.CreateUser(ctx, &domain.User{ID: "u2", Username: "alice", PasswordHash: []byte("h2")}), repository.ErrDuplicate)
	require.NoError(t, repo.CreateUser(ctx, &domain.User{ID: "u3", Username: "Alice", PasswordHash: []byte("h3")}))

	user, err := repo.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "u1", user.ID)
	require.Equal(t, []byte("h1"), user.PasswordHash)

	_, err = repo.GetUserByUsername(ctx, "ALICE")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListItemsFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	repo := New()
	seed(t, repo,
		domain.Item{ID: "1", Owner: "alice", Name: "Ruler", Type: "Stationery", PrimaryLevel: 1},
		domain.Item{ID: "2", Owner: "alice", Name: "English Reader", Type: "Books", PrimaryLevel: 1, Comment: "need a pen-friendly cover"},
		domain.Item{ID: "3", Owner: "alice", Name: "Pencil", Type: "Stationery", PrimaryLevel: 3},
		domain.Item{ID: "4", Owner: "bob", Name: "Pen", Type: "Stationery", PrimaryLevel: 1},
	)

	all, err := repo.ListItems(ctx, domain.ItemQuery{Owner: "alice", Sort: domain.SortName})
	require.NoError(t, err)
	require.Equal(t, []string{"English Reader", "Pencil", "Ruler"}, names(all))

	byLevel, err := repo.ListItems(ctx, domain.ItemQuery{Owner: "alice", Level: intPtr(1)})
	require.NoError(t, err)
	require.Equal(t, []string{"Ruler", "English Reader"}, names(byLevel), "storage order expected")

	text, err := repo.ListItems(ctx, domain.ItemQuery{Owner: "alice", Text: "PEN", Sort: domain.SortName})
	require.NoError(t, err)
	require.Equal(t, []string{"English Reader", "Pencil"}, names(text))

	typed, err := repo.ListItems(ctx, domain.ItemQuery{Owner: "alice", Type: "Stationery", Sort: domain.SortCreatedAt})
	require.NoError(t, err)
	require.Equal(t, []string{"Pencil", "Ruler"}, names(typed))

	none, err := repo.ListItems(ctx, domain.ItemQuery{Owner: "carol", Sort: domain.SortName})
	require.NoError(t, err)
	require.NotNil(t, none)
	require.Empty(t, none)
}

func TestUpdateAndDeleteAreOwnerScoped(t *testing.T) {
	ctx := context.Background()
	repo := New()
	seed(t, repo, domain.Item{ID: "1", Owner: "alice", Name: "Pencil", Type: "Stationery", PrimaryLevel: 3})

	acquired := true
	_, err := repo.UpdateItem(ctx, "bob", "1", domain.ItemPatch{Acquired: &acquired})
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.ErrorIs(t, repo.DeleteItem(ctx, "bob", "1"), repository.ErrNotFound)

	items, err := repo.ListItems(ctx, domain.ItemQuery{Owner: "alice"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.False(t, items[0].Acquired)

	updated, err := repo.UpdateItem(ctx, "alice", "1", domain.ItemPatch{Acquired: &acquired})
	require.NoError(t, err)
	require.True(t, updated.Acquired)
	require.Equal(t, "Pencil", updated.Name)

	require.NoError(t, repo.DeleteItem(ctx, "alice", "1"))
	require.ErrorIs(t, repo.DeleteItem(ctx, "alice", "1"), repository.ErrNotFound)
	_, err = repo.UpdateItem(ctx, "alice", "missing", domain.ItemPatch{})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().ListItems(ctx, domain.ItemQuery{Owner: "alice"})
	require.ErrorIs(t, err, context.Canceled)
}

func intPtr(v int) *int { return &v }
