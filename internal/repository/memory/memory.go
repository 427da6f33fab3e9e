// Package memory provides process-local repositories with the same semantics as
// the PostgreSQL implementation. It backs the memory storage driver and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/karming-leong/datacentric-assingment/internal/domain"
	"github.com/karming-leong/datacentric-assingment/internal/repository"
)

// Repository stores users and items in memory.
type Repository struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	byName  map[string]string
	items   map[string]domain.Item
	ordered []string
}

// New returns an empty Repository.
func New() *Repository {
	return &Repository{
		users:  make(map[string]domain.User),
		byName: make(map[string]string),
		items:  make(map[string]domain.Item),
	}
}

var (
	_ repository.UserRepository = (*Repository)(nil)
	_ repository.ItemRepository = (*Repository)(nil)
)

// CreateUser inserts a user, enforcing username uniqueness.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[user.Username]; exists {
		return repository.ErrDuplicate
	}
	stored := *user
	stored.PasswordHash = append([]byte(nil), user.PasswordHash...)
	r.users[user.ID] = stored
	r.byName[user.Username] = user.ID
	return nil
}

// GetUserByUsername fetches a user by exact username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user := r.users[id]
	user.PasswordHash = append([]byte(nil), user.PasswordHash...)
	return &user, nil
}

// CreateItem inserts an item.
func (r *Repository) CreateItem(ctx context.Context, item *domain.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[item.ID]; exists {
		return repository.ErrDuplicate
	}
	r.items[item.ID] = *item
	r.ordered = append(r.ordered, item.ID)
	return nil
}

// ListItems returns matching items sorted per query.
func (r *Repository) ListItems(ctx context.Context, query domain.ItemQuery) ([]domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	items := make([]domain.Item, 0)
	for _, id := range r.ordered {
		item := r.items[id]
		if query.Matches(item) {
			items = append(items, item)
		}
	}
	r.mu.RUnlock()

	if query.Sort != domain.SortNone {
		sort.SliceStable(items, func(i, j int) bool {
			return query.Sort.Less(items[i], items[j])
		})
	}
	return items, nil
}

// UpdateItem applies patch to the owner's item.
func (r *Repository) UpdateItem(ctx context.Context, owner, id string, patch domain.ItemPatch) (*domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok || item.Owner != owner {
		return nil, repository.ErrNotFound
	}
	patch.Apply(&item)
	r.items[id] = item
	return &item, nil
}

// DeleteItem removes the owner's item.
func (r *Repository) DeleteItem(ctx context.Context, owner, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok || item.Owner != owner {
		return repository.ErrNotFound
	}
	delete(r.items, id)
	for i, existing := range r.ordered {
		if existing == id {
			r.ordered = append(r.ordered[:i], r.ordered[i+1:]...)
			break
		}
	}
	return nil
}

// Ping always succeeds.
func (r *Repository) Ping(context.Context) error { return nil }
