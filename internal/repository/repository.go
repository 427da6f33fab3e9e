package repository

import (
	"context"

	"github.com/karming-leong/datacentric-assingment/internal/domain"
)

// UserRepository persists users.
type UserRepository interface {
	// CreateUser inserts user; ErrDuplicate when the username is taken.
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

// ItemRepository persists items. Every method is scoped to an owner; an item
// of another owner behaves exactly like a missing one.
type ItemRepository interface {
	CreateItem(ctx context.Context, item *domain.Item) error
	ListItems(ctx context.Context, query domain.ItemQuery) ([]domain.Item, error)
	// UpdateItem applies patch to the owner's item and returns the stored result.
	UpdateItem(ctx context.Context, owner, id string, patch domain.ItemPatch) (*domain.Item, error)
	DeleteItem(ctx context.Context, owner, id string) error
}
