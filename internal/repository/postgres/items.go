package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/karming-leong/datacentric-assingment/internal/domain"
	"github.com/karming-leong/datacentric-assingment/internal/repository"
)

// CreateItem inserts an item.
func (r *Repository) CreateItem(ctx context.Context, item *domain.Item) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	const query = `INSERT INTO items (id, owner_id, name, type, primary_level, comment, acquired, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, query, item.ID, item.Owner, item.Name, item.Type, item.PrimaryLevel, item.Comment, item.Acquired, item.CreatedAt)
	return classify(err)
}

// ListItems returns the owner's items matching query.
func (r *Repository) ListItems(ctx context.Context, query domain.ItemQuery) ([]domain.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	sql, args := buildListQuery(query)
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, classify(err)
		}
		items = append(items, item)
	}
	return items, classify(rows.Err())
}

// UpdateItem applies patch to the owner's item.
func (r *Repository) UpdateItem(ctx context.Context, owner, id string, patch domain.ItemPatch) (*domain.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	const query = `UPDATE items SET
			name = COALESCE($3, name),
			type = COALESCE($4, type),
			comment = COALESCE($5, comment),
			acquired = COALESCE($6, acquired)
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + itemColumns
	row := r.pool.QueryRow(ctx, query, id, owner, patch.Name, patch.Type, patch.Comment, patch.Acquired)
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, classify(err)
	}
	return &item, nil
}

// DeleteItem removes the owner's item.
func (r *Repository) DeleteItem(ctx context.Context, owner, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	const query = `DELETE FROM items WHERE id = $1 AND owner_id = $2`
	tag, err := r.pool.Exec(ctx, query, id, owner)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanItem(row pgx.Row) (domain.Item, error) {
	var item domain.Item
	err := row.Scan(&item.ID, &item.Owner, &item.Name, &item.Type, &item.PrimaryLevel, &item.Comment, &item.Acquired, &item.CreatedAt)
	return item, err
}
