package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/karming-leong/datacentric-assingment/internal/domain"
	"github.com/karming-leong/datacentric-assingment/internal/repository"
)

const (
	defaultOperationTimeout = 5 * time.Second

	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeInvalidTextRepresent = "22P02"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool      *pgxpool.Pool
	opTimeout time.Duration
}

// New constructs a Repository. Each call is bounded by opTimeout.
func New(pool *pgxpool.Pool, opTimeout time.Duration) *Repository {
	if opTimeout <= 0 {
		opTimeout = defaultOperationTimeout
	}
	return &Repository{pool: pool, opTimeout: opTimeout}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository = (*Repository)(nil)
	_ repository.ItemRepository = (*Repository)(nil)
)

// CreateUser inserts a user.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	const query = `INSERT INTO users (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, user.ID, user.Username, user.PasswordHash, user.CreatedAt)
	return classify(err)
}

// GetUserByUsername fetches a user by exact username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	const query = `SELECT id::text, username, password_hash, created_at FROM users WHERE username = $1`
	row := r.pool.QueryRow(ctx, query, username)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, classify(err)
	}
	return &u, nil
}

// Ping reports whether the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// classify maps driver errors onto repository sentinels, keeping the original in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %w", repository.ErrDuplicate, err)
		case codeCheckViolation:
			return fmt.Errorf("%w: %w", repository.ErrConstraint, err)
		case codeInvalidTextRepresent:
			return fmt.Errorf("%w: %w", repository.ErrNotFound, err)
		}
		return err
	}
	var connectErr *pgconn.ConnectError
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || errors.As(err, &connectErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", repository.ErrUnavailable, err)
	}
	return err
}
