package repository

import "errors"

var (
	// ErrNotFound indicates an entity was not located.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate indicates a uniqueness constraint was violated.
	ErrDuplicate = errors.New("repository: duplicate")
	// ErrConstraint indicates the stored data would break a check constraint.
	ErrConstraint = errors.New("repository: constraint violation")
	// ErrUnavailable indicates the store could not be reached or timed out.
	ErrUnavailable = errors.New("repository: unavailable")
)
