package domain

import "time"

// User represents a registered account.
type User struct {
	ID           string
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Identity is the verified caller of a request. It is produced by the
// authentication gate from a checked token and is the only source of ownership.
type Identity struct {
	UserID string
}

// Valid reports whether the identity names a user.
func (id Identity) Valid() bool {
	return id.UserID != ""
}
