package crypto

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

var (
	// ErrPasswordTooLong is returned for passwords bcrypt would reject.
	ErrPasswordTooLong = errors.New("crypto: password exceeds 72 bytes")
	// ErrPasswordMismatch is returned when a password does not match its hash.
	ErrPasswordMismatch = errors.New("crypto: password mismatch")
)

// PasswordHasher derives and checks bcrypt password hashes at a fixed cost.
type PasswordHasher struct {
	cost  int
	dummy []byte
}

// NewPasswordHasher returns a hasher using cost, or bcrypt.DefaultCost when cost is out of range.
func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("supplies-dummy-password"), cost)
	if err != nil {
		return nil, err
	}
	return &PasswordHasher{cost: cost, dummy: dummy}, nil
}

// Hash derives a salted bcrypt hash of plain. Each call uses a fresh salt.
func (h *PasswordHasher) Hash(plain string) ([]byte, error) {
	if len(plain) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}
	return bcrypt.GenerateFromPassword([]byte(plain), h.cost)
}

// Compare checks plain against hash using the cost and salt embedded in hash.
func (h *PasswordHasher) Compare(hash []byte, plain string) error {
	err := bcrypt.CompareHashAndPassword(hash, []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

// CompareDummy burns the same work as Compare against a hash that never matches,
// so a lookup miss costs as much as a wrong password.
func (h *PasswordHasher) CompareDummy(plain string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain+"\x00"))
}
