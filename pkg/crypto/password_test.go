package crypto

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T) *PasswordHasher {
	t.Helper()
	h, err := NewPasswordHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	return h
}

func TestHashUsesFreshSalt(t *testing.T) {
	h := newTestHasher(t)
	first, err := h.Hash("pw1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := h.Hash("pw1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if bytes.Equal(first, second) {
		t.Fatalf("expected distinct hashes for the same password")
	}
	if bytes.Contains(first, []byte("pw1")) {
		t.Fatalf("hash must not contain the plaintext")
	}
	cost, err := bcrypt.Cost(first)
	if err != nil || cost != bcrypt.MinCost {
		t.Fatalf("unexpected cost %d (%v)", cost, err)
	}
}

func TestCompare(t *testing.T) {
	h := newTestHasher(t)
	hash, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := h.Compare(hash, "correct horse"); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if err := h.Compare(hash, "Correct horse"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	if err := h.Compare([]byte("garbage"), "correct horse"); err == nil || errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected malformed hash error, got %v", err)
	}
}

func TestHashRejectsLongPasswords(t *testing.T) {
	h := newTestHasher(t)
	if _, err := h.Hash(strings.Repeat("a", MaxPasswordBytes+1)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
	if _, err := h.Hash(strings.Repeat("a", MaxPasswordBytes)); err != nil {
		t.Fatalf("72 bytes should be accepted: %v", err)
	}
}

func TestNewPasswordHasherFallsBackToDefaultCost(t *testing.T) {
	h, err := NewPasswordHasher(0)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	if h.cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d", h.cost)
	}
}
