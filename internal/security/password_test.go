package security

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("secret-password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if hash == "secret-password" {
		t.Fatalf("hash equals plaintext")
	}

	if err := h.Check(hash, "secret-password"); err != nil {
		t.Fatalf("check should pass: %v", err)
	}

	if err := h.Check(hash, "wrong"); err == nil {
		t.Fatalf("check should fail for wrong password")
	}
}

func TestBcryptHasher_SaltsEachHash(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	a, _ := h.Hash("same")
	b, _ := h.Hash("same")

	if a == b {
		t.Fatalf("expected different salts, got identical hashes")
	}
}

func TestBcryptHasher_RejectsOverlongInput(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	_, err := h.Hash(strings.Repeat("x", 73))
	if !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestNewBcryptHasher_InvalidCostFallsBack(t *testing.T) {
	if got := NewBcryptHasher(1).cost; got != bcrypt.DefaultCost {
		t.Fatalf("cost=%d, want %d", got, bcrypt.DefaultCost)
	}
}
