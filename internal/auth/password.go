package auth

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// PasswordError describes why a password was rejected.
type PasswordError struct {
	Reason string
}

func (e *PasswordError) Error() string { return e.Reason }

// ValidatePassword enforces length and character-class rules.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return &PasswordError{Reason: "Password must be at least 8 characters long."}
	}
	if !strings.ContainsFunc(password, unicode.IsUpper) {
		return &PasswordError{Reason: "Password must contain at least one uppercase letter."}
	}
	if !strings.ContainsFunc(password, unicode.IsLower) {
		return &PasswordError{Reason: "Password must contain at least one lowercase letter."}
	}
	if !strings.ContainsFunc(password, unicode.IsDigit) {
		return &PasswordError{Reason: "Password must contain at least one digit."}
	}
	return nil
}

type PasswordHasher struct {
	cost int
}

func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Compare reports whether password matches hash. Malformed hashes never match.
func (h *PasswordHasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
