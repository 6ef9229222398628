package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordLength is returned for empty passwords and for passwords
// longer than bcrypt can hash (72 bytes).
var ErrPasswordLength = errors.New("password must be 1 to 72 bytes")

// HashPassword returns a bcrypt hash.  A cost outside bcrypt's range falls
// back to bcrypt.DefaultCost.
func HashPassword(plain string, cost int) (string, error) {
	if plain == "" || len(plain) > 72 {
		return "", ErrPasswordLength
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches hash.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
