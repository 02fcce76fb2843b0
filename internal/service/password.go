package service

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// dummyPasswordHash is compared against when no caller matches a login, so unknown
// usernames cost the same bcrypt work as wrong passwords.
var dummyPasswordHash = sync.OnceValue(func() string {
	hash, err := bcrypt.GenerateFromPassword([]byte("aetherlens-no-such-user"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return string(hash)
})

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored bcrypt hash. A malformed
// hash never matches.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
