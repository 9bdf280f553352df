package config

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt cost bounds accepted for client secrets
const (
	DefaultBcryptCost = 12
	MinBcryptCost     = 10
	MaxBcryptCost     = 14
)

// SecretHasher hashes and verifies API client secrets.
type SecretHasher struct {
	Cost   int
	Pepper string // optional global secret appended before hashing
}

// Hasher returns the SecretHasher configured by auth settings.
func (a AuthConfig) Hasher() *SecretHasher {
	cost := a.BcryptCost
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	return &SecretHasher{Cost: cost, Pepper: a.Pepper}
}

// Hash hashes a client secret.
func (h *SecretHasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("secret is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret+h.Pepper), h.Cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether secret matches storedHash.
func (h *SecretHasher) Verify(secret, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(secret+h.Pepper)) == nil
}

// Authenticate checks a client's secret against the configured clients.
func (a AuthConfig) Authenticate(clientID, secret string) bool {
	h := a.Hasher()
	for _, c := range a.Clients {
		if c.ID == clientID {
			return h.Verify(secret, c.SecretHash)
		}
	}
	return false
}
