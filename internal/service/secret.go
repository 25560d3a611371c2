package service

import (
	"encoding/base64"

	"github.com/atinyakov/roadsigns/internal/models"
)

// SecretEncoder turns a plain secret into its stored form. Login compares
// encoded values, so Encode must be deterministic.
type SecretEncoder interface {
	Encode(secret string) string
}

// Base64Encoder is a reversible encoding, not a hash. It keeps stored
// secrets out of casual view and nothing more; substitute a keyed one-way
// scheme before storing real credentials.
type Base64Encoder struct{}

func (Base64Encoder) Encode(secret string) string {
	return base64.StdEncoding.EncodeToString([]byte(secret))
}

// Demo credential present on first run.
const (
	DemoIdentity = "user@example.com"
	DemoSecret   = "password123"
)

// DemoCredentials returns the first-run credential set encoded with enc.
func DemoCredentials(enc SecretEncoder) []models.Credential {
	return []models.Credential{{Identity: DemoIdentity, Secret: enc.Encode(DemoSecret)}}
}
