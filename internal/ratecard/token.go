package ratecard

import (
	"crypto/rand"
	"encoding/base64"
)

// TokenBytes is the amount of randomness in a token (256 bits).
const TokenBytes = 32

// TokenSource mints opaque access tokens.
type TokenSource interface {
	NewToken() (string, error)
}

// RandomTokens reads from crypto/rand and encodes base64url without padding,
// so the token is safe in a query string and carries nothing derived from the request.
type RandomTokens struct{}

func (RandomTokens) NewToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
