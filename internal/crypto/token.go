package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

const refreshTokenBytes = 32

var (
	refreshEncoding = base64.RawURLEncoding

	ErrMalformedRefreshToken = errors.New("malformed_refresh_token")
)

// RefreshToken pairs the value handed to the client with the digest the hub
// keeps. Only Hash is ever persisted.
type RefreshToken struct {
	Value string
	Hash  string
}

func IssueRefreshToken() (RefreshToken, error) {
	raw := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return RefreshToken{}, err
	}
	value := refreshEncoding.EncodeToString(raw)
	return RefreshToken{Value: value, Hash: digest(raw)}, nil
}

// RefreshTokenHash returns the stored digest for a token presented by a
// client, rejecting anything the hub could not have issued.
func RefreshTokenHash(value string) (string, error) {
	if refreshEncoding.DecodedLen(len(value)) != refreshTokenBytes {
		return "", ErrMalformedRefreshToken
	}
	raw, err := refreshEncoding.DecodeString(value)
	if err != nil || len(raw) != refreshTokenBytes {
		return "", ErrMalformedRefreshToken
	}
	return digest(raw), nil
}

func digest(raw []byte) string {
	sum := sha256.Sum256(raw)
	return refreshEncoding.EncodeToString(sum[:])
}
