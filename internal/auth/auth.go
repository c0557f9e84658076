package auth

import (
	"errors"
	"math/rand"

	"github.com/golang-jwt/jwt/v5"
)

const (
	gidAlphabet = "1234567890qwertyuiopasdfghjklzxcvbnm"
	gidLen      = 30

	issuer = "emblitz"
)

var ErrBadToken = errors.New("invalid auth token")

// NewGID mints a fresh per-pageload session id. Leaking one only ever
// exposes a single pageload, which is the whole point of the scheme.
func NewGID() string {
	b := make([]byte, gidLen)
	for i := range b {
		b[i] = gidAlphabet[rand.Intn(len(gidAlphabet))]
	}
	return string(b)
}

// TokenIssuer signs and checks the auth cookie.
type TokenIssuer struct {
	secret []byte
}

func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret)}
}

func (t *TokenIssuer) Mint(userID, username string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"iss":  issuer,
		"data": []map[string]string{{"user": username}},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify accepts only tokens we minted: HS256, our secret, our issuer.
func (t *TokenIssuer) Verify(raw string) error {
	tok, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil || !tok.Valid {
		return ErrBadToken
	}
	return nil
}
