// Package auth issues and verifies bearer tokens, hashes passwords, and
// provides the HTTP middleware that resolves the calling user.
//
// Tokens are HS256 JWTs with a fixed 24 hour lifetime. There is no refresh;
// an expired token forces a new login. The payload carries the user's id,
// email and name, but the middleware re-fetches the user on every request
// and never trusts the payload beyond the id.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/story-studio/internal/model"
)

// TokenTTL is the lifetime of every issued token.
const TokenTTL = 24 * time.Hour

const issuer = "story-studio"

var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenInvalid = errors.New("auth: invalid token")
)

// Claims is the token payload.
type Claims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies tokens with one HMAC secret.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService rejects secrets shorter than 16 characters.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), now: time.Now}, nil
}

// Generate issues a token for user valid for TokenTTL.
func (s *TokenService) Generate(user *model.User) (string, error) {
	return s.GenerateWithDuration(user, TokenTTL)
}

// GenerateWithDuration issues a token with a custom lifetime. Tests use a
// negative duration to get an already expired token.
func (s *TokenService) GenerateWithDuration(user *model.User, d time.Duration) (string, error) {
	now := s.now()

	c := Claims{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies signature, algorithm, issuer and expiry. It returns
// ErrTokenExpired for an expired but otherwise well-formed token and wraps
// ErrTokenInvalid for everything else.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if c.ID == "" {
		return nil, fmt.Errorf("%w: no user id", ErrTokenInvalid)
	}
	return c, nil
}
