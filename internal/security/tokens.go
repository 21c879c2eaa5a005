// Package security issues and validates the bearer tokens that bind a client to its intake session.
package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired or signed with another secret.
	ErrInvalidToken = errors.New("invalid token")
	// ErrWeakSecret is returned when the signing secret is too short.
	ErrWeakSecret = errors.New("session token secret must be at least 32 bytes")
)

// MinSecretLen is the minimum HMAC secret length.
const MinSecretLen = 32

const (
	issuer   = "recruit-intake"
	audience = "intake-session"
)

// SessionClaims holds JWT claims for an intake session token. Subject is the session id.
type SessionClaims struct {
	jwt.RegisteredClaims
	JobID string `json:"job_id"`
}

// TokenProvider signs session tokens with HS256.
type TokenProvider struct {
	secret []byte
	ttl    time.Duration
	nowF   func() time.Time
}

// NewTokenProvider returns a TokenProvider. Tokens expire after ttl.
func NewTokenProvider(secret []byte, ttl time.Duration) (*TokenProvider, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrWeakSecret
	}
	return &TokenProvider{secret: secret, ttl: ttl, nowF: time.Now}, nil
}

// RandomSecret returns a fresh secret for development runs where none is configured. Tokens signed
// with it do not survive a restart.
func RandomSecret() ([]byte, error) {
	b := make([]byte, MinSecretLen)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Issue returns a token bound to sessionID and its expiry.
func (p *TokenProvider) Issue(sessionID, jobID string) (token string, expiresAt time.Time, err error) {
	jti := make([]byte, 16)
	if _, err := rand.Read(jti); err != nil {
		return "", time.Time{}, err
	}
	now := p.nowF().UTC()
	expiresAt = now.Add(p.ttl)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        hex.EncodeToString(jti),
			Subject:   sessionID,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		JobID: jobID,
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	return token, expiresAt, err
}

// Validate checks signature, expiry, issuer and audience and returns the session id.
func (p *TokenProvider) Validate(tokenString string) (sessionID string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(*jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(p.nowF),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
