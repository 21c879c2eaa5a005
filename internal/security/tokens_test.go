package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte(strings.Repeat("k", MinSecretLen))

func newTestProvider(t *testing.T, ttl time.Duration) *TokenProvider {
	t.Helper()
	p, err := NewTokenProvider(testSecret, ttl)
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	return p
}

func TestTokenProvider_IssueAndValidate(t *testing.T) {
	p := newTestProvider(t, time.Hour)
	token, exp, err := p.Issue("s1", "job-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("token empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}
	sid, err := p.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if sid != "s1" {
		t.Errorf("sessionID = %q, want %q", sid, "s1")
	}
}

func TestTokenProvider_Expired(t *testing.T) {
	p := newTestProvider(t, time.Minute)
	issued := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	p.nowF = func() time.Time { return issued }
	token, _, err := p.Issue("s1", "job-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	p.nowF = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := p.Validate(token); err != ErrInvalidToken {
		t.Errorf("Validate expired: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_Invalid(t *testing.T) {
	p := newTestProvider(t, time.Hour)
	other, err := NewTokenProvider([]byte(strings.Repeat("x", MinSecretLen)), time.Hour)
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	foreign, _, _ := other.Issue("s1", "job-42")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "s1", Issuer: issuer, Audience: jwt.ClaimStrings{audience}},
	})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, tok := range map[string]string{
		"garbage":        "invalid-token",
		"empty":          "",
		"foreign secret": foreign,
		"alg none":       unsigned,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := p.Validate(tok); err != ErrInvalidToken {
				t.Errorf("Validate: want ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestNewTokenProvider_WeakSecret(t *testing.T) {
	if _, err := NewTokenProvider([]byte("short"), time.Hour); err != ErrWeakSecret {
		t.Errorf("err = %v, want ErrWeakSecret", err)
	}
	s, err := RandomSecret()
	if err != nil || len(s) != MinSecretLen {
		t.Fatalf("RandomSecret = %d bytes, %v", len(s), err)
	}
}
