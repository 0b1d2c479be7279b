package local

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-jwt-secret-that-is-long-enough-0123"

func TestNewTokenIssuer_RejectsShortSecret(t *testing.T) {
	if _, err := newTokenIssuer("short", time.Hour); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	ti, err := newTokenIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("newTokenIssuer: %v", err)
	}

	tok, err := ti.issue("acct-1", "a@b.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok.TokenType != "Bearer" {
		t.Errorf("TokenType: got %q", tok.TokenType)
	}
	if !tok.Valid() {
		t.Error("fresh token should be valid")
	}

	c, err := ti.verify(tok.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if c.Subject != "acct-1" || c.Email != "a@b.com" {
		t.Errorf("claims: got sub=%q email=%q", c.Subject, c.Email)
	}
	if c.ID == "" {
		t.Error("expected a token id (jti)")
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	ti, _ := newTokenIssuer(testSecret, time.Minute)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ti.now = func() time.Time { return base }

	tok, err := ti.issue("acct-1", "a@b.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	ti.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := ti.verify(tok.AccessToken); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	a, _ := newTokenIssuer(testSecret, time.Hour)
	b, _ := newTokenIssuer(testSecret+"-other", time.Hour)

	tok, _ := a.issue("acct-1", "a@b.com")
	if _, err := b.verify(tok.AccessToken); err == nil {
		t.Error("expected token signed with another secret to be rejected")
	}
}

func TestTokenIssuer_RejectsNoneAlg(t *testing.T) {
	ti, _ := newTokenIssuer(testSecret, time.Hour)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "acct-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := ti.verify(unsigned); err == nil {
		t.Error("expected alg=none token to be rejected")
	}
}
