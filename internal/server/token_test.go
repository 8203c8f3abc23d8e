package server

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerify(t *testing.T) {
	ts := NewTokenService("test-secret", time.Hour)

	tok, exp, err := ts.Issue(User{ID: 42, Username: "test user", IsAdmin: false})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Fatalf("expected exp in the future, got %v", exp)
	}

	claims, err := ts.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	uid, err := claims.UserID()
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	if uid != 42 {
		t.Errorf("expected subject 42, got %d", uid)
	}
	if claims.Username != "test user" {
		t.Errorf("unexpected username: %q", claims.Username)
	}
	if claims.Role != RoleUser {
		t.Errorf("expected role user, got %q", claims.Role)
	}
}

func TestIssueAdminRole(t *testing.T) {
	ts := NewTokenService("test-secret", time.Hour)

	tok, _, err := ts.Issue(User{ID: 1, Username: "root", IsAdmin: true})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := ts.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Role != RoleAdmin {
		t.Errorf("expected role admin, got %q", claims.Role)
	}
}

func TestVerifyExpired(t *testing.T) {
	issuer := NewTokenService("test-secret", time.Hour)
	issuer.now = func() time.Time { return time.Now().Add(-3 * time.Hour) }

	tok, _, err := issuer.Issue(User{ID: 1, Username: "u"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	verifier := NewTokenService("test-secret", time.Hour)
	if _, err := verifier.Verify(tok); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyTampered(t *testing.T) {
	ts := NewTokenService("test-secret", time.Hour)
	tok, _, err := ts.Issue(User{ID: 7, Username: "u"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape")
	}

	// Flip one character of the signature; the token still parses, only
	// the signature check can catch it.
	sig := []byte(parts[2])
	mid := len(sig) / 2
	if sig[mid] == 'a' {
		sig[mid] = 'b'
	} else {
		sig[mid] = 'a'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := ts.Verify(tampered); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected ErrTokenSignature for tampered signature, got %v", err)
	}
}

func TestVerifyForeignSecret(t *testing.T) {
	other := NewTokenService("other-secret", time.Hour)
	tok, _, err := other.Issue(User{ID: 7, Username: "u"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	ts := NewTokenService("test-secret", time.Hour)
	if _, err := ts.Verify(tok); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected ErrTokenSignature for foreign token, got %v", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	ts := NewTokenService("test-secret", time.Hour)
	for _, tok := range []string{"", "garbage", "a.b", "a.b.c.d"} {
		if _, err := ts.Verify(tok); !errors.Is(err, ErrTokenMalformed) {
			t.Errorf("token %q: expected ErrTokenMalformed, got %v", tok, err)
		}
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	// Same secret, different HMAC variant: must not verify.
	claims := Claims{
		Username: "u",
		Role:     RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	ts := NewTokenService("test-secret", time.Hour)
	if _, err := ts.Verify(tok); !errors.Is(err, ErrTokenSignature) {
		t.Fatalf("expected ErrTokenSignature for HS512 token, got %v", err)
	}
}
