package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mintToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("commerce-api-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestFromHeaderReadsJWTClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := mintToken(t, "user-42", exp)

	cred := FromHeader("Bearer " + token)
	if cred.IsZero() {
		t.Fatal("expected credential")
	}
	if cred.Token != token {
		t.Fatalf("token must be forwarded unchanged")
	}
	if cred.Subject != "user-42" {
		t.Fatalf("expected subject user-42, got %q", cred.Subject)
	}
	if cred.ExpiresAt == nil || !cred.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected expiry %v", cred.ExpiresAt)
	}
	if cred.Expired(time.Now()) {
		t.Fatal("token should not be expired yet")
	}
	if got := cred.Header(); got != "Bearer "+token {
		t.Fatalf("unexpected header %q", got)
	}
}

func TestFromHeaderOpaqueToken(t *testing.T) {
	cred := FromHeader("bearer 12|sanctum-token")
	if cred.Token != "12|sanctum-token" {
		t.Fatalf("unexpected token %q", cred.Token)
	}
	if cred.Subject != "" || cred.ExpiresAt != nil {
		t.Fatalf("opaque token should carry no claims: %+v", cred)
	}
}

func TestFromHeaderAnonymous(t *testing.T) {
	for _, header := range []string{"", "Bearer", "Bearer   ", "Basic abc"} {
		if cred := FromHeader(header); !cred.IsZero() {
			t.Fatalf("expected zero credential for %q, got %+v", header, cred)
		}
	}
	if (Credential{}).Header() != "" {
		t.Fatal("zero credential must not render a header")
	}
}

func TestExpired(t *testing.T) {
	cred := FromToken(mintToken(t, "u", time.Now().Add(-time.Minute)))
	if !cred.Expired(time.Now()) {
		t.Fatal("expected expired credential")
	}
}
