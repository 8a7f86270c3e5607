package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newHSManager(t *testing.T, ttl time.Duration) *Manager {
	t.Helper()
	m, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: testSecret, Issuer: "goaccount", TTL: ttl})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestIssueAndParseRoundTrip(t *testing.T) {
	m := newHSManager(t, 0)

	token, err := m.Issue("u1", "user")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UID != "u1" || claims.Role != "user" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ExpiresAt != nil {
		t.Fatal("expected no exp claim when TTL is zero")
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be set")
	}
}

func TestIssueProducesDistinctTokens(t *testing.T) {
	m := newHSManager(t, 0)

	a, err := m.Issue("u1", "user")
	if err != nil {
		t.Fatalf("issue a: %v", err)
	}
	b, err := m.Issue("u1", "user")
	if err != nil {
		t.Fatalf("issue b: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct token strings for the same user")
	}
}

func TestParseRejectsTamperedAndForeignTokens(t *testing.T) {
	m := newHSManager(t, 0)
	token, _ := m.Issue("u1", "user")

	if _, err := m.Parse(token + "x"); err == nil {
		t.Fatal("expected tampered token to fail")
	}

	other, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: []byte("another-secret-another-secret-xx"), Issuer: "goaccount"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	foreign, _ := other.Issue("u1", "user")
	if _, err := m.Parse(foreign); err == nil {
		t.Fatal("expected token signed with another key to fail")
	}

	if _, err := m.Parse("not-a-token"); err == nil {
		t.Fatal("expected garbage to fail")
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	m, err := NewManager(Config{SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := SessionClaims{UID: "u1", Role: "user"}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Parse(token); err == nil {
		t.Fatal("expected HS256 token to be rejected by ed25519 manager")
	}

	good, err := m.Issue("u1", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parsed, err := m.Parse(good)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Role != "admin" {
		t.Fatalf("expected admin role, got %q", parsed.Role)
	}
}

func TestParseEnforcesIssuer(t *testing.T) {
	m := newHSManager(t, 0)

	claims := SessionClaims{UID: "u1", RegisteredClaims: gjwt.RegisteredClaims{Issuer: "someone-else"}}
	token, _ := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testSecret)
	if _, err := m.Parse(token); err == nil {
		t.Fatal("expected wrong issuer to fail")
	}
}

func TestTTLExpiresTokens(t *testing.T) {
	m := newHSManager(t, time.Minute)
	base := time.Now()
	m.now = func() time.Time { return base }

	token, err := m.Issue("u1", "user")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Parse(token); err != nil {
		t.Fatalf("expected fresh token to parse: %v", err)
	}

	m.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := m.Parse(token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestNewManagerValidatesConfig(t *testing.T) {
	if _, err := NewManager(Config{SigningMethod: MethodHS256}); err == nil {
		t.Fatal("expected missing hs256 key to fail")
	}
	if _, err := NewManager(Config{SigningMethod: "rs256", PrivateKey: testSecret}); err == nil {
		t.Fatal("expected unsupported method to fail")
	}
	if _, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: testSecret, TTL: -time.Second}); err == nil {
		t.Fatal("expected negative TTL to fail")
	}
	if _, err := NewManager(Config{SigningMethod: MethodEd25519, PrivateKey: []byte("short")}); err == nil {
		t.Fatal("expected invalid ed25519 key to fail")
	}
}
