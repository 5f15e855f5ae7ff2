package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

func hs256Config() Config {
	return Config{
		TTL:           15 * time.Minute,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "authgate-test",
		Audience:      "registry",
	}
}

func TestIssueAndParse_HS256(t *testing.T) {
	m, err := NewManager(hs256Config())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	signed, err := m.Issue("RG25A12345", "alice@example.org", "password", now)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := m.Parse(signed)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.MemberID != "RG25A12345" || claims.Email != "alice@example.org" || claims.Factor != "password" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.ExpiresAt.Time.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("expiry = %v", claims.ExpiresAt.Time)
	}
}

func TestIssueAndParse_Ed25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}

	m, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	signed, err := m.Issue("RG25A12345", "alice@example.org", "otp", time.Now())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	claims, err := m.Parse(signed)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.Factor != "otp" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParse_RejectsExpiredAndTampered(t *testing.T) {
	m, err := NewManager(hs256Config())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	expired, err := m.Issue("RG25A12345", "alice@example.org", "password", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := m.Parse(expired); err == nil {
		t.Fatal("expired token accepted")
	}

	signed, err := m.Issue("RG25A12345", "alice@example.org", "password", time.Now())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := m.Parse(signed + "x"); err == nil {
		t.Fatal("tampered token accepted")
	}

	other, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("another-secret-another-secret-32"),
		Issuer:        "authgate-test",
		Audience:      "registry",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if _, err := other.Parse(signed); err == nil {
		t.Fatal("token signed under a different key accepted")
	}
}

func TestNewManager_Validation(t *testing.T) {
	cases := []Config{
		{},
		{TTL: time.Minute, SigningMethod: MethodHS256},
		{TTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: []byte("short")},
		{TTL: time.Minute, SigningMethod: "rs512", PrivateKey: []byte("k")},
	}
	for i, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}
