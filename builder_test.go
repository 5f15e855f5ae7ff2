package authgate

import (
	"testing"

	"github.com/registryops/authgate/mailer"
)

func TestBuilder_RequiresBackingStore(t *testing.T) {
	_, err := New().WithMailer(&mailer.Capture{}).Build()
	if err == nil {
		t.Fatal("expected error without redis client or store")
	}
}

func TestBuilder_RequiresMailerUnlessFixedCode(t *testing.T) {
	if _, err := New().WithRedis(newTestRedis(t)).Build(); err == nil {
		t.Fatal("expected error without mailer")
	}

	cfg := defaultConfig()
	cfg.OTP.FixedCode = "11111"
	engine, err := New().WithConfig(cfg).WithRedis(newTestRedis(t)).Build()
	if err != nil {
		t.Fatalf("fixed code build failed: %v", err)
	}
	engine.Close()
}

func TestBuilder_RejectsInvalidConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.Lockout.MaxAttempts = 0

	_, err := New().
		WithConfig(cfg).
		WithRedis(newTestRedis(t)).
		WithMailer(&mailer.Capture{}).
		Build()
	if err == nil {
		t.Fatal("expected config validation error")
	}
}

func TestBuilder_BuildsOnce(t *testing.T) {
	b := New().WithRedis(newTestRedis(t)).WithMailer(&mailer.Capture{})

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("second build should fail")
	}
}

func TestBuilder_ConfigIsCopied(t *testing.T) {
	cfg := defaultConfig()
	engine, err := New().
		WithConfig(cfg).
		WithRedis(newTestRedis(t)).
		WithMailer(&mailer.Capture{}).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	defer engine.Close()

	cfg.Lockout.MaxAttempts = 99
	if engine.config.Lockout.MaxAttempts == 99 {
		t.Fatal("engine shares the caller's config value")
	}
}

func TestEngineCollections_MergeEntityTypes(t *testing.T) {
	colls := engineCollections(defaultConfig())

	byName := map[string][]string{}
	for _, c := range colls {
		byName[c.Name] = c.IndexFields
	}

	accounts, ok := byName[collectionAccounts]
	if !ok {
		t.Fatal("accounts collection missing")
	}
	// The "user" entity type maps onto accounts; its id field must not be
	// indexed twice.
	seen := map[string]int{}
	for _, f := range accounts {
		seen[f]++
	}
	if seen["memberId"] != 1 || seen["email"] != 1 {
		t.Fatalf("accounts index fields: %v", accounts)
	}
	if _, ok := byName["institutions"]; !ok {
		t.Fatal("institutions collection missing")
	}
	if _, ok := byName[collectionChallenges]; !ok {
		t.Fatal("challenges collection missing")
	}
}
