package authgate

import (
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := validateConfig(defaultConfig()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateConfig_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero lockout attempts", func(c *Config) { c.Lockout.MaxAttempts = 0 }},
		{"zero lockout duration", func(c *Config) { c.Lockout.Duration = 0 }},
		{"otp too narrow", func(c *Config) { c.OTP.Digits = 3 }},
		{"otp too wide", func(c *Config) { c.OTP.Digits = 11 }},
		{"zero otp ttl", func(c *Config) { c.OTP.TTL = 0 }},
		{"token without key", func(c *Config) { c.Token.Enabled = true }},
		{"token without ttl", func(c *Config) {
			c.Token.Enabled = true
			c.Token.PrivateKey = []byte("k")
			c.Token.TTL = 0
		}},
		{"entity without collection", func(c *Config) {
			c.Entities["broken"] = EntityTypeConfig{IDField: "id", PartitionField: "p", AllowedFields: []string{"x"}}
		}},
		{"entity without allow-list", func(c *Config) {
			c.Entities["broken"] = EntityTypeConfig{Collection: "c", IDField: "id", PartitionField: "p"}
		}},
	}

	for _, tc := range cases {
		cfg := defaultConfig()
		tc.mutate(&cfg)
		if err := validateConfig(cfg); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestCloneConfig_Isolation(t *testing.T) {
	original := defaultConfig()
	original.Identifier.AllowedEmailDomains = []string{"example.org"}
	original.Token.PrivateKey = []byte("secret")

	clone := cloneConfig(original)
	clone.Identifier.AllowedEmailDomains[0] = "evil.example"
	clone.Token.PrivateKey[0] = 'X'
	clone.Entities["institution"].AllowedFields[0] = "tampered"
	clone.Lockout.Duration = time.Minute

	if original.Identifier.AllowedEmailDomains[0] != "example.org" {
		t.Fatal("clone shares the domain slice")
	}
	if original.Token.PrivateKey[0] != 's' {
		t.Fatal("clone shares the key bytes")
	}
	if original.Entities["institution"].AllowedFields[0] == "tampered" {
		t.Fatal("clone shares the entity allow-list")
	}
	if original.Lockout.Duration != 24*time.Hour {
		t.Fatal("clone shares scalar state")
	}
}

func TestParseStatus(t *testing.T) {
	cases := map[string]AccountStatus{
		"":          StatusActive,
		"active":    StatusActive,
		" Active ":  StatusActive,
		"LOCKED":    StatusLocked,
		"suspended": StatusOther,
		"pending":   StatusOther,
		"what?":     StatusOther,
	}
	for in, want := range cases {
		if got := ParseStatus(in); got != want {
			t.Errorf("ParseStatus(%q) = %v, want %v", in, got, want)
		}
	}
}
