package authgate

import (
	"errors"
	"time"
)

// Config is the process-wide policy object. It is constructed once, handed
// to [Builder.WithConfig], and treated as immutable afterwards; no engine
// code reads ambient state.
type Config struct {
	Lockout    LockoutConfig
	OTP        OTPConfig
	Identifier IdentifierConfig
	Token      TokenConfig
	Email      EmailConfig
	Audit      AuditConfig
	Metrics    MetricsConfig

	// Entities registers the record types served by the patch protocol,
	// keyed by the entity type name callers pass to ApplyPatch.
	Entities map[string]EntityTypeConfig
}

// LockoutConfig governs the brute-force state machine.
type LockoutConfig struct {
	// MaxAttempts is the failed-login count at which the account locks.
	MaxAttempts int
	// Duration is how long a lock stays in force once stamped.
	Duration time.Duration
}

// OTPConfig governs passcode issuance and verification.
type OTPConfig struct {
	// Digits is the fixed code width.
	Digits int
	// TTL is the validity window from issuance.
	TTL time.Duration
	// FixedCode pins a deterministic code instead of randomness and skips
	// delivery. Debug deployments only; leave empty in production.
	FixedCode string
	// RequireAccountContexts lists context tags whose issuance requires the
	// email to belong to a known account.
	RequireAccountContexts []string
}

// IdentifierConfig governs the login identifier classifier.
type IdentifierConfig struct {
	// AllowedEmailDomains is the email domain allow-set. Empty admits all.
	AllowedEmailDomains []string
	// RejectDisallowedDomains makes the login flow treat a well-formed
	// email outside the allow-set as invalid input. Off by default; the
	// classifier always reports the distinction either way.
	RejectDisallowedDomains bool
}

// TokenConfig governs the session token minted at the true login point.
type TokenConfig struct {
	// Enabled turns minting on. When off, LoginResult carries no token.
	Enabled bool
	TTL     time.Duration
	// SigningMethod is "hs256" or "ed25519".
	SigningMethod string
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
}

// EmailConfig shapes outbound passcode mail.
type EmailConfig struct {
	Subject string
}

// AuditConfig governs the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull sheds events under backpressure instead of blocking the
	// request path; drops are counted and exported.
	DropIfFull bool
}

// MetricsConfig governs the in-process metric registry.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// EntityTypeConfig describes one mutable record type for the patch
// protocol.
type EntityTypeConfig struct {
	// Collection is the docstore collection holding the records.
	Collection string
	// IDField is the stable external identifier field queried on lookup.
	IDField string
	// PartitionField is the store-level sharding attribute. Its value is
	// pinned: patches touching it are dropped and the conditional replace
	// re-asserts the stored value.
	PartitionField string
	// AllowedFields is the fixed set of client-patchable field names.
	// Everything else in a patch is silently discarded.
	AllowedFields []string
}

// Document collections owned by the engine itself.
const (
	collectionAccounts   = "accounts"
	collectionChallenges = "otp_challenges"
)

// OTPContextLogin is the context tag whose issuance requires a known
// account by default.
const OTPContextLogin = "login"

func defaultConfig() Config {
	return Config{
		Lockout: LockoutConfig{
			MaxAttempts: 3,
			Duration:    24 * time.Hour,
		},
		OTP: OTPConfig{
			Digits:                 5,
			TTL:                    5 * time.Minute,
			RequireAccountContexts: []string{OTPContextLogin},
		},
		Token: TokenConfig{
			Enabled:       false,
			TTL:           15 * time.Minute,
			SigningMethod: "hs256",
		},
		Email: EmailConfig{
			Subject: "Your sign-in passcode",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Entities: map[string]EntityTypeConfig{
			"institution": {
				Collection:     "institutions",
				IDField:        "externalId",
				PartitionField: "country",
				AllowedFields: []string{
					"name", "address1", "address2", "city", "state", "postal_code",
					"complaint_email", "complaint_phone", "country_code", "timezone",
					"status", "plan_type", "subscription_expiry",
					"institution_type", "institution_category",
					"personnel_name", "comment", "admin_notes", "max_responders",
					"testing", "primary_contact_name", "primary_contact_phone",
					"primary_contact_email", "website_url",
				},
			},
			"responder": {
				Collection:     "responders",
				IDField:        "externalId",
				PartitionField: "country",
				AllowedFields: []string{
					"first_name", "middle_name", "last_name", "phone", "department",
					"status", "timezone", "institution_id", "institution_name",
					"admin_notes",
				},
			},
			"user": {
				Collection:     collectionAccounts,
				IDField:        "memberId",
				PartitionField: "domain",
				AllowedFields: []string{
					"firstName", "lastName", "phone", "timezone", "status",
					"adminNotes",
				},
			},
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.OTP.RequireAccountContexts = append([]string(nil), cfg.OTP.RequireAccountContexts...)
	out.Identifier.AllowedEmailDomains = append([]string(nil), cfg.Identifier.AllowedEmailDomains...)
	out.Token.PrivateKey = append([]byte(nil), cfg.Token.PrivateKey...)
	out.Token.PublicKey = append([]byte(nil), cfg.Token.PublicKey...)
	if cfg.Entities != nil {
		out.Entities = make(map[string]EntityTypeConfig, len(cfg.Entities))
		for name, et := range cfg.Entities {
			et.AllowedFields = append([]string(nil), et.AllowedFields...)
			out.Entities[name] = et
		}
	}
	return out
}

func validateConfig(cfg Config) error {
	if cfg.Lockout.MaxAttempts <= 0 {
		return errors.New("lockout max attempts must be positive")
	}
	if cfg.Lockout.Duration <= 0 {
		return errors.New("lockout duration must be positive")
	}
	if cfg.OTP.Digits < 4 || cfg.OTP.Digits > 10 {
		return errors.New("otp digits must be between 4 and 10")
	}
	if cfg.OTP.TTL <= 0 {
		return errors.New("otp ttl must be positive")
	}
	if cfg.Token.Enabled {
		if cfg.Token.TTL <= 0 {
			return errors.New("token ttl must be positive")
		}
		if len(cfg.Token.PrivateKey) == 0 {
			return errors.New("token signing key is required")
		}
	}
	for name, et := range cfg.Entities {
		if et.Collection == "" || et.IDField == "" || et.PartitionField == "" {
			return errors.New("entity type " + name + " is missing collection, id field, or partition field")
		}
		if len(et.AllowedFields) == 0 {
			return errors.New("entity type " + name + " has an empty field allow-list")
		}
	}
	return nil
}
