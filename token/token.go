// Package token mints and parses the signed session token issued at the
// true login point (password success or passcode verification).
package token

import (
	"crypto/ed25519"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the JWT signature algorithm.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

// Config carries the signing material and claim policy.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
}

// Claims is the token payload: who authenticated and through which factor.
type Claims struct {
	MemberID string `json:"mid,omitempty"`
	Email    string `json:"eml,omitempty"`
	Factor   string `json:"fct,omitempty"` // "password" or "otp"
	jwt.RegisteredClaims
}

// Manager signs and verifies session tokens.
type Manager struct {
	config Config
}

// NewManager validates the config and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("token: ttl must be positive")
	}
	switch SigningMethod(strings.ToLower(string(cfg.SigningMethod))) {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("token: hs256 requires a secret key")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) != ed25519.PrivateKeySize {
			return nil, errors.New("token: invalid ed25519 private key size")
		}
		if len(cfg.PublicKey) != ed25519.PublicKeySize {
			return nil, errors.New("token: invalid ed25519 public key size")
		}
	default:
		return nil, errors.New("token: unsupported signing method")
	}
	cfg.SigningMethod = SigningMethod(strings.ToLower(string(cfg.SigningMethod)))
	return &Manager{config: cfg}, nil
}

// Issue mints a token for the authenticated principal.
func (m *Manager) Issue(memberID, email, factor string, now time.Time) (string, error) {
	claims := Claims{
		MemberID: memberID,
		Email:    email,
		Factor:   factor,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   memberID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
		},
	}
	if claims.MemberID == "" {
		claims.Subject = email
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	if m.config.SigningMethod == MethodEd25519 {
		tok := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
		return tok.SignedString(ed25519.PrivateKey(m.config.PrivateKey))
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(m.config.PrivateKey)
}

// Parse verifies the signature and standard claims and returns the payload.
func (m *Manager) Parse(raw string) (*Claims, error) {
	keyFunc := func(t *jwt.Token) (any, error) {
		switch m.config.SigningMethod {
		case MethodEd25519:
			if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
				return nil, errors.New("token: unexpected signing method")
			}
			return ed25519.PublicKey(m.config.PublicKey), nil
		default:
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("token: unexpected signing method")
			}
			return m.config.PrivateKey, nil
		}
	}

	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if m.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(m.config.Audience))
	}

	var claims Claims
	if _, err := jwt.ParseWithClaims(raw, &claims, keyFunc, opts...); err != nil {
		return nil, err
	}
	return &claims, nil
}
