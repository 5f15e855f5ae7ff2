package authgate

import (
	"regexp"
	"strings"
)

// IdentifierKind classifies the raw value a principal supplies to begin
// login.
type IdentifierKind uint8

const (
	// IdentifierEmpty means the input was blank after trimming.
	IdentifierEmpty IdentifierKind = iota
	// IdentifierMemberID is a structured registry member ID, normalized to
	// uppercase.
	IdentifierMemberID
	// IdentifierEmail is an email address whose domain is in the configured
	// allow-set (or no allow-set is configured), normalized to lowercase.
	IdentifierEmail
	// IdentifierEmailDisallowed is a well-formed email address outside the
	// configured domain allow-set. Whether to reject it is the caller's
	// product decision; the classifier only reports it.
	IdentifierEmailDisallowed
	// IdentifierInvalid matches neither the member-ID nor the email grammar.
	IdentifierInvalid
)

func (k IdentifierKind) String() string {
	switch k {
	case IdentifierEmpty:
		return "empty"
	case IdentifierMemberID:
		return "member-id"
	case IdentifierEmail:
		return "email"
	case IdentifierEmailDisallowed:
		return "email-disallowed"
	default:
		return "invalid"
	}
}

// Identifier is the classified, normalized form of a raw login identifier.
type Identifier struct {
	Kind       IdentifierKind
	Normalized string
}

// Member IDs: two literal letters, two digits, one letter, five digits.
// Matching is case-insensitive; the canonical form is uppercase.
var (
	memberIDPattern = regexp.MustCompile(`(?i)^RG[0-9]{2}[A-Z][0-9]{5}$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Classifier turns raw login identifiers into typed, normalized values.
// It is pure and total: any input string yields a result, never a panic.
type Classifier struct {
	allowedDomains map[string]struct{}
}

// NewClassifier builds a Classifier with the given email domain allow-set.
// An empty allow-set admits every well-formed email domain.
func NewClassifier(allowedDomains []string) *Classifier {
	c := &Classifier{}
	if len(allowedDomains) > 0 {
		c.allowedDomains = make(map[string]struct{}, len(allowedDomains))
		for _, d := range allowedDomains {
			c.allowedDomains[strings.ToLower(strings.TrimSpace(d))] = struct{}{}
		}
	}
	return c
}

// Classify parses a raw identifier. Classifying an already-normalized value
// again yields the same result.
func (c *Classifier) Classify(raw string) Identifier {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Identifier{Kind: IdentifierEmpty}
	}
	if memberIDPattern.MatchString(s) {
		return Identifier{Kind: IdentifierMemberID, Normalized: strings.ToUpper(s)}
	}
	if emailPattern.MatchString(s) {
		lower := strings.ToLower(s)
		if c.allowedDomains != nil {
			domain := lower[strings.LastIndexByte(lower, '@')+1:]
			if _, ok := c.allowedDomains[domain]; !ok {
				return Identifier{Kind: IdentifierEmailDisallowed, Normalized: lower}
			}
		}
		return Identifier{Kind: IdentifierEmail, Normalized: lower}
	}
	return Identifier{Kind: IdentifierInvalid}
}
