package authgate

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/registryops/authgate/docstore"
)

// AccountStatus is the closed set of account states the engine reasons
// about. Source data stores status as an open-ended string; anything the
// engine does not recognize degrades to [StatusOther] and is blocked at the
// login gate rather than passed through unchecked.
type AccountStatus uint8

const (
	// StatusActive allows login to proceed.
	StatusActive AccountStatus = iota
	// StatusLocked is a temporary state entered after repeated failures.
	StatusLocked
	// StatusOther covers every non-active pass-through state (pending,
	// suspended, expired, under investigation, unknown strings).
	StatusOther
)

// ParseStatus maps a stored status string onto the closed enum. A blank
// status is treated as active, matching legacy records that predate the
// field.
func ParseStatus(raw string) AccountStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "active":
		return StatusActive
	case "locked":
		return StatusLocked
	default:
		return StatusOther
	}
}

// Account is one authenticating principal. Timestamps are stored as RFC 3339
// strings because source records may carry malformed values that the lockout
// machine must degrade on gracefully instead of failing to decode.
type Account struct {
	ID               string
	MemberID         string
	Email            string
	PasswordHash     string
	Status           string
	FailedLoginCount int
	LockoutUntil     string
	AdminNotes       string
	LastLoginAt      string
	Domain           string
	ETag             string

	// raw preserves fields this engine does not manage, so a replace never
	// drops them.
	raw docstore.Document
}

// StatusKind is the parsed form of the stored status string.
func (a *Account) StatusKind() AccountStatus { return ParseStatus(a.Status) }

// appendAdminNote appends one timestamped line to the account's audit trail.
func (a *Account) appendAdminNote(at time.Time, note string) {
	line := "[" + formatTime(at) + "] " + note
	if a.AdminNotes == "" {
		a.AdminNotes = line
		return
	}
	a.AdminNotes += "\n" + line
}

func accountFromDocument(doc docstore.Document) *Account {
	return &Account{
		ID:               docString(doc, docstore.FieldID),
		MemberID:         docString(doc, "memberId"),
		Email:            docString(doc, "email"),
		PasswordHash:     docString(doc, "passwordHash"),
		Status:           docString(doc, "status"),
		FailedLoginCount: docInt(doc, "failedLoginCount"),
		LockoutUntil:     docString(doc, "lockoutUntil"),
		AdminNotes:       docString(doc, "adminNotes"),
		LastLoginAt:      docString(doc, "lastLoginAt"),
		Domain:           docString(doc, "domain"),
		ETag:             docString(doc, docstore.FieldETag),
		raw:              doc.Clone(),
	}
}

func (a *Account) document() docstore.Document {
	doc := a.raw.Clone()
	if doc == nil {
		doc = docstore.Document{}
	}
	doc[docstore.FieldID] = a.ID
	doc["memberId"] = a.MemberID
	doc["email"] = a.Email
	doc["passwordHash"] = a.PasswordHash
	doc["status"] = a.Status
	doc["failedLoginCount"] = a.FailedLoginCount
	doc["domain"] = a.Domain
	if a.LockoutUntil == "" {
		doc["lockoutUntil"] = nil
	} else {
		doc["lockoutUntil"] = a.LockoutUntil
	}
	if a.LastLoginAt == "" {
		doc["lastLoginAt"] = nil
	} else {
		doc["lastLoginAt"] = a.LastLoginAt
	}
	doc["adminNotes"] = a.AdminNotes
	return doc
}

// OTPChallenge is one issued passcode. Challenges are append-only: issuing a
// new one supersedes older ones for the same email even while they are still
// unexpired, and verification only ever consults the newest.
type OTPChallenge struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Code      string `json:"code"`
	Context   string `json:"context"`
	CreatedAt string `json:"createdAt"`
	ExpiresAt string `json:"expiresAt"`
}

// LoginGate is the successful outcome of the identifier step, echoed back so
// the client can drive the second step.
type LoginGate struct {
	MemberID         string
	Email            string
	FailedLoginCount int
	LockoutUntil     string
}

// LoginResult is returned when authentication fully completes, either at the
// password step or at OTP verification.
type LoginResult struct {
	MemberID    string
	Email       string
	AccessToken string
}

// PatchResult is the post-write entity returned by [Engine.ApplyPatch].
// Internal bookkeeping fields are stripped; ETag is the new concurrency
// token.
type PatchResult struct {
	Entity map[string]any
	ETag   string
}

// Mailer is the outbound email channel. A non-nil error means delivery
// failed; issuance of the underlying record is not rolled back on failure.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Clock supplies current time, injected for deterministic tests.
type Clock func() time.Time

// formatTime renders a timestamp as RFC 3339 UTC with a literal Z suffix,
// the wire form used for every timestamp this engine writes.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime accepts RFC 3339 with either Z or a numeric offset. The second
// return is false for blank or malformed input; callers decide whether that
// fails open or closed.
func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func docString(doc docstore.Document, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}

// docInt tolerates the numeric shapes a JSON round-trip can produce, plus
// numeric strings found in hand-edited records.
func docInt(doc docstore.Document, key string) int {
	switch v := doc[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}
