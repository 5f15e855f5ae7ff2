package authgate

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below carry payloads and match these through
// errors.Is so callers can branch without unwrapping.
var (
	// ErrInvalidIdentifier covers blank, malformed, and (when configured)
	// domain-disallowed login identifiers.
	ErrInvalidIdentifier = errors.New("enter a valid member ID or email address")
	// ErrPasswordRequired is returned when the password step receives an
	// empty secret.
	ErrPasswordRequired = errors.New("password is required")
	// ErrAccountNotFound uses one generic message for every unknown
	// identifier so login responses never reveal whether an account exists.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidCredentials is the base error for a wrong password.
	ErrInvalidCredentials = errors.New("incorrect password")
	// ErrAccountLocked is the base error for a lockout in force.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountNotActive rejects any status other than active once the
	// lock check has passed.
	ErrAccountNotActive = errors.New("account is not active")

	// ErrOTPNotFound means no challenge has ever been issued for the email.
	ErrOTPNotFound = errors.New("no passcode found")
	// ErrOTPContextMismatch means the newest challenge was issued under a
	// different context tag.
	ErrOTPContextMismatch = errors.New("passcode was issued for a different context")
	// ErrOTPIncorrect means the submitted code differs from the stored one.
	ErrOTPIncorrect = errors.New("incorrect passcode")
	// ErrOTPExpired means the newest challenge's validity window has passed.
	ErrOTPExpired = errors.New("passcode has expired")
	// ErrEmailRequired is returned when an OTP operation receives no email.
	ErrEmailRequired = errors.New("email is required")

	// ErrConflict is the base error for a concurrency token mismatch.
	ErrConflict = errors.New("record was modified by someone else")
	// ErrEntityNotFound is returned by the patch protocol for unknown ids.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrEntityTypeUnknown is returned for unregistered entity types.
	ErrEntityTypeUnknown = errors.New("unknown entity type")
	// ErrEmptyPatch is returned when nothing in a patch survives the
	// allow-list filter.
	ErrEmptyPatch = errors.New("no allowed fields in patch")

	// ErrChannelFailure is the base error for email delivery failures.
	ErrChannelFailure = errors.New("delivery channel failure")
	// ErrStoreUnavailable wraps unexpected document-store faults. Callers
	// should present a generic server error; detail stays in logs.
	ErrStoreUnavailable = errors.New("document store unavailable")
	// ErrEngineNotReady is returned when a method is called on an engine
	// missing a required dependency.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// LockedError reports a lockout still in force, carrying the expiry so the
// caller can present a countdown.
type LockedError struct {
	// Until is the stored lockout expiry, RFC 3339 UTC.
	Until string
}

func (e *LockedError) Error() string {
	if e.Until == "" {
		return ErrAccountLocked.Error()
	}
	return fmt.Sprintf("account locked until %s", e.Until)
}

func (e *LockedError) Is(target error) bool { return target == ErrAccountLocked }

// IncorrectPasswordError reports a failed password attempt together with the
// number of attempts remaining before lockout. The raw failure counter is
// never exposed.
type IncorrectPasswordError struct {
	AttemptsLeft int
}

func (e *IncorrectPasswordError) Error() string {
	return fmt.Sprintf("incorrect password, %d attempts left", e.AttemptsLeft)
}

func (e *IncorrectPasswordError) Is(target error) bool { return target == ErrInvalidCredentials }

// ConflictError reports a concurrency token mismatch. ETag is the token
// currently stored, so the caller can re-fetch, re-apply, and retry.
type ConflictError struct {
	ETag string
}

func (e *ConflictError) Error() string {
	return "record was modified by someone else, refresh and retry"
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// ChannelError reports an email delivery failure. Reason is a short
// operator-safe description of the upstream status; it is the only detail
// returned to callers.
type ChannelError struct {
	Reason string
}

func (e *ChannelError) Error() string {
	if e.Reason == "" {
		return ErrChannelFailure.Error()
	}
	return "delivery failed: " + e.Reason
}

func (e *ChannelError) Is(target error) bool { return target == ErrChannelFailure }
