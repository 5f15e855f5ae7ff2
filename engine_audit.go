package authgate

import (
	"context"
	"errors"
)

const (
	auditEventLoginGatePassed   = "login_gate_passed"
	auditEventLoginSuccess      = "login_success"
	auditEventLoginFailure      = "login_failure"
	auditEventAccountLocked     = "account_locked"
	auditEventAccountUnlocked   = "account_auto_unlocked"
	auditEventPasscodeIssued    = "passcode_issued"
	auditEventPasscodeSendError = "passcode_send_error"
	auditEventPasscodeVerified  = "passcode_verified"
	auditEventPasscodeRejected  = "passcode_rejected"
	auditEventPatchApplied      = "patch_applied"
	auditEventPatchConflict     = "patch_conflict"
	auditEventPatchRejected     = "patch_rejected"
)

type AuditErrorCode string

const (
	auditErrInvalidIdentifier  AuditErrorCode = "invalid_identifier"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccountNotFound    AuditErrorCode = "account_not_found"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrAccountNotActive   AuditErrorCode = "account_not_active"
	auditErrPasscodeNotFound   AuditErrorCode = "passcode_not_found"
	auditErrPasscodeMismatch   AuditErrorCode = "passcode_context_mismatch"
	auditErrPasscodeIncorrect  AuditErrorCode = "passcode_incorrect"
	auditErrPasscodeExpired    AuditErrorCode = "passcode_expired"
	auditErrConflict           AuditErrorCode = "version_conflict"
	auditErrEntityNotFound     AuditErrorCode = "entity_not_found"
	auditErrChannelFailure     AuditErrorCode = "channel_failure"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	memberID string,
	email string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		MemberID:  memberID,
		Email:     email,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidIdentifier),
		errors.Is(err, ErrPasswordRequired),
		errors.Is(err, ErrEmailRequired):
		return auditErrInvalidIdentifier
	case errors.Is(err, ErrAccountNotFound):
		return auditErrAccountNotFound
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrAccountNotActive):
		return auditErrAccountNotActive
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrOTPNotFound):
		return auditErrPasscodeNotFound
	case errors.Is(err, ErrOTPContextMismatch):
		return auditErrPasscodeMismatch
	case errors.Is(err, ErrOTPIncorrect):
		return auditErrPasscodeIncorrect
	case errors.Is(err, ErrOTPExpired):
		return auditErrPasscodeExpired
	case errors.Is(err, ErrConflict):
		return auditErrConflict
	case errors.Is(err, ErrEntityNotFound),
		errors.Is(err, ErrEntityTypeUnknown):
		return auditErrEntityNotFound
	case errors.Is(err, ErrChannelFailure):
		return auditErrChannelFailure
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
