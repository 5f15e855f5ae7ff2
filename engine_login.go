package authgate

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/registryops/authgate/docstore"
	"github.com/registryops/authgate/password"
)

// LoginInit runs the first login step: classify the identifier, resolve
// the account, and evaluate the lockout gate. An expired lockout is
// cleared here, so a returning user sees a clean slate without admin
// intervention. No credential is checked; the returned [LoginGate] tells
// the client to proceed to the password step.
func (e *Engine) LoginInit(ctx context.Context, identifier string) (*LoginGate, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	account, err := e.loadAccountForLogin(ctx, identifier)
	if err != nil {
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", err, nil)
		return nil, err
	}

	e.emitAudit(ctx, auditEventLoginGatePassed, true, account.MemberID, account.Email, nil, nil)

	return &LoginGate{
		MemberID:         account.MemberID,
		Email:            account.Email,
		FailedLoginCount: account.FailedLoginCount,
		LockoutUntil:     account.LockoutUntil,
	}, nil
}

// LoginPassword runs the credential step: the same gate as [Engine.LoginInit]
// followed by password verification, failure accounting, and lock-at-threshold.
func (e *Engine) LoginPassword(ctx context.Context, identifier, plainPassword string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if plainPassword == "" {
		return nil, ErrPasswordRequired
	}

	account, err := e.loadAccountForLogin(ctx, identifier)
	if err != nil {
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", err, nil)
		return nil, err
	}

	start := e.now()
	ok := password.Verify(plainPassword, account.PasswordHash)
	e.observeLatency(MetricVerifyLatency, start)

	if !ok {
		return nil, e.recordLoginFailure(ctx, account)
	}
	return e.recordLoginSuccess(ctx, account)
}

// loadAccountForLogin resolves an identifier to an account and applies the
// shared lockout gate. Errors about unknown accounts are deliberately
// indistinguishable from each other.
func (e *Engine) loadAccountForLogin(ctx context.Context, identifier string) (*Account, error) {
	id := e.classifier.Classify(identifier)

	var field string
	switch id.Kind {
	case IdentifierMemberID:
		field = "memberId"
	case IdentifierEmail:
		field = "email"
	case IdentifierEmailDisallowed:
		if e.config.Identifier.RejectDisallowedDomains {
			return nil, ErrInvalidIdentifier
		}
		field = "email"
	default:
		return nil, ErrInvalidIdentifier
	}

	doc, err := e.store.FindNewest(ctx, collectionAccounts, field, id.Normalized)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		e.logger.Error("account lookup failed", "field", field, "err", err)
		return nil, fmt.Errorf("%w: account lookup", ErrStoreUnavailable)
	}

	account := accountFromDocument(doc)
	if err := e.checkLoginGate(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// checkLoginGate enforces the lockout state machine. A locked account
// whose stamp has expired is unlocked in place; a missing or malformed
// stamp counts as expired rather than locking the account forever.
func (e *Engine) checkLoginGate(ctx context.Context, account *Account) error {
	now := e.now()

	if account.StatusKind() == StatusLocked {
		until, ok := parseTime(account.LockoutUntil)
		if ok && now.Before(until) {
			e.metricInc(MetricLoginLocked)
			e.emitAudit(ctx, auditEventLoginFailure, false, account.MemberID, account.Email, ErrAccountLocked, func() map[string]string {
				return map[string]string{"lockout_until": account.LockoutUntil}
			})
			return &LockedError{Until: account.LockoutUntil}
		}

		account.Status = "active"
		account.FailedLoginCount = 0
		account.LockoutUntil = ""
		account.appendAdminNote(now, "Auto-unlocked after lockout expiry")

		if err := e.saveAccount(ctx, account); err != nil {
			return err
		}

		e.metricInc(MetricLoginAutoUnlock)
		e.emitAudit(ctx, auditEventAccountUnlocked, true, account.MemberID, account.Email, nil, nil)
	}

	if account.StatusKind() != StatusActive {
		e.metricInc(MetricLoginNotActive)
		return ErrAccountNotActive
	}
	return nil
}

// recordLoginFailure bumps the failure counter and locks the account when
// the threshold is reached. The counter write is a plain replace; two
// racing failures may under-count by one, which errs toward the user.
func (e *Engine) recordLoginFailure(ctx context.Context, account *Account) error {
	now := e.now()
	account.FailedLoginCount++

	if account.FailedLoginCount >= e.config.Lockout.MaxAttempts {
		until := now.Add(e.config.Lockout.Duration)
		account.Status = "locked"
		account.LockoutUntil = formatTime(until)
		account.appendAdminNote(now, fmt.Sprintf(
			"Account locked after %d failed login attempts", account.FailedLoginCount))

		if err := e.saveAccount(ctx, account); err != nil {
			return err
		}

		e.metricInc(MetricLoginFailure)
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, auditEventAccountLocked, false, account.MemberID, account.Email, ErrAccountLocked, func() map[string]string {
			return map[string]string{
				"lockout_until":   account.LockoutUntil,
				"failed_attempts": strconv.Itoa(account.FailedLoginCount),
			}
		})
		return &LockedError{Until: account.LockoutUntil}
	}

	if err := e.saveAccount(ctx, account); err != nil {
		return err
	}

	left := e.config.Lockout.MaxAttempts - account.FailedLoginCount
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, account.MemberID, account.Email, ErrInvalidCredentials, func() map[string]string {
		return map[string]string{"attempts_left": strconv.Itoa(left)}
	})
	return &IncorrectPasswordError{AttemptsLeft: left}
}

// recordLoginSuccess resets failure state, stamps the login time, and
// mints the session token when minting is enabled.
func (e *Engine) recordLoginSuccess(ctx context.Context, account *Account) (*LoginResult, error) {
	now := e.now()
	account.Status = "active"
	account.FailedLoginCount = 0
	account.LockoutUntil = ""
	account.LastLoginAt = formatTime(now)

	if err := e.saveAccount(ctx, account); err != nil {
		return nil, err
	}

	result := &LoginResult{
		MemberID: account.MemberID,
		Email:    account.Email,
	}
	if e.tokens != nil {
		signed, err := e.tokens.Issue(account.MemberID, account.Email, "password", now)
		if err != nil {
			e.logger.Error("token issuance failed", "member_id", account.MemberID, "err", err)
			return nil, err
		}
		result.AccessToken = signed
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, account.MemberID, account.Email, nil, nil)
	return result, nil
}

// saveAccount writes lockout bookkeeping with a plain replace. Patch
// protocol writes are the conditional ones; counter updates favor
// availability over strict serialization.
func (e *Engine) saveAccount(ctx context.Context, account *Account) error {
	if _, err := e.store.Replace(ctx, collectionAccounts, account.document(), ""); err != nil {
		e.logger.Error("account write failed", "member_id", account.MemberID, "err", err)
		return fmt.Errorf("%w: account write", ErrStoreUnavailable)
	}
	return nil
}
