package authgate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/registryops/authgate/docstore"
	"github.com/registryops/authgate/internal"
)

// IssueOTP generates a passcode for the given email under a context tag,
// records it, and delivers it over the email channel. Recording happens
// before delivery: a failed send still leaves a verifiable challenge, and
// the caller may retry delivery without invalidating it. Issuing again
// supersedes any earlier challenge for the same email.
func (e *Engine) IssueOTP(ctx context.Context, email, otpContext string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ErrEmailRequired
	}
	if id := e.classifier.Classify(email); id.Kind != IdentifierEmail && id.Kind != IdentifierEmailDisallowed {
		return ErrInvalidIdentifier
	}

	if e.otpContextRequiresAccount(otpContext) {
		if _, err := e.store.FindNewest(ctx, collectionAccounts, "email", email); err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				return ErrAccountNotFound
			}
			e.logger.Error("account lookup failed", "err", err)
			return fmt.Errorf("%w: account lookup", ErrStoreUnavailable)
		}
	}

	now := e.now()
	code := e.config.OTP.FixedCode
	if code == "" {
		generated, err := internal.NumericCode(e.config.OTP.Digits)
		if err != nil {
			return err
		}
		code = generated
	}

	challenge := OTPChallenge{
		Email:     email,
		Code:      code,
		Context:   otpContext,
		CreatedAt: formatTime(now),
		ExpiresAt: formatTime(now.Add(e.config.OTP.TTL)),
	}
	doc, err := docstore.Encode(challenge)
	if err != nil {
		return err
	}
	delete(doc, "id") // let the store assign one
	if _, err := e.store.Insert(ctx, collectionChallenges, doc); err != nil {
		e.logger.Error("passcode record failed", "err", err)
		return fmt.Errorf("%w: passcode record", ErrStoreUnavailable)
	}

	// A fixed code is a debug convenience; nothing to deliver.
	if e.config.OTP.FixedCode != "" {
		e.metricInc(MetricOTPIssued)
		e.emitAudit(ctx, auditEventPasscodeIssued, true, "", email, nil, nil)
		return nil
	}

	body := fmt.Sprintf(
		"Your passcode is %s. It expires in %d minutes.",
		code, int(e.config.OTP.TTL.Minutes()))
	if err := e.mailer.Send(ctx, email, e.config.Email.Subject, body); err != nil {
		e.metricInc(MetricOTPDeliveryFailed)
		e.emitAudit(ctx, auditEventPasscodeSendError, false, "", email, ErrChannelFailure, nil)
		e.logger.Error("passcode delivery failed", "err", err)
		return &ChannelError{Reason: err.Error()}
	}

	e.metricInc(MetricOTPIssued)
	e.emitAudit(ctx, auditEventPasscodeIssued, true, "", email, nil, nil)
	return nil
}

// VerifyOTP checks a submitted passcode against the newest challenge for
// the email. Checks run in a fixed order so the caller sees the most
// specific failure: existence, context, code, expiry. A challenge whose
// expiry stamp cannot be parsed is treated as still valid. Verification
// does not consume the challenge; it stays answerable until superseded.
func (e *Engine) VerifyOTP(ctx context.Context, email, code, otpContext string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrEmailRequired
	}

	doc, err := e.store.FindNewest(ctx, collectionChallenges, "email", email)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, e.rejectOTP(ctx, email, ErrOTPNotFound)
		}
		e.logger.Error("passcode lookup failed", "err", err)
		return nil, fmt.Errorf("%w: passcode lookup", ErrStoreUnavailable)
	}

	var challenge OTPChallenge
	if err := docstore.Decode(doc, &challenge); err != nil {
		e.logger.Error("passcode record malformed", "err", err)
		return nil, e.rejectOTP(ctx, email, ErrOTPNotFound)
	}

	if challenge.Context != otpContext {
		return nil, e.rejectOTP(ctx, email, ErrOTPContextMismatch)
	}
	if challenge.Code != strings.TrimSpace(code) {
		return nil, e.rejectOTP(ctx, email, ErrOTPIncorrect)
	}
	if expires, ok := parseTime(challenge.ExpiresAt); ok && e.now().After(expires) {
		return nil, e.rejectOTP(ctx, email, ErrOTPExpired)
	}

	result := &LoginResult{Email: email}
	if account := e.stampOTPLogin(ctx, email); account != nil {
		result.MemberID = account.MemberID
	}

	if e.tokens != nil {
		signed, err := e.tokens.Issue(result.MemberID, email, "otp", e.now())
		if err != nil {
			e.logger.Error("token issuance failed", "email", email, "err", err)
			return nil, err
		}
		result.AccessToken = signed
	}

	e.metricInc(MetricOTPVerified)
	e.emitAudit(ctx, auditEventPasscodeVerified, true, result.MemberID, email, nil, nil)
	return result, nil
}

func (e *Engine) rejectOTP(ctx context.Context, email string, cause error) error {
	e.metricInc(MetricOTPRejected)
	e.emitAudit(ctx, auditEventPasscodeRejected, false, "", email, cause, nil)
	return cause
}

// stampOTPLogin updates login bookkeeping on the account behind a verified
// passcode. The verification itself already succeeded, so stamping is best
// effort: a missing account or a failed write is logged and ignored.
func (e *Engine) stampOTPLogin(ctx context.Context, email string) *Account {
	doc, err := e.store.FindNewest(ctx, collectionAccounts, "email", email)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			e.logger.Warn("post-verify account lookup failed", "err", err)
		}
		return nil
	}

	account := accountFromDocument(doc)
	account.FailedLoginCount = 0
	account.LockoutUntil = ""
	if account.StatusKind() == StatusLocked {
		account.Status = "active"
	}
	account.LastLoginAt = formatTime(e.now())

	if _, err := e.store.Replace(ctx, collectionAccounts, account.document(), ""); err != nil {
		e.logger.Warn("post-verify account stamp failed", "member_id", account.MemberID, "err", err)
	}
	return account
}

func (e *Engine) otpContextRequiresAccount(otpContext string) bool {
	for _, c := range e.config.OTP.RequireAccountContexts {
		if c == otpContext {
			return true
		}
	}
	return false
}
