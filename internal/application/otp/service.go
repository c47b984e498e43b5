package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/minechat-api/internal/domain"
	"github.com/minechat-api/internal/pkg/id"
	pkgtoken "github.com/minechat-api/internal/pkg/token"
)

const (
	codeLength     = 6
	resendCooldown = 60 * time.Second
	codeTTL        = 3 * time.Minute
	sessionTTL     = 10 * time.Minute
)

// SendRequest is the body of a send-code call.
type SendRequest struct {
	Email string `json:"email" validate:"required"`
}

// VerifyRequest is the body of a verify-code call.
type VerifyRequest struct {
	Email string `json:"email" validate:"required"`
	Code  string `json:"code" validate:"required"`
}

// OTPStore persists pending passcodes.
type OTPStore interface {
	Put(ctx context.Context, o *domain.OTPCode) error
	Get(ctx context.Context, email string) (*domain.OTPCode, error)
	Delete(ctx context.Context, email string) error
	IncrementAttempts(ctx context.Context, email string) error
}

// SessionStore creates password-reset sessions.
type SessionStore interface {
	Put(ctx context.Context, s *domain.ResetSession) error
}

// MailOutbox queues outbound mail for the external mailer.
type MailOutbox interface {
	Put(ctx context.Context, m *domain.MailMessage) error
}

// Service issues and verifies one-time passcodes, escalating a verified code
// into a password-reset session token.
type Service interface {
	SendCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) (resetToken string, err error)
}

type service struct {
	otps     OTPStore
	sessions SessionStore
	outbox   MailOutbox
	now      func() time.Time
}

func NewService(otps OTPStore, sessions SessionStore, outbox MailOutbox) Service {
	return &service{otps: otps, sessions: sessions, outbox: outbox, now: time.Now}
}

// SendCode generates and stores a fresh 6-digit code for the email and
// queues the OTP mail. A resend inside the cooldown window fails without
// mutating state; a resend after it overwrites the previous code but keeps
// the attempts counter.
func (s *service) SendCode(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.Errorf(domain.ErrBadRequest, "Invalid email")
	}

	now := s.now()
	existing, err := s.otps.Get(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	attempts := 0
	if existing != nil {
		if wait := resendCooldown - now.Sub(existing.LastSentAt); wait > 0 {
			sec := int(math.Ceil(wait.Seconds()))
			return domain.Errorf(domain.ErrConflict, "Please wait %ds before requesting a new code.", sec)
		}
		attempts = existing.Attempts
	}

	code, err := randomDigits(codeLength)
	if err != nil {
		return err
	}
	rec := &domain.OTPCode{
		Email:      email,
		Code:       code,
		CreatedAt:  now.UTC(),
		LastSentAt: now.UTC(),
		ExpiresAt:  now.Add(codeTTL).UTC(),
		Attempts:   attempts,
	}
	if err := s.otps.Put(ctx, rec); err != nil {
		return err
	}

	return s.outbox.Put(ctx, &domain.MailMessage{
		MailID: id.New(),
		To:     email,
		Template: domain.MailTemplate{
			Name: "otp",
			Data: map[string]string{"otp": code, "appName": domain.MailAppName},
		},
		CreatedAt: now.UTC(),
	})
}

// VerifyCode checks the stored code and, on a match, deletes it and issues a
// single-use reset session valid for ten minutes.
func (s *service) VerifyCode(ctx context.Context, email, code string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || code == "" || len(code) != codeLength {
		return "", domain.Errorf(domain.ErrBadRequest, "Invalid parameters")
	}

	rec, err := s.otps.Get(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.Errorf(domain.ErrNotFound, "No OTP request found. Please resend.")
		}
		return "", err
	}

	now := s.now()
	if rec.ExpiresAt.IsZero() || now.After(rec.ExpiresAt) {
		if err := s.otps.Delete(ctx, email); err != nil {
			slog.Warn("failed to delete expired otp", "email", email, "err", err)
		}
		return "", domain.Errorf(domain.ErrUnauthorized, "This code has expired. Please request a new one.")
	}

	if code != rec.Code {
		if err := s.otps.IncrementAttempts(ctx, email); err != nil {
			slog.Warn("failed to increment otp attempts", "email", email, "err", err)
		}
		return "", domain.Errorf(domain.ErrUnauthorized, "Invalid code. Please try again.")
	}

	// Match: consume the code, then issue the session. The two writes are
	// separate documents with no transaction between them; a crash in the
	// gap loses the session and the caller must request a new code.
	if err := s.otps.Delete(ctx, email); err != nil {
		return "", err
	}

	token, err := pkgtoken.NewResetToken(email)
	if err != nil {
		return "", err
	}
	sess := &domain.ResetSession{
		Token:     token,
		Email:     email,
		CreatedAt: now.UTC(),
		ExpiresAt: now.Add(sessionTTL).UTC(),
		Used:      false,
		UpdatedAt: now.UTC(),
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return "", err
	}
	return token, nil
}

// randomDigits draws n bytes from crypto/rand and maps each to a digit via
// mod 10. The mapping is slightly biased toward 0-5 (256 is not a multiple
// of 10); kept as-is to preserve the issued-code format across clients.
func randomDigits(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	out := make([]byte, n)
	for i, v := range b {
		out[i] = '0' + v%10
	}
	return string(out), nil
}
