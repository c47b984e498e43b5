package reset

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/minechat-api/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 6

// Request is the body of a redeem call.
type Request struct {
	Email       string `json:"email" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
	ResetToken  string `json:"resetToken" validate:"required"`
}

// SessionStore loads and consumes reset sessions.
type SessionStore interface {
	Get(ctx context.Context, token string) (*domain.ResetSession, error)
	MarkUsed(ctx context.Context, token string) error
}

// CredentialStore is the external password store: look up an account by
// email and overwrite its password hash.
type CredentialStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	UpdatePassword(ctx context.Context, accountID, passwordHash string) error
}

// Service redeems a reset session exactly once to authorize a password
// change. Every failure path is terminal for the call.
type Service interface {
	Redeem(ctx context.Context, req Request) error
}

type service struct {
	sessions SessionStore
	creds    CredentialStore
	now      func() time.Time
}

func NewService(sessions SessionStore, creds CredentialStore) Service {
	return &service{sessions: sessions, creds: creds, now: time.Now}
}

func (s *service) Redeem(ctx context.Context, req Request) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	newPassword := strings.TrimSpace(req.NewPassword)
	resetToken := strings.TrimSpace(req.ResetToken)
	if email == "" || resetToken == "" || len(newPassword) < minPasswordLen {
		return domain.Errorf(domain.ErrBadRequest, "Invalid parameters")
	}

	sess, err := s.sessions.Get(ctx, resetToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Errorf(domain.ErrNotFound, "Invalid or expired session")
		}
		return err
	}

	sessionEmail := strings.ToLower(sess.Email)
	if sessionEmail == "" {
		return domain.Errorf(domain.ErrUnauthorized, "Corrupt session: no email")
	}
	if sessionEmail != email {
		return domain.Errorf(domain.ErrUnauthorized, "Email mismatch for this session")
	}
	if sess.Used {
		return domain.Errorf(domain.ErrUnauthorized, "Session already used")
	}
	if sess.ExpiresAt.IsZero() || s.now().After(sess.ExpiresAt) {
		// Burn the session on expiry detection so it cannot be probed again.
		if err := s.sessions.MarkUsed(ctx, resetToken); err != nil {
			slog.Warn("failed to mark expired reset session used", "err", err)
		}
		return domain.Errorf(domain.ErrUnauthorized, "Session expired")
	}

	account, err := s.creds.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Errorf(domain.ErrNotFound, "No account for this email")
		}
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.creds.UpdatePassword(ctx, account.AccountID, string(hash)); err != nil {
		return err
	}

	// used is checked-then-set, not a conditional write; concurrent redeems
	// inside the window can both pass the check (see DESIGN.md).
	if err := s.sessions.MarkUsed(ctx, resetToken); err != nil {
		return err
	}
	return nil
}
