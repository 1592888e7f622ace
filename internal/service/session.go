package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/rosterhq/attendance/internal/domain"
	"github.com/rosterhq/attendance/internal/store"
	"github.com/rosterhq/attendance/pkg/cryptox"
	"github.com/rosterhq/attendance/pkg/idx"
	"github.com/rosterhq/attendance/pkg/jwtx"
	"github.com/rosterhq/attendance/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrDuplicateEmail     = errors.New("duplicate_email")
	ErrInvalidRefresh     = errors.New("invalid_refresh_token")
	ErrAccountDeactivated = errors.New("account_deactivated")
	ErrValidation         = errors.New("validation_failed")
)

// SessionService owns the credential and token lifecycle: signup, login,
// refresh rotation, and logout. Refresh tokens are never stored raw; only
// their fingerprints live in the refresh_sessions table, and a fingerprint
// is deleted the moment it is presented.
type SessionService struct {
	Store  store.Store
	Tokens *jwtx.Issuer

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// AuthResult is returned by Signup and Login: the user record plus a fresh
// token pair.
type AuthResult struct {
	User   *domain.User
	Tokens domain.TokenPair
}

// Signup registers a new user and logs them in.
func (s *SessionService) Signup(ctx context.Context, name, email, password string, role domain.Role) (*AuthResult, error) {
	l := slogx.FromContext(ctx)
	now := s.now().UTC()

	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if role == "" {
		role = domain.RoleEmployee
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           idx.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrDuplicateEmail
			}
			return err
		}
		pair, err = s.issuePair(ctx, tx, user, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.Info("user registered", "user_id", user.ID, "role", string(user.Role))
	return &AuthResult{User: user, Tokens: pair}, nil
}

// Login verifies credentials and opens a new session. Expired sessions for
// the user are pruned in the same transaction that records the new one.
func (s *SessionService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	l := slogx.FromContext(ctx)
	now := s.now().UTC()

	user, err := s.Store.Users().GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		l.Info("login failed", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	if !user.Active {
		return nil, ErrAccountDeactivated
	}

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.RefreshSessions().DeleteExpiredForUser(ctx, user.ID, now); err != nil {
			return err
		}
		pair, err = s.issuePair(ctx, tx, user, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.Info("user logged in", "user_id", user.ID)
	return &AuthResult{User: user, Tokens: pair}, nil
}

// Refresh rotates a refresh token: the presented token is consumed and a
// new pair is issued in one transaction. A token that was already consumed,
// expired, or never issued yields ErrInvalidRefresh.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)
	now := s.now().UTC()

	// Reject garbage before touching the store.
	if _, err := s.Tokens.VerifyRefresh(refreshToken); err != nil {
		return domain.TokenPair{}, ErrInvalidRefresh
	}

	fp := cryptox.FingerprintToken(refreshToken)

	var pair domain.TokenPair
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		sess, err := tx.RefreshSessions().ConsumeByHash(ctx, fp)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}

		// Signature check above already covers expiry, but the stored row
		// is authoritative.
		if now.After(sess.ExpiresAt) {
			return ErrInvalidRefresh
		}

		user, err := tx.Users().GetByID(ctx, sess.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefresh
			}
			return err
		}
		if !user.Active {
			return ErrAccountDeactivated
		}

		pair, err = s.issuePair(ctx, tx, user, now)
		if err != nil {
			return err
		}

		l.Info("refresh token rotated", "user_id", user.ID)
		return nil
	})
	if err != nil {
		return domain.TokenPair{}, err
	}

	return pair, nil
}

// Logout revokes a single session. Unknown tokens are ignored so logout is
// idempotent.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	fp := cryptox.FingerprintToken(refreshToken)
	return s.Store.RefreshSessions().DeleteByHash(ctx, fp)
}

// LogoutAll revokes every session the user has, across devices.
func (s *SessionService) LogoutAll(ctx context.Context, userID string) (int64, error) {
	l := slogx.FromContext(ctx)
	n, err := s.Store.RefreshSessions().DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	l.Info("all sessions revoked", "user_id", userID, "sessions", n)
	return n, nil
}

// issuePair mints an access/refresh pair and records the refresh session.
func (s *SessionService) issuePair(ctx context.Context, tx store.Tx, user *domain.User, now time.Time) (domain.TokenPair, error) {
	access, _, err := s.Tokens.MintAccess(user.ID, user.Email, user.Role.String())
	if err != nil {
		return domain.TokenPair{}, err
	}

	refresh, expiresAt, err := s.Tokens.MintRefresh(user.ID)
	if err != nil {
		return domain.TokenPair{}, err
	}

	err = tx.RefreshSessions().Create(ctx, &domain.RefreshSession{
		ID:        idx.New().String(),
		UserID:    user.ID,
		TokenHash: cryptox.FingerprintToken(refresh),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	})
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validatePassword enforces the minimum bar: 8+ characters with at least
// one letter and one digit.
func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("%w: password must contain a letter and a number", ErrValidation)
	}
	return nil
}
