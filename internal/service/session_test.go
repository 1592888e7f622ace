package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rosterhq/attendance/internal/domain"
	"github.com/rosterhq/attendance/internal/store"
	"github.com/rosterhq/attendance/internal/store/sqlite"
	"github.com/rosterhq/attendance/pkg/jwtx"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func newTestIssuer() *jwtx.Issuer {
	return &jwtx.Issuer{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
	}
}

func newSessionService(t *testing.T) *SessionService {
	t.Helper()
	return &SessionService{
		Store:  newTestStore(t),
		Tokens: newTestIssuer(),
	}
}

func TestSignupAndLogin(t *testing.T) {
	svc := newSessionService(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, "Alice", "Alice@Example.com", "Passw0rd1", "")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", res.User.Email)
	require.Equal(t, domain.RoleEmployee, res.User.Role)
	require.NotEmpty(t, res.Tokens.AccessToken)
	require.NotEmpty(t, res.Tokens.RefreshToken)

	claims, err := svc.Tokens.VerifyAccess(res.Tokens.AccessToken)
	require.NoError(t, err)
	require.Equal(t, res.User.ID, claims.Subject)
	require.Equal(t, "alice@example.com", claims.Email)
	require.Equal(t, "employee", claims.Role)

	login, err := svc.Login(ctx, "alice@example.com", "Passw0rd1")
	require.NoError(t, err)
	require.Equal(t, res.User.ID, login.User.ID)

	_, err = svc.Login(ctx, "alice@example.com", "wrong-password1")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "Passw0rd1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignupValidation(t *testing.T) {
	svc := newSessionService(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		userName string
		email    string
		password string
	}{
		{"empty name", "", "a@example.com", "Passw0rd1"},
		{"bad email", "A", "not-an-email", "Passw0rd1"},
		{"short password", "A", "a@example.com", "Ab1"},
		{"no digit", "A", "a@example.com", "longpassword"},
		{"no letter", "A", "a@example.com", "1234567890"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tc.userName, tc.email, tc.password, "")
			require.ErrorIs(t, err, ErrValidation)
		})
	}

	_, err := svc.Signup(ctx, "A", "a@example.com", "Passw0rd1", "superuser")
	require.ErrorIs(t, err, ErrValidation)
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc := newSessionService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "Alice", "dup@example.com", "Passw0rd1", "")
	require.NoError(t, err)

	_, err = svc.Signup(ctx, "Bob", "DUP@example.com", "Passw0rd1", "")
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestRefreshRotation(t *testing.T) {
	svc := newSessionService(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, "Alice", "a@x.com", "Passw0rd1", "")
	require.NoError(t, err)

	pair, err := svc.Refresh(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEqual(t, res.Tokens.RefreshToken, pair.RefreshToken)

	// The consumed token is single-use.
	_, err = svc.Refresh(ctx, res.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// The rotated token still works.
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRejectsGarbage(t *testing.T) {
	svc := newSessionService(t)
	ctx := context.Background()

	_, err := svc.Refresh(ctx, "not-a-jwt")
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// Well-formed token signed by someone else.
	other := &jwtx.Issuer{
		AccessSecret:  []byte("x"),
		RefreshSecret: []byte("different-secret"),
	}
	forged, _, err := other.MintRefresh("someone")
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, forged)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// Valid signature but never stored.
	unstored, _, err := svc.Tokens.MintRefresh("ghost")
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, unstored)
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestRefreshConcurrentSingleWinner(t *testing.T) {
	svc := newSessionService(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, "Alice", "race@x.com", "Passw0rd1", "")
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	wins := make(chan domain.TokenPair, n)

	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if pair, err := svc.Refresh(ctx, res.Tokens.RefreshToken); err == nil {
				wins <- pair
			}
		}()
	}
	wg.Wait()
	close(wins)

	require.Len(t, wins, 1)
}

func TestLogout(t *testing.T) {
	svc := newSessionService(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, "Alice", "out@x.com", "Passw0rd1", "")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, res.Tokens.RefreshToken))

	_, err = svc.Refresh(ctx, res.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// Idempotent.
	require.NoError(t, svc.Logout(ctx, res.Tokens.RefreshToken))
}

func TestLogoutAll(t *testing.T) {
	svc := newSessionService(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, "Alice", "all@x.com", "Passw0rd1", "")
	require.NoError(t, err)

	// Two more sessions from other devices.
	login1, err := svc.Login(ctx, "all@x.com", "Passw0rd1")
	require.NoError(t, err)
	login2, err := svc.Login(ctx, "all@x.com", "Passw0rd1")
	require.NoError(t, err)

	n, err := svc.LogoutAll(ctx, res.User.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	for _, token := range []string{res.Tokens.RefreshToken, login1.Tokens.RefreshToken, login2.Tokens.RefreshToken} {
		_, err = svc.Refresh(ctx, token)
		require.ErrorIs(t, err, ErrInvalidRefresh)
	}
}

func TestDeactivatedAccount(t *testing.T) {
	svc := newSessionService(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, "Alice", "off@x.com", "Passw0rd1", "")
	require.NoError(t, err)

	// Flip the flag directly; UserService owns the admin surface.
	require.NoError(t, svc.Store.Users().SetActive(ctx, res.User.ID, false))

	_, err = svc.Login(ctx, "off@x.com", "Passw0rd1")
	require.ErrorIs(t, err, ErrAccountDeactivated)

	_, err = svc.Refresh(ctx, res.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrAccountDeactivated)
}

func TestLoginPrunesExpiredSessions(t *testing.T) {
	base := time.Now().UTC()
	clock := base
	svc := newSessionService(t)
	svc.Now = func() time.Time { return clock }
	svc.Tokens.Now = func() time.Time { return clock }
	ctx := context.Background()

	res, err := svc.Signup(ctx, "Alice", "prune@x.com", "Passw0rd1", "")
	require.NoError(t, err)

	// Jump past the refresh TTL; the old session is now expired.
	clock = base.Add(jwtx.DefaultRefreshTokenTTL + time.Hour)

	_, err = svc.Login(ctx, "prune@x.com", "Passw0rd1")
	require.NoError(t, err)

	count, err := svc.Store.RefreshSessions().CountForUser(ctx, res.User.ID)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
