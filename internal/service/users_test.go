package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rosterhq/attendance/internal/domain"
)

func TestSetActiveRevokesSessions(t *testing.T) {
	st := newTestStore(t)
	sessions := &SessionService{Store: st, Tokens: newTestIssuer()}
	users := &UserService{Store: st}
	ctx := context.Background()

	res, err := sessions.Signup(ctx, "Alice", "deact@x.com", "Passw0rd1", "")
	require.NoError(t, err)
	_, err = sessions.Login(ctx, "deact@x.com", "Passw0rd1")
	require.NoError(t, err)

	require.NoError(t, users.SetActive(ctx, res.User.ID, false))

	got, err := users.Get(ctx, res.User.ID)
	require.NoError(t, err)
	require.False(t, got.Active)

	count, err := st.RefreshSessions().CountForUser(ctx, res.User.ID)
	require.NoError(t, err)
	require.Equal(t, 0, count)

	// Reactivation does not resurrect old sessions.
	require.NoError(t, users.SetActive(ctx, res.User.ID, true))
	_, err = sessions.Refresh(ctx, res.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	require.ErrorIs(t, users.SetActive(ctx, "missing", true), ErrUserNotFound)
}

func TestListUsers(t *testing.T) {
	st := newTestStore(t)
	sessions := &SessionService{Store: st, Tokens: newTestIssuer()}
	users := &UserService{Store: st}
	ctx := context.Background()

	_, err := sessions.Signup(ctx, "A", "u1@x.com", "Passw0rd1", domain.RoleEmployee)
	require.NoError(t, err)
	_, err = sessions.Signup(ctx, "B", "u2@x.com", "Passw0rd1", domain.RoleManager)
	require.NoError(t, err)

	list, err := users.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
}
