package jwtx_test

import (
	"testing"
	"time"

	"github.com/rosterhq/attendance/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func testIssuer() *jwtx.Issuer {
	return &jwtx.Issuer{
		AccessSecret:  []byte("access-secret-for-tests"),
		RefreshSecret: []byte("refresh-secret-for-tests"),
	}
}

func TestMintVerifyAccessRoundTrip(t *testing.T) {
	iss := testIssuer()

	token, expiresAt, err := iss.MintAccess("01ARZ3NDEKTSV4RRFFQ69G5FAV", "a@x.com", "employee")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(jwtx.DefaultAccessTokenTTL), expiresAt, time.Minute)

	claims, err := iss.VerifyAccess(token)
	require.NoError(t, err)
	require.Equal(t, "01ARZ3NDEKTSV4RRFFQ69G5FAV", claims.Subject)
	require.Equal(t, "a@x.com", claims.Email)
	require.Equal(t, "employee", claims.Role)
	require.Equal(t, "attendance-system", claims.Issuer)
	require.Contains(t, claims.Audience, "attendance-system-client")
}

func TestMintVerifyRefreshRoundTrip(t *testing.T) {
	iss := testIssuer()

	token, expiresAt, err := iss.MintRefresh("01ARZ3NDEKTSV4RRFFQ69G5FAV")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(jwtx.DefaultRefreshTokenTTL), expiresAt, time.Minute)

	claims, err := iss.VerifyRefresh(token)
	require.NoError(t, err)
	require.Equal(t, "01ARZ3NDEKTSV4RRFFQ69G5FAV", claims.Subject)
	require.Equal(t, "attendance-system", claims.Issuer)
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	iss := testIssuer()

	access, _, err := iss.MintAccess("user", "a@x.com", "admin")
	require.NoError(t, err)
	refresh, _, err := iss.MintRefresh("user")
	require.NoError(t, err)

	// Signed with different secrets, so cross-verification must fail.
	_, err = iss.VerifyRefresh(access)
	require.ErrorIs(t, err, jwtx.ErrInvalidSignature)
	_, err = iss.VerifyAccess(refresh)
	require.ErrorIs(t, err, jwtx.ErrInvalidSignature)
}

func TestVerifyAccessFailures(t *testing.T) {
	iss := testIssuer()

	t.Run("tampered signature", func(t *testing.T) {
		other := &jwtx.Issuer{
			AccessSecret:  []byte("a-different-secret"),
			RefreshSecret: []byte("another-different-secret"),
		}
		token, _, err := other.MintAccess("user", "a@x.com", "employee")
		require.NoError(t, err)

		_, err = iss.VerifyAccess(token)
		require.ErrorIs(t, err, jwtx.ErrInvalidSignature)
	})

	t.Run("expired", func(t *testing.T) {
		past := time.Now().Add(-30 * 24 * time.Hour)
		backdated := &jwtx.Issuer{
			AccessSecret:  iss.AccessSecret,
			RefreshSecret: iss.RefreshSecret,
			Now:           func() time.Time { return past },
		}
		token, _, err := backdated.MintAccess("user", "a@x.com", "employee")
		require.NoError(t, err)

		_, err = iss.VerifyAccess(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("issuer mismatch", func(t *testing.T) {
		foreign := &jwtx.Issuer{
			AccessSecret:  iss.AccessSecret,
			RefreshSecret: iss.RefreshSecret,
			Issuer:        "some-other-system",
		}
		token, _, err := foreign.MintAccess("user", "a@x.com", "employee")
		require.NoError(t, err)

		_, err = iss.VerifyAccess(token)
		require.ErrorIs(t, err, jwtx.ErrClaimMismatch)
	})

	t.Run("audience mismatch", func(t *testing.T) {
		foreign := &jwtx.Issuer{
			AccessSecret:  iss.AccessSecret,
			RefreshSecret: iss.RefreshSecret,
			Audience:      "some-other-client",
		}
		token, _, err := foreign.MintAccess("user", "a@x.com", "employee")
		require.NoError(t, err)

		_, err = iss.VerifyAccess(token)
		require.ErrorIs(t, err, jwtx.ErrClaimMismatch)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := iss.VerifyAccess("definitely.not.a-jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)

		_, err = iss.VerifyAccess("")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}
