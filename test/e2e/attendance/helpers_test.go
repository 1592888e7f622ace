package attendance_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rosterhq/attendance/internal/api"
	"github.com/rosterhq/attendance/internal/service"
	"github.com/rosterhq/attendance/internal/store/sqlite"
	"github.com/rosterhq/attendance/pkg/attendsdk"
	"github.com/rosterhq/attendance/pkg/jwtx"
)

// Common setup for SDK end-to-end tests: the full service stack (store,
// services, router) behind an httptest server, driven only through the
// public SDK.

const (
	testEmail    = "e2e@example.com"
	testPassword = "Passw0rd1"
)

// setupService boots the whole stack and returns an SDK client pointed at
// it.
func setupService(t *testing.T) *attendsdk.Client {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "e2e.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	tokens := &jwtx.Issuer{
		AccessSecret:  []byte("e2e-access-secret"),
		RefreshSecret: []byte("e2e-refresh-secret"),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := api.NewRouter(tokens, "e2e", st, logger)
	router.SessionService = &service.SessionService{Store: st, Tokens: tokens}
	router.AttendanceService = &service.AttendanceService{Store: st}
	router.TaskService = &service.TaskService{Store: st}
	router.UserService = &service.UserService{Store: st}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return attendsdk.NewClient(srv.URL)
}

func mustSignup(t *testing.T, client *attendsdk.Client, name, email, role string) *attendsdk.Session {
	t.Helper()

	session, err := client.Signup(context.Background(), name, email, testPassword, role)
	require.NoError(t, err)
	return session
}
