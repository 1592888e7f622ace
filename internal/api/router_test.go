package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rosterhq/attendance/internal/service"
	"github.com/rosterhq/attendance/internal/store/sqlite"
	"github.com/rosterhq/attendance/pkg/jwtx"
)

type testEnv struct {
	server  *httptest.Server
	router  *Router
	tokens  *jwtx.Issuer
	session *service.SessionService
	users   *service.UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	tokens := &jwtx.Issuer{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(tokens, "test", st, logger)
	router.SessionService = &service.SessionService{Store: st, Tokens: tokens}
	router.AttendanceService = &service.AttendanceService{Store: st}
	router.TaskService = &service.TaskService{Store: st}
	router.UserService = &service.UserService{Store: st}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testEnv{
		server:  srv,
		router:  router,
		tokens:  tokens,
		session: router.SessionService,
		users:   router.UserService,
	}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, apiResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

type tokenPayload struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type authPayload struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
	Tokens tokenPayload `json:"tokens"`
}

func (e *testEnv) signup(t *testing.T, name, email, password, role string) authPayload {
	t.Helper()

	body := map[string]string{"name": name, "email": email, "password": password}
	if role != "" {
		body["role"] = role
	}
	status, res := e.do(t, http.MethodPost, "/auth/signup", "", body)
	require.Equal(t, http.StatusCreated, status)
	require.True(t, res.Success)

	var data authPayload
	require.NoError(t, json.Unmarshal(res.Data, &data))
	return data
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	// Signup.
	auth := env.signup(t, "Alice", "a@x.com", "Passw0rd1", "")
	require.Equal(t, "a@x.com", auth.User.Email)
	require.Equal(t, "employee", auth.User.Role)
	require.NotEmpty(t, auth.Tokens.AccessToken)
	require.NotEmpty(t, auth.Tokens.RefreshToken)

	// Duplicate email.
	status, res := env.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"name": "Other", "email": "a@x.com", "password": "Passw0rd1",
	})
	require.Equal(t, http.StatusConflict, status)
	require.False(t, res.Success)

	// Login.
	status, res = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@x.com", "password": "Passw0rd1",
	})
	require.Equal(t, http.StatusOK, status)
	var login authPayload
	require.NoError(t, json.Unmarshal(res.Data, &login))

	// Bad password.
	status, _ = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@x.com", "password": "WrongPass1",
	})
	require.Equal(t, http.StatusUnauthorized, status)

	// Authenticated /auth/me.
	status, res = env.do(t, http.MethodGet, "/auth/me", login.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	require.True(t, res.Success)

	// Refresh rotates the pair.
	status, res = env.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{
		"refreshToken": login.Tokens.RefreshToken,
	})
	require.Equal(t, http.StatusOK, status)
	var refreshed struct {
		Tokens tokenPayload `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &refreshed))
	require.NotEmpty(t, refreshed.Tokens.AccessToken)
	require.NotEqual(t, login.Tokens.RefreshToken, refreshed.Tokens.RefreshToken)

	// The consumed refresh token is dead.
	status, res = env.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{
		"refreshToken": login.Tokens.RefreshToken,
	})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Invalid or expired refresh token", res.Message)

	// The rotated one works.
	status, _ = env.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{
		"refreshToken": refreshed.Tokens.RefreshToken,
	})
	require.Equal(t, http.StatusOK, status)
}

func TestGuardRejections(t *testing.T) {
	env := newTestEnv(t)
	auth := env.signup(t, "Bob", "b@x.com", "Passw0rd1", "")

	// No token.
	status, _ := env.do(t, http.MethodGet, "/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)

	// Garbage token.
	status, _ = env.do(t, http.MethodGet, "/auth/me", "not.a.jwt", nil)
	require.Equal(t, http.StatusUnauthorized, status)

	// Token signed with the wrong secret.
	forger := &jwtx.Issuer{
		AccessSecret:  []byte("some-other-secret"),
		RefreshSecret: []byte("x"),
	}
	forged, _, err := forger.MintAccess(auth.User.ID, "b@x.com", "employee")
	require.NoError(t, err)
	status, _ = env.do(t, http.MethodGet, "/auth/me", forged, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	// Token for a deleted subject.
	ghost, _, err := env.tokens.MintAccess("nonexistent", "g@x.com", "employee")
	require.NoError(t, err)
	status, _ = env.do(t, http.MethodGet, "/auth/me", ghost, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestDeactivationCutsAccess(t *testing.T) {
	env := newTestEnv(t)
	auth := env.signup(t, "Carol", "c@x.com", "Passw0rd1", "")

	// Valid before.
	status, _ := env.do(t, http.MethodGet, "/auth/me", auth.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)

	require.NoError(t, env.users.SetActive(t.Context(), auth.User.ID, false))

	// Access token still unexpired, but the guard's point-read kills it.
	status, res := env.do(t, http.MethodGet, "/auth/me", auth.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "Account deactivated", res.Message)

	// Refresh dies too.
	status, _ = env.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{
		"refreshToken": auth.Tokens.RefreshToken,
	})
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestLogoutEndpoints(t *testing.T) {
	env := newTestEnv(t)
	auth := env.signup(t, "Dave", "d@x.com", "Passw0rd1", "")

	// Nothing to revoke is still a success.
	status, _ := env.do(t, http.MethodPost, "/auth/logout", auth.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodPost, "/auth/logout", auth.Tokens.AccessToken, map[string]string{
		"refreshToken": auth.Tokens.RefreshToken,
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{
		"refreshToken": auth.Tokens.RefreshToken,
	})
	require.Equal(t, http.StatusUnauthorized, status)

	// logoutAll on the same endpoint revokes every session.
	status, res := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "d@x.com", "password": "Passw0rd1",
	})
	require.Equal(t, http.StatusOK, status)
	var first authPayload
	require.NoError(t, json.Unmarshal(res.Data, &first))

	status, res = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "d@x.com", "password": "Passw0rd1",
	})
	require.Equal(t, http.StatusOK, status)
	var second authPayload
	require.NoError(t, json.Unmarshal(res.Data, &second))

	status, _ = env.do(t, http.MethodPost, "/auth/logout", first.Tokens.AccessToken, map[string]bool{
		"logoutAll": true,
	})
	require.Equal(t, http.StatusOK, status)

	for _, refresh := range []string{first.Tokens.RefreshToken, second.Tokens.RefreshToken} {
		status, _ = env.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{
			"refreshToken": refresh,
		})
		require.Equal(t, http.StatusUnauthorized, status)
	}
}

func TestAttendanceEndpoints(t *testing.T) {
	env := newTestEnv(t)
	auth := env.signup(t, "Erin", "e@x.com", "Passw0rd1", "")

	// Nothing yet today.
	status, _ := env.do(t, http.MethodGet, "/attendance/today", auth.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusNotFound, status)

	// Check-out before check-in.
	status, _ = env.do(t, http.MethodPatch, "/attendance/check-out", auth.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusBadRequest, status)

	// Check in.
	status, res := env.do(t, http.MethodPost, "/attendance/check-in", auth.Tokens.AccessToken, map[string]string{"notes": "wfh"})
	require.Equal(t, http.StatusCreated, status)
	var rec struct {
		Status string `json:"status"`
		Notes  string `json:"notes"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &rec))
	require.Equal(t, "present", rec.Status)
	require.Equal(t, "wfh", rec.Notes)

	// Double check-in.
	status, _ = env.do(t, http.MethodPost, "/attendance/check-in", auth.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusConflict, status)

	// Same-day check-out lands under the threshold.
	status, res = env.do(t, http.MethodPatch, "/attendance/check-out", auth.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(res.Data, &rec))
	require.Equal(t, "half_day", rec.Status)

	// Today now exists; history and stats respond.
	status, _ = env.do(t, http.MethodGet, "/attendance/today", auth.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, http.MethodGet, "/attendance?page=1&limit=10", auth.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, http.MethodGet, "/attendance/stats", auth.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)

	// Employee cannot see the cross-user view.
	status, _ = env.do(t, http.MethodGet, "/attendance/all", auth.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, status)

	// A manager can.
	mgr := env.signup(t, "Mgr", "m@x.com", "Passw0rd1", "manager")
	status, _ = env.do(t, http.MethodGet, "/attendance/all", mgr.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestTaskEndpoints(t *testing.T) {
	env := newTestEnv(t)
	emp := env.signup(t, "Emp", "emp@x.com", "Passw0rd1", "")
	mgr := env.signup(t, "Mgr", "mgr@x.com", "Passw0rd1", "manager")

	// Employee creates a task for themselves.
	status, res := env.do(t, http.MethodPost, "/tasks", emp.Tokens.AccessToken, map[string]string{"title": "write report"})
	require.Equal(t, http.StatusCreated, status)
	var task struct {
		ID         string `json:"id"`
		AssignedTo string `json:"assignedTo"`
		Status     string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &task))
	require.Equal(t, emp.User.ID, task.AssignedTo)
	require.Equal(t, "todo", task.Status)

	// Employee cannot assign to someone else.
	status, _ = env.do(t, http.MethodPost, "/tasks", emp.Tokens.AccessToken, map[string]string{
		"title": "for mgr", "assignedTo": mgr.User.ID,
	})
	require.Equal(t, http.StatusForbidden, status)

	// Manager assigns to the employee with a due date already past.
	status, res = env.do(t, http.MethodPost, "/tasks", mgr.Tokens.AccessToken, map[string]string{
		"title": "delegated", "assignedTo": emp.User.ID, "priority": "high",
		"dueDate": time.Now().UTC().Add(-24 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, status)
	var delegated struct {
		ID      string `json:"id"`
		Overdue bool   `json:"overdue"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &delegated))
	require.True(t, delegated.Overdue)

	// Completing it clears the overdue flag.
	status, res = env.do(t, http.MethodPatch, "/tasks/"+delegated.ID, mgr.Tokens.AccessToken, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(res.Data, &delegated))
	require.False(t, delegated.Overdue)

	// Complete the first task.
	status, res = env.do(t, http.MethodPatch, "/tasks/"+task.ID, emp.Tokens.AccessToken, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, status)
	var updated struct {
		Status      string  `json:"status"`
		CompletedAt *string `json:"completedAt"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &updated))
	require.Equal(t, "completed", updated.Status)
	require.NotNil(t, updated.CompletedAt)

	// Listings.
	status, res = env.do(t, http.MethodGet, "/tasks", emp.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)
	var page struct {
		Tasks      []json.RawMessage `json:"tasks"`
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &page))
	require.Equal(t, 2, page.Pagination.Total)

	status, _ = env.do(t, http.MethodGet, "/tasks/all", emp.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, status)
	status, _ = env.do(t, http.MethodGet, "/tasks/all", mgr.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)

	// Assignee cannot delete a manager-created task; the creator can.
	status, res = env.do(t, http.MethodGet, "/tasks", emp.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodDelete, "/tasks/"+task.ID, emp.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, status) // emp created it
}

func TestUserAdminEndpoints(t *testing.T) {
	env := newTestEnv(t)
	emp := env.signup(t, "Emp", "u-emp@x.com", "Passw0rd1", "")
	admin := env.signup(t, "Admin", "u-admin@x.com", "Passw0rd1", "admin")

	// Listing requires manager or admin.
	status, _ := env.do(t, http.MethodGet, "/users", emp.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, status)
	status, _ = env.do(t, http.MethodGet, "/users", admin.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, status)

	// Deactivation requires admin.
	status, _ = env.do(t, http.MethodPatch, "/users/"+admin.User.ID+"/active", emp.Tokens.AccessToken, map[string]bool{"active": false})
	require.Equal(t, http.StatusForbidden, status)

	status, _ = env.do(t, http.MethodPatch, "/users/"+emp.User.ID+"/active", admin.Tokens.AccessToken, map[string]bool{"active": false})
	require.Equal(t, http.StatusOK, status)

	// The deactivated employee is locked out.
	status, _ = env.do(t, http.MethodGet, "/auth/me", emp.Tokens.AccessToken, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(t, http.MethodPatch, "/users/missing/active", admin.Tokens.AccessToken, map[string]bool{"active": true})
	require.Equal(t, http.StatusNotFound, status)
}

func TestSystemEndpoints(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, status)
}
