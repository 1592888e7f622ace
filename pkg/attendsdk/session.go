package attendsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// doAuth performs an authenticated request. On a 401 it refreshes the
// access token (through the coordinator) and replays the request exactly
// once; a second 401 is terminal.
func (s *Session) doAuth(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	token := s.AccessToken()
	if token == "" {
		return ErrSessionExpired
	}

	resp, err := s.send(ctx, method, path, payload, token)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		defer resp.Body.Close()
		return decodeEnvelope(resp, out)
	}
	drain(resp)

	token, err = s.ensureFreshToken(ctx, token)
	if err != nil {
		return err
	}

	resp, err = s.send(ctx, method, path, payload, token)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// Replay already happened; give up rather than loop.
		return ErrSessionExpired
	}
	return decodeEnvelope(resp, out)
}

func (s *Session) send(ctx context.Context, method, path string, payload []byte, token string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.client.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("attendsdk: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("attendsdk: request failed: %w", err)
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
}

// Me returns the authenticated user's profile.
func (s *Session) Me(ctx context.Context) (*User, error) {
	var data struct {
		User User `json:"user"`
	}
	if err := s.doAuth(ctx, http.MethodGet, "/auth/me", nil, &data); err != nil {
		return nil, err
	}
	return &data.User, nil
}

// Logout revokes this session's refresh token and clears local state.
func (s *Session) Logout(ctx context.Context) error {
	refreshToken := s.RefreshToken()
	if refreshToken == "" {
		return nil
	}

	err := s.doAuth(ctx, http.MethodPost, "/auth/logout", map[string]string{
		"refreshToken": refreshToken,
	}, nil)

	s.mu.Lock()
	s.accessToken = ""
	s.refreshToken = ""
	s.mu.Unlock()

	return err
}

// LogoutAll revokes every session the user holds, across devices.
func (s *Session) LogoutAll(ctx context.Context) error {
	err := s.doAuth(ctx, http.MethodPost, "/auth/logout-all", nil, nil)

	s.mu.Lock()
	s.accessToken = ""
	s.refreshToken = ""
	s.mu.Unlock()

	return err
}

// CheckIn opens today's attendance record.
func (s *Session) CheckIn(ctx context.Context, notes string) (*Attendance, error) {
	var rec Attendance
	body := map[string]string{}
	if notes != "" {
		body["notes"] = notes
	}
	if err := s.doAuth(ctx, http.MethodPost, "/attendance/check-in", body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CheckOut closes today's attendance record.
func (s *Session) CheckOut(ctx context.Context) (*Attendance, error) {
	var rec Attendance
	if err := s.doAuth(ctx, http.MethodPatch, "/attendance/check-out", nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Today returns today's attendance record, if any.
func (s *Session) Today(ctx context.Context) (*Attendance, error) {
	var rec Attendance
	if err := s.doAuth(ctx, http.MethodGet, "/attendance/today", nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// AttendanceHistory lists the caller's attendance, newest first.
func (s *Session) AttendanceHistory(ctx context.Context, from, to string, page, limit int) (*AttendancePage, error) {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	setPageQuery(q, page, limit)

	var out AttendancePage
	if err := s.doAuth(ctx, http.MethodGet, withQuery("/attendance", q), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AttendanceStats aggregates one calendar month; zero month/year means the
// current one.
func (s *Session) AttendanceStats(ctx context.Context, month, year int) (*AttendanceStats, error) {
	q := url.Values{}
	if month > 0 {
		q.Set("month", strconv.Itoa(month))
	}
	if year > 0 {
		q.Set("year", strconv.Itoa(year))
	}

	var out AttendanceStats
	if err := s.doAuth(ctx, http.MethodGet, withQuery("/attendance/stats", q), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTask creates a task.
func (s *Session) CreateTask(ctx context.Context, in CreateTaskInput) (*Task, error) {
	var task Task
	if err := s.doAuth(ctx, http.MethodPost, "/tasks", in, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTask fetches one task by id.
func (s *Session) GetTask(ctx context.Context, id string) (*Task, error) {
	var task Task
	if err := s.doAuth(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask applies partial changes to a task.
func (s *Session) UpdateTask(ctx context.Context, id string, in UpdateTaskInput) (*Task, error) {
	var task Task
	if err := s.doAuth(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id), in, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask removes a task.
func (s *Session) DeleteTask(ctx context.Context, id string) error {
	return s.doAuth(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil)
}

// Tasks lists the caller's assigned tasks, most urgent first.
func (s *Session) Tasks(ctx context.Context, status, priority string, page, limit int) (*TaskPage, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if priority != "" {
		q.Set("priority", priority)
	}
	setPageQuery(q, page, limit)

	var out TaskPage
	if err := s.doAuth(ctx, http.MethodGet, withQuery("/tasks", q), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func setPageQuery(q url.Values, page, limit int) {
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
