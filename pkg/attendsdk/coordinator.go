package attendsdk

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

type refreshResult struct {
	token string
	err   error
}

// Session is an authenticated handle on the service. The zero value is not
// usable; obtain one from Client.Signup, Client.Login, or
// Client.NewSessionFromTokens.
//
// Refresh is single-flight: when several requests hit a 401 at once, the
// first caller performs the one refresh call and every other caller parks
// on a waiter channel until it settles. A failed refresh clears the local
// token state entirely, so every parked and subsequent call fails fast
// with ErrSessionExpired.
type Session struct {
	client *Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string

	refreshing bool
	waiters    []chan refreshResult
}

func newSession(client *Client, data authData) *Session {
	return &Session{
		client:       client,
		accessToken:  data.Tokens.AccessToken,
		refreshToken: data.Tokens.RefreshToken,
	}
}

// AccessToken returns the current access token.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token, e.g. for persisting the
// session across restarts.
func (s *Session) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshToken
}

// ensureFreshToken returns an access token newer than stale, refreshing
// through the single-flight path when needed.
func (s *Session) ensureFreshToken(ctx context.Context, stale string) (string, error) {
	s.mu.Lock()

	// Another caller may have rotated the pair since this request was
	// sent; its token is already fresh.
	if s.accessToken != "" && s.accessToken != stale {
		token := s.accessToken
		s.mu.Unlock()
		return token, nil
	}

	if s.refreshing {
		ch := make(chan refreshResult, 1)
		s.waiters = append(s.waiters, ch)
		s.mu.Unlock()

		select {
		case res := <-ch:
			return res.token, res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	s.refreshing = true
	refreshToken := s.refreshToken
	s.mu.Unlock()

	if refreshToken == "" {
		s.settle(refreshResult{err: ErrSessionExpired})
		return "", ErrSessionExpired
	}

	var data struct {
		Tokens tokenPair `json:"tokens"`
	}
	err := s.client.postJSON(ctx, "/auth/refresh", map[string]string{
		"refreshToken": refreshToken,
	}, &data)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			err = ErrSessionExpired
		}
		s.settle(refreshResult{err: err})
		return "", err
	}

	// Store the pair before waking anyone so no caller can observe the
	// stale tokens with the coordinator idle.
	s.mu.Lock()
	s.accessToken = data.Tokens.AccessToken
	s.refreshToken = data.Tokens.RefreshToken
	s.mu.Unlock()

	s.settle(refreshResult{token: data.Tokens.AccessToken})

	return data.Tokens.AccessToken, nil
}

// settle resolves every parked waiter and resets the coordinator. On
// failure the stored pair is wiped so the session cannot be reused.
func (s *Session) settle(res refreshResult) {
	s.mu.Lock()
	if res.err != nil {
		s.accessToken = ""
		s.refreshToken = ""
	}
	waiters := s.waiters
	s.waiters = nil
	s.refreshing = false
	s.mu.Unlock()

	for _, ch := range waiters {
		ch <- res
	}
}
