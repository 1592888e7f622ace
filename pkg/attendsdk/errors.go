package attendsdk

import (
	"errors"
	"fmt"
)

// ErrSessionExpired means the session cannot be recovered: the refresh
// token was rejected (or a replayed request failed again) and the local
// state has been cleared. The caller must log in again.
var ErrSessionExpired = errors.New("attendsdk: session expired, login required")

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("attendsdk: %d %s", e.StatusCode, e.Message)
}
