// Package store defines the persistence interfaces the services depend on.
// Drivers live in subpackages; sqlite is the only one today.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rosterhq/attendance/internal/domain"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrAlreadyExists is returned when a uniqueness constraint is violated,
	// e.g. duplicate email or a second attendance record for the same day.
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root persistence handle. Repository accessors return views
// bound to the store's connection; WithTx runs a function against views
// bound to a single transaction.
type Store interface {
	Users() UserRepository
	RefreshSessions() RefreshSessionRepository
	Attendance() AttendanceRepository
	Tasks() TaskRepository

	// WithTx runs fn inside a transaction. The Tx passed to fn exposes the
	// same repositories bound to that transaction. A non-nil error from fn
	// rolls back, nil commits.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// ApplyMigrations brings the schema up to date.
	ApplyMigrations() error

	Ping(ctx context.Context) error
	Close() error
}

// Tx is the transactional view of the store.
type Tx interface {
	Users() UserRepository
	RefreshSessions() RefreshSessionRepository
	Attendance() AttendanceRepository
	Tasks() TaskRepository
}

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	SetActive(ctx context.Context, id string, active bool) error
	List(ctx context.Context) ([]*domain.User, error)
}

type RefreshSessionRepository interface {
	Create(ctx context.Context, s *domain.RefreshSession) error

	// ConsumeByHash atomically deletes the session with the given token hash
	// and returns it. ErrNotFound means the token was never stored or was
	// already consumed; the caller must treat both the same way.
	ConsumeByHash(ctx context.Context, tokenHash string) (*domain.RefreshSession, error)

	DeleteByHash(ctx context.Context, tokenHash string) error
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
	DeleteExpiredForUser(ctx context.Context, userID string, now time.Time) (int64, error)

	// DeleteExpired removes all sessions past their expiry, across users.
	// Used by the housekeeping sweep.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)

	CountForUser(ctx context.Context, userID string) (int, error)
}

// AttendanceFilter narrows attendance listings. Zero values mean "no bound".
type AttendanceFilter struct {
	From   string // YYYY-MM-DD inclusive
	To     string // YYYY-MM-DD inclusive
	Status domain.AttendanceStatus
	Limit  int
	Offset int
}

type AttendanceRepository interface {
	Create(ctx context.Context, a *domain.Attendance) error
	GetForUserByDate(ctx context.Context, userID, date string) (*domain.Attendance, error)
	Update(ctx context.Context, a *domain.Attendance) error
	ListForUser(ctx context.Context, userID string, f AttendanceFilter) ([]*domain.Attendance, error)
	CountForUser(ctx context.Context, userID string, f AttendanceFilter) (int, error)
	StatsForUser(ctx context.Context, userID string, from, to string) (*domain.AttendanceStats, error)
	ListAll(ctx context.Context, f AttendanceFilter) ([]*domain.Attendance, error)
}

// TaskFilter narrows task listings. Zero values mean "no bound".
type TaskFilter struct {
	AssignedTo string
	Status     domain.TaskStatus
	Priority   domain.TaskPriority
	Search     string // substring match on title or description
	Limit      int
	Offset     int
}

type TaskRepository interface {
	Create(ctx context.Context, t *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	Update(ctx context.Context, t *domain.Task) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f TaskFilter) ([]*domain.Task, error)
	Count(ctx context.Context, f TaskFilter) (int, error)
}
