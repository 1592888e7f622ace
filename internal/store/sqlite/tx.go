package sqlite

import (
	"database/sql"

	"github.com/rosterhq/attendance/internal/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Users() store.UserRepository                     { return &usersRepo{db: t.tx} }
func (t *txStore) RefreshSessions() store.RefreshSessionRepository { return &refreshSessionsRepo{db: t.tx} }
func (t *txStore) Attendance() store.AttendanceRepository          { return &attendanceRepo{db: t.tx} }
func (t *txStore) Tasks() store.TaskRepository                     { return &tasksRepo{db: t.tx} }
