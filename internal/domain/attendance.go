package domain

import "time"

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceHalfDay AttendanceStatus = "half_day"
	AttendanceLeave   AttendanceStatus = "leave"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceHalfDay, AttendanceLeave:
		return true
	}
	return false
}

// DateLayout is the calendar-day format used for attendance records. Days
// are stored as plain strings so the unique (user_id, date) index works
// without timezone arithmetic.
const DateLayout = "2006-01-02"

// Attendance is one user's record for one calendar day. At most one exists
// per user per day, enforced by the store.
type Attendance struct {
	ID        string
	UserID    string
	Date      string // YYYY-MM-DD
	CheckIn   time.Time
	CheckOut  *time.Time
	Status    AttendanceStatus
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AttendanceStats aggregates one user's records over a date range.
type AttendanceStats struct {
	TotalDays   int `json:"total_days"`
	PresentDays int `json:"present_days"`
	AbsentDays  int `json:"absent_days"`
	HalfDays    int `json:"half_days"`
	LeaveDays   int `json:"leave_days"`
}
