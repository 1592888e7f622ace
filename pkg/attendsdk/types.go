package attendsdk

import (
	"encoding/json"
	"time"
)

// envelope mirrors the service's response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type authData struct {
	User   User      `json:"user"`
	Tokens tokenPair `json:"tokens"`
}

type Attendance struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Date      string     `json:"date"`
	CheckIn   time.Time  `json:"checkIn"`
	CheckOut  *time.Time `json:"checkOut,omitempty"`
	Status    string     `json:"status"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type AttendanceStats struct {
	TotalDays   int `json:"total_days"`
	PresentDays int `json:"present_days"`
	AbsentDays  int `json:"absent_days"`
	HalfDays    int `json:"half_days"`
	LeaveDays   int `json:"leave_days"`
}

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AssignedTo  string     `json:"assignedTo"`
	CreatedBy   string     `json:"createdBy"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Overdue     bool       `json:"overdue"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

type AttendancePage struct {
	Records    []Attendance `json:"records"`
	Pagination Pagination   `json:"pagination"`
}

type TaskPage struct {
	Tasks      []Task     `json:"tasks"`
	Pagination Pagination `json:"pagination"`
}

// CreateTaskInput are the fields for a new task. AssignedTo empty means
// self-assignment.
type CreateTaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AssignedTo  string     `json:"assignedTo,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// UpdateTaskInput holds partial task changes; nil fields are untouched.
type UpdateTaskInput struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	AssignedTo  *string    `json:"assignedTo,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	Status      *string    `json:"status,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}
