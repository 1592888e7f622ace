// Package api is the HTTP surface: handlers, the access guard, and the
// router. Every response uses the same envelope so clients can branch on
// the success flag alone.
package api

import (
	"net/http"
	"time"

	"github.com/rosterhq/attendance/internal/domain"
	"github.com/rosterhq/attendance/pkg/httpx"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	httpx.WriteJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	httpx.WriteJSON(w, status, envelope{Success: false, Message: message})
}

// userDTO is the wire shape of a user; the password hash never leaves the
// server.
type userDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserDTO(u *domain.User) userDTO {
	return userDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role.String(),
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}

type attendanceDTO struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Date      string     `json:"date"`
	CheckIn   time.Time  `json:"checkIn"`
	CheckOut  *time.Time `json:"checkOut,omitempty"`
	Status    string     `json:"status"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func toAttendanceDTO(a *domain.Attendance) attendanceDTO {
	return attendanceDTO{
		ID:        a.ID,
		UserID:    a.UserID,
		Date:      a.Date,
		CheckIn:   a.CheckIn,
		CheckOut:  a.CheckOut,
		Status:    string(a.Status),
		Notes:     a.Notes,
		CreatedAt: a.CreatedAt,
	}
}

func toAttendanceDTOs(records []*domain.Attendance) []attendanceDTO {
	out := make([]attendanceDTO, 0, len(records))
	for _, a := range records {
		out = append(out, toAttendanceDTO(a))
	}
	return out
}

type taskDTO struct {
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

func toTaskDTO(t *domain.Task) taskDTO {
	return taskDTO{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		AssignedTo:  t.AssignedTo,
		CreatedBy:   t.CreatedBy,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		DueDate:     t.DueDate,
		CompletedAt: t.CompletedAt,
		Overdue:     t.Overdue(time.Now().UTC()),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toTaskDTOs(tasks []*domain.Task) []taskDTO {
	out := make([]taskDTO, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskDTO(t))
	}
	return out
}

// pagination is the shared page descriptor for list responses.
type pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}
