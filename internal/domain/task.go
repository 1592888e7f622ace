package domain

import "time"

type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskCompleted, TaskCancelled:
		return true
	}
	return false
}

type Task struct {
	ID          string
	Title       string
	Description string
	AssignedTo  string // user id
	CreatedBy   string // user id
	Priority    TaskPriority
	Status      TaskStatus
	DueDate     *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Overdue reports whether the task is past its due date and still open.
func (t Task) Overdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == TaskCompleted || t.Status == TaskCancelled {
		return false
	}
	return now.After(*t.DueDate)
}
