package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rosterhq/attendance/internal/domain"
	"github.com/rosterhq/attendance/internal/store"
	"github.com/rosterhq/attendance/pkg/idx"
	"github.com/rosterhq/attendance/pkg/slogx"
)

var (
	ErrForbidden       = errors.New("forbidden")
	ErrAssigneeInvalid = errors.New("assignee_invalid")
	ErrTaskNotFound    = errors.New("task_not_found")
)

type TaskService struct {
	Store store.Store

	Now func() time.Time
}

func (s *TaskService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CreateTaskInput carries the caller-supplied fields for a new task.
type CreateTaskInput struct {
	Title       string
	Description string
	AssignedTo  string // empty means self
	Priority    domain.TaskPriority
	DueDate     *time.Time
}

// Create makes a new task. Employees may only assign to themselves;
// assigning to someone else requires manager or admin. The assignee must
// exist and be active.
func (s *TaskService) Create(ctx context.Context, actor *domain.User, in CreateTaskInput) (*domain.Task, error) {
	l := slogx.FromContext(ctx)
	now := s.now().UTC()

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.Priority == "" {
		in.Priority = domain.PriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, in.Priority)
	}

	assignee := in.AssignedTo
	if assignee == "" {
		assignee = actor.ID
	}
	if assignee != actor.ID && actor.Role == domain.RoleEmployee {
		return nil, ErrForbidden
	}
	if assignee != actor.ID {
		u, err := s.Store.Users().GetByID(ctx, assignee)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrAssigneeInvalid
			}
			return nil, err
		}
		if !u.Active {
			return nil, ErrAssigneeInvalid
		}
	}

	task := &domain.Task{
		ID:          idx.New().String(),
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		AssignedTo:  assignee,
		CreatedBy:   actor.ID,
		Priority:    in.Priority,
		Status:      domain.TaskTodo,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.Store.Tasks().Create(ctx, task); err != nil {
		return nil, err
	}

	l.Info("task created", "task_id", task.ID, "assigned_to", assignee, "created_by", actor.ID)
	return task, nil
}

// canView reports whether the actor may read the task.
func canView(actor *domain.User, t *domain.Task) bool {
	if actor.Role == domain.RoleManager || actor.Role == domain.RoleAdmin {
		return true
	}
	return t.AssignedTo == actor.ID || t.CreatedBy == actor.ID
}

// Get fetches one task, enforcing visibility.
func (s *TaskService) Get(ctx context.Context, actor *domain.User, id string) (*domain.Task, error) {
	t, err := s.Store.Tasks().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if !canView(actor, t) {
		return nil, ErrForbidden
	}
	return t, nil
}

// UpdateTaskInput carries the mutable fields of a task. Nil pointers leave
// the field unchanged.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	AssignedTo  *string
	Priority    *domain.TaskPriority
	Status      *domain.TaskStatus
	DueDate     *time.Time
	ClearDue    bool
}

// Update applies the changes. The same parties who can view a task can
// update it, except reassignment which requires manager or admin. Moving
// into completed stamps CompletedAt; moving out clears it.
func (s *TaskService) Update(ctx context.Context, actor *domain.User, id string, in UpdateTaskInput) (*domain.Task, error) {
	l := slogx.FromContext(ctx)
	now := s.now().UTC()

	t, err := s.Store.Tasks().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if !canView(actor, t) {
		return nil, ErrForbidden
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", ErrValidation)
		}
		t.Title = title
	}
	if in.Description != nil {
		t.Description = strings.TrimSpace(*in.Description)
	}
	if in.AssignedTo != nil && *in.AssignedTo != t.AssignedTo {
		if actor.Role == domain.RoleEmployee {
			return nil, ErrForbidden
		}
		u, err := s.Store.Users().GetByID(ctx, *in.AssignedTo)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrAssigneeInvalid
			}
			return nil, err
		}
		if !u.Active {
			return nil, ErrAssigneeInvalid
		}
		t.AssignedTo = u.ID
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, *in.Priority)
		}
		t.Priority = *in.Priority
	}
	if in.Status != nil && *in.Status != t.Status {
		if !in.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *in.Status)
		}
		if *in.Status == domain.TaskCompleted {
			t.CompletedAt = &now
		} else {
			t.CompletedAt = nil
		}
		t.Status = *in.Status
	}
	if in.ClearDue {
		t.DueDate = nil
	} else if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
	t.UpdatedAt = now

	if err := s.Store.Tasks().Update(ctx, t); err != nil {
		return nil, err
	}

	l.Info("task updated", "task_id", t.ID, "status", string(t.Status))
	return t, nil
}

// Delete removes a task. Only its creator or an admin may delete.
func (s *TaskService) Delete(ctx context.Context, actor *domain.User, id string) error {
	t, err := s.Store.Tasks().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTaskNotFound
		}
		return err
	}
	if t.CreatedBy != actor.ID && actor.Role != domain.RoleAdmin {
		return ErrForbidden
	}
	if err := s.Store.Tasks().Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrTaskNotFound
		}
		return err
	}
	return nil
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Tasks []*domain.Task
	Total int
	Page  int
	Limit int
}

// ListOwn lists the actor's assigned tasks, filtered and paginated,
// most urgent first.
func (s *TaskService) ListOwn(ctx context.Context, actor *domain.User, status domain.TaskStatus, priority domain.TaskPriority, search string, page, limit int) (*TaskPage, error) {
	return s.list(ctx, store.TaskFilter{
		AssignedTo: actor.ID,
		Status:     status,
		Priority:   priority,
		Search:     strings.TrimSpace(search),
	}, page, limit)
}

// ListAll lists tasks across users; callers must be manager or admin,
// which the router enforces.
func (s *TaskService) ListAll(ctx context.Context, assignedTo string, status domain.TaskStatus, priority domain.TaskPriority, search string, page, limit int) (*TaskPage, error) {
	return s.list(ctx, store.TaskFilter{
		AssignedTo: assignedTo,
		Status:     status,
		Priority:   priority,
		Search:     strings.TrimSpace(search),
	}, page, limit)
}

func (s *TaskService) list(ctx context.Context, f store.TaskFilter, page, limit int) (*TaskPage, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, f.Status)
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, f.Priority)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 30
	}
	f.Limit = limit
	f.Offset = (page - 1) * limit

	tasks, err := s.Store.Tasks().List(ctx, f)
	if err != nil {
		return nil, err
	}
	total, err := s.Store.Tasks().Count(ctx, store.TaskFilter{
		AssignedTo: f.AssignedTo,
		Status:     f.Status,
		Priority:   f.Priority,
		Search:     f.Search,
	})
	if err != nil {
		return nil, err
	}

	return &TaskPage{Tasks: tasks, Total: total, Page: page, Limit: limit}, nil
}
