package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rosterhq/attendance/internal/domain"
	"github.com/rosterhq/attendance/internal/service"
	"github.com/rosterhq/attendance/pkg/slogx"
)

type TaskHandler struct {
	Tasks *service.TaskService
}

type createTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AssignedTo  string     `json:"assignedTo,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

type updateTaskRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	AssignedTo  *string    `json:"assignedTo,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	Status      *string    `json:"status,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	ClearDue    bool       `json:"clearDueDate,omitempty"`
}

// writeTaskError maps the task service sentinels onto HTTP statuses.
func writeTaskError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "Insufficient permissions")
	case errors.Is(err, service.ErrAssigneeInvalid):
		writeError(w, http.StatusBadRequest, "Assignee does not exist or is inactive")
	case errors.Is(err, service.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "Task not found")
	default:
		return false
	}
	return true
}

func (h *TaskHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := h.Tasks.Create(ctx, user, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		Priority:    domain.TaskPriority(req.Priority),
		DueDate:     req.DueDate,
	})
	if err != nil {
		if !writeTaskError(w, err) {
			log.Error("task create failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeSuccess(w, http.StatusCreated, "Task created", toTaskDTO(task))
}

func (h *TaskHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	task, err := h.Tasks.Get(ctx, user, r.PathValue("id"))
	if err != nil {
		if !writeTaskError(w, err) {
			log.Error("task get failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeSuccess(w, http.StatusOK, "", toTaskDTO(task))
}

func (h *TaskHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in := service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
		ClearDue:    req.ClearDue,
	}
	if req.Priority != nil {
		p := domain.TaskPriority(*req.Priority)
		in.Priority = &p
	}
	if req.Status != nil {
		s := domain.TaskStatus(*req.Status)
		in.Status = &s
	}

	task, err := h.Tasks.Update(ctx, user, r.PathValue("id"), in)
	if err != nil {
		if !writeTaskError(w, err) {
			log.Error("task update failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeSuccess(w, http.StatusOK, "Task updated", toTaskDTO(task))
}

func (h *TaskHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.Tasks.Delete(ctx, user, r.PathValue("id")); err != nil {
		if !writeTaskError(w, err) {
			log.Error("task delete failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeSuccess(w, http.StatusOK, "Task deleted", nil)
}

func (h *TaskHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	q := r.URL.Query()
	page, err := h.Tasks.ListOwn(ctx, user,
		domain.TaskStatus(q.Get("status")), domain.TaskPriority(q.Get("priority")),
		q.Get("search"), queryInt(q.Get("page")), queryInt(q.Get("limit")))
	if err != nil {
		if !writeTaskError(w, err) {
			log.Error("task list failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeSuccess(w, http.StatusOK, "", map[string]any{
		"tasks":      toTaskDTOs(page.Tasks),
		"pagination": pagination{Page: page.Page, Limit: page.Limit, Total: page.Total},
	})
}

// HandleListAll serves the manager/admin view across users.
func (h *TaskHandler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	q := r.URL.Query()
	page, err := h.Tasks.ListAll(ctx, q.Get("userId"),
		domain.TaskStatus(q.Get("status")), domain.TaskPriority(q.Get("priority")),
		q.Get("search"), queryInt(q.Get("page")), queryInt(q.Get("limit")))
	if err != nil {
		if !writeTaskError(w, err) {
			log.Error("task list-all failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeSuccess(w, http.StatusOK, "", map[string]any{
		"tasks":      toTaskDTOs(page.Tasks),
		"pagination": pagination{Page: page.Page, Limit: page.Limit, Total: page.Total},
	})
}
