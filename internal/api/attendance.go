package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rosterhq/attendance/internal/service"
	"github.com/rosterhq/attendance/pkg/slogx"
)

type AttendanceHandler struct {
	Attendance *service.AttendanceService
}

type checkInRequest struct {
	Notes string `json:"notes,omitempty"`
}

func (h *AttendanceHandler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req checkInRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	rec, err := h.Attendance.CheckIn(ctx, user.ID, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyCheckedIn):
			writeError(w, http.StatusConflict, "Already checked in today")
		default:
			log.Error("check-in failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeSuccess(w, http.StatusCreated, "Checked in", toAttendanceDTO(rec))
}

func (h *AttendanceHandler) HandleCheckOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	rec, err := h.Attendance.CheckOut(ctx, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotCheckedIn):
			writeError(w, http.StatusBadRequest, "No check-in found for today")
		case errors.Is(err, service.ErrAlreadyCheckedOut):
			writeError(w, http.StatusConflict, "Already checked out today")
		default:
			log.Error("check-out failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeSuccess(w, http.StatusOK, "Checked out", toAttendanceDTO(rec))
}

func (h *AttendanceHandler) HandleToday(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	rec, err := h.Attendance.Today(ctx, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			writeError(w, http.StatusNotFound, "No attendance record for today")
		default:
			log.Error("today lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeSuccess(w, http.StatusOK, "", toAttendanceDTO(rec))
}

func (h *AttendanceHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	q := r.URL.Query()
	page, err := h.Attendance.History(ctx, user.ID,
		q.Get("from"), q.Get("to"), queryInt(q.Get("page")), queryInt(q.Get("limit")))
	if err != nil {
		log.Error("history failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeSuccess(w, http.StatusOK, "", map[string]any{
		"records":    toAttendanceDTOs(page.Records),
		"pagination": pagination{Page: page.Page, Limit: page.Limit, Total: page.Total},
	})
}

func (h *AttendanceHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	q := r.URL.Query()
	stats, err := h.Attendance.Stats(ctx, user.ID, queryInt(q.Get("month")), queryInt(q.Get("year")))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Error("stats failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeSuccess(w, http.StatusOK, "", stats)
}

// HandleListAll serves the manager/admin view across users.
func (h *AttendanceHandler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	q := r.URL.Query()
	page, err := h.Attendance.ListAll(ctx, q.Get("date"), queryInt(q.Get("page")), queryInt(q.Get("limit")))
	if err != nil {
		log.Error("list-all failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeSuccess(w, http.StatusOK, "", map[string]any{
		"records":    toAttendanceDTOs(page.Records),
		"pagination": pagination{Page: page.Page, Limit: page.Limit, Total: page.Total},
	})
}

func queryInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
