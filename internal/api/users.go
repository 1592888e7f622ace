package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rosterhq/attendance/internal/service"
	"github.com/rosterhq/attendance/pkg/slogx"
)

type UserHandler struct {
	Users *service.UserService
}

func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	users, err := h.Users.List(ctx)
	if err != nil {
		log.Error("user list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	out := make([]userDTO, 0, len(users))
	for _, u := range users {
		out = append(out, toUserDTO(u))
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"users": out})
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// HandleSetActive flips a user's active flag. Deactivation revokes the
// user's refresh sessions server-side.
func (h *UserHandler) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.Users.SetActive(ctx, r.PathValue("id"), req.Active); err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "User not found")
		default:
			log.Error("set-active failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	message := "User activated"
	if !req.Active {
		message = "User deactivated"
	}
	writeSuccess(w, http.StatusOK, message, nil)
}
