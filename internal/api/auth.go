package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rosterhq/attendance/internal/domain"
	"github.com/rosterhq/attendance/internal/service"
	"github.com/rosterhq/attendance/pkg/slogx"
)

type AuthHandler struct {
	Sessions *service.SessionService
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
	LogoutAll    bool   `json:"logoutAll,omitempty"`
}

type tokenPairDTO struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// authResponse is the data payload for signup and login.
type authResponse struct {
	User   userDTO      `json:"user"`
	Tokens tokenPairDTO `json:"tokens"`
}

func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.Sessions.Signup(ctx, req.Name, req.Email, req.Password, domain.Role(req.Role))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrDuplicateEmail):
			writeError(w, http.StatusConflict, "Email already registered")
		default:
			log.Error("signup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeSuccess(w, http.StatusCreated, "User registered successfully", authResponse{
		User:   toUserDTO(res.User),
		Tokens: tokenPairDTO{AccessToken: res.Tokens.AccessToken, RefreshToken: res.Tokens.RefreshToken},
	})
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.Sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
		case errors.Is(err, service.ErrAccountDeactivated):
			writeError(w, http.StatusUnauthorized, "Account deactivated")
		default:
			log.Error("login failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeSuccess(w, http.StatusOK, "Login successful", authResponse{
		User:   toUserDTO(res.User),
		Tokens: tokenPairDTO{AccessToken: res.Tokens.AccessToken, RefreshToken: res.Tokens.RefreshToken},
	})
}

func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Refresh token required")
		return
	}

	pair, err := h.Sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRefresh), errors.Is(err, service.ErrAccountDeactivated):
			writeError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
		default:
			log.Error("refresh failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeSuccess(w, http.StatusOK, "Token refreshed", map[string]any{
		"tokens": tokenPairDTO{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken},
	})
}

// HandleLogout revokes sessions. With a refreshToken it revokes that one
// session; with logoutAll it revokes every session the user holds. An
// empty body is a no-op success so clients can always log out safely.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req logoutRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	if req.LogoutAll {
		n, err := h.Sessions.LogoutAll(ctx, user.ID)
		if err != nil {
			log.Error("logout-all failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		writeSuccess(w, http.StatusOK, "All sessions revoked", map[string]any{"revokedSessions": n})
		return
	}

	if req.RefreshToken != "" {
		if err := h.Sessions.Logout(ctx, req.RefreshToken); err != nil {
			log.Error("logout failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	writeSuccess(w, http.StatusOK, "Logged out successfully", nil)
}

func (h *AuthHandler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	n, err := h.Sessions.LogoutAll(ctx, user.ID)
	if err != nil {
		log.Error("logout-all failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeSuccess(w, http.StatusOK, "All sessions revoked", map[string]any{"revokedSessions": n})
}

// HandleMe returns the authenticated user's profile.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"user": toUserDTO(user)})
}
