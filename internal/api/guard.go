package api

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/rosterhq/attendance/internal/domain"
	"github.com/rosterhq/attendance/internal/store"
	"github.com/rosterhq/attendance/pkg/httpx"
	"github.com/rosterhq/attendance/pkg/jwtx"
	"github.com/rosterhq/attendance/pkg/slogx"
)

type ctxKey int

const ctxKeyUser ctxKey = iota

// UserFromContext returns the authenticated user placed there by the guard.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(ctxKeyUser).(*domain.User)
	return u, ok
}

// Guard authenticates requests. Beyond verifying the token signature it
// re-reads the user row on every request, so a deactivated or deleted
// account loses access immediately instead of when its token expires.
type Guard struct {
	Tokens *jwtx.Issuer
	Store  store.Store
}

// Authenticate extracts the bearer token, verifies it, loads the user, and
// stores the identity in the request context. Every failure mode is a 401;
// the response does not distinguish why.
func (g *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := slogx.FromContext(ctx)

		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		claims, err := g.Tokens.VerifyAccess(token)
		if err != nil {
			if errors.Is(err, jwtx.ErrExpired) {
				writeError(w, http.StatusUnauthorized, "Token expired")
				return
			}
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		user, err := g.Store.Users().GetByID(ctx, claims.Subject)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				log.Error("guard user lookup failed", "error", err)
			}
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		if !user.Active {
			writeError(w, http.StatusUnauthorized, "Account deactivated")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, ctxKeyUser, user)))
	})
}

// RequireRole allows only the listed roles past. Runs after Authenticate.
func (g *Guard) RequireRole(roles ...domain.Role) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if !slices.Contains(roles, user.Role) {
				writeError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
