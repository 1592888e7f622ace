package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rosterhq/attendance/internal/domain"
	"github.com/rosterhq/attendance/internal/service"
	"github.com/rosterhq/attendance/internal/store"
	"github.com/rosterhq/attendance/pkg/httpx"
	"github.com/rosterhq/attendance/pkg/jwtx"
	"github.com/rosterhq/attendance/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	guard        *Guard
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store             store.Store
	SessionService    *service.SessionService
	AttendanceService *service.AttendanceService
	TaskService       *service.TaskService
	UserService       *service.UserService
}

func NewRouter(tokens *jwtx.Issuer, buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		guard:        &Guard{Tokens: tokens, Store: st},
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerAttendance()
	r.registerTasks()
	r.registerUsers()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Sessions: r.SessionService}

	// Credential endpoints get the strict limit to slow brute force.
	r.Mux.Handle("POST /auth/signup",
		httpx.Chain(http.HandlerFunc(h.HandleSignup),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			r.guard.Authenticate,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /auth/logout-all",
		httpx.Chain(http.HandlerFunc(h.HandleLogoutAll),
			r.guard.Authenticate,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			r.guard.Authenticate,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerAttendance() {
	h := &AttendanceHandler{Attendance: r.AttendanceService}

	r.Mux.Handle("POST /attendance/check-in",
		httpx.Chain(http.HandlerFunc(h.HandleCheckIn),
			r.guard.Authenticate,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("PATCH /attendance/check-out",
		httpx.Chain(http.HandlerFunc(h.HandleCheckOut),
			r.guard.Authenticate,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /attendance/today",
		httpx.Chain(http.HandlerFunc(h.HandleToday),
			r.guard.Authenticate,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /attendance",
		httpx.Chain(http.HandlerFunc(h.HandleHistory),
			r.guard.Authenticate,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /attendance/stats",
		httpx.Chain(http.HandlerFunc(h.HandleStats),
			r.guard.Authenticate,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /attendance/all",
		httpx.Chain(http.HandlerFunc(h.HandleListAll),
			r.guard.Authenticate,
			r.guard.RequireRole(domain.RoleManager, domain.RoleAdmin),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerTasks() {
	h := &TaskHandler{Tasks: r.TaskService}

	r.Mux.Handle("POST /tasks",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			r.guard.Authenticate,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /tasks",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			r.guard.Authenticate,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /tasks/all",
		httpx.Chain(http.HandlerFunc(h.HandleListAll),
			r.guard.Authenticate,
			r.guard.RequireRole(domain.RoleManager, domain.RoleAdmin),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /tasks/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			r.guard.Authenticate,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("PATCH /tasks/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate),
			r.guard.Authenticate,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /tasks/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleDelete),
			r.guard.Authenticate,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UserHandler{Users: r.UserService}

	r.Mux.Handle("GET /users",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			r.guard.Authenticate,
			r.guard.RequireRole(domain.RoleManager, domain.RoleAdmin),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("PATCH /users/{id}/active",
		httpx.Chain(http.HandlerFunc(h.HandleSetActive),
			r.guard.Authenticate,
			r.guard.RequireRole(domain.RoleAdmin),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
