package api

import (
	"context"
	"net/http"
	"time"

	"github.com/felixgeelhaar/solvehelper/internal/api/handlers"
	"github.com/felixgeelhaar/solvehelper/internal/api/middleware"
)

// requestTimeout bounds a request; LLM calls are the slowest path.
const requestTimeout = 2 * time.Minute

// Router wraps the HTTP multiplexer with middleware and handlers
type Router struct {
	mux         *http.ServeMux
	app         *App
	auth        *handlers.AuthHandler
	problems    *handlers.ProblemHandler
	practice    *handlers.PracticeHandler
	chats       *handlers.ChatHandler
	progress    *handlers.ProgressHandler
	requireAuth func(http.Handler) http.Handler
	expensive   func(http.Handler) http.Handler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(app *App) http.Handler {
	rl := middleware.DefaultRateLimitConfig()
	r := &Router{
		mux:         http.NewServeMux(),
		app:         app,
		auth:        handlers.NewAuthHandler(app.Auth, app.Progress),
		problems:    handlers.NewProblemHandler(app.Catalog, app.Hints),
		practice:    handlers.NewPracticeHandler(app.Practice),
		chats:       handlers.NewChatHandler(app.Chat),
		progress:    handlers.NewProgressHandler(app.Recommend, app.Progress),
		requireAuth: middleware.Auth(app.Tokens),
		expensive:   middleware.ExpensiveRateLimitMiddleware(rl),
	}

	r.registerRoutes()
	return r.buildMiddlewareChain(r.mux)
}

func (r *Router) registerRoutes() {
	r.mux.HandleFunc("GET /health", r.handleHealth)
	r.mux.HandleFunc("GET /ready", r.handleReady)

	// Auth (no token required)
	r.mux.HandleFunc("POST /api/v1/auth/register", r.auth.Register)
	r.mux.HandleFunc("POST /api/v1/auth/login", r.auth.Login)

	// Account
	r.private("GET /api/v1/me", r.auth.Me)
	r.private("PUT /api/v1/me", r.auth.UpdateMe)
	r.private("POST /api/v1/me/sync", r.auth.Sync)

	// Problems and contests
	r.private("GET /api/v1/problems", r.problems.List)
	r.private("GET /api/v1/problems/{id}", r.problems.Get)
	r.costly("POST /api/v1/problems/{id}/translate", r.problems.Translate)
	r.costly("POST /api/v1/problems/{id}/hints", r.problems.Hints)
	r.private("GET /api/v1/contests", r.problems.Contests)
	r.private("GET /api/v1/contests/{id}/problems", r.problems.ContestProblems)

	// Practice sessions
	r.private("POST /api/v1/practice", r.practice.Start)
	r.private("GET /api/v1/practice", r.practice.List)
	r.private("GET /api/v1/practice/{id}", r.practice.Get)
	r.private("PUT /api/v1/practice/{id}", r.practice.Save)
	r.costly("POST /api/v1/practice/{id}/hints", r.practice.RevealHint)
	r.private("POST /api/v1/practice/{id}/check", r.practice.Check)
	r.private("POST /api/v1/practice/{id}/solved", r.practice.MarkSolved)

	// Chats
	r.private("POST /api/v1/chats", r.chats.Create)
	r.private("GET /api/v1/chats", r.chats.List)
	r.private("GET /api/v1/chats/{id}", r.chats.Get)
	r.private("DELETE /api/v1/chats/{id}", r.chats.Delete)
	r.costly("POST /api/v1/chats/{id}/messages", r.chats.Send)

	// Recommendations and progress
	r.private("GET /api/v1/recommendations", r.progress.Recommendations)
	r.private("GET /api/v1/reviews", r.progress.Reviews)
	r.private("GET /api/v1/progress", r.progress.Progress)
}

// private registers a route that requires a bearer token.
func (r *Router) private(pattern string, h http.HandlerFunc) {
	r.mux.Handle(pattern, r.requireAuth(h))
}

// costly registers an authenticated route that may call the LLM.
func (r *Router) costly(pattern string, h http.HandlerFunc) {
	r.mux.Handle(pattern, r.requireAuth(r.expensive(h)))
}

func (r *Router) buildMiddlewareChain(handler http.Handler) http.Handler {
	// Applied in reverse order: the last wrapper runs first.
	handler = middleware.Timeout(requestTimeout)(handler)
	handler = middleware.Recovery(handler)
	handler = middleware.Logger(handler)

	if !r.app.Config.Debug {
		handler = middleware.RateLimitMiddleware(middleware.DefaultRateLimitConfig())(handler)
	}

	handler = middleware.RequestID(handler)
	handler = middleware.CORS(r.app.Config.CORSOrigins)(handler)
	return handler
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	handlers.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (r *Router) handleReady(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := make(map[string]string, len(r.app.checks))
	for name, check := range r.app.checks {
		if err := check(ctx); err != nil {
			checks[name] = "unhealthy"
			status, code = "not ready", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "healthy"
	}

	handlers.WriteJSON(w, code, map[string]any{"status": status, "checks": checks})
}
