package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/roadsigns/internal/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the local
// tracker API under /api.
//
// Routes:
//
//	POST   /api/register    → authHandler.Register
//	POST   /api/login       → authHandler.Login
//	POST   /api/logout      → authHandler.Logout
//	GET    /api/session     → authHandler.Session
//	GET    /api/catalog     → Catalog
//	GET    /api/signs       → signHandler.List     (session required)
//	POST   /api/signs       → signHandler.Capture  (session required)
//	DELETE /api/signs/{id}  → signHandler.Remove   (session required)
//	GET    /api/markers     → signHandler.Markers
//
// Middleware chain (applied in order):
//  1. AllowContentType("application/json"), rejecting non-JSON bodies
//  2. WithRequestLogging(logger)
//  3. RequireSession on the sign routes
func NewRouter(
	authHandler *AuthHandler,
	signHandler *SignHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.WithRequestLogging(logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/session", authHandler.Session)
		r.Get("/catalog", Catalog)
		r.Get("/markers", signHandler.Markers)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(authHandler.AuthService.Session))
			r.Get("/signs", signHandler.List)
			r.Post("/signs", signHandler.Capture)
			r.Delete("/signs/{id}", signHandler.Remove)
		})
	})

	return r
}
