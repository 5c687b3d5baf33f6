package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// recordActivity tells the recovery monitor the app is in use, which holds
// off idle-time recovery.
func (h *Handlers) recordActivity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Recovery != nil {
			h.Recovery.Touch()
		}
		next.ServeHTTP(w, r)
	})
}

// corsOptions allows credentials only for explicitly listed origins
func (h *Handlers) corsOptions() cors.Options {
	opts := cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}
	if len(h.AllowedOrigins) > 0 {
		opts.AllowedOrigins = h.AllowedOrigins
		opts.AllowCredentials = true
	}
	return opts
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(cors.Handler(h.corsOptions()))
	r.Use(h.recordActivity)

	r.Get("/health", h.handleHealth)

	// WebSocket (admin live feed)
	r.With(h.Auth.RequireAuthAPI).Get("/ws", h.Hub.ServeWs)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Registration API (public)
		r.Get("/api/regions", h.handleRegions)
		r.Post("/api/register", h.handleRegister)
		r.Get("/api/registrations/{id}", h.handleGetRegistration)
		r.Get("/api/registrations/{id}/qr", h.handleRegistrationQR)

		// Auth routes (public)
		r.Post("/api/admin/login", h.handleLogin)
		r.Post("/api/admin/logout", h.handleLogout)
		r.Get("/api/admin/session", h.handleSession)

		// Admin API (protected)
		r.Group(func(r chi.Router) {
			r.Use(h.Auth.RequireAuthAPI)

			// Admins
			r.Get("/api/admin/admins", h.handleGetAdmins)
			r.Post("/api/admin/admins", h.handleCreateAdmin)
			r.Delete("/api/admin/admins/{id}", h.handleDeleteAdmin)

			// Voters
			r.Get("/api/admin/voters", h.handleGetVoters)
			r.Post("/api/admin/voters/refresh", h.handleRefresh)
			r.Get("/api/admin/voters/{id}", h.handleGetVoter)
			r.Delete("/api/admin/voters/{id}", h.handleDeleteVoter)
			r.Get("/api/admin/stats", h.handleGetStats)

			// Export
			r.Get("/api/admin/export", h.handleExport)
			r.Post("/api/admin/export/archive", h.handleArchive)

			// Recovery
			r.Get("/api/admin/recovery", h.handleRecoveryStatus)
			r.Post("/api/admin/recovery", h.handleRecover)
		})
	})

	return r
}
