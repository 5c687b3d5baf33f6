package handlers

import (
	"github.com/abrezinsky/voterreg/internal/auth"
	"github.com/abrezinsky/voterreg/internal/services"
	"github.com/abrezinsky/voterreg/internal/websocket"
)

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Submission services.SubmissionServicer
	Recovery   services.RecoveryServicer
	Dashboard  services.DashboardServicer
	Admins     services.AdminServicer
	Auth       *auth.Auth
	Hub        *websocket.Hub
	Log        HTTPLogger
	// AllowedOrigins feeds the CORS policy of the public API; empty allows any origin
	AllowedOrigins []string
}

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
}

// New creates a new Handlers instance with all dependencies
func New(
	submission services.SubmissionServicer,
	recovery services.RecoveryServicer,
	dashboard services.DashboardServicer,
	admins services.AdminServicer,
	adminAuth *auth.Auth,
	hub *websocket.Hub,
	log HTTPLogger,
) *Handlers {
	return &Handlers{
		Submission: submission,
		Recovery:   recovery,
		Dashboard:  dashboard,
		Admins:     admins,
		Auth:       adminAuth,
		Hub:        hub,
		Log:        log,
	}
}

// NoopHTTPLogger is a test logger that always returns false for HTTP logging
type NoopHTTPLogger struct{}

func (NoopHTTPLogger) IsHTTPLoggingEnabled() bool { return false }
