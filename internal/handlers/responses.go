package handlers

import (
	"time"

	"github.com/abrezinsky/voterreg/internal/auth"
	"github.com/abrezinsky/voterreg/internal/models"
	"github.com/abrezinsky/voterreg/internal/services"
)

// Registration outcomes
const (
	StatusRegistered   = "registered"
	StatusSavedLocally = "saved_locally"
)

// RegisterResponse is the response for a registration. A saved_locally
// status means the record store was unreachable and the registration waits
// in the backup ledger under ID.
type RegisterResponse struct {
	Status   string        `json:"status"`
	ID       string        `json:"id"`
	Message  string        `json:"message,omitempty"`
	Attempts int           `json:"attempts,omitempty"`
	Voter    *models.Voter `json:"voter,omitempty"`
}

func savedLocally(err *services.SubmissionError) RegisterResponse {
	return RegisterResponse{
		Status:   StatusSavedLocally,
		ID:       err.BackupID,
		Message:  err.Error(),
		Attempts: err.Attempts,
	}
}

// RegistrationStatusResponse is what a registrant sees when confirming a
// registration. It carries no personal details.
type RegistrationStatusResponse struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	Region    string    `json:"region"`
}

func registrationStatus(reg *services.Registration) RegistrationStatusResponse {
	status := StatusSavedLocally
	if reg.Stored {
		status = StatusRegistered
	}
	return RegistrationStatusResponse{
		ID:        reg.Voter.ID,
		Status:    status,
		CreatedAt: reg.ReceivedAt,
		Region:    reg.Voter.Region,
	}
}

// SessionResponse describes the current admin session
type SessionResponse struct {
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
	Expires   time.Time `json:"expires"`
}

func sessionResponse(s auth.Session) SessionResponse {
	return SessionResponse{Email: s.Email, Timestamp: s.Timestamp, Expires: s.Expires}
}

// RegionsResponse is the static region catalogue
type RegionsResponse struct {
	Regions        []string            `json:"regions"`
	Constituencies map[string][]string `json:"constituencies"`
}

// ArchiveResponse is the response for an export archive upload
type ArchiveResponse struct {
	Key string `json:"key"`
}

// HealthResponse is the response for health checks
type HealthResponse struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
}
