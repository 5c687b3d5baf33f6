package handlers

import (
	"net/http"

	"github.com/abrezinsky/voterreg/internal/filter"
	"github.com/abrezinsky/voterreg/internal/models"
)

// RegisterRequest is the public registration form
type RegisterRequest struct {
	FullName      string        `json:"full_name"`
	Email         string        `json:"email"`
	DateOfBirth   string        `json:"date_of_birth"`
	Gender        models.Gender `json:"gender"`
	Organization  string        `json:"organization"`
	Region        string        `json:"region"`
	Constituency  string        `json:"constituency"`
	IDType        models.IDType `json:"id_type"`
	IDNumber      string        `json:"id_number"`
	AgreedToTerms bool          `json:"agreed_to_terms"`
}

// Voter converts the form into a registration. Id and created_at are
// always assigned server side.
func (r RegisterRequest) Voter() models.Voter {
	return models.Voter{
		FullName:      r.FullName,
		Email:         r.Email,
		DateOfBirth:   r.DateOfBirth,
		Gender:        r.Gender,
		Organization:  r.Organization,
		Region:        r.Region,
		Constituency:  r.Constituency,
		IDType:        r.IDType,
		IDNumber:      r.IDNumber,
		AgreedToTerms: r.AgreedToTerms,
	}
}

// LoginRequest represents an admin login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminCreateRequest represents a request to add an admin
type AdminCreateRequest struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// filterFromQuery reads a filter state from query parameters named after
// the filter fields.
func filterFromQuery(r *http.Request) filter.State {
	var s filter.State
	q := r.URL.Query()
	for _, field := range filter.Fields {
		if v := q.Get(field); v != "" {
			s.Set(field, v)
		}
	}
	return s
}
