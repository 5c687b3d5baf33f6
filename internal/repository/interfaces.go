package repository

import (
	"context"

	"github.com/abrezinsky/voterreg/internal/models"
)

// VoterRepository defines voter data operations
type VoterRepository interface {
	// ListVoters returns every voter, oldest first
	ListVoters(ctx context.Context) ([]models.Voter, error)
	GetVoter(ctx context.Context, id string) (*models.Voter, error)
	// InsertVoter stores v and returns it with the server-assigned created_at
	InsertVoter(ctx context.Context, v models.Voter) (*models.Voter, error)
	DeleteVoter(ctx context.Context, id string) error
}

// AdminRepository defines admin data operations. Passwords go in as
// plaintext and are only ever stored hashed.
type AdminRepository interface {
	ListAdmins(ctx context.Context) ([]models.Admin, error)
	CreateAdmin(ctx context.Context, a models.Admin) (*models.Admin, error)
	DeleteAdmin(ctx context.Context, id string) error
	// AddInitialAdmins seeds the table only if it is empty and reports how many were added
	AddInitialAdmins(ctx context.Context, admins []models.Admin) (int, error)
	AdminLogin(ctx context.Context, email, password string) (*models.Admin, error)
}

// FullRepository combines all repository interfaces
type FullRepository interface {
	VoterRepository
	AdminRepository
	Ping(ctx context.Context) error
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
