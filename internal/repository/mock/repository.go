package mock

import (
	"context"

	"github.com/abrezinsky/voterreg/internal/models"
	"github.com/abrezinsky/voterreg/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
// This provides a flexible way to test error paths without complex database manipulation.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.InsertVoterError = errors.New("database error")
//	api := storeapi.New(log, mockRepo, hub, "key")
//	// POST /rest/voters now answers 500
type Repository struct {
	repository.FullRepository

	// ===== Voter Errors =====
	ListVotersError  error
	GetVoterError    error
	InsertVoterError error
	DeleteVoterError error

	// ===== Admin Errors =====
	ListAdminsError       error
	CreateAdminError      error
	DeleteAdminError      error
	AddInitialAdminsError error
	AdminLoginError       error

	PingError error
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{FullRepository: real}
}

// ===== Voter Methods =====

func (m *Repository) ListVoters(ctx context.Context) ([]models.Voter, error) {
	if m.ListVotersError != nil {
		return nil, m.ListVotersError
	}
	return m.FullRepository.ListVoters(ctx)
}

func (m *Repository) GetVoter(ctx context.Context, id string) (*models.Voter, error) {
	if m.GetVoterError != nil {
		return nil, m.GetVoterError
	}
	return m.FullRepository.GetVoter(ctx, id)
}

func (m *Repository) InsertVoter(ctx context.Context, v models.Voter) (*models.Voter, error) {
	if m.InsertVoterError != nil {
		return nil, m.InsertVoterError
	}
	return m.FullRepository.InsertVoter(ctx, v)
}

func (m *Repository) DeleteVoter(ctx context.Context, id string) error {
	if m.DeleteVoterError != nil {
		return m.DeleteVoterError
	}
	return m.FullRepository.DeleteVoter(ctx, id)
}

// ===== Admin Methods =====

func (m *Repository) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	if m.ListAdminsError != nil {
		return nil, m.ListAdminsError
	}
	return m.FullRepository.ListAdmins(ctx)
}

func (m *Repository) CreateAdmin(ctx context.Context, a models.Admin) (*models.Admin, error) {
	if m.CreateAdminError != nil {
		return nil, m.CreateAdminError
	}
	return m.FullRepository.CreateAdmin(ctx, a)
}

func (m *Repository) DeleteAdmin(ctx context.Context, id string) error {
	if m.DeleteAdminError != nil {
		return m.DeleteAdminError
	}
	return m.FullRepository.DeleteAdmin(ctx, id)
}

func (m *Repository) AddInitialAdmins(ctx context.Context, admins []models.Admin) (int, error) {
	if m.AddInitialAdminsError != nil {
		return 0, m.AddInitialAdminsError
	}
	return m.FullRepository.AddInitialAdmins(ctx, admins)
}

func (m *Repository) AdminLogin(ctx context.Context, email, password string) (*models.Admin, error) {
	if m.AdminLoginError != nil {
		return nil, m.AdminLoginError
	}
	return m.FullRepository.AdminLogin(ctx, email, password)
}

func (m *Repository) Ping(ctx context.Context) error {
	if m.PingError != nil {
		return m.PingError
	}
	return m.FullRepository.Ping(ctx)
}

var _ repository.FullRepository = (*Repository)(nil)
