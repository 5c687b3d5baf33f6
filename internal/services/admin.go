package services

import (
	"context"
	"net/mail"
	"strings"

	"github.com/abrezinsky/voterreg/internal/errors"
	"github.com/abrezinsky/voterreg/internal/logger"
	"github.com/abrezinsky/voterreg/internal/models"
)

// AdminStore is the part of the record store that manages admins
type AdminStore interface {
	ListAdmins(ctx context.Context) ([]models.Admin, error)
	CreateAdmin(ctx context.Context, a models.Admin) (*models.Admin, error)
	DeleteAdmin(ctx context.Context, id string) error
	AdminLogin(ctx context.Context, email, password string) (*models.Admin, error)
}

// AdminService manages dashboard operators. Failures are returned directly;
// nothing here is retried.
type AdminService struct {
	log   logger.Logger
	store AdminStore
}

// NewAdminService creates a new AdminService
func NewAdminService(log logger.Logger, store AdminStore) *AdminService {
	return &AdminService{log: log, store: store}
}

// ListAdmins returns every admin
func (s *AdminService) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	return s.store.ListAdmins(ctx)
}

// CreateAdmin validates and creates an admin
func (s *AdminService) CreateAdmin(ctx context.Context, a models.Admin) (*models.Admin, error) {
	a.ID = strings.TrimSpace(a.ID)
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))

	if a.ID == "" {
		return nil, errors.Validation("admin id is required")
	}
	if _, err := mail.ParseAddress(a.Email); err != nil {
		return nil, errors.Validationf("email %q is not valid", a.Email)
	}
	if len(a.Password) < 8 {
		return nil, errors.Validation("password must be at least 8 characters")
	}
	a.IsAdmin = true

	created, err := s.store.CreateAdmin(ctx, a)
	if err != nil {
		return nil, err
	}
	s.log.Info("Admin created", "id", created.ID, "email", logger.RedactEmail(created.Email))
	return created, nil
}

// DeleteAdmin removes an admin. The record store refuses to remove the last one.
func (s *AdminService) DeleteAdmin(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.Validation("admin id is required")
	}
	if err := s.store.DeleteAdmin(ctx, id); err != nil {
		return err
	}
	s.log.Info("Admin deleted", "id", id)
	return nil
}

// Login checks credentials with the record store
func (s *AdminService) Login(ctx context.Context, email, password string) (*models.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	admin, err := s.store.AdminLogin(ctx, email, password)
	if err != nil {
		if errors.Is(err, errors.ErrUnauthorized) {
			s.log.Info("Admin login rejected", "email", logger.RedactEmail(email))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return admin, nil
}
