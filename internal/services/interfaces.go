package services

import (
	"context"
	"io"

	"github.com/abrezinsky/voterreg/internal/aggregate"
	"github.com/abrezinsky/voterreg/internal/filter"
	"github.com/abrezinsky/voterreg/internal/models"
)

// SubmissionServicer defines the interface for public registration
type SubmissionServicer interface {
	Submit(ctx context.Context, v models.Voter) (*models.Voter, error)
	Lookup(ctx context.Context, id string) (*Registration, error)
	ConfirmationQR(ctx context.Context, id string) ([]byte, error)
}

// RecoveryServicer defines the interface for ledger recovery
type RecoveryServicer interface {
	Scan(ctx context.Context) (int, error)
	Recover(ctx context.Context) (*RecoverySummary, error)
	Status() RecoveryStatus
	Touch()
}

// DashboardServicer defines the interface for the admin voter views
type DashboardServicer interface {
	Query(ctx context.Context, state filter.State, page, size int) (filter.Page, error)
	Stats(ctx context.Context) (aggregate.Stats, error)
	Export(ctx context.Context, w io.Writer) (string, error)
	ExportFilename() string
	Archive(ctx context.Context) (string, error)
	DeleteVoter(ctx context.Context, id string) error
	Refresh(ctx context.Context) error
}

// AdminServicer defines the interface for admin management
type AdminServicer interface {
	ListAdmins(ctx context.Context) ([]models.Admin, error)
	CreateAdmin(ctx context.Context, a models.Admin) (*models.Admin, error)
	DeleteAdmin(ctx context.Context, id string) error
	Login(ctx context.Context, email, password string) (*models.Admin, error)
}

// Ensure concrete types implement interfaces
var (
	_ SubmissionServicer = (*SubmissionService)(nil)
	_ RecoveryServicer   = (*RecoveryMonitor)(nil)
	_ DashboardServicer  = (*DashboardService)(nil)
	_ AdminServicer      = (*AdminService)(nil)
	_ PendingTracker     = (*RecoveryMonitor)(nil)
)
