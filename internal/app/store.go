package app

import (
	"context"
	"fmt"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/voterreg/internal/config"
	"github.com/abrezinsky/voterreg/internal/logger"
	"github.com/abrezinsky/voterreg/internal/models"
	"github.com/abrezinsky/voterreg/internal/repository"
	"github.com/abrezinsky/voterreg/internal/storeapi"
	"github.com/abrezinsky/voterreg/internal/websocket"
)

// Store is the record store service: a database behind the REST API and
// the realtime change feed
type Store struct {
	cfg  config.RecordStoreConfig
	log  logger.Logger
	repo *repository.Repository
	api  *storeapi.API

	ctx    context.Context
	cancel context.CancelFunc
}

// NewStore opens the configured database and builds the API over it
func NewStore(cfg config.RecordStoreConfig, log logger.Logger) (*Store, error) {
	repo, err := repository.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	hub := websocket.New(log, nil)
	hub.Start(ctx)

	return &Store{
		cfg:    cfg,
		log:    log,
		repo:   repo,
		api:    storeapi.New(log, repo, hub, cfg.APIKey),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Bootstrap seeds admins into an empty admins table and reports how many
// were added
func (s *Store) Bootstrap(ctx context.Context, admins []models.Admin) (int, error) {
	if len(admins) == 0 {
		return 0, nil
	}
	return s.repo.AddInitialAdmins(ctx, admins)
}

// HasAdmins reports whether any admin exists yet
func (s *Store) HasAdmins(ctx context.Context) (bool, error) {
	admins, err := s.repo.ListAdmins(ctx)
	if err != nil {
		return false, err
	}
	return len(admins) > 0, nil
}

// Router returns the record store routes
func (s *Store) Router() chi.Router {
	return s.api.Router()
}

// Run serves the record store until ctx ends
func (s *Store) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.log.Info("Record store starting", "addr", addr, "driver", s.cfg.Driver)
	return serve(ctx, addr, s.Router())
}

// Close stops the change feed and closes the database
func (s *Store) Close() {
	s.cancel()
	if err := s.repo.Close(); err != nil {
		s.log.Warn("Failed to close record store database", "error", err)
	}
}
