package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/abrezinsky/voterreg/internal/aggregate"
	"github.com/abrezinsky/voterreg/internal/export"
	"github.com/abrezinsky/voterreg/internal/filter"
	"github.com/abrezinsky/voterreg/internal/logger"
	"github.com/abrezinsky/voterreg/internal/models"
	"github.com/abrezinsky/voterreg/internal/retry"
)

// VoterSource is the part of the record store the dashboard reads
type VoterSource interface {
	ListVoters(ctx context.Context) ([]models.Voter, error)
	DeleteVoter(ctx context.Context, id string) error
	Subscribe(ctx context.Context, table string, handler func(models.ChangeEvent)) error
}

// Archiver keeps a copy of an export somewhere durable
type Archiver interface {
	Archive(ctx context.Context, voters []models.Voter, now time.Time) (string, error)
}

// DashboardService keeps a snapshot of the voters table for the admin
// views and refreshes it when the record store reports a change.
type DashboardService struct {
	log      logger.Logger
	source   VoterSource
	policy   retry.Policy
	notifier Notifier
	archiver Archiver
	chunk    int

	mu       sync.RWMutex
	voters   []models.Voter
	loaded   bool
	loadedAt time.Time

	refresh chan struct{}
	now     func() time.Time
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(log logger.Logger, source VoterSource, policy retry.Policy) *DashboardService {
	return &DashboardService{
		log:     log,
		source:  source,
		policy:  policy,
		chunk:   export.DefaultChunkSize,
		refresh: make(chan struct{}, 1),
		now:     time.Now,
	}
}

// SetNotifier sets where snapshot changes are announced
func (s *DashboardService) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetArchiver enables archiving exports
func (s *DashboardService) SetArchiver(a Archiver) {
	s.archiver = a
}

// SetExportChunkSize sets how many rows are flushed at a time
func (s *DashboardService) SetExportChunkSize(n int) {
	s.chunk = n
}

// Refresh reloads the snapshot from the record store
func (s *DashboardService) Refresh(ctx context.Context) error {
	var voters []models.Voter
	_, err := s.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		voters, err = s.source.ListVoters(ctx)
		return err
	})
	if err != nil {
		s.log.Warn("Failed to load voters", "error", err)
		return err
	}

	filter.SortFCFS(voters)

	s.mu.Lock()
	s.voters = voters
	s.loaded = true
	s.loadedAt = s.now()
	s.mu.Unlock()

	s.log.Debug("Voter snapshot refreshed", "count", len(voters))
	if s.notifier != nil {
		s.notifier.BroadcastMessage(models.MessageVotersChanged, map[string]int{"count": len(voters)})
	}
	return nil
}

// Voters returns a copy of the snapshot, loading it on first use
func (s *DashboardService) Voters(ctx context.Context) ([]models.Voter, error) {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if !loaded {
		if err := s.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Voter, len(s.voters))
	copy(out, s.voters)
	return out, nil
}

// LoadedAt returns when the snapshot was last refreshed
func (s *DashboardService) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Query filters, orders and pages the snapshot
func (s *DashboardService) Query(ctx context.Context, state filter.State, page, size int) (filter.Page, error) {
	voters, err := s.Voters(ctx)
	if err != nil {
		return filter.Page{}, err
	}
	return filter.Query(voters, state, page, size), nil
}

// Stats tallies the snapshot for charts
func (s *DashboardService) Stats(ctx context.Context) (aggregate.Stats, error) {
	voters, err := s.Voters(ctx)
	if err != nil {
		return aggregate.Stats{}, err
	}
	return aggregate.Compute(voters), nil
}

// Export writes the snapshot as CSV and returns the download filename
func (s *DashboardService) Export(ctx context.Context, w io.Writer) (string, error) {
	voters, err := s.Voters(ctx)
	if err != nil {
		return "", err
	}
	if err := export.NewWriter(w, s.chunk).Write(voters); err != nil {
		return "", err
	}
	return export.Filename(s.now()), nil
}

// ExportFilename is the name the current export would download as
func (s *DashboardService) ExportFilename() string {
	return export.Filename(s.now())
}

// Archive uploads an export copy and returns its key
func (s *DashboardService) Archive(ctx context.Context) (string, error) {
	if s.archiver == nil {
		return "", ErrNoArchive
	}
	voters, err := s.Voters(ctx)
	if err != nil {
		return "", err
	}
	return s.archiver.Archive(ctx, voters, s.now())
}

// DeleteVoter removes a registration. Admin operations are not retried.
func (s *DashboardService) DeleteVoter(ctx context.Context, id string) error {
	if err := s.source.DeleteVoter(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	for i, v := range s.voters {
		if v.ID == id {
			s.voters = append(s.voters[:i:i], s.voters[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.log.Info("Voter deleted", "id", id)
	return nil
}

// RefreshAsync asks the watcher to reload; repeated requests coalesce
func (s *DashboardService) RefreshAsync() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// Watch subscribes to voter changes and reloads the snapshot for each burst
// of events until ctx ends.
func (s *DashboardService) Watch(ctx context.Context) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.refresh:
				s.Refresh(ctx)
			}
		}
	}()

	return s.source.Subscribe(ctx, models.TableVoters, func(ev models.ChangeEvent) {
		s.log.Debug("Voter change received", "type", ev.Type)
		s.RefreshAsync()
	})
}
