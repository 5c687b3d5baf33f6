package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/voterreg/internal/errors"
	"github.com/abrezinsky/voterreg/internal/ledger"
	"github.com/abrezinsky/voterreg/internal/logger"
	"github.com/abrezinsky/voterreg/internal/models"
	"github.com/abrezinsky/voterreg/internal/retry"
)

// VoterInserter is the part of the record store a submission needs
type VoterInserter interface {
	InsertVoter(ctx context.Context, v models.Voter) (*models.Voter, error)
	GetVoter(ctx context.Context, id string) (*models.Voter, error)
}

// PendingTracker is told when the ledger gains an undelivered entry
type PendingTracker interface {
	NotePending(ctx context.Context)
}

// SubmissionService delivers registrations to the record store, keeping a
// ledger copy until delivery is confirmed.
type SubmissionService struct {
	log     logger.Logger
	client  VoterInserter
	ledger  *ledger.Ledger
	rules   Rules
	policy  retry.Policy
	tracker PendingTracker
	baseURL string
	newID   func() string
}

// NewSubmissionService creates a new SubmissionService
func NewSubmissionService(log logger.Logger, client VoterInserter, l *ledger.Ledger, rules Rules, policy retry.Policy) *SubmissionService {
	return &SubmissionService{
		log:    log,
		client: client,
		ledger: l,
		rules:  rules,
		policy: policy,
		newID:  NewSubmissionID,
	}
}

// SetPendingTracker sets who is told about registrations left in the ledger
func (s *SubmissionService) SetPendingTracker(t PendingTracker) {
	s.tracker = t
}

// SetBaseURL sets the public URL embedded in confirmation QR codes
func (s *SubmissionService) SetBaseURL(url string) {
	s.baseURL = strings.TrimSuffix(url, "/")
}

// SetIDGenerator overrides submission id generation (for testing)
func (s *SubmissionService) SetIDGenerator(fn func() string) {
	s.newID = fn
}

// NewSubmissionID returns a random UUID, or a timestamp id if the random
// source fails
func NewSubmissionID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Sprintf("ts-%d", time.Now().UnixNano())
	}
	return id.String()
}

// Submit validates and delivers a registration. A Duplicate error from the
// store is returned as is unless a retry hit our own earlier insert. When delivery fails for good the registration
// stays in the ledger and a *SubmissionError is returned.
func (s *SubmissionService) Submit(ctx context.Context, v models.Voter) (*models.Voter, error) {
	v.Normalize()
	if err := s.rules.Validate(&v); err != nil {
		return nil, err
	}

	// delivery runs to completion even if the caller goes away
	ctx = context.WithoutCancel(ctx)

	id := s.newID()
	v.ID = id
	v.CreatedAt = time.Time{}

	entry := &ledger.Entry{ID: id, Status: ledger.StatusPending, Data: v}
	backedUp := true
	if err := s.ledger.Put(ctx, entry); err != nil {
		backedUp = false
		s.log.Warn("Failed to back up registration, continuing without it", "id", id, "error", err)
	}

	created, attempts, err := s.insure(ctx, v)
	if attempts > 1 && errors.Is(err, errors.ErrDuplicate) {
		created, err = s.landed(ctx, id, err)
	}
	if err == nil {
		s.forget(ctx, id)
		s.log.Info("Registration delivered", "id", id, "email", logger.RedactEmail(v.Email), "attempts", attempts)
		return created, nil
	}

	if errors.Is(err, errors.ErrDuplicate) {
		s.forget(ctx, id)
		return nil, err
	}

	s.log.Warn("Registration delivery failed", "id", id, "attempts", attempts, "error", err)

	if err := s.ledger.MarkFailed(ctx, entry, err, attempts); err != nil {
		s.log.Error("Registration could not be delivered or saved", "id", id, "error", err, "backed_up", backedUp)
		if !backedUp {
			return nil, errors.Remote(err, "registration could not be delivered or saved locally")
		}
	}
	if s.tracker != nil {
		s.tracker.NotePending(ctx)
	}
	return nil, &SubmissionError{BackupID: id, Attempts: attempts, Err: err}
}

// insure retries the insert under the policy, then makes one last direct
// attempt if the retry budget ran out on a retryable error
func (s *SubmissionService) insure(ctx context.Context, v models.Voter) (*models.Voter, int, error) {
	var created *models.Voter
	attempts, err := s.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.client.InsertVoter(ctx, v)
		return err
	})
	if err == nil || !errors.IsRetryable(err) {
		return created, attempts, err
	}

	s.log.Debug("Retries exhausted, trying direct insert", "id", v.ID)
	created, err = s.client.InsertVoter(ctx, v)
	return created, attempts + 1, err
}

// landed checks whether a Duplicate seen on a retry is the record an earlier
// attempt stored before its response was lost
func (s *SubmissionService) landed(ctx context.Context, id string, dupErr error) (*models.Voter, error) {
	existing, err := s.client.GetVoter(ctx, id)
	if err != nil || existing.ID != id {
		return nil, dupErr
	}
	s.log.Debug("Retry found the registration already stored", "id", id)
	return existing, nil
}

func (s *SubmissionService) forget(ctx context.Context, id string) {
	if err := s.ledger.Delete(ctx, id); err != nil {
		s.log.Warn("Failed to remove delivered backup", "id", id, "error", err)
	}
}

// Registration is a looked-up registration and where it was found
type Registration struct {
	Voter models.Voter
	// Stored is false while the registration only exists in the ledger
	Stored     bool
	ReceivedAt time.Time
}

// Lookup finds a registration in the record store or, failing that, the ledger
func (s *SubmissionService) Lookup(ctx context.Context, id string) (*Registration, error) {
	v, err := s.client.GetVoter(ctx, id)
	if err == nil {
		return &Registration{Voter: *v, Stored: true, ReceivedAt: v.CreatedAt}, nil
	}
	if !errors.Is(err, errors.ErrNotFound) && !errors.IsRetryable(err) {
		return nil, err
	}

	entry, lerr := s.ledger.Get(ctx, id)
	if lerr != nil {
		if errors.Is(lerr, errors.ErrNotFound) {
			return nil, errors.NotFoundf("registration %s not found", id)
		}
		return nil, lerr
	}
	return &Registration{Voter: entry.Data, ReceivedAt: entry.CreatedAt}, nil
}

// ConfirmationQR returns a PNG QR code for a registration
func (s *SubmissionService) ConfirmationQR(ctx context.Context, id string) ([]byte, error) {
	if _, err := s.Lookup(ctx, id); err != nil {
		return nil, err
	}
	content := "registration:" + id
	if s.baseURL != "" {
		content = fmt.Sprintf("%s/registrations/%s", s.baseURL, id)
	}
	return qrcode.Encode(content, qrcode.Medium, 256)
}
