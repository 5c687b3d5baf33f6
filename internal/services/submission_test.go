package services_test

import (
	"bytes"
	"context"
	stderrors "errors"
	"testing"

	"github.com/abrezinsky/voterreg/internal/errors"
	"github.com/abrezinsky/voterreg/internal/ledger"
	"github.com/abrezinsky/voterreg/internal/models"
	"github.com/abrezinsky/voterreg/internal/services"
	"github.com/abrezinsky/voterreg/internal/testutil"
	"github.com/abrezinsky/voterreg/pkg/recordstore"
)

func newSubmission(t *testing.T, client *recordstore.MockClient) (*services.SubmissionService, *ledger.Ledger) {
	t.Helper()
	l, _ := testutil.NewTestLedger(t)
	svc := services.NewSubmissionService(discard, client, l, services.DefaultRules(), instantPolicy())
	return svc, l
}

func TestSubmit_FirstAttemptSuccessLeavesNoBackup(t *testing.T) {
	client := recordstore.NewMockClient()
	svc, l := newSubmission(t, client)

	created, err := svc.Submit(context.Background(), testutil.Voter("a@b.com"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Errorf("expected stored record with id and created_at, got %+v", created)
	}
	if n, _ := l.Count(context.Background()); n != 0 {
		t.Errorf("expected empty ledger, got %d entries", n)
	}
	if client.InsertCalls() != 1 {
		t.Errorf("expected 1 insert, got %d", client.InsertCalls())
	}
}

func TestSubmit_NormalizesBeforeValidation(t *testing.T) {
	client := recordstore.NewMockClient()
	svc, _ := newSubmission(t, client)

	v := testutil.Voter("  Mixed.Case@Example.GM ")
	v.Gender = "Female"
	created, err := svc.Submit(context.Background(), v)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if created.Email != "mixed.case@example.gm" || created.Gender != models.GenderFemale {
		t.Errorf("expected normalized record, got %+v", created)
	}
}

func TestSubmit_RetriesThenSucceeds(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		calls    int
	}{
		{"second attempt", 1, 2},
		{"third attempt", 2, 3},
		{"direct fallback after retries", 3, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := recordstore.NewMockClient(recordstore.WithInsertFailures(tt.failures, nil))
			svc, l := newSubmission(t, client)

			if _, err := svc.Submit(context.Background(), testutil.Voter("a@b.com")); err != nil {
				t.Fatalf("Submit failed: %v", err)
			}
			if client.InsertCalls() != tt.calls {
				t.Errorf("expected %d inserts, got %d", tt.calls, client.InsertCalls())
			}
			if n, _ := l.Count(context.Background()); n != 0 {
				t.Errorf("expected empty ledger, got %d", n)
			}
		})
	}
}

func TestSubmit_TotalFailureKeepsExactlyOneEntry(t *testing.T) {
	client := recordstore.NewMockClient(recordstore.WithInsertFailures(100, nil))
	svc, l := newSubmission(t, client)
	svc.SetIDGenerator(func() string { return "sub-1" })

	_, err := svc.Submit(context.Background(), testutil.Voter("a@b.com"))

	var subErr *services.SubmissionError
	if !stderrors.As(err, &subErr) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
	if subErr.BackupID != "sub-1" || subErr.Attempts != 4 {
		t.Errorf("unexpected submission error %+v", subErr)
	}
	if err.Error() != services.SavedLocallyMessage {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.IsRetryable(stderrors.Unwrap(err)) {
		t.Error("expected the remote cause to be wrapped")
	}

	res, _ := l.Scan(context.Background())
	if len(res.Entries) != 1 {
		t.Fatalf("expected exactly one ledger entry, got %d", len(res.Entries))
	}
	entry := res.Entries[0]
	if entry.ID != "sub-1" || entry.Status != ledger.StatusFailed {
		t.Errorf("unexpected entry %+v", entry)
	}
	if entry.Error == "" || entry.FailedAt == nil {
		t.Error("expected error and failed_at to be recorded")
	}
	if entry.Data.Email != "a@b.com" || entry.Data.FullName != "Fatou Sowe" {
		t.Errorf("expected original fields in entry, got %+v", entry.Data)
	}
	if client.InsertCalls() != 4 {
		t.Errorf("expected 3 retries plus 1 direct insert, got %d", client.InsertCalls())
	}
}

func TestSubmit_TotalFailureNotifiesTracker(t *testing.T) {
	client := recordstore.NewMockClient()
	client.SetOnline(false)
	svc, l := newSubmission(t, client)

	notifier := &recordingNotifier{}
	monitor := services.NewRecoveryMonitor(discard, client, l, services.RecoveryConfig{})
	monitor.SetNotifier(notifier)
	svc.SetPendingTracker(monitor)

	svc.Submit(context.Background(), testutil.Voter("a@b.com"))

	if monitor.Pending() != 1 {
		t.Errorf("expected tracker to see 1 pending, got %d", monitor.Pending())
	}
	if _, ok := notifier.last(models.MessagePendingBackups); !ok {
		t.Error("expected pending_backups broadcast")
	}
}

func TestSubmit_DuplicateIsSurfacedAndNotRetried(t *testing.T) {
	existing := testutil.Voter("a@b.com")
	existing.ID = "old"
	client := recordstore.NewMockClient(recordstore.WithVoters([]models.Voter{existing}))
	svc, l := newSubmission(t, client)

	_, err := svc.Submit(context.Background(), testutil.Voter("A@B.com"))
	if !errors.Is(err, errors.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if client.InsertCalls() != 1 {
		t.Errorf("expected a single insert, got %d", client.InsertCalls())
	}
	if n, _ := l.Count(context.Background()); n != 0 {
		t.Errorf("expected pending entry to be removed, got %d", n)
	}
}

func TestSubmit_LostResponseIsNotADuplicate(t *testing.T) {
	client := recordstore.NewMockClient(recordstore.WithLostInsertResponses(1))
	svc, l := newSubmission(t, client)
	svc.SetIDGenerator(func() string { return "sub-1" })

	created, err := svc.Submit(context.Background(), testutil.Voter("a@b.com"))
	if err != nil {
		t.Fatalf("expected success after lost response, got %v", err)
	}
	if created.ID != "sub-1" || created.CreatedAt.IsZero() {
		t.Errorf("expected the stored record, got %+v", created)
	}
	if client.InsertCalls() != 2 {
		t.Errorf("expected 2 inserts, got %d", client.InsertCalls())
	}
	if n := len(client.Voters()); n != 1 {
		t.Errorf("expected exactly one stored record, got %d", n)
	}
	if n, _ := l.Count(context.Background()); n != 0 {
		t.Errorf("expected empty ledger, got %d", n)
	}
}

func TestSubmit_RetriedDuplicateOfAnotherRecordIsSurfaced(t *testing.T) {
	existing := testutil.Voter("a@b.com")
	existing.ID = "old"
	client := recordstore.NewMockClient(
		recordstore.WithVoters([]models.Voter{existing}),
		recordstore.WithInsertFailures(1, nil),
	)
	svc, l := newSubmission(t, client)

	_, err := svc.Submit(context.Background(), testutil.Voter("a@b.com"))
	if !errors.Is(err, errors.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if client.InsertCalls() != 2 {
		t.Errorf("expected 2 inserts, got %d", client.InsertCalls())
	}
	if n, _ := l.Count(context.Background()); n != 0 {
		t.Errorf("expected pending entry to be removed, got %d", n)
	}
}

func TestSubmit_ValidationStopsBeforeNetwork(t *testing.T) {
	client := recordstore.NewMockClient()
	svc, l := newSubmission(t, client)

	v := testutil.Voter("a@b.com")
	v.DateOfBirth = ""
	v.Region = "Atlantis"

	_, err := svc.Submit(context.Background(), v)
	if !errors.Is(err, errors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err.Error() != "date of birth is required" {
		t.Errorf("expected date of birth checked first, got %q", err.Error())
	}
	if client.InsertCalls() != 0 {
		t.Error("expected no network attempt")
	}
	if n, _ := l.Count(context.Background()); n != 0 {
		t.Error("expected no ledger write")
	}
}

// failingStore rejects every write
type failingStore struct {
	*ledger.MemoryStore
}

func (failingStore) Set(context.Context, string, string) error {
	return stderrors.New("quota exceeded")
}

func TestSubmit_BackupFailureIsNotFatal(t *testing.T) {
	client := recordstore.NewMockClient()
	l := ledger.New(failingStore{ledger.NewMemoryStore()}, discard)
	svc := services.NewSubmissionService(discard, client, l, services.DefaultRules(), instantPolicy())

	if _, err := svc.Submit(context.Background(), testutil.Voter("a@b.com")); err != nil {
		t.Fatalf("expected delivery despite backup failure, got %v", err)
	}
}

func TestSubmit_NothingSavedIsARemoteError(t *testing.T) {
	client := recordstore.NewMockClient()
	client.SetOnline(false)
	l := ledger.New(failingStore{ledger.NewMemoryStore()}, discard)
	svc := services.NewSubmissionService(discard, client, l, services.DefaultRules(), instantPolicy())

	_, err := svc.Submit(context.Background(), testutil.Voter("a@b.com"))
	var subErr *services.SubmissionError
	if stderrors.As(err, &subErr) {
		t.Fatal("must not claim the registration was saved locally")
	}
	if !errors.Is(err, errors.ErrRemote) {
		t.Errorf("expected remote error, got %v", err)
	}
}

func TestNewSubmissionID_IsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := services.NewSubmissionID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestLookupAndConfirmationQR(t *testing.T) {
	client := recordstore.NewMockClient()
	svc, l := newSubmission(t, client)
	svc.SetBaseURL("https://register.example.gm/")
	ctx := context.Background()

	created, err := svc.Submit(ctx, testutil.Voter("a@b.com"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	png, err := svc.ConfirmationQR(ctx, created.ID)
	if err != nil {
		t.Fatalf("ConfirmationQR failed: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("expected PNG output")
	}

	// a registration only in the ledger can still be looked up
	seedEntry(t, l, "local-1", "c@d.com", created.CreatedAt)
	reg, err := svc.Lookup(ctx, "local-1")
	if err != nil || reg.Voter.Email != "c@d.com" || reg.Stored {
		t.Errorf("expected ledger lookup, got %+v (%v)", reg, err)
	}

	reg, err = svc.Lookup(ctx, created.ID)
	if err != nil || !reg.Stored || !reg.ReceivedAt.Equal(created.CreatedAt) {
		t.Errorf("expected stored lookup, got %+v (%v)", reg, err)
	}

	if _, err := svc.ConfirmationQR(ctx, "missing"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
