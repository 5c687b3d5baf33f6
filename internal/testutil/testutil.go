package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/abrezinsky/voterreg/internal/ledger"
	"github.com/abrezinsky/voterreg/internal/logger"
	"github.com/abrezinsky/voterreg/internal/models"
	"github.com/abrezinsky/voterreg/internal/repository"
)

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

// NewTestLedger returns a ledger over an in-memory store, plus the store
// so tests can plant raw values.
func NewTestLedger(t *testing.T) (*ledger.Ledger, *ledger.MemoryStore) {
	t.Helper()
	store := ledger.NewMemoryStore()
	return ledger.New(store, logger.NewDiscard()), store
}

// NewTestRedis starts a miniredis server and returns a connected client
func NewTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

// Voter returns a valid registration for email
func Voter(email string) models.Voter {
	return models.Voter{
		FullName:      "Fatou Sowe",
		Email:         email,
		DateOfBirth:   "1995-07-21",
		Gender:        models.GenderFemale,
		Organization:  "Gambia Red Cross",
		Region:        "West Coast",
		Constituency:  "Brikama North",
		IDType:        models.IDIdentificationDocument,
		IDNumber:      "20241234",
		AgreedToTerms: true,
	}
}
