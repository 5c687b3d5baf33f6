// Package ledger keeps a local copy of every registration that has not yet
// been confirmed by the record store.
package ledger

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/abrezinsky/voterreg/internal/errors"
	"github.com/abrezinsky/voterreg/internal/logger"
	"github.com/abrezinsky/voterreg/internal/models"
)

// KeyPrefix namespaces ledger entries inside the store
const KeyPrefix = "voter_backup_"

// Status of a ledger entry
type Status string

const (
	// StatusPending is written before the first delivery attempt
	StatusPending Status = "pending"
	// StatusFailed means every delivery attempt so far has failed
	StatusFailed Status = "failed"
)

// Entry is one undelivered registration
type Entry struct {
	ID        string       `json:"id"`
	Status    Status       `json:"status"`
	Data      models.Voter `json:"data"`
	CreatedAt time.Time    `json:"created_at"`
	FailedAt  *time.Time   `json:"failed_at,omitempty"`
	Error     string       `json:"error,omitempty"`
	Attempts  int          `json:"attempts"`
}

// Key returns the store key for a submission id
func Key(id string) string {
	return KeyPrefix + id
}

// ScanResult is the outcome of reading every entry in the ledger
type ScanResult struct {
	// Entries are ordered by CreatedAt, oldest first
	Entries []*Entry
	// Malformed lists keys whose value could not be decoded. They are left in place.
	Malformed []string
}

// Ledger is the typed view over a Store
type Ledger struct {
	store Store
	log   logger.Logger
	now   func() time.Time
}

// New creates a ledger over store
func New(store Store, log logger.Logger) *Ledger {
	return &Ledger{store: store, log: log, now: time.Now}
}

// Put writes entry, replacing any entry with the same id
func (l *Ledger) Put(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		return errors.Internalf("ledger entry has no id")
	}
	if e.Status == "" {
		e.Status = StatusPending
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = l.now().UTC()
	}

	raw, err := json.Marshal(e)
	if err != nil {
		return errors.Storage(err, "encode backup entry")
	}
	if err := l.store.Set(ctx, Key(e.ID), string(raw)); err != nil {
		return errors.Storage(err, "write backup entry")
	}
	return nil
}

// MarkFailed records a failed delivery on e and persists it
func (l *Ledger) MarkFailed(ctx context.Context, e *Entry, cause error, attempts int) error {
	now := l.now().UTC()
	e.Status = StatusFailed
	e.FailedAt = &now
	e.Attempts += attempts
	if cause != nil {
		e.Error = cause.Error()
	}
	return l.Put(ctx, e)
}

// Get returns the entry for id or a NotFound error
func (l *Ledger) Get(ctx context.Context, id string) (*Entry, error) {
	raw, ok, err := l.store.Get(ctx, Key(id))
	if err != nil {
		return nil, errors.Storage(err, "read backup entry")
	}
	if !ok {
		return nil, errors.NotFoundf("backup %s not found", id)
	}
	e, err := decode(raw)
	if err != nil {
		return nil, errors.Storage(err, "decode backup entry")
	}
	return e, nil
}

// Delete removes the entry for id. Deleting a missing entry is not an error.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	if err := l.store.Delete(ctx, Key(id)); err != nil {
		return errors.Storage(err, "delete backup entry")
	}
	return nil
}

// Scan reads every entry. Keys that cannot be read or decoded are reported
// in Malformed and logged, never deleted.
func (l *Ledger) Scan(ctx context.Context) (*ScanResult, error) {
	keys, err := l.store.Keys(ctx, KeyPrefix)
	if err != nil {
		return nil, errors.Storage(err, "list backup entries")
	}

	res := &ScanResult{}
	for _, key := range keys {
		raw, ok, err := l.store.Get(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Storage(ctx.Err(), "read backup entry")
			}
			l.log.Warn("Skipping unreadable backup entry", "key", key, "error", err)
			res.Malformed = append(res.Malformed, key)
			continue
		}
		if !ok {
			// deleted between Keys and Get
			continue
		}
		e, err := decode(raw)
		if err != nil {
			l.log.Warn("Skipping malformed backup entry", "key", key, "error", err)
			res.Malformed = append(res.Malformed, key)
			continue
		}
		if e.ID != strings.TrimPrefix(key, KeyPrefix) {
			l.log.Warn("Skipping backup entry with mismatched id", "key", key, "id", e.ID)
			res.Malformed = append(res.Malformed, key)
			continue
		}
		res.Entries = append(res.Entries, e)
	}

	sort.SliceStable(res.Entries, func(i, j int) bool {
		return res.Entries[i].CreatedAt.Before(res.Entries[j].CreatedAt)
	})
	return res, nil
}

// Count returns the number of valid entries
func (l *Ledger) Count(ctx context.Context) (int, error) {
	res, err := l.Scan(ctx)
	if err != nil {
		return 0, err
	}
	return len(res.Entries), nil
}

// Close releases the underlying store
func (l *Ledger) Close() error {
	return l.store.Close()
}

func decode(raw string) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, err
	}
	if e.ID == "" {
		return nil, errors.Validation("backup entry has no id")
	}
	return &e, nil
}
