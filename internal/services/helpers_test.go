package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/abrezinsky/voterreg/internal/ledger"
	"github.com/abrezinsky/voterreg/internal/logger"
	"github.com/abrezinsky/voterreg/internal/models"
	"github.com/abrezinsky/voterreg/internal/retry"
	"github.com/abrezinsky/voterreg/internal/testutil"
)

// instantPolicy is three attempts with no real waiting
func instantPolicy() retry.Policy {
	p := retry.Default()
	p.Sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return p
}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

// recordingNotifier captures broadcast messages
type recordingNotifier struct {
	mu       sync.Mutex
	messages []models.WSMessage
}

func (n *recordingNotifier) BroadcastMessage(msgType string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, models.WSMessage{Type: msgType, Payload: payload})
}

func (n *recordingNotifier) last(msgType string) (interface{}, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.messages) - 1; i >= 0; i-- {
		if n.messages[i].Type == msgType {
			return n.messages[i].Payload, true
		}
	}
	return nil, false
}

// seedEntry writes a pending entry for email straight into the ledger
func seedEntry(t *testing.T, l *ledger.Ledger, id, email string, created time.Time) {
	t.Helper()
	v := testutil.Voter(email)
	v.ID = id
	if err := l.Put(context.Background(), &ledger.Entry{ID: id, Data: v, CreatedAt: created}); err != nil {
		t.Fatalf("failed to seed ledger: %v", err)
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

var discard = logger.NewDiscard()
