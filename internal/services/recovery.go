package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abrezinsky/voterreg/internal/errors"
	"github.com/abrezinsky/voterreg/internal/ledger"
	"github.com/abrezinsky/voterreg/internal/logger"
	"github.com/abrezinsky/voterreg/internal/models"
	"github.com/abrezinsky/voterreg/internal/retry"
)

// Notifier pushes messages to connected dashboards
type Notifier interface {
	BroadcastMessage(msgType string, payload interface{})
}

// RedeliveryClient is the part of the record store recovery needs
type RedeliveryClient interface {
	InsertVoter(ctx context.Context, v models.Voter) (*models.Voter, error)
	Ping(ctx context.Context) error
}

// RecoveryConfig controls when and how the ledger is replayed
type RecoveryConfig struct {
	ScanInterval  time.Duration
	ProbeInterval time.Duration
	SettleDelay   time.Duration
	IdleAfter     time.Duration
	EntryDelay    time.Duration
	Policy        retry.Policy
}

// DefaultRecoveryConfig scans every 5 minutes, probes connectivity every
// 10s and recovers automatically after 60s of inactivity
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		ScanInterval:  5 * time.Minute,
		ProbeInterval: 10 * time.Second,
		SettleDelay:   2 * time.Second,
		IdleAfter:     60 * time.Second,
		EntryDelay:    300 * time.Millisecond,
		Policy:        retry.Default(),
	}
}

// RecoverySummary is the outcome of one recovery pass
type RecoverySummary struct {
	Recovered        int       `json:"recovered"`
	Failed           int       `json:"failed"`
	SkippedMalformed int       `json:"skipped_malformed"`
	FinishedAt       time.Time `json:"finished_at"`
}

// RecoveryStatus is a snapshot of the monitor for the admin API
type RecoveryStatus struct {
	Pending    int              `json:"pending"`
	Malformed  int              `json:"malformed"`
	Running    bool             `json:"running"`
	Online     bool             `json:"online"`
	LastScan   time.Time        `json:"last_scan"`
	LastResult *RecoverySummary `json:"last_result,omitempty"`
}

// PendingPayload is the body of a pending_backups message
type PendingPayload struct {
	Count     int `json:"count"`
	Malformed int `json:"malformed"`
}

// RecoveryMonitor watches the ledger and redelivers what it finds
type RecoveryMonitor struct {
	log    logger.Logger
	client RedeliveryClient
	ledger *ledger.Ledger
	cfg    RecoveryConfig

	notifier    Notifier
	lock        ledger.Lock
	onRecovered func(ctx context.Context)

	running      atomic.Bool
	lastActivity atomic.Int64
	lastIdleRun  atomic.Int64

	mu         sync.Mutex
	pending    int
	malformed  int
	online     bool
	lastScan   time.Time
	lastResult *RecoverySummary

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRecoveryMonitor creates a new RecoveryMonitor
func NewRecoveryMonitor(log logger.Logger, client RedeliveryClient, l *ledger.Ledger, cfg RecoveryConfig) *RecoveryMonitor {
	def := DefaultRecoveryConfig()
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = def.ScanInterval
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = def.ProbeInterval
	}
	if cfg.IdleAfter <= 0 {
		cfg.IdleAfter = def.IdleAfter
	}
	if cfg.Policy.MaxAttempts == 0 {
		cfg.Policy = def.Policy
	}

	m := &RecoveryMonitor{
		log:    log,
		client: client,
		ledger: l,
		cfg:    cfg,
		online: true,
		now:    time.Now,
		sleep:  retry.SleepContext,
	}
	m.lastActivity.Store(m.now().UnixNano())
	return m
}

// SetNotifier sets where pending counts and summaries are sent
func (m *RecoveryMonitor) SetNotifier(n Notifier) {
	m.notifier = n
}

// SetLock adds a cross-instance lock around recovery passes
func (m *RecoveryMonitor) SetLock(l ledger.Lock) {
	m.lock = l
}

// OnRecovered sets a callback run after a pass that delivered anything
func (m *RecoveryMonitor) OnRecovered(fn func(ctx context.Context)) {
	m.onRecovered = fn
}

// SetSleep replaces the wait between entries (for testing)
func (m *RecoveryMonitor) SetSleep(fn func(ctx context.Context, d time.Duration) error) {
	m.sleep = fn
}

// Touch records user activity, postponing the idle trigger
func (m *RecoveryMonitor) Touch() {
	m.lastActivity.Store(m.now().UnixNano())
}

func (m *RecoveryMonitor) notify(msgType string, payload interface{}) {
	if m.notifier != nil {
		m.notifier.BroadcastMessage(msgType, payload)
	}
}

// Scan counts undelivered entries and announces the count. It never starts
// a recovery pass.
func (m *RecoveryMonitor) Scan(ctx context.Context) (int, error) {
	res, err := m.ledger.Scan(ctx)
	if err != nil {
		m.log.Error("Failed to scan backup ledger", "error", err)
		return 0, err
	}

	m.mu.Lock()
	m.pending = len(res.Entries)
	m.malformed = len(res.Malformed)
	m.lastScan = m.now()
	m.mu.Unlock()

	if len(res.Entries) > 0 {
		m.log.Info("Found undelivered registrations", "count", len(res.Entries), "malformed", len(res.Malformed))
	}
	m.notify(models.MessagePendingBackups, PendingPayload{Count: len(res.Entries), Malformed: len(res.Malformed)})
	return len(res.Entries), nil
}

// NotePending rescans after a new entry lands in the ledger
func (m *RecoveryMonitor) NotePending(ctx context.Context) {
	m.Scan(ctx)
}

// Pending returns the count from the last scan
func (m *RecoveryMonitor) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// Status returns a snapshot of the monitor
func (m *RecoveryMonitor) Status() RecoveryStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return RecoveryStatus{
		Pending:    m.pending,
		Malformed:  m.malformed,
		Running:    m.running.Load(),
		Online:     m.online,
		LastScan:   m.lastScan,
		LastResult: m.lastResult,
	}
}

// WelcomeMessages gives a newly connected dashboard the current count
func (m *RecoveryMonitor) WelcomeMessages(ctx context.Context) []models.WSMessage {
	m.mu.Lock()
	payload := PendingPayload{Count: m.pending, Malformed: m.malformed}
	m.mu.Unlock()
	return []models.WSMessage{{Type: models.MessagePendingBackups, Payload: payload}}
}

// Recover replays every valid ledger entry once. Only one pass runs at a
// time; a concurrent call returns ErrRecoveryInProgress.
func (m *RecoveryMonitor) Recover(ctx context.Context) (*RecoverySummary, error) {
	if !m.running.CompareAndSwap(false, true) {
		return nil, ErrRecoveryInProgress
	}
	defer m.running.Store(false)

	if m.lock != nil {
		ok, err := m.lock.Acquire(ctx)
		if err != nil {
			return nil, errors.Storage(err, "acquire recovery lock")
		}
		if !ok {
			return nil, ErrRecoveryInProgress
		}
		defer func() {
			if err := m.lock.Release(context.WithoutCancel(ctx)); err != nil {
				m.log.Warn("Failed to release recovery lock", "error", err)
			}
		}()
	}

	res, err := m.ledger.Scan(ctx)
	if err != nil {
		return nil, err
	}

	summary := &RecoverySummary{SkippedMalformed: len(res.Malformed)}
	m.log.Info("Recovery started", "entries", len(res.Entries), "malformed", len(res.Malformed))

	for i, entry := range res.Entries {
		if i > 0 {
			if err := m.sleep(ctx, m.cfg.EntryDelay); err != nil {
				break
			}
		}
		if m.redeliver(ctx, entry) {
			summary.Recovered++
		} else {
			summary.Failed++
		}
	}
	summary.FinishedAt = m.now()

	m.mu.Lock()
	m.lastResult = summary
	m.mu.Unlock()

	m.log.Info("Recovery finished", "recovered", summary.Recovered, "failed", summary.Failed,
		"skipped_malformed", summary.SkippedMalformed)

	m.Scan(ctx)
	m.notify(models.MessageRecoveryResult, summary)

	if summary.Recovered > 0 && m.onRecovered != nil {
		m.onRecovered(ctx)
	}
	return summary, ctx.Err()
}

// redeliver inserts one entry and reports whether it is now in the store.
// A Duplicate means an earlier attempt already landed.
func (m *RecoveryMonitor) redeliver(ctx context.Context, entry *ledger.Entry) bool {
	attempts, err := m.cfg.Policy.Do(ctx, func(ctx context.Context) error {
		_, err := m.client.InsertVoter(ctx, entry.Data)
		return err
	})

	if err == nil || errors.Is(err, errors.ErrDuplicate) {
		if err := m.ledger.Delete(ctx, entry.ID); err != nil {
			m.log.Error("Delivered registration but could not remove backup", "id", entry.ID, "error", err)
		}
		return true
	}

	m.log.Warn("Redelivery failed", "id", entry.ID, "attempts", attempts, "error", err)
	if err := m.ledger.MarkFailed(ctx, entry, err, attempts); err != nil {
		m.log.Error("Failed to update backup entry", "id", entry.ID, "error", err)
	}
	return false
}

// Run drives the monitor until ctx ends: an initial scan, periodic scans,
// a rescan after connectivity returns and recovery after a quiet period.
func (m *RecoveryMonitor) Run(ctx context.Context) {
	m.Scan(ctx)

	scan := time.NewTicker(m.cfg.ScanInterval)
	defer scan.Stop()
	probe := time.NewTicker(m.cfg.ProbeInterval)
	defer probe.Stop()
	idle := time.NewTicker(m.idleCheckInterval())
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-scan.C:
			m.Scan(ctx)
		case <-probe.C:
			if m.probe(ctx) {
				go func() {
					if m.sleep(ctx, m.cfg.SettleDelay) == nil {
						m.log.Info("Record store reachable again, rescanning backups")
						m.Scan(ctx)
					}
				}()
			}
		case <-idle.C:
			if m.idleDue() {
				go m.idleRecover(ctx)
			}
		}
	}
}

func (m *RecoveryMonitor) idleCheckInterval() time.Duration {
	d := m.cfg.IdleAfter / 6
	if d <= 0 {
		d = time.Second
	}
	return d
}

// probe pings the store and reports an offline to online transition
func (m *RecoveryMonitor) probe(ctx context.Context) bool {
	up := m.client.Ping(ctx) == nil

	m.mu.Lock()
	defer m.mu.Unlock()
	cameBack := up && !m.online
	if m.online && !up {
		m.log.Warn("Record store unreachable")
	}
	m.online = up
	return cameBack
}

// idleDue reports whether entries are waiting, no pass is running and the
// quiet period has elapsed since the last activity and the last idle pass
func (m *RecoveryMonitor) idleDue() bool {
	if m.Pending() == 0 || m.running.Load() {
		return false
	}
	since := m.lastActivity.Load()
	if last := m.lastIdleRun.Load(); last > since {
		since = last
	}
	return m.now().Sub(time.Unix(0, since)) >= m.cfg.IdleAfter
}

func (m *RecoveryMonitor) idleRecover(ctx context.Context) {
	m.lastIdleRun.Store(m.now().UnixNano())
	m.log.Info("Idle, recovering undelivered registrations", "pending", m.Pending())
	if _, err := m.Recover(ctx); err != nil && err != ErrRecoveryInProgress {
		m.log.Warn("Idle recovery failed", "error", err)
	}
}
