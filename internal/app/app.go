package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/abrezinsky/voterreg/internal/auth"
	"github.com/abrezinsky/voterreg/internal/config"
	"github.com/abrezinsky/voterreg/internal/export"
	"github.com/abrezinsky/voterreg/internal/handlers"
	"github.com/abrezinsky/voterreg/internal/ledger"
	"github.com/abrezinsky/voterreg/internal/logger"
	"github.com/abrezinsky/voterreg/internal/retry"
	"github.com/abrezinsky/voterreg/internal/services"
	"github.com/abrezinsky/voterreg/internal/websocket"
	"github.com/abrezinsky/voterreg/pkg/recordstore"
)

// purgeInterval is how often expired admin sessions are dropped
const purgeInterval = 10 * time.Minute

// App holds all registration app dependencies
type App struct {
	cfg       *config.Config
	log       logger.Logger
	handlers  *handlers.Handlers
	client    recordstore.Client
	ledger    *ledger.Ledger
	monitor   *services.RecoveryMonitor
	dashboard *services.DashboardService
	auth      *auth.Auth
	hub       *websocket.Hub
	baseURL   string

	ctx    context.Context
	cancel context.CancelFunc
}

// New wires the registration app against client. The ledger backend and
// optional export archive come from cfg.
func New(cfg *config.Config, log logger.Logger, client recordstore.Client) (*App, error) {
	l, lock, err := openLedger(cfg.Ledger, log)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	policy := retryPolicy(cfg.Recovery)

	monitor := services.NewRecoveryMonitor(log, client, l, services.RecoveryConfig{
		ScanInterval:  cfg.Recovery.ScanInterval,
		ProbeInterval: cfg.Recovery.ProbeInterval,
		SettleDelay:   cfg.Recovery.SettleDelay,
		IdleAfter:     cfg.Recovery.IdleAfter,
		EntryDelay:    cfg.Recovery.EntryDelay,
		Policy:        policy,
	})
	if lock != nil {
		monitor.SetLock(lock)
	}

	// Initialize WebSocket hub; new admin clients learn about pending backups
	hub := websocket.New(log, monitor.WelcomeMessages)
	hub.Start(ctx)
	monitor.SetNotifier(hub)

	submission := services.NewSubmissionService(log, client, l, services.Rules{
		DOBMinYear: cfg.Registration.DOBMinYear,
		DOBMaxYear: cfg.Registration.DOBMaxYear,
	}, policy)
	submission.SetPendingTracker(monitor)

	dashboard := services.NewDashboardService(log, client, policy)
	dashboard.SetNotifier(hub)
	if cfg.Export.ChunkSize > 0 {
		dashboard.SetExportChunkSize(cfg.Export.ChunkSize)
	}
	if cfg.Export.S3Bucket != "" {
		archiver, err := export.NewS3Archiver(ctx, export.ArchiveConfig{
			Bucket: cfg.Export.S3Bucket,
			Prefix: cfg.Export.S3Prefix,
			Region: cfg.Export.S3Region,
		}, log)
		if err != nil {
			cancel()
			l.Close()
			return nil, err
		}
		dashboard.SetArchiver(archiver)
	}
	monitor.OnRecovered(func(ctx context.Context) {
		if err := dashboard.Refresh(ctx); err != nil {
			log.Warn("Dashboard refresh after recovery failed", "error", err)
		}
	})

	admins := services.NewAdminService(log, client)
	adminAuth := auth.New(admins, cfg.Session.Validity)

	h := handlers.New(submission, monitor, dashboard, admins, adminAuth, hub, log)
	h.AllowedOrigins = cfg.Server.AllowedOrigins

	baseURL := cfg.Registration.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL(realNetworkProvider{}, cfg.Server.Port)
	}
	submission.SetBaseURL(baseURL)

	return &App{
		cfg:       cfg,
		log:       log,
		handlers:  h,
		client:    client,
		ledger:    l,
		monitor:   monitor,
		dashboard: dashboard,
		auth:      adminAuth,
		hub:       hub,
		baseURL:   baseURL,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// openLedger opens the configured backend. The lock is only returned for
// redis, where several app instances may share one ledger.
func openLedger(cfg config.LedgerConfig, log logger.Logger) (*ledger.Ledger, ledger.Lock, error) {
	switch cfg.Backend {
	case config.LedgerMemory:
		return ledger.New(ledger.NewMemoryStore(), log), nil, nil
	case config.LedgerRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		lock := ledger.NewRedisLock(client, "voterreg:recovery", cfg.LockTTL)
		return ledger.New(ledger.NewRedisStore(client), log), lock, nil
	case config.LedgerSQLite, "":
		store, err := ledger.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open ledger: %w", err)
		}
		return ledger.New(store, log), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

func retryPolicy(cfg config.RecoveryConfig) retry.Policy {
	p := retry.Default()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BaseDelay > 0 {
		p.BaseDelay = cfg.BaseDelay
	}
	if cfg.MaxDelay > 0 {
		p.MaxDelay = cfg.MaxDelay
	}
	return p
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Monitor exposes the recovery monitor for the console shortcuts
func (a *App) Monitor() *services.RecoveryMonitor {
	return a.monitor
}

// BaseURL is the public address printed at startup and encoded in QR codes
func (a *App) BaseURL() string {
	return a.baseURL
}

// Close stops background work and releases the ledger
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if err := a.ledger.Close(); err != nil {
		a.log.Warn("Failed to close ledger", "error", err)
	}
}

// Run starts the background loops and serves HTTP until ctx ends
func (a *App) Run(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		select {
		case <-a.ctx.Done():
			stop()
		case <-ctx.Done():
		}
	}()

	go a.monitor.Run(ctx)
	go func() {
		if err := a.dashboard.Refresh(ctx); err != nil {
			a.log.Warn("Initial voter load failed", "error", err)
		}
		if err := a.dashboard.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Warn("Voter change feed stopped", "error", err)
		}
	}()
	go a.purgeSessions(ctx)

	a.log.Info("Server starting", "url", a.baseURL)
	a.log.Info("Admin API", "url", a.baseURL+"/api/admin")
	return serve(ctx, a.cfg.Server.Addr(), a.Router())
}

func (a *App) purgeSessions(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.auth.PurgeExpired(); n > 0 {
				a.log.Debug("Expired admin sessions purged", "count", n)
			}
		}
	}
}

// serve runs an HTTP server until ctx ends, then shuts it down
func serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// defaultBaseURL builds a LAN address so QR codes scanned from another
// device still resolve
func defaultBaseURL(provider networkProvider, port int) string {
	return fmt.Sprintf("http://%s:%d", getPreferredIP(provider), port)
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider lists interfaces
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the first private IPv4 address on an up,
// non-loopback interface, then any such address, then localhost.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP
	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}
			candidates = append(candidates, ip)
		}
	}

	for _, ip := range candidates {
		if ip.IsPrivate() {
			return ip.String()
		}
	}
	if len(candidates) > 0 {
		return candidates[0].String()
	}
	return "localhost"
}
