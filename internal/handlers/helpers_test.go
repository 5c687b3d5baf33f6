package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abrezinsky/voterreg/internal/auth"
	"github.com/abrezinsky/voterreg/internal/handlers"
	"github.com/abrezinsky/voterreg/internal/ledger"
	"github.com/abrezinsky/voterreg/internal/logger"
	"github.com/abrezinsky/voterreg/internal/models"
	"github.com/abrezinsky/voterreg/internal/retry"
	"github.com/abrezinsky/voterreg/internal/services"
	"github.com/abrezinsky/voterreg/internal/testutil"
	"github.com/abrezinsky/voterreg/internal/websocket"
	"github.com/abrezinsky/voterreg/pkg/recordstore"
)

var root = models.Admin{ID: "root", Email: "root@example.gm", Password: "correct horse"}

// testEnv is the full application stack over an in-memory record store
type testEnv struct {
	router    http.Handler
	handlers  *handlers.Handlers
	client    *recordstore.MockClient
	ledger    *ledger.Ledger
	monitor   *services.RecoveryMonitor
	dashboard *services.DashboardService
}

func instantPolicy() retry.Policy {
	p := retry.Default()
	p.Sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return p
}

func newTestEnv(t *testing.T, opts ...recordstore.MockOption) *testEnv {
	t.Helper()
	log := logger.NewDiscard()
	opts = append([]recordstore.MockOption{recordstore.WithAdmins([]models.Admin{root})}, opts...)
	client := recordstore.NewMockClient(opts...)
	l, _ := testutil.NewTestLedger(t)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := services.DefaultRecoveryConfig()
	cfg.Policy = instantPolicy()
	monitor := services.NewRecoveryMonitor(log, client, l, cfg)
	monitor.SetSleep(func(ctx context.Context, d time.Duration) error { return ctx.Err() })

	hub := websocket.New(log, monitor.WelcomeMessages)
	hub.Start(ctx)
	monitor.SetNotifier(hub)

	submission := services.NewSubmissionService(log, client, l, services.DefaultRules(), instantPolicy())
	submission.SetPendingTracker(monitor)

	dashboard := services.NewDashboardService(log, client, instantPolicy())
	dashboard.SetNotifier(hub)
	monitor.OnRecovered(func(ctx context.Context) { dashboard.Refresh(ctx) })

	admins := services.NewAdminService(log, client)
	h := handlers.New(submission, monitor, dashboard, admins, auth.New(admins, 0), hub, handlers.NoopHTTPLogger{})

	return &testEnv{
		router:    h.Router(),
		handlers:  h,
		client:    client,
		ledger:    l,
		monitor:   monitor,
		dashboard: dashboard,
	}
}

// do sends a request through the router
func (e *testEnv) do(t *testing.T, method, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return e.serve(req)
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// login returns a valid admin session cookie
func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	rr := e.do(t, "POST", "/api/admin/login", handlers.LoginRequest{Email: root.Email, Password: root.Password})
	if rr.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rr.Code, rr.Body.String())
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(target); err != nil {
		t.Fatalf("failed to decode %q: %v", rr.Body.String(), err)
	}
}

func registration(email string) handlers.RegisterRequest {
	v := testutil.Voter(email)
	return handlers.RegisterRequest{
		FullName:      v.FullName,
		Email:         v.Email,
		DateOfBirth:   v.DateOfBirth,
		Gender:        v.Gender,
		Organization:  v.Organization,
		Region:        v.Region,
		Constituency:  v.Constituency,
		IDType:        v.IDType,
		IDNumber:      v.IDNumber,
		AgreedToTerms: v.AgreedToTerms,
	}
}
