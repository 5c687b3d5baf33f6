package recordstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/abrezinsky/voterreg/internal/errors"
	"github.com/abrezinsky/voterreg/internal/models"
)

// MockClient is an in-memory record store for testing
type MockClient struct {
	mu          sync.Mutex
	voters      []models.Voter
	admins      []models.Admin
	passwords   map[string]string // email -> password
	offline     bool
	insertFails int
	insertErr   error
	lostInserts int
	listErr     error
	deleteErr   error
	adminErr    error
	pingErr     error
	insertCalls int
	now         func() time.Time
	subscribers map[int]subscriber
	nextSub     int
}

type subscriber struct {
	table   string
	handler func(models.ChangeEvent)
}

// MockOption configures the mock client
type MockOption func(*MockClient)

// WithVoters seeds the voters table
func WithVoters(voters []models.Voter) MockOption {
	return func(m *MockClient) {
		m.voters = append([]models.Voter(nil), voters...)
	}
}

// WithAdmins seeds the admins table. Passwords are kept in plaintext for AdminLogin.
func WithAdmins(admins []models.Admin) MockOption {
	return func(m *MockClient) {
		for _, a := range admins {
			m.passwords[strings.ToLower(a.Email)] = a.Password
			a.Password = ""
			a.IsAdmin = true
			m.admins = append(m.admins, a)
		}
	}
}

// WithInsertFailures makes the next n InsertVoter calls fail with err.
// A nil err means a retryable Remote error.
func WithInsertFailures(n int, err error) MockOption {
	return func(m *MockClient) {
		m.insertFails = n
		m.insertErr = err
	}
}

// WithLostInsertResponses makes the next n successful InsertVoter calls
// store the record but report a Remote error, as if the response was lost
func WithLostInsertResponses(n int) MockOption {
	return func(m *MockClient) {
		m.lostInserts = n
	}
}

// WithListError sets an error to return from ListVoters
func WithListError(err error) MockOption {
	return func(m *MockClient) {
		m.listErr = err
	}
}

// WithDeleteError sets an error to return from DeleteVoter
func WithDeleteError(err error) MockOption {
	return func(m *MockClient) {
		m.deleteErr = err
	}
}

// WithAdminError sets an error to return from every admin operation
func WithAdminError(err error) MockOption {
	return func(m *MockClient) {
		m.adminErr = err
	}
}

// WithPingError sets an error to return from Ping
func WithPingError(err error) MockOption {
	return func(m *MockClient) {
		m.pingErr = err
	}
}

// WithClock overrides the time source used for created_at
func WithClock(now func() time.Time) MockOption {
	return func(m *MockClient) {
		m.now = now
	}
}

// NewMockClient creates a new mock record store
func NewMockClient(opts ...MockOption) *MockClient {
	m := &MockClient{
		passwords:   make(map[string]string),
		subscribers: make(map[int]subscriber),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetOnline toggles reachability. While offline every call fails with a Remote error.
func (m *MockClient) SetOnline(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = !online
}

// FailNextInserts makes the next n InsertVoter calls fail with err
func (m *MockClient) FailNextInserts(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertFails = n
	m.insertErr = err
}

// InsertCalls returns how many times InsertVoter was called
func (m *MockClient) InsertCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertCalls
}

// Voters returns a copy of the stored voters
func (m *MockClient) Voters() []models.Voter {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Voter(nil), m.voters...)
}

func (m *MockClient) offlineErr() error {
	if m.offline {
		return errors.Remotef("record store unreachable")
	}
	return nil
}

func (m *MockClient) ListVoters(ctx context.Context) ([]models.Voter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.offlineErr(); err != nil {
		return nil, err
	}
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]models.Voter{}, m.voters...), nil
}

func (m *MockClient) GetVoter(ctx context.Context, id string) (*models.Voter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.offlineErr(); err != nil {
		return nil, err
	}
	for _, v := range m.voters {
		if v.ID == id {
			v := v
			return &v, nil
		}
	}
	return nil, errors.NotFoundf("voter %s not found", id)
}

func (m *MockClient) InsertVoter(ctx context.Context, v models.Voter) (*models.Voter, error) {
	m.mu.Lock()
	m.insertCalls++
	if err := m.offlineErr(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if m.insertFails > 0 {
		m.insertFails--
		err := m.insertErr
		m.mu.Unlock()
		if err == nil {
			err = errors.Remotef("insert failed")
		}
		return nil, err
	}
	for _, existing := range m.voters {
		if existing.ID == v.ID || strings.EqualFold(existing.Email, v.Email) {
			m.mu.Unlock()
			return nil, errors.Duplicatef("voter %s or email %s already registered", v.ID, v.Email)
		}
	}
	v.CreatedAt = m.now().UTC()
	m.voters = append(m.voters, v)
	lost := m.lostInserts > 0
	if lost {
		m.lostInserts--
	}
	m.mu.Unlock()

	m.Emit(models.ChangeEvent{Table: models.TableVoters, Type: models.EventInsert, Record: map[string]any{"id": v.ID}})
	if lost {
		return nil, errors.Remotef("connection reset")
	}
	return &v, nil
}

func (m *MockClient) DeleteVoter(ctx context.Context, id string) error {
	m.mu.Lock()
	if err := m.offlineErr(); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.deleteErr != nil {
		m.mu.Unlock()
		return m.deleteErr
	}
	idx := -1
	for i, v := range m.voters {
		if v.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return errors.NotFoundf("voter %s not found", id)
	}
	m.voters = append(m.voters[:idx], m.voters[idx+1:]...)
	m.mu.Unlock()

	m.Emit(models.ChangeEvent{Table: models.TableVoters, Type: models.EventDelete, Record: map[string]any{"id": id}})
	return nil
}

func (m *MockClient) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.offlineErr(); err != nil {
		return nil, err
	}
	if m.adminErr != nil {
		return nil, m.adminErr
	}
	return append([]models.Admin{}, m.admins...), nil
}

func (m *MockClient) CreateAdmin(ctx context.Context, a models.Admin) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.offlineErr(); err != nil {
		return nil, err
	}
	if m.adminErr != nil {
		return nil, m.adminErr
	}
	if a.ID == "" || a.Email == "" || a.Password == "" {
		return nil, errors.Validation("admin id, email and password are required")
	}
	for _, existing := range m.admins {
		if existing.ID == a.ID || strings.EqualFold(existing.Email, a.Email) {
			return nil, errors.Duplicatef("admin %s or email %s already exists", a.ID, a.Email)
		}
	}
	m.passwords[strings.ToLower(a.Email)] = a.Password
	a.Password = ""
	a.IsAdmin = true
	m.admins = append(m.admins, a)
	return &a, nil
}

func (m *MockClient) DeleteAdmin(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.offlineErr(); err != nil {
		return err
	}
	if m.adminErr != nil {
		return m.adminErr
	}
	for i, a := range m.admins {
		if a.ID != id {
			continue
		}
		if len(m.admins) <= 1 {
			return errors.Conflict("cannot delete the last admin")
		}
		delete(m.passwords, strings.ToLower(a.Email))
		m.admins = append(m.admins[:i], m.admins[i+1:]...)
		return nil
	}
	return errors.NotFoundf("admin %s not found", id)
}

func (m *MockClient) AddInitialAdmins(ctx context.Context, admins []models.Admin) (int, error) {
	m.mu.Lock()
	if err := m.offlineErr(); err != nil {
		m.mu.Unlock()
		return 0, err
	}
	if len(m.admins) > 0 {
		m.mu.Unlock()
		return 0, nil
	}
	m.mu.Unlock()

	for _, a := range admins {
		if _, err := m.CreateAdmin(ctx, a); err != nil {
			return 0, err
		}
	}
	return len(admins), nil
}

func (m *MockClient) AdminLogin(ctx context.Context, email, password string) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.offlineErr(); err != nil {
		return nil, err
	}
	if m.adminErr != nil {
		return nil, m.adminErr
	}
	email = strings.ToLower(strings.TrimSpace(email))
	stored, ok := m.passwords[email]
	if !ok || stored != password {
		return nil, errors.Unauthorized("invalid email or password")
	}
	for _, a := range m.admins {
		if strings.EqualFold(a.Email, email) {
			a := a
			return &a, nil
		}
	}
	return nil, errors.Unauthorized("invalid email or password")
}

func (m *MockClient) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.offlineErr(); err != nil {
		return err
	}
	return m.pingErr
}

// Subscribe registers handler and blocks until ctx ends
func (m *MockClient) Subscribe(ctx context.Context, table string, handler func(models.ChangeEvent)) error {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = subscriber{table: table, handler: handler}
	m.mu.Unlock()

	<-ctx.Done()

	m.mu.Lock()
	delete(m.subscribers, id)
	m.mu.Unlock()
	return ctx.Err()
}

// Subscribers returns the number of active subscriptions
func (m *MockClient) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}

// Emit delivers ev to every subscriber of its table
func (m *MockClient) Emit(ev models.ChangeEvent) {
	if ev.At.IsZero() {
		ev.At = m.now().UTC()
	}
	m.mu.Lock()
	var handlers []func(models.ChangeEvent)
	for _, s := range m.subscribers {
		if s.table == ev.Table {
			handlers = append(handlers, s.handler)
		}
	}
	m.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// Ensure MockClient implements Client
var _ Client = (*MockClient)(nil)
