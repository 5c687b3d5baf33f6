// Package recordstore provides a client for the remote record store that owns
// the voters and admins tables.
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/abrezinsky/voterreg/internal/errors"
	"github.com/abrezinsky/voterreg/internal/logger"
	"github.com/abrezinsky/voterreg/internal/models"
	"github.com/abrezinsky/voterreg/internal/retry"
)

// APIKeyHeader carries the shared key on every request
const APIKeyHeader = "apikey"

// Client defines the operations the application needs from the record store
type Client interface {
	// ListVoters returns every voter, oldest first
	ListVoters(ctx context.Context) ([]models.Voter, error)
	GetVoter(ctx context.Context, id string) (*models.Voter, error)
	// InsertVoter stores a registration. A taken id or email is a Duplicate error.
	InsertVoter(ctx context.Context, v models.Voter) (*models.Voter, error)
	DeleteVoter(ctx context.Context, id string) error

	ListAdmins(ctx context.Context) ([]models.Admin, error)
	CreateAdmin(ctx context.Context, a models.Admin) (*models.Admin, error)
	// DeleteAdmin refuses to remove the last admin with a Conflict error
	DeleteAdmin(ctx context.Context, id string) error
	AddInitialAdmins(ctx context.Context, admins []models.Admin) (int, error)
	// AdminLogin checks credentials server-side
	AdminLogin(ctx context.Context, email, password string) (*models.Admin, error)

	// Ping reports whether the store is reachable
	Ping(ctx context.Context) error
	// Subscribe delivers change events for table until ctx ends
	Subscribe(ctx context.Context, table string, handler func(models.ChangeEvent)) error
}

// HTTPClient talks to the record store over HTTP and WebSocket
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        logger.Logger
	reconnect  retry.Policy
}

// NewHTTPClient creates a new record store client
func NewHTTPClient(baseURL, apiKey string, log logger.Logger) *HTTPClient {
	return NewHTTPClientWithHTTPClient(baseURL, apiKey, &http.Client{Timeout: 15 * time.Second}, log)
}

// NewHTTPClientWithHTTPClient creates a client with a custom http.Client
func NewHTTPClientWithHTTPClient(baseURL, apiKey string, httpClient *http.Client, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		log:        log,
		reconnect: retry.Policy{
			BaseDelay:  500 * time.Millisecond,
			Multiplier: 2,
			MaxDelay:   30 * time.Second,
			Jitter:     true,
		},
	}
}

// BaseURL returns the configured record store URL
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// errorBody is the JSON error shape returned by the record store
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

// statusError maps a non-2xx response onto an application error kind
func statusError(status int, body []byte) error {
	var eb errorBody
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &eb) == nil && eb.Message != "" {
		msg = eb.Message
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusConflict && eb.Code == "CONFLICT":
		return errors.Conflict(msg)
	case status == http.StatusConflict:
		return errors.Duplicate(msg)
	case status == http.StatusBadRequest:
		return errors.Validation(msg)
	case status == http.StatusNotFound:
		return errors.NotFound(msg)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return errors.Unauthorized(msg)
	case status == http.StatusTooManyRequests, status >= 500:
		return errors.Remotef("record store returned %d: %s", status, msg)
	default:
		return errors.Internalf("record store returned %d: %s", status, msg)
	}
}

// doRequest sends a JSON request and decodes a JSON response into out.
// Transport failures, 429 and 5xx responses are Remote (retryable) errors.
func (c *HTTPClient) doRequest(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return errors.Internal(err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Internal(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set(APIKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug("Record store request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Remote(err, "failed to reach record store")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Remote(err, "failed to read record store response")
	}

	c.log.Debug("Record store response", "status", resp.StatusCode, "path", path)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, respBody)
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Remote(err, "failed to parse record store response")
	}
	return nil
}

// ListVoters retrieves all voters
func (c *HTTPClient) ListVoters(ctx context.Context) ([]models.Voter, error) {
	var voters []models.Voter
	if err := c.doRequest(ctx, http.MethodGet, "/rest/voters", nil, &voters); err != nil {
		return nil, err
	}
	return voters, nil
}

// GetVoter retrieves one voter
func (c *HTTPClient) GetVoter(ctx context.Context, id string) (*models.Voter, error) {
	var v models.Voter
	if err := c.doRequest(ctx, http.MethodGet, "/rest/voters/"+url.PathEscape(id), nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// InsertVoter creates a voter
func (c *HTTPClient) InsertVoter(ctx context.Context, v models.Voter) (*models.Voter, error) {
	var created models.Voter
	if err := c.doRequest(ctx, http.MethodPost, "/rest/voters", v, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteVoter removes a voter
func (c *HTTPClient) DeleteVoter(ctx context.Context, id string) error {
	return c.doRequest(ctx, http.MethodDelete, "/rest/voters/"+url.PathEscape(id), nil, nil)
}

// ListAdmins retrieves all admins
func (c *HTTPClient) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	var admins []models.Admin
	if err := c.doRequest(ctx, http.MethodGet, "/rest/admins", nil, &admins); err != nil {
		return nil, err
	}
	return admins, nil
}

// CreateAdmin calls the create_admin procedure
func (c *HTTPClient) CreateAdmin(ctx context.Context, a models.Admin) (*models.Admin, error) {
	var created models.Admin
	if err := c.doRequest(ctx, http.MethodPost, "/rpc/create_admin", a, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteAdmin calls the delete_admin procedure
func (c *HTTPClient) DeleteAdmin(ctx context.Context, id string) error {
	return c.doRequest(ctx, http.MethodPost, "/rpc/delete_admin", map[string]string{"id": id}, nil)
}

// AddInitialAdmins calls the add_initial_admins procedure
func (c *HTTPClient) AddInitialAdmins(ctx context.Context, admins []models.Admin) (int, error) {
	var resp struct {
		Added int `json:"added"`
	}
	req := map[string][]models.Admin{"admins": admins}
	if err := c.doRequest(ctx, http.MethodPost, "/rpc/add_initial_admins", req, &resp); err != nil {
		return 0, err
	}
	return resp.Added, nil
}

// AdminLogin calls the admin_login procedure
func (c *HTTPClient) AdminLogin(ctx context.Context, email, password string) (*models.Admin, error) {
	var a models.Admin
	req := map[string]string{"email": email, "password": password}
	if err := c.doRequest(ctx, http.MethodPost, "/rpc/admin_login", req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Ping checks the store's health endpoint
func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodGet, "/health", nil, nil)
}

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)
