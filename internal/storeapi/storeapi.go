// Package storeapi serves the record store: REST access to the voters and
// admins tables, the admin procedures and a realtime change feed.
package storeapi

import (
	"crypto/subtle"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/abrezinsky/voterreg/internal/errors"
	"github.com/abrezinsky/voterreg/internal/logger"
	"github.com/abrezinsky/voterreg/internal/models"
	"github.com/abrezinsky/voterreg/internal/repository"
	"github.com/abrezinsky/voterreg/internal/websocket"
	"github.com/abrezinsky/voterreg/pkg/recordstore"
)

// API holds the record store handler dependencies
type API struct {
	log    logger.Logger
	repo   repository.FullRepository
	hub    *websocket.Hub
	apiKey string
	now    func() time.Time
}

// New creates the record store API. An empty apiKey disables the key check.
func New(log logger.Logger, repo repository.FullRepository, hub *websocket.Hub, apiKey string) *API {
	return &API{
		log:    log,
		repo:   repo,
		hub:    hub,
		apiKey: apiKey,
		now:    time.Now,
	}
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

type deleteAdminRequest struct {
	ID string `json:"id"`
}

type initialAdminsRequest struct {
	Admins []models.Admin `json:"admins"`
}

type initialAdminsResponse struct {
	Added int `json:"added"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError maps repository errors onto the status codes the client
// expects. Conflict and Duplicate share 409 and are told apart by code.
func (a *API) respondError(w http.ResponseWriter, err error) {
	var appErr *errors.Error
	if !stderrors.As(err, &appErr) {
		a.log.Error("Record store internal error", "error", err)
		respondJSON(w, http.StatusInternalServerError, errorBody{Code: "INTERNAL_SERVER_ERROR", Message: "Internal server error"})
		return
	}

	status, code := http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"
	switch appErr.Kind {
	case errors.ErrNotFound:
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.ErrValidation, errors.ErrInvalidInput:
		status, code = http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.ErrConflict:
		status, code = http.StatusConflict, "CONFLICT"
	case errors.ErrDuplicate:
		status, code = http.StatusConflict, "DUPLICATE"
	case errors.ErrUnauthorized:
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	default:
		a.log.Error("Record store internal error", "error", err)
		respondJSON(w, status, errorBody{Code: code, Message: "Internal server error"})
		return
	}
	respondJSON(w, status, errorBody{Code: code, Message: appErr.Message})
}

func decodeJSON(r *http.Request, target interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		if err == io.EOF {
			return errors.Validation("request body is empty")
		}
		return errors.Validationf("invalid JSON: %v", err)
	}
	return nil
}

// requireAPIKey accepts the key from the apikey header or, for WebSocket
// clients that cannot set headers, the apikey query parameter.
func (a *API) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get(recordstore.APIKeyHeader)
		if key == "" {
			key = r.URL.Query().Get(recordstore.APIKeyHeader)
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(a.apiKey)) != 1 {
			respondJSON(w, http.StatusUnauthorized, errorBody{Code: "UNAUTHORIZED", Message: "invalid api key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// publish announces a row change on the table's realtime topic
func (a *API) publish(table, eventType string, row interface{}) {
	if a.hub == nil {
		return
	}
	a.hub.Publish(table, models.MessageChange, models.ChangeEvent{
		Table:  table,
		Type:   eventType,
		Record: toRecord(row),
		At:     a.now().UTC(),
	})
}

func toRecord(row interface{}) map[string]any {
	raw, err := json.Marshal(row)
	if err != nil {
		return nil
	}
	var rec map[string]any
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil
	}
	return rec
}

// Router returns the record store routes
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", a.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(a.requireAPIKey)

		if a.hub != nil {
			r.Get("/realtime", a.hub.ServeWs)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/rest/voters", a.handleListVoters)
			r.Post("/rest/voters", a.handleInsertVoter)
			r.Get("/rest/voters/{id}", a.handleGetVoter)
			r.Delete("/rest/voters/{id}", a.handleDeleteVoter)

			r.Get("/rest/admins", a.handleListAdmins)
			r.Post("/rpc/create_admin", a.handleCreateAdmin)
			r.Post("/rpc/delete_admin", a.handleDeleteAdmin)
			r.Post("/rpc/add_initial_admins", a.handleAddInitialAdmins)
			r.Post("/rpc/admin_login", a.handleAdminLogin)
		})
	})

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.repo.Ping(r.Context()); err != nil {
		a.log.Warn("Record store health check failed", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ==================== Voters ====================

func (a *API) handleListVoters(w http.ResponseWriter, r *http.Request) {
	voters, err := a.repo.ListVoters(r.Context())
	if err != nil {
		a.respondError(w, err)
		return
	}
	if voters == nil {
		voters = []models.Voter{}
	}
	respondJSON(w, http.StatusOK, voters)
}

func (a *API) handleGetVoter(w http.ResponseWriter, r *http.Request) {
	v, err := a.repo.GetVoter(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (a *API) handleInsertVoter(w http.ResponseWriter, r *http.Request) {
	var v models.Voter
	if err := decodeJSON(r, &v); err != nil {
		a.respondError(w, err)
		return
	}

	created, err := a.repo.InsertVoter(r.Context(), v)
	if err != nil {
		a.respondError(w, err)
		return
	}

	a.log.Info("Voter inserted", "id", created.ID, "email", created.Email)
	a.publish(models.TableVoters, models.EventInsert, created)
	respondJSON(w, http.StatusCreated, created)
}

func (a *API) handleDeleteVoter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.repo.DeleteVoter(r.Context(), id); err != nil {
		a.respondError(w, err)
		return
	}

	a.log.Info("Voter deleted", "id", id)
	a.publish(models.TableVoters, models.EventDelete, map[string]string{"id": id})
	w.WriteHeader(http.StatusNoContent)
}

// ==================== Admins ====================

func (a *API) handleListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := a.repo.ListAdmins(r.Context())
	if err != nil {
		a.respondError(w, err)
		return
	}
	if admins == nil {
		admins = []models.Admin{}
	}
	respondJSON(w, http.StatusOK, admins)
}

func (a *API) handleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	var in models.Admin
	if err := decodeJSON(r, &in); err != nil {
		a.respondError(w, err)
		return
	}

	created, err := a.repo.CreateAdmin(r.Context(), in)
	if err != nil {
		a.respondError(w, err)
		return
	}

	a.log.Info("Admin created", "id", created.ID)
	a.publish(models.TableAdmins, models.EventInsert, created)
	respondJSON(w, http.StatusCreated, created)
}

func (a *API) handleDeleteAdmin(w http.ResponseWriter, r *http.Request) {
	var req deleteAdminRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, err)
		return
	}
	if req.ID == "" {
		a.respondError(w, errors.Validation("admin id is required"))
		return
	}

	if err := a.repo.DeleteAdmin(r.Context(), req.ID); err != nil {
		a.respondError(w, err)
		return
	}

	a.log.Info("Admin deleted", "id", req.ID)
	a.publish(models.TableAdmins, models.EventDelete, map[string]string{"id": req.ID})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAddInitialAdmins(w http.ResponseWriter, r *http.Request) {
	var req initialAdminsRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, err)
		return
	}

	added, err := a.repo.AddInitialAdmins(r.Context(), req.Admins)
	if err != nil {
		a.respondError(w, err)
		return
	}
	if added > 0 {
		a.log.Info("Initial admins added", "count", added)
	}
	respondJSON(w, http.StatusOK, initialAdminsResponse{Added: added})
}

func (a *API) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.respondError(w, err)
		return
	}

	admin, err := a.repo.AdminLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, admin)
}
