package handlers

import (
	"context"
	"net/http"

	"github.com/abrezinsky/voterreg/internal/filter"
	"github.com/abrezinsky/voterreg/internal/models"
)

// ==================== Admins ====================

func (h *Handlers) handleGetAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.Admins.ListAdmins(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	// Ensure we return an empty array, not null
	if admins == nil {
		admins = []models.Admin{}
	}
	respondOK(w, admins)
}

func (h *Handlers) handleCreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req AdminCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	created, err := h.Admins.CreateAdmin(r.Context(), models.Admin{
		ID:       req.ID,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondCreated(w, created)
}

func (h *Handlers) handleDeleteAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := stringParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.Admins.DeleteAdmin(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}

	respondDeleted(w)
}

// ==================== Voters ====================

// handleGetVoters answers one filtered, oldest-first page of registrations
func (h *Handlers) handleGetVoters(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		respondError(w, err)
		return
	}
	size, err := queryInt(r, "page_size", filter.DefaultPageSize)
	if err != nil {
		respondError(w, err)
		return
	}
	if size > filter.MaxPageSize {
		size = filter.MaxPageSize
	}

	result, err := h.Dashboard.Query(r.Context(), filterFromQuery(r), page, size)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, result)
}

// handleGetVoter returns the full record, including one still waiting in the ledger
func (h *Handlers) handleGetVoter(w http.ResponseWriter, r *http.Request) {
	id, err := stringParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	reg, err := h.Submission.Lookup(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, reg.Voter)
}

func (h *Handlers) handleDeleteVoter(w http.ResponseWriter, r *http.Request) {
	id, err := stringParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.Dashboard.DeleteVoter(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}

	respondDeleted(w)
}

func (h *Handlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Dashboard.Stats(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, stats)
}

// ==================== Export ====================

// downloadWriter sets the attachment headers on the first write, so a load
// failure before any row can still be answered as JSON.
type downloadWriter struct {
	w        http.ResponseWriter
	filename string
	started  bool
}

func (d *downloadWriter) Write(p []byte) (int, error) {
	if !d.started {
		d.started = true
		d.w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		d.w.Header().Set("Content-Disposition", `attachment; filename="`+d.filename+`"`)
		d.w.WriteHeader(http.StatusOK)
	}
	return d.w.Write(p)
}

func (h *Handlers) handleExport(w http.ResponseWriter, r *http.Request) {
	dw := &downloadWriter{w: w, filename: h.Dashboard.ExportFilename()}
	if _, err := h.Dashboard.Export(r.Context(), dw); err != nil {
		if !dw.started {
			respondError(w, err)
		}
		return
	}
}

func (h *Handlers) handleArchive(w http.ResponseWriter, r *http.Request) {
	key, err := h.Dashboard.Archive(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondCreated(w, ArchiveResponse{Key: key})
}

// ==================== Recovery ====================

func (h *Handlers) handleRecoveryStatus(w http.ResponseWriter, r *http.Request) {
	respondOK(w, h.Recovery.Status())
}

// handleRecover runs a recovery pass now, detached from the request context
func (h *Handlers) handleRecover(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Recovery.Recover(context.WithoutCancel(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, summary)
}

func (h *Handlers) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Dashboard.Refresh(r.Context()); err != nil {
		respondError(w, err)
		return
	}

	respondSuccess(w, "Voters reloaded")
}
