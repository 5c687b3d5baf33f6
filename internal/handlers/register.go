package handlers

import (
	"net/http"

	"github.com/abrezinsky/voterreg/internal/models"
)

// ==================== Public registration ====================

// handleRegister accepts a registration. A registration the record store
// could not take is kept in the ledger and answered with 202.
func (h *Handlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	created, err := h.Submission.Submit(r.Context(), req.Voter())
	if err != nil {
		respondError(w, err)
		return
	}

	respondCreated(w, RegisterResponse{
		Status: StatusRegistered,
		ID:     created.ID,
		Voter:  created,
	})
}

func (h *Handlers) handleGetRegistration(w http.ResponseWriter, r *http.Request) {
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

	respondOK(w, registrationStatus(reg))
}

func (h *Handlers) handleRegistrationQR(w http.ResponseWriter, r *http.Request) {
	id, err := stringParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	png, err := h.Submission.ConfirmationQR(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

func (h *Handlers) handleRegions(w http.ResponseWriter, r *http.Request) {
	respondOK(w, RegionsResponse{
		Regions:        models.Regions(),
		Constituencies: models.RegionCatalogue(),
	})
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	clients := 0
	if h.Hub != nil {
		clients = h.Hub.ClientCount()
	}
	respondOK(w, HealthResponse{Status: "ok", Clients: clients})
}
