package handlers

import (
	"net/http"

	"github.com/abrezinsky/voterreg/internal/auth"
	"github.com/abrezinsky/voterreg/internal/services"
)

// handleLogin checks admin credentials and starts a session
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	token, sess, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}

	h.Auth.SetSessionCookie(w, token)
	respondOK(w, sessionResponse(sess))
}

// handleLogout clears the session
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		h.Auth.Logout(cookie.Value)
	}

	auth.ClearSessionCookie(w)
	respondSuccess(w, "Logged out")
}

// handleSession reports who is logged in
func (h *Handlers) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.Auth.GetSessionFromRequest(r)
	if !ok {
		respondError(w, services.ErrNotLoggedIn)
		return
	}
	respondOK(w, sessionResponse(sess))
}
