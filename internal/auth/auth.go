package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/abrezinsky/voterreg/internal/models"
)

const (
	CookieName    = "voterreg_session"
	SessionExpiry = 3 * time.Hour
)

// Words for generated bootstrap passwords
var passwordWords = []string{
	"baobab", "kora", "river", "ballot", "sunrise",
	"harmony", "mango", "pirogue", "savanna", "drum",
	"heron", "kankurang", "tide", "village", "market",
	"palm", "riverbank", "lantern", "unity",
}

// Verifier checks admin credentials
type Verifier interface {
	Login(ctx context.Context, email, password string) (*models.Admin, error)
}

// Session is an authenticated admin with a fixed validity window
type Session struct {
	Email     string    `json:"email"`
	Timestamp time.Time `json:"timestamp"`
	Expires   time.Time `json:"expires"`
}

// Valid reports whether the session has not expired at now
func (s Session) Valid(now time.Time) bool {
	return now.Before(s.Expires)
}

// Auth handles admin authentication. Sessions live in memory, keyed by an
// opaque cookie token.
type Auth struct {
	verifier Verifier
	validity time.Duration
	sessions map[string]Session
	mu       sync.RWMutex
	now      func() time.Time
}

// New creates a new Auth instance. A non-positive validity uses SessionExpiry.
func New(verifier Verifier, validity time.Duration) *Auth {
	if validity <= 0 {
		validity = SessionExpiry
	}
	return &Auth{
		verifier: verifier,
		validity: validity,
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

// GeneratePassword creates a random 3-word password
func GeneratePassword() string {
	words := make([]string, 3)
	for i := range words {
		idx := randomInt(len(passwordWords))
		words[i] = passwordWords[idx]
	}
	return strings.Join(words, "-")
}

// Login verifies credentials and returns a session token if valid
func (a *Auth) Login(ctx context.Context, email, password string) (string, Session, error) {
	admin, err := a.verifier.Login(ctx, email, password)
	if err != nil {
		return "", Session{}, err
	}

	now := a.now()
	sess := Session{Email: admin.Email, Timestamp: now, Expires: now.Add(a.validity)}
	token := generateToken()

	a.mu.Lock()
	a.sessions[token] = sess
	a.mu.Unlock()

	return token, sess, nil
}

// Logout invalidates a session token
func (a *Auth) Logout(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

// ValidateSession returns the session for token if it exists and has not expired
func (a *Auth) ValidateSession(token string) (Session, bool) {
	a.mu.RLock()
	sess, exists := a.sessions[token]
	a.mu.RUnlock()

	if !exists {
		return Session{}, false
	}

	if !sess.Valid(a.now()) {
		a.mu.Lock()
		delete(a.sessions, token)
		a.mu.Unlock()
		return Session{}, false
	}

	return sess, true
}

// PurgeExpired drops every expired session and returns how many were removed
func (a *Auth) PurgeExpired() int {
	now := a.now()
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for token, sess := range a.sessions {
		if !sess.Valid(now) {
			delete(a.sessions, token)
			n++
		}
	}
	return n
}

// GetSessionFromRequest extracts and validates the session from a request
func (a *Auth) GetSessionFromRequest(r *http.Request) (Session, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return Session{}, false
	}
	return a.ValidateSession(cookie.Value)
}

type sessionKey struct{}

// SessionFromContext returns the session attached by RequireAuthAPI
func SessionFromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(Session)
	return sess, ok
}

// RequireAuthAPI middleware for API endpoints (returns 401)
func (a *Auth) RequireAuthAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess, ok := a.GetSessionFromRequest(r); ok {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"UNAUTHORIZED","error":"Unauthorized - please log in"}`))
	})
}

// SetSessionCookie sets the session cookie on the response
func (a *Auth) SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(a.validity.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// generateToken creates a random session token
func generateToken() string {
	bytes := make([]byte, 32)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// randomInt returns a random int in [0, max)
func randomInt(max int) int {
	bytes := make([]byte, 1)
	rand.Read(bytes)
	return int(bytes[0]) % max
}
