package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/workflow"
)

const (
	sessionCookieName = "face_attendance_session"
	sessionDuration   = 12 * time.Hour
	cleanupInterval   = 10 * time.Minute
)

// Session is one operator's browser or API client. It owns the workflow
// state (last processed capture, pending deletions) of that operator.
type Session struct {
	ID        string
	Workflow  *workflow.Session
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SessionManager hands out and validates operator sessions.
type SessionManager struct {
	secret   []byte
	sessions map[string]*Session
	mu       sync.RWMutex
	stop     chan struct{}
	stopOnce sync.Once
}

// NewSessionManager creates a session manager and starts expiring old sessions.
func NewSessionManager(secret string) *SessionManager {
	if secret == "" {
		secret = "face-attendance-dev-secret-change-in-production"
	}
	sm := &SessionManager{
		secret:   []byte(secret),
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
	}
	go sm.cleanupLoop()
	return sm
}

// Stop ends the cleanup goroutine.
func (sm *SessionManager) Stop() {
	sm.stopOnce.Do(func() { close(sm.stop) })
}

func (sm *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-sm.stop:
			return
		case now := <-ticker.C:
			sm.deleteExpired(now)
		}
	}
}

func (sm *SessionManager) deleteExpired(now time.Time) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for id, s := range sm.sessions {
		if now.After(s.ExpiresAt) {
			delete(sm.sessions, id)
		}
	}
}

// CreateSession starts a new operator session.
func (sm *SessionManager) CreateSession() *Session {
	now := time.Now()
	session := &Session{
		ID:        uuid.NewString(),
		Workflow:  workflow.NewSession(),
		CreatedAt: now,
		ExpiresAt: now.Add(sessionDuration),
	}

	sm.mu.Lock()
	sm.sessions[session.ID] = session
	sm.mu.Unlock()

	return session
}

// GetSession retrieves an unexpired session by ID.
func (sm *SessionManager) GetSession(sessionID string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, ok := sm.sessions[sessionID]
	if !ok || time.Now().After(session.ExpiresAt) {
		return nil
	}
	return session
}

// DeleteSession removes a session.
func (sm *SessionManager) DeleteSession(sessionID string) {
	sm.mu.Lock()
	delete(sm.sessions, sessionID)
	sm.mu.Unlock()
}

// SetSessionCookie sets the signed session cookie on the response.
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID + "." + sm.signData(session.ID),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionDuration.Seconds()),
	})
}

// GetSessionFromRequest extracts the session from the signed cookie or the
// X-Session-ID header.
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) *Session {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if id, sig, ok := strings.Cut(cookie.Value, "."); ok && sm.verifySignature(id, sig) {
			if session := sm.GetSession(id); session != nil {
				return session
			}
		}
	}

	if id := r.Header.Get("X-Session-ID"); id != "" {
		return sm.GetSession(id)
	}
	return nil
}

// signData creates an HMAC signature for data.
func (sm *SessionManager) signData(data string) string {
	h := hmac.New(sha256.New, sm.secret)
	h.Write([]byte(data))
	return base64.URLEncoding.EncodeToString(h.Sum(nil))
}

// verifySignature verifies an HMAC signature.
func (sm *SessionManager) verifySignature(data, signature string) bool {
	return hmac.Equal([]byte(signature), []byte(sm.signData(data)))
}

type contextKey string

const sessionContextKey contextKey = "session"

// WithSession attaches the caller's operator session to the request context,
// creating one (and its cookie) on first contact. The session ID is echoed
// in the X-Session-ID response header for non-browser clients.
func WithSession(sm *SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sm.GetSessionFromRequest(r)
			if session == nil {
				session = sm.CreateSession()
				sm.SetSessionCookie(w, session)
			}
			w.Header().Set("X-Session-ID", session.ID)
			next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), session)))
		})
	}
}

// GetSessionFromContext retrieves the session from the request context.
func GetSessionFromContext(ctx context.Context) *Session {
	session, ok := ctx.Value(sessionContextKey).(*Session)
	if !ok {
		return nil
	}
	return session
}

// SetSessionInContext adds a session to the context.
func SetSessionInContext(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, session)
}
