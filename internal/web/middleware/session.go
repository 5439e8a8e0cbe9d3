package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/xiangxin/internal/constants"
	"github.com/kozaktomas/xiangxin/internal/logger"
	"github.com/kozaktomas/xiangxin/internal/session"
)

const sessionCookieName = "xiangxin_session"

// SessionFactory creates the state machine for a new visitor.
type SessionFactory func() *session.Session

type sessionEntry struct {
	session   *session.Session
	expiresAt time.Time
}

// SessionManager maps signed cookies to capture sessions and closes idle ones.
type SessionManager struct {
	secret   []byte
	factory  SessionFactory
	duration time.Duration
	sessions map[string]*sessionEntry
	mu       sync.Mutex

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSessionManager creates a new session manager and starts its cleanup loop.
func NewSessionManager(secret string, factory SessionFactory) *SessionManager {
	// Use a default secret if none provided (for development)
	if secret == "" {
		secret = "xiangxin-dev-secret-change-in-production"
	}
	sm := &SessionManager{
		secret:   []byte(secret),
		factory:  factory,
		duration: constants.SessionDuration,
		sessions: make(map[string]*sessionEntry),
		stopCh:   make(chan struct{}),
	}
	go sm.cleanupLoop()
	return sm
}

// Resolve returns the caller's session, creating one (and setting the cookie)
// when the request carries no valid cookie. Every hit extends the expiry.
func (sm *SessionManager) Resolve(w http.ResponseWriter, r *http.Request) (string, *session.Session) {
	if id, ok := sm.idFromRequest(r); ok {
		sm.mu.Lock()
		entry, found := sm.sessions[id]
		if found && time.Now().Before(entry.expiresAt) {
			entry.expiresAt = time.Now().Add(sm.duration)
			sm.mu.Unlock()
			return id, entry.session
		}
		sm.mu.Unlock()
	}

	id := uuid.NewString()
	s := sm.factory()

	sm.mu.Lock()
	sm.sessions[id] = &sessionEntry{session: s, expiresAt: time.Now().Add(sm.duration)}
	sm.mu.Unlock()

	sm.setSessionCookie(w, id)
	logger.WithField("session", id).Debug("created capture session")
	return id, s
}

// Get returns the session with the given ID, or nil.
func (sm *SessionManager) Get(id string) *session.Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	entry, ok := sm.sessions[id]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil
	}
	return entry.session
}

// Delete closes and removes a session.
func (sm *SessionManager) Delete(id string) {
	sm.mu.Lock()
	entry, ok := sm.sessions[id]
	delete(sm.sessions, id)
	sm.mu.Unlock()

	if ok {
		entry.session.Close()
	}
}

// Count returns the number of live sessions.
func (sm *SessionManager) Count() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.sessions)
}

// Stop ends the cleanup loop and closes every session.
func (sm *SessionManager) Stop() {
	sm.stopOnce.Do(func() {
		close(sm.stopCh)

		sm.mu.Lock()
		entries := sm.sessions
		sm.sessions = make(map[string]*sessionEntry)
		sm.mu.Unlock()

		for _, entry := range entries {
			entry.session.Close()
		}
	})
}

func (sm *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(constants.SessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-sm.stopCh:
			return
		case now := <-ticker.C:
			if n := sm.cleanup(now); n > 0 {
				logger.WithField("count", n).Info("closed expired capture sessions")
			}
		}
	}
}

// cleanup closes sessions that expired before now and returns how many.
func (sm *SessionManager) cleanup(now time.Time) int {
	var expired []*session.Session

	sm.mu.Lock()
	for id, entry := range sm.sessions {
		if now.After(entry.expiresAt) {
			expired = append(expired, entry.session)
			delete(sm.sessions, id)
		}
	}
	sm.mu.Unlock()

	// Close may wait for an analysis to unwind; keep it outside the lock.
	for _, s := range expired {
		s.Close()
	}
	return len(expired)
}

func (sm *SessionManager) idFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return "", false
	}
	id, signature, ok := strings.Cut(cookie.Value, ".")
	if !ok || !sm.verifySignature(id, signature) {
		return "", false
	}
	return id, true
}

// setSessionCookie sets the signed session cookie on the response
func (sm *SessionManager) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id + "." + sm.signData(id),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sm.duration.Seconds()),
	})
}

// signData creates an HMAC signature for data
func (sm *SessionManager) signData(data string) string {
	h := hmac.New(sha256.New, sm.secret)
	h.Write([]byte(data))
	return base64.URLEncoding.EncodeToString(h.Sum(nil))
}

// verifySignature verifies an HMAC signature
func (sm *SessionManager) verifySignature(data, signature string) bool {
	expected := sm.signData(data)
	return hmac.Equal([]byte(signature), []byte(expected))
}
