// Package workflow orchestrates the identity store and the attendance ledger:
// registration, attendance capture and two-phase identity deletion.
package workflow

import (
	"crypto/sha256"
	"sync"
	"time"
)

// PendingDeletionTTL bounds how long a deletion request waits for confirmation.
const PendingDeletionTTL = 5 * time.Minute

// Session is the state of one operator: the last processed capture and
// deletion requests awaiting confirmation. It is passed explicitly to the
// workflows and is safe for concurrent use.
type Session struct {
	mu          sync.Mutex
	lastCapture [sha256.Size]byte
	hasCapture  bool
	pending     map[string]PendingDeletion
}

// NewSession creates an empty operator session.
func NewSession() *Session {
	return &Session{pending: make(map[string]PendingDeletion)}
}

// isLastCapture reports whether sum equals the last processed capture. Caller holds mu.
func (s *Session) isLastCapture(sum [sha256.Size]byte) bool {
	return s.hasCapture && s.lastCapture == sum
}

// rememberCapture records sum as processed. Caller holds mu.
func (s *Session) rememberCapture(sum [sha256.Size]byte) {
	s.lastCapture = sum
	s.hasCapture = true
}

// ResetCapture forgets the last processed capture so identical bytes are
// processed again.
func (s *Session) ResetCapture() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasCapture = false
}

func (s *Session) addPending(p PendingDeletion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		s.pending = make(map[string]PendingDeletion)
	}
	s.pending[p.Token] = p
}

// takePending removes and returns the pending deletion for token if it has not expired.
func (s *Session) takePending(token string, now time.Time) (PendingDeletion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[token]
	if !ok {
		return PendingDeletion{}, false
	}
	delete(s.pending, token)
	if now.After(p.ExpiresAt) {
		return PendingDeletion{}, false
	}
	return p, true
}

// Pending returns the unexpired deletion requests of the session.
func (s *Session) Pending(now time.Time) []PendingDeletion {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []PendingDeletion
	for token, p := range s.pending {
		if now.After(p.ExpiresAt) {
			delete(s.pending, token)
			continue
		}
		out = append(out, p)
	}
	return out
}
