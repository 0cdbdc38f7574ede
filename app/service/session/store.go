package session

import (
	"sync"

	"github.com/samber/do"
)

// PendingRelay marks a caller parked on hold awaiting an operator decision.
type PendingRelay struct {
	CallerID string
	CCID     string
}

// Store owns every CallSession and the pending-relay registry. Access is
// key-scoped only; callers never see the underlying maps.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	pending  []PendingRelay
}

func New(_ *do.Injector) (*Store, error) {
	return NewStore(), nil
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the session for ccid, lazily creating a minimal one.
// Creation is idempotent: a late event for an unknown ccid never fails.
func (s *Store) GetOrCreate(ccid, callerID string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[ccid]; ok {
		return sess
	}

	sess := &Session{
		CCID:     ccid,
		CallerID: callerID,
	}
	s.sessions[ccid] = sess

	return sess
}

func (s *Store) Get(ccid string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[ccid]

	return sess, ok
}

func (s *Store) Delete(ccid string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, ccid)
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// AddPending registers a parked caller. At most one entry exists per caller
// id; a repeat add for the same caller moves it to the back of the line.
func (s *Store) AddPending(callerID, ccid string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removePendingLocked(callerID)
	s.pending = append(s.pending, PendingRelay{CallerID: callerID, CCID: ccid})
}

// PopOldestPending removes and returns the entry that has waited longest.
// Operator commands resolve exactly one relay each, oldest first.
func (s *Store) PopOldestPending() (PendingRelay, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return PendingRelay{}, false
	}

	entry := s.pending[0]
	s.pending = s.pending[1:]

	return entry, true
}

func (s *Store) RemovePending(callerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.removePendingLocked(callerID)
}

func (s *Store) removePendingLocked(callerID string) bool {
	for i, entry := range s.pending {
		if entry.CallerID == callerID {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return true
		}
	}

	return false
}

func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pending)
}
