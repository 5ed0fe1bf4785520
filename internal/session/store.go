// ABOUTME: Thread-safe in-memory store for pending disambiguation sessions.
// ABOUTME: One live session per user; atomic take and compare-and-clear for race safety.

package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/geupsik/meal-gateway/internal/lookup"
)

// Session is one unresolved multi-candidate disambiguation for a user.
// The user has been shown a numbered list of candidates and is expected to
// answer with an index before the timeout supervisor expires the session.
type Session struct {
	// User is the platform user ID the session belongs to.
	User string

	// Token uniquely identifies this session instance. A supervisor armed
	// for one session must not mistake a newer session for the one it was
	// watching, so clears can be conditioned on the token.
	Token string

	// Candidates are the lookup results, in the order they were listed.
	Candidates []lookup.Candidate

	// CreatedAt records when the session was stored.
	CreatedAt time.Time

	// done is closed when the session is removed from the store, either by
	// consumption, expiry, or being displaced by a newer session.
	done chan struct{}
}

// Done returns a channel that is closed once the session is no longer
// stored. Waiters use this instead of polling the store.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Store keeps at most one live session per user.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Exists reports whether a live session is stored for the user.
func (st *Store) Exists(user string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.sessions[user]
	return ok
}

// Get returns the live session for the user, if any.
func (st *Store) Get(user string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[user]
	return s, ok
}

// Set stores a new session for the user, displacing any existing one
// (last-writer-wins, no merge). The displaced session's Done channel is
// closed so its supervisor observes the replacement as a clearance.
func (st *Store) Set(user string, candidates []lookup.Candidate) *Session {
	s := &Session{
		User:       user,
		Token:      uuid.New().String(),
		Candidates: candidates,
		CreatedAt:  time.Now().UTC(),
		done:       make(chan struct{}),
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if prev, ok := st.sessions[user]; ok {
		close(prev.done)
	}
	st.sessions[user] = s
	return s
}

// Take atomically removes and returns the session for the user. This is the
// resolving path: exactly one caller can win a session, so a concurrently
// expiring supervisor observes the clearance and stays silent.
func (st *Store) Take(user string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[user]
	if !ok {
		return nil, false
	}
	delete(st.sessions, user)
	close(s.done)
	return s, true
}

// Clear removes the session for the user. Clearing an absent session is a
// no-op, not an error.
func (st *Store) Clear(user string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[user]; ok {
		delete(st.sessions, user)
		close(s.done)
	}
}

// ClearIfToken removes the session for the user only if the stored session
// still carries the given token. It returns true when this call performed
// the removal. The expiry path uses this so it never tears down a newer
// session created after the one it was armed for.
func (st *Store) ClearIfToken(user, token string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[user]
	if !ok || s.Token != token {
		return false
	}
	delete(st.sessions, user)
	close(s.done)
	return true
}
