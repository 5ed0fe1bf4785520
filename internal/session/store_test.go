// ABOUTME: Tests for the in-memory session store.
// ABOUTME: Validates overwrite semantics, atomic take, compare-and-clear, and concurrency.

package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geupsik/meal-gateway/internal/lookup"
)

func twoCandidates() []lookup.Candidate {
	return []lookup.Candidate{
		{Name: "A고", Region: "서울", OfficeCode: "B10", SchoolCode: "100"},
		{Name: "B고", Region: "경기", OfficeCode: "J10", SchoolCode: "200"},
	}
}

func TestStore_SetAndGet(t *testing.T) {
	st := NewStore()

	assert.False(t, st.Exists("user-1"))

	created := st.Set("user-1", twoCandidates())
	require.NotNil(t, created)
	assert.NotEmpty(t, created.Token)
	assert.False(t, created.CreatedAt.IsZero())

	assert.True(t, st.Exists("user-1"))

	got, ok := st.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, created.Token, got.Token)
	assert.Len(t, got.Candidates, 2)

	// Other users are unaffected
	assert.False(t, st.Exists("user-2"))
}

func TestStore_SetOverwritesPrevious(t *testing.T) {
	st := NewStore()

	first := st.Set("user-1", twoCandidates())
	second := st.Set("user-1", twoCandidates()[:1])

	assert.NotEqual(t, first.Token, second.Token)

	// The displaced session signals clearance to its waiters
	select {
	case <-first.Done():
	default:
		t.Fatal("displaced session's Done channel should be closed")
	}

	// The new session is live
	got, ok := st.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, second.Token, got.Token)
	assert.Len(t, got.Candidates, 1)
}

func TestStore_Clear_Idempotent(t *testing.T) {
	st := NewStore()

	// Clearing an absent session is not an error
	st.Clear("user-1")

	sess := st.Set("user-1", twoCandidates())
	st.Clear("user-1")
	assert.False(t, st.Exists("user-1"))

	select {
	case <-sess.Done():
	default:
		t.Fatal("cleared session's Done channel should be closed")
	}

	// Clearing again is a no-op
	st.Clear("user-1")
}

func TestStore_Take(t *testing.T) {
	st := NewStore()

	_, ok := st.Take("user-1")
	assert.False(t, ok)

	created := st.Set("user-1", twoCandidates())

	taken, ok := st.Take("user-1")
	require.True(t, ok)
	assert.Equal(t, created.Token, taken.Token)
	assert.False(t, st.Exists("user-1"))

	select {
	case <-taken.Done():
	default:
		t.Fatal("taken session's Done channel should be closed")
	}

	_, ok = st.Take("user-1")
	assert.False(t, ok)
}

func TestStore_Take_ExactlyOneWinner(t *testing.T) {
	st := NewStore()
	st.Set("user-1", twoCandidates())

	const numGoroutines = 50

	var wins int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			if _, ok := st.Take("user-1"); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins, "exactly one goroutine should take the session")
}

func TestStore_ClearIfToken(t *testing.T) {
	st := NewStore()
	sess := st.Set("user-1", twoCandidates())

	assert.False(t, st.ClearIfToken("user-1", "wrong-token"))
	assert.True(t, st.Exists("user-1"), "mismatched token must not clear")

	assert.True(t, st.ClearIfToken("user-1", sess.Token))
	assert.False(t, st.Exists("user-1"))

	// Second attempt loses: the session is already gone
	assert.False(t, st.ClearIfToken("user-1", sess.Token))
}

func TestStore_ClearIfToken_SparesNewerSession(t *testing.T) {
	st := NewStore()
	old := st.Set("user-1", twoCandidates())
	fresh := st.Set("user-1", twoCandidates())

	// An expiry armed for the old session must not tear down the new one
	assert.False(t, st.ClearIfToken("user-1", old.Token))

	got, ok := st.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, fresh.Token, got.Token)
}

func TestStore_Concurrent(t *testing.T) {
	st := NewStore()

	const numGoroutines = 50
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			user := string(rune('a' + id%5))
			sess := st.Set(user, twoCandidates())
			st.Exists(user)
			st.Get(user)
			st.ClearIfToken(user, sess.Token)
		}(i)
	}
	wg.Wait()

	// Still functional afterwards
	st.Set("final", twoCandidates())
	assert.True(t, st.Exists("final"))
}
