// Package session holds the per-user pending-disambiguation state.
// A session's presence in the store is the single source of truth for
// whether a user is mid-dialogue.
package session
