// Package engine contains the conversation state machine: it interprets
// inbound messages, runs the numbered-list disambiguation dialogue backed by
// the session store, and supervises per-session timeouts.
package engine
