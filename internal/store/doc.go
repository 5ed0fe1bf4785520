// Package store persists the exchange ledger: every inbound message and
// outbound reply is recorded for audit and debugging. Session state is
// deliberately not persisted; it lives in memory only.
package store
