// Package notify delivers outbound replies to end users through the
// Messenger Send API.
package notify
