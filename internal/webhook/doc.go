// Package webhook exposes the inbound Messenger webhook endpoints: the
// verify-token handshake and the event receiver that feeds the
// conversation engine.
package webhook
