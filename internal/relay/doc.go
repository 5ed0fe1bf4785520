// Package relay provides webhook event deduplication using a time-based
// cache, since Messenger redelivers events that are not acknowledged fast
// enough.
package relay
