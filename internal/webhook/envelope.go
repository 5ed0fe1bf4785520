// ABOUTME: Messenger page envelope decoding.
// ABOUTME: Flattens entry[].messaging[] into events of (sender, mid, text).

package webhook

import (
	"encoding/json"
	"fmt"
)

// Event is one decoded inbound messaging event. Text is empty for
// non-text events (attachments, delivery receipts).
type Event struct {
	SenderID  string
	MessageID string
	Text      string
}

// envelope mirrors the subset of the Messenger webhook payload the relay
// cares about.
type envelope struct {
	Object string `json:"object"`
	Entry  []struct {
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Message *struct {
				MID  string `json:"mid"`
				Text string `json:"text"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

// decodeEnvelope parses a webhook body into events. Payloads for objects
// other than "page" are rejected.
func decodeEnvelope(body []byte) ([]Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding webhook envelope: %w", err)
	}
	if env.Object != "page" {
		return nil, fmt.Errorf("unsupported webhook object %q", env.Object)
	}

	var events []Event
	for _, entry := range env.Entry {
		for _, m := range entry.Messaging {
			if m.Message == nil {
				continue
			}
			events = append(events, Event{
				SenderID:  m.Sender.ID,
				MessageID: m.Message.MID,
				Text:      m.Message.Text,
			})
		}
	}
	return events, nil
}
