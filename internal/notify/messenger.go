// ABOUTME: Messenger Send API client implementing the Notifier interface.
// ABOUTME: Delivery is one-shot; failures are logged by callers and never retried.

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultGraphURL = "https://graph.facebook.com/v12.0"

// OutboundReply is the payload handed to a Notifier.
type OutboundReply struct {
	Text string
}

// Notifier delivers a reply to an end user.
type Notifier interface {
	Deliver(ctx context.Context, userID string, reply OutboundReply) error
}

// MessengerClient sends messages through the Facebook Graph API.
type MessengerClient struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

// MessengerOption customizes a MessengerClient.
type MessengerOption func(*MessengerClient)

// WithBaseURL overrides the Graph API base URL. Used in tests.
func WithBaseURL(u string) MessengerOption {
	return func(c *MessengerClient) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) MessengerOption {
	return func(c *MessengerClient) {
		c.client = hc
	}
}

// NewMessengerClient creates a Send API client using the given page access
// token.
func NewMessengerClient(accessToken string, opts ...MessengerOption) *MessengerClient {
	c := &MessengerClient{
		baseURL:     defaultGraphURL,
		accessToken: accessToken,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// sendRequest is the Send API request body.
type sendRequest struct {
	Recipient recipient `json:"recipient"`
	Message   message   `json:"message"`
}

type recipient struct {
	ID string `json:"id"`
}

type message struct {
	Text string `json:"text"`
}

// Deliver posts the reply to the Send API.
func (c *MessengerClient) Deliver(ctx context.Context, userID string, reply OutboundReply) error {
	body, err := json.Marshal(sendRequest{
		Recipient: recipient{ID: userID},
		Message:   message{Text: reply.Text},
	})
	if err != nil {
		return fmt.Errorf("marshaling send request: %w", err)
	}

	sendURL := fmt.Sprintf("%s/me/messages?access_token=%s", c.baseURL, c.accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling send API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send API status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
