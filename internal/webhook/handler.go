// ABOUTME: HTTP handlers for the Messenger webhook: verification and event intake.
// ABOUTME: Records exchanges in the ledger, runs the engine, arms the supervisor, delivers.

package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/geupsik/meal-gateway/internal/engine"
	"github.com/geupsik/meal-gateway/internal/notify"
	"github.com/geupsik/meal-gateway/internal/relay"
	"github.com/geupsik/meal-gateway/internal/store"
)

// maxBodySize bounds webhook request bodies.
const maxBodySize = 1 << 20

// Handler serves the webhook endpoints.
type Handler struct {
	verifyToken string
	engine      *engine.Engine
	supervisor  *engine.Supervisor
	notifier    notify.Notifier
	dedupe      *relay.Cache
	ledger      store.Store
	logger      *slog.Logger
}

// NewHandler creates the webhook handler.
func NewHandler(verifyToken string, eng *engine.Engine, sup *engine.Supervisor, n notify.Notifier, dedupe *relay.Cache, ledger store.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		verifyToken: verifyToken,
		engine:      eng,
		supervisor:  sup,
		notifier:    n,
		dedupe:      dedupe,
		ledger:      ledger,
		logger:      logger.With("component", "webhook"),
	}
}

// Routes returns the router for the webhook endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/webhook", h.handleVerify)
	r.Post("/webhook", h.handleEvent)
	r.Get("/health", h.handleHealth)
	return r
}

// handleHealth reports liveness for the health subcommand and monitors.
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleVerify answers the Messenger subscription handshake: echo
// hub.challenge when hub.mode is "subscribe" and the verify token matches.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode != "subscribe" || token != h.verifyToken {
		h.logger.Warn("webhook verification rejected", "mode", mode)
		http.Error(w, "not_authorized", http.StatusForbidden)
		return
	}
	if challenge == "" {
		http.Error(w, "missing hub.challenge", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(challenge))
}

// handleEvent decodes the page envelope and processes each messaging event.
// Always acknowledges with 200 for decodable payloads so Messenger does not
// retry events we have already accepted.
func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "reading body", http.StatusBadRequest)
		return
	}

	events, err := decodeEnvelope(body)
	if err != nil {
		h.logger.Warn("rejecting webhook payload", "error", err)
		http.Error(w, "bad envelope", http.StatusNotFound)
		return
	}

	for _, evt := range events {
		h.process(r, evt)
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":200}`))
}

// process handles one messaging event end to end.
func (h *Handler) process(r *http.Request, evt Event) {
	if evt.MessageID != "" && h.dedupe.CheckAndMark(evt.MessageID) {
		h.logger.Debug("duplicate webhook event ignored", "mid", evt.MessageID)
		return
	}

	ctx := r.Context()

	// Record first, then act: the inbound message lands in the ledger even
	// if handling fails. Ledger writes are best-effort.
	if evt.Text != "" {
		h.record(ctx, evt.SenderID, store.DirectionInbound, evt.Text)
	}

	reply, sessionStarted := h.engine.Handle(ctx, evt.SenderID, evt.Text)
	if sessionStarted {
		h.supervisor.Arm(evt.SenderID)
	}
	if reply == nil {
		return
	}

	if err := h.notifier.Deliver(ctx, evt.SenderID, *reply); err != nil {
		// The session was already consumed before delivery was attempted,
		// so a failed send cannot leave a user stuck mid-dialogue.
		h.logger.Error("reply delivery failed", "user", evt.SenderID, "error", err)
		return
	}
	h.record(ctx, evt.SenderID, store.DirectionOutbound, reply.Text)
}

// record writes one ledger entry, logging instead of failing the request.
func (h *Handler) record(ctx context.Context, userID, direction, text string) {
	err := h.ledger.SaveExchange(ctx, &store.Exchange{
		UserID:    userID,
		Direction: direction,
		Text:      text,
	})
	if err != nil {
		h.logger.Warn("ledger write failed", "user", userID, "direction", direction, "error", err)
	}
}
