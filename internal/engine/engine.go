// ABOUTME: ConversationEngine decides how to answer each inbound message.
// ABOUTME: Session presence in the store is the only signal for "mid-disambiguation".

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/geupsik/meal-gateway/internal/lookup"
	"github.com/geupsik/meal-gateway/internal/notify"
	"github.com/geupsik/meal-gateway/internal/session"
)

// CommandPrefix marks a school query, e.g. "!급식 서울고".
const CommandPrefix = "!급식"

// Reply texts. The numbered list and the detail reply are built dynamically.
const (
	replyNotFound     = "검색 결과가 없습니다."
	replyInvalidValue = "올바른 값을 입력해 주세요."
	replyUsage        = "'!급식 학교이름' 형식으로 입력해 주세요."
	replyUnavailable  = "급식 정보를 불러오지 못했습니다. 잠시 후 다시 시도해 주세요."
)

// Engine interprets inbound messages and produces outbound replies. It holds
// no per-user state of its own; the session store is the source of truth.
type Engine struct {
	sessions *session.Store
	lookups  lookup.Client
	logger   *slog.Logger
}

// New creates an engine backed by the given session store and lookup client.
func New(sessions *session.Store, lookups lookup.Client, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		sessions: sessions,
		lookups:  lookups,
		logger:   logger.With("component", "engine"),
	}
}

// Handle processes one inbound message for a user. It returns the reply to
// deliver (nil when the message requires no reply) and whether a new
// disambiguation session was started, in which case the caller must arm a
// timeout supervisor for the user.
func (e *Engine) Handle(ctx context.Context, user, text string) (reply *notify.OutboundReply, sessionStarted bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}

	// Take is atomic: if a concurrent expiry cleared the session first, the
	// message falls through to the command branch instead.
	if sess, ok := e.sessions.Take(user); ok {
		return e.resolve(ctx, user, text, sess), false
	}

	if arg, ok := commandArg(text); ok {
		return e.search(ctx, user, arg)
	}

	return &notify.OutboundReply{Text: replyUsage}, false
}

// resolve consumes a pending session. The session is already removed from
// the store at this point; any outcome, including rejection, terminates it.
func (e *Engine) resolve(ctx context.Context, user, text string, sess *session.Session) *notify.OutboundReply {
	n, ok := parseSelection(text)
	if !ok || n < 1 || n > len(sess.Candidates) {
		e.logger.Debug("invalid selection", "user", user, "input", text, "candidates", len(sess.Candidates))
		return &notify.OutboundReply{Text: replyInvalidValue}
	}

	chosen := sess.Candidates[n-1]
	detail, err := e.lookups.Detail(ctx, chosen.OfficeCode, chosen.SchoolCode)
	if err != nil {
		if errors.Is(err, lookup.ErrNotFound) {
			return &notify.OutboundReply{Text: replyNotFound}
		}
		e.logger.Error("detail lookup failed", "user", user, "school", chosen.Label(), "error", err)
		return &notify.OutboundReply{Text: replyUnavailable}
	}

	e.logger.Info("session resolved", "user", user, "school", chosen.Label(), "selection", n)
	return &notify.OutboundReply{Text: detail}
}

// search runs a school lookup and either answers directly or starts a
// disambiguation session.
func (e *Engine) search(ctx context.Context, user, query string) (*notify.OutboundReply, bool) {
	if query == "" {
		return &notify.OutboundReply{Text: replyUsage}, false
	}

	candidates, err := e.lookups.Search(ctx, query)
	if err != nil {
		if errors.Is(err, lookup.ErrNotFound) {
			return &notify.OutboundReply{Text: replyNotFound}, false
		}
		e.logger.Error("school search failed", "user", user, "query", query, "error", err)
		return &notify.OutboundReply{Text: replyUnavailable}, false
	}

	switch len(candidates) {
	case 0:
		return &notify.OutboundReply{Text: replyNotFound}, false
	case 1:
		// Unambiguous result: answer immediately, no session.
		detail, err := e.lookups.Detail(ctx, candidates[0].OfficeCode, candidates[0].SchoolCode)
		if err != nil {
			if errors.Is(err, lookup.ErrNotFound) {
				return &notify.OutboundReply{Text: replyNotFound}, false
			}
			e.logger.Error("detail lookup failed", "user", user, "school", candidates[0].Label(), "error", err)
			return &notify.OutboundReply{Text: replyUnavailable}, false
		}
		return &notify.OutboundReply{Text: detail}, false
	default:
		sess := e.sessions.Set(user, candidates)
		e.logger.Info("session started", "user", user, "query", query, "candidates", len(candidates), "token", sess.Token)
		return &notify.OutboundReply{Text: candidateList(candidates)}, true
	}
}

// commandArg extracts the query from a prefixed command. The prefix must be
// the leading token; the argument is the trimmed remainder.
func commandArg(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, CommandPrefix) {
		return "", false
	}
	rest := trimmed[len(CommandPrefix):]
	if rest != "" && !strings.HasPrefix(rest, " ") {
		// "!급식서울고" is not the command, just text that shares a prefix.
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// parseSelection parses a 1-indexed selection. Only all-digit strings are
// accepted; signs, spaces inside, and partial numeric content are rejected.
func parseSelection(text string) (int, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
		if n > 1<<20 {
			return 0, false
		}
	}
	return n, true
}

// candidateList renders the 1-indexed disambiguation list.
func candidateList(candidates []lookup.Candidate) string {
	var b strings.Builder
	for i, c := range candidates {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, c.Label())
	}
	return b.String()
}
