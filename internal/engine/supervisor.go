// ABOUTME: SessionTimeoutSupervisor races a per-session deadline against resolution.
// ABOUTME: Exactly one of the resolving path and the expiry path replies, never both.

package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geupsik/meal-gateway/internal/notify"
	"github.com/geupsik/meal-gateway/internal/session"
)

const replyTimeout = "시간이 초과되었습니다. 처음부터 다시 시도해 주세요."

// Supervisor enforces a maximum lifetime on disambiguation sessions. One
// watch goroutine is armed per session-creation event; it waits on the
// session's done channel against a deadline timer. On expiry it clears the
// session (conditioned on the session token, so a newer session for the
// same user is left alone) and delivers a fallback reply.
type Supervisor struct {
	sessions *session.Store
	notifier notify.Notifier
	timeout  time.Duration
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSupervisor creates a supervisor delivering fallback replies through the
// given notifier.
func NewSupervisor(sessions *session.Store, notifier notify.Notifier, timeout time.Duration, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		sessions: sessions,
		notifier: notifier,
		timeout:  timeout,
		logger:   logger.With("component", "supervisor"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Arm starts a watch for the user's current session. If no session is
// stored (already consumed or replaced), Arm is a no-op.
func (s *Supervisor) Arm(user string) {
	sess, ok := s.sessions.Get(user)
	if !ok {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.watch(sess)
	}()
}

// watch blocks until the session is resolved, the deadline elapses, or the
// supervisor shuts down.
func (s *Supervisor) watch(sess *session.Session) {
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case <-sess.Done():
		// Resolved (or displaced by a newer session) before the deadline.
		s.logger.Debug("session resolved before deadline", "user", sess.User, "token", sess.Token)
	case <-s.ctx.Done():
		s.logger.Debug("supervisor shutting down", "user", sess.User)
	case <-timer.C:
		s.expire(sess)
	}
}

// expire attempts the compare-and-clear. Losing the race to the resolving
// path is an expected outcome, not an error, and produces no reply.
func (s *Supervisor) expire(sess *session.Session) {
	if !s.sessions.ClearIfToken(sess.User, sess.Token) {
		s.logger.Debug("expiry lost race to resolution", "user", sess.User, "token", sess.Token)
		return
	}

	s.logger.Info("session expired", "user", sess.User, "token", sess.Token, "timeout", s.timeout)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.notifier.Deliver(ctx, sess.User, notify.OutboundReply{Text: replyTimeout}); err != nil {
		s.logger.Error("fallback delivery failed", "user", sess.User, "error", err)
	}
}

// Close cancels all armed watches and waits for them to finish.
func (s *Supervisor) Close() {
	s.cancel()
	s.wg.Wait()
}
