package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cbex-demo/live-market/internal/logger"
	"github.com/cbex-demo/live-market/internal/metrics"
)

// ErrSubscriptionClosed reports a push against a subscription whose
// client is gone.
var ErrSubscriptionClosed = errors.New("subscription closed")

// Sender pushes one structured message to the connected client.
type Sender interface {
	Send(v any) error
	Close() error
}

// Policy computes the next message for one subscriber. Next returns the
// message to push (nil means nothing this tick) and an optional pause to
// insert before the cadence resumes. Policies are owned by a single
// subscription and never shared.
type Policy interface {
	Name() string
	Interval() time.Duration
	Next(ctx context.Context) (msg any, pause time.Duration, err error)
}

type State int

const (
	Opened State = iota
	Active
	Paused
	Closed
)

// Subscription drives one policy against one client connection. Each
// subscription has its own timer, so slow feeds never delay each other.
type Subscription struct {
	id     string
	policy Policy
	sender Sender
	logger logger.Logger

	poke chan struct{}

	mu    sync.Mutex
	state State
}

func NewSubscription(policy Policy, sender Sender, logger logger.Logger) *Subscription {
	id := uuid.NewString()
	return &Subscription{
		id:     id,
		policy: policy,
		sender: sender,
		logger: logger.With("subscription", id, "feed", policy.Name()),
		poke:   make(chan struct{}, 1),
		state:  Opened,
	}
}

func (s *Subscription) ID() string {
	return s.id
}

func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Subscription) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return
	}
	s.state = st
}

// Poke requests an immediate out-of-band push, used for client pings on
// the price feed. Non-blocking; a pending poke is enough.
func (s *Subscription) Poke() {
	select {
	case s.poke <- struct{}{}:
	default:
	}
}

// Run ticks the policy until ctx is cancelled or the client goes away.
// The first push happens immediately on open, matching the feed
// behaviour the viewers expect.
func (s *Subscription) Run(ctx context.Context) {
	s.setState(Active)
	defer s.Close()

	ticker := time.NewTicker(s.policy.Interval())
	defer ticker.Stop()

	if !s.tick(ctx, ticker) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.tick(ctx, ticker) {
				return
			}
		case <-s.poke:
			if !s.tick(ctx, ticker) {
				return
			}
		}
	}
}

// tick runs one policy step. It reports false when the subscription
// should stop. A requested pause parks the timer (Active -> Paused ->
// Active) and restarts the cadence from the resume point.
func (s *Subscription) tick(ctx context.Context, ticker *time.Ticker) bool {
	msg, pause, err := s.policy.Next(ctx)
	if err != nil {
		// Policy errors are transient reads against the store or cache;
		// keep serving and try again next tick.
		s.logger.Debugf("%s: feed tick failed", err)
		return true
	}

	if msg != nil {
		if err := s.sender.Send(msg); err != nil {
			s.logger.Debugf("%s: can't push, closing subscription", err)
			return false
		}
		metrics.MessagesPushed.WithLabelValues(s.policy.Name()).Inc()
	}

	if pause > 0 {
		s.setState(Paused)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(pause):
		}
		s.setState(Active)
		ticker.Reset(s.policy.Interval())
	}

	return true
}

// Close stops the subscription and releases the transport. Safe to call
// more than once; never blocks on an in-flight write.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.state == Closed {
		s.mu.Unlock()
		return
	}
	s.state = Closed
	s.mu.Unlock()

	if err := s.sender.Close(); err != nil {
		s.logger.Debugf("%s: can't close sender", err)
	}
}
