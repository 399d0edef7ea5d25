package ws

import (
	"sync"

	"github.com/cbex-demo/live-market/internal/logger"
	"github.com/cbex-demo/live-market/internal/metrics"
)

// Registry tracks active subscriptions. It is not a fan-out point: each
// subscription reads the shared caches on its own timer. The registry
// only exists so shutdown can close every client cleanly.
type Registry struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	logger logger.Logger
}

func NewRegistry(logger logger.Logger) *Registry {
	return &Registry{
		subs:   make(map[string]*Subscription),
		logger: logger,
	}
}

func (r *Registry) Add(s *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[s.ID()] = s
	metrics.ActiveSubscriptions.Set(float64(len(r.subs)))
	r.logger.Infof("%s subscription %s opened", s.policy.Name(), s.ID())
}

func (r *Registry) Remove(s *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, s.ID())
	metrics.ActiveSubscriptions.Set(float64(len(r.subs)))
	r.logger.Infof("%s subscription %s closed", s.policy.Name(), s.ID())
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// CloseAll disconnects every client, used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	subs := make([]*Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		subs = append(subs, s)
	}
	r.subs = make(map[string]*Subscription)
	metrics.ActiveSubscriptions.Set(0)
	r.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
}
