package status

import (
	"context"
	"sync"
	"time"

	"resty.dev/v3"

	"github.com/cbex-demo/live-market/internal/config"
	"github.com/cbex-demo/live-market/internal/logger"
)

type Node struct {
	Host     string   `json:"host"`
	Status   string   `json:"status"`
	Services []string `json:"services"`
}

// Snapshot is what the status feed pushes: node list plus coarse
// service flags, in the shape the cluster visualiser expects.
type Snapshot struct {
	Nodes       []Node `json:"nodes"`
	Query       bool   `json:"query"`
	Search      bool   `json:"search"`
	Replication bool   `json:"replication"`
}

// Pinger reports backing-store reachability when no admin endpoint is
// configured.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Collector polls the cluster admin endpoint and caches the last good
// snapshot. Subscriptions read the cache on their own cadence, so a
// failed poll just means they keep serving the previous snapshot.
type Collector struct {
	c      *resty.Client
	url    string
	pinger Pinger
	logger logger.Logger

	mu   sync.RWMutex
	snap Snapshot
}

func NewCollector(cfg config.StatusConfig, pinger Pinger, logger logger.Logger) *Collector {
	client := resty.New().
		SetLogger(logger).
		SetTimeout(2 * time.Second)

	return &Collector{
		c:      client,
		url:    cfg.URL,
		pinger: pinger,
		logger: logger,
	}
}

func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

func (c *Collector) Run(ctx context.Context, interval time.Duration) {
	c.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
			c.poll(ctx)
		}
	}
}

func (c *Collector) poll(ctx context.Context) {
	if c.url == "" {
		c.pollPinger(ctx)
		return
	}

	var snap Snapshot
	resp, err := c.c.R().
		SetContext(ctx).
		SetResult(&snap).
		Get(c.url)
	if err != nil {
		c.logger.Debugf("%s: can't poll cluster status", err)
		return
	}
	defer resp.Body.Close()

	if resp.IsError() {
		c.logger.Debugf("cluster status request error: %s", resp.Status())
		return
	}

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
}

// pollPinger derives a single synthetic node from store reachability.
func (c *Collector) pollPinger(ctx context.Context) {
	snap := Snapshot{
		Nodes: []Node{{Host: "datastore", Status: "healthy", Services: []string{"kv", "query"}}},
		Query: true,
	}
	if err := c.pinger.Ping(ctx); err != nil {
		snap.Nodes[0].Status = "unreachable"
		snap.Query = false
	}

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
}
