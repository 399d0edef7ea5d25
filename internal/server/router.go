package server

import (
	"context"
	"math/rand"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"resty.dev/v3"

	"github.com/cbex-demo/live-market/internal/config"
	"github.com/cbex-demo/live-market/internal/logger"
	"github.com/cbex-demo/live-market/internal/market"
	"github.com/cbex-demo/live-market/internal/model"
	"github.com/cbex-demo/live-market/internal/status"
	"github.com/cbex-demo/live-market/internal/store"
	"github.com/cbex-demo/live-market/internal/ws"
)

// Datastore is everything the HTTP surface needs from the backing
// store.
type Datastore interface {
	Ping(ctx context.Context) error
	InsertOrder(ctx context.Context, key string, order model.Order) error
	StockLeaderboard(ctx context.Context, dir store.SortDirection, limit int) ([]model.StockPerf, error)
	ListStocks(ctx context.Context) ([]model.Stock, error)
	Sectors(ctx context.Context) ([]string, error)
	SymbolsBySector(ctx context.Context, sector string) ([]string, error)
	InvestmentsByGeo(ctx context.Context, geo string) ([]model.Investment, error)
}

// Handler wires every HTTP and websocket endpoint to the shared caches.
type Handler struct {
	cfg       *config.Config
	logger    logger.Logger
	cache     *market.Cache
	ledger    *market.Ledger
	store     Datastore
	collector *status.Collector
	registry  *ws.Registry
	search    *resty.Client
	upgrader  websocket.Upgrader
}

func NewHandler(
	cfg *config.Config,
	cache *market.Cache,
	ledger *market.Ledger,
	st Datastore,
	collector *status.Collector,
	registry *ws.Registry,
	logger logger.Logger,
) *Handler {
	return &Handler{
		cfg:       cfg,
		logger:    logger,
		cache:     cache,
		ledger:    ledger,
		store:     st,
		collector: collector,
		registry:  registry,
		search: resty.New().
			SetLogger(logger).
			SetTimeout(5 * time.Second),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Demo server, any origin may connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *Handler) Router(zl *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(ginzap.Ginzap(zl, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(zl, true))

	r.GET("/healthz", h.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/submit_order", h.handleSubmit)
	r.GET("/filter", h.handleFilter)
	r.GET("/search", h.handleSearch)
	r.GET("/api/stocks", h.handleStocks)
	r.GET("/api/geo", h.handleGeo)

	feeds := h.cfg.Feeds
	r.GET("/nodestatus", func(c *gin.Context) {
		h.serveFeed(c, ws.NewStatusPolicy(h.collector, feeds.StatusInterval()), false)
	})
	r.GET("/liveorders", func(c *gin.Context) {
		h.serveFeed(c, ws.NewOrderPolicy(
			h.ledger, feeds.OrderInterval(), feeds.SentinelName, feeds.SentinelPause(), feeds.OrderBufferSize,
		), false)
	})
	r.GET("/liveprices", func(c *gin.Context) {
		h.serveFeed(c, ws.NewPricePolicy(h.cache, feeds.PriceInterval()), true)
	})
	r.GET("/stockleaderboard", func(c *gin.Context) {
		h.serveFeed(c, ws.NewStockBoardPolicy(h.store, feeds.LeaderboardInterval(), feeds.StockBoardSize), false)
	})
	r.GET("/investorleaderboard", func(c *gin.Context) {
		h.serveFeed(c, ws.NewInvestorBoardPolicy(h.ledger, feeds.LeaderboardInterval(), feeds.InvestorBoardSize), false)
	})

	return r
}

// serveFeed upgrades the connection and runs one subscription for its
// lifetime. pokeOnMessage makes any client message force an immediate
// push (the live prices contract).
func (h *Handler) serveFeed(c *gin.Context, policy ws.Policy, pokeOnMessage bool) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debugf("%s: can't upgrade %s connection", err, policy.Name())
		return
	}

	sub := ws.NewSubscription(policy, ws.NewConnSender(conn), h.logger)
	h.registry.Add(sub)
	defer h.registry.Remove(sub)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	go h.readPump(conn, sub, cancel, pokeOnMessage)
	sub.Run(ctx)
}

// readPump drains client frames. The websocket protocol needs a reader
// even on push-only feeds, and a read error is how we learn the client
// is gone.
func (h *Handler) readPump(conn *websocket.Conn, sub *ws.Subscription, cancel context.CancelFunc, pokeOnMessage bool) {
	defer cancel()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if pokeOnMessage {
			sub.Poke()
			continue
		}
		h.logger.Debugf("subscription %s received: %s", sub.ID(), msg)
	}
}

func (h *Handler) handleHealth(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleFilter returns the stock keys for one sector.
func (h *Handler) handleFilter(c *gin.Context) {
	sector := c.Query("type")
	if sector == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing type parameter"})
		return
	}

	symbols, err := h.store.SymbolsBySector(c.Request.Context(), sector)
	if err != nil {
		h.logger.Errorf("%s: can't filter by sector", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
		return
	}

	keys := make([]string, len(symbols))
	for i, sym := range symbols {
		keys[i] = "stock:" + sym
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// Regions an order can be attributed to; the empty string stands for
// orders submitted without a geo.
var _geoRegions = []string{"USA", "EU", ""}

// handleGeo breaks investment profit down by submission region. Each
// line is priced at the current table; regions with no investments are
// omitted.
func (h *Handler) handleGeo(c *gin.Context) {
	table := h.cache.CurrentPrices()
	boards := make(map[string]model.GeoBoard)

	for _, geo := range _geoRegions {
		rows, err := h.store.InvestmentsByGeo(c.Request.Context(), geo)
		if err != nil {
			h.logger.Errorf("%s: can't query investments by geo", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
			return
		}

		var total float64
		investments := make([]model.Investment, 0, len(rows))
		for _, row := range rows {
			entry, ok := table[row.Symbol]
			if !ok {
				continue
			}
			profit := row.Quantity*entry.Price - model.LineBudget
			total += profit
			row.Profit = model.Round2(profit)
			row.Quantity = model.Round2(row.Quantity)
			investments = append(investments, row)
		}
		if len(investments) == 0 {
			continue
		}

		label := geo
		if label == "" {
			label = "Unknown"
		}
		boards[label] = model.GeoBoard{
			Total:       model.Round2(total),
			Investments: investments,
		}
	}

	c.JSON(http.StatusOK, boards)
}

// handleStocks lists every stock with the distinct sectors, priority
// symbols shuffled to the front the way the exchange page wants them.
func (h *Handler) handleStocks(c *gin.Context) {
	stocks, err := h.store.ListStocks(c.Request.Context())
	if err != nil {
		h.logger.Errorf("%s: can't list stocks", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
		return
	}
	sectors, err := h.store.Sectors(c.Request.Context())
	if err != nil {
		h.logger.Errorf("%s: can't list sectors", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
		return
	}

	var first, rest []string
	for _, s := range stocks {
		if s.Priority == 1 {
			first = append(first, s.Symbol)
		} else {
			rest = append(rest, s.Symbol)
		}
	}
	rand.Shuffle(len(first), func(i, j int) { first[i], first[j] = first[j], first[i] })
	rand.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })

	c.JSON(http.StatusOK, gin.H{
		"stocks":  stocks,
		"keys":    append(first, rest...),
		"sectors": sectors,
	})
}
