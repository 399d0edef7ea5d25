package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RefreshCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "live_market_refresh_cycles_total",
		Help: "Refresh cycles started.",
	})

	RefreshErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "live_market_refresh_errors_total",
		Help: "Refresh cycles that hit a data source error.",
	})

	ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "live_market_active_subscriptions",
		Help: "Currently connected feed subscriptions.",
	})

	MessagesPushed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "live_market_messages_pushed_total",
		Help: "Messages pushed to subscribers, by feed.",
	}, []string{"feed"})

	OrdersSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "live_market_orders_submitted_total",
		Help: "Orders accepted at the submission boundary.",
	})
)
