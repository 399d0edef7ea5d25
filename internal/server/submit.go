package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/cbex-demo/live-market/internal/metrics"
	"github.com/cbex-demo/live-market/internal/model"
)

const _stockKeyPrefix = "stock:"

type submitRequest struct {
	Name  string   `json:"name"`
	Order []string `json:"order"`
	Geo   string   `json:"geo"`
}

// handleSubmit is the submission boundary: a shape check, pricing at
// the current table, then a store write. The refresher picks the order
// up on its next cycle.
func (h *Handler) handleSubmit(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "can't read body"})
		return
	}

	var req submitRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if req.Name == "" || len(req.Order) != model.OrderLineCount {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("order must carry a name and exactly %d lines", model.OrderLineCount)})
		return
	}

	table := h.cache.CurrentPrices()
	lines := make([]model.OrderLine, 0, model.OrderLineCount)
	for _, key := range req.Order {
		sym := strings.TrimPrefix(key, _stockKeyPrefix)
		entry, ok := table[sym]
		if !ok || entry.Price <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown symbol %q", sym)})
			return
		}
		lines = append(lines, model.OrderLine{
			Symbol:        sym,
			PurchasePrice: entry.Price,
			Quantity:      model.LineBudget / entry.Price,
		})
	}

	now := time.Now()
	order := model.Order{
		Name:  req.Name,
		Ts:    now.Unix(),
		Geo:   req.Geo,
		Lines: lines,
	}
	key := fmt.Sprintf("Order::%s::%s", req.Name, now.UTC().Format(time.RFC3339Nano))

	if err := h.store.InsertOrder(c.Request.Context(), key, order); err != nil {
		h.logger.Errorf("%s: can't store order", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
		return
	}

	metrics.OrdersSubmitted.Inc()
	c.JSON(http.StatusCreated, gin.H{"key": key})
}
