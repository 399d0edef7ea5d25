package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type searchResponse struct {
	Hits []struct {
		ID string `json:"id"`
	} `json:"hits"`
}

// handleSearch proxies a fuzzy full-text query to the configured search
// endpoint and returns the matching stock keys.
func (h *Handler) handleSearch(c *gin.Context) {
	if h.cfg.Search.URL == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no search endpoint configured"})
		return
	}

	q := strings.ReplaceAll(c.Query("q"), `"`, "")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing q parameter"})
		return
	}

	terms := strings.Fields(q)
	for i, term := range terms {
		terms[i] = fmt.Sprintf("%s~1", term)
	}
	fuzzy := strings.Join(terms, " ")

	var result searchResponse
	resp, err := h.search.R().
		SetContext(c.Request.Context()).
		SetBody(map[string]any{"query": map[string]any{"query": fuzzy}}).
		SetResult(&result).
		Post(h.cfg.Search.URL)
	if err != nil {
		h.logger.Errorf("%s: can't reach search endpoint", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "search unavailable"})
		return
	}
	defer resp.Body.Close()

	if resp.IsError() {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("search request error: %s", resp.Status())})
		return
	}

	keys := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		keys = append(keys, hit.ID)
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}
