package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/l11223/kiro-ai-gateway/internal/history"
	"github.com/l11223/kiro-ai-gateway/internal/store"
)

// QuotaHandler serves quota refresh operations and recorded history.
type QuotaHandler struct {
	store   *store.AccountStore
	history *history.Store
}

// NewQuotaHandler constructs a QuotaHandler.
func NewQuotaHandler(s *store.AccountStore, h *history.Store) *QuotaHandler {
	return &QuotaHandler{store: s, history: h}
}

// FetchOne refetches quota for one account.
func (h *QuotaHandler) FetchOne(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing account id"})
		return
	}
	if errFetch := h.store.FetchAccountQuota(c.Request.Context(), id); errFetch != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errFetch.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": h.store.Accounts()})
}

// RefreshAll refetches quota for every account and reports counts.
func (h *QuotaHandler) RefreshAll(c *gin.Context) {
	stats, errRefresh := h.store.RefreshAllQuotas(c.Request.Context())
	if errRefresh != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errRefresh.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats, "accounts": h.store.Accounts()})
}

// History returns recorded quota snapshots for one account, newest first.
func (h *QuotaHandler) History(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "quota history disabled"})
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing account id"})
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, errParse := strconv.Atoi(raw)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}
	entries, errRecent := h.history.Recent(c.Request.Context(), id, limit)
	if errRecent != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": errRecent.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}
