package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/l11223/kiro-ai-gateway/internal/store"
)

// OAuthHandler serves the OAuth login flow and the account import surface.
type OAuthHandler struct {
	store *store.AccountStore
}

// NewOAuthHandler constructs an OAuthHandler.
func NewOAuthHandler(s *store.AccountStore) *OAuthHandler {
	return &OAuthHandler{store: s}
}

// Start begins a device OAuth login.
func (h *OAuthHandler) Start(c *gin.Context) {
	if errStart := h.store.StartOAuthLogin(c.Request.Context()); errStart != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errStart.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Complete finishes a pending OAuth login and refreshes the collection.
func (h *OAuthHandler) Complete(c *gin.Context) {
	if errComplete := h.store.CompleteOAuthLogin(c.Request.Context()); errComplete != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errComplete.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": h.store.Accounts()})
}

// Cancel aborts a pending OAuth login. Always succeeds.
func (h *OAuthHandler) Cancel(c *gin.Context) {
	h.store.CancelOAuthLogin(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ImportV1 imports accounts from the legacy v1 store.
func (h *OAuthHandler) ImportV1(c *gin.Context) {
	result, errImport := h.store.ImportV1Accounts(c.Request.Context())
	if errImport != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errImport.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result, "accounts": h.store.Accounts()})
}

// ImportDB imports an account from the local provider database.
func (h *OAuthHandler) ImportDB(c *gin.Context) {
	account, errImport := h.store.ImportFromDB(c.Request.Context())
	if errImport != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errImport.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account, "accounts": h.store.Accounts()})
}

// importCustomDBRequest carries the path of a provider database file.
type importCustomDBRequest struct {
	Path string `json:"path" binding:"required"`
}

// ImportCustomDB imports an account from an operator-chosen database file.
func (h *OAuthHandler) ImportCustomDB(c *gin.Context) {
	var req importCustomDBRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	account, errImport := h.store.ImportFromCustomDB(c.Request.Context(), req.Path)
	if errImport != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errImport.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account, "accounts": h.store.Accounts()})
}

// SyncFromDB opportunistically syncs the local database account. Best
// effort, never fails.
func (h *OAuthHandler) SyncFromDB(c *gin.Context) {
	h.store.SyncAccountFromDB(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"accounts": h.store.Accounts()})
}
