package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/l11223/kiro-ai-gateway/internal/recommend"
	"github.com/l11223/kiro-ai-gateway/internal/store"
)

// AccountHandler exposes account store operations.
type AccountHandler struct {
	store *store.AccountStore
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(s *store.AccountStore) *AccountHandler {
	return &AccountHandler{store: s}
}

// List refreshes and returns the account collection with store state.
func (h *AccountHandler) List(c *gin.Context) {
	h.store.RefreshAccounts(c.Request.Context())
	state := h.store.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"accounts": state.Accounts,
		"loading":  state.Loading,
		"error":    state.Err,
	})
}

// Current refreshes and returns the active account.
func (h *AccountHandler) Current(c *gin.Context) {
	h.store.RefreshCurrentAccount(c.Request.Context())
	state := h.store.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"account": state.Current,
		"error":   state.Err,
	})
}

// Recommendations derives per-family switch suggestions from the current
// snapshot.
func (h *AccountHandler) Recommendations(c *gin.Context) {
	state := h.store.Snapshot()
	currentID := ""
	if state.Current != nil {
		currentID = state.Current.ID
	}
	recs := recommend.Recommend(state.Accounts, currentID)
	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}

// addAccountRequest is the add-account payload.
type addAccountRequest struct {
	Email        string `json:"email" binding:"required"`
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Add registers a new account.
func (h *AccountHandler) Add(c *gin.Context) {
	var req addAccountRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if errAdd := h.store.AddAccount(c.Request.Context(), req.Email, req.RefreshToken); errAdd != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errAdd.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": h.store.Accounts()})
}

// Delete removes one account.
func (h *AccountHandler) Delete(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing account id"})
		return
	}
	if errDelete := h.store.DeleteAccount(c.Request.Context(), id); errDelete != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errDelete.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": h.store.Accounts()})
}

// idsRequest carries a list of account ids.
type idsRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// DeleteBatch removes a batch of accounts.
func (h *AccountHandler) DeleteBatch(c *gin.Context) {
	var req idsRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if errDelete := h.store.DeleteAccounts(c.Request.Context(), req.IDs); errDelete != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errDelete.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": h.store.Accounts()})
}

// Switch makes the given account current.
func (h *AccountHandler) Switch(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing account id"})
		return
	}
	if errSwitch := h.store.SwitchAccount(c.Request.Context(), id); errSwitch != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errSwitch.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": h.store.CurrentAccount()})
}

// Reorder applies a new operator ordering.
func (h *AccountHandler) Reorder(c *gin.Context) {
	var req idsRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if errReorder := h.store.ReorderAccounts(c.Request.Context(), req.IDs); errReorder != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errReorder.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": h.store.Accounts()})
}

// labelRequest is the label update payload.
type labelRequest struct {
	Label string `json:"label"`
}

// UpdateLabel sets one account's operator label.
func (h *AccountHandler) UpdateLabel(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing account id"})
		return
	}
	var req labelRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if errUpdate := h.store.UpdateAccountLabel(c.Request.Context(), id, req.Label); errUpdate != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errUpdate.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// toggleProxyRequest is the proxy toggle payload.
type toggleProxyRequest struct {
	Enable bool   `json:"enable"`
	Reason string `json:"reason"`
}

// ToggleProxy flips an account's proxy participation.
func (h *AccountHandler) ToggleProxy(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing account id"})
		return
	}
	var req toggleProxyRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if errToggle := h.store.ToggleProxyStatus(c.Request.Context(), id, req.Enable, req.Reason); errToggle != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errToggle.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Export returns email/refresh-token pairs for backup.
func (h *AccountHandler) Export(c *gin.Context) {
	var req idsRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	exported, errExport := h.store.ExportAccounts(c.Request.Context(), req.IDs)
	if errExport != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errExport.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": exported})
}

// WarmUpAll triggers warmup for every eligible account.
func (h *AccountHandler) WarmUpAll(c *gin.Context) {
	result, errWarm := h.store.WarmUpAllAccounts(c.Request.Context())
	if errWarm != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errWarm.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// WarmUpOne triggers warmup for one account.
func (h *AccountHandler) WarmUpOne(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing account id"})
		return
	}
	result, errWarm := h.store.WarmUpAccount(c.Request.Context(), id)
	if errWarm != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": errWarm.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}
