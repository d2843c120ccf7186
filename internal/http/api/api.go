// Package api exposes the local admin surface over the account store: state
// reads, recommendations, quota history, and every store mutation.
package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/l11223/kiro-ai-gateway/internal/config"
	"github.com/l11223/kiro-ai-gateway/internal/history"
	"github.com/l11223/kiro-ai-gateway/internal/http/api/handlers"
	"github.com/l11223/kiro-ai-gateway/internal/security"
	"github.com/l11223/kiro-ai-gateway/internal/store"
)

// RegisterRoutes registers the admin surface on the given engine.
func RegisterRoutes(r *gin.Engine, accounts *store.AccountStore, quotaHistory *history.Store, cfg config.Config) {
	if r == nil || accounts == nil {
		return
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	group := r.Group("/v0")

	authHandler := handlers.NewAuthHandler(cfg.Admin.PasswordHash, cfg.JWT)
	group.POST("/login", authHandler.Login)

	authed := group.Group("")
	authed.Use(operatorAuthMiddleware(cfg.JWT))

	accountHandler := handlers.NewAccountHandler(accounts)
	authed.GET("/accounts", accountHandler.List)
	authed.GET("/accounts/current", accountHandler.Current)
	authed.GET("/accounts/recommendations", accountHandler.Recommendations)
	authed.POST("/accounts", accountHandler.Add)
	authed.DELETE("/accounts/:id", accountHandler.Delete)
	authed.POST("/accounts/delete-batch", accountHandler.DeleteBatch)
	authed.POST("/accounts/:id/switch", accountHandler.Switch)
	authed.POST("/accounts/reorder", accountHandler.Reorder)
	authed.PATCH("/accounts/:id/label", accountHandler.UpdateLabel)
	authed.POST("/accounts/:id/proxy", accountHandler.ToggleProxy)
	authed.POST("/accounts/export", accountHandler.Export)
	authed.POST("/accounts/:id/warmup", accountHandler.WarmUpOne)
	authed.POST("/warmup", accountHandler.WarmUpAll)

	quotaHandler := handlers.NewQuotaHandler(accounts, quotaHistory)
	authed.POST("/accounts/:id/quota", quotaHandler.FetchOne)
	authed.POST("/quotas/refresh", quotaHandler.RefreshAll)
	authed.GET("/accounts/:id/quota/history", quotaHandler.History)

	oauthHandler := handlers.NewOAuthHandler(accounts)
	authed.POST("/oauth/start", oauthHandler.Start)
	authed.POST("/oauth/complete", oauthHandler.Complete)
	authed.POST("/oauth/cancel", oauthHandler.Cancel)
	authed.POST("/import/v1", oauthHandler.ImportV1)
	authed.POST("/import/db", oauthHandler.ImportDB)
	authed.POST("/import/custom-db", oauthHandler.ImportCustomDB)
	authed.POST("/import/sync", oauthHandler.SyncFromDB)
}

// operatorAuthMiddleware validates operator JWTs.
func operatorAuthMiddleware(jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		if _, errParse := security.ParseOperatorToken(jwtCfg.Secret, token); errParse != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}
