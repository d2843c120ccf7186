package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/l11223/kiro-ai-gateway/internal/config"
	"github.com/l11223/kiro-ai-gateway/internal/security"
)

// AuthHandler handles operator login.
type AuthHandler struct {
	passwordHash string
	jwtCfg       config.JWTConfig
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(passwordHash string, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{passwordHash: passwordHash, jwtCfg: jwtCfg}
}

// loginRequest is the login payload.
type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

// Login verifies the operator password and issues a JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if strings.TrimSpace(h.passwordHash) == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin password not configured"})
		return
	}
	if !security.VerifyPassword(h.passwordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid password"})
		return
	}

	token, errSign := security.SignOperatorToken(h.jwtCfg.Secret, h.jwtCfg.Expiry)
	if errSign != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
