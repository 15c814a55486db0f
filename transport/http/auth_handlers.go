package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kizaaaa/certichain/core"
	"github.com/Kizaaaa/certichain/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{authService: authService}
}

type nonceRequest struct {
	Address string `json:"address"`
}

type verifyRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature" binding:"required"`
	Nonce     string `json:"nonce" binding:"required"`
}

// RequestNonce issues a login challenge
func (h *AuthHandlers) RequestNonce(c *gin.Context) {
	var req nonceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", core.ErrValidation, err))
		return
	}

	nonce, err := h.authService.Challenge(c.Request.Context(), req.Address)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nonce":   nonce,
		"message": h.authService.Message(nonce),
	})
}

// PeekNonce returns the live challenge without consuming it
func (h *AuthHandlers) PeekNonce(c *gin.Context) {
	nonce, err := h.authService.Peek(c.Request.Context(), c.Query("address"))
	if err != nil {
		if errors.Is(err, core.ErrInvalidNonce) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no live nonce"})
			return
		}
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"nonce": nonce})
}

// Verify exchanges a signed challenge for a session token
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", core.ErrValidation, err))
		return
	}

	result, err := h.authService.Verify(c.Request.Context(), req.Address, req.Signature, req.Nonce)
	if errors.Is(err, core.ErrAuthorization) {
		_ = c.Error(err)
		c.AbortWithStatusJSON(statusFor(err), gin.H{"error": loginFailedMessage})
		return
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      result.Token,
		"token_type": "Bearer",
		"address":    result.Address,
		"role":       result.Role,
		"expires_at": result.ExpiresAt.UTC(),
	})
}

// Logout deny-lists the bearer token
func (h *AuthHandlers) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), c.GetString(tokenKey)); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns information about the authenticated principal
func (h *AuthHandlers) Me(c *gin.Context) {
	session := sessionFrom(c)
	if session == nil {
		abortWithError(c, core.ErrInvalidToken)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address":    session.Address,
		"role":       session.Role,
		"expires_at": session.ExpiresAt.UTC(),
	})
}
