package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxOperatorID = "operatorId"

func (h *Handler) operatorIDMiddleware(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "missing Authorization header",
		})
		return
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid Authorization header format",
		})
		return
	}

	operatorID, err := h.services.ParseToken(strings.TrimSpace(token))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return
	}

	c.Set(ctxOperatorID, operatorID)
	c.Next()
}

// wsTokenFromQuery lets browser WebSocket clients, which cannot set headers on
// the handshake, pass the bearer token as ?access_token=.
func (h *Handler) wsTokenFromQuery(c *gin.Context) {
	if c.GetHeader("Authorization") == "" {
		if tok := strings.TrimSpace(c.Query("access_token")); tok != "" {
			c.Request.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	c.Next()
}
