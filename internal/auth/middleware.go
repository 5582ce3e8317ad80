package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
	ticketQueryParam    = "ticket"
)

// RequireCallTicket verifies the call stream ticket against the :call_id route
// parameter. Browsers cannot set headers on websocket upgrades, so the ticket
// is read from the query string first and the bearer header second.
func RequireCallTicket(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := strings.TrimSpace(c.Query(ticketQueryParam))
		if tok == "" {
			raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
			if strings.HasPrefix(raw, bearerPrefix) {
				tok = strings.TrimPrefix(raw, bearerPrefix)
			}
		}
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing call ticket"})
			return
		}

		claims, err := m.VerifyCallTicket(tok, c.Param("call_id"), time.Now())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid call ticket"})
			return
		}

		ctx := WithCall(c.Request.Context(), claims.CallID, claims.Mock)
		c.Request = c.Request.WithContext(ctx)
		c.Set("call_id", claims.CallID)

		c.Next()
	}
}

// RequireCredentials rejects requests when the voice vendor credentials are
// not configured. Only presence is checked.
func RequireCredentials(apiKey, agentID string) gin.HandlerFunc {
	configured := strings.TrimSpace(apiKey) != "" && strings.TrimSpace(agentID) != ""
	return func(c *gin.Context) {
		if !configured {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "UltraVox API credentials not configured"})
			return
		}
		c.Next()
	}
}
