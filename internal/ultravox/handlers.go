package ultravox

import (
	"context"
	"errors"
	"net/http"

	"healthmate/internal/audit"
	"healthmate/internal/calls"
	"healthmate/pkg/logger"

	"github.com/gin-gonic/gin"
)

// EventLister reads the audit trail of one call.
type EventLister interface {
	ListByCall(ctx context.Context, callID string) ([]audit.Event, error)
}

// Handlers serve the /api/ultravox routes.
type Handlers struct {
	Service *Service
	Calls   CallStore
	Events  EventLister
	Stream  *StreamHandler
}

// CreateCall always answers 200; failures are reported inside the body.
func (h Handlers) CreateCall(c *gin.Context) {
	if h.Service == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call service not configured"})
		return
	}
	res := h.Service.CreateCall(c.Request.Context(), c.ClientIP())
	logger.Enrich(c, "call_id", res.CallID, "mock", res.Mock)
	c.JSON(http.StatusOK, res)
}

func (h Handlers) GetCall(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call store not configured"})
		return
	}
	call, err := h.Calls.Get(c.Request.Context(), c.Param("call_id"))
	if errors.Is(err, calls.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("get call failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call lookup failed"})
		return
	}
	c.JSON(http.StatusOK, call)
}

// CallEvents lists the audit events recorded for a call, oldest first.
func (h Handlers) CallEvents(c *gin.Context) {
	if h.Calls == nil || h.Events == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call audit not configured"})
		return
	}
	ctx := c.Request.Context()
	callID := c.Param("call_id")
	if _, err := h.Calls.Get(ctx, callID); err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
			return
		}
		logger.FromGin(c).Error("get call failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call lookup failed"})
		return
	}
	evs, err := h.Events.ListByCall(ctx, callID)
	if err != nil {
		logger.FromGin(c).Error("list call events failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"call_id": callID, "events": evs})
}

func (h Handlers) StreamCall(c *gin.Context) {
	if h.Stream == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call stream not configured"})
		return
	}
	h.Stream.Serve(c)
}
