package httpapi

import (
	"errors"
	"net/http"

	"healthmate/internal/guidelines"
	"healthmate/pkg/logger"

	"github.com/gin-gonic/gin"
)

// --- Guidelines ---

func (h Handlers) ListGuidelines(c *gin.Context) {
	if h.Catalog == nil || h.Renderer == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "guidelines not configured"})
		return
	}
	sections, err := h.Renderer.Sections(h.Catalog.Current().Guidelines)
	if err != nil {
		logger.FromGin(c).Error("render guidelines failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
		return
	}
	resp := gin.H{"sections": sections}
	if h.Chat != nil {
		resp["suggested_questions"] = h.Chat.InitialQuestions()
	}
	c.JSON(http.StatusOK, resp)
}

func (h Handlers) GetGuideline(c *gin.Context) {
	if h.Catalog == nil || h.Renderer == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "guidelines not configured"})
		return
	}
	id := c.Param("id")
	for i, s := range h.Catalog.Current().Guidelines {
		if s.ID != id {
			continue
		}
		body, err := h.Renderer.Render(s.Body)
		if err != nil {
			logger.FromGin(c).Error("render guideline failed", "section", id, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
			return
		}
		c.JSON(http.StatusOK, guidelines.Section{ID: s.ID, Number: i + 1, Title: s.Title, HTML: body})
		return
	}
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "section not found"})
}

func (h Handlers) SearchGuidelines(c *gin.Context) {
	if h.Catalog == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "guidelines not configured"})
		return
	}
	results := guidelines.Search(h.Catalog.Current().SearchEntries, c.Query("q"))
	c.JSON(http.StatusOK, gin.H{"results": results, "total": len(results)})
}

// --- Guideline chat ---

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Question       string `json:"question"`
}

func (h Handlers) AskGuidelines(c *gin.Context) {
	if h.Chat == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "chat not configured"})
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	conv, err := h.Chat.Ask(c.Request.Context(), req.ConversationID, req.Question)
	if err != nil {
		chatError(c, err)
		return
	}
	logger.Enrich(c, "conversation_id", conv.ID)
	c.JSON(http.StatusOK, conv)
}

func (h Handlers) GetConversation(c *gin.Context) {
	if h.Chat == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "chat not configured"})
		return
	}
	conv, err := h.Chat.Get(c.Param("conversation_id"))
	if err != nil {
		chatError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (h Handlers) DeleteConversation(c *gin.Context) {
	if h.Chat == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "chat not configured"})
		return
	}
	if err := h.Chat.Delete(c.Param("conversation_id")); err != nil {
		chatError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func chatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, guidelines.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
	case errors.Is(err, guidelines.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "question is required (max 2000 characters)"})
	default:
		logger.FromGin(c).Error("guideline chat failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "chat failed"})
	}
}
