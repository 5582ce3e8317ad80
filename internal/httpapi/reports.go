package httpapi

import (
	"errors"
	"net/http"
	"time"

	"healthmate/internal/reporting"
	"healthmate/pkg/logger"

	"github.com/gin-gonic/gin"
)

const defaultReportWindow = 24 * time.Hour

// --- Reports ---

// Report aggregates calls and audit events between from and to (RFC 3339).
// Both default to the last 24 hours.
func (h Handlers) Report(c *gin.Context) {
	if h.Reporting == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	to := time.Now().UTC()
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC 3339"})
			return
		}
		to = t
	}
	from := to.Add(-defaultReportWindow)
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC 3339"})
			return
		}
		from = t
	}

	rep, err := h.Reporting.Report(c.Request.Context(), reporting.TimeRange{From: from, To: to})
	if errors.Is(err, reporting.ErrInvalidRequest) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be before to, at most 31 days apart"})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("report failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
		return
	}
	c.JSON(http.StatusOK, rep)
}
