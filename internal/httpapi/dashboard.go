package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"healthmate/internal/dashboard"

	"github.com/gin-gonic/gin"
)

// --- Dashboard ---

func (h Handlers) DashboardSummary(c *gin.Context) {
	if h.Dashboard == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dashboard not configured"})
		return
	}
	c.JSON(http.StatusOK, h.Dashboard.Summary())
}

func (h Handlers) ListMedications(c *gin.Context) {
	if h.Dashboard == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dashboard not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"medications": h.Dashboard.Medications()})
}

func (h Handlers) AddMedication(c *gin.Context) {
	if h.Dashboard == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dashboard not configured"})
		return
	}
	var req dashboard.NewMedication
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	m, err := h.Dashboard.AddMedication(req)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h Handlers) ToggleMedication(c *gin.Context) {
	if h.Dashboard == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dashboard not configured"})
		return
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid medication id"})
		return
	}
	m, err := h.Dashboard.ToggleMedication(id)
	if errors.Is(err, dashboard.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "medication not found"})
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h Handlers) MedicalHistory(c *gin.Context) {
	if h.Dashboard == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dashboard not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": h.Dashboard.History()})
}

func (h Handlers) ListAppointments(c *gin.Context) {
	if h.Dashboard == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dashboard not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": h.Dashboard.Appointments()})
}
