package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"healthmate/internal/booking"
	"healthmate/internal/catalog"
	"healthmate/internal/dashboard"
	"healthmate/internal/directory"
	"healthmate/internal/guidelines"
	"healthmate/internal/reporting"
	"healthmate/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Catalog   *catalog.Store
	Directory *directory.Service
	Booking   *booking.Service
	Renderer  *guidelines.Renderer
	Chat      *guidelines.ChatService
	Dashboard *dashboard.Service
	Reporting *reporting.Service
}

// --- Providers ---

func (h Handlers) ListProviders(c *gin.Context) {
	if h.Directory == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "directory not configured"})
		return
	}
	f, err := parseFilter(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.Directory.List(f))
}

func (h Handlers) ProviderFilters(c *gin.Context) {
	if h.Directory == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "directory not configured"})
		return
	}
	c.JSON(http.StatusOK, h.Directory.FilterOptions())
}

func (h Handlers) GetProvider(c *gin.Context) {
	if h.Directory == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "directory not configured"})
		return
	}
	id, ok := providerID(c)
	if !ok {
		return
	}
	d, err := h.Directory.Get(id)
	if errors.Is(err, directory.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "provider not found"})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("get provider failed", "provider_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "provider lookup failed"})
		return
	}
	c.JSON(http.StatusOK, d)
}

type bookingRequest struct {
	UserName string `json:"userName"`
}

// BookProvider hands the booking to the AI assistant webhook. The request
// body is optional.
func (h Handlers) BookProvider(c *gin.Context) {
	if h.Booking == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "booking not configured"})
		return
	}
	id, ok := providerID(c)
	if !ok {
		return
	}
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	logger.Enrich(c, "provider_id", id)

	res, err := h.Booking.Book(c.Request.Context(), id, req.UserName, c.ClientIP())
	switch {
	case errors.Is(err, booking.ErrProviderNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "provider not found"})
	case errors.Is(err, booking.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		c.AbortWithStatusJSON(http.StatusBadGateway, res)
	default:
		c.JSON(http.StatusAccepted, res)
	}
}

func providerID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid provider id"})
		return 0, false
	}
	return id, true
}

// parseFilter reads q, type, insurance, public, english and open. List
// parameters accept repeated keys and comma separated values.
func parseFilter(c *gin.Context) (directory.Filter, error) {
	f := directory.Filter{Query: strings.TrimSpace(c.Query("q"))}

	for _, v := range listParam(c, "type") {
		t := catalog.ProviderType(strings.ToLower(v))
		if !t.Valid() {
			return directory.Filter{}, errors.New("unknown provider type " + strconv.Quote(v))
		}
		f.ProviderTypes = append(f.ProviderTypes, t)
	}
	f.InsuranceTypes = listParam(c, "insurance")

	var err error
	if f.Public, err = boolParam(c, "public"); err != nil {
		return directory.Filter{}, err
	}
	if f.EnglishSpeaking, err = boolParam(c, "english"); err != nil {
		return directory.Filter{}, err
	}
	if f.OpenOnly, err = boolParam(c, "open"); err != nil {
		return directory.Filter{}, err
	}
	return f, nil
}

func listParam(c *gin.Context, key string) []string {
	var out []string
	for _, raw := range c.QueryArray(key) {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func boolParam(c *gin.Context, key string) (*bool, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errors.New(key + " must be true or false")
	}
	return &v, nil
}
