package httpapi

import "github.com/gin-gonic/gin"

// Register mounts the directory, guideline and dashboard routes on the /api
// group.
func (h Handlers) Register(api *gin.RouterGroup) {
	providers := api.Group("/providers")
	{
		providers.GET("", h.ListProviders)
		providers.GET("/filters", h.ProviderFilters)
		providers.GET("/:id", h.GetProvider)
		providers.POST("/:id/booking", h.BookProvider)
	}

	gl := api.Group("/guidelines")
	{
		gl.GET("", h.ListGuidelines)
		gl.GET("/search", h.SearchGuidelines)
		gl.GET("/sections/:id", h.GetGuideline)
		gl.POST("/chat", h.AskGuidelines)
		gl.GET("/chat/:conversation_id", h.GetConversation)
		gl.DELETE("/chat/:conversation_id", h.DeleteConversation)
	}

	dash := api.Group("/dashboard")
	{
		dash.GET("", h.DashboardSummary)
		dash.GET("/medications", h.ListMedications)
		dash.POST("/medications", h.AddMedication)
		dash.POST("/medications/:id/toggle", h.ToggleMedication)
		dash.GET("/history", h.MedicalHistory)
		dash.GET("/appointments", h.ListAppointments)
	}
}
