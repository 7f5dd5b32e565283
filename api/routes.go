package api

import (
	"github.com/gin-gonic/gin"

	"github.com/agora-sim/agora/api/handlers"
)

// SetupRoutes initializes all API endpoints
func SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/runs", handlers.StartRun)
		api.GET("/runs", handlers.ListRuns)
		api.GET("/runs/:runID", handlers.GetRun)
		api.GET("/runs/:runID/rounds", handlers.GetRounds)
		api.GET("/runs/:runID/rounds/:recordID", handlers.GetRound)
		api.GET("/runs/:runID/agents", handlers.GetAgents)
		api.GET("/presets", handlers.ListPresets)
	}
	router.GET("/ws", handlers.HandleWebSocket)
}
