package api

import (
	"github.com/gin-gonic/gin"

	"github.com/agora-sim/agora/api/handlers"
	"github.com/agora-sim/agora/communication"
	"github.com/agora-sim/agora/config"
	"github.com/agora-sim/agora/storage"
)

// StartServer initializes the REST API and blocks serving it.
func StartServer(addr string, cfg config.RunConfig, repo *storage.RoundRepository, bus *communication.Bus) error {
	handlers.Init(cfg, repo, bus)

	r := gin.Default()
	SetupRoutes(r)
	return r.Run(addr)
}
