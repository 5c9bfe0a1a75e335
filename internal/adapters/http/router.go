package http

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gnupbl/partyvoice/internal/config"
)

// RequestIDMiddleware tags every request so log lines from one call
// can be correlated.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set("request_id", rid)
		c.Header("X-Request-ID", rid)
		c.Next()
	}
}

// SecretMiddleware rejects API calls without the shared secret. When
// no secret is configured (local development) everything passes.
func SecretMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret != "" && c.GetHeader("X-API-Secret") != secret {
			c.AbortWithStatusJSON(401, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func SetupRouter(cfg *config.Config, svc PartyService, rooms RoomLister) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())

	// Keep-alive ping for free-tier hosting watchdogs.
	r.GET("/", func(c *gin.Context) {
		c.String(200, "ok")
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")

	api := r.Group("/api")
	api.Use(SecretMiddleware(cfg.APISecret))
	api.POST("/create-party", handleCreateParty(svc))
	api.GET("/rooms", handleListRooms(rooms))

	return r
}
