package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xxxsen/tunebox/internal/middleware"
	"github.com/xxxsen/tunebox/internal/pkg/response"
)

type RouterDeps struct {
	Music *MusicHandler
	// minimum gap between two downloads from one client
	DownloadWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})
	api.GET("/metrics", gin.WrapH(promhttp.Handler()))

	music := api.Group("/music")
	music.POST("/search", deps.Music.Search)
	music.POST("/top-trending", deps.Music.TopTrending)
	music.GET("/download/:id", middleware.RateLimit(deps.DownloadWindow), deps.Music.Download)
	music.GET("/lyrics/:id", deps.Music.Lyrics)
	music.GET("/tracks/:id", deps.Music.TrackInfo)
	music.GET("/tracks/:id/similar", deps.Music.Similar)
	music.POST("/tracks/:id/audio", deps.Music.EmbedAudio)
	music.GET("/popular", deps.Music.Popular)
}
