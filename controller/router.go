package controller

import (
	"ugc-video-service/controller/handler"
	"ugc-video-service/controller/respond"
	"ugc-video-service/database"
	"ugc-video-service/service/upload_service"
	"ugc-video-service/service/video_service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter setup service router
func SetupRouter(videoService *video_service.VideoService, uploadService *upload_service.UploadService) *gin.Engine {
	// Create Gin engine
	r := gin.Default()

	// Add CORS middleware. The public feed is embedded on arbitrary
	// storefronts, so origins stay open.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Content-Encoding", "Accept", "Cache-Control", "X-Requested-With", "X-Shop-Domain"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * 3600, // 12 hours
	}))

	// Add timing middleware
	r.Use(respond.TimingMiddleware())

	// Create handlers
	videoHandler := handler.NewVideoHandler(videoService)
	uploadHandler := handler.NewUploadHandler(uploadService)

	// API v1 route group (admin surface, shop from X-Shop-Domain header)
	v1 := r.Group("/api/v1")
	{
		videos := v1.Group("/videos")
		{
			// Catalog management
			videos.GET("", videoHandler.ListVideos)
			videos.POST("", videoHandler.CreateVideo)
			videos.POST("/:id/toggle", videoHandler.ToggleVideo)
			videos.DELETE("/:id", videoHandler.DeleteVideo)

			// Upload pipeline
			uploads := videos.Group("/uploads")
			{
				uploads.POST("", uploadHandler.StartUpload)
				uploads.GET("", uploadHandler.ListSessions)
				uploads.GET("/:sessionId", uploadHandler.GetSession)
				uploads.POST("/:sessionId/cancel", uploadHandler.CancelSession)
			}
		}
	}

	// Public storefront feed
	api := r.Group("/api")
	{
		public := api.Group("/public")
		{
			public.GET("/videos", videoHandler.PublicFeed)
		}
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "ugc-video",
			"cache":   database.IsRedisEnabled(),
		})
	})

	return r
}
