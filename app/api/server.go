package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/newsdesk/app/cfg"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health", "/favicon.ico"},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key, "+ownerHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/health", handler.GetHealth)
	r.GET("/channels", handler.ListChannels)

	api := r.Group("/api")
	if apiAccessKey != "" {
		api.Use(authMiddleware(apiAccessKey))
		slog.Info("API authentication enabled")
	} else {
		slog.Warn("API authentication disabled (API_ACCESS_KEY not set)")
	}

	sessions := api.Group("/sessions")
	{
		sessions.POST("", handler.CreateSession)
		sessions.GET("/:id", handler.GetSession)
		sessions.DELETE("/:id", handler.DeleteSession)

		sessions.GET("/:id/channels/:channel", handler.GetChannel)
		sessions.GET("/:id/channels/:channel/export", handler.ExportChannel)

		sessions.PUT("/:id/filters", handler.ApplyFilters)
		sessions.DELETE("/:id/filters", handler.ResetFilters)
		sessions.POST("/:id/refresh", handler.ManualRefresh)

		sessions.POST("/:id/live", handler.StartLive)
		sessions.DELETE("/:id/live", handler.StopLive)

		sessions.POST("/:id/feeds", handler.AddFeed)
		sessions.DELETE("/:id/feeds", handler.RemoveFeed)

		sessions.PUT("/:id/alerts", handler.SetAlerts)
	}

	bookmarks := api.Group("/bookmarks")
	{
		bookmarks.GET("", handler.ListBookmarks)
		bookmarks.POST("", handler.CreateBookmark)
		bookmarks.GET("/export", handler.ExportBookmarks)
		bookmarks.GET("/:id", handler.GetBookmark)
		bookmarks.POST("/:id/extract", handler.ExtractBookmark)
		bookmarks.PATCH("/:id", handler.UpdateBookmark)
		bookmarks.DELETE("/:id", handler.DeleteBookmark)
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     "Newsdesk",
			"version":     cfg.GetVersion(),
			"description": "RSS news aggregation with classification, filtering and live monitoring",
			"endpoints": map[string]string{
				"health":    "/health",
				"channels":  "/channels",
				"sessions":  "/api/sessions",
				"channel":   "/api/sessions/<id>/channels/<channel>",
				"bookmarks": "/api/bookmarks",
			},
			"api_status": map[string]any{
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
				"owner_header":  ownerHeader,
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// authMiddleware accepts the key in X-API-Key or as an Authorization bearer token
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
