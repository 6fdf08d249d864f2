package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey, version string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

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
		SkipPaths: []string{"/health"},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for the dashboard
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey, version)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey, version string) {
	r.GET("/feeds/:tab", handler.GetFeed)
	r.GET("/health", handler.GetHealth)

	api := r.Group("/api")
	if apiAccessKey != "" {
		api.Use(authMiddleware(apiAccessKey))
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Info("API endpoints enabled without authentication (API_ACCESS_KEY not set)")
	}
	{
		api.GET("/tabs", handler.APIListTabs)
		api.POST("/tabs/:tab/read-all", handler.APIMarkAllRead)
		api.POST("/tabs/:tab/refresh", handler.APIRefreshTab)
		api.GET("/tabs/:tab/runs", handler.APIListRuns)

		api.GET("/items", handler.APIListItems)
		api.POST("/items", handler.APIAddItem)
		api.PUT("/items/:tab/:id/read", handler.APISetRead)
		api.PUT("/items/:tab/:id/pin", handler.APISetPinned)

		api.GET("/export", handler.APIExport)
		api.GET("/reports/mailto", handler.APIMailtoReport)
		api.POST("/reports/email", handler.APIEmailReport)
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     "Veille",
			"version":     version,
			"description": "Tabbed RSS/Atom aggregation with read/pin state, exports and email reports",
			"endpoints": map[string]string{
				"feed":   "/feeds/<tab>",
				"health": "/health",
				"tabs":   "/api/tabs",
				"items":  "/api/items?tab=<tab>",
				"add":    "POST /api/items",
				"export": "/api/export?tab=<tab>&format=csv|json",
				"report": "/api/reports/mailto?tab=<tab>",
			},
			"api_status": map[string]interface{}{
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// authMiddleware accepts the key from X-API-Key or Authorization: Bearer.
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
