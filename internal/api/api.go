// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/api/handlers"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/api/middleware"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// DrivePrefix is where the Drive discovery routes are mounted.
const DrivePrefix = "/api/v1/drive"

type Services struct {
	InventoryService *service.InventoryService
	DrawdownService  *service.DrawdownService
	// Drive serves the routes under DrivePrefix; nil when Drive is not configured.
	Drive http.Handler
	// UploadMaxBytes caps multipart uploads.
	UploadMaxBytes int64
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.InventoryService != nil {
			catalogHandler := handlers.NewCatalogHandler(services.InventoryService)
			catalogGroup := apiGroup.Group("/catalog")
			{
				catalogGroup.GET("", catalogHandler.ListItems)
				catalogGroup.GET("/summary", catalogHandler.GetSummary)
				catalogGroup.GET("/categories", catalogHandler.GetCategories)
				catalogGroup.GET("/bundles", catalogHandler.GetBundles)
				catalogGroup.POST("/refresh", catalogHandler.Refresh)
				catalogGroup.POST("/:code/adjust", catalogHandler.Adjust)
			}

			reportGroup := apiGroup.Group("/reports")
			{
				reportGroup.GET("/general", catalogHandler.ListItems)
				reportGroup.GET("/critical", catalogHandler.GetCriticalReport)
				reportGroup.GET("/categories", catalogHandler.GetCategoryReport)
			}
		}

		if services.DrawdownService != nil {
			drawdownHandler := handlers.NewDrawdownHandler(services.DrawdownService, services.UploadMaxBytes)
			drawdownGroup := apiGroup.Group("/drawdown")
			{
				drawdownGroup.POST("/preview", drawdownHandler.Preview)
				drawdownGroup.GET("/history", drawdownHandler.History)
				drawdownGroup.GET("/archive", drawdownHandler.Archive)
				drawdownGroup.GET("/:batch_id", drawdownHandler.GetPreview)
				drawdownGroup.POST("/:batch_id/submit", drawdownHandler.Submit)
				drawdownGroup.GET("/:batch_id/export", drawdownHandler.Export)
			}
		}

		if services.Drive != nil {
			apiGroup.Any("/drive/*path", gin.WrapH(services.Drive))
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
