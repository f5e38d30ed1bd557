// backend-go/cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/api"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/app"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/config"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/drive"
	"github.com/andresuchdata/estoque-drawdown/backend-go/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	application, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	// Warm the catalog; a failure here only means the first request retries.
	if cat, err := application.Provider.Get(ctx); err != nil {
		logger.Log.Warn().Err(err).Msg("Catalog not loaded at startup")
	} else {
		logger.Log.Info().Int("skus", cat.Len()).Msg("Catalog loaded")
	}

	services := &api.Services{
		InventoryService: application.Inventory,
		DrawdownService:  application.Drawdown,
		UploadMaxBytes:   cfg.App.UploadMaxBytes,
	}
	if application.Drive != nil {
		services.Drive = drive.NewHandler(application.Drive).Router(api.DrivePrefix)
	}

	router := api.NewRouter(services, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// In-flight submissions get the write timeout to finish their current line.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.WriteTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
