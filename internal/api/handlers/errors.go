package handlers

import (
	"errors"
	"net/http"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/catalog"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/drawdown"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/ingest"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/service"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/storage"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/webhook"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// respondError maps service errors to HTTP statuses.
func respondError(c *gin.Context, err error) {
	if reason, ok := ingest.AsReason(err); ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": reason.Message, "reason": reason})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, catalog.ErrCatalogUnavailable), errors.Is(err, service.ErrCatalogNotLoaded):
		status = http.StatusServiceUnavailable
	case errors.Is(err, drawdown.ErrNoMutator), errors.Is(err, service.ErrNoAdjuster),
		errors.Is(err, webhook.ErrNotConfigured), errors.Is(err, storage.ErrDisabled):
		status = http.StatusServiceUnavailable
	case errors.Is(err, service.ErrPreviewNotFound), errors.Is(err, service.ErrUnknownSKU):
		status = http.StatusNotFound
	case errors.Is(err, drawdown.ErrInvalidMode), errors.Is(err, service.ErrUnknownTable):
		status = http.StatusBadRequest
	}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
