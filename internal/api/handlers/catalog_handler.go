package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/domain"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/export"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/report"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type CatalogHandler struct {
	service *service.InventoryService
}

func NewCatalogHandler(service *service.InventoryService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// parseFilter reads ?categoria=&status=&q=. An unknown status is a 400.
func (h *CatalogHandler) parseFilter(c *gin.Context) (report.Filter, bool) {
	filter := report.Filter{
		Category: strings.TrimSpace(c.Query("categoria")),
		Query:    strings.TrimSpace(c.Query("q")),
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status, ok := domain.ParseStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown status %q", raw)})
			return filter, false
		}
		filter.Status = status
	}
	return filter, true
}

// ListItems returns the annotated catalog; ?format=csv returns the general report.
func (h *CatalogHandler) ListItems(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	if wantsCSV(c) {
		writeCSV(c, "relatorio_geral.csv", report.InventoryTable(items))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": len(items),
	})
}

func (h *CatalogHandler) GetSummary(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	summary, err := h.service.Summary(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *CatalogHandler) GetCategories(c *gin.Context) {
	categories, err := h.service.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *CatalogHandler) GetBundles(c *gin.Context) {
	bundles, err := h.service.Bundles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bundles": bundles})
}

// Refresh forces a catalog reload.
func (h *CatalogHandler) Refresh(c *gin.Context) {
	cat, err := h.service.Refresh(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"skus": cat.Len()})
}

type adjustRequest struct {
	Quantity  int    `json:"quantidade" binding:"required"`
	Direction string `json:"tipo" binding:"required"`
	Actor     string `json:"usuario"`
}

// Adjust handles POST /catalog/:code/adjust, a single entrada/saida.
func (h *CatalogHandler) Adjust(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	direction := domain.Direction(strings.ToLower(strings.TrimSpace(req.Direction)))
	if direction != domain.DirectionIn && direction != domain.DirectionOut {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("tipo must be %q or %q", domain.DirectionIn, domain.DirectionOut)})
		return
	}
	if req.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantidade must be positive"})
		return
	}

	resp, err := h.service.Adjust(c.Request.Context(), c.Param("code"), req.Quantity, direction, req.Actor)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if !resp.Success {
		status = http.StatusBadGateway
	}
	c.JSON(status, resp)
}

func (h *CatalogHandler) GetCriticalReport(c *gin.Context) {
	critical, err := h.service.Critical(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	if wantsCSV(c) {
		writeCSV(c, "relatorio_critico.csv", report.CriticalTable(critical))
		return
	}
	c.JSON(http.StatusOK, critical)
}

func (h *CatalogHandler) GetCategoryReport(c *gin.Context) {
	stats, err := h.service.ByCategory(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	if wantsCSV(c) {
		writeCSV(c, "relatorio_categorias.csv", report.CategoryTable(stats))
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": stats})
}

func wantsCSV(c *gin.Context) bool {
	return strings.EqualFold(c.Query("format"), "csv")
}

func writeCSV(c *gin.Context, filename string, t export.Table) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Status(http.StatusOK)
	if err := export.WriteCSV(c.Writer, t); err != nil {
		log.Error().Err(err).Str("file", filename).Msg("csv export failed")
	}
}
