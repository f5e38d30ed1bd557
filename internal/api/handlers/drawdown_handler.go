package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/domain"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/repository"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type DrawdownHandler struct {
	service  *service.DrawdownService
	maxBytes int64
}

// NewDrawdownHandler caps multipart bodies at maxBytes; zero or less means no cap.
func NewDrawdownHandler(service *service.DrawdownService, maxBytes int64) *DrawdownHandler {
	return &DrawdownHandler{service: service, maxBytes: maxBytes}
}

// Preview handles the multipart upload (field "file") and returns the reconciliation.
func (h *DrawdownHandler) Preview(c *gin.Context) {
	if h.maxBytes > 0 {
		// room for the multipart envelope
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+1<<20)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		log.Error().Err(err).Str("filename", fileHeader.Filename).Msg("failed to read uploaded file")
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded file"})
		return
	}

	preview, err := h.service.Preview(c.Request.Context(), fileHeader.Filename, content)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"preview":   preview,
		"can_apply": h.service.CanApply(),
	})
}

func (h *DrawdownHandler) GetPreview(c *gin.Context) {
	preview, err := h.service.GetPreview(c.Request.Context(), c.Param("batch_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

type submitRequest struct {
	Actor string `json:"usuario"`
	// Apply performs the real drawdown; false simulates it.
	Apply bool `json:"apply"`
}

func (h *DrawdownHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	mode := domain.ModeSimulate
	if req.Apply {
		mode = domain.ModeApply
	}

	report, err := h.service.Submit(c.Request.Context(), c.Param("batch_id"), req.Actor, mode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Export streams ?table=matched|unmatched of a pending preview as CSV.
func (h *DrawdownHandler) Export(c *gin.Context) {
	batchID := c.Param("batch_id")
	table := strings.ToLower(strings.TrimSpace(c.DefaultQuery("table", service.TableMatched)))

	// render first so errors can still become a JSON response
	var buf bytes.Buffer
	if err := h.service.ExportPreview(c.Request.Context(), batchID, table, &buf); err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="baixa_%s_%s.csv"`, table, batchID))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// History lists audit entries. Query: batch_id, codigo (comma separated),
// mode, since (RFC3339 or YYYY-MM-DD), limit.
func (h *DrawdownHandler) History(c *gin.Context) {
	filter := repository.HistoryFilter{
		BatchID: strings.TrimSpace(c.Query("batch_id")),
		Mode:    domain.SubmitMode(strings.TrimSpace(c.Query("mode"))),
	}

	if codes := strings.TrimSpace(c.Query("codigo")); codes != "" {
		for _, code := range strings.Split(codes, ",") {
			if code = strings.TrimSpace(code); code != "" {
				filter.Codes = append(filter.Codes, code)
			}
		}
	}

	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		since, err := parseSince(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339 or YYYY-MM-DD"})
			return
		}
		filter.Since = since
	}

	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		filter.Limit = limit
	}

	entries, err := h.service.History(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "total": len(entries)})
}

func (h *DrawdownHandler) Archive(c *gin.Context) {
	objects, err := h.service.Archive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"objects": objects})
}

func parseSince(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", raw, time.Local)
}
