// Package webhook calls the external stock-mutation endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout = 15 * time.Second
	maxBodyExcerpt = 200
)

var ErrNotConfigured = errors.New("webhook url is not configured")

type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether a URL was set.
func (c *Client) Configured() bool {
	return c != nil && c.url != ""
}

// Mutate posts one mutation and decodes the reply. Transport failures, a
// non-JSON body and a reply without the success field are all errors;
// a well-formed reply with success=false is returned as is.
func (c *Client) Mutate(ctx context.Context, req domain.MutationRequest) (domain.MutationResponse, error) {
	if !c.Configured() {
		return domain.MutationResponse{}, ErrNotConfigured
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return domain.MutationResponse{}, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return domain.MutationResponse{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.MutationResponse{}, fmt.Errorf("stock endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.MutationResponse{}, fmt.Errorf("read response (HTTP %d): %w", resp.StatusCode, err)
	}

	log.Debug().
		Str("sku", req.Code).
		Str("tipo", string(req.Direction)).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("webhook: mutation sent")

	out, err := decodeResponse(body)
	if err != nil {
		return domain.MutationResponse{}, fmt.Errorf("malformed response (HTTP %d): %w: %s", resp.StatusCode, err, excerpt(body))
	}
	if !out.Success && out.Message == "" && resp.StatusCode >= http.StatusBadRequest {
		out.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return out, nil
}

// Adjust is the single-item entrada/saida call used outside batches.
func (c *Client) Adjust(ctx context.Context, code string, quantity int, direction domain.Direction, actor string) (domain.MutationResponse, error) {
	if quantity <= 0 {
		return domain.MutationResponse{}, fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	if direction != domain.DirectionIn && direction != domain.DirectionOut {
		return domain.MutationResponse{}, fmt.Errorf("invalid direction %q", direction)
	}
	return c.Mutate(ctx, domain.MutationRequest{
		Code:      domain.NormalizeCode(code),
		Quantity:  quantity,
		Direction: direction,
		Actor:     actor,
	})
}

type wireResponse struct {
	Success        *bool    `json:"success"`
	ResultingStock *float64 `json:"novo_estoque"`
	Message        string   `json:"message"`
	Error          string   `json:"error"`
}

func decodeResponse(body []byte) (domain.MutationResponse, error) {
	var w wireResponse
	if err := json.Unmarshal(body, &w); err != nil {
		return domain.MutationResponse{}, errors.New("body is not a JSON object")
	}
	if w.Success == nil {
		return domain.MutationResponse{}, errors.New("missing success field")
	}

	out := domain.MutationResponse{Success: *w.Success, Message: w.Message}
	if out.Message == "" {
		out.Message = w.Error
	}
	if w.ResultingStock != nil {
		stock := int(*w.ResultingStock)
		out.ResultingStock = &stock
	}
	return out, nil
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxBodyExcerpt {
		s = s[:maxBodyExcerpt] + "..."
	}
	if s == "" {
		s = "(empty body)"
	}
	return s
}
