package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/domain"
)

const DefaultHistoryLimit = 200

// DrawdownRepository is the audit log of submitted batches, one entry per line.
type DrawdownRepository interface {
	SaveReport(ctx context.Context, report domain.SubmissionReport) error
	ListHistory(ctx context.Context, filter HistoryFilter) ([]domain.HistoryEntry, error)
}

type HistoryFilter struct {
	BatchID string
	Codes   []string
	Mode    domain.SubmitMode
	Since   time.Time
	Limit   int
}

type noopDrawdownRepository struct{}

// NewNoopDrawdownRepository is used when no database is configured.
func NewNoopDrawdownRepository() DrawdownRepository {
	return noopDrawdownRepository{}
}

func (noopDrawdownRepository) SaveReport(ctx context.Context, report domain.SubmissionReport) error {
	return nil
}

func (noopDrawdownRepository) ListHistory(ctx context.Context, filter HistoryFilter) ([]domain.HistoryEntry, error) {
	return []domain.HistoryEntry{}, nil
}
