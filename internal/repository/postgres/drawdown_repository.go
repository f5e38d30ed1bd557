package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/domain"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/repository"
	"github.com/lib/pq"
)

type drawdownRepository struct {
	db *DB
}

func NewDrawdownRepository(db *DB) repository.DrawdownRepository {
	return &drawdownRepository{db: db}
}

// SaveReport writes every outcome of the report in one transaction.
func (r *drawdownRepository) SaveReport(ctx context.Context, report domain.SubmissionReport) error {
	if len(report.Outcomes) == 0 {
		return nil
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO drawdown_history (
				batch_id, mode, actor, sku, quantity, stock_before,
				success, resulting_stock, error_message, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, o := range report.Outcomes {
			var resulting sql.NullInt64
			if o.ResultingStock != nil {
				resulting = sql.NullInt64{Int64: int64(*o.ResultingStock), Valid: true}
			}

			if _, err := stmt.ExecContext(
				ctx,
				report.BatchID,
				string(report.Mode),
				o.Actor,
				o.Code,
				o.Quantity,
				o.StockBefore,
				o.Success,
				resulting,
				o.Error,
				o.Timestamp,
			); err != nil {
				return fmt.Errorf("failed to save outcome for %s: %w", o.Code, err)
			}
		}
		return nil
	})
}

func (r *drawdownRepository) ListHistory(ctx context.Context, filter repository.HistoryFilter) ([]domain.HistoryEntry, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.BatchID != "" {
		where = append(where, "batch_id = "+arg(filter.BatchID))
	}
	if len(filter.Codes) > 0 {
		codes := make([]string, len(filter.Codes))
		for i, c := range filter.Codes {
			codes[i] = domain.NormalizeCode(c)
		}
		where = append(where, "sku = ANY("+arg(pq.Array(codes))+")")
	}
	if filter.Mode != "" {
		where = append(where, "mode = "+arg(string(filter.Mode)))
	}
	if !filter.Since.IsZero() {
		where = append(where, "created_at >= "+arg(filter.Since))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = repository.DefaultHistoryLimit
	}

	query := `
		SELECT id, batch_id, mode, actor, sku, quantity, stock_before,
		       success, resulting_stock, error_message, created_at
		FROM drawdown_history`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY created_at DESC, id DESC\n\t\tLIMIT " + arg(limit)

	entries := []domain.HistoryEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list drawdown history: %w", err)
	}
	return entries, nil
}
