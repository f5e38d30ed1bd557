package drawdown

import (
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/domain"
)

// Match partitions expanded lines by catalog membership and projects the
// stock after the drawdown. Lines sharing a code are summed first, so every
// distinct code lands in exactly one of the two sets. Match does not touch the
// catalog or anything else.
func Match(lines []domain.ExpandedLine, cat *domain.Catalog) domain.Reconciliation {
	agg := newAggregator(len(lines))
	for _, l := range lines {
		code := domain.NormalizeCode(l.Code)
		if code == "" {
			continue
		}
		agg.add(code, l.Quantity, "")
	}

	result := domain.Reconciliation{
		Matched:   []domain.MatchedLine{},
		Unmatched: []domain.UnmatchedLine{},
	}
	for _, l := range agg.lines {
		sku, ok := cat.Get(l.Code)
		if !ok {
			result.Unmatched = append(result.Unmatched, domain.UnmatchedLine{Code: l.Code, Quantity: l.Quantity})
			continue
		}

		after := sku.StockCurrent - l.Quantity
		result.Matched = append(result.Matched, domain.MatchedLine{
			Code:        sku.Code,
			Name:        sku.Name,
			Category:    sku.Category,
			Quantity:    l.Quantity,
			StockBefore: sku.StockCurrent,
			StockAfter:  after,
			Risk:        domain.BucketFor(after),
			StatusAfter: domain.Classify(after, sku.StockMin, sku.StockMax),
		})
	}
	return result
}
