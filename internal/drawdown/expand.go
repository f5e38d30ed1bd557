// Package drawdown expands bundle orders, reconciles them against the catalog
// and submits the resulting withdrawals.
package drawdown

import (
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/domain"
)

// BundleTable maps each valid bundle code to its components. SKUs flagged as
// bundles without a usable component list are left out.
func BundleTable(cat *domain.Catalog) map[string][]domain.Component {
	bundles := cat.Bundles()
	table := make(map[string][]domain.Component, len(bundles))
	for _, sku := range bundles {
		table[sku.Code] = sku.Components
	}
	return table
}

// Expand replaces every order line for a bundle by one line per component,
// with quantity order × multiplier, then sums lines sharing a code. Expansion
// goes exactly one level deep: a component that is itself a bundle is kept as
// a plain line. Output order follows the first appearance of each code.
func Expand(lines []domain.OrderLine, cat *domain.Catalog) []domain.ExpandedLine {
	return ExpandWith(lines, BundleTable(cat))
}

// ExpandWith is Expand over a prebuilt bundle table.
func ExpandWith(lines []domain.OrderLine, bundles map[string][]domain.Component) []domain.ExpandedLine {
	agg := newAggregator(len(lines))
	for _, line := range lines {
		code := domain.NormalizeCode(line.Code)
		if code == "" {
			continue
		}

		components, ok := bundles[code]
		if !ok {
			agg.add(code, line.Quantity, "")
			continue
		}
		for _, c := range components {
			agg.add(domain.NormalizeCode(c.Code), line.Quantity*c.Multiplier, code)
		}
	}
	return agg.lines
}

type aggregator struct {
	lines []domain.ExpandedLine
	index map[string]int
}

func newAggregator(n int) *aggregator {
	return &aggregator{
		lines: make([]domain.ExpandedLine, 0, n),
		index: make(map[string]int, n),
	}
}

func (a *aggregator) add(code string, qty int, via string) {
	i, ok := a.index[code]
	if !ok {
		i = len(a.lines)
		a.index[code] = i
		a.lines = append(a.lines, domain.ExpandedLine{Code: code})
	}

	l := &a.lines[i]
	l.Quantity += qty
	if via == "" {
		return
	}
	for _, v := range l.ViaBundles {
		if v == via {
			return
		}
	}
	l.ViaBundles = append(l.ViaBundles, via)
}
