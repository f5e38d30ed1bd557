// Package report builds the inventory views of the dashboard: filtered
// listings, the status summary and the critical, general and per-category
// reports.
package report

import (
	"sort"
	"strings"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/domain"
	"github.com/shopspring/decimal"
)

// Item is a catalog SKU with its derived status and values.
type Item struct {
	domain.SKU
	Status     domain.Status   `json:"status"`
	StatusText string          `json:"status_label"`
	StockValue decimal.Decimal `json:"valor_estoque"`
	// Occupancy is estoque_atual / estoque_max in percent, one decimal; zero when max is 0.
	Occupancy decimal.Decimal `json:"ocupacao_pct"`
}

func Annotate(cat *domain.Catalog) []Item {
	records := cat.Records()
	items := make([]Item, 0, len(records))
	for _, sku := range records {
		items = append(items, annotate(sku))
	}
	return items
}

func annotate(sku domain.SKU) Item {
	status := sku.Status()
	item := Item{
		SKU:        sku,
		Status:     status,
		StatusText: status.Label(),
		StockValue: decimal.NewFromInt(int64(sku.StockCurrent)).Mul(cost(sku)),
		Occupancy:  decimal.Zero,
	}
	if sku.StockMax != 0 {
		item.Occupancy = decimal.NewFromInt(int64(sku.StockCurrent)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(sku.StockMax))).
			Round(1)
	}
	return item
}

func cost(sku domain.SKU) decimal.Decimal {
	return decimal.NewFromFloat(sku.UnitCost)
}

// Filter narrows a listing. Empty fields match everything.
type Filter struct {
	Category string
	Status   domain.Status
	// Query matches a case-insensitive substring of the name or the code.
	Query string
}

func (f Filter) Apply(items []Item) []Item {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	category := strings.TrimSpace(f.Category)

	out := make([]Item, 0, len(items))
	for _, it := range items {
		if category != "" && !strings.EqualFold(it.Category, category) {
			continue
		}
		if f.Status != "" && it.Status != f.Status {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(it.Name), query) &&
			!strings.Contains(strings.ToLower(it.Code), query) {
			continue
		}
		out = append(out, it)
	}
	return out
}

type Summary struct {
	Products   int                   `json:"total_produtos"`
	Units      int                   `json:"unidades_total"`
	TotalValue decimal.Decimal       `json:"valor_total"`
	ByStatus   map[domain.Status]int `json:"por_status"`
	// AvgOccupancy is the mean of Item.Occupancy, one decimal.
	AvgOccupancy decimal.Decimal `json:"ocupacao_media"`
}

func Summarize(items []Item) Summary {
	s := Summary{
		TotalValue: decimal.Zero,
		ByStatus: map[domain.Status]int{
			domain.StatusCritical: 0,
			domain.StatusLow:      0,
			domain.StatusOK:       0,
			domain.StatusExcess:   0,
		},
		AvgOccupancy: decimal.Zero,
	}

	occupancy := decimal.Zero
	for _, it := range items {
		s.Products++
		s.Units += it.StockCurrent
		s.TotalValue = s.TotalValue.Add(it.StockValue)
		s.ByStatus[it.Status]++
		occupancy = occupancy.Add(it.Occupancy)
	}
	if s.Products > 0 {
		s.AvgOccupancy = occupancy.Div(decimal.NewFromInt(int64(s.Products))).Round(1)
	}
	return s
}

// CriticalItem is a CRITICAL SKU with what it takes to bring it back to its minimum.
type CriticalItem struct {
	Item
	Shortfall        int             `json:"qtd_faltante"`
	ReplenishmentVal decimal.Decimal `json:"valor_reposicao"`
}

type CriticalReport struct {
	Items      []CriticalItem  `json:"items"`
	TotalValue decimal.Decimal `json:"valor_total_reposicao"`
}

func Critical(items []Item) CriticalReport {
	r := CriticalReport{Items: []CriticalItem{}, TotalValue: decimal.Zero}
	for _, it := range items {
		if it.Status != domain.StatusCritical {
			continue
		}
		shortfall := it.StockMin - it.StockCurrent
		value := decimal.NewFromInt(int64(shortfall)).Mul(cost(it.SKU))
		r.Items = append(r.Items, CriticalItem{Item: it, Shortfall: shortfall, ReplenishmentVal: value})
		r.TotalValue = r.TotalValue.Add(value)
	}
	return r
}

type CategoryStats struct {
	Category   string          `json:"categoria"`
	Products   int             `json:"qtd_produtos"`
	Units      int             `json:"estoque_total"`
	AvgUnits   decimal.Decimal `json:"estoque_medio"`
	AvgCost    decimal.Decimal `json:"custo_medio"`
	TotalValue decimal.Decimal `json:"valor_total"`
}

// ByCategory groups items by category, sorted by name. Averages are rounded to
// two decimals; the total value sums estoque_atual × custo_unitario per item.
func ByCategory(items []Item) []CategoryStats {
	type acc struct {
		products int
		units    int
		cost     decimal.Decimal
		value    decimal.Decimal
	}
	groups := map[string]*acc{}
	for _, it := range items {
		g, ok := groups[it.Category]
		if !ok {
			g = &acc{cost: decimal.Zero, value: decimal.Zero}
			groups[it.Category] = g
		}
		g.products++
		g.units += it.StockCurrent
		g.cost = g.cost.Add(cost(it.SKU))
		g.value = g.value.Add(it.StockValue)
	}

	out := make([]CategoryStats, 0, len(groups))
	for name, g := range groups {
		n := decimal.NewFromInt(int64(g.products))
		out = append(out, CategoryStats{
			Category:   name,
			Products:   g.products,
			Units:      g.units,
			AvgUnits:   decimal.NewFromInt(int64(g.units)).Div(n).Round(2),
			AvgCost:    g.cost.Div(n).Round(2),
			TotalValue: g.value.Round(2),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
