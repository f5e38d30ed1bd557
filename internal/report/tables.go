package report

import (
	"strconv"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/export"
	"github.com/shopspring/decimal"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func InventoryTable(items []Item) export.Table {
	t := export.Table{Header: []string{"Código", "Produto", "Categoria", "Estoque Atual", "Estoque Mín", "Estoque Máx", "Custo Unit", "Valor Estoque", "% Ocupação", "Status"}}
	for _, it := range items {
		t.Rows = append(t.Rows, []string{
			it.Code,
			it.Name,
			it.Category,
			strconv.Itoa(it.StockCurrent),
			strconv.Itoa(it.StockMin),
			strconv.Itoa(it.StockMax),
			money(cost(it.SKU)),
			money(it.StockValue),
			it.Occupancy.StringFixed(1),
			it.StatusText,
		})
	}
	return t
}

func CriticalTable(r CriticalReport) export.Table {
	t := export.Table{Header: []string{"Código", "Produto", "Categoria", "Estoque Atual", "Estoque Mín", "Qtd Faltante", "Custo Unit", "Valor Reposição"}}
	for _, it := range r.Items {
		t.Rows = append(t.Rows, []string{
			it.Code,
			it.Name,
			it.Category,
			strconv.Itoa(it.StockCurrent),
			strconv.Itoa(it.StockMin),
			strconv.Itoa(it.Shortfall),
			money(cost(it.SKU)),
			money(it.ReplenishmentVal),
		})
	}
	return t
}

func CategoryTable(stats []CategoryStats) export.Table {
	t := export.Table{Header: []string{"Categoria", "Qtd Produtos", "Estoque Total", "Estoque Médio", "Custo Médio", "Valor Total"}}
	for _, s := range stats {
		t.Rows = append(t.Rows, []string{
			s.Category,
			strconv.Itoa(s.Products),
			strconv.Itoa(s.Units),
			s.AvgUnits.StringFixed(2),
			money(s.AvgCost),
			money(s.TotalValue),
		})
	}
	return t
}
