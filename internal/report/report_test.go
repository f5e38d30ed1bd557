package report

import (
	"bytes"
	"testing"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/domain"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/export"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleItems() []Item {
	return Annotate(domain.NewCatalog([]domain.SKU{
		{Code: "P001", Name: "Caneta Azul", Category: "Papelaria", StockCurrent: 5, StockMin: 10, StockMax: 40, UnitCost: 2.5},
		{Code: "P002", Name: "Lapis", Category: "Papelaria", StockCurrent: 12, StockMin: 10, StockMax: 40, UnitCost: 1.1},
		{Code: "P003", Name: "Grampeador", Category: "Escritorio", StockCurrent: 30, StockMin: 5, StockMax: 20, UnitCost: 32},
		{Code: "P004", Name: "Clips", Category: "Escritorio", StockCurrent: 10, StockMin: 2, StockMax: 0, UnitCost: 0.1},
	}))
}

func TestAnnotate(t *testing.T) {
	items := sampleItems()
	require.Len(t, items, 4)

	assert.Equal(t, domain.StatusCritical, items[0].Status)
	assert.Equal(t, "CRÍTICO", items[0].StatusText)
	assert.Equal(t, "12.5", items[0].StockValue.String())
	assert.Equal(t, "12.5", items[0].Occupancy.String())

	assert.Equal(t, domain.StatusLow, items[1].Status)
	assert.Equal(t, domain.StatusExcess, items[2].Status)
	assert.True(t, items[3].Occupancy.IsZero(), "max 0 gives zero occupancy")
}

func TestFilter(t *testing.T) {
	items := sampleItems()

	assert.Len(t, Filter{Category: "papelaria"}.Apply(items), 2)
	assert.Len(t, Filter{Status: domain.StatusExcess}.Apply(items), 2)
	got := Filter{Query: "caneta"}.Apply(items)
	require.Len(t, got, 1)
	assert.Equal(t, "P001", got[0].Code)
	assert.Len(t, Filter{Query: "p00"}.Apply(items), 4)
	assert.Empty(t, Filter{Category: "Papelaria", Status: domain.StatusOK}.Apply(items))
	assert.Len(t, Filter{}.Apply(items), 4)
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleItems())
	assert.Equal(t, 4, s.Products)
	assert.Equal(t, 57, s.Units)
	// 12.5 + 13.2 + 960 + 1
	assert.Equal(t, "986.70", s.TotalValue.StringFixed(2))
	assert.Equal(t, 1, s.ByStatus[domain.StatusCritical])
	assert.Equal(t, 1, s.ByStatus[domain.StatusLow])
	assert.Equal(t, 0, s.ByStatus[domain.StatusOK])
	assert.Equal(t, 2, s.ByStatus[domain.StatusExcess])
	// (12.5 + 30 + 150 + 0) / 4
	assert.Equal(t, "48.1", s.AvgOccupancy.StringFixed(1))

	empty := Summarize(nil)
	assert.Zero(t, empty.Products)
	assert.True(t, empty.AvgOccupancy.IsZero())
}

func TestCritical(t *testing.T) {
	r := Critical(sampleItems())
	require.Len(t, r.Items, 1)
	assert.Equal(t, 5, r.Items[0].Shortfall)
	assert.Equal(t, "12.50", r.Items[0].ReplenishmentVal.StringFixed(2))
	assert.Equal(t, "12.50", r.TotalValue.StringFixed(2))

	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, CriticalTable(r)))
	assert.Contains(t, buf.String(), "P001,Caneta Azul,Papelaria,5,10,5,2.50,12.50")
}

func TestByCategory(t *testing.T) {
	stats := ByCategory(sampleItems())
	require.Len(t, stats, 2)

	assert.Equal(t, "Escritorio", stats[0].Category)
	assert.Equal(t, 2, stats[0].Products)
	assert.Equal(t, 40, stats[0].Units)
	assert.Equal(t, "20.00", stats[0].AvgUnits.StringFixed(2))
	assert.Equal(t, "16.05", stats[0].AvgCost.StringFixed(2))
	assert.Equal(t, "961.00", stats[0].TotalValue.StringFixed(2))

	assert.Equal(t, "Papelaria", stats[1].Category)
	assert.Equal(t, "8.50", stats[1].AvgUnits.StringFixed(2))
	assert.Equal(t, "1.80", stats[1].AvgCost.StringFixed(2))

	table := CategoryTable(stats)
	assert.Equal(t, []string{"Escritorio", "2", "40", "20.00", "16.05", "961.00"}, table.Rows[0])
}

func TestInventoryTable(t *testing.T) {
	table := InventoryTable(sampleItems())
	require.Len(t, table.Rows, 4)
	assert.Equal(t, "% Ocupação", table.Header[8])
	assert.Equal(t, []string{"P001", "Caneta Azul", "Papelaria", "5", "10", "40", "2.50", "12.50", "12.5", "CRÍTICO"}, table.Rows[0])
}
