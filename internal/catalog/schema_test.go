package catalog

import (
	"testing"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_NormalizesAndCoerces(t *testing.T) {
	rows := []Row{
		{"Codigo": " p001 ", "Nome": "Caneta", "Categoria": "Papelaria", "Estoque Atual": "15", "estoque_min": "10", "estoque_max": "30", "custo_unitario": "2,50"},
		{"codigo": "p002", "nome": "nan", "estoque_atual": "abc"},
		{"codigo": "  ", "nome": "sem codigo"},
		{"codigo": "None", "nome": "token ausente"},
	}

	cat := Build(rows, BuildOptions{})
	require.Equal(t, 2, cat.Len())

	p1, ok := cat.Get("P001")
	require.True(t, ok)
	assert.Equal(t, "Caneta", p1.Name)
	assert.Equal(t, "Papelaria", p1.Category)
	assert.Equal(t, 15, p1.StockCurrent)
	assert.Equal(t, 10, p1.StockMin)
	assert.Equal(t, 30, p1.StockMax)
	assert.InDelta(t, 2.5, p1.UnitCost, 1e-9)
	assert.False(t, p1.IsBundle)

	p2, ok := cat.Get("p002")
	require.True(t, ok)
	assert.Empty(t, p2.Name)
	assert.Zero(t, p2.StockCurrent)
	assert.Zero(t, p2.StockMax, "missing columns back-fill to zero")
}

func TestBuild_DedupKeepsLastSeen(t *testing.T) {
	rows := []Row{
		{"codigo": "A", "nome": "first", "estoque_atual": "1"},
		{"codigo": "B", "nome": "other"},
		{"codigo": "a ", "nome": "last", "estoque_atual": "9"},
	}

	cat := Build(rows, BuildOptions{})
	require.Equal(t, 2, cat.Len())

	a, ok := cat.Get("A")
	require.True(t, ok)
	assert.Equal(t, "last", a.Name)
	assert.Equal(t, 9, a.StockCurrent)

	records := cat.Records()
	assert.Equal(t, []string{"B", "A"}, []string{records[0].Code, records[1].Code})
}

func TestBuild_Bundles(t *testing.T) {
	tests := []struct {
		name       string
		row        Row
		opts       BuildOptions
		wantBundle bool
		wantValid  bool
		wantComps  []domain.Component
	}{
		{
			name:       "valid kit",
			row:        Row{"codigo": "kit1", "eh_kit": "sim", "componentes": "p001, p002", "quantidades": "2,3"},
			wantBundle: true,
			wantValid:  true,
			wantComps:  []domain.Component{{Code: "P001", Multiplier: 2}, {Code: "P002", Multiplier: 3}},
		},
		{
			name:       "blank tokens filtered before length check",
			row:        Row{"codigo": "kit2", "eh_kit": "SIM", "componentes": "p001,,p002,", "quantidades": " 2 , 3 "},
			wantBundle: true,
			wantValid:  true,
			wantComps:  []domain.Component{{Code: "P001", Multiplier: 2}, {Code: "P002", Multiplier: 3}},
		},
		{
			name:       "length mismatch is inert",
			row:        Row{"codigo": "kit3", "eh_kit": "SIM", "componentes": "p001,p002", "quantidades": "2"},
			wantBundle: true,
		},
		{
			name:       "empty components is inert",
			row:        Row{"codigo": "kit4", "eh_kit": "SIM"},
			wantBundle: true,
		},
		{
			name: "flag not affirmative",
			row:  Row{"codigo": "kit5", "eh_kit": "NAO", "componentes": "p001", "quantidades": "1"},
		},
		{
			name:       "custom flag token",
			row:        Row{"codigo": "kit6", "eh_kit": "yes", "componentes": "p001", "quantidades": "4"},
			opts:       BuildOptions{BundleFlag: "YES"},
			wantBundle: true,
			wantValid:  true,
			wantComps:  []domain.Component{{Code: "P001", Multiplier: 4}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := Build([]Row{tt.row}, tt.opts)
			sku, ok := cat.Get(tt.row["codigo"])
			require.True(t, ok)
			assert.Equal(t, tt.wantBundle, sku.IsBundle)
			assert.Equal(t, tt.wantValid, sku.ValidBundle())
			if tt.wantComps != nil {
				assert.Equal(t, tt.wantComps, sku.Components)
			} else {
				assert.Empty(t, sku.Components)
			}
		})
	}
}

func TestNormalize_BackfillsSchema(t *testing.T) {
	row := Normalize(Row{" CODIGO ": "X"})
	for col := range Schema {
		_, ok := row[col]
		assert.True(t, ok, "column %s should be present", col)
	}
	assert.Equal(t, "X", row[ColCode])
	assert.Equal(t, "0", row[ColStockMin])
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "estoque_atual", NormalizeHeader("\ufeff Estoque   Atual "))
	assert.Equal(t, "codigo", NormalizeHeader("CODIGO "))
}
