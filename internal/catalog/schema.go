package catalog

import (
	"strings"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/coerce"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
)

// Column names of the catalog sheet, after header normalization.
const (
	ColCode         = "codigo"
	ColName         = "nome"
	ColCategory     = "categoria"
	ColStockCurrent = "estoque_atual"
	ColStockMin     = "estoque_min"
	ColStockMax     = "estoque_max"
	ColUnitCost     = "custo_unitario"
	ColIsBundle     = "eh_kit"
	ColComponents   = "componentes"
	ColQuantities   = "quantidades"
)

// DefaultBundleFlag is the affirmative token of the eh_kit column.
const DefaultBundleFlag = "SIM"

// Row is one raw catalog row keyed by column name.
type Row map[string]string

// Schema maps every known column to the value used when the sheet lacks it.
// Missing columns degrade to these defaults instead of failing the load.
var Schema = map[string]string{
	ColCode:         "",
	ColName:         "",
	ColCategory:     "",
	ColStockCurrent: "0",
	ColStockMin:     "0",
	ColStockMax:     "0",
	ColUnitCost:     "0",
	ColIsBundle:     "",
	ColComponents:   "",
	ColQuantities:   "",
}

type BuildOptions struct {
	// BundleFlag is compared case-insensitively with eh_kit; empty means DefaultBundleFlag.
	BundleFlag string
}

// Normalize returns a copy of the row with trimmed lower-case keys and every
// schema column present.
func Normalize(row Row) Row {
	out := make(Row, len(Schema)+len(row))
	for k, v := range row {
		out[NormalizeHeader(k)] = v
	}
	for col, def := range Schema {
		if _, ok := out[col]; !ok {
			out[col] = def
		}
	}
	return out
}

// NormalizeHeader trims and lower-cases a sheet header; inner spaces become
// underscores so "Estoque Atual" matches estoque_atual.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

// Build turns raw rows into a deduplicated catalog. Rows with an empty code
// are dropped; when a normalized code repeats, the last row wins and keeps its
// own position. Build has no side effects besides data-quality logging.
func Build(rows []Row, opts BuildOptions) *domain.Catalog {
	flag := strings.TrimSpace(opts.BundleFlag)
	if flag == "" {
		flag = DefaultBundleFlag
	}

	parsed := make([]domain.SKU, 0, len(rows))
	lastIndex := make(map[string]int, len(rows))
	for _, raw := range rows {
		row := Normalize(raw)
		sku, ok := parseSKU(row, flag)
		if !ok {
			continue
		}
		lastIndex[sku.Code] = len(parsed)
		parsed = append(parsed, sku)
	}

	records := make([]domain.SKU, 0, len(lastIndex))
	for i, sku := range parsed {
		if lastIndex[sku.Code] != i {
			continue
		}
		records = append(records, sku)
	}

	if dups := len(parsed) - len(records); dups > 0 {
		log.Warn().Int("duplicates", dups).Msg("catalog: duplicate codes collapsed, keeping last row")
	}

	return domain.NewCatalog(records)
}

func parseSKU(row Row, bundleFlag string) (domain.SKU, bool) {
	code := domain.NormalizeCode(row[ColCode])
	if code == "" || coerce.IsMissing(code) {
		return domain.SKU{}, false
	}

	sku := domain.SKU{
		Code:         code,
		Name:         cleanText(row[ColName]),
		Category:     cleanText(row[ColCategory]),
		StockCurrent: coerce.Int(row[ColStockCurrent], 0),
		StockMin:     coerce.Int(row[ColStockMin], 0),
		StockMax:     coerce.Int(row[ColStockMax], 0),
		UnitCost:     coerce.Float(row[ColUnitCost], 0),
		IsBundle:     strings.EqualFold(strings.TrimSpace(row[ColIsBundle]), bundleFlag),
	}

	if sku.IsBundle {
		components, ok := ParseComponents(row[ColComponents], row[ColQuantities])
		if !ok {
			log.Warn().
				Str("sku", code).
				Str("componentes", row[ColComponents]).
				Str("quantidades", row[ColQuantities]).
				Msg("catalog: invalid bundle definition, treating as plain sku")
		}
		sku.Components = components
	}

	return sku, true
}

// ParseComponents pairs the comma-separated component codes with their
// multipliers. Both lists must be non-empty and of equal length after blanks
// and uncoercible quantities are dropped; otherwise the bundle is inert and
// nil, false is returned.
func ParseComponents(components, quantities string) ([]domain.Component, bool) {
	codes := coerce.StringList(components)
	mults := coerce.IntList(quantities)
	if len(codes) == 0 || len(codes) != len(mults) {
		return nil, false
	}

	out := make([]domain.Component, len(codes))
	for i := range codes {
		out[i] = domain.Component{
			Code:       domain.NormalizeCode(codes[i]),
			Multiplier: mults[i],
		}
	}
	return out, true
}

func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if coerce.IsMissing(s) {
		return ""
	}
	return s
}
