package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	ColCode     = "codigo"
	ColQuantity = "quantidade"
)

// Header variants seen in sales and invoice exports, after normalization.
var columnAliases = map[string]string{
	"cod":            ColCode,
	"codigo_produto": ColCode,
	"cod_produto":    ColCode,
	"sku":            ColCode,
	"qtd":            ColQuantity,
	"qtde":           ColQuantity,
	"quant":          ColQuantity,
	"qtd_vendida":    ColQuantity,
}

// NormalizeHeader strips diacritics, lower-cases and trims a column name;
// inner whitespace becomes "_". "Código " and "CODIGO" both give "codigo".
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(t, h); err == nil {
		h = stripped
	}
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

// resolveColumns returns the positions of the code and quantity columns. Exact
// names win over aliases.
func resolveColumns(header []string) (code, qty int, normalized []string) {
	code, qty = -1, -1
	normalized = make([]string, len(header))
	for i, h := range header {
		normalized[i] = NormalizeHeader(h)
	}

	for i, h := range normalized {
		switch h {
		case ColCode:
			if code < 0 {
				code = i
			}
		case ColQuantity:
			if qty < 0 {
				qty = i
			}
		}
	}
	for i, h := range normalized {
		switch columnAliases[h] {
		case ColCode:
			if code < 0 {
				code = i
			}
		case ColQuantity:
			if qty < 0 {
				qty = i
			}
		}
	}
	return code, qty, normalized
}
