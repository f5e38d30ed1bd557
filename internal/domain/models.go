// backend-go/internal/domain/models.go
package domain

import "strings"

// SKU represents one catalog row after schema normalization.
type SKU struct {
	Code         string      `json:"codigo"`
	Name         string      `json:"nome"`
	Category     string      `json:"categoria"`
	StockCurrent int         `json:"estoque_atual"`
	StockMin     int         `json:"estoque_min"`
	StockMax     int         `json:"estoque_max"`
	UnitCost     float64     `json:"custo_unitario"`
	IsBundle     bool        `json:"eh_kit"`
	Components   []Component `json:"componentes,omitempty"`
}

// Component is one entry of a bundle definition.
type Component struct {
	Code       string `json:"codigo"`
	Multiplier int    `json:"quantidade"`
}

// Status classifies the SKU against its own min/max thresholds.
func (s SKU) Status() Status {
	return Classify(s.StockCurrent, s.StockMin, s.StockMax)
}

// ValidBundle reports whether the SKU is flagged as a bundle and carries a
// usable component list.
func (s SKU) ValidBundle() bool {
	return s.IsBundle && len(s.Components) > 0
}

// NormalizeCode is the canonical business key: trimmed and upper-cased.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Catalog is an immutable, deduplicated index of SKUs keyed by normalized code.
// Records keep the order in which they were indexed.
type Catalog struct {
	records []SKU
	index   map[string]int
}

// NewCatalog indexes records. Later records with the same normalized code
// replace earlier ones; callers that need a specific policy dedup first.
func NewCatalog(records []SKU) *Catalog {
	c := &Catalog{
		records: make([]SKU, 0, len(records)),
		index:   make(map[string]int, len(records)),
	}
	for _, r := range records {
		r.Code = NormalizeCode(r.Code)
		if r.Code == "" {
			continue
		}
		if i, ok := c.index[r.Code]; ok {
			c.records[i] = r
			continue
		}
		c.index[r.Code] = len(c.records)
		c.records = append(c.records, r)
	}
	return c
}

// Get looks up a SKU by code; the code is normalized before lookup.
func (c *Catalog) Get(code string) (SKU, bool) {
	if c == nil {
		return SKU{}, false
	}
	i, ok := c.index[NormalizeCode(code)]
	if !ok {
		return SKU{}, false
	}
	return c.records[i], true
}

// Has reports catalog membership of a code.
func (c *Catalog) Has(code string) bool {
	_, ok := c.Get(code)
	return ok
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// Records returns a copy of the indexed SKUs in catalog order.
func (c *Catalog) Records() []SKU {
	if c == nil {
		return nil
	}
	out := make([]SKU, len(c.records))
	copy(out, c.records)
	return out
}

// Categories returns the distinct non-empty categories in first-seen order.
func (c *Catalog) Categories() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, r := range c.records {
		cat := strings.TrimSpace(r.Category)
		if cat == "" {
			continue
		}
		if _, ok := seen[cat]; ok {
			continue
		}
		seen[cat] = struct{}{}
		out = append(out, cat)
	}
	return out
}

// Bundles returns the SKUs with a usable bundle definition, in catalog order.
func (c *Catalog) Bundles() []SKU {
	if c == nil {
		return nil
	}
	var out []SKU
	for _, r := range c.records {
		if r.ValidBundle() {
			out = append(out, r)
		}
	}
	return out
}
