// Package ingest turns an uploaded sales or invoice file into order lines.
package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/coerce"
	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
)

const DefaultMaxBytes = 10 << 20

type Options struct {
	// MaxBytes rejects larger uploads; zero means DefaultMaxBytes, negative disables the check.
	MaxBytes int64
}

// Parse reads name/content with the default options.
func Parse(name string, content []byte) ([]domain.OrderLine, error) {
	return Options{}.Parse(name, content)
}

// Parse dispatches on the file extension and returns order lines with
// normalized codes, summed per code in first-appearance order. Every failure
// is a *Reason; there is no partial result.
func (o Options) Parse(name string, content []byte) ([]domain.OrderLine, error) {
	limit := o.MaxBytes
	if limit == 0 {
		limit = DefaultMaxBytes
	}
	if limit > 0 && int64(len(content)) > limit {
		return nil, &Reason{
			Code:    ReasonTooLarge,
			Message: fmt.Sprintf("file has %d bytes, the limit is %d", len(content), limit),
		}
	}
	if len(content) == 0 {
		return nil, empty("the uploaded file is empty")
	}

	var (
		t      *table
		reason *Reason
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv", ".txt":
		t, reason = readCSV(content)
	case ".xlsx":
		t, reason = readXLSX(content)
	case ".xls":
		t, reason = readXLS(content)
	default:
		return nil, unsupported(ext)
	}
	if reason != nil {
		return nil, reason
	}

	lines, reason := orderLines(t)
	if reason != nil {
		return nil, reason
	}

	log.Info().Str("file", name).Int("records", len(t.records)).Int("lines", len(lines)).Msg("ingest: upload parsed")
	return lines, nil
}

func orderLines(t *table) ([]domain.OrderLine, *Reason) {
	if len(nonBlank(t.header)) == 0 {
		return nil, empty("the file has no header row")
	}

	codeIdx, qtyIdx, normalized := resolveColumns(t.header)
	var missing []string
	if codeIdx < 0 {
		missing = append(missing, ColCode)
	}
	if qtyIdx < 0 {
		missing = append(missing, ColQuantity)
	}
	if len(missing) > 0 {
		return nil, missingColumns(missing, nonBlank(normalized))
	}

	lines := make([]domain.OrderLine, 0, len(t.records))
	index := make(map[string]int, len(t.records))
	dropped := 0
	for _, record := range t.records {
		code := domain.NormalizeCode(cell(record, codeIdx))
		qty := coerce.Int(cell(record, qtyIdx), 0)
		if code == "" || coerce.IsMissing(code) || qty <= 0 {
			dropped++
			continue
		}

		if i, ok := index[code]; ok {
			lines[i].Quantity += qty
			continue
		}
		index[code] = len(lines)
		lines = append(lines, domain.OrderLine{Code: code, Quantity: qty})
	}

	if dropped > 0 {
		log.Debug().Int("dropped", dropped).Msg("ingest: rows without code or positive quantity dropped")
	}
	if len(lines) == 0 {
		return nil, empty("no rows with a code and a positive quantity")
	}
	return lines, nil
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}
