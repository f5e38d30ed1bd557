// Package export writes tables as UTF-8 CSV with a byte-order mark, which
// spreadsheet tools need to detect the encoding.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/domain"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Table is a header row plus data rows of equal width.
type Table struct {
	Header []string
	Rows   [][]string
}

// WriteCSV writes the BOM, the header and every row.
func WriteCSV(w io.Writer, t Table) error {
	if _, err := w.Write(bom); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

func MatchedTable(lines []domain.MatchedLine) Table {
	t := Table{Header: []string{"Código", "Produto", "Categoria", "Quantidade", "Estoque Atual", "Estoque Após Baixa", "Situação", "Status Após Baixa"}}
	for _, l := range lines {
		t.Rows = append(t.Rows, []string{
			l.Code,
			l.Name,
			l.Category,
			strconv.Itoa(l.Quantity),
			strconv.Itoa(l.StockBefore),
			strconv.Itoa(l.StockAfter),
			riskLabel(l.Risk),
			l.StatusAfter.Label(),
		})
	}
	return t
}

func UnmatchedTable(lines []domain.UnmatchedLine) Table {
	t := Table{Header: []string{"Código", "Quantidade"}}
	for _, l := range lines {
		t.Rows = append(t.Rows, []string{l.Code, strconv.Itoa(l.Quantity)})
	}
	return t
}

func OutcomesTable(outcomes []domain.SubmissionOutcome) Table {
	t := Table{Header: []string{"Código", "Produto", "Quantidade", "Estoque Anterior", "Sucesso", "Novo Estoque", "Erro", "Data/Hora", "Usuário"}}
	for _, o := range outcomes {
		stock := ""
		if o.ResultingStock != nil {
			stock = strconv.Itoa(*o.ResultingStock)
		}
		t.Rows = append(t.Rows, []string{
			o.Code,
			o.Name,
			strconv.Itoa(o.Quantity),
			strconv.Itoa(o.StockBefore),
			yesNo(o.Success),
			stock,
			o.Error,
			o.Timestamp.In(time.Local).Format("02/01/2006 15:04:05"),
			o.Actor,
		})
	}
	return t
}

func riskLabel(r domain.RiskBucket) string {
	switch r {
	case domain.RiskNegative:
		return "Negativo"
	case domain.RiskZero:
		return "Zerado"
	default:
		return "OK"
	}
}

func yesNo(b bool) string {
	if b {
		return "Sim"
	}
	return "Não"
}
