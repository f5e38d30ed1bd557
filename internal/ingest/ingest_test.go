package ingest

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/domain"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func requireReason(t *testing.T, err error, code ReasonCode) *Reason {
	t.Helper()
	require.Error(t, err)
	r, ok := AsReason(err)
	require.True(t, ok, "expected *Reason, got %T", err)
	assert.Equal(t, code, r.Code)
	assert.NotEmpty(t, r.Message)
	return r
}

func TestParse_CSV_UTF8(t *testing.T) {
	content := "\xef\xbb\xbfCódigo ,Quantidade,Obs\n" +
		"kit1,3,\n" +
		"UNKNOWN,1,x\n" +
		" kit1 ,2,\n" +
		",5,sem codigo\n" +
		"P009,0,zero\n" +
		"P010,abc,lixo\n" +
		"P011,2,5,extra\n"

	lines, err := Parse("vendas.csv", []byte(content))
	require.NoError(t, err)
	assert.Equal(t, []domain.OrderLine{
		{Code: "KIT1", Quantity: 5},
		{Code: "UNKNOWN", Quantity: 1},
		{Code: "P011", Quantity: 2},
	}, lines)
}

func TestParse_CSV_Windows1252Semicolon(t *testing.T) {
	content := []byte("C\xf3digo;Quantidade;Descri\xe7\xe3o\nP001;3,0;Caneta\nP002;1;L\xe1pis\n")

	lines, err := Parse("NF.CSV", content)
	require.NoError(t, err)
	assert.Equal(t, []domain.OrderLine{{Code: "P001", Quantity: 3}, {Code: "P002", Quantity: 1}}, lines)
}

func TestParse_CSV_TabAndAliases(t *testing.T) {
	content := "SKU\tQtd\nA1\t4\n"

	lines, err := Parse("export.csv", []byte(content))
	require.NoError(t, err)
	assert.Equal(t, []domain.OrderLine{{Code: "A1", Quantity: 4}}, lines)
}

func TestParse_MissingColumns(t *testing.T) {
	_, err := Parse("vendas.csv", []byte("produto,total\nP001,3\n"))
	r := requireReason(t, err, ReasonMissingColumns)
	assert.Equal(t, []string{"produto", "total"}, r.Found)
	assert.Contains(t, r.Message, "codigo")
	assert.Contains(t, r.Message, "quantidade")
	assert.Contains(t, r.Message, "produto, total")
}

func TestParse_EncodingExhausted(t *testing.T) {
	_, err := Parse("vendas.csv", []byte("codigo,quan\"tidade\nP001,1\n"))
	r := requireReason(t, err, ReasonEncoding)
	assert.Equal(t, []string{"utf-8", "windows-1252", "iso-8859-1"}, r.Encodings)
	assert.Contains(t, r.Message, "UTF-8")
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content []byte
		opts    Options
		code    ReasonCode
	}{
		{"unsupported extension", "vendas.pdf", []byte("x"), Options{}, ReasonUnsupportedFormat},
		{"no extension", "vendas", []byte("x"), Options{}, ReasonUnsupportedFormat},
		{"empty content", "vendas.csv", nil, Options{}, ReasonEmpty},
		{"header only", "vendas.csv", []byte("codigo,quantidade\n"), Options{}, ReasonEmpty},
		{"all rows dropped", "vendas.csv", []byte("codigo,quantidade\nP1,0\n,3\nP2,-1\n"), Options{}, ReasonEmpty},
		{"too large", "vendas.csv", bytes.Repeat([]byte("a"), 64), Options{MaxBytes: 10}, ReasonTooLarge},
		{"broken xlsx", "vendas.xlsx", []byte("not a zip"), Options{}, ReasonParse},
		{"broken xls", "vendas.xls", []byte("not a workbook"), Options{}, ReasonParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.opts.Parse(tt.file, tt.content)
			requireReason(t, err, tt.code)
		})
	}
}

func TestParse_XLSX(t *testing.T) {
	wb := excelize.NewFile()
	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &[]interface{}{"CÓDIGO", "QUANTIDADE"}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A2", &[]interface{}{"KIT1", 3}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A3", &[]interface{}{"UNKNOWN", 1}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A4", &[]interface{}{"kit1", 1.5}))
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)

	lines, err := Parse("vendas.xlsx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []domain.OrderLine{{Code: "KIT1", Quantity: 4}, {Code: "UNKNOWN", Quantity: 1}}, lines)
}

func TestNormalizeHeader(t *testing.T) {
	for _, h := range []string{"Código", "codigo", "CODIGO ", " Códígo", "\ufeffcodigo"} {
		assert.Equal(t, "codigo", NormalizeHeader(h), h)
	}
	assert.Equal(t, "qtd_vendida", NormalizeHeader("Qtd  Vendida"))
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ';', sniffDelimiter([]byte("a;b;c\n1,5;2;3")))
	assert.Equal(t, ',', sniffDelimiter([]byte("a,b\n")))
	assert.Equal(t, '\t', sniffDelimiter([]byte("a\tb\tc")))
	assert.Equal(t, ',', sniffDelimiter([]byte("\"a;b\",c")))
	assert.Equal(t, ',', sniffDelimiter([]byte("single")))
}

func TestParse_QuantityConservation(t *testing.T) {
	type row struct {
		Code string
		Qty  int
	}
	genRow := gopter.CombineGens(
		gen.OneConstOf("A", "a", " B", "c ", "D"),
		gen.IntRange(-3, 20),
	).Map(func(v []interface{}) row {
		return row{Code: v[0].(string), Qty: v[1].(int)}
	})

	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("sum of positive quantities survives dedup", prop.ForAll(
		func(rows []row) bool {
			var sb strings.Builder
			sb.WriteString("codigo,quantidade\n")
			want := 0
			distinct := map[string]struct{}{}
			for _, r := range rows {
				fmt.Fprintf(&sb, "%s,%d\n", r.Code, r.Qty)
				if r.Qty > 0 {
					want += r.Qty
					distinct[domain.NormalizeCode(r.Code)] = struct{}{}
				}
			}

			lines, err := Parse("p.csv", []byte(sb.String()))
			if want == 0 {
				return err != nil
			}
			if err != nil {
				return false
			}
			got := 0
			for _, l := range lines {
				got += l.Quantity
			}
			return got == want && len(lines) == len(distinct)
		},
		gen.SliceOf(genRow),
	))
	properties.TestingRun(t)
}
