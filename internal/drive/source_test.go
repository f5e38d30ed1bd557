package drive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeFiles struct {
	meta      *File
	content   []byte
	statErr   error
	exported  int
	downloads int
}

func (f *fakeFiles) Stat(ctx context.Context, fileID string) (*File, error) {
	if f.statErr != nil {
		return nil, f.statErr
	}
	return f.meta, nil
}

func (f *fakeFiles) DownloadFile(ctx context.Context, fileID string, w io.Writer) error {
	f.downloads++
	_, err := w.Write(f.content)
	return err
}

func (f *fakeFiles) ExportCSV(ctx context.Context, fileID string, w io.Writer) error {
	f.exported++
	_, err := w.Write(f.content)
	return err
}

func TestCatalogSource_GoogleSheet(t *testing.T) {
	files := &fakeFiles{
		meta:    &File{ID: "sheet", Name: "Estoque", MimeType: MimeSpreadsheet},
		content: []byte("Codigo,Nome,Estoque Atual\nP001,Caneta,5\n"),
	}

	rows, err := NewCatalogSource(files, "sheet").Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "5", rows[0]["estoque_atual"])
	assert.Equal(t, 1, files.exported)
	assert.Zero(t, files.downloads)
}

func TestCatalogSource_XLSX(t *testing.T) {
	wb := excelize.NewFile()
	require.NoError(t, wb.SetSheetRow("Sheet1", "A1", &[]interface{}{"codigo", "nome", "estoque_atual", "eh_kit", "componentes", "quantidades"}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A2", &[]interface{}{"P001", "Caneta", 5}))
	require.NoError(t, wb.SetSheetRow("Sheet1", "A3", &[]interface{}{"KIT1", "Kit", 0, "SIM", "P001", "2"}))
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)

	files := &fakeFiles{
		meta:    &File{ID: "x", Name: "estoque.xlsx", MimeType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		content: buf.Bytes(),
	}

	rows, err := NewCatalogSource(files, "x").Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	cat := catalog.Build(rows, catalog.BuildOptions{})
	kit, ok := cat.Get("KIT1")
	require.True(t, ok)
	assert.True(t, kit.ValidBundle())
	assert.Equal(t, 1, files.downloads)
}

func TestCatalogSource_Failures(t *testing.T) {
	_, err := NewCatalogSource(&fakeFiles{}, "").Fetch(context.Background())
	require.ErrorIs(t, err, catalog.ErrCatalogUnavailable)

	_, err = NewCatalogSource(&fakeFiles{statErr: errors.New("403")}, "id").Fetch(context.Background())
	require.ErrorIs(t, err, catalog.ErrCatalogUnavailable)

	bad := &fakeFiles{meta: &File{Name: "broken.xlsx"}, content: bytes.Repeat([]byte("x"), 10)}
	_, err = NewCatalogSource(bad, "id").Fetch(context.Background())
	require.ErrorIs(t, err, catalog.ErrCatalogUnavailable)
	assert.Contains(t, err.Error(), "broken.xlsx")
}
