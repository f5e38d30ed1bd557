package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/estoque-drawdown/backend-go/internal/catalog"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// Files is the subset of Service used to read a catalog file.
type Files interface {
	Stat(ctx context.Context, fileID string) (*File, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
	ExportCSV(ctx context.Context, fileID string, w io.Writer) error
}

// CatalogSource reads the catalog from a Drive file: a native Google Sheet is
// exported as CSV, an uploaded .xlsx is read from its first sheet, anything
// else is parsed as CSV.
type CatalogSource struct {
	files  Files
	fileID string
}

func NewCatalogSource(files Files, fileID string) *CatalogSource {
	return &CatalogSource{files: files, fileID: fileID}
}

func (s *CatalogSource) Fetch(ctx context.Context) ([]catalog.Row, error) {
	if s.fileID == "" {
		return nil, fmt.Errorf("%w: drive file id is not configured", catalog.ErrCatalogUnavailable)
	}

	meta, err := s.files.Stat(ctx, s.fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrCatalogUnavailable, err)
	}

	var buf bytes.Buffer
	switch {
	case meta.MimeType == MimeSpreadsheet:
		err = s.files.ExportCSV(ctx, s.fileID, &buf)
	default:
		err = s.files.DownloadFile(ctx, s.fileID, &buf)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrCatalogUnavailable, err)
	}

	var rows []catalog.Row
	if strings.EqualFold(filepath.Ext(meta.Name), ".xlsx") {
		rows, err = xlsxRows(&buf)
	} else {
		rows, err = catalog.ParseCSV(&buf)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", catalog.ErrCatalogUnavailable, meta.Name, err)
	}

	log.Debug().Str("file", meta.Name).Int("rows", len(rows)).Msg("drive: catalog fetched")
	return rows, nil
}

// xlsxRows reads the first sheet of a workbook; the first row is the header.
func xlsxRows(r io.Reader) ([]catalog.Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheets[0])
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = catalog.NormalizeHeader(h)
	}

	rows := make([]catalog.Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(catalog.Row, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
