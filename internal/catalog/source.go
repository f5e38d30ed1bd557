package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrCatalogUnavailable marks any failure to obtain the raw catalog rows.
// Dependent actions must be blocked until a reload succeeds.
var ErrCatalogUnavailable = errors.New("catalog unavailable")

const defaultFetchTimeout = 10 * time.Second

// Source yields the raw catalog rows.
type Source interface {
	Fetch(ctx context.Context) ([]Row, error)
}

// SheetSource downloads the catalog as CSV from a URL. Google Sheets edit
// links are rewritten to their CSV export form.
type SheetSource struct {
	url    string
	client *http.Client
}

func NewSheetSource(sheetURL string, timeout time.Duration) *SheetSource {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &SheetSource{
		url:    ExportURL(sheetURL),
		client: &http.Client{Timeout: timeout},
	}
}

func (s *SheetSource) Fetch(ctx context.Context) ([]Row, error) {
	if s.url == "" {
		return nil, fmt.Errorf("%w: sheet url is not configured", ErrCatalogUnavailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrCatalogUnavailable, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: sheet responded with HTTP %d", ErrCatalogUnavailable, resp.StatusCode)
	}

	rows, err := ParseCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	return rows, nil
}

// ParseCSV reads a header row followed by data rows. Headers are normalized
// with NormalizeHeader; short records are padded with empty cells.
func ParseCSV(r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.New("catalog csv is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog header: %w", err)
	}
	for i, h := range header {
		header[i] = NormalizeHeader(h)
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog record: %w", err)
		}

		row := make(Row, len(header))
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

// ExportURL converts a Google Sheets link into its CSV export URL. Links
// that are not Google Sheets edit/view links are returned unchanged.
//
//	https://docs.google.com/spreadsheets/d/<id>/edit#gid=7 -> https://docs.google.com/spreadsheets/d/<id>/export?format=csv&gid=7
func ExportURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || !strings.Contains(u.Host, "docs.google.com") || !strings.Contains(u.Path, "/spreadsheets/d/") {
		return raw
	}
	if strings.HasSuffix(u.Path, "/export") {
		return raw
	}

	gid := u.Query().Get("gid")
	if gid == "" && strings.HasPrefix(u.Fragment, "gid=") {
		gid = strings.TrimPrefix(u.Fragment, "gid=")
	}

	idx := strings.Index(u.Path, "/spreadsheets/d/")
	rest := u.Path[idx+len("/spreadsheets/d/"):]
	id := strings.SplitN(rest, "/", 2)[0]
	if id == "" {
		return raw
	}

	q := url.Values{}
	q.Set("format", "csv")
	if gid != "" {
		q.Set("gid", gid)
	}

	export := url.URL{
		Scheme:   u.Scheme,
		Host:     u.Host,
		Path:     u.Path[:idx] + "/spreadsheets/d/" + id + "/export",
		RawQuery: q.Encode(),
	}
	return export.String()
}
