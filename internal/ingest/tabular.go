package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// table is a header plus data records read from any supported format.
type table struct {
	header  []string
	records [][]string
}

type textEncoding struct {
	name   string
	decode func([]byte) ([]byte, error)
}

// Encodings tried, in order, for CSV uploads of unknown origin.
var csvEncodings = []textEncoding{
	{"utf-8", decodeUTF8},
	{"windows-1252", decodeWith(charmap.Windows1252)},
	{"iso-8859-1", decodeWith(charmap.ISO8859_1)},
}

// decoders keep state, so each call gets its own
func decodeWith(cm *charmap.Charmap) func([]byte) ([]byte, error) {
	return func(b []byte) ([]byte, error) {
		return cm.NewDecoder().Bytes(b)
	}
}

func decodeUTF8(b []byte) ([]byte, error) {
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(b) {
		return nil, fmt.Errorf("invalid utf-8")
	}
	return b, nil
}

// readCSV accepts the first encoding whose decoded text parses into a
// non-empty header.
func readCSV(content []byte) (*table, *Reason) {
	attempted := make([]string, 0, len(csvEncodings))
	for _, enc := range csvEncodings {
		attempted = append(attempted, enc.name)

		decoded, err := enc.decode(content)
		if err != nil {
			log.Debug().Str("encoding", enc.name).Err(err).Msg("ingest: decode failed")
			continue
		}

		t, err := parseDelimited(decoded)
		if err != nil {
			log.Debug().Str("encoding", enc.name).Err(err).Msg("ingest: csv parse failed")
			continue
		}
		if len(nonBlank(t.header)) == 0 {
			continue
		}

		log.Debug().Str("encoding", enc.name).Int("records", len(t.records)).Msg("ingest: csv decoded")
		return t, nil
	}
	return nil, encodingExhausted(attempted)
}

func parseDelimited(text []byte) (*table, error) {
	reader := csv.NewReader(bytes.NewReader(text))
	reader.Comma = sniffDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return &table{}, nil
	}
	if err != nil {
		return nil, err
	}

	t := &table{header: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		t.records = append(t.records, record)
	}
	return t, nil
}

// sniffDelimiter picks the most frequent of ',', ';' and tab on the header
// line, ignoring quoted text. Ties and a header without any go to ','.
func sniffDelimiter(text []byte) rune {
	line := text
	if i := bytes.IndexByte(text, '\n'); i >= 0 {
		line = text[:i]
	}

	counts := map[rune]int{}
	quoted := false
	for _, r := range string(line) {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == ',' || r == ';' || r == '\t':
			counts[r]++
		}
	}

	best := ','
	for _, r := range []rune{';', '\t'} {
		if counts[r] > counts[best] {
			best = r
		}
	}
	return best
}

func readXLSX(content []byte) (*table, *Reason) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, parseFailure("xlsx", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, empty("the workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, parseFailure("xlsx", err)
	}
	if len(rows) == 0 {
		return &table{}, nil
	}
	return &table{header: rows[0], records: rows[1:]}, nil
}

func readXLS(content []byte) (t *table, reason *Reason) {
	// the xls decoder panics on some malformed workbooks
	defer func() {
		if r := recover(); r != nil {
			t, reason = nil, parseFailure("xls", fmt.Errorf("%v", r))
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(content), "utf-8")
	if err != nil {
		return nil, parseFailure("xls", err)
	}
	if wb.NumSheets() == 0 {
		return nil, empty("the workbook has no sheets")
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, empty("the first sheet is empty")
	}

	t = &table{}
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		cells := make([]string, 0, row.LastCol()+1)
		for j := 0; j <= row.LastCol(); j++ {
			cells = append(cells, strings.TrimSpace(row.Col(j)))
		}
		if t.header == nil {
			t.header = cells
			continue
		}
		t.records = append(t.records, cells)
	}
	return t, nil
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
