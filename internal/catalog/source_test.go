package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSheet = "\xef\xbb\xbfcodigo,nome,estoque_atual,eh_kit,componentes,quantidades\n" +
	"P001,Caneta,5,,,\n" +
	"KIT1,Kit Caneta,0,SIM,\"P001\",\"2\"\n" +
	"P002,Lapis\n"

func TestParseCSV(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader(sampleSheet))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "P001", rows[0]["codigo"])
	assert.Equal(t, "SIM", rows[1]["eh_kit"])
	assert.Equal(t, "", rows[2]["estoque_atual"], "short rows are padded")
}

func TestParseCSV_Empty(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	require.Error(t, err)
}

func TestSheetSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(sampleSheet))
	}))
	defer srv.Close()

	rows, err := NewSheetSource(srv.URL, time.Second).Fetch(context.Background())
	require.NoError(t, err)

	cat := Build(rows, BuildOptions{})
	assert.Equal(t, 3, cat.Len())
	kit, ok := cat.Get("KIT1")
	require.True(t, ok)
	assert.True(t, kit.ValidBundle())
}

func TestSheetSource_FetchFailures(t *testing.T) {
	t.Run("non-200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := NewSheetSource(srv.URL, time.Second).Fetch(context.Background())
		require.ErrorIs(t, err, ErrCatalogUnavailable)
		assert.Contains(t, err.Error(), "500")
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := NewSheetSource(url, time.Second).Fetch(context.Background())
		require.ErrorIs(t, err, ErrCatalogUnavailable)
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		_, err := NewSheetSource(srv.URL, 20*time.Millisecond).Fetch(context.Background())
		require.ErrorIs(t, err, ErrCatalogUnavailable)
	})

	t.Run("not configured", func(t *testing.T) {
		_, err := NewSheetSource("", time.Second).Fetch(context.Background())
		require.ErrorIs(t, err, ErrCatalogUnavailable)
	})
}

func TestExportURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{
			"https://docs.google.com/spreadsheets/d/abc123/edit#gid=7",
			"https://docs.google.com/spreadsheets/d/abc123/export?format=csv&gid=7",
		},
		{
			"https://docs.google.com/spreadsheets/d/abc123/edit?usp=sharing",
			"https://docs.google.com/spreadsheets/d/abc123/export?format=csv",
		},
		{
			"https://docs.google.com/spreadsheets/d/abc123/export?format=csv&gid=0",
			"https://docs.google.com/spreadsheets/d/abc123/export?format=csv&gid=0",
		},
		{"https://example.com/catalog.csv", "https://example.com/catalog.csv"},
		{"  ", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExportURL(tt.in), tt.in)
	}
}
