package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"platemap_metadata/internal/metadata"
	"platemap_metadata/internal/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const gridResponse = `{
  "spreadsheetId": "abc",
  "sheets": [{
    "properties": {"title": "Platemaps"},
    "data": [{
      "rowData": [
        {"values": [
          {"formattedValue": "Plate#7", "effectiveFormat": {"backgroundColor": {"red": 1, "green": 1, "blue": 1}}},
          {"formattedValue": "12", "effectiveValue": {"numberValue": 12}}
        ]},
        {"values": [
          {"formattedValue": "A"},
          {"formattedValue": "5.20.18.RK.T", "note": "tube cracked", "effectiveFormat": {"backgroundColor": {"red": 1, "green": 1}}}
        ]}
      ]
    }]
  }]
}`

var fastPolicy = retry.Config{
	MaxRetries: 2,
	BaseDelay:  time.Millisecond,
	MaxDelay:   5 * time.Millisecond,
	Timeout:    5 * time.Second,
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClientWithOptions(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return client
}

func TestReadWorkbook(t *testing.T) {
	var calls atomic.Int32
	var mu sync.Mutex
	var gotRanges []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, `{"error": {"code": 503, "message": "backend unavailable"}}`, http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "/v4/spreadsheets/abc", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("includeGridData"))
		mu.Lock()
		gotRanges = r.URL.Query()["ranges"]
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, gridResponse)
	})

	wb, err := ReadWorkbook(context.Background(), client, "abc", []string{"Platemaps"}, fastPolicy)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "503 is retried")
	mu.Lock()
	assert.Equal(t, []string{"'Platemaps'"}, gotRanges)
	mu.Unlock()

	require.Len(t, wb.Sheets, 1)
	sheet := wb.Sheets[0]
	assert.Equal(t, "Platemaps", sheet.Name)
	require.Len(t, sheet.Rows, 2)

	assert.Equal(t, "Plate#7", sheet.Rows[0][0].Value)
	assert.Equal(t, "", sheet.Rows[0][0].Color, "white background is no fill")
	assert.True(t, sheet.Rows[0][1].Numeric)
	assert.False(t, sheet.Rows[1][0].Numeric)
	assert.Equal(t, "tube cracked", sheet.Rows[1][1].Comment)
	assert.Equal(t, "FFFF00", sheet.Rows[1][1].Color)
}

func TestReadWorkbookPermanentError(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error": {"code": 403, "message": "caller does not have permission"}}`, http.StatusForbidden)
	})

	_, err := ReadWorkbook(context.Background(), client, "abc", nil, fastPolicy)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var apiErr *googleapi.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Code)
}

func TestExportTable(t *testing.T) {
	var mu sync.Mutex
	var cleared bool
	var written sheets.ValueRange
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":clear"):
			cleared = true
		case r.Method == http.MethodPut:
			assert.Equal(t, "RAW", r.URL.Query().Get("valueInputOption"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&written))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{}`)
	})

	table := metadata.Table{
		Columns: []string{"sample_name", "qc_note"},
		Rows:    [][]string{{"5.20.18.RK.T", ""}},
	}
	require.NoError(t, ExportTable(context.Background(), client, "abc", "Metadata", table, fastPolicy))

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, cleared)
	require.Len(t, written.Values, 2)
	assert.Equal(t, []interface{}{"sample_name", "qc_note"}, written.Values[0])
	assert.Equal(t, []interface{}{"5.20.18.RK.T", ""}, written.Values[1])
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&googleapi.Error{Code: http.StatusTooManyRequests}))
	assert.True(t, IsRetryable(&googleapi.Error{Code: http.StatusBadGateway}))
	assert.False(t, IsRetryable(&googleapi.Error{Code: http.StatusNotFound}))
	assert.False(t, IsRetryable(context.Canceled))
	assert.True(t, IsRetryable(errors.New("connection reset by peer")))
}

func TestColorHex(t *testing.T) {
	assert.Equal(t, "", colorHex(nil))
	assert.Equal(t, "000000", colorHex(&sheets.Color{}))
	assert.Equal(t, "FF8000", colorHex(&sheets.Color{Red: 1, Green: 0.5}))
	assert.Equal(t, "", colorHex(&sheets.Color{Red: 1, Green: 1, Blue: 1}))
}
