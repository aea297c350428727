package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		raw     string
		want    Location
		wantErr bool
	}{
		{raw: "s3://lab-data/plates/run1.xlsx", want: Location{Scheme: "s3", Bucket: "lab-data", Key: "plates/run1.xlsx"}},
		{raw: "gs://lab-data/run1.xlsx", want: Location{Scheme: "gs", Bucket: "lab-data", Key: "run1.xlsx"}},
		{raw: "s3://lab-data", wantErr: true},
		{raw: "s3:///run1.xlsx", wantErr: true},
		{raw: "https://example.com/run1.xlsx", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseLocation(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.raw, got.String())
		})
	}
}

func TestUnsupportedScheme(t *testing.T) {
	_, err := ParseLocation("ftp://host/file.xlsx")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("s3://b/k"))
	assert.True(t, IsRemote("gs://b/k"))
	assert.False(t, IsRemote("platemaps.xlsx"))
	assert.False(t, IsRemote("gsheets://abc"))
}

func TestS3Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/lab-data/plates/run1.xlsx" {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>not found</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		io.WriteString(w, "workbook-bytes")
	}))
	defer server.Close()

	fetcher, err := NewS3Fetcher(context.Background(), S3Config{
		Region:          "us-east-1",
		Endpoint:        server.URL,
		PathStyle:       true,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
	})
	require.NoError(t, err)

	data, err := fetcher.Fetch(context.Background(), Location{Scheme: "s3", Bucket: "lab-data", Key: "plates/run1.xlsx"})
	require.NoError(t, err)
	assert.Equal(t, "workbook-bytes", string(data))

	_, err = fetcher.Fetch(context.Background(), Location{Scheme: "s3", Bucket: "lab-data", Key: "missing.xlsx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://lab-data/missing.xlsx")
}
