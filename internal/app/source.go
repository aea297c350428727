package app

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"platemap_metadata/internal/blob"
	"platemap_metadata/internal/retry"
	"platemap_metadata/internal/sheets"
	"platemap_metadata/internal/workbook"

	"github.com/rs/zerolog/log"
)

const sheetsScheme = "gsheets://"

// SheetsTarget is a spreadsheet and, for exports, the tab to write.
type SheetsTarget struct {
	SpreadsheetID string
	Tab           string
}

// ParseSheetsURI splits gsheets://<id>[/<tab>].
func ParseSheetsURI(raw string) (SheetsTarget, bool) {
	if !strings.HasPrefix(raw, sheetsScheme) {
		return SheetsTarget{}, false
	}
	id, tab, _ := strings.Cut(strings.TrimPrefix(raw, sheetsScheme), "/")
	if id == "" {
		return SheetsTarget{}, false
	}
	return SheetsTarget{SpreadsheetID: id, Tab: tab}, true
}

// OpenWorkbook reads the workbook named by opts.Workbook from whichever
// backend its scheme selects.
func OpenWorkbook(ctx context.Context, opts RunOptions) (*workbook.Workbook, error) {
	src := opts.Workbook
	if src == "" {
		return nil, fmt.Errorf("no workbook given")
	}

	if target, ok := ParseSheetsURI(src); ok {
		client, err := sheets.NewClient(ctx, opts.CredentialsFile)
		if err != nil {
			return nil, err
		}
		return sheets.ReadWorkbook(ctx, client, target.SpreadsheetID, opts.SheetNames, opts.Resilience.WorkbookFetch)
	}

	if blob.IsRemote(src) {
		loc, err := blob.ParseLocation(src)
		if err != nil {
			return nil, err
		}
		fetcher, err := newFetcher(ctx, loc, opts)
		if err != nil {
			return nil, err
		}
		return readRemote(ctx, fetcher, loc, opts.SheetNames, opts.Resilience.WorkbookFetch)
	}

	log.Debug().Str("path", src).Msg("Opening local workbook")
	return workbook.OpenXLSX(src, opts.SheetNames)
}

func newFetcher(ctx context.Context, loc blob.Location, opts RunOptions) (blob.Fetcher, error) {
	switch loc.Scheme {
	case blob.SchemeS3:
		return blob.NewS3Fetcher(ctx, opts.S3)
	case blob.SchemeGCS:
		return blob.NewGCSFetcher(ctx, opts.GCSCredentialsFile)
	default:
		return nil, fmt.Errorf("%w: %s", blob.ErrUnsupportedScheme, loc.Scheme)
	}
}

func readRemote(ctx context.Context, fetcher blob.Fetcher, loc blob.Location, sheetNames []string, policy retry.Config) (*workbook.Workbook, error) {
	data, err := retry.WithRetry(ctx, policy, func(ctx context.Context) ([]byte, error) {
		return fetcher.Fetch(ctx, loc)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workbook: %w", err)
	}
	return workbook.ReadXLSX(bytes.NewReader(data), sheetNames)
}
