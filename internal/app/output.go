package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"platemap_metadata/internal/metadata"
	"platemap_metadata/internal/sheets"

	"github.com/rs/zerolog/log"
)

const defaultExportTab = "Metadata"

// WriteTable sends the finalized table to a TSV file, stdout ("-"), or a
// Google Sheets tab.
func WriteTable(ctx context.Context, opts RunOptions, table metadata.Table, stdout io.Writer) error {
	dest := opts.Output
	if target, ok := ParseSheetsURI(dest); ok {
		if target.Tab == "" {
			target.Tab = defaultExportTab
		}
		client, err := sheets.NewClient(ctx, opts.CredentialsFile)
		if err != nil {
			return err
		}
		return sheets.ExportTable(ctx, client, target.SpreadsheetID, target.Tab, table, opts.Resilience.SheetExport)
	}

	if dest == "" || dest == "-" {
		return metadata.WriteTSV(stdout, table)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create output %s: %w", dest, err)
	}
	if err := metadata.WriteTSV(f, table); err != nil {
		f.Close()
		return fmt.Errorf("failed to write output %s: %w", dest, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output %s: %w", dest, err)
	}

	log.Info().
		Str("path", dest).
		Int("rows", len(table.Rows)).
		Msg("Wrote metadata table")
	return nil
}
