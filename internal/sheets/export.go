package sheets

import (
	"context"

	"platemap_metadata/internal/metadata"
	"platemap_metadata/internal/retry"

	"github.com/rs/zerolog/log"
)

// ExportTable replaces the contents of a sheet with the table, header first.
func ExportTable(ctx context.Context, client *Client, spreadsheetID, sheetName string, table metadata.Table, policy retry.Config) error {
	log.Debug().
		Str("spreadsheet_id", spreadsheetID).
		Str("sheet", sheetName).
		Int("rows", len(table.Rows)).
		Msg("Exporting metadata table")

	values := make([][]interface{}, 0, len(table.Rows)+1)
	values = append(values, toRow(table.Columns))
	for _, row := range table.Rows {
		values = append(values, toRow(row))
	}

	policy.Retryable = IsRetryable
	quoted := quoteSheetName(sheetName)
	_, err := retry.WithRetry(ctx, policy, func(ctx context.Context) (struct{}, error) {
		if err := client.ClearRange(ctx, spreadsheetID, quoted); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, client.UpdateRange(ctx, spreadsheetID, quoted+"!A1", values)
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("sheet", sheetName).
		Int("rows", len(table.Rows)).
		Msg("Exported metadata table")
	return nil
}

func toRow(cells []string) []interface{} {
	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}
