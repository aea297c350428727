package sheets

import (
	"context"
	"fmt"
	"math"
	"strings"

	"platemap_metadata/internal/retry"
	"platemap_metadata/internal/workbook"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/sheets/v4"
)

// ReadWorkbook downloads the named sheets of a spreadsheet, with notes and
// background colours, retrying transient API failures. An empty sheetNames
// reads every sheet.
func ReadWorkbook(ctx context.Context, client *Client, spreadsheetID string, sheetNames []string, policy retry.Config) (*workbook.Workbook, error) {
	log.Debug().
		Str("spreadsheet_id", spreadsheetID).
		Strs("sheets", sheetNames).
		Msg("Reading spreadsheet grid")

	ranges := make([]string, len(sheetNames))
	for i, name := range sheetNames {
		ranges[i] = quoteSheetName(name)
	}

	policy.Retryable = IsRetryable
	resp, err := retry.WithRetry(ctx, policy, func(ctx context.Context) (*sheets.Spreadsheet, error) {
		return client.GetGrid(ctx, spreadsheetID, ranges)
	})
	if err != nil {
		return nil, err
	}

	wb := &workbook.Workbook{}
	for _, s := range resp.Sheets {
		if s.Properties == nil {
			continue
		}
		wb.Sheets = append(wb.Sheets, convertSheet(s))
	}

	log.Info().
		Str("spreadsheet_id", spreadsheetID).
		Int("sheets", len(wb.Sheets)).
		Msg("Read spreadsheet")
	return wb, nil
}

func quoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func convertSheet(s *sheets.Sheet) workbook.Sheet {
	sheet := workbook.Sheet{Name: s.Properties.Title}
	for _, grid := range s.Data {
		for int64(len(sheet.Rows)) < grid.StartRow {
			sheet.Rows = append(sheet.Rows, nil)
		}
		for _, rowData := range grid.RowData {
			row := make([]workbook.Cell, grid.StartColumn, int(grid.StartColumn)+len(rowData.Values))
			for _, cell := range rowData.Values {
				row = append(row, convertCell(cell))
			}
			sheet.Rows = append(sheet.Rows, row)
		}
	}
	return sheet
}

func convertCell(cell *sheets.CellData) workbook.Cell {
	if cell == nil {
		return workbook.Cell{}
	}
	c := workbook.Cell{
		Value:   cell.FormattedValue,
		Comment: cell.Note,
		Numeric: cell.EffectiveValue != nil && cell.EffectiveValue.NumberValue != nil,
	}
	if cell.EffectiveFormat != nil {
		c.Color = colorHex(cell.EffectiveFormat.BackgroundColor)
	}
	return c
}

// colorHex renders an API colour as RRGGBB. Sheets reports unfilled cells with
// a white effective background, so white reads as no fill.
func colorHex(color *sheets.Color) string {
	if color == nil {
		return ""
	}
	channel := func(v float64) int {
		return int(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	hex := fmt.Sprintf("%02X%02X%02X", channel(color.Red), channel(color.Green), channel(color.Blue))
	if hex == "FFFFFF" {
		return ""
	}
	return hex
}
