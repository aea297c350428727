package workbook

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// minRowWidth pads every row far enough to cover a label, 12 wells and the
// first trailing metadata cell, so fills on empty cells are not lost.
const minRowWidth = 14

// OpenXLSX reads the named sheets of a local .xlsx file. An empty sheetNames
// reads every sheet.
func OpenXLSX(path string, sheetNames []string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()
	return readFile(f, sheetNames)
}

// ReadXLSX reads the named sheets of an .xlsx document from r.
func ReadXLSX(r io.Reader, sheetNames []string) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	defer f.Close()
	return readFile(f, sheetNames)
}

func readFile(f *excelize.File, sheetNames []string) (*Workbook, error) {
	wb := &Workbook{}
	styles := make(map[int]string)
	for _, name := range f.GetSheetList() {
		if !includes(sheetNames, name) {
			log.Debug().Str("sheet", name).Msg("Skipping sheet not in include list")
			continue
		}
		sheet, err := readSheet(f, name, styles)
		if err != nil {
			return nil, err
		}
		log.Debug().
			Str("sheet", name).
			Int("rows", len(sheet.Rows)).
			Msg("Read worksheet")
		wb.Sheets = append(wb.Sheets, sheet)
	}
	return wb, nil
}

func readSheet(f *excelize.File, name string, styles map[int]string) (Sheet, error) {
	rows, err := f.GetRows(name)
	if err != nil {
		return Sheet{}, fmt.Errorf("failed to read rows of sheet %s: %w", name, err)
	}

	comments, err := f.GetComments(name)
	if err != nil {
		return Sheet{}, fmt.Errorf("failed to read comments of sheet %s: %w", name, err)
	}
	commentByRef := make(map[string]string, len(comments))
	widthByRow := make(map[int]int)
	for _, c := range comments {
		commentByRef[c.Cell] = commentText(c)
		col, row, err := excelize.CellNameToCoordinates(c.Cell)
		if err != nil {
			continue
		}
		if col > widthByRow[row] {
			widthByRow[row] = col
		}
		for len(rows) < row {
			rows = append(rows, nil)
		}
	}

	sheet := Sheet{Name: name, Rows: make([][]Cell, len(rows))}
	for r, values := range rows {
		width := max(len(values), minRowWidth, widthByRow[r+1])
		cells := make([]Cell, width)
		for c := range cells {
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return Sheet{}, err
			}
			cell := Cell{Comment: commentByRef[ref]}
			if c < len(values) {
				cell.Value = values[c]
			}
			if cell.Value != "" {
				cell.Numeric = isNumericCell(f, name, ref, cell.Value)
			}
			cell.Color, err = fillColor(f, name, ref, styles)
			if err != nil {
				return Sheet{}, err
			}
			cells[c] = cell
		}
		sheet.Rows[r] = cells
	}
	return sheet, nil
}

func isNumericCell(f *excelize.File, sheet, ref, value string) bool {
	typ, err := f.GetCellType(sheet, ref)
	if err != nil {
		return false
	}
	if typ != excelize.CellTypeNumber && typ != excelize.CellTypeUnset {
		return false
	}
	_, err = strconv.ParseFloat(value, 64)
	return err == nil
}

func fillColor(f *excelize.File, sheet, ref string, styles map[int]string) (string, error) {
	styleID, err := f.GetCellStyle(sheet, ref)
	if err != nil {
		return "", fmt.Errorf("failed to read style of %s!%s: %w", sheet, ref, err)
	}
	if styleID == 0 {
		return "", nil
	}
	if color, ok := styles[styleID]; ok {
		return color, nil
	}
	style, err := f.GetStyle(styleID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve style %d: %w", styleID, err)
	}
	color := ""
	if style != nil && style.Fill.Pattern != 0 && len(style.Fill.Color) > 0 {
		color = style.Fill.Color[0]
	}
	styles[styleID] = color
	return color, nil
}

func commentText(c excelize.Comment) string {
	if c.Text != "" {
		return c.Text
	}
	var sb strings.Builder
	for _, run := range c.Paragraph {
		sb.WriteString(run.Text)
	}
	return sb.String()
}
