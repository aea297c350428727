package platemap

import (
	"errors"
	"strconv"
	"testing"

	"platemap_metadata/internal/workbook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultOptions = Options{PlaceholderID: "()", Delimiter: "ABTX_", AssumeDatesPresent: true}

// headerRow is a label row carrying the 1..12 column numbers and the plater cell.
func headerRow(label, plating string) []Cell {
	row := make([]Cell, metadataStart+1)
	row[0] = Cell{Text: label}
	for i := 1; i <= ColumnCount; i++ {
		row[i] = Cell{Text: strconv.Itoa(i), Number: true}
	}
	row[metadataStart] = Cell{Text: plating}
	return row
}

// gridRow fills every well with "<letter><col>" and appends the annotations.
func gridRow(letter string, annotations ...Cell) []Cell {
	row := make([]Cell, metadataStart, metadataStart+len(annotations))
	row[0] = Cell{Text: letter}
	for i := 1; i <= ColumnCount; i++ {
		row[i] = Cell{Text: letter + strconv.Itoa(i)}
	}
	return append(row, annotations...)
}

func plateRows(label string) [][]Cell {
	rows := [][]Cell{headerRow(label, "RK 5/20/18")}
	for _, l := range RowLetters {
		rows = append(rows, gridRow(l))
	}
	return rows
}

func consumeAll(t *testing.T, s *Scanner, rows [][]Cell) ([]*Block, error) {
	t.Helper()
	var blocks []*Block
	for _, row := range rows {
		b, err := s.ConsumeRow(row)
		if err != nil {
			return blocks, err
		}
		if b != nil {
			blocks = append(blocks, b)
		}
	}
	b, err := s.Flush()
	if b != nil {
		blocks = append(blocks, b)
	}
	return blocks, err
}

func TestScannerFinalizesPlateOnEmptyRow(t *testing.T) {
	s := NewScanner(defaultOptions)
	rows := plateRows("Plate#153 ORAL")
	rows[1] = gridRow("A", Cell{Text: "Extraction failed", Tag: "yellow"}, Cell{Text: "Re-plated", Tag: "green"})

	for _, row := range rows {
		b, err := s.ConsumeRow(row)
		require.NoError(t, err)
		assert.Nil(t, b)
	}
	assert.Equal(t, Accumulating, s.State())

	b, err := s.ConsumeRow([]Cell{{}})
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, Idle, s.State())

	assert.Equal(t, "153", b.PlateID)
	assert.Equal(t, "RK", b.PlaterInitials)
	assert.Equal(t, "5/20/18", b.PlatingDate)
	assert.Equal(t, "A1", b.Grid[0][0].Text)
	assert.Equal(t, "H12", b.Grid[7][11].Text)
	require.Len(t, b.Metadata, 2)
	assert.Equal(t, "Extraction failed", b.Metadata[0].Text)
	assert.Equal(t, "green", b.Metadata[1].Tag)
}

func TestScannerLabels(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Plate#153 ORAL", "153"},
		{"Plate # 7", "7"},
		{"ABTX_42", "42"},
		{"Run ABTX_42", "42"},
		{"Loading 3", "Loading 3"},
		{"ABTX_1ABTX_2", "ABTX_1ABTX_2"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			blocks, err := consumeAll(t, NewScanner(defaultOptions), plateRows(tt.label))
			require.NoError(t, err)
			require.Len(t, blocks, 1)
			assert.Equal(t, tt.want, blocks[0].PlateID)
		})
	}
}

func TestScannerWithoutDates(t *testing.T) {
	opts := defaultOptions
	opts.AssumeDatesPresent = false
	blocks, err := consumeAll(t, NewScanner(opts), plateRows("Plate#9"))
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	assert.Empty(t, blocks[0].PlatingDate)
	assert.Empty(t, blocks[0].PlaterInitials)
	require.Len(t, blocks[0].Metadata, 1, "plater cell stays an ordinary metadata cell")
	assert.Equal(t, "RK 5/20/18", blocks[0].Metadata[0].Text)
}

func TestScannerColumnHeaderMustBeNumeric(t *testing.T) {
	rows := plateRows("Plate#9")
	rows[0][ColumnCount].Number = false
	blocks, err := consumeAll(t, NewScanner(defaultOptions), rows)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Empty(t, blocks[0].PlatingDate)
}

func TestScannerSkipsPlaceholderPlate(t *testing.T) {
	rows := append(plateRows("Plate#()"), []Cell{})
	rows = append(rows, plateRows("Plate#()")...)
	blocks, err := consumeAll(t, NewScanner(defaultOptions), rows)
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestScannerErrors(t *testing.T) {
	duplicate := append(plateRows("Plate#5"), []Cell{})
	duplicate = append(duplicate, plateRows("Plate#5")...)

	tooMany := append(plateRows("Plate#5"), []Cell{{Text: "I"}})

	restarted := plateRows("Plate#5")
	restarted = append(restarted[:3], gridRow("A"))

	outside := [][]Cell{gridRow("B")}

	short := plateRows("Plate#5")[:5]

	noID := plateRows("Plate#")

	tests := []struct {
		name string
		rows [][]Cell
		want error
	}{
		{"duplicate plate id", duplicate, ErrDuplicatePlate},
		{"ninth row", tooMany, ErrTooManyRows},
		{"new plate before previous finished", restarted, ErrPlateNotFinished},
		{"row outside plate", outside, ErrRowOutsidePlate},
		{"short plate", short, ErrPlateShape},
		{"missing plate id", noID, ErrMissingPlateID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := consumeAll(t, NewScanner(defaultOptions), tt.rows)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestScannerTooManyRowsDiscardsPlate(t *testing.T) {
	s := NewScanner(defaultOptions)
	_, err := consumeAll(t, s, append(plateRows("Plate#5"), []Cell{{Text: "I"}}))
	require.ErrorIs(t, err, ErrTooManyRows)
	assert.Equal(t, Idle, s.State())
}

func toWorkbookRows(rows [][]Cell) [][]workbook.Cell {
	out := make([][]workbook.Cell, len(rows))
	for i, row := range rows {
		out[i] = make([]workbook.Cell, len(row))
		for j, c := range row {
			out[i][j] = workbook.Cell{Value: c.Text, Numeric: c.Number}
		}
	}
	return out
}

func TestScan(t *testing.T) {
	first := toWorkbookRows(plateRows("Plate#1"))
	first[1] = append(first[1], workbook.Cell{Value: "Low volume", Color: "FFFFFF00"})
	first[2][3].Color = "FFFFFF00"
	// no trailing empty row: the sheet change finalizes the plate
	second := toWorkbookRows(plateRows("ABTX_2"))

	wb := &workbook.Workbook{Sheets: []workbook.Sheet{
		{Name: "Platemaps", Rows: first},
		{Name: "Scratch", Rows: toWorkbookRows(plateRows("Plate#99"))},
		{Name: "More", Rows: second},
	}}
	palette := workbook.NewPalette(map[string]string{"FFFF00": "yellow"})

	blocks, err := Scan(wb, []string{"Platemaps", "More"}, palette, defaultOptions)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "1", blocks[0].PlateID)
	assert.Equal(t, "2", blocks[1].PlateID)

	require.Len(t, blocks[0].Metadata, 1)
	assert.Equal(t, "yellow", blocks[0].Metadata[0].Tag)
	assert.Equal(t, "yellow", blocks[0].Grid[1][2].Tag)
	assert.Equal(t, "", blocks[0].Grid[1][3].Tag)
}

func TestScanReportsSheetAndRow(t *testing.T) {
	wb := &workbook.Workbook{Sheets: []workbook.Sheet{
		{Name: "Platemaps", Rows: toWorkbookRows([][]Cell{gridRow("C")})},
	}}
	_, err := Scan(wb, []string{"Platemaps"}, nil, defaultOptions)
	require.ErrorIs(t, err, ErrRowOutsidePlate)
	assert.Contains(t, err.Error(), "sheet Platemaps row 1")
}

func TestSelectPlates(t *testing.T) {
	blocks := []*Block{{PlateID: "1"}, {PlateID: "2"}, {PlateID: "3"}}

	all, err := SelectPlates(blocks, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := SelectPlates(blocks, []string{"3", "1"})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "1", some[0].PlateID, "scan order is preserved")
	assert.Equal(t, "3", some[1].PlateID)

	_, err = SelectPlates(blocks, []string{"9", "1", "4"})
	require.ErrorIs(t, err, ErrMissingPlates)
	assert.Contains(t, err.Error(), "[4 9]")
}

func TestTransform(t *testing.T) {
	b := &Block{
		PlateID:     "153",
		PlatingDate: "5/20/18",
		Metadata: []Cell{
			{Text: "Extraction failed", Tag: "yellow"},
			{Text: "unfilled note"},
			{Text: "Re-plated", Tag: "yellow"},
		},
	}
	b.Grid[0][0] = Cell{Text: "5.20.18.RK.T", Comment: "tube\tcracked\n", Tag: "yellow"}
	b.Grid[1][0] = Cell{Text: "5.19.18.RK.T", Tag: "green"}
	b.Grid[0][1] = Cell{Text: "5.17.18.RK.T"}

	wells := Transform(b)
	require.Len(t, wells, RowCount*ColumnCount)

	first := wells[0]
	assert.Equal(t, "153", first.PlateID)
	assert.Equal(t, "A", first.Row)
	assert.Equal(t, 1, first.Column)
	assert.Equal(t, "5/20/18", first.PlatingDate)
	assert.Equal(t, []string{"tubecracked", "Extraction failed", "Re-plated"}, first.PlatingNotes)

	assert.Equal(t, "B", wells[1].Row, "column-major order")
	assert.Equal(t, "5.19.18.RK.T", wells[1].RawText)
	assert.Nil(t, wells[1].PlatingNotes, "no annotations share the green tag")

	assert.Equal(t, "A", wells[RowCount].Row)
	assert.Equal(t, 2, wells[RowCount].Column)
	assert.Equal(t, "5.17.18.RK.T", wells[RowCount].RawText)
}

func TestTransformDropsEmptyPlate(t *testing.T) {
	b := &Block{PlateID: "8", Metadata: []Cell{{Text: "unused", Tag: "yellow"}}}
	b.Grid[3][3] = Cell{Tag: "yellow"}
	assert.Nil(t, Transform(b))
}
