package workbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestNormalizeColor(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", ""},
		{"00000000", ""},
		{"FFFFFFFF", "FFFFFF"},
		{"00FFFFFF", ""},
		{"#ffffff", "FFFFFF"},
		{"FFFFFF00", "FFFF00"},
		{"#ffff00", "FFFF00"},
		{" 92d050 ", "92D050"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeColor(tt.raw), "raw %q", tt.raw)
	}
}

func TestPaletteTag(t *testing.T) {
	p := NewPalette(map[string]string{"#FFFF00": "yellow", "FF92D050": "green"})

	assert.Equal(t, "yellow", p.Tag("ffff00"))
	assert.Equal(t, "green", p.Tag("#92d050"))
	assert.Equal(t, "00B0F0", p.Tag("00B0F0"), "unmapped colours keep their id")
	assert.Equal(t, "FFFFFF", p.Tag("FFFFFF"), "white is a fill like any other")
	assert.Equal(t, "", p.Tag("00FFFF00"), "transparent is no fill")
	assert.Equal(t, "", p.Tag(""))

	var nilPalette *Palette
	assert.Equal(t, "FFFF00", nilPalette.Tag("ffff00"))
}

func TestSheetNames(t *testing.T) {
	wb := &Workbook{Sheets: []Sheet{{Name: "Platemaps"}, {Name: "Notes"}}}

	assert.Equal(t, []string{"Platemaps", "Notes"}, wb.SheetNames())
	assert.Empty(t, (&Workbook{}).SheetNames())
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Platemaps"))
	_, err := f.NewSheet("Scratch")
	require.NoError(t, err)

	require.NoError(t, f.SetCellValue("Platemaps", "A1", "Plate#7"))
	require.NoError(t, f.SetCellValue("Platemaps", "M1", 12))
	require.NoError(t, f.SetCellValue("Platemaps", "N1", "RK 5/20/18"))
	require.NoError(t, f.SetCellValue("Platemaps", "A2", "A"))
	require.NoError(t, f.SetCellValue("Platemaps", "B2", "5.20.18.RK.T"))
	require.NoError(t, f.SetCellValue("Scratch", "A1", "ignored"))

	yellow, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFFF00"}},
	})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Platemaps", "C2", "C2", yellow))
	white, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFFFFF"}},
	})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Platemaps", "D2", "D2", white))
	require.NoError(t, f.AddComment("Platemaps", excelize.Comment{Cell: "B2", Author: "lab", Text: "tube cracked"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	wb, err := ReadXLSX(buf, []string{"Platemaps"})
	require.NoError(t, err)
	require.Equal(t, []string{"Platemaps"}, wb.SheetNames())

	rows := wb.Sheets[0].Rows
	require.Len(t, rows, 2)
	assert.GreaterOrEqual(t, len(rows[0]), minRowWidth)
	assert.Equal(t, "Plate#7", rows[0][0].Value)
	assert.False(t, rows[0][0].Numeric)
	assert.Equal(t, "12", rows[0][12].Value)
	assert.True(t, rows[0][12].Numeric)
	assert.Equal(t, "RK 5/20/18", rows[0][13].Value)

	assert.Equal(t, "5.20.18.RK.T", rows[1][1].Value)
	assert.Contains(t, rows[1][1].Comment, "tube cracked")
	assert.Equal(t, "", rows[1][2].Value, "styled empty cell is kept")
	assert.Equal(t, "FFFF00", NormalizeColor(rows[1][2].Color))
	assert.Equal(t, "", NormalizeColor(rows[1][1].Color))
	assert.Equal(t, "FFFFFF", NormalizeColor(rows[1][3].Color), "explicit white fill is kept")
}
