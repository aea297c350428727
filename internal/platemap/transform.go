package platemap

import (
	"strings"

	"platemap_metadata/internal/metadata"

	"github.com/rs/zerolog/log"
)

// Transform pivots a plate into well records, column by column and top to
// bottom within a column. Each well's plating notes are its own comment
// followed by every annotation sharing its tag. A plate whose wells are all
// empty yields nil.
func Transform(b *Block) []metadata.Well {
	notesByTag := make(map[string][]string)
	for _, cell := range b.Metadata {
		if cell.Tag == "" || cell.Text == "" {
			continue
		}
		notesByTag[cell.Tag] = append(notesByTag[cell.Tag], cell.Text)
	}

	wells := make([]metadata.Well, 0, RowCount*ColumnCount)
	anyContent := false
	for col := 0; col < ColumnCount; col++ {
		for row := 0; row < RowCount; row++ {
			cell := b.Grid[row][col]
			if cell.Text != "" {
				anyContent = true
			}
			wells = append(wells, metadata.Well{
				PlateID:      b.PlateID,
				Row:          RowLetters[row],
				Column:       col + 1,
				RawText:      cell.Text,
				PlatingNotes: wellNotes(cell, notesByTag),
				PlatingDate:  b.PlatingDate,
			})
		}
	}

	if !anyContent {
		log.Info().Str("plate_id", b.PlateID).Msg("Dropping empty plate")
		return nil
	}
	return wells
}

func wellNotes(cell Cell, notesByTag map[string][]string) []string {
	var notes []string
	if cell.Comment != "" {
		comment := strings.NewReplacer("\t", "", "\n", "").Replace(cell.Comment)
		notes = append(notes, comment)
	}
	if cell.Tag != "" {
		notes = append(notes, notesByTag[cell.Tag]...)
	}
	return notes
}
