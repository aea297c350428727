// Package platemap turns plate-layout worksheets into per-well records.
//
// A worksheet holds any number of 96-well plates laid out like this:
//
//	Plate#153 ORAL  1             2             ...  12  RK 5/20/18
//	A               5.20.18.RK.T  5.17.18.RK.T  ...      Extraction failed
//	...
//	H               7.12.18.RK.T  7.11.18.RK.T
//	<empty row>
//
// Cells to the right of the grid carry free-text annotations. An annotation
// applies to every well filled with the same colour.
package platemap

import (
	"errors"
	"strings"
)

const (
	RowCount    = 8
	ColumnCount = 12

	// index of the first cell past the 12 wells of a grid row
	metadataStart = ColumnCount + 1
)

// RowLetters are the row ids of a 96-well plate, top to bottom.
var RowLetters = [RowCount]string{"A", "B", "C", "D", "E", "F", "G", "H"}

var (
	ErrPlateNotFinished = errors.New("new plate started before previous plate finished")
	ErrTooManyRows      = errors.New("only 96-well plate maps expected")
	ErrDuplicatePlate   = errors.New("plate found more than once")
	ErrMissingPlates    = errors.New("desired plates not found in platemap file")
	ErrRowOutsidePlate  = errors.New("plate row found outside a plate")
	ErrPlateShape       = errors.New("plate does not have 8 rows")
	ErrMissingPlateID   = errors.New("plate has no plate id")
)

// Cell is a well or metadata cell whose fill colour has already been mapped to
// an annotation tag. An empty Tag means the cell is unfilled.
type Cell struct {
	Text    string
	Comment string
	Tag     string
	// Number is set when the source stored the cell as a number.
	Number bool
}

// Block is one finalized plate.
type Block struct {
	PlateID        string
	Grid           [RowCount][ColumnCount]Cell
	Metadata       []Cell
	PlatingDate    string
	PlaterInitials string
}

// newBlock builds a plate from the scanner buffers. The first metadata cell is
// the plate label; with assumeDatesPresent the next one holds the plater's
// initials and the plating date.
func newBlock(plateID string, rows [][ColumnCount]Cell, metadata []Cell, assumeDatesPresent bool) (*Block, error) {
	if plateID == "" {
		return nil, ErrMissingPlateID
	}
	if len(rows) != RowCount {
		return nil, ErrPlateShape
	}

	b := &Block{PlateID: plateID}
	copy(b.Grid[:], rows)

	fields := append([]Cell(nil), metadata...)
	if len(fields) > 0 {
		fields = fields[1:]
	}
	if assumeDatesPresent && len(fields) > 0 {
		info := strings.Fields(fields[0].Text)
		fields = fields[1:]
		if len(info) > 0 {
			b.PlaterInitials = info[0]
		}
		if len(info) > 1 {
			b.PlatingDate = info[1]
		}
	}
	b.Metadata = fields
	return b, nil
}
