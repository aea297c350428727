package platemap

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"platemap_metadata/internal/workbook"

	"github.com/rs/zerolog/log"
)

// State is the scanner's position relative to a plate.
type State int

const (
	// Idle means no plate grid is open.
	Idle State = iota
	// Accumulating means grid rows are being collected.
	Accumulating
)

func (s State) String() string {
	if s == Accumulating {
		return "accumulating"
	}
	return "idle"
}

// Options controls how plate labels are interpreted.
type Options struct {
	// PlaceholderID marks plates that are intentionally skipped.
	PlaceholderID string
	// Delimiter precedes the plate id in labels that do not start with "Plate".
	Delimiter string
	// AssumeDatesPresent expects the plater initials/date cell after the label.
	AssumeDatesPresent bool
}

// Scanner is the row-boundary state machine that cuts worksheets into plates.
type Scanner struct {
	opts     Options
	state    State
	plateID  string
	rows     [][ColumnCount]Cell
	metadata []Cell
	seen     map[string]bool
}

// NewScanner returns a scanner with no plate open.
func NewScanner(opts Options) *Scanner {
	return &Scanner{opts: opts, seen: make(map[string]bool)}
}

// State reports whether a plate is currently open.
func (s *Scanner) State() State {
	return s.state
}

// ConsumeRow advances the state machine by one row and returns the plate the
// row finalized, if any.
func (s *Scanner) ConsumeRow(row []Cell) (*Block, error) {
	first := strings.TrimSpace(cellAt(row, 0).Text)

	switch {
	case isRowLetter(first):
		return nil, s.consumeGridRow(first, row)
	case first == "I":
		plateID := s.plateID
		s.reset()
		return nil, fmt.Errorf("%w: plate %s has a row I; current platemap ignored", ErrTooManyRows, plateID)
	case first == "":
		return s.finish()
	default:
		s.consumeLabel(first, row)
		return nil, nil
	}
}

// Flush finalizes any open plate, as at the end of a sheet.
func (s *Scanner) Flush() (*Block, error) {
	return s.finish()
}

func (s *Scanner) consumeGridRow(letter string, row []Cell) error {
	if letter == "A" {
		if s.state == Accumulating {
			return fmt.Errorf("%w: plate %s", ErrPlateNotFinished, s.plateID)
		}
		s.state = Accumulating
		s.rows = nil
	} else if s.state == Idle {
		return fmt.Errorf("%w: row %s", ErrRowOutsidePlate, letter)
	}

	var wells [ColumnCount]Cell
	for i := range wells {
		wells[i] = cellAt(row, i+1)
	}
	s.rows = append(s.rows, wells)

	for i := metadataStart; i < len(row) && row[i].Text != ""; i++ {
		s.metadata = append(s.metadata, row[i])
	}
	return nil
}

func (s *Scanner) consumeLabel(text string, row []Cell) {
	switch {
	case strings.HasPrefix(text, "Plate"):
		trimmed := strings.ReplaceAll(text, "#", "")
		trimmed = strings.ReplaceAll(trimmed, "Plate", "")
		if pieces := strings.Fields(trimmed); len(pieces) > 0 {
			s.plateID = pieces[0]
		}
	case s.state == Idle:
		s.plateID = text
		if s.opts.Delimiter != "" {
			if pieces := strings.Split(text, s.opts.Delimiter); len(pieces) == 2 {
				s.plateID = pieces[1]
			}
		}
	default:
		log.Debug().Str("text", text).Msg("Ignoring label inside plate")
	}

	if s.plateID == "" {
		return
	}
	s.metadata = []Cell{cellAt(row, 0)}
	// a 12 in the 13th cell marks the column-number row; the cell after it
	// holds the plater's initials and the plating date
	if isColumnHeader(row) {
		s.metadata = append(s.metadata, cellAt(row, metadataStart))
	}
}

func (s *Scanner) finish() (*Block, error) {
	defer s.reset()
	if s.state != Accumulating {
		return nil, nil
	}

	block, err := newBlock(s.plateID, s.rows, s.metadata, s.opts.AssumeDatesPresent)
	if err != nil {
		return nil, fmt.Errorf("%w: %q with %d rows", err, s.plateID, len(s.rows))
	}
	if block.PlateID == s.opts.PlaceholderID {
		log.Debug().Str("plate_id", block.PlateID).Msg("Skipping placeholder plate")
		return nil, nil
	}
	if s.seen[block.PlateID] {
		return nil, fmt.Errorf("%w: plate # %s", ErrDuplicatePlate, block.PlateID)
	}
	s.seen[block.PlateID] = true
	return block, nil
}

func (s *Scanner) reset() {
	s.state = Idle
	s.plateID = ""
	s.rows = nil
	s.metadata = nil
}

func isRowLetter(text string) bool {
	for _, l := range RowLetters {
		if text == l {
			return true
		}
	}
	return false
}

func isColumnHeader(row []Cell) bool {
	if len(row) <= ColumnCount || !row[ColumnCount].Number {
		return false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[ColumnCount].Text), 64)
	return err == nil && v == ColumnCount
}

func cellAt(row []Cell, i int) Cell {
	if i < len(row) {
		return row[i]
	}
	return Cell{}
}

// Scan reads the included sheets in workbook order and returns every plate
// found, in order. Colours are converted to tags through palette here so the
// state machine only ever sees tags.
func Scan(wb *workbook.Workbook, sheetNames []string, palette *workbook.Palette, opts Options) ([]*Block, error) {
	included := make(map[string]bool, len(sheetNames))
	for _, name := range sheetNames {
		included[name] = true
	}

	scanner := NewScanner(opts)
	var blocks []*Block
	emit := func(b *Block, err error) error {
		if err != nil {
			return err
		}
		if b != nil {
			log.Debug().
				Str("plate_id", b.PlateID).
				Int("metadata_cells", len(b.Metadata)).
				Msg("Found plate")
			blocks = append(blocks, b)
		}
		return nil
	}

	for _, sheet := range wb.Sheets {
		if !included[sheet.Name] {
			continue
		}
		if err := emit(scanner.Flush()); err != nil {
			return nil, err
		}
		for i, raw := range sheet.Rows {
			if err := emit(scanner.ConsumeRow(tagRow(raw, palette))); err != nil {
				return nil, fmt.Errorf("sheet %s row %d: %w", sheet.Name, i+1, err)
			}
		}
	}
	if err := emit(scanner.Flush()); err != nil {
		return nil, err
	}

	log.Info().Int("plates", len(blocks)).Msg("Scanned platemap workbook")
	return blocks, nil
}

func tagRow(raw []workbook.Cell, palette *workbook.Palette) []Cell {
	row := make([]Cell, len(raw))
	for i, c := range raw {
		row[i] = Cell{Text: c.Value, Comment: c.Comment, Tag: palette.Tag(c.Color), Number: c.Numeric}
	}
	return row
}

// SelectPlates keeps the desired plates, preserving scan order. An empty
// desired list keeps every plate.
func SelectPlates(blocks []*Block, desired []string) ([]*Block, error) {
	if len(desired) == 0 {
		return blocks, nil
	}

	want := make(map[string]bool, len(desired))
	for _, id := range desired {
		want[id] = true
	}
	found := make(map[string]bool, len(blocks))
	var selected []*Block
	for _, b := range blocks {
		found[b.PlateID] = true
		if want[b.PlateID] {
			selected = append(selected, b)
		}
	}

	var missing []string
	for id := range want {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: %v", ErrMissingPlates, missing)
	}
	return selected, nil
}
