package subjects

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"platemap_metadata/internal/metadata"

	"github.com/rs/zerolog/log"
)

var (
	ErrMissingShorthandColumn = errors.New("subject table has no subject_shorthand column")
	ErrDuplicateSubject       = errors.New("subject listed more than once in subject table")
)

// Table is the subject metadata table keyed by subject shorthand.
type Table struct {
	Columns []string
	rows    map[string]map[string]string
}

// Lookup returns the row for a subject shorthand.
func (t *Table) Lookup(shorthand string) (map[string]string, bool) {
	if t == nil {
		return nil, false
	}
	row, ok := t.rows[shorthand]
	return row, ok
}

// Len is the number of subjects in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// LoadTable reads a subject metadata CSV file.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open subject table: %w", err)
	}
	defer f.Close()

	t, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("subject table %s: %w", path, err)
	}
	log.Debug().Str("path", path).Int("subjects", t.Len()).Msg("Loaded subject table")
	return t, nil
}

// ReadTable parses CSV with a header row that includes subject_shorthand.
func ReadTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	key := -1
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
		if header[i] == metadata.SubjectShorthandKey {
			key = i
		}
	}
	if key < 0 {
		return nil, ErrMissingShorthandColumn
	}

	t := &Table{Columns: header, rows: make(map[string]map[string]string)}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		shorthand := strings.TrimSpace(record[key])
		if _, dup := t.rows[shorthand]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSubject, shorthand)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			row[col] = strings.TrimSpace(record[i])
		}
		t.rows[shorthand] = row
	}
	return t, nil
}

// MergeTable left-joins the table onto the samples by subject shorthand.
// host_subject_id, description and collection_timestamp columns fill the
// matching sample fields; every other column becomes a sample field.
func MergeTable(samples []metadata.Sample, t *Table) []metadata.Sample {
	out := make([]metadata.Sample, len(samples))
	matched := 0
	for i, s := range samples {
		row, ok := t.Lookup(s.SubjectShorthand)
		if ok {
			matched++
			s.Fields = make(map[string]string, len(row))
			for col, val := range row {
				switch col {
				case metadata.SubjectShorthandKey:
				case metadata.HostSubjectIDKey:
					s.HostSubjectID = val
				case metadata.DescriptionKey:
					s.Description = val
				case metadata.CollectionTimestampKey:
					s.ProvisionalTimestamp = val
				default:
					s.Fields[col] = val
				}
			}
		}
		out[i] = s
	}

	log.Debug().
		Int("samples", len(samples)).
		Int("matched", matched).
		Msg("Merged subject table")
	return out
}
