package metadata

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

const (
	SampleNameKey                  = "sample_name"
	HostSubjectIDKey               = "host_subject_id"
	DescriptionKey                 = "description"
	NotesKey                       = "notes"
	CollectionTimestampKey         = "collection_timestamp"
	CollectionDateKey              = "collection_date"
	OrdinalTimestampKey            = "ordinal_timestamp"
	IsCollectionTimestampValidKey  = "is_collection_timestamp_valid"
	OriginalCollectionTimestampKey = "original_collection_timestamp"
	DaysSinceFirstDayKey           = "days_since_first_day"
	HostAgeKey                     = "host_age"
	M03AgeYearsKey                 = "m03_age_years"

	PlateIDKey             = "plate_id"
	PlateRowIDKey          = "plate_row_id"
	PlateColIDKey          = "plate_col_id"
	PlateSampleIDKey       = "plate_sample_id"
	PlatingNotesKey        = "plating_notes"
	PlatingDateKey         = "plating_date"
	SubjectShorthandKey    = "subject_shorthand"
	SampleTypeShorthandKey = "sampletype_shorthand"
	QCNoteKey              = "qc_note"

	// NotesSeparator joins plating notes in text output.
	NotesSeparator = ";"

	TimestampLayout = "2006-01-02 15:04"
	DateLayout      = "2006-01-02"
)

var metadataColumns = []string{
	SampleNameKey,
	HostSubjectIDKey,
	DescriptionKey,
	NotesKey,
	CollectionTimestampKey,
	CollectionDateKey,
	OrdinalTimestampKey,
	IsCollectionTimestampValidKey,
	OriginalCollectionTimestampKey,
	DaysSinceFirstDayKey,
	HostAgeKey,
	M03AgeYearsKey,
}

// InternalColumns are carried for bookkeeping and are not sample metadata.
// A downstream writer strips or relocates them.
var InternalColumns = []string{
	PlateIDKey,
	PlateRowIDKey,
	PlateColIDKey,
	PlateSampleIDKey,
	PlatingNotesKey,
	PlatingDateKey,
	SubjectShorthandKey,
	SampleTypeShorthandKey,
	QCNoteKey,
}

// Table is the finalized, all-string form of the records.
type Table struct {
	Columns []string
	Rows    [][]string
}

func isFixed(column string) bool {
	for _, c := range metadataColumns {
		if c == column {
			return true
		}
	}
	return IsInternal(column)
}

// IsInternal reports whether column is one of InternalColumns.
func IsInternal(column string) bool {
	for _, c := range InternalColumns {
		if c == column {
			return true
		}
	}
	return false
}

// Column returns the values of a named column, or nil if it does not exist.
func (t Table) Column(name string) []string {
	idx := -1
	for i, c := range t.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[idx]
	}
	return values
}

// Finalize renders records into a table. Absent values become empty strings.
// Columns are the fixed metadata columns, then every merged or location field
// in sorted order, then InternalColumns. Location fields win over merged
// subject-table fields of the same name.
func Finalize(records []Record) Table {
	extraSet := make(map[string]bool)
	for _, r := range records {
		for k := range r.Fields {
			if !isFixed(k) {
				extraSet[k] = true
			}
		}
		for k := range r.LocationFields {
			if !isFixed(k) {
				extraSet[k] = true
			}
		}
	}
	extra := make([]string, 0, len(extraSet))
	for k := range extraSet {
		extra = append(extra, k)
	}
	sort.Strings(extra)

	columns := make([]string, 0, len(metadataColumns)+len(extra)+len(InternalColumns))
	columns = append(columns, metadataColumns...)
	columns = append(columns, extra...)
	columns = append(columns, InternalColumns...)

	table := Table{Columns: columns, Rows: make([][]string, 0, len(records))}
	for _, r := range records {
		values := r.values()
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = values[c]
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func (r Record) values() map[string]string {
	v := map[string]string{
		SampleNameKey:                  r.Name,
		HostSubjectIDKey:               r.HostSubjectID,
		DescriptionKey:                 r.Description,
		NotesKey:                       strings.Join(r.Notes, NotesSeparator),
		CollectionDateKey:              r.CollectionDate,
		OrdinalTimestampKey:            r.OrdinalTimestamp,
		OriginalCollectionTimestampKey: optionalString(r.OriginalCollectionTimestamp),
		DaysSinceFirstDayKey:           optionalInt(r.DaysSinceStart),
		HostAgeKey:                     optionalInt(r.HostAge),
		M03AgeYearsKey:                 optionalInt(r.HostAge),

		PlateIDKey:             r.PlateID,
		PlateRowIDKey:          r.Row,
		PlateColIDKey:          strconv.Itoa(r.Column),
		PlateSampleIDKey:       r.RawText,
		PlatingNotesKey:        strings.Join(r.PlatingNotes, NotesSeparator),
		PlatingDateKey:         r.PlatingDate,
		SubjectShorthandKey:    r.SubjectShorthand,
		SampleTypeShorthandKey: optionalString(r.SampleTypeShorthand),
		QCNoteKey:              r.QCNote,
	}
	switch {
	case r.CollectionTimestamp != nil:
		v[CollectionTimestampKey] = r.CollectionTimestamp.Format(TimestampLayout)
	case r.TimestampValid == nil:
		// never resolved, so pass through whatever was supplied
		v[CollectionTimestampKey] = r.ProvisionalTimestamp
	}
	if r.TimestampValid != nil {
		v[IsCollectionTimestampValidKey] = strconv.FormatBool(*r.TimestampValid)
	}
	for k, val := range r.Fields {
		if !isFixed(k) {
			v[k] = val
		}
	}
	for k, val := range r.LocationFields {
		v[k] = val
	}
	return v
}

func optionalString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optionalInt(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

// WriteTSV writes the table as tab-separated text with a header row.
func WriteTSV(w io.Writer, t Table) error {
	writer := csv.NewWriter(w)
	writer.Comma = '\t'
	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}
