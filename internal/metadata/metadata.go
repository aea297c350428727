// Package metadata holds the per-well record types that flow through the
// pipeline and the table they are finalized into.
package metadata

import (
	"sort"
	"strconv"
	"time"
)

// Well is one pivoted well of a plate.
type Well struct {
	PlateID string
	Row     string
	Column  int
	RawText string
	// PlatingNotes is nil when the well has neither a comment nor a colour annotation.
	PlatingNotes []string
	PlatingDate  string
}

// WellID is the column-then-row well label, e.g. "3B".
func (w Well) WellID() string {
	return strconv.Itoa(w.Column) + w.Row
}

// Sample is a well with a resolved, unique sample identity.
type Sample struct {
	Well
	Name             string
	SubjectShorthand string
	// SampleTypeShorthand is nil when the name has no second segment.
	SampleTypeShorthand *string
	// OriginalCollectionTimestamp is the date hint mined from the name.
	OriginalCollectionTimestamp *string
	IsBlank                     bool
	HostSubjectID               string
	Description                 string
	Notes                       []string
	// ProvisionalTimestamp is a collection timestamp supplied before the
	// cascade runs, either a blank's plating date or a subject-table value.
	ProvisionalTimestamp string
	// Fields are columns merged in from the subject metadata table.
	Fields map[string]string
}

// Record is a sample after per-subject enrichment.
type Record struct {
	Sample
	CollectionTimestamp *time.Time
	CollectionDate      string
	OrdinalTimestamp    string
	// TimestampValid is nil when dates were never resolved for the subject.
	TimestampValid *bool
	DaysSinceStart *int
	HostAge        *int
	LocationFields map[string]string
	QCNote         string
}

// Summary describes one run for the ledger, metrics and notifications.
type Summary struct {
	PlatesScanned int
	PlatesKept    int
	PlatesEmpty   int
	Samples       int
	Blanks        int
	DoNotUse      int
	Subjects      int
	QCNotes       map[string]int
}

// Summarize counts samples, blanks and qc notes. Plate counts are filled by
// the caller.
func Summarize(records []Record, doNotUse string) Summary {
	s := Summary{Samples: len(records), QCNotes: make(map[string]int)}
	subjects := make(map[string]bool)
	for _, r := range records {
		subjects[r.SubjectShorthand] = true
		if r.IsBlank {
			s.Blanks++
		}
		if r.SubjectShorthand == doNotUse {
			s.DoNotUse++
		}
		if r.QCNote != "" {
			s.QCNotes[r.QCNote]++
		}
	}
	s.Subjects = len(subjects)
	return s
}

// QCReasons returns the distinct qc notes, sorted.
func (s Summary) QCReasons() []string {
	reasons := make([]string, 0, len(s.QCNotes))
	for reason := range s.QCNotes {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	return reasons
}
