// Package subjects enriches samples with per-subject metadata: collection
// dates, ages and locations that may change on a configured date.
package subjects

import (
	"fmt"
	"strings"
	"time"

	"platemap_metadata/internal/config"
	"platemap_metadata/internal/metadata"

	"github.com/rs/zerolog/log"
)

const (
	QCInvalidSubject = "invalid subject shorthand"
	QCInvalidDate    = "invalid/unparseable date"
)

// Enrich runs the per-subject cascade. Subjects are processed in the order
// they first appear and the output is grouped by subject in that order.
// Problems with single records become qc notes; only unusable configuration
// is returned as an error.
func Enrich(samples []metadata.Sample, cfg *config.Config) ([]metadata.Record, error) {
	var order []string
	groups := make(map[string][]metadata.Sample)
	for _, s := range samples {
		if _, ok := groups[s.SubjectShorthand]; !ok {
			order = append(order, s.SubjectShorthand)
		}
		groups[s.SubjectShorthand] = append(groups[s.SubjectShorthand], s)
	}

	records := make([]metadata.Record, 0, len(samples))
	for _, shorthand := range order {
		group := groups[shorthand]
		settings, ok := cfg.Subject(shorthand)
		if !ok {
			log.Warn().
				Str("subject", shorthand).
				Int("samples", len(group)).
				Msg("Unknown subject shorthand")
			for _, s := range group {
				records = append(records, metadata.Record{Sample: s, QCNote: QCInvalidSubject})
			}
			continue
		}

		enriched, err := enrichSubject(group, settings, cfg)
		if err != nil {
			return nil, fmt.Errorf("subject %s: %w", shorthand, err)
		}
		records = append(records, enriched...)
	}

	log.Info().
		Int("subjects", len(order)).
		Int("records", len(records)).
		Msg("Enriched samples by subject")
	return records, nil
}

func enrichSubject(group []metadata.Sample, settings config.SubjectSettings, cfg *config.Config) ([]metadata.Record, error) {
	start, err := ParseDate(settings.StudyStartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid study_start_date: %w", err)
	}

	var dob *time.Time
	if settings.DateOfBirth != "" {
		if d, err := ParseDate(settings.DateOfBirth); err == nil {
			dob = &d
		} else {
			log.Warn().Err(err).Msg("Ignoring unparseable date of birth")
		}
	}

	var switchDate time.Time
	if br := settings.LocationBreak; br != nil {
		if switchDate, err = ParseDate(br.AfterStartDate); err != nil {
			return nil, fmt.Errorf("invalid location_break after_start_date: %w", err)
		}
	}

	records := make([]metadata.Record, len(group))
	invalid := 0
	for i, s := range group {
		r := metadata.Record{Sample: s}
		resolveDates(&r, start)
		if !*r.TimestampValid {
			invalid++
		}

		if dob != nil && r.CollectionTimestamp != nil {
			age := FullYearsBetween(*dob, *r.CollectionTimestamp)
			r.HostAge = &age
		}

		if settings.Location != "" {
			r.LocationFields = mergeFields(nil, cfg.LocationFields(settings.Location))
		}
		if br := settings.LocationBreak; br != nil {
			name := br.AfterLocation
			if r.CollectionTimestamp != nil && r.CollectionTimestamp.Before(switchDate) {
				name = br.BeforeLocation
			}
			r.LocationFields = mergeFields(r.LocationFields, cfg.LocationFields(name))
		}
		records[i] = r
	}

	if invalid > 0 {
		log.Warn().
			Str("subject", group[0].SubjectShorthand).
			Int("invalid_dates", invalid).
			Msg("Samples without a usable collection date")
	}
	return records, nil
}

// resolveDates fills the collection date fields from the provisional timestamp,
// or failing that from the first three '.'-separated tokens of the sample name
// read as month, day and year. Dates before start are rejected.
func resolveDates(r *metadata.Record, start time.Time) {
	candidate := strings.TrimSpace(r.ProvisionalTimestamp)
	if candidate == "" {
		if pieces := strings.Split(r.Name, "."); len(pieces) >= 3 {
			candidate = strings.Join(pieces[:3], "/")
		}
	}

	var ts *time.Time
	if candidate != "" {
		if t, err := ParseFuzzyDate(candidate); err == nil && !t.Before(start) {
			ts = &t
		}
	}

	valid := ts != nil
	r.TimestampValid = &valid
	if !valid {
		r.QCNote = QCInvalidDate
		return
	}
	r.CollectionTimestamp = ts
	r.CollectionDate = ts.Format(metadata.DateLayout)
	r.OrdinalTimestamp = ts.Format(OrdinalLayout)
	days := DaysBetween(start, *ts)
	r.DaysSinceStart = &days
}

func mergeFields(base, overlay map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}
