// Package samples derives unique sample names from well text and mines the
// subject, sample type and collection hint out of them.
package samples

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"platemap_metadata/internal/metadata"

	"github.com/rs/zerolog/log"
)

const (
	// DoNotUse marks samples excluded from downstream analysis.
	DoNotUse = "donotuse"
	// Blank is the subject and sample type shorthand of control wells.
	Blank = "blank"

	maxDuplicates = 26
)

var (
	ErrTooManyDuplicates = errors.New("cannot disambiguate more than 26 identical names")
	ErrNameCollision     = errors.New("disambiguated name collides with an existing name")
)

var (
	repeatedDots   = regexp.MustCompile(`\.+`)
	trailingDigits = regexp.MustCompile(`\d+$`)
)

// CanonicalName scrubs a well's raw text into a sample name. Empty wells get a
// do-not-use name and bare "blank" wells get one qualified by plate and well.
func CanonicalName(w metadata.Well) string {
	name := strings.TrimSpace(w.RawText)
	name = strings.NewReplacer(" ", ".", ",", ".").Replace(name)
	name = repeatedDots.ReplaceAllString(name, ".")

	switch {
	case name == "":
		return DoNotUse + w.PlateID + "." + w.WellID()
	case strings.EqualFold(name, Blank):
		return name + w.PlateID + "." + w.WellID()
	}
	return name
}

// Disambiguate appends ".A", ".B", ... to every member of a group of identical
// names, in encounter order. Unique names are returned unchanged.
func Disambiguate(names []string) ([]string, error) {
	counts := make(map[string]int, len(names))
	for _, n := range names {
		counts[n]++
	}

	out := make([]string, len(names))
	seen := make(map[string]int, len(counts))
	for i, n := range names {
		if counts[n] == 1 {
			out[i] = n
			continue
		}
		if counts[n] > maxDuplicates {
			return nil, fmt.Errorf("%w: %q appears %d times", ErrTooManyDuplicates, n, counts[n])
		}
		out[i] = n + "." + string(rune('A'+seen[n]))
		seen[n]++
	}

	unique := make(map[string]bool, len(out))
	for _, n := range out {
		if unique[n] {
			return nil, fmt.Errorf("%w: %q", ErrNameCollision, n)
		}
		unique[n] = true
	}
	return out, nil
}

// NameFields are the hints positionally encoded in a sample name.
type NameFields struct {
	// OriginalCollectionTimestamp is the text before the first letter plus any
	// trailing digit run, e.g. "5.20.18" for "5.20.18.RK.T".
	OriginalCollectionTimestamp *string
	SubjectShorthand            string
	SampleTypeShorthand         *string
}

// MineName splits a sample name at its first letter. The leading part is the
// collection hint; the rest, lower-cased and split on '.', holds the subject
// and sample type shorthands.
func MineName(name string) NameFields {
	first := strings.IndexFunc(name, isASCIILetter)
	if first < 0 {
		return NameFields{SubjectShorthand: DoNotUse}
	}

	var fields NameFields
	hint := strings.TrimSuffix(name[:first], ".")
	hint = strings.TrimSpace(hint + " " + trailingDigits.FindString(name))
	if hint != "" {
		fields.OriginalCollectionTimestamp = &hint
	}

	text := strings.ToLower(name[first:])
	if strings.HasPrefix(text, DoNotUse) {
		text = DoNotUse
	}
	pieces := strings.Split(text, ".")

	fields.SubjectShorthand = strings.TrimSpace(pieces[0])
	if strings.HasPrefix(fields.SubjectShorthand, Blank) {
		fields.SubjectShorthand = Blank
	}
	if len(pieces) > 1 {
		sampleType := strings.TrimRight(strings.TrimSpace(pieces[1]), "0123456789")
		fields.SampleTypeShorthand = &sampleType
	}
	return fields
}

func isASCIILetter(r rune) bool {
	return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}

// Resolve names every well, disambiguates the names across the whole run and
// mines each name for its hints.
func Resolve(wells []metadata.Well) ([]metadata.Sample, error) {
	log.Debug().Int("wells", len(wells)).Msg("Resolving sample names")

	names := make([]string, len(wells))
	for i, w := range wells {
		names[i] = CanonicalName(w)
	}
	names, err := Disambiguate(names)
	if err != nil {
		return nil, err
	}

	result := make([]metadata.Sample, len(wells))
	for i, w := range wells {
		fields := MineName(names[i])
		result[i] = metadata.Sample{
			Well:                        w,
			Name:                        names[i],
			SubjectShorthand:            fields.SubjectShorthand,
			SampleTypeShorthand:         fields.SampleTypeShorthand,
			OriginalCollectionTimestamp: fields.OriginalCollectionTimestamp,
		}
	}

	log.Info().Int("samples", len(result)).Msg("Resolved sample names")
	return result, nil
}
