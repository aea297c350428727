package samples

import (
	"platemap_metadata/internal/metadata"

	"github.com/rs/zerolog/log"
)

// NormalizeBlanks gives blank wells their own identity: host subject and
// description are the sample name, the sample type is "blank" and the plating
// date stands in as the collection timestamp until dates are resolved. Every
// record's notes are set from its plating notes.
func NormalizeBlanks(in []metadata.Sample) []metadata.Sample {
	out := make([]metadata.Sample, len(in))
	blanks := 0
	for i, s := range in {
		if s.SubjectShorthand == Blank {
			blank := Blank
			s.IsBlank = true
			s.HostSubjectID = s.Name
			s.Description = s.Name
			s.SampleTypeShorthand = &blank
			s.ProvisionalTimestamp = s.PlatingDate
			blanks++
		}
		s.Notes = append([]string(nil), s.PlatingNotes...)
		out[i] = s
	}

	log.Debug().Int("blanks", blanks).Msg("Normalized blank samples")
	return out
}
