package workbook

import (
	"strings"
)

// Cell is one spreadsheet cell as delivered by a workbook source.
type Cell struct {
	Value   string
	Numeric bool
	Comment string
	// Color is the raw background colour id reported by the source; empty when unfilled.
	Color string
}

// Sheet holds the rows of one worksheet in source order.
type Sheet struct {
	Name string
	Rows [][]Cell
}

// Workbook is a fully loaded spreadsheet.
type Workbook struct {
	Sheets []Sheet
}

// SheetNames returns the names of all loaded sheets in workbook order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, 0, len(w.Sheets))
	for _, s := range w.Sheets {
		names = append(names, s.Name)
	}
	return names
}

func includes(names []string, name string) bool {
	if len(names) == 0 {
		return true
	}
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// Palette maps raw source colour ids to caller-defined annotation tags.
// Unfilled cells always map to the empty tag.
type Palette struct {
	tags map[string]string
}

// NewPalette builds a palette from raw colour → tag overrides. Colours without
// an override are tagged with their normalized id.
func NewPalette(overrides map[string]string) *Palette {
	tags := make(map[string]string, len(overrides))
	for raw, tag := range overrides {
		if norm := NormalizeColor(raw); norm != "" {
			tags[norm] = tag
		}
	}
	return &Palette{tags: tags}
}

// Tag returns the annotation tag for a raw colour id.
func (p *Palette) Tag(raw string) string {
	norm := NormalizeColor(raw)
	if norm == "" {
		return ""
	}
	if p != nil {
		if tag, ok := p.tags[norm]; ok {
			return tag
		}
	}
	return norm
}

// NormalizeColor turns "#ffff00", "FFFFFF00" and "ffff00" into "FFFF00".
// Fully transparent ARGB values count as no fill and return "". An explicit
// white fill keeps its id so a palette can tag it.
func NormalizeColor(raw string) string {
	c := strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(raw), "#"))
	if len(c) == 8 {
		if c[:2] == "00" {
			return ""
		}
		c = c[2:]
	}
	return c
}
