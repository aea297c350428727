// Package pipeline runs a workbook through every stage, from plate scanning to
// the finalized metadata table.
package pipeline

import (
	"errors"
	"fmt"

	"platemap_metadata/internal/config"
	"platemap_metadata/internal/metadata"
	"platemap_metadata/internal/platemap"
	"platemap_metadata/internal/samples"
	"platemap_metadata/internal/subjects"
	"platemap_metadata/internal/workbook"

	"github.com/rs/zerolog/log"
)

var ErrNoSamples = errors.New("no plates with samples found")

// Options selects the worksheets and the study settings for one Run.
type Options struct {
	// SheetNames are the worksheets to scan, in workbook order. Empty scans
	// every sheet.
	SheetNames []string
	Config     *config.Config
	// Subjects is merged into the samples by subject shorthand when set.
	Subjects *subjects.Table
}

// Result holds the enriched records in plate order, the same rows rendered as
// an output table, and the run counts.
type Result struct {
	Records []metadata.Record
	Table   metadata.Table
	Summary metadata.Summary
}

// Run produces the enriched records for a workbook. Any structural problem
// aborts the run and no partial result is returned.
func Run(wb *workbook.Workbook, opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("pipeline: config is required")
	}

	sheetNames := opts.SheetNames
	if len(sheetNames) == 0 {
		sheetNames = wb.SheetNames()
	}
	blocks, err := platemap.Scan(wb, sheetNames, workbook.NewPalette(cfg.ColorTags), platemap.Options{
		PlaceholderID:      cfg.PlaceholderPlateID,
		Delimiter:          cfg.PlateIDDelimiter,
		AssumeDatesPresent: cfg.AssumeDatesPresent,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan platemaps: %w", err)
	}
	selected, err := platemap.SelectPlates(blocks, cfg.DesiredPlates)
	if err != nil {
		return nil, err
	}

	var wells []metadata.Well
	empty := 0
	for _, b := range selected {
		plateWells := platemap.Transform(b)
		if plateWells == nil {
			empty++
			continue
		}
		wells = append(wells, plateWells...)
	}
	if len(wells) == 0 {
		return nil, ErrNoSamples
	}

	resolved, err := samples.Resolve(wells)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sample names: %w", err)
	}
	if opts.Subjects != nil {
		resolved = subjects.MergeTable(resolved, opts.Subjects)
	}
	resolved = samples.NormalizeBlanks(resolved)

	records, err := subjects.Enrich(resolved, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to enrich samples: %w", err)
	}

	summary := metadata.Summarize(records, samples.DoNotUse)
	summary.PlatesScanned = len(blocks)
	summary.PlatesKept = len(selected) - empty
	summary.PlatesEmpty = empty

	log.Info().
		Int("plates", summary.PlatesKept).
		Int("samples", summary.Samples).
		Int("blanks", summary.Blanks).
		Interface("qc_notes", summary.QCNotes).
		Msg("Generated plate metadata")

	return &Result{
		Records: records,
		Table:   metadata.Finalize(records),
		Summary: summary,
	}, nil
}
