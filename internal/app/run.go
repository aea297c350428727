package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"platemap_metadata/internal/config"
	"platemap_metadata/internal/ledger"
	"platemap_metadata/internal/metrics"
	"platemap_metadata/internal/notifications"
	"platemap_metadata/internal/pipeline"
	"platemap_metadata/internal/subjects"

	"github.com/rs/zerolog/log"
)

// Report is what a successful run produced.
type Report struct {
	RunID    string
	Result   *pipeline.Result
	Duration time.Duration
}

// Execute performs one complete run: read inputs, generate the metadata, write
// it out, then record it in the ledger, the metrics textfile and ntfy. The
// metrics textfile and the notification are written for failed runs too.
func Execute(ctx context.Context, opts RunOptions, stdout io.Writer) (*Report, error) {
	started := time.Now()
	if err := resolveNotifyTopic(&opts.Notify); err != nil {
		return nil, err
	}
	notifier := notifications.NewClient(opts.Notify.URL, opts.Notify.Topic, opts.Notify.Enabled, opts.Notify.Priority, opts.Resilience.Notification)

	var recorder *metrics.Recorder
	if opts.MetricsTextfile != "" {
		recorder = metrics.NewRecorder()
	}

	report, err := execute(ctx, opts, stdout, started)
	elapsed := time.Since(started)
	if err != nil {
		if recorder != nil {
			recorder.ObserveFailure(elapsed)
			writeMetrics(recorder, opts.MetricsTextfile)
		}
		notifyRun(ctx, notifier, notifications.RunInfo{
			Source:   opts.Workbook,
			Duration: elapsed,
			Err:      err,
		})
		return nil, err
	}
	report.Duration = elapsed

	if recorder != nil {
		recorder.Observe(report.Result.Summary, elapsed, time.Now())
		writeMetrics(recorder, opts.MetricsTextfile)
	}
	notifyRun(ctx, notifier, notifications.RunInfo{
		RunID:    report.RunID,
		Source:   opts.Workbook,
		Summary:  report.Result.Summary,
		Duration: elapsed,
	})

	log.Info().
		Str("run_id", report.RunID).
		Dur("elapsed", elapsed).
		Msg("Run complete")
	return report, nil
}

func execute(ctx context.Context, opts RunOptions, stdout io.Writer, started time.Time) (*Report, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	var table *subjects.Table
	if opts.SubjectsPath != "" {
		table, err = subjects.LoadTable(opts.SubjectsPath)
		if err != nil {
			return nil, err
		}
	}

	wb, err := OpenWorkbook(ctx, opts)
	if err != nil {
		return nil, err
	}

	result, err := pipeline.Run(wb, pipeline.Options{
		SheetNames: opts.SheetNames,
		Config:     cfg,
		Subjects:   table,
	})
	if err != nil {
		return nil, err
	}

	if err := WriteTable(ctx, opts, result.Table, stdout); err != nil {
		return nil, err
	}

	report := &Report{Result: result}
	if opts.LedgerDSN != "" {
		report.RunID, err = recordRun(ctx, opts, result, started)
		if err != nil {
			return nil, err
		}
	}
	return report, nil
}

func recordRun(ctx context.Context, opts RunOptions, result *pipeline.Result, started time.Time) (string, error) {
	l, err := ledger.Open(ctx, opts.LedgerDSN)
	if err != nil {
		return "", err
	}
	defer l.Close()

	names := make([]string, len(result.Records))
	for i, r := range result.Records {
		names[i] = r.Name
	}
	prior, err := l.PriorRuns(ctx, names)
	if err != nil {
		return "", err
	}
	if len(prior) > 0 {
		log.Warn().
			Int("samples", len(prior)).
			Msg("Sample names already recorded by an earlier run")
	}

	runID, err := l.RecordRun(ctx, ledger.Run{
		Source:    opts.Workbook,
		StartedAt: started,
		Duration:  time.Since(started),
		Summary:   result.Summary,
	}, result.Records)
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return runID, nil
}

// notifyRun never fails the run; the client has already logged the delivery
// error at warn.
func notifyRun(ctx context.Context, notifier *notifications.Client, run notifications.RunInfo) {
	if err := notifier.NotifyRunComplete(ctx, run); err != nil {
		log.Debug().Err(err).Msg("Run notification dropped")
	}
}

func writeMetrics(recorder *metrics.Recorder, path string) {
	if err := recorder.WriteTextfile(path); err != nil {
		log.Warn().Err(err).Msg("Failed to write metrics")
	}
}
