// Package metrics exposes the outcome of a batch run as Prometheus gauges,
// written to a node-exporter textfile when the run ends.
package metrics

import (
	"fmt"
	"time"

	"platemap_metadata/internal/metadata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

const namespace = "platemap"

type Recorder struct {
	registry *prometheus.Registry

	plates      *prometheus.GaugeVec
	samples     *prometheus.GaugeVec
	subjects    prometheus.Gauge
	qcNotes     *prometheus.GaugeVec
	duration    prometheus.Gauge
	success     prometheus.Gauge
	lastSuccess prometheus.Gauge
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		plates: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "plates",
			Help:      "Plates seen by the last run, by outcome",
		}, []string{"outcome"}),
		samples: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "samples",
			Help:      "Samples produced by the last run, by kind",
		}, []string{"kind"}),
		subjects: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "subjects",
			Help:      "Distinct subject shorthands in the last run",
		}),
		qcNotes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "qc_notes",
			Help:      "Samples flagged with a qc note in the last run, by reason",
		}, []string{"reason"}),
		duration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Wall time of the last run",
		}),
		success: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "success",
			Help:      "1 if the last run completed, 0 if it failed",
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time the last successful run finished",
		}),
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Observe records a completed run.
func (r *Recorder) Observe(s metadata.Summary, elapsed time.Duration, finished time.Time) {
	r.plates.WithLabelValues("scanned").Set(float64(s.PlatesScanned))
	r.plates.WithLabelValues("kept").Set(float64(s.PlatesKept))
	r.plates.WithLabelValues("empty").Set(float64(s.PlatesEmpty))

	r.samples.WithLabelValues("all").Set(float64(s.Samples))
	r.samples.WithLabelValues("blank").Set(float64(s.Blanks))
	r.samples.WithLabelValues("donotuse").Set(float64(s.DoNotUse))

	r.subjects.Set(float64(s.Subjects))

	r.qcNotes.Reset()
	for reason, n := range s.QCNotes {
		r.qcNotes.WithLabelValues(reason).Set(float64(n))
	}

	r.duration.Set(elapsed.Seconds())
	r.success.Set(1)
	r.lastSuccess.Set(float64(finished.Unix()))
}

// ObserveFailure marks the run failed, keeping the last success time.
func (r *Recorder) ObserveFailure(elapsed time.Duration) {
	r.duration.Set(elapsed.Seconds())
	r.success.Set(0)
}

// WriteTextfile writes every gauge to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	log.Debug().Str("path", path).Msg("Wrote metrics textfile")
	return nil
}
