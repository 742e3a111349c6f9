package metrics

import (
	"net/http"
	"time"

	"github.com/aubreyosenda/dam-sdk-go/internal/progress"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector collects and exposes metrics
type Collector struct {
	uploadsTotal    *prometheus.CounterVec
	bytesTotal      prometheus.Counter
	inflightWorkers prometheus.Gauge
	duration        prometheus.Histogram
	progressTracker *progress.Tracker
}

// New creates a new metrics collector
func New() *Collector {
	c := &Collector{
		uploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dam_uploads_total",
				Help: "Total number of files processed",
			},
			[]string{"status"},
		),
		bytesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dam_upload_bytes_total",
				Help: "Total bytes uploaded",
			},
		),
		inflightWorkers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "dam_inflight_workers",
				Help: "Number of upload workers running",
			},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dam_upload_duration_seconds",
				Help:    "Time taken to upload a file",
				Buckets: prometheus.DefBuckets,
			},
		),
		progressTracker: progress.NewTracker(),
	}

	// Register metrics
	prometheus.MustRegister(c.uploadsTotal)
	prometheus.MustRegister(c.bytesTotal)
	prometheus.MustRegister(c.inflightWorkers)
	prometheus.MustRegister(c.duration)

	return c
}

// IncSuccess increments the successful upload counter
func (c *Collector) IncSuccess() {
	c.uploadsTotal.WithLabelValues("success").Inc()
}

// IncSuccessWithBytes increments the successful upload counter and updates progress
func (c *Collector) IncSuccessWithBytes(bytes int64) {
	c.uploadsTotal.WithLabelValues("success").Inc()
	c.progressTracker.AddSuccess(bytes)
}

// IncFailed increments the failed upload counter
func (c *Collector) IncFailed() {
	c.uploadsTotal.WithLabelValues("failed").Inc()
	c.progressTracker.AddFailed()
}

// IncSkipped increments the skipped file counter
func (c *Collector) IncSkipped() {
	c.uploadsTotal.WithLabelValues("skipped").Inc()
}

// IncSkippedWithBytes increments the skipped file counter and updates progress
func (c *Collector) IncSkippedWithBytes(bytes int64) {
	c.uploadsTotal.WithLabelValues("skipped").Inc()
	c.progressTracker.AddSkipped(bytes)
}

// AddBytes adds to total bytes uploaded
func (c *Collector) AddBytes(bytes int64) {
	c.bytesTotal.Add(float64(bytes))
}

// SetInflightWorkers sets the number of inflight workers
func (c *Collector) SetInflightWorkers(count int) {
	c.inflightWorkers.Set(float64(count))
}

// ObserveDuration observes one upload duration
func (c *Collector) ObserveDuration(duration time.Duration) {
	c.duration.Observe(duration.Seconds())
}

// StartServer starts the metrics HTTP server
func (c *Collector) StartServer(addr string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, nil)
}

// GetProgressTracker returns the progress tracker
func (c *Collector) GetProgressTracker() *progress.Tracker {
	return c.progressTracker
}

// SetTotalCounts sets the total counts for progress tracking
func (c *Collector) SetTotalCounts(files, bytes int64) {
	c.progressTracker.SetTotal(files, bytes)
}
