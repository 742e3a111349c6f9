package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	// New registers on the default prometheus registry, so the collector
	// is built once for the whole test binary.
	c := New()

	c.SetTotalCounts(10, 1000)
	c.IncSuccessWithBytes(100)
	c.AddBytes(100)
	c.IncSuccessWithBytes(50)
	c.AddBytes(50)
	c.IncFailed()
	c.IncSkippedWithBytes(25)
	c.SetInflightWorkers(3)
	c.ObserveDuration(250 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.uploadsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.uploadsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.uploadsTotal.WithLabelValues("skipped")))
	assert.Equal(t, 150.0, testutil.ToFloat64(c.bytesTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.inflightWorkers))

	status := c.GetProgressTracker().GetStatus()
	assert.Equal(t, int64(10), status.TotalFiles)
	assert.Equal(t, int64(1000), status.TotalBytes)
	assert.Equal(t, int64(2), status.SuccessFiles)
	assert.Equal(t, int64(1), status.FailedFiles)
	assert.Equal(t, int64(1), status.SkippedFiles)
	assert.Equal(t, int64(4), status.ProcessedFiles)
	assert.Equal(t, int64(175), status.ProcessedBytes)
}
