package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Processing paths reported by the sanitizer.
const (
	PathRaster      = "raster"
	PathPassthrough = "passthrough"
	PathFailed      = "failed"
)

// Recorder receives per-file observations from the sanitization pipeline.
type Recorder interface {
	ObserveFile(path string, originalBytes, processedBytes int64, took time.Duration)
}

// SubmissionRecorder receives per-submission observations from the evidence service.
type SubmissionRecorder interface {
	IncSubmissions(status string)
}

// Noop implements Recorder and SubmissionRecorder without emitting anything.
type Noop struct{}

func (Noop) ObserveFile(string, int64, int64, time.Duration) {}
func (Noop) IncSubmissions(string)                           {}

// Prom implements Recorder and SubmissionRecorder backed by Prometheus.
type Prom struct {
	files       *prometheus.CounterVec
	bytesIn     *prometheus.CounterVec
	bytesOut    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	submissions *prometheus.CounterVec
	once        sync.Once
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sanitizer_files_total",
			Help:      "Files processed by path",
		}, []string{"path"}),
		bytesIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sanitizer_input_bytes_total",
			Help:      "Bytes received by path",
		}, []string{"path"}),
		bytesOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sanitizer_output_bytes_total",
			Help:      "Bytes produced by path",
		}, []string{"path"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sanitizer_file_duration_seconds",
			Help:      "Per-file processing latency by path",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"path"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evidence_submissions_total",
			Help:      "Evidence submissions by status",
		}, []string{"status"}),
	}
	p.register()
	return p
}

func (p *Prom) register() {
	p.once.Do(func() {
		prometheus.MustRegister(p.files, p.bytesIn, p.bytesOut, p.duration, p.submissions)
	})
}

func (p *Prom) ObserveFile(path string, originalBytes, processedBytes int64, took time.Duration) {
	p.files.WithLabelValues(path).Inc()
	p.bytesIn.WithLabelValues(path).Add(float64(originalBytes))
	p.bytesOut.WithLabelValues(path).Add(float64(processedBytes))
	p.duration.WithLabelValues(path).Observe(took.Seconds())
}

func (p *Prom) IncSubmissions(status string) {
	p.submissions.WithLabelValues(status).Inc()
}

// Handler returns an HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
