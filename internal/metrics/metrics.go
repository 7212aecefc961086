package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "singalong"

// HTTP metrics (incremented by middleware).
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests processed.",
	}, []string{"method", "path_pattern", "status_code"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path_pattern"})
)

// Relay metrics.
var (
	RelaySessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "relay_sessions_active",
		Help:      "Transcription sessions currently open.",
	})

	RelayAudioFramesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "relay_audio_frames_total",
		Help:      "Audio frames forwarded to the recognition provider.",
	})

	RelaySegmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "relay_segments_total",
		Help:      "Transcript segments sent to clients.",
	}, []string{"final"})

	RelayProviderErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "relay_provider_errors_total",
		Help:      "Recognition streams that ended with a provider fault.",
	})
)

// Game metrics.
var (
	ScoresIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scores_issued_total",
		Help:      "Score tokens issued.",
	})

	HighScoreSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "high_score_submissions_total",
		Help:      "High score submissions by outcome.",
	}, []string{"result"}) // accepted|rejected|invalid_token|write_failed
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		RelaySessionsActive,
		RelayAudioFramesTotal,
		RelaySegmentsTotal,
		RelayProviderErrorsTotal,
		ScoresIssuedTotal,
		HighScoreSubmissionsTotal,
	)
}

// Instrument records request metrics. The gin route pattern is used as the path
// label to keep cardinality bounded.
func Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		pattern := c.FullPath()
		if pattern == "" {
			pattern = "unknown"
		}
		method := c.Request.Method

		HTTPRequestsTotal.WithLabelValues(method, pattern, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(method, pattern).Observe(time.Since(start).Seconds())
	}
}
