// Package metrics exposes Prometheus collectors for the recording
// session lifecycle.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	recordingsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nextwave",
		Subsystem: "recorder",
		Name:      "recordings_started_total",
		Help:      "Recording sessions started",
	})

	recordingsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nextwave",
		Subsystem: "recorder",
		Name:      "recordings_completed_total",
		Help:      "Recording sessions finalized into an artifact",
	})

	fragmentsAppended = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nextwave",
		Subsystem: "recorder",
		Name:      "fragments_total",
		Help:      "Encoded fragments appended across all recording sessions",
	})

	fragmentBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nextwave",
		Subsystem: "recorder",
		Name:      "fragment_bytes_total",
		Help:      "Encoded bytes accumulated across all recording sessions",
	})

	cameraErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nextwave",
		Subsystem: "recorder",
		Name:      "camera_errors_total",
		Help:      "Failed device acquisitions",
	})

	encoderErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nextwave",
		Subsystem: "recorder",
		Name:      "encoder_errors_total",
		Help:      "Failed encoder starts",
	})

	sessionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "nextwave",
		Subsystem: "recorder",
		Name:      "session_state",
		Help:      "Current session state (1 for the active state, 0 otherwise)",
	}, []string{"state"})

	previewPeers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "nextwave",
		Subsystem: "preview",
		Name:      "active_peers",
		Help:      "Active WebRTC preview peer connections",
	})

	previewNACKs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nextwave",
		Subsystem: "preview",
		Name:      "nacks_total",
		Help:      "NACK retransmission requests received from preview peers",
	})

	previewPLIs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nextwave",
		Subsystem: "preview",
		Name:      "plis_total",
		Help:      "Picture loss indications received from preview peers",
	})
)

// RecordingStarted increments the started-recordings counter.
func RecordingStarted() {
	recordingsStarted.Inc()
}

// RecordingCompleted increments the completed-recordings counter.
func RecordingCompleted() {
	recordingsCompleted.Inc()
}

// FragmentAppended accounts one appended fragment of the given size.
func FragmentAppended(size int) {
	fragmentsAppended.Inc()
	fragmentBytes.Add(float64(size))
}

// CameraError increments the failed-acquisition counter.
func CameraError() {
	cameraErrors.Inc()
}

// EncoderError increments the failed-encoder-start counter.
func EncoderError() {
	encoderErrors.Inc()
}

// SetSessionState marks the given state as active and all others as
// inactive.
func SetSessionState(state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1.0
		}
		sessionState.WithLabelValues(s).Set(v)
	}
}

// SetPreviewPeers records the current preview peer count.
func SetPreviewPeers(n int) {
	previewPeers.Set(float64(n))
}

// PreviewNACKs accounts NACK requests from preview peers.
func PreviewNACKs(n int) {
	previewNACKs.Add(float64(n))
}

// PreviewPLI accounts one picture loss indication from a preview peer.
func PreviewPLI() {
	previewPLIs.Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
