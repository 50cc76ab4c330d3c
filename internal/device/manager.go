package device

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tisianewembou/NextWavePt3/internal/logging"
)

// Prober resolves capture constraints to concrete device nodes.
// The platform probe is behind this interface so tests can inject a
// scripted one.
type Prober interface {
	Resolve(ctx context.Context, constraints Constraints) (Resolved, error)
}

// Resolved is the outcome of a successful probe.
type Resolved struct {
	VideoDevice string
	AudioDevice string
	Width       int
	Height      int
}

// Manager owns the single CaptureSession. Acquire and Release are safe
// for concurrent use; Release is idempotent.
type Manager struct {
	mu          sync.Mutex
	prober      Prober
	session     *CaptureSession
	previewAddr string
	logger      *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithProber overrides the platform probe.
func WithProber(p Prober) Option {
	return func(m *Manager) {
		m.prober = p
	}
}

// WithPreviewAddr sets the loopback address preview RTP is sent to.
func WithPreviewAddr(addr string) Option {
	return func(m *Manager) {
		m.previewAddr = addr
	}
}

// NewManager creates a device manager with the platform probe.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		prober: newPlatformProber(),
		logger: logging.GetLogger("devices"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire requests the audio+video capture stream. On success it
// creates the CaptureSession; on failure no session exists and the
// error carries the underlying platform message. A session that is
// already acquired is returned as-is.
func (m *Manager) Acquire(ctx context.Context, constraints Constraints) (*CaptureSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil && m.session.Alive() {
		return m.session, nil
	}

	resolved, err := m.prober.Resolve(ctx, constraints)
	if err != nil {
		m.logger.Warn("Device acquisition failed", "error", err)
		return nil, err
	}

	tracks := []*Track{{Kind: TrackVideo, Label: resolved.VideoDevice, active: true}}
	if constraints.Audio {
		tracks = append(tracks, &Track{Kind: TrackAudio, Label: resolved.AudioDevice, active: true})
	}

	m.session = &CaptureSession{
		ID:          uuid.NewString(),
		VideoDevice: resolved.VideoDevice,
		AudioDevice: resolved.AudioDevice,
		Width:       resolved.Width,
		Height:      resolved.Height,
		Tracks:      tracks,
		PreviewAddr: m.previewAddr,
		AcquiredAt:  time.Now(),
	}

	m.logger.Info("Capture session acquired",
		"session_id", m.session.ID,
		"video", resolved.VideoDevice,
		"audio", resolved.AudioDevice)

	return m.session, nil
}

// Release stops every active track and clears the session handle.
// No-op when nothing is acquired. The coordinator guarantees no
// recording session is active when this runs.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return
	}

	for _, t := range m.session.Tracks {
		t.stop()
	}
	m.logger.Info("Capture session released", "session_id", m.session.ID)
	m.session = nil
}

// Session returns the current capture session, nil when none exists.
func (m *Manager) Session() *CaptureSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}
