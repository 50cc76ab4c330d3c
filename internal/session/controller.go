package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tisianewembou/NextWavePt3/internal/artifact"
	"github.com/tisianewembou/NextWavePt3/internal/device"
	"github.com/tisianewembou/NextWavePt3/internal/events"
	"github.com/tisianewembou/NextWavePt3/internal/logging"
	"github.com/tisianewembou/NextWavePt3/internal/metrics"
)

// Status messages per state.
const (
	statusIdle        = "Enable the camera to begin."
	statusCameraReady = "Camera ready. You can start recording."
	statusRecording   = "Recording in progress..."
	statusRecorded    = "Recording complete. Download your video."
)

// DeviceManager is the device-acquisition collaborator.
type DeviceManager interface {
	Acquire(ctx context.Context, constraints device.Constraints) (*device.CaptureSession, error)
	Release()
}

// RecordingInfo identifies a started encoding session.
type RecordingInfo struct {
	ID     string
	Format string
}

// Encoder is the encoding collaborator. Start fails when a recording
// is already active or the encoder cannot be constructed; Stop with no
// active recording returns (nil, nil).
type Encoder interface {
	Start(ctx context.Context, capture *device.CaptureSession) (*RecordingInfo, error)
	Stop(ctx context.Context) (*artifact.Artifact, error)
}

// ArtifactSink receives every finalized artifact, e.g. the on-disk
// recordings store.
type ArtifactSink func(*artifact.Artifact)

// Controller is the session lifecycle coordinator: it enforces the
// ordering between device acquisition, encoding, and the elapsed
// timer, and owns the externally observable state
// (Idle → CameraReady → Recording → Recorded).
type Controller struct {
	mu sync.Mutex

	state       State
	statusMsg   string
	lastError   string
	capture     *device.CaptureSession
	artifact    *artifact.Artifact
	recording   bool
	acquireBusy bool
	generation  uint64
	constraints device.Constraints

	devices DeviceManager
	encoder Encoder
	timer   *ElapsedTimer
	sink    ArtifactSink
	bus     *events.Bus
	logger  *slog.Logger
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithConstraints overrides the default capture constraints.
func WithConstraints(c device.Constraints) ControllerOption {
	return func(ctrl *Controller) {
		ctrl.constraints = c
	}
}

// WithArtifactSink registers a sink for finalized artifacts.
func WithArtifactSink(sink ArtifactSink) ControllerOption {
	return func(ctrl *Controller) {
		ctrl.sink = sink
	}
}

// WithTimer injects the elapsed timer, for tests.
func WithTimer(t *ElapsedTimer) ControllerOption {
	return func(ctrl *Controller) {
		ctrl.timer = t
	}
}

// NewController creates an idle session controller.
func NewController(devices DeviceManager, encoder Encoder, bus *events.Bus, opts ...ControllerOption) *Controller {
	c := &Controller{
		state:       StateIdle,
		statusMsg:   statusIdle,
		constraints: device.DefaultConstraints(),
		devices:     devices,
		encoder:     encoder,
		bus:         bus,
		logger:      logging.GetLogger("session"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timer == nil {
		c.timer = NewElapsedTimer(func(label string, seconds int64) {
			bus.Publish(events.ElapsedTickEvent{Label: label, Seconds: seconds})
		})
	}
	return c
}

// RequestCamera acquires the capture device stream. From any state but
// Idle, or while an acquire is already pending, it is a tolerated
// no-op. On failure the state stays Idle and the error message carries
// the platform reason.
func (c *Controller) RequestCamera(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle || c.acquireBusy {
		c.mu.Unlock()
		return nil
	}
	c.acquireBusy = true
	constraints := c.constraints
	generation := c.generation
	c.mu.Unlock()

	capture, err := c.devices.Acquire(ctx, constraints)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.acquireBusy = false

	// Teardown bumps the generation; an acquire that resolves after a
	// teardown must not resurrect the session.
	if c.generation != generation {
		if capture != nil {
			c.devices.Release()
		}
		return nil
	}

	if err != nil {
		reason := reasonOf(err)
		c.lastError = "Camera Error: " + reason
		metrics.CameraError()
		c.bus.Publish(events.CameraErrorEvent{
			Message:   c.lastError,
			Reason:    reason,
			Timestamp: timestamp(),
		})
		c.logger.Warn("Camera acquisition failed", "reason", reason)
		return newDeviceError(reason, err)
	}

	c.capture = capture
	c.lastError = ""
	c.setState(StateCameraReady, statusCameraReady)
	c.bus.Publish(events.CameraAcquiredEvent{
		SessionID: capture.ID,
		Device:    capture.VideoDevice,
		Timestamp: timestamp(),
	})
	return nil
}

// RequestRecord starts a recording session. Valid from CameraReady and
// from Recorded (re-record, discarding the previous artifact);
// anywhere else it is a tolerated no-op. On encoder failure the state
// reverts to CameraReady and the capture session stays alive.
func (c *Controller) RequestRecord(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateCameraReady && c.state != StateRecorded {
		return nil
	}
	if c.capture == nil || !c.capture.Alive() {
		return nil
	}

	// Re-record discards the previous artifact before anything else.
	c.artifact = nil

	info, err := c.encoder.Start(ctx, c.capture)
	if err != nil {
		reason := reasonOf(err)
		c.lastError = "Encoder Error: " + reason
		c.setState(StateCameraReady, statusCameraReady)
		metrics.EncoderError()
		c.bus.Publish(events.EncoderErrorEvent{
			Message:   c.lastError,
			Reason:    reason,
			Timestamp: timestamp(),
		})
		c.logger.Warn("Encoder start failed", "reason", reason)
		return newEncoderError(reason, err)
	}

	c.recording = true
	c.lastError = ""
	c.timer.Start()
	c.setState(StateRecording, statusRecording)
	metrics.RecordingStarted()
	c.bus.Publish(events.RecordingStartedEvent{
		RecordingID: info.ID,
		Format:      info.Format,
		Timestamp:   timestamp(),
	})
	return nil
}

// RequestStop finalizes the active recording into an artifact. With no
// active recording it is a tolerated no-op that leaves the state
// unchanged.
func (c *Controller) RequestStop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopLocked(ctx)
}

func (c *Controller) stopLocked(ctx context.Context) error {
	if c.state != StateRecording || !c.recording {
		return nil
	}

	art, err := c.encoder.Stop(ctx)
	c.timer.Stop()
	c.recording = false

	if err != nil {
		reason := reasonOf(err)
		c.lastError = "Encoder Error: " + reason
		c.setState(StateCameraReady, statusCameraReady)
		c.logger.Error("Recording finalize failed", "reason", reason)
		return newEncoderError(reason, err)
	}

	c.artifact = art
	c.setState(StateRecorded, statusRecorded)
	metrics.RecordingCompleted()
	c.bus.Publish(events.RecordingStoppedEvent{
		RecordingID: art.RecordingID,
		Size:        art.Size(),
		Duration:    c.timer.Label(),
		Filename:    art.Filename(),
		Timestamp:   timestamp(),
	})

	if c.sink != nil {
		// Persisting is a side effect; it never blocks the transition.
		go c.sink(art)
	}
	return nil
}

// RequestDownload returns the current artifact. It is a pure read:
// no state change, safe to invoke repeatedly, ErrNoArtifact when no
// finalized recording exists.
func (c *Controller) RequestDownload() (*artifact.Artifact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.artifact == nil {
		return nil, ErrNoArtifact
	}
	return c.artifact, nil
}

// Teardown stops any active recording, stops the timer, and releases
// the capture session, in that order. An acquire still in flight is
// invalidated. Idempotent; always ends in Idle.
func (c *Controller) Teardown(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++

	if c.recording {
		if err := c.stopLocked(ctx); err != nil {
			c.logger.Warn("Encoder stop during teardown failed", "error", err)
		}
	}
	c.timer.Stop()

	if c.capture != nil {
		c.devices.Release()
		c.capture = nil
	}

	c.lastError = ""
	if c.state != StateIdle {
		c.setState(StateIdle, statusIdle)
	}
}

// Snapshot returns the presentation projection of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:         c.state.String(),
		StatusMessage: c.statusMsg,
		ErrorMessage:  c.lastError,
		ElapsedLabel:  c.timer.Label(),
		HasArtifact:   c.artifact != nil,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Capture hands out the live stream handle for the presentation layer
// to bind its preview surface; nil when no camera is acquired.
func (c *Controller) Capture() *device.CaptureSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture
}

// setState transitions to the given state and publishes the change.
// Callers hold c.mu.
func (c *Controller) setState(to State, status string) {
	from := c.state
	c.state = to
	c.statusMsg = status
	metrics.SetSessionState(to.String(), AllStates())
	c.bus.Publish(events.StateChangedEvent{
		From:      from.String(),
		To:        to.String(),
		Status:    status,
		Timestamp: timestamp(),
	})
	c.logger.Info("Session state changed", "from", from.String(), "to", to.String())
}

// reasonOf extracts the human-readable reason from collaborator errors.
func reasonOf(err error) string {
	var devErr *device.Error
	if errors.As(err, &devErr) {
		return devErr.Message
	}
	var reasoner interface{ Reason() string }
	if errors.As(err, &reasoner) {
		return reasoner.Reason()
	}
	return err.Error()
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
