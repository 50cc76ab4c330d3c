package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tisianewembou/NextWavePt3/internal/artifact"
	"github.com/tisianewembou/NextWavePt3/internal/device"
	"github.com/tisianewembou/NextWavePt3/internal/events"
)

type fakeDevices struct {
	mu       sync.Mutex
	err      error
	session  *device.CaptureSession
	acquires int
	releases int
}

func (f *fakeDevices) Acquire(_ context.Context, _ device.Constraints) (*device.CaptureSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquires++
	if f.err != nil {
		return nil, f.err
	}
	f.session = testCaptureSession()
	return f.session, nil
}

func (f *fakeDevices) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases++
	f.session = nil
}

type fakeEncoder struct {
	mu        sync.Mutex
	startErr  error
	stopErr   error
	active    bool
	fragments [][]byte
	starts    int
	stops     int
}

func (f *fakeEncoder) Start(_ context.Context, _ *device.CaptureSession) (*RecordingInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.active = true
	return &RecordingInfo{ID: "rec-1", Format: "webm/vp9"}, nil
}

func (f *fakeEncoder) Stop(_ context.Context) (*artifact.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	if !f.active {
		return nil, nil
	}
	f.active = false
	if f.stopErr != nil {
		return nil, f.stopErr
	}

	var data []byte
	for _, frag := range f.fragments {
		if len(frag) == 0 {
			continue
		}
		data = append(data, frag...)
	}
	return &artifact.Artifact{
		RecordingID: "rec-1",
		Data:        data,
		Format:      "webm/vp9",
		Ext:         "webm",
		CreatedAt:   time.Now(),
	}, nil
}

// blockingDevices parks Acquire until proceed is closed, to exercise
// commands issued while an acquisition is in flight.
type blockingDevices struct {
	fakeDevices
	entered chan struct{}
	proceed chan struct{}
}

func (b *blockingDevices) Acquire(ctx context.Context, c device.Constraints) (*device.CaptureSession, error) {
	b.entered <- struct{}{}
	<-b.proceed
	return b.fakeDevices.Acquire(ctx, c)
}

func testCaptureSession() *device.CaptureSession {
	m := device.NewManager(device.WithProber(staticProber{}))
	cs, _ := m.Acquire(context.Background(), device.DefaultConstraints())
	return cs
}

type staticProber struct{}

func (staticProber) Resolve(_ context.Context, c device.Constraints) (device.Resolved, error) {
	return device.Resolved{
		VideoDevice: "/dev/video0",
		AudioDevice: "default",
		Width:       c.IdealWidth,
		Height:      c.IdealHeight,
	}, nil
}

func newTestController(devices DeviceManager, encoder *fakeEncoder) *Controller {
	return NewController(devices, encoder, events.New(),
		WithTimer(NewElapsedTimer(nil, WithTickInterval(time.Hour))))
}

func TestFullRecordingFlow(t *testing.T) {
	devices := &fakeDevices{}
	// Fragments of sizes [10, 0, 20, 5, 0] must finalize to 35 bytes.
	encoder := &fakeEncoder{fragments: [][]byte{
		make([]byte, 10), {}, make([]byte, 20), make([]byte, 5), {},
	}}
	c := newTestController(devices, encoder)
	ctx := context.Background()

	if err := c.RequestCamera(ctx); err != nil {
		t.Fatalf("RequestCamera failed: %v", err)
	}
	if got := c.Snapshot(); got.State != "camera-ready" {
		t.Fatalf("Expected camera-ready, got %s", got.State)
	}

	if err := c.RequestRecord(ctx); err != nil {
		t.Fatalf("RequestRecord failed: %v", err)
	}
	snap := c.Snapshot()
	if snap.State != "recording" {
		t.Fatalf("Expected recording, got %s", snap.State)
	}
	if snap.ElapsedLabel != "00:00" {
		t.Errorf("Expected elapsed 00:00 at start, got %s", snap.ElapsedLabel)
	}
	if snap.HasArtifact {
		t.Error("No artifact may exist while recording")
	}

	if err := c.RequestStop(ctx); err != nil {
		t.Fatalf("RequestStop failed: %v", err)
	}
	snap = c.Snapshot()
	if snap.State != "recorded" {
		t.Fatalf("Expected recorded, got %s", snap.State)
	}
	if !snap.HasArtifact {
		t.Fatal("Expected artifact after stop")
	}

	art, err := c.RequestDownload()
	if err != nil {
		t.Fatalf("RequestDownload failed: %v", err)
	}
	if art.Size() != 35 {
		t.Errorf("Expected 35-byte artifact, got %d", art.Size())
	}
}

func TestCameraFailureStaysIdle(t *testing.T) {
	devices := &fakeDevices{err: &device.Error{Code: device.ErrCodePermissionDenied, Message: "Permission denied"}}
	c := newTestController(devices, &fakeEncoder{})

	err := c.RequestCamera(context.Background())
	if err == nil {
		t.Fatal("Expected device error")
	}
	if !IsDeviceError(err) {
		t.Errorf("Expected session device error, got %v", err)
	}

	snap := c.Snapshot()
	if snap.State != "idle" {
		t.Errorf("Expected idle after camera failure, got %s", snap.State)
	}
	if snap.ErrorMessage != "Camera Error: Permission denied" {
		t.Errorf("Unexpected error message: %q", snap.ErrorMessage)
	}
}

func TestEncoderFailureRevertsToCameraReady(t *testing.T) {
	devices := &fakeDevices{}
	encoder := &fakeEncoder{startErr: errors.New("unsupported configuration")}
	c := newTestController(devices, encoder)
	ctx := context.Background()

	if err := c.RequestCamera(ctx); err != nil {
		t.Fatalf("RequestCamera failed: %v", err)
	}
	err := c.RequestRecord(ctx)
	if err == nil {
		t.Fatal("Expected encoder error")
	}
	if !IsEncoderError(err) {
		t.Errorf("Expected session encoder error, got %v", err)
	}

	snap := c.Snapshot()
	if snap.State != "camera-ready" {
		t.Errorf("Expected camera-ready after encoder failure, got %s", snap.State)
	}
	if devices.releases != 0 {
		t.Error("Capture session must stay alive after encoder failure")
	}
}

func TestStopWithoutRecordingIsNoop(t *testing.T) {
	devices := &fakeDevices{}
	c := newTestController(devices, &fakeEncoder{})
	ctx := context.Background()

	if err := c.RequestStop(ctx); err != nil {
		t.Fatalf("Stop in idle must be a no-op, got %v", err)
	}
	if c.State() != StateIdle {
		t.Errorf("State changed by redundant stop: %v", c.State())
	}

	if err := c.RequestCamera(ctx); err != nil {
		t.Fatalf("RequestCamera failed: %v", err)
	}
	if err := c.RequestStop(ctx); err != nil {
		t.Fatalf("Stop in camera-ready must be a no-op, got %v", err)
	}
	if c.State() != StateCameraReady {
		t.Errorf("State changed by redundant stop: %v", c.State())
	}
}

func TestRerecordDiscardsArtifact(t *testing.T) {
	devices := &fakeDevices{}
	encoder := &fakeEncoder{fragments: [][]byte{make([]byte, 8)}}
	c := newTestController(devices, encoder)
	ctx := context.Background()

	if err := c.RequestCamera(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.RequestRecord(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.RequestStop(ctx); err != nil {
		t.Fatal(err)
	}
	if !c.Snapshot().HasArtifact {
		t.Fatal("Expected artifact after first recording")
	}

	// Re-record straight from Recorded.
	if err := c.RequestRecord(ctx); err != nil {
		t.Fatalf("Re-record failed: %v", err)
	}
	snap := c.Snapshot()
	if snap.State != "recording" {
		t.Fatalf("Expected recording, got %s", snap.State)
	}
	if snap.HasArtifact {
		t.Error("Prior artifact must be discarded during re-record")
	}
	if _, err := c.RequestDownload(); !errors.Is(err, ErrNoArtifact) {
		t.Errorf("Expected ErrNoArtifact during re-record, got %v", err)
	}
}

func TestDownloadWithoutArtifact(t *testing.T) {
	c := newTestController(&fakeDevices{}, &fakeEncoder{})

	if _, err := c.RequestDownload(); !errors.Is(err, ErrNoArtifact) {
		t.Errorf("Expected ErrNoArtifact, got %v", err)
	}
	if c.State() != StateIdle {
		t.Error("Download must not change state")
	}
}

func TestDownloadIsPureRead(t *testing.T) {
	devices := &fakeDevices{}
	encoder := &fakeEncoder{fragments: [][]byte{make([]byte, 4)}}
	c := newTestController(devices, encoder)
	ctx := context.Background()

	c.RequestCamera(ctx)
	c.RequestRecord(ctx)
	c.RequestStop(ctx)

	first, err := c.RequestDownload()
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	second, err := c.RequestDownload()
	if err != nil {
		t.Fatalf("Repeated download failed: %v", err)
	}
	if first != second {
		t.Error("Repeated downloads must return the same artifact")
	}
	if c.State() != StateRecorded {
		t.Error("Download must not change state")
	}
}

func TestTeardownFromEveryState(t *testing.T) {
	ctx := context.Background()

	setups := map[string]func(c *Controller){
		"idle":         func(*Controller) {},
		"camera-ready": func(c *Controller) { c.RequestCamera(ctx) },
		"recording": func(c *Controller) {
			c.RequestCamera(ctx)
			c.RequestRecord(ctx)
		},
		"recorded": func(c *Controller) {
			c.RequestCamera(ctx)
			c.RequestRecord(ctx)
			c.RequestStop(ctx)
		},
	}

	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			devices := &fakeDevices{}
			encoder := &fakeEncoder{fragments: [][]byte{make([]byte, 2)}}
			c := newTestController(devices, encoder)
			setup(c)

			c.Teardown(ctx)
			if c.State() != StateIdle {
				t.Errorf("Expected idle after teardown, got %v", c.State())
			}
			if c.Capture() != nil {
				t.Error("No capture session may survive teardown")
			}
			encoder.mu.Lock()
			active := encoder.active
			encoder.mu.Unlock()
			if active {
				t.Error("No recording session may survive teardown")
			}

			// Double teardown is safe.
			c.Teardown(ctx)
		})
	}
}

func TestTeardownDuringRecordingStopsEncoderBeforeRelease(t *testing.T) {
	devices := &fakeDevices{}
	encoder := &fakeEncoder{fragments: [][]byte{make([]byte, 16)}}
	c := newTestController(devices, encoder)
	ctx := context.Background()

	c.RequestCamera(ctx)
	c.RequestRecord(ctx)
	c.Teardown(ctx)

	if encoder.stops == 0 {
		t.Error("Encoder must be stopped during teardown")
	}
	if devices.releases != 1 {
		t.Errorf("Expected exactly one release, got %d", devices.releases)
	}
	// Stopping always finalizes captured data.
	if _, err := c.RequestDownload(); err != nil {
		t.Errorf("Artifact finalized during teardown should remain downloadable: %v", err)
	}
}

func TestTeardownInvalidatesPendingAcquire(t *testing.T) {
	devices := &blockingDevices{entered: make(chan struct{}, 1), proceed: make(chan struct{})}
	c := newTestController(devices, &fakeEncoder{})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- c.RequestCamera(ctx) }()
	<-devices.entered

	c.Teardown(ctx)
	close(devices.proceed)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RequestCamera failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for RequestCamera to return")
	}

	if c.State() != StateIdle {
		t.Errorf("Expected idle after teardown, got %v", c.State())
	}
	if c.Capture() != nil {
		t.Error("No capture session may survive teardown")
	}
	devices.mu.Lock()
	releases := devices.releases
	devices.mu.Unlock()
	if releases != 1 {
		t.Errorf("Expected the late-arriving session to be released, got %d releases", releases)
	}
}

func TestSecondCameraRequestDuringAcquireIsIgnored(t *testing.T) {
	devices := &blockingDevices{entered: make(chan struct{}, 1), proceed: make(chan struct{})}
	c := newTestController(devices, &fakeEncoder{})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- c.RequestCamera(ctx) }()
	<-devices.entered

	if err := c.RequestCamera(ctx); err != nil {
		t.Fatalf("Camera request during a pending acquire must be a no-op, got %v", err)
	}

	close(devices.proceed)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RequestCamera failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for RequestCamera to return")
	}

	devices.mu.Lock()
	acquires := devices.acquires
	devices.mu.Unlock()
	if acquires != 1 {
		t.Errorf("Expected exactly one acquire, got %d", acquires)
	}
	if c.State() != StateCameraReady {
		t.Errorf("Expected camera-ready, got %v", c.State())
	}
}

func TestRecordWithoutCameraIsNoop(t *testing.T) {
	encoder := &fakeEncoder{}
	c := newTestController(&fakeDevices{}, encoder)

	if err := c.RequestRecord(context.Background()); err != nil {
		t.Fatalf("Expected tolerated no-op, got %v", err)
	}
	if encoder.starts != 0 {
		t.Error("Encoder must not start without a capture session")
	}
	if c.State() != StateIdle {
		t.Errorf("State changed: %v", c.State())
	}
}

func TestStateChangeEventsPublished(t *testing.T) {
	bus := events.New()
	received := make(chan events.StateChangedEvent, 8)
	unsub := bus.Subscribe(func(e events.StateChangedEvent) {
		received <- e
	})
	defer unsub()

	c := NewController(&fakeDevices{}, &fakeEncoder{}, bus,
		WithTimer(NewElapsedTimer(nil, WithTickInterval(time.Hour))))

	if err := c.RequestCamera(context.Background()); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-received:
		if e.From != "idle" || e.To != "camera-ready" {
			t.Errorf("Unexpected transition event: %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for state change event")
	}
}
