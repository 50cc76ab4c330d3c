package encoder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tisianewembou/NextWavePt3/internal/device"
)

// scriptedStream feeds fixed chunks to the read loop, one per Read,
// then blocks until closed.
type scriptedStream struct {
	mu       sync.Mutex
	chunks   [][]byte
	pos      int
	failWith error // returned after the chunks instead of blocking
	closed   chan struct{}
}

func newScriptedStream(chunks ...[]byte) *scriptedStream {
	return &scriptedStream{chunks: chunks, closed: make(chan struct{})}
}

func (s *scriptedStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	if s.pos < len(s.chunks) {
		n := copy(p, s.chunks[s.pos])
		s.pos++
		s.mu.Unlock()
		return n, nil
	}
	failWith := s.failWith
	s.mu.Unlock()
	if failWith != nil {
		return 0, failWith
	}
	<-s.closed
	return 0, io.EOF
}

func (s *scriptedStream) Pos() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

func (s *scriptedStream) Close() error {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	return nil
}

type fakeSource struct {
	stream  io.ReadCloser
	openErr error
	opened  int
}

func (f *fakeSource) Open(_ context.Context, _ *device.CaptureSession, _ Format) (io.ReadCloser, error) {
	f.opened++
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.stream, nil
}

type staticProbe struct{ vp9 bool }

func (p staticProbe) Supports(encoder string) bool {
	return encoder == "libvpx-vp9" && p.vp9
}

func testCapture() *device.CaptureSession {
	return &device.CaptureSession{ID: "cap-1", VideoDevice: "/dev/video0", Width: 1280, Height: 720}
}

// waitForFragments polls until the recorder has consumed the scripted
// chunks, failing the test on timeout.
func waitForFragments(t *testing.T, stream *scriptedStream, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if stream.Pos() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("read loop consumed %d chunks, want %d", stream.Pos(), want)
}

func TestRecorderPreservesFragmentOrder(t *testing.T) {
	stream := newScriptedStream([]byte("aaa"), []byte("bb"), []byte("cccc"))
	rec := NewRecorder(&fakeSource{stream: stream}, WithFormat(FormatWebMVP9))

	info, err := rec.Start(context.Background(), testCapture())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if info.Format != "webm/vp9" {
		t.Errorf("Format = %q, want webm/vp9", info.Format)
	}
	waitForFragments(t, stream, 3)

	art, err := rec.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !bytes.Equal(art.Data, []byte("aaabbcccc")) {
		t.Errorf("Data = %q, want aaabbcccc", art.Data)
	}
	if art.RecordingID != info.ID {
		t.Errorf("RecordingID = %q, want %q", art.RecordingID, info.ID)
	}
	if art.Ext != "webm" || art.MimeType != "video/webm" {
		t.Errorf("artifact container = (%q, %q)", art.Ext, art.MimeType)
	}
}

func TestRecorderStopWithoutRecording(t *testing.T) {
	rec := NewRecorder(&fakeSource{}, WithFormat(FormatWebM))
	art, err := rec.Stop(context.Background())
	if art != nil || err != nil {
		t.Errorf("Stop = (%v, %v), want (nil, nil)", art, err)
	}
}

func TestRecorderStartFailure(t *testing.T) {
	rec := NewRecorder(&fakeSource{openErr: errors.New("pipeline refused")}, WithFormat(FormatWebM))
	if _, err := rec.Start(context.Background(), testCapture()); err == nil {
		t.Fatal("Start should fail when the source cannot open")
	}
	if rec.Recording() {
		t.Error("Recording() = true after failed Start")
	}
}

func TestRecorderRejectsConcurrentStart(t *testing.T) {
	stream := newScriptedStream()
	rec := NewRecorder(&fakeSource{stream: stream}, WithFormat(FormatWebM))
	if _, err := rec.Start(context.Background(), testCapture()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer rec.Stop(context.Background())

	_, err := rec.Start(context.Background(), testCapture())
	var encErr *Error
	if !errors.As(err, &encErr) || encErr.Code != ErrCodeBusy {
		t.Fatalf("second Start = %v, want %s", err, ErrCodeBusy)
	}
}

func TestRecorderSurfacesStreamFailure(t *testing.T) {
	stream := newScriptedStream([]byte("partial"))
	stream.failWith = errors.New("pipe burst")

	failed := make(chan error, 1)
	rec := NewRecorder(&fakeSource{stream: stream},
		WithFormat(FormatWebM),
		WithFailureHandler(func(err error) { failed <- err }))

	if _, err := rec.Start(context.Background(), testCapture()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-failed:
	case <-time.After(2 * time.Second):
		t.Fatal("failure handler was not invoked")
	}

	if _, err := rec.Stop(context.Background()); err == nil {
		t.Fatal("Stop should surface the stream failure")
	}
}

func TestRecorderPrematureEOFIsFailure(t *testing.T) {
	stream := newScriptedStream([]byte("head"))
	stream.failWith = io.EOF

	failed := make(chan error, 1)
	rec := NewRecorder(&fakeSource{stream: stream},
		WithFormat(FormatWebM),
		WithFailureHandler(func(err error) { failed <- err }))

	if _, err := rec.Start(context.Background(), testCapture()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case err := <-failed:
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("failure = %v, want unexpected EOF", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("failure handler was not invoked")
	}
}

func TestRecorderStopTimeout(t *testing.T) {
	// A stream whose Close does not unblock Read.
	stream := &scriptedStream{closed: make(chan struct{})}
	rec := NewRecorder(&fakeSource{stream: stuckStream{stream}}, WithFormat(FormatWebM))

	if _, err := rec.Start(context.Background(), testCapture()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := rec.Stop(ctx); err == nil {
		t.Fatal("Stop should fail when the stream never drains")
	}
	stream.Close()
}

// stuckStream ignores Close so the read loop never observes EOF.
type stuckStream struct{ *scriptedStream }

func (stuckStream) Close() error { return nil }

func TestNegotiate(t *testing.T) {
	if got := Negotiate(staticProbe{vp9: true}); got.Name != "webm/vp9" {
		t.Errorf("Negotiate with VP9 = %q, want webm/vp9", got.Name)
	}
	if got := Negotiate(staticProbe{vp9: false}); got.Name != "webm" {
		t.Errorf("Negotiate without VP9 = %q, want webm", got.Name)
	}
}
