// Package encoder turns the capture pipeline's encoded byte stream
// into finalized recording artifacts. Fragments are appended strictly
// in arrival order and empty reads are dropped, so the artifact is
// always the exact concatenation of what the pipeline produced.
package encoder

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tisianewembou/NextWavePt3/internal/artifact"
	"github.com/tisianewembou/NextWavePt3/internal/device"
	"github.com/tisianewembou/NextWavePt3/internal/logging"
	"github.com/tisianewembou/NextWavePt3/internal/metrics"
	"github.com/tisianewembou/NextWavePt3/internal/session"
)

const fragmentReadSize = 32 * 1024

// FragmentSource produces the encoded byte stream for one recording.
// Closing the returned stream finalizes the recording; remaining bytes
// stay readable until EOF.
type FragmentSource interface {
	Open(ctx context.Context, capture *device.CaptureSession, format Format) (io.ReadCloser, error)
}

// Recorder implements the session encoder on top of a FragmentSource.
// One recording at a time.
type Recorder struct {
	source    FragmentSource
	probe     CapabilityProbe
	onFailure func(error)
	logger    logging.Logger

	mu     sync.Mutex
	active *recording
	format *Format // negotiated lazily, then pinned
}

type recording struct {
	id        string
	format    Format
	stream    io.ReadCloser
	startedAt time.Time
	onFailure func(error)

	mu        sync.Mutex
	fragments [][]byte
	finishing bool
	readErr   error

	done chan struct{}
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithProbe overrides the encoder capability probe.
func WithProbe(probe CapabilityProbe) RecorderOption {
	return func(r *Recorder) { r.probe = probe }
}

// WithFailureHandler installs a callback invoked when the fragment
// stream fails mid-recording, before Stop was requested. The handler
// runs on its own goroutine and may call Stop.
func WithFailureHandler(handler func(error)) RecorderOption {
	return func(r *Recorder) { r.onFailure = handler }
}

// WithFormat pins the recording format, skipping negotiation.
func WithFormat(format Format) RecorderOption {
	return func(r *Recorder) { r.format = &format }
}

// NewRecorder creates a recorder reading from the given source.
func NewRecorder(source FragmentSource, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		source: source,
		logger: logging.GetLogger("encoder"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start negotiates the format, opens the fragment stream, and begins
// accumulating fragments.
func (r *Recorder) Start(ctx context.Context, capture *device.CaptureSession) (*session.RecordingInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return nil, newError(ErrCodeBusy, "Recording already in progress", nil)
	}

	if r.format == nil {
		format := Negotiate(r.probe)
		r.format = &format
		r.logger.Info("Negotiated recording format", "format", format.Name)
	}
	format := *r.format

	stream, err := r.source.Open(ctx, capture, format)
	if err != nil {
		metrics.EncoderError()
		return nil, newError(ErrCodeStart, "Could not start recording", err)
	}

	rec := &recording{
		id:        uuid.NewString(),
		format:    format,
		stream:    stream,
		startedAt: time.Now().UTC(),
		onFailure: r.onFailure,
		done:      make(chan struct{}),
	}
	r.active = rec
	go rec.readLoop()

	r.logger.Info("Recording started", "id", rec.id, "format", format.Name)
	return &session.RecordingInfo{ID: rec.id, Format: format.Name}, nil
}

// Stop finalizes the active recording and returns its artifact. With
// no active recording it returns (nil, nil).
func (r *Recorder) Stop(ctx context.Context) (*artifact.Artifact, error) {
	r.mu.Lock()
	rec := r.active
	r.active = nil
	r.mu.Unlock()

	if rec == nil {
		return nil, nil
	}

	rec.mu.Lock()
	rec.finishing = true
	rec.mu.Unlock()

	// Closing the stream tells the pipeline to flush and exit; the
	// read loop drains the tail and then observes EOF.
	if err := rec.stream.Close(); err != nil {
		r.logger.Warn("Error closing fragment stream", "error", err)
	}

	select {
	case <-rec.done:
	case <-ctx.Done():
		metrics.EncoderError()
		return nil, newError(ErrCodeStream, "Recording did not finalize in time", ctx.Err())
	}

	rec.mu.Lock()
	readErr := rec.readErr
	data := concat(rec.fragments)
	count := len(rec.fragments)
	rec.mu.Unlock()

	if readErr != nil {
		metrics.EncoderError()
		r.logger.Error("Recording stream failed", "id", rec.id, "error", readErr)
		return nil, newError(ErrCodeStream, "Recording stream failed", readErr)
	}

	art := &artifact.Artifact{
		RecordingID: rec.id,
		Data:        data,
		Format:      rec.format.Name,
		Ext:         rec.format.Ext,
		MimeType:    rec.format.MimeType,
		CreatedAt:   time.Now().UTC(),
	}
	r.logger.Info("Recording finalized",
		"id", rec.id, "fragments", count, "bytes", art.Size(),
		"duration", time.Since(rec.startedAt).Round(time.Second))
	return art, nil
}

// Recording reports whether a recording is active.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// readLoop appends fragments as the pipeline delivers them. The
// pipeline flushes every packet, so fragments arrive promptly and no
// partial data is ever discarded.
func (rec *recording) readLoop() {
	defer close(rec.done)
	buf := make([]byte, fragmentReadSize)

	for {
		n, err := rec.stream.Read(buf)
		if n > 0 {
			fragment := make([]byte, n)
			copy(fragment, buf[:n])
			rec.mu.Lock()
			rec.fragments = append(rec.fragments, fragment)
			rec.mu.Unlock()
			metrics.FragmentAppended(n)
		}
		if err != nil {
			rec.mu.Lock()
			if err != io.EOF {
				rec.readErr = err
			} else if !rec.finishing {
				// EOF before Stop means the pipeline died under us.
				rec.readErr = io.ErrUnexpectedEOF
			}
			readErr, finishing := rec.readErr, rec.finishing
			rec.mu.Unlock()
			if readErr != nil && !finishing && rec.onFailure != nil {
				// Off this goroutine: the handler's stop path waits for
				// the done channel this loop closes on return.
				go rec.onFailure(readErr)
			}
			return
		}
	}
}

func concat(fragments [][]byte) []byte {
	var buf bytes.Buffer
	for _, f := range fragments {
		buf.Write(f)
	}
	return buf.Bytes()
}
