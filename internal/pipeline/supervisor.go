package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/tisianewembou/NextWavePt3/internal/device"
	"github.com/tisianewembou/NextWavePt3/internal/logging"
)

// Supervisor owns the capture pipeline. The camera tolerates exactly
// one reader, so at most one subprocess runs at a time: preview-only
// between recordings, the tee pipeline while one is active. Swapping
// modes restarts the subprocess with a new command.
type Supervisor struct {
	logger   logging.Logger
	ffLogger logging.Logger
	fps      int

	mu        sync.Mutex
	current   *Runner
	capture   *device.CaptureSession
	recording bool
	stopped   bool
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithFPS overrides the capture frame rate.
func WithFPS(fps int) SupervisorOption {
	return func(s *Supervisor) { s.fps = fps }
}

// NewSupervisor creates a pipeline supervisor. FFmpeg output is logged
// under its own module so its level can be tuned independently.
func NewSupervisor(opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		logger:   logging.GetLogger("pipeline"),
		ffLogger: logging.GetLogger("ffmpeg"),
		fps:      30,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartPreview launches the preview-only pipeline for the given capture
// session, replacing whatever pipeline is running.
func (s *Supervisor) StartPreview(capture *device.CaptureSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return fmt.Errorf("supervisor stopped")
	}

	s.stopCurrentLocked()
	s.capture = capture
	s.recording = false

	runner := NewRunner("preview", BuildPreviewCommand(capture, s.fps), s.logger)
	runner.SetLogParser(s.ffLogger, ParseFFmpegLevel)
	if err := runner.Start(); err != nil {
		return err
	}
	s.current = runner
	return nil
}

// StartRecord swaps the preview pipeline for the recording pipeline and
// returns the encoded byte stream. Closing the stream finalizes the
// recording (the subprocess flushes and exits, the reader drains to
// EOF) and brings the preview pipeline back.
func (s *Supervisor) StartRecord(ctx context.Context, capture *device.CaptureSession, spec RecordSpec) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, fmt.Errorf("supervisor stopped")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	s.stopCurrentLocked()
	s.capture = capture

	spec.FPS = s.fps
	pr, pw := io.Pipe()
	runner := NewRunner("record", BuildRecordCommand(capture, spec), s.logger)
	runner.SetLogParser(s.ffLogger, ParseFFmpegLevel)
	runner.SetStdoutSink(pw)
	if err := runner.Start(); err != nil {
		pr.Close()
		return nil, err
	}
	s.current = runner
	s.recording = true

	// A crashed subprocess closes the pipe on its own; the fragment
	// reader sees EOF before Close was asked for and reports the
	// failure. All that is left to do here is bring the preview back.
	go func() {
		<-runner.Done()
		s.mu.Lock()
		crashed := s.current == runner && s.recording
		s.mu.Unlock()
		if crashed {
			s.logger.Error("Recording pipeline exited unexpectedly", "exit_code", runner.ExitCode())
			s.resumePreview(runner)
		}
	}()

	return &recordStream{pr: pr, sup: s, runner: runner}, nil
}

// Recording reports whether the recording pipeline is active.
func (s *Supervisor) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// Stop tears the pipeline down entirely. Used on device release and on
// shutdown.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCurrentLocked()
	s.capture = nil
	s.recording = false
}

// Shutdown stops the pipeline and refuses further starts.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCurrentLocked()
	s.capture = nil
	s.recording = false
	s.stopped = true
}

func (s *Supervisor) stopCurrentLocked() {
	if s.current == nil {
		return
	}
	s.current.Stop()
	s.current = nil
}

// resumePreview restores the preview pipeline after the recording
// pipeline ended, whether by request or by crash.
func (s *Supervisor) resumePreview(finished *Runner) {
	s.mu.Lock()
	if s.current != finished || s.stopped {
		s.mu.Unlock()
		return
	}
	s.current = nil
	s.recording = false
	capture := s.capture
	s.mu.Unlock()

	if capture == nil || !capture.Alive() {
		return
	}
	if err := s.StartPreview(capture); err != nil {
		s.logger.Error("Failed to resume preview pipeline", "error", err)
	}
}

// recordStream is the encoded byte stream of one recording. Close stops
// the subprocess gracefully; pending bytes remain readable until EOF.
type recordStream struct {
	pr        *io.PipeReader
	sup       *Supervisor
	runner    *Runner
	closeOnce sync.Once
}

func (rs *recordStream) Read(p []byte) (int, error) {
	return rs.pr.Read(p)
}

func (rs *recordStream) Close() error {
	rs.closeOnce.Do(func() {
		rs.sup.mu.Lock()
		if rs.sup.current == rs.runner {
			rs.sup.recording = false
		}
		rs.sup.mu.Unlock()
		rs.runner.Stop()
		rs.sup.resumePreview(rs.runner)
	})
	return nil
}
