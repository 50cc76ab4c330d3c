package pipeline

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/tisianewembou/NextWavePt3/internal/logging"
)

// LogParser parses a subprocess log line and returns the log level and
// message. Used to lift FFmpeg's own levels into structured logging.
type LogParser func(line string) (level, msg string)

// Runner manages the lifecycle of one capture subprocess. Stderr is
// line-scanned through the configured LogParser; stdout is either
// line-scanned the same way or, when a sink is set, copied raw so the
// encoded byte stream passes through untouched.
type Runner struct {
	id            string
	command       string
	cmd           *exec.Cmd
	logger        logging.Logger
	processLogger logging.Logger
	logParser     LogParser
	stdoutSink    io.WriteCloser

	mu       sync.Mutex
	started  bool
	done     chan struct{}
	exitCode int

	outputDone      chan struct{}
	processDone     chan error
	gracefulTimeout time.Duration
	killTimeout     time.Duration
}

// NewRunner creates a runner for the given command string. The command
// is parsed shell-style (quotes and backslash escapes honored) but no
// shell is involved.
func NewRunner(id, command string, logger logging.Logger) *Runner {
	return &Runner{
		id:              id,
		command:         command,
		logger:          logger,
		done:            make(chan struct{}),
		gracefulTimeout: 5 * time.Second,
		killTimeout:     5 * time.Second,
	}
}

// SetLogParser sets a dedicated logger and level parser for subprocess
// output (e.g. module="ffmpeg").
func (r *Runner) SetLogParser(logger logging.Logger, parser LogParser) {
	r.processLogger = logger
	r.logParser = parser
}

// SetStdoutSink routes raw stdout bytes to w instead of line-scanning
// them. The sink is closed when stdout reaches EOF. Must be called
// before Start.
func (r *Runner) SetStdoutSink(w io.WriteCloser) {
	r.stdoutSink = w
}

// Command returns the command string the runner was built with.
func (r *Runner) Command() string {
	return r.command
}

// Start launches the subprocess. It returns immediately; use Done and
// ExitCode to observe completion, or Stop to end it.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("runner %s already started", r.id)
	}

	args, err := parseCommand(r.command)
	if err != nil {
		r.logger.Error("Failed to parse command", "error", err)
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("empty command")
	}

	r.cmd = exec.Command(args[0], args[1:]...)
	r.cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := r.cmd.StdoutPipe()
	if err != nil {
		r.logger.Error("Failed to create stdout pipe", "error", err)
		return err
	}
	stderr, err := r.cmd.StderrPipe()
	if err != nil {
		r.logger.Error("Failed to create stderr pipe", "error", err)
		return err
	}

	if err := r.cmd.Start(); err != nil {
		r.logger.Error("Failed to start process", "error", err, "command", r.command)
		return err
	}
	r.started = true
	r.logger.Info("Process started", "id", r.id, "pid", r.cmd.Process.Pid, "command", r.command)

	r.outputDone = make(chan struct{}, 2)
	go func() {
		if r.stdoutSink != nil {
			if _, err := io.Copy(r.stdoutSink, stdout); err != nil {
				r.logger.Warn("Error draining stdout", "error", err)
			}
			if err := r.stdoutSink.Close(); err != nil {
				r.logger.Warn("Error closing stdout sink", "error", err)
			}
		} else {
			r.streamOutput(stdout, "stdout")
		}
		r.outputDone <- struct{}{}
	}()
	go func() {
		r.streamOutput(stderr, "stderr")
		r.outputDone <- struct{}{}
	}()

	r.processDone = make(chan error, 1)
	go func() {
		err := r.cmd.Wait()
		<-r.outputDone
		<-r.outputDone
		r.mu.Lock()
		r.exitCode = exitCodeFromError(err)
		r.mu.Unlock()
		if err != nil && exitCodeFromError(err) == 1 {
			r.logger.Error("Process exited with error", "error", err)
		}
		r.processDone <- err
		close(r.done)
	}()
	return nil
}

// Done is closed once the subprocess has exited and its output streams
// are drained.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// ExitCode reports the subprocess exit code. Only meaningful after
// Done is closed.
func (r *Runner) ExitCode() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exitCode
}

// Stop ends the subprocess: SIGINT first, a kill after the graceful
// timeout. It blocks until the process has exited and returns the exit
// code. Safe to call on a runner that already exited.
func (r *Runner) Stop() int {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		return 0
	}

	select {
	case <-r.done:
		return r.ExitCode()
	default:
	}

	r.sendStopSignal()

	select {
	case <-r.done:
		return r.ExitCode()
	case <-time.After(r.gracefulTimeout):
		r.logger.Warn("Graceful shutdown timeout, forcing kill", "id", r.id, "timeout", r.gracefulTimeout)
		if r.cmd.Process != nil {
			if err := r.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				r.logger.Error("Failed to kill process", "error", err)
			}
		}
		select {
		case <-r.done:
		case <-time.After(r.killTimeout):
			r.logger.Error("Process did not exit after kill signal", "id", r.id)
		}
		return 137
	}
}

// sendStopSignal sends SIGINT to the subprocess without waiting.
// FFmpeg treats SIGINT as "finish writing and exit", which is what
// finalizing a recording needs.
func (r *Runner) sendStopSignal() {
	if r.cmd == nil || r.cmd.Process == nil {
		return
	}
	r.logger.Info("Sending SIGINT to process", "id", r.id, "pid", r.cmd.Process.Pid)
	if err := r.cmd.Process.Signal(syscall.SIGINT); err != nil {
		r.logger.Warn("Failed to send SIGINT", "error", err)
	}
}

// streamOutput line-scans subprocess output into structured logs.
func (r *Runner) streamOutput(reader io.Reader, source string) {
	scanner := bufio.NewScanner(reader)

	logger := r.processLogger
	if logger == nil {
		logger = r.logger
	}

	for scanner.Scan() {
		line := scanner.Text()

		level, msg := "info", line
		if r.logParser != nil {
			level, msg = r.logParser(line)
		}

		switch level {
		case "fatal", "error":
			logger.Error(msg)
		case "warning":
			logger.Warn(msg)
		case "debug", "trace", "verbose":
			logger.Debug(msg)
		default:
			logger.Info(msg)
		}
	}

	if err := scanner.Err(); err != nil {
		r.logger.Warn("Error reading output", "source", source, "error", err)
	}
}

// exitCodeFromError extracts an exit code from a Wait error.
// Returns 0 for nil, the exit code for ExitError, or 1 otherwise.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

// parseCommand parses a command string into arguments.
// Handles quoted strings and basic escaping.
func parseCommand(command string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	command = strings.TrimSpace(command)
	runes := []rune(command)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			switch {
			case !inQuote:
				inQuote = true
				quoteChar = r
			case r == quoteChar:
				inQuote = false
				quoteChar = 0
			default:
				current.WriteRune(r)
			}
		case r == ' ' && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		case r == '\\' && i+1 < len(runes):
			i++ // skip the backslash
			current.WriteRune(runes[i])
		default:
			current.WriteRune(r)
		}
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}

	if inQuote {
		return nil, fmt.Errorf("unclosed quote in command")
	}

	return args, nil
}
