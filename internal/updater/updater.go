// Package updater keeps the recorder binary current from GitHub
// releases. Applying an update replaces the executable and exits;
// systemd brings the new version up.
package updater

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/creativeprojects/go-selfupdate"

	"github.com/tisianewembou/NextWavePt3/internal/logging"
	"github.com/tisianewembou/NextWavePt3/internal/version"
)

// State represents the current phase of the update process.
type State string

// Update states.
const (
	StateIdle       State = "idle"
	StateChecking   State = "checking"
	StateAvailable  State = "available"
	StateApplying   State = "applying"
	StateRestarting State = "restarting"
	StateError      State = "error"
)

// UpdateInfo describes the latest known release.
type UpdateInfo struct {
	CurrentVersion  string    `json:"current_version"`
	LatestVersion   string    `json:"latest_version"`
	ReleaseNotes    string    `json:"release_notes,omitempty"`
	ReleaseURL      string    `json:"release_url,omitempty"`
	PublishedAt     time.Time `json:"published_at"`
	UpdateAvailable bool      `json:"update_available"`
}

// Status is the current updater state for the API surface.
type Status struct {
	State          State      `json:"state"`
	CurrentVersion string     `json:"current_version"`
	TargetVersion  string     `json:"target_version,omitempty"`
	Error          string     `json:"error,omitempty"`
	LastChecked    *time.Time `json:"last_checked,omitempty"`
}

// Options configures the update service.
type Options struct {
	Repository string // GitHub repo slug, e.g. "tisianewembou/NextWavePt3"
	Prerelease bool
}

// Service checks for and applies binary updates.
type Service struct {
	repository selfupdate.Repository
	updater    *selfupdate.Updater
	logger     logging.Logger

	enabled        bool
	disabledReason string

	mu          sync.RWMutex
	state       State
	latest      *selfupdate.Release
	lastChecked *time.Time
	lastError   error
}

// NewService creates the update service. The service always comes
// back usable: when the executable's directory is not writable or the
// release source cannot be constructed it is returned disabled rather
// than failing startup.
func NewService(opts Options) *Service {
	logger := logging.GetLogger("updater")

	disabled := func(reason string) *Service {
		logger.Warn("Update service disabled", "reason", reason)
		return &Service{state: StateIdle, disabledReason: reason, logger: logger}
	}

	if ok, reason := checkWritePermission(); !ok {
		return disabled(reason)
	}

	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return disabled(fmt.Sprintf("failed to create GitHub source: %v", err))
	}
	up, err := selfupdate.NewUpdater(selfupdate.Config{
		Source:     source,
		Prerelease: opts.Prerelease,
	})
	if err != nil {
		return disabled(fmt.Sprintf("failed to create updater: %v", err))
	}

	return &Service{
		repository: selfupdate.ParseSlug(opts.Repository),
		updater:    up,
		state:      StateIdle,
		enabled:    true,
		logger:     logger,
	}
}

func checkWritePermission() (bool, string) {
	exe, err := os.Executable()
	if err != nil {
		return false, fmt.Sprintf("failed to get executable path: %v", err)
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return false, fmt.Sprintf("failed to resolve symlinks: %v", err)
	}
	dir := filepath.Dir(exe)

	tmp := filepath.Join(dir, ".nextwave.update.test")
	f, err := os.Create(tmp)
	if err != nil {
		return false, fmt.Sprintf("no write permission to %s: %v", dir, err)
	}
	f.Close()
	os.Remove(tmp)
	return true, ""
}

// IsEnabled reports whether updates can be applied.
func (s *Service) IsEnabled() bool { return s.enabled }

// DisabledReason returns why updates are disabled, "" when enabled.
func (s *Service) DisabledReason() string { return s.disabledReason }

// CheckForUpdate queries GitHub for the latest release and compares it
// against the running version. Nothing is downloaded.
func (s *Service) CheckForUpdate(ctx context.Context) (*UpdateInfo, error) {
	if !s.enabled {
		return nil, newError(ErrCodeDisabled, s.disabledReason, nil)
	}
	if !s.transitionTo(StateChecking, StateIdle, StateAvailable, StateError) {
		return nil, newError(ErrCodeInvalidState,
			fmt.Sprintf("cannot check for updates in state %s", s.getState()), nil)
	}

	current := version.Version

	release, found, err := s.updater.DetectLatest(ctx, s.repository)

	now := time.Now()
	s.mu.Lock()
	s.lastChecked = &now
	s.mu.Unlock()

	if err != nil {
		s.setError(err)
		return nil, newError(ErrCodeCheckFailed, "failed to check for updates", err)
	}
	if !found {
		s.setError(fmt.Errorf("repository has no releases"))
		return nil, newError(ErrCodeCheckFailed, "repository has no releases", nil)
	}

	// A dev build is always considered outdated.
	if current != "dev" && !release.GreaterThan(current) {
		s.transitionTo(StateIdle)
		return &UpdateInfo{
			CurrentVersion:  current,
			LatestVersion:   release.Version(),
			UpdateAvailable: false,
		}, nil
	}

	s.mu.Lock()
	s.latest = release
	s.mu.Unlock()
	s.transitionTo(StateAvailable)

	return &UpdateInfo{
		CurrentVersion:  current,
		LatestVersion:   release.Version(),
		ReleaseNotes:    release.ReleaseNotes,
		ReleaseURL:      release.URL,
		PublishedAt:     release.PublishedAt,
		UpdateAvailable: true,
	}, nil
}

// ApplyUpdate downloads the latest release over the current binary and
// schedules a restart. Checks first when no release is known yet.
func (s *Service) ApplyUpdate(ctx context.Context) error {
	if !s.enabled {
		return newError(ErrCodeDisabled, s.disabledReason, nil)
	}

	if s.getState() == StateIdle || s.getState() == StateError {
		info, err := s.CheckForUpdate(ctx)
		if err != nil {
			return err
		}
		if !info.UpdateAvailable {
			return newError(ErrCodeNoUpdate, "no update available", nil)
		}
	}

	if !s.transitionTo(StateApplying, StateAvailable) {
		return newError(ErrCodeInvalidState,
			fmt.Sprintf("cannot apply update in state %s", s.getState()), nil)
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		s.setError(err)
		return newError(ErrCodeApplyFailed, "failed to get executable path", err)
	}

	s.mu.RLock()
	release := s.latest
	s.mu.RUnlock()

	if err := s.updater.UpdateTo(ctx, release, exe); err != nil {
		s.setError(err)
		return newError(ErrCodeApplyFailed, "failed to apply update", err)
	}

	s.transitionTo(StateRestarting)
	s.logger.Info("Update applied, triggering restart", "version", release.Version())

	// Give the HTTP response time to flush before the process exits.
	go func() {
		time.Sleep(500 * time.Millisecond)
		s.triggerRestart()
	}()
	return nil
}

// GetStatus returns the current updater state.
func (s *Service) GetStatus() *Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := &Status{
		State:          s.state,
		CurrentVersion: version.Version,
		LastChecked:    s.lastChecked,
	}
	if s.latest != nil {
		status.TargetVersion = s.latest.Version()
	}
	if s.lastError != nil {
		status.Error = s.lastError.Error()
	}
	return status
}

func (s *Service) triggerRestart() {
	s.logger.Info("Sending SIGTERM for restart")
	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		s.logger.Error("Failed to signal restart", "error", err)
	}
}

func (s *Service) getState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// transitionTo moves to the target state if the current state is one
// of the allowed states (or no states are given).
func (s *Service) transitionTo(target State, allowed ...State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(allowed) > 0 {
		ok := false
		for _, a := range allowed {
			if s.state == a {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	s.state = target
	if target != StateError {
		s.lastError = nil
	}
	return true
}

func (s *Service) setError(err error) {
	s.mu.Lock()
	s.state = StateError
	s.lastError = err
	s.mu.Unlock()
}
