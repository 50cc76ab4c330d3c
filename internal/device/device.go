// Package device acquires and releases the audio+video capture stream.
// At most one CaptureSession exists at a time; the session lifecycle
// coordinator owns the ordering between acquisition, recording, and
// release.
package device

import (
	"fmt"
	"time"
)

// Error codes for device operations.
const (
	ErrCodePermissionDenied = "PERMISSION_DENIED"
	ErrCodeNoDevice         = "NO_DEVICE"
	ErrCodeDeviceBusy       = "DEVICE_BUSY"
	ErrCodeNoBackend        = "NO_BACKEND"
)

// Error represents a device acquisition error with a code.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Info describes one enumerable video capture node.
type Info struct {
	Path       string `json:"path" example:"/dev/video0" doc:"Device node path"`
	Name       string `json:"name" example:"integrated camera" doc:"Card name from the driver"`
	Accessible bool   `json:"accessible" example:"true" doc:"Whether the node can be opened"`
}

// Facing expresses the camera orientation preference.
type Facing string

// Facing values.
const (
	FacingUser        Facing = "user"
	FacingEnvironment Facing = "environment"
)

// Constraints describe the requested capture stream.
type Constraints struct {
	IdealWidth  int
	IdealHeight int
	Facing      Facing
	Audio       bool
	// DeviceHint pins acquisition to a specific video node ("" = auto).
	DeviceHint string
	// AudioDevice is the ALSA device used when Audio is set.
	AudioDevice string
}

// DefaultConstraints returns the standard presentation-recording
// constraints: 1280x720 ideal, front-facing preference, audio on.
func DefaultConstraints() Constraints {
	return Constraints{
		IdealWidth:  1280,
		IdealHeight: 720,
		Facing:      FacingUser,
		Audio:       true,
		AudioDevice: "default",
	}
}

// TrackKind distinguishes media tracks within a capture session.
type TrackKind string

// Track kinds.
const (
	TrackVideo TrackKind = "video"
	TrackAudio TrackKind = "audio"
)

// Track is one live media track of a capture session.
type Track struct {
	Kind   TrackKind
	Label  string
	active bool
}

// Active reports whether the track is still live.
func (t *Track) Active() bool {
	return t.active
}

// stop marks the track as no longer live.
func (t *Track) stop() {
	t.active = false
}

// CaptureSession is an acquired audio+video device stream. The stream
// handle is the resolved device node pair; PreviewAddr is the side
// channel the presentation layer binds its preview surface to.
type CaptureSession struct {
	ID          string
	VideoDevice string
	AudioDevice string
	Width       int
	Height      int
	Tracks      []*Track
	PreviewAddr string
	AcquiredAt  time.Time
}

// Alive reports whether any track of the session is still active.
func (cs *CaptureSession) Alive() bool {
	if cs == nil {
		return false
	}
	for _, t := range cs.Tracks {
		if t.Active() {
			return true
		}
	}
	return false
}
