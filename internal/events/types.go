package events

// Event type constants for kelindar/event.
const (
	TypeStateChanged uint32 = iota + 1
	TypeElapsedTick
	TypeCameraAcquired
	TypeCameraError
	TypeRecordingStarted
	TypeRecordingStopped
	TypeEncoderError
	TypeArtifactSaved
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// StateChangedEvent is published on every session state transition.
type StateChangedEvent struct {
	From      string `json:"from" example:"camera-ready" doc:"Previous session state"`
	To        string `json:"to" example:"recording" doc:"New session state"`
	Status    string `json:"status" example:"Recording..." doc:"Human-readable status message"`
	Timestamp string `json:"timestamp" example:"2026-03-10T10:30:00Z" doc:"Transition timestamp"`
}

// Type returns the event type identifier for StateChangedEvent.
func (e StateChangedEvent) Type() uint32 { return TypeStateChanged }

// ElapsedTickEvent carries the formatted elapsed recording time,
// published once per second while recording.
type ElapsedTickEvent struct {
	Label   string `json:"label" example:"01:23" doc:"Elapsed time formatted as MM:SS"`
	Seconds int64  `json:"seconds" example:"83" doc:"Elapsed whole seconds"`
}

// Type returns the event type identifier for ElapsedTickEvent.
func (e ElapsedTickEvent) Type() uint32 { return TypeElapsedTick }

// CameraAcquiredEvent is published when the capture device stream
// becomes available.
type CameraAcquiredEvent struct {
	SessionID string `json:"session_id" doc:"Capture session identifier"`
	Device    string `json:"device" example:"/dev/video0" doc:"Resolved video device"`
	Timestamp string `json:"timestamp" doc:"Acquisition timestamp"`
}

// Type returns the event type identifier for CameraAcquiredEvent.
func (e CameraAcquiredEvent) Type() uint32 { return TypeCameraAcquired }

// CameraErrorEvent is published when device acquisition fails.
type CameraErrorEvent struct {
	Message   string `json:"message" example:"Camera Error: Permission denied" doc:"User-visible error message"`
	Reason    string `json:"reason" example:"Permission denied" doc:"Underlying platform message"`
	Timestamp string `json:"timestamp" doc:"Error timestamp"`
}

// Type returns the event type identifier for CameraErrorEvent.
func (e CameraErrorEvent) Type() uint32 { return TypeCameraError }

// RecordingStartedEvent is published when an encoding session begins.
type RecordingStartedEvent struct {
	RecordingID string `json:"recording_id" doc:"Recording session identifier"`
	Format      string `json:"format" example:"webm/vp9" doc:"Negotiated encoding format"`
	Timestamp   string `json:"timestamp" doc:"Start timestamp"`
}

// Type returns the event type identifier for RecordingStartedEvent.
func (e RecordingStartedEvent) Type() uint32 { return TypeRecordingStarted }

// RecordingStoppedEvent is published when an encoding session is
// finalized into an artifact.
type RecordingStoppedEvent struct {
	RecordingID string `json:"recording_id" doc:"Recording session identifier"`
	Size        int64  `json:"size" example:"1048576" doc:"Artifact size in bytes"`
	Duration    string `json:"duration" example:"35s" doc:"Recorded duration"`
	Filename    string `json:"filename" doc:"Download filename for the artifact"`
	Timestamp   string `json:"timestamp" doc:"Stop timestamp"`
}

// Type returns the event type identifier for RecordingStoppedEvent.
func (e RecordingStoppedEvent) Type() uint32 { return TypeRecordingStopped }

// EncoderErrorEvent is published when encoder start fails.
type EncoderErrorEvent struct {
	Message   string `json:"message" doc:"User-visible error message"`
	Reason    string `json:"reason" doc:"Underlying encoder error"`
	Timestamp string `json:"timestamp" doc:"Error timestamp"`
}

// Type returns the event type identifier for EncoderErrorEvent.
func (e EncoderErrorEvent) Type() uint32 { return TypeEncoderError }

// ArtifactSavedEvent is published when an artifact is written to the
// recordings directory.
type ArtifactSavedEvent struct {
	Filename  string `json:"filename" doc:"Saved filename"`
	Size      int64  `json:"size" doc:"Size in bytes"`
	Timestamp string `json:"timestamp" doc:"Save timestamp"`
}

// Type returns the event type identifier for ArtifactSavedEvent.
func (e ArtifactSavedEvent) Type() uint32 { return TypeArtifactSaved }

// LogEntryEvent carries a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"session" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
