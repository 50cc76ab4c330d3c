package session

// State is the externally observable session state. Exactly one state
// holds at any time; it is the single source of truth for the
// presentation snapshot (no independent boolean flags).
type State int

// Session states.
const (
	StateIdle State = iota
	StateCameraReady
	StateRecording
	StateRecorded
)

// String returns the wire representation of the state.
func (s State) String() string {
	switch s {
	case StateCameraReady:
		return "camera-ready"
	case StateRecording:
		return "recording"
	case StateRecorded:
		return "recorded"
	default:
		return "idle"
	}
}

// AllStates lists every state's wire name, used for the state gauge.
func AllStates() []string {
	return []string{
		StateIdle.String(),
		StateCameraReady.String(),
		StateRecording.String(),
		StateRecorded.String(),
	}
}

// Snapshot is the read-only projection handed to the presentation
// layer. It is derived from the controller state on each read; holding
// one never blocks the session.
type Snapshot struct {
	State         string `json:"state" example:"recording" doc:"Current session state"`
	StatusMessage string `json:"status_message" example:"Recording..." doc:"Human-readable status"`
	ErrorMessage  string `json:"error_message,omitempty" example:"Camera Error: Permission denied" doc:"Last error, empty when none"`
	ElapsedLabel  string `json:"elapsed_label" example:"01:23" doc:"Elapsed recording time as MM:SS"`
	HasArtifact   bool   `json:"has_artifact" example:"true" doc:"Whether a finalized recording is available for download"`
}
