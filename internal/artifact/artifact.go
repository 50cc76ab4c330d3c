// Package artifact holds the finalized recording output and its
// on-disk store.
package artifact

import (
	"strings"
	"time"
)

// filenamePrefix matches the original presentation-recording naming.
const filenamePrefix = "presentation_"

// Artifact is the immutable, downloadable result of one completed
// recording session: the ordered concatenation of every non-empty
// fragment, tagged with the negotiated format.
type Artifact struct {
	RecordingID string
	Data        []byte
	Format      string // negotiated format label, e.g. "webm/vp9"
	Ext         string // canonical container extension, e.g. "webm"
	MimeType    string
	CreatedAt   time.Time
}

// Size returns the artifact size in bytes.
func (a *Artifact) Size() int64 {
	return int64(len(a.Data))
}

// Filename derives the download filename:
// presentation_<ISO-8601 timestamp with ':' and '.' replaced by '-'>.<ext>
func (a *Artifact) Filename() string {
	ts := a.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z")
	sanitized := strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	ext := a.Ext
	if ext == "" {
		ext = "webm"
	}
	return filenamePrefix + sanitized + "." + ext
}
