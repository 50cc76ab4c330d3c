// Package models holds the request and response shapes of the HTTP
// API. Huma generates the OpenAPI schema from the struct tags.
package models

import (
	"github.com/tisianewembou/NextWavePt3/internal/device"
	"github.com/tisianewembou/NextWavePt3/internal/session"
)

// HealthData is the liveness payload.
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Health status"`
	Message string `json:"message" example:"API is healthy" doc:"Health detail"`
}

// HealthResponse wraps HealthData.
type HealthResponse struct {
	Body HealthData
}

// VersionData carries build metadata.
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2026-03-10T12:00:00Z" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24.1" doc:"Go toolchain version"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Target platform"`
}

// VersionResponse wraps VersionData.
type VersionResponse struct {
	Body VersionData
}

// SessionResponse wraps the lifecycle snapshot.
type SessionResponse struct {
	Body session.Snapshot
}

// CommandData reports the state after a lifecycle command was accepted.
type CommandData struct {
	State   string `json:"state" example:"camera-ready" doc:"Session state after the command"`
	Message string `json:"message" example:"Webcam and microphone ready!" doc:"Status message"`
}

// CommandResponse wraps CommandData.
type CommandResponse struct {
	Body CommandData
}

// DownloadResponse streams the recording artifact.
type DownloadResponse struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

// DeviceListData enumerates capture devices.
type DeviceListData struct {
	Devices []device.Info `json:"devices" doc:"Available video capture nodes"`
	Count   int           `json:"count" example:"1" doc:"Number of devices found"`
}

// DeviceListResponse wraps DeviceListData.
type DeviceListResponse struct {
	Body DeviceListData
}

// RecordingEntry is one saved artifact in the output directory.
type RecordingEntry struct {
	Filename string `json:"filename" example:"presentation_2026-03-10T14-30-45-123Z.webm" doc:"Artifact filename"`
	Size     int64  `json:"size" example:"1048576" doc:"Size in bytes"`
	Modified string `json:"modified" example:"2026-03-10T14:31:00Z" doc:"Last modification time"`
}

// RecordingListData lists saved artifacts, newest first.
type RecordingListData struct {
	Recordings []RecordingEntry `json:"recordings" doc:"Saved recordings"`
	Count      int              `json:"count" example:"3" doc:"Number of recordings"`
}

// RecordingListResponse wraps RecordingListData.
type RecordingListResponse struct {
	Body RecordingListData
}

// UploadRecordingRequest accepts an artifact for server-side storage.
type UploadRecordingRequest struct {
	Filename string `query:"filename" example:"presentation_2026-03-10T14-30-45-123Z.webm" doc:"Target filename; must carry an allowed extension"`
	RawBody  []byte
}

// UploadRecordingData confirms a stored artifact.
type UploadRecordingData struct {
	Filename string `json:"filename" doc:"Stored filename"`
	Size     int64  `json:"size" doc:"Stored size in bytes"`
}

// UploadRecordingResponse wraps UploadRecordingData.
type UploadRecordingResponse struct {
	Body UploadRecordingData
}

// PreviewOfferRequest carries the browser's SDP offer.
type PreviewOfferRequest struct {
	Body struct {
		SDP string `json:"sdp" doc:"WebRTC SDP offer"`
	}
}

// PreviewAnswerData is the SDP answer for the preview connection.
type PreviewAnswerData struct {
	SDP string `json:"sdp" doc:"WebRTC SDP answer"`
}

// PreviewAnswerResponse wraps PreviewAnswerData.
type PreviewAnswerResponse struct {
	Body PreviewAnswerData
}
