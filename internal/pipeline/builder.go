package pipeline

import (
	"fmt"
	"strings"

	"github.com/tisianewembou/NextWavePt3/internal/device"
)

// RecordSpec describes the encoded output of a recording pipeline.
// Codec names are FFmpeg encoder names, not container labels.
type RecordSpec struct {
	Container  string // webm
	VideoCodec string // libvpx-vp9, libvpx
	AudioCodec string // libopus
	Bitrate    string // 2.5M
	FPS        int
}

// BuildPreviewCommand builds the preview-only pipeline: camera in, VP8
// over RTP out to the loopback address the preview hub listens on.
// Audio is captured but not sent; the monitor mirror is video only.
func BuildPreviewCommand(capture *device.CaptureSession, fps int) string {
	var cmd strings.Builder

	cmd.WriteString(base())
	writeVideoInput(&cmd, capture, fps)

	cmd.WriteString(" -an")
	writePreviewEncode(&cmd)
	cmd.WriteString(" -f rtp rtp://" + capture.PreviewAddr)

	return cmd.String()
}

// BuildRecordCommand builds the recording pipeline. One encode feeds a
// tee: the containerized stream goes to stdout for the fragment reader,
// and the video track is mirrored over RTP so the preview stays live
// while recording.
func BuildRecordCommand(capture *device.CaptureSession, spec RecordSpec) string {
	var cmd strings.Builder

	cmd.WriteString(base())
	writeVideoInput(&cmd, capture, spec.FPS)

	if capture.AudioDevice != "" {
		cmd.WriteString(" -thread_queue_size 1024")
		cmd.WriteString(" -f alsa -sample_fmt s16 -ar 48000 -ac 2")
		cmd.WriteString(" -i " + capture.AudioDevice)
		cmd.WriteString(" -map 0:v -map 1:a")
	}

	cmd.WriteString(" -c:v " + spec.VideoCodec)
	cmd.WriteString(" -b:v " + spec.Bitrate)
	cmd.WriteString(" -deadline realtime -cpu-used 8 -row-mt 1")
	cmd.WriteString(fmt.Sprintf(" -g %d", gop(spec.FPS)))

	if capture.AudioDevice != "" {
		cmd.WriteString(" -c:a " + spec.AudioCodec + " -b:a 128k -ar 48000")
	}

	// Fragments must reach stdout promptly, not on the muxer's schedule.
	cmd.WriteString(" -muxdelay 0 -muxpreload 0 -flush_packets 1")
	cmd.WriteString(fmt.Sprintf(" -f tee \"[f=%s]pipe:1|[select=v:f=rtp]rtp://%s\"",
		spec.Container, capture.PreviewAddr))

	return cmd.String()
}

func writeVideoInput(cmd *strings.Builder, capture *device.CaptureSession, fps int) {
	if fps <= 0 {
		fps = 30
	}
	cmd.WriteString(" -f v4l2")
	cmd.WriteString(fmt.Sprintf(" -video_size %dx%d", capture.Width, capture.Height))
	cmd.WriteString(fmt.Sprintf(" -framerate %d", fps))
	cmd.WriteString(" -i " + capture.VideoDevice)
}

// writePreviewEncode configures the low-latency VP8 encode the WebRTC
// mirror consumes. Quality is secondary to latency here.
func writePreviewEncode(cmd *strings.Builder) {
	cmd.WriteString(" -c:v libvpx -b:v 1M -deadline realtime -cpu-used 8 -g 30")
}

func gop(fps int) int {
	if fps <= 0 {
		fps = 30
	}
	return fps * 2
}
