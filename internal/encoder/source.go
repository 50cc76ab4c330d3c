package encoder

import (
	"context"
	"io"

	"github.com/tisianewembou/NextWavePt3/internal/device"
	"github.com/tisianewembou/NextWavePt3/internal/pipeline"
)

const defaultBitrate = "2.5M"

// PipelineSource adapts the capture pipeline supervisor to the
// FragmentSource interface.
type PipelineSource struct {
	supervisor *pipeline.Supervisor
	bitrate    string
}

// NewPipelineSource creates a FragmentSource backed by the capture
// pipeline. An empty bitrate selects the default.
func NewPipelineSource(supervisor *pipeline.Supervisor, bitrate string) *PipelineSource {
	if bitrate == "" {
		bitrate = defaultBitrate
	}
	return &PipelineSource{supervisor: supervisor, bitrate: bitrate}
}

// Open swaps the pipeline into recording mode and returns the encoded
// byte stream.
func (s *PipelineSource) Open(ctx context.Context, capture *device.CaptureSession, format Format) (io.ReadCloser, error) {
	return s.supervisor.StartRecord(ctx, capture, pipeline.RecordSpec{
		Container:  format.Container,
		VideoCodec: format.VideoCodec,
		AudioCodec: format.AudioCodec,
		Bitrate:    s.bitrate,
	})
}
