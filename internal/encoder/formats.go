package encoder

import (
	"os/exec"
	"strings"
	"sync"
)

// Format describes a negotiated recording format. Name is the
// user-facing label reported in status surfaces; the codec fields are
// FFmpeg encoder names.
type Format struct {
	Name       string // webm/vp9, webm
	Container  string
	VideoCodec string
	AudioCodec string
	Ext        string
	MimeType   string
}

// The preferred format and its fallback. VP9 in WebM when the encoder
// is available, plain WebM (VP8) otherwise.
var (
	FormatWebMVP9 = Format{
		Name:       "webm/vp9",
		Container:  "webm",
		VideoCodec: "libvpx-vp9",
		AudioCodec: "libopus",
		Ext:        "webm",
		MimeType:   "video/webm",
	}
	FormatWebM = Format{
		Name:       "webm",
		Container:  "webm",
		VideoCodec: "libvpx",
		AudioCodec: "libopus",
		Ext:        "webm",
		MimeType:   "video/webm",
	}
)

// CapabilityProbe reports whether a given FFmpeg encoder is available.
type CapabilityProbe interface {
	Supports(encoder string) bool
}

// Negotiate picks the recording format: VP9/WebM when supported, WebM
// otherwise. A nil probe selects the ffmpeg binary probe.
func Negotiate(probe CapabilityProbe) Format {
	if probe == nil {
		probe = defaultProbe
	}
	if probe.Supports(FormatWebMVP9.VideoCodec) {
		return FormatWebMVP9
	}
	return FormatWebM
}

// ffmpegProbe asks the ffmpeg binary which encoders it was built with.
// The encoder list cannot change while we run, so it is read once.
type ffmpegProbe struct {
	once   sync.Once
	output string
}

var defaultProbe = &ffmpegProbe{}

func (p *ffmpegProbe) Supports(encoder string) bool {
	p.once.Do(func() {
		out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").Output()
		if err != nil {
			return
		}
		p.output = string(out)
	})
	return strings.Contains(p.output, " "+encoder+" ")
}
