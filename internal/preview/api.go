package preview

import (
	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/nack"
	"github.com/pion/interceptor/pkg/report"
	"github.com/pion/rtcp"
	pion "github.com/pion/webrtc/v4"

	"github.com/tisianewembou/NextWavePt3/internal/metrics"
)

// nackBufferSize is the packet buffer for NACK retransmission. The
// preview runs ~1Mbit/s, so a few seconds of packets fit comfortably.
const nackBufferSize = 1024

// newWebRTCAPI creates a WebRTC API limited to what the preview
// mirror actually sends: VP8 video with NACK/PLI feedback.
func newWebRTCAPI() (*pion.API, error) {
	m := &pion.MediaEngine{}

	videoRTCPFeedback := []pion.RTCPFeedback{
		{Type: "goog-remb"},
		{Type: "ccm", Parameter: "fir"},
		{Type: "nack"},
		{Type: "nack", Parameter: "pli"},
	}
	if err := m.RegisterCodec(pion.RTPCodecParameters{
		RTPCodecCapability: pion.RTPCodecCapability{
			MimeType:     pion.MimeTypeVP8,
			ClockRate:    90000,
			RTCPFeedback: videoRTCPFeedback,
		},
		PayloadType: 96,
	}, pion.RTPCodecTypeVideo); err != nil {
		return nil, err
	}

	i := &interceptor.Registry{}

	responder, err := nack.NewResponderInterceptor(nack.ResponderSize(nackBufferSize))
	if err != nil {
		return nil, err
	}
	generator, err := nack.NewGeneratorInterceptor()
	if err != nil {
		return nil, err
	}
	m.RegisterFeedback(pion.RTCPFeedback{Type: "nack"}, pion.RTPCodecTypeVideo)
	m.RegisterFeedback(pion.RTCPFeedback{Type: "nack", Parameter: "pli"}, pion.RTPCodecTypeVideo)
	i.Add(responder)
	i.Add(generator)

	receiver, err := report.NewReceiverInterceptor()
	if err != nil {
		return nil, err
	}
	sender, err := report.NewSenderInterceptor()
	if err != nil {
		return nil, err
	}
	i.Add(receiver)
	i.Add(sender)

	i.Add(&rtcpMonitorInterceptorFactory{})

	return pion.NewAPI(
		pion.WithMediaEngine(m),
		pion.WithInterceptorRegistry(i),
	), nil
}

// rtcpMonitorInterceptorFactory creates RTCP monitoring interceptors.
type rtcpMonitorInterceptorFactory struct{}

func (f *rtcpMonitorInterceptorFactory) NewInterceptor(_ string) (interceptor.Interceptor, error) {
	return &rtcpMonitorInterceptor{}, nil
}

// rtcpMonitorInterceptor counts peer feedback (NACK, PLI) into the
// preview metrics.
type rtcpMonitorInterceptor struct {
	interceptor.NoOp
}

func (r *rtcpMonitorInterceptor) BindRTCPReader(reader interceptor.RTCPReader) interceptor.RTCPReader {
	return &rtcpMonitorReader{reader: reader}
}

type rtcpMonitorReader struct {
	reader interceptor.RTCPReader
}

func (r *rtcpMonitorReader) Read(b []byte, a interceptor.Attributes) (int, interceptor.Attributes, error) {
	n, attr, err := r.reader.Read(b, a)
	if err != nil {
		return n, attr, err
	}

	packets, parseErr := rtcp.Unmarshal(b[:n])
	if parseErr != nil {
		return n, attr, err
	}

	for _, pkt := range packets {
		switch p := pkt.(type) {
		case *rtcp.TransportLayerNack:
			count := 0
			for _, pair := range p.Nacks {
				count += 1 + len(pair.PacketList())
			}
			metrics.PreviewNACKs(count)
		case *rtcp.PictureLossIndication:
			metrics.PreviewPLI()
		}
	}

	return n, attr, err
}
