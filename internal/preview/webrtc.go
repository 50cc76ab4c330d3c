package preview

import (
	"sync"

	"github.com/google/uuid"
	pion "github.com/pion/webrtc/v4"

	"github.com/tisianewembou/NextWavePt3/internal/logging"
	"github.com/tisianewembou/NextWavePt3/internal/metrics"
)

// Config holds WebRTC connection settings.
type Config struct {
	// ICEServers for STUN/TURN; empty keeps the mirror LAN-only.
	ICEServers []pion.ICEServer
}

// Manager answers browser SDP offers with a peer connection carrying
// the preview track, and keeps peer bookkeeping.
type Manager struct {
	hub    *Hub
	config Config
	logger logging.Logger

	mu    sync.Mutex
	peers map[string]*pion.PeerConnection
}

// NewManager creates a WebRTC manager feeding consumers from hub.
func NewManager(hub *Hub, config Config) *Manager {
	return &Manager{
		hub:    hub,
		config: config,
		logger: logging.GetLogger("preview"),
		peers:  make(map[string]*pion.PeerConnection),
	}
}

// CreateConsumer takes an SDP offer from the browser and returns a
// complete SDP answer for a receive-only preview connection.
func (m *Manager) CreateConsumer(offer string) (string, error) {
	api, err := newWebRTCAPI()
	if err != nil {
		return "", err
	}

	pc, err := api.NewPeerConnection(pion.Configuration{
		ICEServers: m.config.ICEServers,
	})
	if err != nil {
		return "", err
	}

	track, err := pion.NewTrackLocalStaticRTP(
		pion.RTPCodecCapability{MimeType: pion.MimeTypeVP8, ClockRate: 90000},
		"video", "preview",
	)
	if err != nil {
		pc.Close()
		return "", err
	}
	if _, err := pc.AddTrack(track); err != nil {
		pc.Close()
		return "", err
	}

	peerID := uuid.NewString()[:8]

	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		switch state {
		case pion.PeerConnectionStateConnected:
			m.logger.Debug("Preview peer connected", "peer_id", peerID)
			m.hub.Attach(peerID, track)
			m.updatePeerGauge()
			// RTCP must be drained for the NACK responder to see
			// retransmission requests from the browser.
			for _, sender := range pc.GetSenders() {
				go func(s *pion.RTPSender) {
					for {
						if _, _, err := s.ReadRTCP(); err != nil {
							return
						}
					}
				}(sender)
			}
		case pion.PeerConnectionStateDisconnected,
			pion.PeerConnectionStateFailed,
			pion.PeerConnectionStateClosed:
			m.removePeer(peerID)
		}
	})

	if err := pc.SetRemoteDescription(pion.SessionDescription{
		Type: pion.SDPTypeOffer,
		SDP:  offer,
	}); err != nil {
		pc.Close()
		return "", err
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		return "", err
	}

	// Wait for ICE gathering so the answer carries all candidates;
	// the browser gets a single complete SDP with no trickle.
	gatherComplete := pion.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		return "", err
	}
	<-gatherComplete

	m.mu.Lock()
	m.peers[peerID] = pc
	count := len(m.peers)
	m.mu.Unlock()
	m.logger.Debug("Preview consumer created", "peer_id", peerID, "total_peers", count)

	return pc.LocalDescription().SDP, nil
}

// PeerCount returns the number of live peer connections.
func (m *Manager) PeerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.peers)
}

// Stop closes all peer connections.
func (m *Manager) Stop() {
	m.mu.Lock()
	peers := m.peers
	m.peers = make(map[string]*pion.PeerConnection)
	m.mu.Unlock()

	for peerID, pc := range peers {
		m.hub.Detach(peerID)
		pc.Close()
	}
	m.updatePeerGauge()
}

func (m *Manager) removePeer(peerID string) {
	m.hub.Detach(peerID)

	m.mu.Lock()
	pc, ok := m.peers[peerID]
	delete(m.peers, peerID)
	count := len(m.peers)
	m.mu.Unlock()

	if ok {
		pc.Close()
		m.logger.Debug("Preview peer removed", "peer_id", peerID, "remaining_peers", count)
	}
	m.updatePeerGauge()
}

func (m *Manager) updatePeerGauge() {
	metrics.SetPreviewPeers(m.PeerCount())
}
