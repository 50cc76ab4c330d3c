package preview

import (
	"sync"

	"github.com/pion/rtp"

	"github.com/tisianewembou/NextWavePt3/internal/logging"
)

// Consumer receives the mirrored RTP stream. Satisfied by pion's
// TrackLocalStaticRTP.
type Consumer interface {
	WriteRTP(packet *rtp.Packet) error
}

// Hub routes the single camera feed to all attached consumers. There
// is exactly one producer (the loopback RTP source); consumers come
// and go with WebRTC peers.
type Hub struct {
	mu        sync.RWMutex
	consumers map[string]Consumer
	logger    logging.Logger
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		consumers: make(map[string]Consumer),
		logger:    logging.GetLogger("preview"),
	}
}

// Attach registers a consumer under the given peer ID, replacing any
// previous consumer with the same ID.
func (h *Hub) Attach(peerID string, consumer Consumer) {
	h.mu.Lock()
	h.consumers[peerID] = consumer
	count := len(h.consumers)
	h.mu.Unlock()
	h.logger.Debug("Consumer attached", "peer_id", peerID, "consumers", count)
}

// Detach removes a consumer. Unknown IDs are ignored.
func (h *Hub) Detach(peerID string) {
	h.mu.Lock()
	_, ok := h.consumers[peerID]
	delete(h.consumers, peerID)
	count := len(h.consumers)
	h.mu.Unlock()
	if ok {
		h.logger.Debug("Consumer detached", "peer_id", peerID, "consumers", count)
	}
}

// Broadcast forwards one RTP packet to every consumer. A consumer
// write error detaches nobody; disconnect handling belongs to the
// peer lifecycle, not the packet path.
func (h *Hub) Broadcast(packet *rtp.Packet) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, consumer := range h.consumers {
		if err := consumer.WriteRTP(packet); err != nil {
			h.logger.Debug("Consumer write failed", "error", err)
		}
	}
}

// ConsumerCount returns the number of attached consumers.
func (h *Hub) ConsumerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.consumers)
}
