package preview

import (
	"errors"
	"net"
	"sync"

	"github.com/pion/rtp"

	"github.com/tisianewembou/NextWavePt3/internal/logging"
)

// maxRTPPacketSize covers any packet FFmpeg emits; RTP over UDP stays
// under the path MTU.
const maxRTPPacketSize = 1600

// Source listens on the loopback address the capture pipeline sends
// RTP to and feeds every valid packet into the hub. It survives
// pipeline restarts: the socket stays open while FFmpeg comes and
// goes.
type Source struct {
	addr   string
	hub    *Hub
	logger logging.Logger

	mu   sync.Mutex
	conn *net.UDPConn
	done chan struct{}
}

// NewSource creates an RTP source for the given listen address.
func NewSource(addr string, hub *Hub) *Source {
	return &Source{
		addr:   addr,
		hub:    hub,
		logger: logging.GetLogger("preview"),
	}
}

// Start binds the socket and begins forwarding packets.
func (s *Source) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return errors.New("source already started")
	}

	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	s.conn = conn
	s.done = make(chan struct{})
	s.logger.Info("Preview RTP source listening", "addr", s.addr)

	go s.readLoop(conn, s.done)
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Source) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ""
	}
	return s.conn.LocalAddr().String()
}

// Stop closes the socket and ends the forwarding loop.
func (s *Source) Stop() {
	s.mu.Lock()
	conn, done := s.conn, s.done
	s.conn, s.done = nil, nil
	s.mu.Unlock()

	if conn == nil {
		return
	}
	conn.Close()
	<-done
}

func (s *Source) readLoop(conn *net.UDPConn, done chan struct{}) {
	defer close(done)
	buf := make([]byte, maxRTPPacketSize)

	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Error("Preview socket read failed", "error", err)
			}
			return
		}

		packet := &rtp.Packet{}
		if err := packet.Unmarshal(buf[:n]); err != nil {
			s.logger.Debug("Dropping malformed RTP packet", "size", n, "error", err)
			continue
		}
		s.hub.Broadcast(packet)
	}
}
