package preview

import (
	"net"
	"testing"
	"time"
)

func TestSourceForwardsRTP(t *testing.T) {
	hub := NewHub()
	consumer := &recordingConsumer{}
	hub.Attach("peer", consumer)

	source := NewSource("127.0.0.1:0", hub)
	if err := source.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer source.Stop()

	conn, err := net.Dial("udp", source.Addr())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	payload, err := packetWithSeq(42).Marshal()
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if _, err := conn.Write(payload); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := consumer.received(); len(got) == 1 {
			if got[0] != 42 {
				t.Fatalf("received seq %d, want 42", got[0])
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("packet never reached the consumer")
}

func TestSourceIgnoresGarbage(t *testing.T) {
	hub := NewHub()
	consumer := &recordingConsumer{}
	hub.Attach("peer", consumer)

	source := NewSource("127.0.0.1:0", hub)
	if err := source.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer source.Stop()

	conn, err := net.Dial("udp", source.Addr())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte{0x00}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if got := consumer.received(); len(got) != 0 {
		t.Errorf("garbage was forwarded: %v", got)
	}
}

func TestSourceDoubleStartFails(t *testing.T) {
	source := NewSource("127.0.0.1:0", NewHub())
	if err := source.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer source.Stop()
	if err := source.Start(); err == nil {
		t.Error("second Start should fail")
	}
}
