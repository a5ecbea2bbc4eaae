// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"net"
	"testing"
	"time"
)

func listen(t *testing.T) *net.UDPConn {
	t.Helper()
	ln, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP() error: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	return ln
}

func readPacket(t *testing.T, ln *net.UDPConn, timeout time.Duration) (Packet, error) {
	t.Helper()
	buf := make([]byte, 65536)
	ln.SetReadDeadline(time.Now().Add(timeout))
	n, err := ln.Read(buf)
	if err != nil {
		return Packet{}, err
	}
	return ParsePacket(buf[:n])
}

func TestSenderLifecycle(t *testing.T) {
	ln := listen(t)

	s, err := NewSender(ln.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewSender() error: %v", err)
	}
	if s.Target().Port != ln.LocalAddr().(*net.UDPAddr).Port {
		t.Errorf("Target() = %v", s.Target())
	}
	if err := s.Send([]byte("ping")); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
	if err := s.Send([]byte("ping")); !errors.Is(err, ErrSenderClosed) {
		t.Errorf("Send() after Close = %v, want ErrSenderClosed", err)
	}

	if _, err := NewSender("not an address"); err == nil {
		t.Error("NewSender() with an invalid address succeeded")
	}
}

func TestPublisherSendsLatest(t *testing.T) {
	ln := listen(t)
	s, err := NewSender(ln.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewSender() error: %v", err)
	}

	p, err := NewPublisher(50*time.Millisecond, s)
	if err != nil {
		t.Fatalf("NewPublisher() error: %v", err)
	}

	// Both land before the first tick; only the second is sent.
	now := time.Now()
	p.Publish(now, 100, 0.5, []float64{1, 1, 1})
	p.Publish(now, 100, 0.5, []float64{4, 5, 6, 7})
	p.Start()
	p.Start()
	defer p.Close()

	pkt, err := readPacket(t, ln, 2*time.Second)
	if err != nil {
		t.Fatalf("read error: %v", err)
	}
	if pkt.Sequence != 1 {
		t.Errorf("Sequence = %d, want 1", pkt.Sequence)
	}
	if len(pkt.Magnitudes) != 4 || pkt.Magnitudes[3] != 7 {
		t.Errorf("Magnitudes = %v, want [4 5 6 7]", pkt.Magnitudes)
	}
	if pkt.Timestamp != now.UnixNano() || pkt.BandStart != 100 || pkt.BinWidth != 0.5 {
		t.Errorf("header = %+v", pkt)
	}

	// Nothing new was published, so the next ticks stay silent.
	if _, err := readPacket(t, ln, 150*time.Millisecond); err == nil {
		t.Error("publisher resent an old spectrum")
	}
}

func TestPublisherStopIdempotent(t *testing.T) {
	ln := listen(t)
	s, _ := NewSender(ln.LocalAddr().String())

	p, err := NewPublisher(0, s)
	if err != nil {
		t.Fatalf("NewPublisher() error: %v", err)
	}
	if p.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", p.interval, DefaultInterval)
	}

	if err := p.Stop(); err != nil {
		t.Errorf("Stop() before Start = %v", err)
	}
	p.Start()
	if err := p.Stop(); err != nil {
		t.Errorf("Stop() = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}

	if _, err := NewPublisher(time.Second, nil); err == nil {
		t.Error("NewPublisher(nil sender) succeeded")
	}
}
