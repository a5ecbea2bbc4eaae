// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"fmt"
	"sync"
	"time"
)

// DefaultInterval is used when NewPublisher gets a non-positive interval.
const DefaultInterval = 16 * time.Millisecond

// Publisher sends the most recent spectrum on every tick. Spectra published
// between ticks replace each other; a tick with nothing new sends nothing.
// It runs in a separate goroutine managed by Start and Stop.
type Publisher struct {
	sender   *Sender
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	wg       sync.WaitGroup
	runMu    sync.Mutex // Protects ticker and doneChan during Start/Stop.

	mu          sync.Mutex // Protects the latest spectrum.
	pending     bool
	latest      Packet
	sequenceNum uint32

	// Reused by the publisher goroutine only.
	outgoing     Packet
	packetBuffer bytes.Buffer
}

// NewPublisher creates a Publisher using sender.
func NewPublisher(interval time.Duration, sender *Sender) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("udp: sender cannot be nil")
	}
	if interval <= 0 {
		interval = DefaultInterval
		logger.Warnf("invalid interval provided, defaulting to %s", interval)
	}
	return &Publisher{sender: sender, interval: interval}, nil
}

// Publish stores a spectrum for the next tick. magnitudes is copied.
func (p *Publisher) Publish(ts time.Time, bandStart, binWidth float64, magnitudes []float64) {
	n := min(len(magnitudes), MaxMagnitudes)

	p.mu.Lock()
	defer p.mu.Unlock()

	if cap(p.latest.Magnitudes) < n {
		p.latest.Magnitudes = make([]float32, n)
	}
	p.latest.Magnitudes = p.latest.Magnitudes[:n]
	for i := range n {
		p.latest.Magnitudes[i] = float32(magnitudes[i])
	}
	p.latest.Timestamp = ts.UnixNano()
	p.latest.BandStart = float32(bandStart)
	p.latest.BinWidth = float32(binWidth)
	p.pending = true
}

// Start begins the periodic publishing process. Calling Start while
// running is a no-op.
func (p *Publisher) Start() {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if p.ticker != nil {
		logger.Warnf("publisher already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	ticker, done := p.ticker, p.doneChan

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		logger.Debugf("publisher started (interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.flush()
			case <-done:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it.
// Calling Stop when not running is a no-op.
func (p *Publisher) Stop() error {
	p.runMu.Lock()
	if p.ticker == nil {
		p.runMu.Unlock()
		return nil
	}
	close(p.doneChan)
	p.ticker.Stop()
	p.ticker = nil
	p.runMu.Unlock()

	p.wg.Wait()
	logger.Debugf("publisher stopped")
	return nil
}

// flush sends the latest spectrum if it has not been sent yet.
func (p *Publisher) flush() {
	p.mu.Lock()
	if !p.pending {
		p.mu.Unlock()
		return
	}
	p.pending = false
	p.sequenceNum++
	p.outgoing.Sequence = p.sequenceNum
	p.outgoing.Timestamp = p.latest.Timestamp
	p.outgoing.BandStart = p.latest.BandStart
	p.outgoing.BinWidth = p.latest.BinWidth
	p.outgoing.Magnitudes = append(p.outgoing.Magnitudes[:0], p.latest.Magnitudes...)
	p.mu.Unlock()

	p.packetBuffer.Reset()
	if err := p.outgoing.AppendTo(&p.packetBuffer); err != nil {
		logger.Errorf("error packing packet %d: %v", p.outgoing.Sequence, err)
		return
	}
	if err := p.sender.Send(p.packetBuffer.Bytes()); err == nil {
		logger.Debugf("sent packet %d (%d bytes)", p.outgoing.Sequence, p.packetBuffer.Len())
	}
}

// Close stops the publisher and closes the sender.
func (p *Publisher) Close() error {
	if err := p.Stop(); err != nil {
		return err
	}
	return p.sender.Close()
}

var _ interface{ Close() error } = (*Publisher)(nil)
