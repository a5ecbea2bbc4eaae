// SPDX-License-Identifier: MIT
package transport

import (
	"time"

	"pitch/internal/transport/udp"
)

// UDPTransport publishes frames as binary packets at a fixed rate.
type UDPTransport struct {
	publisher *udp.Publisher
}

// NewUDPTransport dials target and starts publishing every interval.
func NewUDPTransport(target string, interval time.Duration) (*UDPTransport, error) {
	sender, err := udp.NewSender(target)
	if err != nil {
		return nil, err
	}
	pub, err := udp.NewPublisher(interval, sender)
	if err != nil {
		sender.Close()
		return nil, err
	}
	pub.Start()
	return &UDPTransport{publisher: pub}, nil
}

// Send hands the spectrum to the publisher; it never blocks on the network.
func (u *UDPTransport) Send(frame Frame) error {
	u.publisher.Publish(frame.Timestamp, frame.Band.Start, frame.Result.BinWidth(), frame.Result.Magnitudes)
	return nil
}

func (u *UDPTransport) Close() error {
	return u.publisher.Close()
}

var _ Transport = (*UDPTransport)(nil)
