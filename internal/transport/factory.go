// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"

	"pitch/internal/config"
)

// NewFromConfig builds the configured network and log sinks. extra sinks,
// such as the terminal display, are appended. With a single sink it is
// returned as is; otherwise the sinks are wrapped in a Fanout.
func NewFromConfig(cfg *config.Config, extra ...Transport) (Transport, error) {
	var sinks Fanout

	if cfg.Transport.WebSocketEnabled {
		ws := NewWebSocketTransport(cfg.Transport.WebSocketAddr, cfg.Transport.WebSocketInterval)
		if err := ws.Start(); err != nil {
			ws.Close()
			return nil, fmt.Errorf("websocket transport: %w", err)
		}
		sinks = append(sinks, ws)
	}

	if cfg.Transport.UDPEnabled {
		u, err := NewUDPTransport(cfg.Transport.UDPTargetAddress, cfg.Transport.UDPSendInterval)
		if err != nil {
			sinks.Close()
			return nil, fmt.Errorf("udp transport: %w", err)
		}
		sinks = append(sinks, u)
	}

	if cfg.Transport.LogFrames {
		sinks = append(sinks, NewLoggingTransport())
	}

	for _, t := range extra {
		if t != nil {
			sinks = append(sinks, t)
		}
	}

	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return sinks, nil
}
