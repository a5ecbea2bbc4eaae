// SPDX-License-Identifier: MIT
package transport

import (
	"pitch/internal/log"
)

// LoggingTransport implements the Transport interface by logging the peak of
// each frame at debug level.
type LoggingTransport struct {
	logger *log.Logger
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	lt := &LoggingTransport{logger: log.Named("frames")}
	lt.logger.Debugf("using LoggingTransport")
	return lt
}

// Send logs the frame. It never fails.
func (lt *LoggingTransport) Send(frame Frame) error {
	lt.logger.Debugf("#%d %s peak %.2f Hz (mag %.1f, %d bins of %.3f Hz)",
		frame.Sequence, frame.Band, frame.Peak, frame.PeakMagnitude,
		frame.Result.Len(), frame.Result.BinWidth())
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	lt.logger.Debugf("close called")
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
