// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Band Start        | float32        | 4            | Frequency of bin 0 (Hz) |
| Bin Width         | float32        | 4            | Bin spacing (Hz)        |
| Magnitude Count   | uint16         | 2            | Number of floats (N)    |
| Magnitudes        | []float32      | N * 4        | Zoomed FFT magnitudes   |
+-----------------------------------------------------------------------------+
*/

// HeaderSize is the number of bytes before the magnitudes.
const HeaderSize = 4 + 8 + 4 + 4 + 2

// MaxMagnitudes is the most bins a packet can carry.
const MaxMagnitudes = math.MaxUint16

// ErrShortPacket is returned by ParsePacket for truncated input.
var ErrShortPacket = errors.New("udp: short packet")

// Packet is one spectrum on the wire. Bin i is at BandStart + i*BinWidth.
type Packet struct {
	Sequence   uint32
	Timestamp  int64
	BandStart  float32
	BinWidth   float32
	Magnitudes []float32
}

// AppendTo writes p to buf.
func (p *Packet) AppendTo(buf *bytes.Buffer) error {
	if len(p.Magnitudes) > MaxMagnitudes {
		return fmt.Errorf("udp: %d magnitudes exceed the packet limit of %d", len(p.Magnitudes), MaxMagnitudes)
	}

	var hdr [HeaderSize]byte
	binary.BigEndian.PutUint32(hdr[0:], p.Sequence)
	binary.BigEndian.PutUint64(hdr[4:], uint64(p.Timestamp))
	binary.BigEndian.PutUint32(hdr[12:], math.Float32bits(p.BandStart))
	binary.BigEndian.PutUint32(hdr[16:], math.Float32bits(p.BinWidth))
	binary.BigEndian.PutUint16(hdr[20:], uint16(len(p.Magnitudes)))
	buf.Write(hdr[:])

	return binary.Write(buf, binary.BigEndian, p.Magnitudes)
}

// ParsePacket decodes a packet written by AppendTo.
func ParsePacket(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return Packet{}, ErrShortPacket
	}

	p := Packet{
		Sequence:  binary.BigEndian.Uint32(b[0:]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:])),
		BandStart: math.Float32frombits(binary.BigEndian.Uint32(b[12:])),
		BinWidth:  math.Float32frombits(binary.BigEndian.Uint32(b[16:])),
	}
	n := int(binary.BigEndian.Uint16(b[20:]))
	if len(b) < HeaderSize+4*n {
		return Packet{}, fmt.Errorf("%w: %d magnitudes need %d bytes, got %d", ErrShortPacket, n, HeaderSize+4*n, len(b))
	}

	p.Magnitudes = make([]float32, n)
	for i := range p.Magnitudes {
		p.Magnitudes[i] = math.Float32frombits(binary.BigEndian.Uint32(b[HeaderSize+4*i:]))
	}
	return p, nil
}
