package transport

import (
	"io"
	"sync"

	"github.com/keskad/locond/pkgs/loconet"
)

// MemoryTransport is an in-process loconet.Transport backed by byte
// channels, used to simulate a bus segment in tests without a real tty.
// There is no ecosystem library in the pack for an in-memory tty pair, so
// this is built on stdlib channels (see DESIGN.md).
type MemoryTransport struct {
	rx    <-chan byte
	tx    chan byte
	edges chan loconet.EdgeEvent

	closeOnce sync.Once
}

// NewMemoryLoopback builds two MemoryTransports wired to each other: bytes
// written on one arrive readable on the other, and vice versa. Closing
// either side closes that side's outgoing channel, so the peer's next
// ReadByte returns io.EOF.
func NewMemoryLoopback(buffer int) (a, b *MemoryTransport) {
	ab := make(chan byte, buffer)
	ba := make(chan byte, buffer)
	a = &MemoryTransport{rx: ba, tx: ab, edges: make(chan loconet.EdgeEvent, 16)}
	b = &MemoryTransport{rx: ab, tx: ba, edges: make(chan loconet.EdgeEvent, 16)}
	return a, b
}

// ReadByte blocks until a byte is available, or returns io.EOF once the
// peer has closed its outgoing side.
func (m *MemoryTransport) ReadByte() (byte, error) {
	b, ok := <-m.rx
	if !ok {
		return 0, io.EOF
	}
	return b, nil
}

// WriteByte sends a byte to the paired transport and synthesizes the
// falling/rising edge pair a real line transition would produce.
func (m *MemoryTransport) WriteByte(b byte) error {
	m.tx <- b
	m.emit(loconet.EdgeFalling)
	m.emit(loconet.EdgeRising)
	return nil
}

// Edges returns the synthesized edge-event stream.
func (m *MemoryTransport) Edges() <-chan loconet.EdgeEvent {
	return m.edges
}

// Close closes this transport's outgoing channel; the peer's ReadByte
// returns io.EOF from that point on. Safe to call more than once.
func (m *MemoryTransport) Close() error {
	m.closeOnce.Do(func() { close(m.tx) })
	return nil
}

func (m *MemoryTransport) emit(e loconet.EdgeEvent) {
	select {
	case m.edges <- e:
	default:
	}
}
