//go:build linux

// Package transport provides loconet.Transport implementations: a real
// Linux serial adapter (this file) and an in-memory simulated pair used by
// tests (memory.go).
package transport

import (
	"fmt"
	"time"

	serial "github.com/daedaluz/goserial"

	"github.com/keskad/locond/pkgs/loconet"
)

// SerialTransport drives a Loconet interface attached as a raw tty, e.g. a
// USB-Loconet dongle exposing a transparent byte-oriented UART.
//
// The bus's rising/falling edges are not exposed by a raw tty the way they
// are to the original firmware's UART interrupt; they are approximated here
// from receive activity: a byte's arrival implies the line was driven
// (falling), and a rising edge follows idleAfter after every received
// byte. That rising edge is not suppressed when further bytes arrive in
// the meantime, so during a burst rising and falling edges interleave; the
// last rising edge comes idleAfter after the last byte. See Edges.
type SerialTransport struct {
	port *serial.Port

	edges     chan loconet.EdgeEvent
	idleAfter time.Duration
	closeCh   chan struct{}
}

// Open opens device at the given baud rate (typically B16_66K is not a
// standard termios constant; Loconet's 16.66 kbit/s line rate is normally
// reached via a USB-serial adapter's custom divisor, configured out of band
// by the device driver) and starts the edge-synthesis goroutine.
func Open(device string, baud serial.CFlag, idleAfter time.Duration) (*SerialTransport, error) {
	opts := serial.NewOptions().SetReadTimeout(idleAfter)
	port, err := serial.Open(device, opts)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", device, err)
	}
	if err := port.MakeRaw(); err != nil {
		port.Close()
		return nil, fmt.Errorf("transport: make raw %s: %w", device, err)
	}
	attrs, err := port.GetAttr()
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("transport: get attrs %s: %w", device, err)
	}
	attrs.SetSpeed(baud)
	if err := port.SetAttr(serial.TCSANOW, attrs); err != nil {
		port.Close()
		return nil, fmt.Errorf("transport: set attrs %s: %w", device, err)
	}

	t := &SerialTransport{
		port:      port,
		edges:     make(chan loconet.EdgeEvent, 16),
		idleAfter: idleAfter,
		closeCh:   make(chan struct{}),
	}
	return t, nil
}

// ReadByte blocks for a single byte, synthesizing a falling edge just
// before returning it (the line was driven to produce this byte) and
// scheduling a rising edge idleAfter later, whether or not further bytes
// arrive in between.
func (t *SerialTransport) ReadByte() (byte, error) {
	buf := make([]byte, 1)
	n, err := t.port.Read(buf)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("transport: short read")
	}
	t.emitEdge(loconet.EdgeFalling)
	go t.armRisingEdge()
	return buf[0], nil
}

// WriteByte writes a single byte to the line.
func (t *SerialTransport) WriteByte(b byte) error {
	_, err := t.port.Write([]byte{b})
	return err
}

// Edges returns the synthesized edge-event stream.
func (t *SerialTransport) Edges() <-chan loconet.EdgeEvent {
	return t.edges
}

// Close releases the underlying tty.
func (t *SerialTransport) Close() error {
	close(t.closeCh)
	return t.port.Close()
}

func (t *SerialTransport) emitEdge(e loconet.EdgeEvent) {
	select {
	case t.edges <- e:
	default:
	}
}

func (t *SerialTransport) armRisingEdge() {
	select {
	case <-time.After(t.idleAfter):
		t.emitEdge(loconet.EdgeRising)
	case <-t.closeCh:
	}
}
