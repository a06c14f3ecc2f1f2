// Package loconet implements the link-layer, framing, transmit-queue,
// LNCV and fast-clock state machines of a Loconet bus node.
package loconet

import "errors"

// Opcode length classes, selected by bits 5-6 of an opcode byte.
const (
	ClassTwo      = 0 // 2 bytes total: opcode, checksum
	ClassFour     = 1 // 4 bytes total
	ClassSix      = 2 // 6 bytes total
	ClassVariable = 3 // length byte follows opcode
)

// Fixed Loconet opcodes used by this module.
const (
	OpBusy           byte = 0x81
	OpGlobalPowerOff byte = 0x82
	OpGlobalPowerOn  byte = 0x83
	OpIdle           byte = 0x85
	OpSwitchRequest  byte = 0xB0
	OpSwitchReport   byte = 0xB1
	OpInputReport    byte = 0xB2
	OpLongAck        byte = 0xB4
	OpPeerXfer       byte = 0xE5
	OpReadSlotData   byte = 0xE7
	OpImmPacket      byte = 0xED
	OpWriteSlotData  byte = 0xEF
)

// Sub-opcode discriminants carried in payload[0] of variable-length frames.
const (
	SubFastClock       byte = 0x7B
	SubProgrammingTask byte = 0x7C
	LncvSourceKPU      byte = 0x01
)

// AckCode is the status byte carried in a LONG_ACK (0xB4) response.
type AckCode byte

const (
	AckOK           AckCode = 0x7F
	AckOutOfRange   AckCode = 0x40
	AckReadOnly     AckCode = 0x00
	AckInvalidValue AckCode = 0x01
)

// Frame status codes returned by the Framer's Process method.
type FrameStatus int

const (
	StatusIdle FrameStatus = iota
	StatusRetry
	StatusProcessed
)

// Errors surfaced from the codec, ring buffer and transmit queue. Nothing
// in this package logs them; LoconetCore.Enqueue drops a message silently
// when the slot pool is exhausted.
var (
	ErrChecksum           = errors.New("loconet: checksum mismatch")
	ErrInBandOpcode       = errors.New("loconet: in-band opcode, frame truncated")
	ErrBufferFull         = errors.New("loconet: ring buffer full")
	ErrQueueExhausted     = errors.New("loconet: tx slot pool exhausted")
	ErrNotProgramming     = errors.New("loconet: lncv write outside programming mode")
	ErrLncvOutOfRange     = errors.New("loconet: lncv number out of range")
	ErrStoreUninitialised = errors.New("loconet: config store uninitialised")
)

// checksumOf returns the XOR of all bytes in frame. A well-formed frame's
// last byte is chosen so that this XOR equals 0xFF.
func checksumOf(frame []byte) byte {
	var x byte
	for _, b := range frame {
		x ^= b
	}
	return x
}

// validChecksum reports whether frame (opcode..checksum inclusive) is valid.
func validChecksum(frame []byte) bool {
	return checksumOf(frame) == 0xFF
}

// appendChecksum appends the trailing checksum byte to a frame whose bytes
// (opcode and payload) are already in place.
func appendChecksum(frame []byte) []byte {
	return append(frame, checksumOf(frame)^0xFF)
}
