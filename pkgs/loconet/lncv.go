package loconet

import "encoding/binary"

// ConfigStore is the persistent key→value store for LNCVs and bus
// configuration (node address, priority, ...). Implemented externally
// (pkgs/configstore carries a sqlite-backed implementation); defined here
// because the consumer, not the implementer, owns a Go interface.
type ConfigStore interface {
	Get(key uint16) (value uint16, ok bool, err error)
	Set(key, value uint16) error
	Init(defaults map[uint16]uint16) error
}

// Reserved LNCV keys, spec §3/§6.
const (
	LncvKeyAddress     uint16 = 0
	LncvKeyDeviceMagic uint16 = 1
	LncvKeyPriority    uint16 = 2
	LncvKeyFastClock   uint16 = 3
)

// LNCV request-id and flag values carried in the peer-xfer payload.
const (
	LncvReqRead  byte = 0x00
	LncvReqWrite byte = 0x01

	LncvFlagNone    byte = 0x00
	LncvFlagProgOn  byte = 0x01
	LncvFlagProgOff byte = 0x02
)

// LncvSourceModule identifies this node as the response's source.
const LncvSourceModule byte = 0x00

// LncvRequest is the parsed form of a 12-byte peer-xfer payload, spec §3/§6.
type LncvRequest struct {
	Source      byte
	Destination uint16
	RequestID   byte
	DeviceClass uint16
	LncvNumber  uint16
	LncvValue   uint16
	Flags       byte
}

// ParseLncvRequest decodes a 12-byte LNCV peer-xfer payload, reversing the
// 7-bit-clean MSB packing in place (mutates a copy, not the caller's slice).
func ParseLncvRequest(payload []byte) (*LncvRequest, error) {
	if len(payload) != 12 {
		return nil, ErrLncvOutOfRange
	}
	buf := make([]byte, 12)
	copy(buf, payload)

	msb := buf[4]
	unpackMSB(buf[5:12], msb)

	return &LncvRequest{
		Source:      buf[0],
		Destination: binary.LittleEndian.Uint16(buf[1:3]),
		RequestID:   buf[3],
		DeviceClass: binary.LittleEndian.Uint16(buf[5:7]),
		LncvNumber:  binary.LittleEndian.Uint16(buf[7:9]),
		LncvValue:   binary.LittleEndian.Uint16(buf[9:11]),
		Flags:       buf[11],
	}, nil
}

// BuildLncvRequest assembles a 12-byte LNCV peer-xfer request frame as sent
// by an operator tool addressing a module (source LncvSourceKPU), applying
// the same MSB packing the module side expects on receipt.
func BuildLncvRequest(destination uint16, reqID byte, deviceClass, number, value uint16, flags byte) []byte {
	payload := make([]byte, 12)
	payload[0] = LncvSourceKPU
	binary.LittleEndian.PutUint16(payload[1:3], destination)
	payload[3] = reqID
	binary.LittleEndian.PutUint16(payload[5:7], deviceClass)
	binary.LittleEndian.PutUint16(payload[7:9], number)
	binary.LittleEndian.PutUint16(payload[9:11], value)
	payload[11] = flags

	msb := packMSB(payload[5:12])
	payload[4] = msb

	var b MessageBuilder
	return b.BuildVariable(OpPeerXfer, payload)
}

// LncvEngine implements programming-mode entry/exit and LNCV read/write,
// grounded on original_source/src/loconet/loconet_cv.c.
type LncvEngine struct {
	store       ConfigStore
	deviceClass uint16
	maxLncv     uint16
	handlers    *Handlers
	builder     MessageBuilder
	enqueue     func(frame []byte, priority uint8)

	programming bool
}

// NewLncvEngine builds an engine bound to store, reporting deviceClass to
// peers and rejecting numbers >= maxLncv. enqueue is called to place
// outgoing response frames onto the node's TxQueue.
func NewLncvEngine(store ConfigStore, deviceClass uint16, maxLncv uint16, handlers *Handlers, enqueue func([]byte, uint8)) *LncvEngine {
	return &LncvEngine{
		store:       store,
		deviceClass: deviceClass,
		maxLncv:     maxLncv,
		handlers:    handlers,
		enqueue:     enqueue,
	}
}

// Programming reports whether programming mode is currently active.
func (e *LncvEngine) Programming() bool { return e.programming }

// HandlePeerXfer processes a parsed LNCV peer-xfer request (dispatched by
// the Dispatcher when payload[0] matches LncvSourceKPU and length == 12).
func (e *LncvEngine) HandlePeerXfer(req *LncvRequest) {
	if req.DeviceClass != e.deviceClass {
		return
	}

	switch req.Flags {
	case LncvFlagProgOn:
		e.handleProgOn(req)
		return
	case LncvFlagProgOff:
		e.programming = false
		return
	}

	if req.RequestID == LncvReqWrite {
		e.handleWrite(req)
		return
	}
	e.handleRead(req)
}

func (e *LncvEngine) handleProgOn(req *LncvRequest) {
	if req.LncvNumber != 0 {
		return
	}
	address, _, _ := e.store.Get(LncvKeyAddress)
	if req.LncvValue != 0xFFFF && req.LncvValue != address {
		return
	}
	e.programming = true
	// Echo the current address back, as a read of lncv 0 would.
	e.sendResponse(req, LncvKeyAddress, address, 0)
}

func (e *LncvEngine) handleRead(req *LncvRequest) {
	if req.LncvNumber >= e.maxLncv {
		e.sendLongAck(AckOutOfRange)
		return
	}
	value, _, _ := e.store.Get(req.LncvNumber)
	e.sendResponse(req, req.LncvNumber, value, 0)
}

func (e *LncvEngine) handleWrite(req *LncvRequest) {
	if !e.programming {
		return
	}
	if req.LncvNumber >= e.maxLncv {
		e.sendLongAck(AckOutOfRange)
		return
	}
	if req.LncvNumber == LncvKeyDeviceMagic {
		e.sendLongAck(AckReadOnly)
		return
	}

	// WriteAllowed is a pure ack-code predicate: it has no side effect.
	// The write and OnLncvWritten fire only after a positive result
	// (resolved Open Question 3).
	ack := e.handlers.WriteAllowed(req.LncvNumber, req.LncvValue)
	if ack != AckOK {
		e.sendLongAck(ack)
		return
	}

	current, _, _ := e.store.Get(req.LncvNumber)
	if current != req.LncvValue {
		if err := e.store.Set(req.LncvNumber, req.LncvValue); err != nil {
			e.sendLongAck(AckInvalidValue)
			return
		}
		e.handlers.OnLncvWritten(req.LncvNumber, req.LncvValue)
	}
	e.sendLongAck(AckOK)
}

func (e *LncvEngine) sendLongAck(ack AckCode) {
	frame, priority := e.builder.LongAck(OpPeerXfer, ack)
	e.enqueue(frame, priority)
}

// sendResponse assembles and enqueues a 12-byte peer-xfer response
// mirroring req, with the seven-byte MSB-clean packing applied.
func (e *LncvEngine) sendResponse(req *LncvRequest, number, value uint16, flags byte) {
	payload := make([]byte, 12)
	payload[0] = LncvSourceModule
	binary.LittleEndian.PutUint16(payload[1:3], uint16(req.Source))
	payload[3] = LncvReqRead
	binary.LittleEndian.PutUint16(payload[5:7], e.deviceClass)
	binary.LittleEndian.PutUint16(payload[7:9], number)
	binary.LittleEndian.PutUint16(payload[9:11], value)
	payload[11] = flags

	msb := packMSB(payload[5:12])
	payload[4] = msb

	frame := e.builder.BuildVariable(OpPeerXfer, payload)
	e.enqueue(frame, 1)
}
