package loconet

// MessageBuilder assembles and checksums outgoing Loconet frames. Grounded
// on original_source/src/loconet/loconet_tx_messages.c for the fixed
// catalog, and on the teacher's pkgs/commandstation/z21_proto.go for the
// checksum-then-buffer style (xorSum over a binary-built buffer).
type MessageBuilder struct{}

// BuildTwo assembles a 2-byte frame: opcode, checksum.
func (MessageBuilder) BuildTwo(opcode byte) []byte {
	frame := []byte{opcode}
	return appendChecksum(frame)
}

// BuildFour assembles a 4-byte frame: opcode, a, b, checksum.
func (MessageBuilder) BuildFour(opcode, a, b byte) []byte {
	frame := []byte{opcode, a, b}
	return appendChecksum(frame)
}

// BuildSix assembles a 6-byte frame: opcode, a, b, c, d, checksum.
func (MessageBuilder) BuildSix(opcode, a, b, c, d byte) []byte {
	frame := []byte{opcode, a, b, c, d}
	return appendChecksum(frame)
}

// BuildVariable assembles a variable-length frame: opcode, length (including
// opcode and checksum), payload..., checksum.
func (MessageBuilder) BuildVariable(opcode byte, payload []byte) []byte {
	length := byte(len(payload) + 3)
	frame := make([]byte, 0, length)
	frame = append(frame, opcode, length)
	frame = append(frame, payload...)
	return appendChecksum(frame)
}

// Busy builds the 0x81 "busy" message, priority 1.
func (m MessageBuilder) Busy() (frame []byte, priority uint8) {
	return m.BuildTwo(OpBusy), 1
}

// GlobalPowerOff builds 0x82, priority 5.
func (m MessageBuilder) GlobalPowerOff() (frame []byte, priority uint8) {
	return m.BuildTwo(OpGlobalPowerOff), 5
}

// GlobalPowerOn builds 0x83, priority 5.
func (m MessageBuilder) GlobalPowerOn() (frame []byte, priority uint8) {
	return m.BuildTwo(OpGlobalPowerOn), 5
}

// Idle builds 0x85, priority 1.
func (m MessageBuilder) Idle() (frame []byte, priority uint8) {
	return m.BuildTwo(OpIdle), 1
}

// SwitchRequest builds a 0xB0 request for the given address (1-based,
// 11-bit), throw direction and on/off state, priority 5.
func (m MessageBuilder) SwitchRequest(address uint16, direction, on bool) (frame []byte, priority uint8) {
	address--
	a := byte(address & 0x7F)
	b := byte((address >> 7) & 0x0F)
	if direction {
		b |= 0x20
	}
	if on {
		b |= 0x10
	}
	return m.BuildFour(OpSwitchRequest, a, b), 5
}

// SwitchReport builds a 0xB1 sensor/switch report, priority 5.
func (m MessageBuilder) SwitchReport(address uint16, direction, input bool) (frame []byte, priority uint8) {
	address--
	a := byte(address & 0x7F)
	b := byte((address >> 7) & 0x0F)
	if direction {
		b |= 0x20
	}
	if input {
		b |= 0x10
	}
	return m.BuildFour(OpSwitchReport, a, b), 5
}

// InputReport builds a 0xB2 input report using the original firmware's
// 4K-address odd/even encoding trick: address is decremented, then shifted
// right by one bit, with the discarded low bit relocated into bit 5 of the
// second payload byte. Grounded on
// original_source/src/loconet/loconet_tx_messages.c's loconet_tx_input_rep.
func (m MessageBuilder) InputReport(address uint16, level bool) (frame []byte, priority uint8) {
	address--
	lowBit := address & 0x01
	address >>= 1
	a := byte(address & 0x7F)
	b := byte((address >> 7) & 0x0F)
	if lowBit != 0 {
		b |= 0x20
	}
	if level {
		b |= 0x10
	}
	return m.BuildFour(OpInputReport, a, b), 5
}

// LongAck builds a 0xB4 long-ack response, priority 1. Both bytes are
// masked to 7 bits per the wire layout.
func (m MessageBuilder) LongAck(lopc byte, ack AckCode) (frame []byte, priority uint8) {
	return m.BuildFour(OpLongAck, lopc&0x7F, byte(ack)&0x7F), 1
}
