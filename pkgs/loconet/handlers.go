package loconet

// FastClockTime is the snapshot delivered to OnFastClockUpdate.
type FastClockTime struct {
	Day    uint8
	Hour   uint8
	Minute uint8
	Second uint8
	Rate   uint8
}

// Handlers is the application's capability set: a struct of optional
// callbacks, each defaulted to a no-op. This replaces the original
// firmware's weak-symbol/alias dispatch (SPEC_FULL.md §9) with ordinary
// Go values supplied at LoconetCore construction.
type Handlers struct {
	// OnInputRep and OnSwitchReq demultiplex fixed-arity receive opcodes.
	OnInputRep  func(in1, in2 byte)
	OnSwitchReq func(sw1, sw2 byte)

	// OnLncvWritten fires after a successful LNCV write has been
	// persisted. WriteAllowed is consulted beforehand and is a pure
	// ack-code predicate with no side effect (resolved Open Question 3).
	OnLncvWritten func(number, value uint16)
	WriteAllowed  func(number, value uint16) AckCode

	// OnFastClockUpdate fires on every fast-clock minute boundary and
	// after every accepted slave sync.
	OnFastClockUpdate func(t FastClockTime)

	// OnOutputChange is an output-mask event hook for the application.
	// Nothing in this package invokes it; pkgs/domotica reports its
	// output changes through its own OutputApplier instead.
	OnOutputChange func(maskOn, maskOff uint16)

	// OnPeerXfer receives peer-transfer frames (0xE5/0xED) that are not
	// recognized LNCV requests.
	OnPeerXfer func(payload []byte)
}

// normalize returns a copy of h with every nil field replaced by a no-op,
// the Go analogue of the firmware's default weak-alias handlers.
func (h Handlers) normalize() Handlers {
	if h.OnInputRep == nil {
		h.OnInputRep = func(byte, byte) {}
	}
	if h.OnSwitchReq == nil {
		h.OnSwitchReq = func(byte, byte) {}
	}
	if h.OnLncvWritten == nil {
		h.OnLncvWritten = func(uint16, uint16) {}
	}
	if h.WriteAllowed == nil {
		h.WriteAllowed = func(uint16, uint16) AckCode { return AckOK }
	}
	if h.OnFastClockUpdate == nil {
		h.OnFastClockUpdate = func(FastClockTime) {}
	}
	if h.OnOutputChange == nil {
		h.OnOutputChange = func(uint16, uint16) {}
	}
	if h.OnPeerXfer == nil {
		h.OnPeerXfer = func([]byte) {}
	}
	return h
}
