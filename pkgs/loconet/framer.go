package loconet

// Framer scans a RingBuffer for Loconet frames: opcode detection, length-
// class resolution, mid-frame collision resync, and checksum verification.
// Grounded on original_source/src/loconet/loconet_rx.c's loconet_rx_process,
// the more complete of the firmware's two Framer variants.
type Framer struct {
	ring *RingBuffer
}

// NewFramer wraps a RingBuffer with framing logic.
func NewFramer(ring *RingBuffer) *Framer {
	return &Framer{ring: ring}
}

// messageLength returns the total frame length (including opcode and
// checksum) for a given opcode byte, and its length class. For
// ClassVariable the returned length is 0; the caller reads it from the
// byte after the opcode.
func messageLength(opcode byte) (length int, class int) {
	class = int((opcode >> 5) & 0x03)
	switch class {
	case ClassTwo:
		return 2, class
	case ClassFour:
		return 4, class
	case ClassSix:
		return 6, class
	default:
		return 0, ClassVariable // resolved by peeking the next byte
	}
}

// Process runs one iteration of the framing algorithm (spec §4.2) and
// returns the resulting status plus, on StatusProcessed, the verified
// frame bytes (opcode through checksum, inclusive).
func (f *Framer) Process() (FrameStatus, []byte) {
	if f.ring.Len() < 2 {
		return StatusIdle, nil
	}

	opcode, ok := f.ring.Peek(0)
	if !ok {
		return StatusIdle, nil
	}
	if opcode&0x80 == 0 {
		// Out-of-frame debris: not an opcode byte.
		f.ring.Advance(1)
		return StatusRetry, nil
	}

	length, class := messageLength(opcode)
	if class == ClassVariable {
		lenByte, ok := f.ring.Peek(1)
		if !ok {
			return StatusIdle, nil
		}
		length = int(lenByte)
		if length < 3 {
			// Malformed variable length; treat as debris and resync.
			f.ring.Advance(1)
			return StatusRetry, nil
		}
	}

	// Scan for an in-band opcode byte that would indicate the current
	// frame was truncated by a collision. Only scan over what's actually
	// buffered so far.
	scanLimit := length
	if f.ring.Len() < scanLimit {
		scanLimit = f.ring.Len()
	}
	for i := 1; i < scanLimit; i++ {
		b, ok := f.ring.Peek(i)
		if !ok {
			break
		}
		if b&0x80 != 0 {
			f.ring.Advance(i)
			return StatusRetry, nil
		}
	}

	// Resolved Open Question 1: the `<` bound. Not yet fully buffered.
	if f.ring.Len() < length {
		return StatusIdle, nil
	}

	frame := make([]byte, length)
	for i := 0; i < length; i++ {
		b, _ := f.ring.Peek(i)
		frame[i] = b
	}

	if !validChecksum(frame) {
		f.ring.Advance(length)
		return StatusRetry, nil
	}

	f.ring.Advance(length)
	return StatusProcessed, frame
}

// Drain calls Process repeatedly, invoking handle for every StatusProcessed
// frame, until Process returns StatusIdle. This is the main-loop driver
// described in spec §4.2.
func (f *Framer) Drain(handle func(frame []byte)) {
	for {
		status, frame := f.Process()
		switch status {
		case StatusProcessed:
			handle(frame)
		case StatusRetry:
			continue
		case StatusIdle:
			return
		}
	}
}
