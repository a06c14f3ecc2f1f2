package loconet

// Handler function shapes for the Dispatcher's four arity-class tables,
// grounded on original_source/src/loconet/loconet.c's ln_messages_0/2/4/n
// fixed handler tables.
type (
	Handler0 func()
	Handler2 func(a, b byte)
	Handler4 func(a, b, c, d byte)
	HandlerN func(payload []byte)
)

// Dispatcher routes a verified frame (as produced by Framer.Process) to
// one of four fixed 32-entry handler tables keyed by the opcode's low 5
// bits, plus the special-cased sub-opcode routing for fast-clock,
// programming-task and LNCV peer-xfer frames (spec §4.3). Unregistered
// entries are no-ops, overridable by the application via Register*.
type Dispatcher struct {
	table0 [32]Handler0
	table2 [32]Handler2
	table4 [32]Handler4
	tableN [32]HandlerN

	lncv      *LncvEngine
	fastClock *FastClock
	handlers  *Handlers
}

// NewDispatcher builds a dispatcher with every table entry defaulted to
// no-op, then wires the sub-opcode collaborators.
func NewDispatcher(lncv *LncvEngine, fastClock *FastClock, handlers *Handlers) *Dispatcher {
	d := &Dispatcher{lncv: lncv, fastClock: fastClock, handlers: handlers}
	for i := range d.table0 {
		d.table0[i] = func() {}
	}
	for i := range d.table2 {
		d.table2[i] = func(byte, byte) {}
	}
	for i := range d.table4 {
		d.table4[i] = func(byte, byte, byte, byte) {}
	}
	for i := range d.tableN {
		d.tableN[i] = func([]byte) {}
	}
	return d
}

// RegisterOpcode0 installs h as the handler for a class-4 (2-byte) opcode.
func (d *Dispatcher) RegisterOpcode0(opcode byte, h Handler0) {
	d.table0[opcode&0x1F] = h
}

// RegisterOpcode2 installs h as the handler for a class-5 (4-byte) opcode.
func (d *Dispatcher) RegisterOpcode2(opcode byte, h Handler2) {
	d.table2[opcode&0x1F] = h
}

// RegisterOpcode4 installs h as the handler for a class-6 (6-byte) opcode.
func (d *Dispatcher) RegisterOpcode4(opcode byte, h Handler4) {
	d.table4[opcode&0x1F] = h
}

// RegisterOpcodeN installs h as the handler for a class-7 (variable-length)
// opcode not otherwise special-cased below.
func (d *Dispatcher) RegisterOpcodeN(opcode byte, h HandlerN) {
	d.tableN[opcode&0x1F] = h
}

// Dispatch routes a verified frame to its handler. frame includes the
// opcode and the trailing checksum.
func (d *Dispatcher) Dispatch(frame []byte) {
	opcode := frame[0]
	class := (opcode >> 5) & 0x03

	switch class {
	case ClassTwo:
		d.table0[opcode&0x1F]()
	case ClassFour:
		d.table2[opcode&0x1F](frame[1], frame[2])
	case ClassSix:
		d.table4[opcode&0x1F](frame[1], frame[2], frame[3], frame[4])
	case ClassVariable:
		length := frame[1]
		payload := frame[2 : length-1]
		d.dispatchVariable(opcode, payload)
	}
}

func (d *Dispatcher) dispatchVariable(opcode byte, payload []byte) {
	switch opcode {
	case OpWriteSlotData:
		if len(payload) > 0 && payload[0] == SubFastClock {
			d.fastClock.HandleWireMessage(payload)
			return
		}
		if len(payload) > 0 && payload[0] == SubProgrammingTask {
			return // programming-task start: no further core semantics
		}
	case OpReadSlotData:
		if len(payload) > 0 && payload[0] == SubProgrammingTask {
			return // programming-task final: no further core semantics
		}
	case OpPeerXfer, OpImmPacket:
		if len(payload) == 12 && payload[0] == LncvSourceKPU {
			if req, err := ParseLncvRequest(payload); err == nil {
				d.lncv.HandlePeerXfer(req)
			}
			return
		}
		d.handlers.OnPeerXfer(payload)
		return
	}
	d.tableN[opcode&0x1F](payload)
}
