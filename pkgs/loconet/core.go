package loconet

import (
	"context"
	"time"
)

// EdgeEvent is a rising or falling edge observed on the bus line.
type EdgeEvent int

const (
	EdgeRising EdgeEvent = iota
	EdgeFalling
)

// Transport abstracts the MCU peripherals the original firmware drove
// directly: edge interrupts, the delay timer (folded into
// AccessStateMachine.ArmTimer), and byte I/O on the shared line. Defined
// here (the consumer) rather than in pkgs/transport (the implementer),
// per Go convention; pkgs/transport's serial and simulated implementations
// satisfy this structurally.
type Transport interface {
	ReadByte() (byte, error)
	WriteByte(b byte) error
	Edges() <-chan EdgeEvent
}

// Config holds the node identity used to construct a LoconetCore.
type Config struct {
	IsMaster    bool
	Priority    uint8
	DeviceClass uint16
	MaxLncv     uint16

	RingCapacity  int
	QueueCapacity int

	FastClockMaster       bool
	FastClockID1          byte
	FastClockID2          byte
	FastClockIntermessage int
}

// LoconetCore owns every piece of mutable link/tx state behind a single
// value, per SPEC_FULL.md §9's rearchitecture guidance. Its methods are
// the only way to mutate that state; Run's goroutines are thin trampolines
// that call into it.
type LoconetCore struct {
	transport Transport
	store     ConfigStore
	handlers  Handlers

	ring       *RingBuffer
	framer     *Framer
	dispatcher *Dispatcher
	queue      *TxQueue
	access     *AccessStateMachine
	lncv       *LncvEngine
	fastClock  *FastClock
	builder    MessageBuilder

	current    *Message
	currentIdx int
}

// NewLoconetCore wires every component together. handlers' nil fields are
// defaulted to no-ops (the capability-struct replacement for the
// firmware's weak-symbol dispatch).
func NewLoconetCore(transport Transport, store ConfigStore, cfg Config, handlers Handlers) *LoconetCore {
	h := handlers.normalize()

	c := &LoconetCore{
		transport:  transport,
		store:      store,
		handlers:   h,
		ring:       NewRingBuffer(cfg.RingCapacity),
		queue:      NewTxQueue(cfg.QueueCapacity),
		access:     NewAccessStateMachine(cfg.IsMaster, cfg.Priority),
		currentIdx: -1,
	}
	c.framer = NewFramer(c.ring)
	c.lncv = NewLncvEngine(store, cfg.DeviceClass, cfg.MaxLncv, &c.handlers, c.Enqueue)
	c.fastClock = NewFastClock(cfg.FastClockMaster, cfg.FastClockID1, cfg.FastClockID2, cfg.FastClockIntermessage, &c.handlers, c.Enqueue)
	c.dispatcher = NewDispatcher(c.lncv, c.fastClock, &c.handlers)
	c.dispatcher.RegisterOpcode2(OpSwitchRequest, func(a, b byte) { c.handlers.OnSwitchReq(a, b) })
	c.dispatcher.RegisterOpcode2(OpInputReport, func(a, b byte) { c.handlers.OnInputRep(a, b) })

	return c
}

// Enqueue places a frame with the given priority onto the transmit queue.
// It never touches the in-flight `current` message, but the insertion can
// land anywhere in the queue, including at its head. TxQueue has no lock
// of its own, so Enqueue is not safe to call concurrently with Run; the
// LNCV engine and fast clock call it from Run's own loop.
func (c *LoconetCore) Enqueue(frame []byte, priority uint8) {
	_, _ = c.queue.Enqueue(frame, priority)
}

// SendBuiltin is a convenience wrapper for the fixed MessageBuilder
// catalog, e.g. c.SendBuiltin(c.builder.Idle()).
func (c *LoconetCore) SendBuiltin(frame []byte, priority uint8) {
	c.Enqueue(frame, priority)
}

// Builder exposes the MessageBuilder so callers can construct and enqueue
// arbitrary outgoing messages.
func (c *LoconetCore) Builder() MessageBuilder { return c.builder }

// Access exposes the access state machine for inspection (tests, status
// reporting).
func (c *LoconetCore) Access() *AccessStateMachine { return c.access }

// Queue exposes the transmit queue for inspection.
func (c *LoconetCore) Queue() *TxQueue { return c.queue }

// Lncv exposes the LNCV engine, e.g. for Programming() status checks.
func (c *LoconetCore) Lncv() *LncvEngine { return c.lncv }

// FastClock exposes the fast-clock state machine.
func (c *LoconetCore) FastClock() *FastClock { return c.fastClock }

// Run drives the receive goroutine, the edge-event goroutine, and the
// cooperative main loop (framing + dispatch + transmit-queue service +
// fast-clock ticking) until ctx is cancelled.
func (c *LoconetCore) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go c.receiveLoop(ctx, errCh)
	go c.edgeLoop(ctx)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-ticker.C:
			c.fastClock.Tick()
		default:
		}

		if c.current != nil {
			c.transmitStep()
		} else {
			c.framer.Drain(c.dispatcher.Dispatch)
			c.maybeStartTransmit()
		}

		time.Sleep(100 * time.Microsecond)
	}
}

func (c *LoconetCore) receiveLoop(ctx context.Context, errCh chan<- error) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		b, err := c.transport.ReadByte()
		if err != nil {
			select {
			case errCh <- err:
			default:
			}
			return
		}
		c.ring.Push(b)
	}
}

func (c *LoconetCore) edgeLoop(ctx context.Context) {
	edges := c.transport.Edges()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-edges:
			if !ok {
				return
			}
			switch e {
			case EdgeRising:
				c.access.HandleEdgeRising()
			case EdgeFalling:
				c.access.HandleEdgeFalling()
			}
		}
	}
}

// maybeStartTransmit dequeues and begins sending the head message if the
// bus is idle. It is only called while c.current is nil.
func (c *LoconetCore) maybeStartTransmit() {
	if c.queue.Len() == 0 {
		return
	}
	if !c.access.BeginTransmit() {
		return
	}
	msg, idx, ok := c.queue.Dequeue()
	if !ok {
		return
	}
	c.current = msg
	c.currentIdx = idx
}

// transmitStep drives one byte of the in-flight message, or consumes one
// self-echoed byte from the ring and checks it against the expected byte.
// While transmitting, bytes arriving on the wire are this node's own echo,
// not unrelated frames, so they bypass the Framer entirely (mirroring the
// original firmware, where the same USART RX path carries both).
func (c *LoconetCore) transmitStep() {
	msg := c.current
	if msg.TxIndex < len(msg.Data) && msg.TxIndex == msg.RxIndex {
		b := msg.Data[msg.TxIndex]
		if err := c.transport.WriteByte(b); err != nil {
			c.queue.Requeue(c.currentIdx)
			c.current = nil
			return
		}
		msg.TxIndex++
		return
	}

	b, ok := c.ring.Peek(0)
	if !ok {
		return
	}
	c.ring.Advance(1)

	expected := msg.Data[msg.RxIndex]
	if !c.access.HandleByteEcho(expected, b, false) {
		c.queue.Requeue(c.currentIdx)
		c.current = nil
		return
	}
	msg.RxIndex++
	if msg.RxIndex == len(msg.Data) {
		c.access.HandleTxComplete()
		c.queue.Release(c.currentIdx)
		c.current = nil
	}
}
