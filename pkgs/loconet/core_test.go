package loconet

import (
	"errors"
	"testing"
)

type stubTransport struct {
	written []byte
}

func (s *stubTransport) ReadByte() (byte, error) { return 0, errors.New("unused in this test") }
func (s *stubTransport) WriteByte(b byte) error  { s.written = append(s.written, b); return nil }
func (s *stubTransport) Edges() <-chan EdgeEvent { return nil }

func idleAccessMachine(priority uint8) *AccessStateMachine {
	m := NewAccessStateMachine(false, priority)
	m.ArmTimer = noopArmer
	m.HandleEdgeRising()
	m.HandleTimerExpiry() // carrier -> master
	m.HandleTimerExpiry() // master -> priority
	m.HandleTimerExpiry() // priority -> idle
	return m
}

// Scenario 2 (spec §8): collision during transmit requeues the in-flight
// message at the head of the queue, reset to tx_index == rx_index == 0.
func TestCoreCollisionDuringTransmitRequeues(t *testing.T) {
	transport := &stubTransport{}
	store := memStore{}
	core := NewLoconetCore(transport, store, Config{RingCapacity: 64, QueueCapacity: 8}, Handlers{})
	core.access = idleAccessMachine(5)

	frame := []byte{OpSwitchRequest, 0x10, 0x20, 0x00}
	frame[3] = checksumOf(frame[:3])
	core.Enqueue(frame, 3)

	core.maybeStartTransmit()
	if core.current == nil {
		t.Fatalf("maybeStartTransmit did not start a transmission on an idle bus")
	}
	if core.access.State() != StateTransmitting {
		t.Fatalf("access state = %v; want StateTransmitting", core.access.State())
	}

	core.transmitStep() // sends byte 0, tx_index -> 1
	if len(transport.written) != 1 || transport.written[0] != frame[0] {
		t.Fatalf("transport.written = %v; want first frame byte sent", transport.written)
	}

	core.ring.Push(frame[0]) // correct echo
	core.transmitStep()      // consumes echo, rx_index -> 1
	if core.current.RxIndex != 1 {
		t.Fatalf("rx_index after good echo = %d; want 1", core.current.RxIndex)
	}

	core.transmitStep()  // sends byte 1, tx_index -> 2
	core.ring.Push(0xFF) // corrupted echo (collision)
	core.transmitStep()  // detects mismatch

	if core.current != nil {
		t.Fatalf("current message was not released back to the queue after collision")
	}
	if core.access.State() != StateCollisionLineBreak {
		t.Fatalf("access state after collision = %v; want StateCollisionLineBreak", core.access.State())
	}
	if !core.access.Status().Collision {
		t.Fatalf("Status().Collision = false after collision")
	}

	if core.queue.Len() != 1 {
		t.Fatalf("queue length after requeue = %d; want 1", core.queue.Len())
	}
	msg, idx, ok := core.queue.Dequeue()
	if !ok {
		t.Fatalf("Dequeue failed after requeue")
	}
	if msg.TxIndex != 0 || msg.RxIndex != 0 {
		t.Fatalf("requeued message indices = (%d,%d); want (0,0)", msg.TxIndex, msg.RxIndex)
	}
	if string(msg.Data) != string(frame) {
		t.Fatalf("requeued message data mismatch")
	}
	core.queue.Release(idx)
}

func TestCoreMaybeStartTransmitRefusesWhenBusNotIdle(t *testing.T) {
	transport := &stubTransport{}
	store := memStore{}
	core := NewLoconetCore(transport, store, Config{RingCapacity: 64, QueueCapacity: 8}, Handlers{})
	// access starts out not idle (default AccessStateMachine state).

	core.Enqueue([]byte{OpBusy, 0x00}, 2)
	core.maybeStartTransmit()

	if core.current != nil {
		t.Fatalf("maybeStartTransmit started a transmission while the bus was not idle")
	}
	if core.queue.Len() != 1 {
		t.Fatalf("queue length = %d; want 1 (message must remain queued)", core.queue.Len())
	}
}
