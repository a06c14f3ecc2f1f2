package loconet

import (
	"sync"
	"time"
)

// State is the AccessStateMachine's current CSMA/CD state.
type State int

const (
	StateIdle State = iota
	StateReceiving
	StateDelayCarrier
	StateDelayMaster
	StateDelayPriority
	StateTransmitting
	StateCollisionLineBreak
)

// Bit time and cascaded delay windows, spec §4.5/§6. Fixed, not configurable.
const (
	BitTime        = 60 * time.Microsecond
	CarrierDelay   = 20 * BitTime // 1200 µs
	MasterDelay    = 6 * BitTime  // 360 µs
	LineBreakDelay = 15 * BitTime // 900 µs
)

// PriorityDelay returns the priority arbitration window for a given
// priority value (priority × 60 µs).
func PriorityDelay(priority uint8) time.Duration {
	return time.Duration(priority) * BitTime
}

// LinkStatus mirrors the original firmware's LOCONET_STATUS_Type bitfield
// (idle/transmitting/collision), expressed as plain bools rather than a
// packed bitfield.
type LinkStatus struct {
	Idle         bool
	Transmitting bool
	Collision    bool
}

// AccessStateMachine implements the CSMA/CD bus-access state table from
// SPEC_FULL.md §4.5. Timer arming is delegated to ArmTimer so the core can
// back it with a real clock, while tests can drive HandleTimerExpiry
// directly without waiting on real microsecond delays.
type AccessStateMachine struct {
	mu sync.Mutex

	state    State
	status   LinkStatus
	isMaster bool
	priority uint8

	// ArmTimer schedules fire to run once after d elapses, returning a
	// cancel function. Defaults to a real time.AfterFunc-backed timer;
	// tests may replace it with a no-op so they can call
	// HandleTimerExpiry synchronously.
	ArmTimer func(d time.Duration, fire func()) (cancel func())

	cancelTimer func()
}

// NewAccessStateMachine builds a state machine for a node with the given
// master flag and arbitration priority (1-15; 0 means "no extra delay").
func NewAccessStateMachine(isMaster bool, priority uint8) *AccessStateMachine {
	m := &AccessStateMachine{
		state:    StateIdle,
		isMaster: isMaster,
		priority: priority,
		status:   LinkStatus{Idle: false},
	}
	m.ArmTimer = func(d time.Duration, fire func()) func() {
		t := time.AfterFunc(d, fire)
		return func() { t.Stop() }
	}
	return m
}

func (m *AccessStateMachine) arm(phase State, d time.Duration) {
	if m.cancelTimer != nil {
		m.cancelTimer()
	}
	m.state = phase
	m.cancelTimer = m.ArmTimer(d, m.HandleTimerExpiry)
}

// State reports the current state under lock.
func (m *AccessStateMachine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status reports the current link status under lock.
func (m *AccessStateMachine) Status() LinkStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// HandleEdgeFalling processes a falling edge on the bus line.
func (m *AccessStateMachine) HandleEdgeFalling() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.Idle = false
	if m.state == StateIdle {
		m.arm(StateReceiving, LineBreakDelay)
		return
	}
	// Any edge during the carrier/master/priority chain restarts it.
	if m.state != StateTransmitting && m.state != StateCollisionLineBreak {
		m.arm(StateDelayCarrier, CarrierDelay)
	}
}

// HandleEdgeRising processes a rising edge on the bus line.
func (m *AccessStateMachine) HandleEdgeRising() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.Idle = false
	if m.state == StateTransmitting || m.state == StateCollisionLineBreak {
		return
	}
	m.arm(StateDelayCarrier, CarrierDelay)
}

// HandleTimerExpiry advances the delay chain (or resolves a line-break).
func (m *AccessStateMachine) HandleTimerExpiry() {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateReceiving:
		// Line-break window elapsed with no further edges; treat like
		// the carrier chain so the bus can settle to idle.
		m.arm(StateDelayCarrier, CarrierDelay)
	case StateDelayCarrier:
		if m.isMaster {
			m.state = StateIdle
			m.status.Idle = true
			m.cancelTimer = nil
		} else {
			m.arm(StateDelayMaster, MasterDelay)
		}
	case StateDelayMaster:
		if m.priority > 0 {
			m.arm(StateDelayPriority, PriorityDelay(m.priority))
		} else {
			m.state = StateIdle
			m.status.Idle = true
			m.cancelTimer = nil
		}
	case StateDelayPriority:
		m.state = StateIdle
		m.status.Idle = true
		m.cancelTimer = nil
	case StateCollisionLineBreak:
		m.status.Collision = false
		m.arm(StateDelayCarrier, CarrierDelay)
	}
}

// BeginTransmit attempts to start transmitting when the bus is idle and a
// message is available. Once this returns true the caller (LoconetCore)
// drives the message's bytes from its transmitStep.
func (m *AccessStateMachine) BeginTransmit() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.status.Idle || m.state != StateIdle {
		return false
	}
	m.state = StateTransmitting
	m.status.Idle = false
	m.status.Transmitting = true
	return true
}

// HandleByteEcho compares a self-echoed received byte against the expected
// byte at the message's current rx_index during Transmitting. It returns
// true if the byte matched (no collision).
func (m *AccessStateMachine) HandleByteEcho(expected, actual byte, framingError bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateTransmitting {
		return true
	}
	if framingError || expected != actual {
		m.status.Collision = true
		m.status.Transmitting = false
		m.arm(StateCollisionLineBreak, LineBreakDelay)
		return false
	}
	return true
}

// HandleTxComplete transitions Transmitting -> Idle-pending (the access
// machine waits for the next completed idle chain before reasserting
// Idle, matching the original table's "Idle (pending next idle window)").
func (m *AccessStateMachine) HandleTxComplete() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.Transmitting = false
	m.state = StateDelayCarrier
	m.arm(StateDelayCarrier, CarrierDelay)
}
