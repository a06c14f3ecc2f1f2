package loconet

import (
	"testing"
	"time"
)

// noopArmer replaces the real timer with one that never fires on its own;
// tests drive the delay chain explicitly via HandleTimerExpiry, avoiding
// real microsecond-scale waits.
func noopArmer(_ time.Duration, _ func()) func() { return func() {} }

func TestAccessMachineIdleChainSlave(t *testing.T) {
	m := NewAccessStateMachine(false, 5)
	m.ArmTimer = noopArmer

	m.HandleEdgeRising()
	if m.State() != StateDelayCarrier {
		t.Fatalf("state after rising edge = %v; want StateDelayCarrier", m.State())
	}

	m.HandleTimerExpiry() // carrier -> master (not master)
	if m.State() != StateDelayMaster {
		t.Fatalf("state after carrier timeout = %v; want StateDelayMaster", m.State())
	}

	m.HandleTimerExpiry() // master -> priority (priority > 0)
	if m.State() != StateDelayPriority {
		t.Fatalf("state after master timeout = %v; want StateDelayPriority", m.State())
	}

	m.HandleTimerExpiry() // priority -> idle
	if m.State() != StateIdle || !m.Status().Idle {
		t.Fatalf("state after priority timeout = %v, idle=%v; want StateIdle,true", m.State(), m.Status().Idle)
	}
}

func TestAccessMachineMasterSkipsMasterDelay(t *testing.T) {
	m := NewAccessStateMachine(true, 0)
	m.ArmTimer = noopArmer

	m.HandleEdgeRising()
	m.HandleTimerExpiry() // carrier -> idle directly, since master
	if m.State() != StateIdle || !m.Status().Idle {
		t.Fatalf("master state after carrier timeout = %v, idle=%v; want StateIdle,true", m.State(), m.Status().Idle)
	}
}

func TestAccessMachineEdgeDuringChainRestarts(t *testing.T) {
	m := NewAccessStateMachine(false, 5)
	m.ArmTimer = noopArmer

	m.HandleEdgeRising()
	m.HandleTimerExpiry() // -> DelayMaster
	m.HandleEdgeRising()  // restart
	if m.State() != StateDelayCarrier {
		t.Fatalf("state after edge mid-chain = %v; want StateDelayCarrier (restarted)", m.State())
	}
}

func TestAccessMachineCollisionRecovery(t *testing.T) {
	m := NewAccessStateMachine(false, 5)
	m.ArmTimer = noopArmer
	m.HandleEdgeRising()
	m.HandleTimerExpiry()
	m.HandleTimerExpiry()
	m.HandleTimerExpiry() // now Idle

	if !m.BeginTransmit() {
		t.Fatalf("BeginTransmit() = false while bus idle")
	}
	if m.State() != StateTransmitting {
		t.Fatalf("state after BeginTransmit = %v; want StateTransmitting", m.State())
	}

	ok := m.HandleByteEcho(0x81, 0x82, false) // mismatch
	if ok {
		t.Fatalf("HandleByteEcho reported success on a mismatched byte")
	}
	if m.State() != StateCollisionLineBreak {
		t.Fatalf("state after echo mismatch = %v; want StateCollisionLineBreak", m.State())
	}
	if !m.Status().Collision {
		t.Fatalf("Status().Collision = false after echo mismatch")
	}
}

func TestAccessMachineRefusesTransmitWhenNotIdle(t *testing.T) {
	m := NewAccessStateMachine(false, 5)
	m.ArmTimer = noopArmer
	m.HandleEdgeRising() // now mid-chain, not idle

	if m.BeginTransmit() {
		t.Fatalf("BeginTransmit() = true while bus not idle")
	}
}
