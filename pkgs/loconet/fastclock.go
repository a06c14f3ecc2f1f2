package loconet

import "sync"

// Fast-clock wire encoding offsets, spec §4.7/§6. minute_byte and hour_byte
// are shifted by a fixed bias so that small values stay 7-bit clean without
// needing the MSB-packing helper; day is reduced mod 7.
const (
	fastClockMinuteBias = 128 - 60
	fastClockHourBias   = 128 - 24
)

// FastClock implements the tick accumulator, slave sync and master
// broadcast described in SPEC_FULL.md §4.8, grounded on
// original_source/src/components/fast_clock.c.
type FastClock struct {
	mu sync.Mutex

	day, hour, minute, second uint8
	rate                      uint8
	subsecond                 int

	isMaster               bool
	id1, id2               byte
	intermessageDelayTicks int
	intermessageCounter    int

	handlers *Handlers
	builder  MessageBuilder
	enqueue  func(frame []byte, priority uint8)
}

// NewFastClock builds a clock. intermessageDelayTicks bounds how many
// 50ms ticks pass between master broadcasts.
func NewFastClock(isMaster bool, id1, id2 byte, intermessageDelayTicks int, handlers *Handlers, enqueue func([]byte, uint8)) *FastClock {
	return &FastClock{
		isMaster:               isMaster,
		id1:                    id1,
		id2:                    id2,
		intermessageDelayTicks: intermessageDelayTicks,
		handlers:               handlers,
		enqueue:                enqueue,
		rate:                   1,
	}
}

// Snapshot returns the current time state.
func (f *FastClock) Snapshot() FastClockTime {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *FastClock) snapshotLocked() FastClockTime {
	return FastClockTime{
		Day:    f.day,
		Hour:   f.hour,
		Minute: f.minute,
		Second: f.second,
		Rate:   f.rate,
	}
}

// Tick accumulates one 50ms real-time step, scaled by rate. Every time the
// subsecond accumulator reaches 200 it is reduced and the second counter
// advances, cascading into minute/hour/day. OnFastClockUpdate fires only
// on minute boundaries. If this clock is the master and the inter-message
// counter exceeds its threshold, a broadcast is enqueued.
func (f *FastClock) Tick() {
	f.mu.Lock()

	f.subsecond += int(f.rate)
	minuteRolled := false
	for f.subsecond >= 200 {
		f.subsecond -= 200
		f.second++
		if f.second >= 60 {
			f.second = 0
			f.minute++
			minuteRolled = true
			if f.minute >= 60 {
				f.minute = 0
				f.hour++
				if f.hour >= 24 {
					f.hour = 0
					f.day = (f.day + 1) % 7
				}
			}
		}
	}

	var snap FastClockTime
	if minuteRolled {
		snap = f.snapshotLocked()
	}

	shouldBroadcast := false
	if f.isMaster {
		f.intermessageCounter++
		if f.intermessageCounter > f.intermessageDelayTicks {
			f.intermessageCounter = 0
			shouldBroadcast = true
		}
	}
	f.mu.Unlock()

	if minuteRolled {
		f.handlers.OnFastClockUpdate(snap)
	}
	if shouldBroadcast {
		f.broadcast()
	}
}

// buildPayload encodes the current time into the wire layout: subopcode,
// rate, frac_minsl, frac_minsh, minute_encoded, hour_encoded, day_encoded,
// id1, id2, validity. The trailing validity byte is a fixed marker (always
// 1 on transmit) at a dedicated offset, since the abstracted field list in
// SPEC_FULL.md §6 does not itself number one of the eight named fields as
// the validity byte.
func (f *FastClock) buildPayload() []byte {
	fracLow := byte(f.subsecond & 0x7F)
	fracHigh := byte((f.subsecond >> 7) & 0x7F)
	minuteByte := f.minute + fastClockMinuteBias
	hourByte := f.hour + fastClockHourBias
	dayByte := f.day % 7

	return []byte{
		SubFastClock,
		f.rate,
		fracLow,
		fracHigh,
		minuteByte,
		hourByte,
		dayByte,
		f.id1,
		f.id2,
		1, // validity
	}
}

func (f *FastClock) broadcast() {
	f.mu.Lock()
	payload := f.buildPayload()
	f.mu.Unlock()
	frame := f.builder.BuildVariable(OpWriteSlotData, payload)
	f.enqueue(frame, 5)
}

// HandleWireMessage decodes an incoming fast-clock payload (as routed by
// the Dispatcher for opcode 0xEF sub-opcode 0x7B) and, if valid, applies
// it as a slave sync: overwrite rate/minute/hour/day, reset subsecond and
// second, and fire the update callback exactly once.
func (f *FastClock) HandleWireMessage(payload []byte) {
	if len(payload) < 10 || payload[9] != 1 {
		return
	}
	rate := payload[1]
	minute := payload[4] - fastClockMinuteBias
	var hour uint8
	if payload[5] >= fastClockHourBias {
		hour = payload[5] - fastClockHourBias
	} else {
		hour = payload[5] % 24
	}
	day := payload[6] % 7

	f.mu.Lock()
	f.rate = rate
	f.minute = minute
	f.hour = hour
	f.day = day
	f.second = 0
	f.subsecond = 0
	snap := f.snapshotLocked()
	f.mu.Unlock()

	f.handlers.OnFastClockUpdate(snap)
}
