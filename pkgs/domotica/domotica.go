// Package domotica is the reference application layered on top of
// pkgs/loconet: it turns B2xxx sensor reports into output-relay changes,
// exposes per-output dimming, and drives a small set of fast-clock-scheduled
// events. It is grounded on original_source/src/domotica/*.c.
package domotica

import (
	"sync/atomic"

	"github.com/keskad/locond/pkgs/loconet"
)

// Sizing and LNCV range constants. The original firmware's board-specific
// config header that defined these isn't part of the retained source, so
// these are a concrete choice for this reference consumer, documented here
// rather than guessed into the shared loconet package.
const (
	OutputSize       = 32
	ChangeBufferSize = 16

	MaxBrightness = 255

	LncvOutputBrightnessStart = 100
	LncvOutputBrightnessEnd   = LncvOutputBrightnessStart + OutputSize // 132

	InputAddressSlots       = 16
	LncvInputAddressesStart = 200
	LncvInputAddressesEnd   = LncvInputAddressesStart + InputAddressSlots*5 // 280

	FastClockScheduleSlots = 8
	LncvFastClockStart     = 50
	LncvFastClockEnd       = LncvFastClockStart + FastClockScheduleSlots*3 // 74

	// LncvFastClockMode is the single reserved LNCV (shared with
	// loconet.LncvKeyFastClock) controlling the node's fast-clock role.
	LncvFastClockMode = loconet.LncvKeyFastClock
)

// OutputApplier drives the physical outputs. Mask changes are queued and
// applied one at a time from Loop; brightness changes apply immediately,
// matching the original firmware's outputhandler_set_output_brightness call.
type OutputApplier interface {
	ApplyOutputChange(maskOn, maskOff uint16)
	SetBrightness(output int, value uint8)
}

// outputChange is a single queued relay-mask update.
type outputChange struct {
	maskOn  uint16
	maskOff uint16
}

// outputChangeQueue is a single-producer/single-consumer ring buffer of
// pending output changes, the Go analogue of domotica.c's
// DOMOTICA_OUTPUT_CHANGE_RINGBUFFER_Type. Enqueue is called from dispatch
// (the producer); Loop drains it (the consumer).
type outputChangeQueue struct {
	buffer [ChangeBufferSize]outputChange
	writer atomic.Uint32
	reader atomic.Uint32
}

func (q *outputChangeQueue) Enqueue(maskOn, maskOff uint16) {
	w := q.writer.Load()
	next := (w + 1) % ChangeBufferSize
	for next == q.reader.Load() {
		// Buffer full; the original firmware spins here too, trusting the
		// consumer loop to keep up.
	}
	q.buffer[w] = outputChange{maskOn: maskOn, maskOff: maskOff}
	q.writer.Store(next)
}

func (q *outputChangeQueue) Dequeue() (outputChange, bool) {
	r := q.reader.Load()
	w := q.writer.Load()
	if r == w {
		return outputChange{}, false
	}
	change := q.buffer[r]
	q.reader.Store((r + 1) % ChangeBufferSize)
	return change, true
}

// inputAddressEntry binds a B2xxx sensor address to the base LNCV number
// holding its mask configuration (base+1..base+4).
type inputAddressEntry struct {
	lncv    uint16
	address uint16
}

// extractB2Address decodes a two-byte Loconet input-report address field
// into the doubled, ±1/±2-biased 4K address space (spec §9's domotica
// supplement), grounded on domotica_rx.c's extract_b2_address.
func extractB2Address(in1, in2 byte) uint16 {
	address := uint16(in1) | (uint16(in2&0x0F) << 7)
	address <<= 1
	if in2&0x20 != 0 {
		address += 2
	} else {
		address += 1
	}
	return address
}

// extractState reports the input's reported state bit (bit 4 of in2).
func extractState(in2 byte) bool {
	return in2&0x10 != 0
}

// Domotica wires the domotica reference behavior into a loconet.Handlers
// value: sensor reports become queued output-mask changes, LNCV writes
// configure brightness/input-address/fast-clock-schedule tables, and
// fast-clock minute ticks trigger scheduled events.
type Domotica struct {
	store   loconet.ConfigStore
	applier OutputApplier

	brightness [OutputSize]uint8
	inputs     [InputAddressSlots]inputAddressEntry
	schedule   [FastClockScheduleSlots]uint16 // minute-of-day trigger time, 0xFFFF = unset
	lastFired  [FastClockScheduleSlots]uint16 // minute-of-day of the last firing, to fire at most once per match

	changes outputChangeQueue
}

// New builds a Domotica instance. store is the same ConfigStore backing the
// LNCV engine; applier receives the resulting output/brightness effects.
func New(store loconet.ConfigStore, applier OutputApplier) *Domotica {
	d := &Domotica{store: store, applier: applier}
	for i := range d.schedule {
		d.schedule[i] = 0xFFFF
		d.lastFired[i] = 0xFFFF
	}
	return d
}

// Handlers returns the loconet.Handlers capability set wired to this
// instance's logic, suitable for passing to loconet.NewLoconetCore.
func (d *Domotica) Handlers() loconet.Handlers {
	return loconet.Handlers{
		OnInputRep:        d.handleInputReport,
		WriteAllowed:      d.writeAllowed,
		OnLncvWritten:     d.handleLncvWritten,
		OnFastClockUpdate: d.handleFastClockUpdate,
	}
}

// Loop drains at most one queued output change per call, matching the
// original firmware's domotica_loop: it is meant to be called repeatedly
// from the host's main loop.
func (d *Domotica) Loop() {
	change, ok := d.changes.Dequeue()
	if !ok {
		return
	}
	d.applier.ApplyOutputChange(change.maskOn, change.maskOff)
}

// setInputAddress binds lncv's base slot to address, writing the first
// slot that is either empty or already bound to lncv (grounded on
// domotica_rx_set_input_address's linear scan).
func (d *Domotica) setInputAddress(lncv, address uint16) {
	for i := range d.inputs {
		if d.inputs[i].address == 0 || d.inputs[i].lncv == lncv {
			d.inputs[i] = inputAddressEntry{lncv: lncv, address: address}
			return
		}
	}
}

func (d *Domotica) lookupInputLncv(address uint16) (uint16, bool) {
	for _, entry := range d.inputs {
		if entry.address == address {
			return entry.lncv, true
		}
	}
	return 0, false
}

// handleInputReport turns a received B2xxx sensor report into a queued
// output-mask change, reading the corresponding mask pair from the config
// store the way the original reads loconet_cv_get(lncv+offset) live rather
// than caching it.
func (d *Domotica) handleInputReport(in1, in2 byte) {
	address := extractB2Address(in1, in2)
	state := extractState(in2)

	lncv, ok := d.lookupInputLncv(address)
	if !ok {
		return
	}

	var onOffset, offOffset uint16
	if state {
		onOffset, offOffset = 1, 2
	} else {
		onOffset, offOffset = 3, 4
	}
	maskOn, _, _ := d.store.Get(lncv + onOffset)
	maskOff, _, _ := d.store.Get(lncv + offOffset)
	d.changes.Enqueue(maskOn, maskOff)
}

// writeAllowed mirrors loconet_cv_write_allowed's range checks.
func (d *Domotica) writeAllowed(number, value uint16) loconet.AckCode {
	switch {
	case number == loconet.LncvKeyAddress:
		if value > 0 {
			return loconet.AckOK
		}
		return loconet.AckOutOfRange
	case number == loconet.LncvKeyPriority:
		if value > 0 && value <= 0x0F {
			return loconet.AckOK
		}
		return loconet.AckOutOfRange
	case number == LncvFastClockMode:
		if value < 3 {
			return loconet.AckOK
		}
		return loconet.AckOutOfRange
	case number >= LncvOutputBrightnessStart && number < LncvOutputBrightnessEnd:
		if value <= MaxBrightness {
			return loconet.AckOK
		}
		return loconet.AckOutOfRange
	case number >= LncvInputAddressesStart && number < LncvInputAddressesEnd:
		return loconet.AckOK
	case number >= LncvFastClockStart && number < LncvFastClockEnd:
		return loconet.AckOK
	default:
		return loconet.AckInvalidValue
	}
}

// handleLncvWritten mirrors loconet_cv_written_event's dispatch by LNCV
// range, applying the side effect a successful write should have.
func (d *Domotica) handleLncvWritten(number, value uint16) {
	switch {
	case number >= LncvOutputBrightnessStart && number < LncvOutputBrightnessEnd:
		if value <= MaxBrightness {
			output := int(number - LncvOutputBrightnessStart)
			d.brightness[output] = uint8(value)
			d.applier.SetBrightness(output, uint8(value))
		}
	case number >= LncvInputAddressesStart && number < LncvInputAddressesEnd:
		if (number-LncvInputAddressesStart)%5 == 0 {
			d.setInputAddress(number, value)
		}
	case number >= LncvFastClockStart && number < LncvFastClockEnd:
		if (number-LncvFastClockStart)%3 == 0 {
			slot := int(number-LncvFastClockStart) / 3
			d.schedule[slot] = value
		}
	}
}

// handleFastClockUpdate checks every schedule slot against the current
// minute-of-day and enqueues its mask change at most once per match.
func (d *Domotica) handleFastClockUpdate(t loconet.FastClockTime) {
	minuteOfDay := uint16(t.Hour)*60 + uint16(t.Minute)
	for slot, target := range d.schedule {
		if target == 0xFFFF || target != minuteOfDay {
			continue
		}
		if d.lastFired[slot] == minuteOfDay {
			continue
		}
		d.lastFired[slot] = minuteOfDay
		base := uint16(LncvFastClockStart + slot*3)
		maskOn, _, _ := d.store.Get(base + 1)
		maskOff, _, _ := d.store.Get(base + 2)
		d.changes.Enqueue(maskOn, maskOff)
	}
}
