package domotica

import (
	"testing"

	"github.com/keskad/locond/pkgs/loconet"
)

type memStore map[uint16]uint16

func (s memStore) Get(key uint16) (uint16, bool, error) {
	v, ok := s[key]
	return v, ok, nil
}
func (s memStore) Set(key, value uint16) error {
	s[key] = value
	return nil
}
func (s memStore) Init(defaults map[uint16]uint16) error {
	for k, v := range defaults {
		s[k] = v
	}
	return nil
}

type fakeApplier struct {
	changes    []outputChange
	brightness map[int]uint8
}

func newFakeApplier() *fakeApplier {
	return &fakeApplier{brightness: map[int]uint8{}}
}

func (f *fakeApplier) ApplyOutputChange(maskOn, maskOff uint16) {
	f.changes = append(f.changes, outputChange{maskOn: maskOn, maskOff: maskOff})
}
func (f *fakeApplier) SetBrightness(output int, value uint8) {
	f.brightness[output] = value
}

func TestExtractB2AddressAndState(t *testing.T) {
	cases := []struct {
		in1, in2    byte
		wantAddress uint16
		wantState   bool
	}{
		{0x01, 0x00, 0x03, false}, // odd branch: +1
		{0x01, 0x20, 0x04, false}, // even branch: +2
		{0x01, 0x30, 0x04, true},  // even + state bit set
	}
	for _, c := range cases {
		addr := extractB2Address(c.in1, c.in2)
		state := extractState(c.in2)
		if addr != c.wantAddress || state != c.wantState {
			t.Fatalf("extractB2Address(%#x,%#x) = (%d,%v); want (%d,%v)", c.in1, c.in2, addr, state, c.wantAddress, c.wantState)
		}
	}
}

func TestInputReportTriggersQueuedOutputChange(t *testing.T) {
	store := memStore{
		LncvInputAddressesStart + 1: 0x00FF, // mask_on for "high" state
		LncvInputAddressesStart + 2: 0x0000, // mask_off for "high" state
	}
	applier := newFakeApplier()
	d := New(store, applier)
	d.setInputAddress(LncvInputAddressesStart, 0x03) // matches extractB2Address(0x01,0x00)

	d.handleInputReport(0x01, 0x10) // state bit set -> "high"

	d.Loop()
	if len(applier.changes) != 1 {
		t.Fatalf("applier received %d changes; want 1", len(applier.changes))
	}
	if applier.changes[0].maskOn != 0x00FF || applier.changes[0].maskOff != 0x0000 {
		t.Fatalf("applier change = %+v; want maskOn=0xFF maskOff=0x00", applier.changes[0])
	}
}

func TestInputReportForUnknownAddressIsIgnored(t *testing.T) {
	store := memStore{}
	applier := newFakeApplier()
	d := New(store, applier)

	d.handleInputReport(0x7F, 0x0F)
	d.Loop()

	if len(applier.changes) != 0 {
		t.Fatalf("unknown address produced %d queued changes; want 0", len(applier.changes))
	}
}

func TestWriteAllowedRanges(t *testing.T) {
	d := New(memStore{}, newFakeApplier())

	cases := []struct {
		number uint16
		value  uint16
		want   loconet.AckCode
	}{
		{loconet.LncvKeyAddress, 0, loconet.AckOutOfRange},
		{loconet.LncvKeyAddress, 5, loconet.AckOK},
		{loconet.LncvKeyPriority, 0x10, loconet.AckOutOfRange},
		{loconet.LncvKeyPriority, 0x0F, loconet.AckOK},
		{LncvOutputBrightnessStart, 255, loconet.AckOK},
		{LncvOutputBrightnessStart, 256, loconet.AckOutOfRange},
		{LncvInputAddressesStart + 2, 9999, loconet.AckOK},
		{9999, 1, loconet.AckInvalidValue},
	}
	for _, c := range cases {
		got := d.writeAllowed(c.number, c.value)
		if got != c.want {
			t.Fatalf("writeAllowed(%d,%d) = %v; want %v", c.number, c.value, got, c.want)
		}
	}
}

func TestLncvWrittenSetsBrightness(t *testing.T) {
	applier := newFakeApplier()
	d := New(memStore{}, applier)

	d.handleLncvWritten(LncvOutputBrightnessStart+3, 128)

	if applier.brightness[3] != 128 {
		t.Fatalf("brightness[3] = %d; want 128", applier.brightness[3])
	}
	if d.brightness[3] != 128 {
		t.Fatalf("internal brightness[3] = %d; want 128", d.brightness[3])
	}
}

func TestLncvWrittenSetsInputAddressOnlyAtBaseOffset(t *testing.T) {
	d := New(memStore{}, newFakeApplier())

	d.handleLncvWritten(LncvInputAddressesStart, 0x77)   // base offset, sets address
	d.handleLncvWritten(LncvInputAddressesStart+1, 0x88) // mask offset, not an address write

	lncv, ok := d.lookupInputLncv(0x77)
	if !ok || lncv != LncvInputAddressesStart {
		t.Fatalf("lookupInputLncv(0x77) = (%d,%v); want (%d,true)", lncv, ok, LncvInputAddressesStart)
	}
	if _, ok := d.lookupInputLncv(0x88); ok {
		t.Fatalf("offset-1 write was incorrectly treated as an address binding")
	}
}

func TestFastClockScheduleFiresOncePerMatch(t *testing.T) {
	store := memStore{
		LncvFastClockStart + 1: 0x0001,
		LncvFastClockStart + 2: 0x0002,
	}
	applier := newFakeApplier()
	d := New(store, applier)
	d.handleLncvWritten(LncvFastClockStart, 8*60+30) // 08:30

	d.handleFastClockUpdate(loconet.FastClockTime{Hour: 8, Minute: 30})
	d.handleFastClockUpdate(loconet.FastClockTime{Hour: 8, Minute: 30}) // repeat, must not re-fire
	d.handleFastClockUpdate(loconet.FastClockTime{Hour: 8, Minute: 31})

	d.Loop()
	if len(applier.changes) != 1 {
		t.Fatalf("applier received %d changes; want exactly 1 (no repeat firing)", len(applier.changes))
	}
	if applier.changes[0].maskOn != 1 || applier.changes[0].maskOff != 2 {
		t.Fatalf("scheduled change = %+v; want maskOn=1 maskOff=2", applier.changes[0])
	}
}

func TestOutputChangeQueueFIFO(t *testing.T) {
	var q outputChangeQueue
	q.Enqueue(1, 2)
	q.Enqueue(3, 4)

	first, ok := q.Dequeue()
	if !ok || first.maskOn != 1 || first.maskOff != 2 {
		t.Fatalf("first dequeue = %+v,%v; want (1,2),true", first, ok)
	}
	second, ok := q.Dequeue()
	if !ok || second.maskOn != 3 || second.maskOff != 4 {
		t.Fatalf("second dequeue = %+v,%v; want (3,4),true", second, ok)
	}
	if _, ok := q.Dequeue(); ok {
		t.Fatalf("dequeue on empty queue reported ok=true")
	}
}
