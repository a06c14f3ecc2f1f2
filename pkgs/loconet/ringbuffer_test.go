package loconet

import "testing"

func TestRingBufferPushPeekAdvance(t *testing.T) {
	r := NewRingBuffer(8)

	for _, b := range []byte{0x81, 0x12, 0xFF} {
		if err := r.TryPush(b); err != nil {
			t.Fatalf("TryPush(%x) = %v", b, err)
		}
	}

	if got := r.Len(); got != 3 {
		t.Fatalf("Len() = %d; want 3", got)
	}

	b, ok := r.Peek(0)
	if !ok || b != 0x81 {
		t.Fatalf("Peek(0) = %x,%v; want 0x81,true", b, ok)
	}

	r.Advance(1)
	if got := r.Len(); got != 2 {
		t.Fatalf("Len() after Advance(1) = %d; want 2", got)
	}
	b, ok = r.Peek(0)
	if !ok || b != 0x12 {
		t.Fatalf("Peek(0) after advance = %x,%v; want 0x12,true", b, ok)
	}
}

func TestRingBufferFullBackpressure(t *testing.T) {
	r := NewRingBuffer(4) // holds at most capacity-1 = 3 bytes

	for i := 0; i < 3; i++ {
		if err := r.TryPush(byte(i)); err != nil {
			t.Fatalf("TryPush(%d) = %v", i, err)
		}
	}
	if err := r.TryPush(0xFF); err != ErrBufferFull {
		t.Fatalf("TryPush on full ring = %v; want ErrBufferFull", err)
	}

	r.Advance(1)
	if err := r.TryPush(0xFF); err != nil {
		t.Fatalf("TryPush after Advance = %v; want nil", err)
	}
}

func TestRingBufferPeekBeyondAvailableFails(t *testing.T) {
	r := NewRingBuffer(8)
	_ = r.TryPush(0x01)

	if _, ok := r.Peek(1); ok {
		t.Fatalf("Peek(1) on a 1-byte ring reported available")
	}
}

func TestRingBufferWraparound(t *testing.T) {
	r := NewRingBuffer(4)
	for i := 0; i < 3; i++ {
		_ = r.TryPush(byte(i))
	}
	r.Advance(3)
	for i := 10; i < 13; i++ {
		if err := r.TryPush(byte(i)); err != nil {
			t.Fatalf("TryPush(%d) after wraparound = %v", i, err)
		}
	}
	for i := 0; i < 3; i++ {
		b, ok := r.Peek(i)
		if !ok || b != byte(10+i) {
			t.Fatalf("Peek(%d) = %x,%v; want %x,true", i, b, ok, 10+i)
		}
	}
}
