package loconet

import "testing"

func TestTxQueueOrderingInvariant(t *testing.T) {
	q := NewTxQueue(32)
	priorities := []uint8{5, 2, 8, 1, 9, 3}
	for _, p := range priorities {
		if _, err := q.Enqueue([]byte{p}, p); err != nil {
			t.Fatalf("Enqueue(%d) = %v", p, err)
		}
	}

	var prev uint8
	first := true
	for {
		msg, idx, ok := q.Dequeue()
		if !ok {
			break
		}
		if !first && msg.Priority < prev {
			t.Fatalf("priority ordering invariant broken: %d came after %d", msg.Priority, prev)
		}
		prev = msg.Priority
		first = false
		q.Release(idx)
	}
}

func TestTxQueueExhaustion(t *testing.T) {
	q := NewTxQueue(2)
	if _, err := q.Enqueue([]byte{1}, 1); err != nil {
		t.Fatalf("first Enqueue failed: %v", err)
	}
	if _, err := q.Enqueue([]byte{2}, 1); err != nil {
		t.Fatalf("second Enqueue failed: %v", err)
	}
	if _, err := q.Enqueue([]byte{3}, 1); err != ErrQueueExhausted {
		t.Fatalf("third Enqueue = %v; want ErrQueueExhausted", err)
	}
}

func TestTxQueueRequeueGoesToHead(t *testing.T) {
	q := NewTxQueue(8)
	_, _ = q.Enqueue([]byte{0xAA}, 5)
	msg, idx, _ := q.Dequeue()
	msg.TxIndex = 1
	msg.RxIndex = 1

	_, _ = q.Enqueue([]byte{0xBB}, 1) // a second, more urgent message

	q.Requeue(idx)

	head, _, ok := q.Dequeue()
	if !ok || head.Data[0] != 0xAA {
		t.Fatalf("Requeue did not land back at head: got %v", head)
	}
	if head.TxIndex != 0 || head.RxIndex != 0 {
		t.Fatalf("Requeue did not reset indices: tx=%d rx=%d", head.TxIndex, head.RxIndex)
	}
}

// Scenario 3 (spec §8): starvation avoidance.
func TestTxQueueStarvationAvoidance(t *testing.T) {
	q := NewTxQueue(32)
	for i := 0; i < 10; i++ {
		if _, err := q.Enqueue([]byte{byte(i)}, 8); err != nil {
			t.Fatalf("Enqueue priority-8 #%d: %v", i, err)
		}
	}
	for i := 0; i < 5; i++ {
		if _, err := q.Enqueue([]byte{byte(100 + i)}, 3); err != nil {
			t.Fatalf("Enqueue priority-3 #%d: %v", i, err)
		}
	}

	// The first four priority-3 arrivals each aged the ten down by one
	// (8 -> 4). The fifth found them at P+1 == 4, aged them to 3 and was
	// queued behind them, so the first original comes out fifth.
	want := []byte{100, 101, 102, 103, 0}
	for i, w := range want {
		msg, idx, ok := q.Dequeue()
		if !ok {
			t.Fatalf("queue ran dry at dequeue #%d", i)
		}
		if msg.Data[0] != w {
			t.Fatalf("dequeue #%d got payload %d; want %d", i, msg.Data[0], w)
		}
		q.Release(idx)
	}

	// The next message must be one of the original ten, aged down to <= 3.
	msg, idx, ok := q.Dequeue()
	if !ok {
		t.Fatalf("queue unexpectedly empty")
	}
	if msg.Data[0] >= 100 {
		t.Fatalf("expected one of the original ten priority-8 messages, got %d", msg.Data[0])
	}
	if msg.Priority > 3 {
		t.Fatalf("starved message priority = %d; want <= 3", msg.Priority)
	}
	q.Release(idx)
}

func TestTxQueuePriorityZeroNotExemptFromAging(t *testing.T) {
	q := NewTxQueue(8)
	_, _ = q.Enqueue([]byte{0x01}, 1) // sits at priority 1
	_, _ = q.Enqueue([]byte{0x00}, 0) // new arrival at priority 0

	// The priority-1 message should have been aged to priority 0 by the
	// same-priority pass (P+1 == 1 when P == 0), per resolved Open
	// Question 2: priority-0 arrivals do not bypass aging.
	msg, idx, _ := q.Dequeue()
	q.Release(idx)
	second, idx2, _ := q.Dequeue()
	q.Release(idx2)

	if msg.Priority != 0 || second.Priority != 0 {
		t.Fatalf("expected both messages aged to priority 0, got %d and %d", msg.Priority, second.Priority)
	}
}
