package app

import (
	"fmt"
	"time"

	"github.com/keskad/locond/pkgs/loconet"
)

// lncvRequester drives a standalone request/response round-trip over a
// transport outside of a running LoconetCore: a configuration tool talks
// to one module at a time and doesn't need the tx-queue/CSMA-CD machinery
// a live node uses to share the bus with other traffic.
type lncvRequester struct {
	tr     loconet.Transport
	ring   *loconet.RingBuffer
	framer *loconet.Framer
}

func newLncvRequester(tr loconet.Transport) *lncvRequester {
	ring := loconet.NewRingBuffer(64)
	return &lncvRequester{tr: tr, ring: ring, framer: loconet.NewFramer(ring)}
}

// pump copies bytes from the transport into the framer's ring until stop
// is closed or the transport reports an error (e.g. on Close).
func (r *lncvRequester) pump(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		b, err := r.tr.ReadByte()
		if err != nil {
			return
		}
		r.ring.Push(b)
	}
}

func (r *lncvRequester) send(frame []byte) error {
	for _, b := range frame {
		if err := r.tr.WriteByte(b); err != nil {
			return err
		}
	}
	return nil
}

// waitForLncvResponse polls the framer until a module's LNCV peer-xfer
// response frame appears, or timeout elapses.
func (r *lncvRequester) waitForLncvResponse(timeout time.Duration) (*loconet.LncvRequest, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		status, frame := r.framer.Process()
		switch status {
		case loconet.StatusProcessed:
			if req := asLncvResponse(frame); req != nil {
				return req, nil
			}
		case loconet.StatusRetry:
			continue
		case loconet.StatusIdle:
			time.Sleep(time.Millisecond)
		}
	}
	return nil, fmt.Errorf("app: timed out waiting for an lncv response")
}

// waitForLongAck polls the framer until a 0xB4 long-ack frame appears, or
// timeout elapses.
func (r *lncvRequester) waitForLongAck(timeout time.Duration) (loconet.AckCode, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		status, frame := r.framer.Process()
		switch status {
		case loconet.StatusProcessed:
			if frame[0] == loconet.OpLongAck && len(frame) == 4 {
				return loconet.AckCode(frame[2]), nil
			}
		case loconet.StatusRetry:
			continue
		case loconet.StatusIdle:
			time.Sleep(time.Millisecond)
		}
	}
	return 0, fmt.Errorf("app: timed out waiting for a long-ack")
}

func asLncvResponse(frame []byte) *loconet.LncvRequest {
	if frame[0] != loconet.OpPeerXfer && frame[0] != loconet.OpImmPacket {
		return nil
	}
	length := frame[1]
	if int(length) > len(frame) || length < 3 {
		return nil
	}
	payload := frame[2 : length-1]
	if len(payload) != 12 {
		return nil
	}
	req, err := loconet.ParseLncvRequest(payload)
	if err != nil || req.Source != loconet.LncvSourceModule {
		return nil
	}
	return req
}
