package app

import (
	"fmt"
	"time"

	"github.com/keskad/locond/pkgs/loconet"
)

// LncvGetAction reads a single LNCV from the module at destination. Reads
// do not require programming mode (loconet.LncvEngine.handleRead answers
// regardless of engine.Programming()), so this is a single request/response
// round-trip.
func (a *LocoNodeApp) LncvGetAction(destination, number uint16, timeout time.Duration, retries uint8) error {
	if err := a.Initialize(); err != nil {
		return err
	}
	ctx := loconet.ApplyLncvOptions(loconet.WithTimeout(timeout), loconet.WithRetries(retries))

	tr, err := a.openTransport()
	if err != nil {
		return err
	}
	defer tr.Close()

	req := newLncvRequester(tr)
	stop := make(chan struct{})
	go req.pump(stop)
	defer close(stop)

	frame := loconet.BuildLncvRequest(destination, loconet.LncvReqRead, a.Config.Node.DeviceClass, number, 0, loconet.LncvFlagNone)

	var lastErr error
	for attempt := uint8(0); attempt <= ctx.Retries; attempt++ {
		if err := req.send(frame); err != nil {
			return err
		}
		resp, err := req.waitForLncvResponse(ctx.Timeout)
		if err == nil {
			a.P.Printf("lncv%d=%d\n", number, resp.LncvValue)
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("app: lncv get failed after %d attempts: %w", ctx.Retries+1, lastErr)
}

// LncvSetAction enters the target module's programming mode, writes a
// single LNCV, then leaves programming mode again. With Verify set it
// follows up with a read to confirm the value actually stuck.
func (a *LocoNodeApp) LncvSetAction(destination, number, value uint16, verify bool, timeout time.Duration, retries uint8) error {
	if err := a.Initialize(); err != nil {
		return err
	}
	ctx := loconet.ApplyLncvOptions(loconet.WithTimeout(timeout), loconet.WithRetries(retries), loconet.WithVerify(verify))

	tr, err := a.openTransport()
	if err != nil {
		return err
	}
	defer tr.Close()

	req := newLncvRequester(tr)
	stop := make(chan struct{})
	go req.pump(stop)
	defer close(stop)

	progFrame := loconet.BuildLncvRequest(destination, loconet.LncvReqRead, a.Config.Node.DeviceClass, 0, 0xFFFF, loconet.LncvFlagProgOn)
	if err := req.send(progFrame); err != nil {
		return err
	}
	if _, err := req.waitForLncvResponse(ctx.Timeout); err != nil {
		return fmt.Errorf("app: module %d did not enter programming mode: %w", destination, err)
	}

	writeFrame := loconet.BuildLncvRequest(destination, loconet.LncvReqWrite, a.Config.Node.DeviceClass, number, value, loconet.LncvFlagNone)

	var ack loconet.AckCode
	var ackReceived bool
	var lastErr error
	for attempt := uint8(0); attempt <= ctx.Retries; attempt++ {
		if err := req.send(writeFrame); err != nil {
			return err
		}
		code, err := req.waitForLongAck(ctx.Timeout)
		if err == nil {
			ack, ackReceived = code, true
			break
		}
		lastErr = err
	}

	offFrame := loconet.BuildLncvRequest(destination, loconet.LncvReqRead, a.Config.Node.DeviceClass, 0, 0, loconet.LncvFlagProgOff)
	_ = req.send(offFrame)

	if !ackReceived {
		return fmt.Errorf("app: lncv set failed after %d attempts: %w", ctx.Retries+1, lastErr)
	}
	if ack != loconet.AckOK {
		return fmt.Errorf("app: module %d rejected lncv %d=%d (ack=%#x)", destination, number, value, byte(ack))
	}

	if ctx.Verify {
		return a.LncvGetAction(destination, number, ctx.Timeout, ctx.Retries)
	}
	a.P.Printf("lncv%d=%d OK\n", number, value)
	return nil
}
