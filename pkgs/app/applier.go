package app

import "github.com/keskad/locond/pkgs/output"

// loggingApplier is the default domotica.OutputApplier: no physical relays
// or PWM channels are wired up by this daemon itself, so it reports what
// the domotica layer decided to do. A deployment with real hardware
// attached would supply its own OutputApplier (GPIO, relay board, ...)
// instead of this one.
type loggingApplier struct {
	p output.Printer
}

func (a loggingApplier) ApplyOutputChange(maskOn, maskOff uint16) {
	a.p.Printf("output change: on=%#04x off=%#04x\n", maskOn, maskOff)
}

func (a loggingApplier) SetBrightness(output int, value uint8) {
	a.p.Printf("output %d brightness=%d\n", output, value)
}
