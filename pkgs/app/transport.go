package app

import (
	"fmt"
	"time"

	serial "github.com/daedaluz/goserial"

	"github.com/keskad/locond/pkgs/transport"
)

// openTransport opens the configured serial device. Loconet's 16.66 kbit/s
// line rate has no standard termios constant; B19200 is the closest
// divisor most USB-Loconet dongles accept before remapping it internally
// to the real bus rate, the same assumption the dongle vendors' own
// drivers make.
func (a *LocoNodeApp) openTransport() (*transport.SerialTransport, error) {
	idle := time.Duration(a.Config.Serial.IdleAfter) * time.Millisecond
	tr, err := transport.Open(a.Config.Serial.Device, serial.B19200, idle)
	if err != nil {
		return nil, fmt.Errorf("app: cannot open serial device %s: %w", a.Config.Serial.Device, err)
	}
	return tr, nil
}
