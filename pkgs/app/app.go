package app

import (
	"fmt"

	"github.com/keskad/locond/pkgs/config"
	"github.com/keskad/locond/pkgs/loconet"
	"github.com/keskad/locond/pkgs/output"
	"github.com/sirupsen/logrus"
)

//
// Actions - a controller level
// prints are allowed only via Printer interface
//
// The controller level provides everything needed to perform a single
// action: run the node, or drive an LNCV read/write round-trip as a
// programming-tool client.
//

// LocoNodeApp is the node's controller layer, wiring configuration to a
// running LoconetCore or to a one-shot LNCV requester action.
type LocoNodeApp struct {
	Config *config.Configuration

	// runtime parameters
	Debug bool
	P     output.Printer
}

// Initialize is run after parsing the CLI arguments, so we know how to
// configure the app.
func (a *LocoNodeApp) Initialize() error {
	if a.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	logrus.Debug("Reading configuration files")
	cfg, err := config.NewConfig()
	a.Config = cfg
	if err != nil {
		return fmt.Errorf("cannot initialize app: %s", err)
	}
	return nil
}

// lncvSeedDefaults is written to a freshly created config store so a node
// has a usable address, priority and device class before any programming
// happens. Existing values are left untouched by Store.Init.
func (a *LocoNodeApp) lncvSeedDefaults() map[uint16]uint16 {
	return map[uint16]uint16{
		loconet.LncvKeyAddress:     3,
		loconet.LncvKeyPriority:    uint16(a.Config.Node.Priority),
		loconet.LncvKeyDeviceMagic: a.Config.Node.DeviceClass,
		loconet.LncvKeyFastClock:   0,
	}
}
