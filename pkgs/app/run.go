package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/keskad/locond/pkgs/configstore"
	"github.com/keskad/locond/pkgs/domotica"
	"github.com/keskad/locond/pkgs/loconet"
)

// RunAction opens the configured serial interface and sqlite-backed LNCV
// store, wires the domotica reference consumer to a LoconetCore, and runs
// the node until ctx is cancelled.
func (a *LocoNodeApp) RunAction(ctx context.Context) error {
	if err := a.Initialize(); err != nil {
		return err
	}

	store, err := configstore.Open(a.Config.Database)
	if err != nil {
		return fmt.Errorf("app: cannot open config store: %w", err)
	}
	defer store.Close()

	if err := store.Init(a.lncvSeedDefaults()); err != nil {
		return fmt.Errorf("app: cannot seed config store: %w", err)
	}

	tr, err := a.openTransport()
	if err != nil {
		return err
	}
	defer tr.Close()

	applier := loggingApplier{p: a.P}
	dom := domotica.New(store, applier)

	cfg := loconet.Config{
		IsMaster:              a.Config.Node.IsMaster,
		Priority:              a.Config.Node.Priority,
		DeviceClass:           a.Config.Node.DeviceClass,
		MaxLncv:               a.Config.Node.MaxLncv,
		RingCapacity:          256,
		QueueCapacity:         16,
		FastClockMaster:       a.Config.FastClock.Master,
		FastClockID1:          a.Config.FastClock.ID1,
		FastClockID2:          a.Config.FastClock.ID2,
		FastClockIntermessage: a.Config.FastClock.Intermessage,
	}
	core := loconet.NewLoconetCore(tr, store, cfg, dom.Handlers())

	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				dom.Loop()
			}
		}
	}()

	logrus.Infof("node started on %s (address lncv from store, priority %d)", a.Config.Serial.Device, a.Config.Node.Priority)
	return core.Run(ctx)
}
