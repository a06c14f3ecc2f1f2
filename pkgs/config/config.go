package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Node describes this daemon's identity on the bus: its arbitration
// priority (also seeded into LNCV 2 of a fresh store), whether it
// arbitrates as a master, and the device-class/max-LNCV it advertises to
// peers during programming. The node address is not part of it; it lives
// in LNCV 0 of the config store.
type Node struct {
	IsMaster    bool
	Priority    uint8
	DeviceClass uint16
	MaxLncv     uint16
}

// Serial describes the local tty the bus interface is attached to.
type Serial struct {
	Device    string
	IdleAfter int // milliseconds before a synthesized rising edge, see pkgs/transport
}

// FastClock describes this node's role in fast-clock distribution.
type FastClock struct {
	Master       bool
	ID1          byte
	ID2          byte
	Intermessage int // 50 ms fast-clock ticks between master broadcasts
}

type Configuration struct {
	Node      Node
	Serial    Serial
	FastClock FastClock

	// Database is the sqlite file backing the LNCV config store.
	Database string
}

// NewConfig reads ".locond.yaml" from the home directory or, failing that,
// the current working directory. Only the first file found is read; the
// two are not layered. If neither exists, an empty one is first created in
// the home directory.
func NewConfig() (*Configuration, error) {
	config := Configuration{}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName(".locond")
	v.AddConfigPath("$HOME/")
	v.AddConfigPath(".")
	_ = v.SafeWriteConfig()

	v.SetDefault("node.ismaster", false)
	v.SetDefault("node.priority", 1)
	v.SetDefault("node.deviceclass", 0x0001)
	v.SetDefault("node.maxlncv", 256)
	v.SetDefault("serial.device", "/dev/ttyUSB0")
	v.SetDefault("serial.idleafter", 20)
	v.SetDefault("fastclock.master", false)
	v.SetDefault("fastclock.id1", 0)
	v.SetDefault("fastclock.id2", 0)
	v.SetDefault("fastclock.intermessage", 200)
	v.SetDefault("database", "locond.sqlite")

	if err := v.ReadInConfig(); err != nil {
		return &Configuration{}, fmt.Errorf("cannot parse config: %s", err.Error())
	}
	if err := v.Unmarshal(&config); err != nil {
		return &config, fmt.Errorf("cannot parse config: %s", err.Error())
	}

	return &config, nil
}
