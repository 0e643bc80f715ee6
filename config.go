package gridrun

import (
	"fmt"
	"time"

	"github.com/mediseg/gridrun/service/launcher/gridengine"
	"github.com/mediseg/gridrun/service/launcher/local"
	"github.com/mediseg/gridrun/service/messaging"
)

// Config is a serialisable representation of the engine configuration. It can
// be populated from JSON, YAML, environment variables, etc. The zero-value is
// useful: all nested fields inherit their package defaults.
type Config struct {
	// Workspace is the directory holding run records, rendered scripts and
	// filesystem queues.
	Workspace string `json:"workspace" yaml:"workspace"`

	// Launcher selects the default submission backend.
	Launcher string `json:"launcher" yaml:"launcher"`

	// QueueVendor selects memory or fs poll queues.
	QueueVendor messaging.Vendor `json:"queueVendor" yaml:"queueVendor"`

	Monitor    MonitorConfig     `json:"monitor" yaml:"monitor"`
	GridEngine gridengine.Config `json:"gridEngine" yaml:"gridEngine"`
	Local      local.Config      `json:"local" yaml:"local"`
}

type MonitorConfig struct {
	Workers      int           `json:"workers" yaml:"workers"`
	PollInterval time.Duration `json:"pollInterval" yaml:"pollInterval"`
}

// DefaultConfig returns a Config populated with the same defaults the
// constructors previously hard-coded. Callers may modify the returned struct
// before passing it to New.
func DefaultConfig() *Config {
	return &Config{
		Launcher:    gridengine.Name,
		QueueVendor: messaging.VendorMemory,
		Monitor: MonitorConfig{
			Workers:      3,
			PollInterval: 15 * time.Second,
		},
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Monitor.Workers <= 0 {
		return fmt.Errorf("monitor.workers must be > 0")
	}
	if c.Monitor.PollInterval <= 0 {
		return fmt.Errorf("monitor.pollInterval must be > 0")
	}
	switch c.Launcher {
	case gridengine.Name, local.Name:
	default:
		return fmt.Errorf("unknown launcher: %s", c.Launcher)
	}
	switch c.QueueVendor {
	case messaging.VendorMemory:
	case messaging.VendorFs:
		if c.Workspace == "" {
			return fmt.Errorf("fs queue vendor requires a workspace")
		}
	default:
		return fmt.Errorf("unknown queue vendor: %s", c.QueueVendor)
	}
	return nil
}
