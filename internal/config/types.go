package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/Paintersrp/reap/internal/escalate"
	"github.com/Paintersrp/reap/internal/identity"
)

// Duration wraps time.Duration for YAML unmarshalling.
type Duration struct {
	time.Duration
	explicit bool
}

// UnmarshalText parses a textual duration, accepting empty strings.
func (d *Duration) UnmarshalText(text []byte) error {
	d.explicit = true
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = dur
	return nil
}

// MarshalText renders the duration using time.Duration formatting.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// IsSet reports whether the duration was explicitly provided or non-zero.
func (d Duration) IsSet() bool {
	return d.explicit || d.Duration != 0
}

// Config mirrors the reap.yaml document structure.
type Config struct {
	Version  string       `yaml:"version"`
	Targets  TargetSpec   `yaml:"targets"`
	Monitor  MonitorSpec  `yaml:"monitor"`
	Shutdown ShutdownSpec `yaml:"shutdown"`
	Identity IdentitySpec `yaml:"identity"`
}

// TargetSpec configures the process classification rule.
type TargetSpec struct {
	// Patterns are case-insensitive regular expressions matched against
	// full command lines. Empty means the built-in test-harness set.
	Patterns []string `yaml:"patterns"`
}

// MonitorSpec configures the polling monitor.
type MonitorSpec struct {
	Interval Duration `yaml:"interval"`
}

// ShutdownSpec configures the termination state machine.
type ShutdownSpec struct {
	GracefulTimeout Duration `yaml:"gracefulTimeout"`
	PollInterval    Duration `yaml:"pollInterval"`
	GraceWait       Duration `yaml:"graceWait"`
	DefaultSignal   string   `yaml:"defaultSignal"`
}

// IdentitySpec configures the fingerprint comparison.
type IdentitySpec struct {
	Tolerance Duration `yaml:"tolerance"`
}

// DefaultMonitorInterval is the monitor cadence when unconfigured.
const DefaultMonitorInterval = 3 * time.Second

// Default returns the configuration used when no reap.yaml exists.
func Default() *Config {
	cfg := &Config{Version: "1"}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if !c.Monitor.Interval.IsSet() {
		c.Monitor.Interval.Duration = DefaultMonitorInterval
	}
	if !c.Shutdown.GracefulTimeout.IsSet() {
		c.Shutdown.GracefulTimeout.Duration = escalate.DefaultTimeout
	}
	if !c.Shutdown.PollInterval.IsSet() {
		c.Shutdown.PollInterval.Duration = escalate.DefaultPollInterval
	}
	if !c.Shutdown.GraceWait.IsSet() {
		c.Shutdown.GraceWait.Duration = escalate.DefaultGraceWait
	}
	if c.Shutdown.DefaultSignal == "" {
		c.Shutdown.DefaultSignal = escalate.SignalTerm.String()
	}
	if !c.Identity.Tolerance.IsSet() {
		c.Identity.Tolerance.Duration = identity.DefaultTolerance
	}
}

// Validate rejects configurations the supervisor cannot honour.
func (c *Config) Validate() error {
	if c.Monitor.Interval.Duration <= 0 {
		return fmt.Errorf("monitor.interval must be positive, got %s", c.Monitor.Interval.Duration)
	}
	if c.Shutdown.GracefulTimeout.Duration <= 0 {
		return fmt.Errorf("shutdown.gracefulTimeout must be positive, got %s", c.Shutdown.GracefulTimeout.Duration)
	}
	if c.Shutdown.PollInterval.Duration <= 0 {
		return fmt.Errorf("shutdown.pollInterval must be positive, got %s", c.Shutdown.PollInterval.Duration)
	}
	if c.Shutdown.GraceWait.Duration <= 0 {
		return fmt.Errorf("shutdown.graceWait must be positive, got %s", c.Shutdown.GraceWait.Duration)
	}
	if c.Identity.Tolerance.Duration < 0 {
		return fmt.Errorf("identity.tolerance must not be negative, got %s", c.Identity.Tolerance.Duration)
	}
	if _, err := escalate.ParseSignal(c.Shutdown.DefaultSignal); err != nil {
		return fmt.Errorf("shutdown.defaultSignal: %w", err)
	}
	for _, pattern := range c.Targets.Patterns {
		if _, err := regexp.Compile("(?i)" + pattern); err != nil {
			return fmt.Errorf("targets.patterns: compile %q: %w", pattern, err)
		}
	}
	return nil
}

// DefaultSignal returns the parsed default termination signal.
func (c *Config) DefaultSignal() escalate.Signal {
	sig, err := escalate.ParseSignal(c.Shutdown.DefaultSignal)
	if err != nil {
		return escalate.SignalTerm
	}
	return sig
}
