// Package config loads and validates the YAML configuration for a
// process hosting reactor workflows: engine limits, logging,
// monitoring and the schedules that start executions.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nomis52/reactor"
	"github.com/nomis52/reactor/logging"
	"github.com/nomis52/reactor/metrics"
)

// Monitoring modes.
const (
	// MonitoringScrape serves metrics over HTTP for Prometheus to pull.
	MonitoringScrape = "scrape"
	// MonitoringPush writes metrics to a remote write endpoint such as
	// VictoriaMetrics.
	MonitoringPush = "push"
	// MonitoringOff disables metrics entirely.
	MonitoringOff = "off"
)

const (
	// Default engine settings
	defaultExecutionTimeout = 1 * time.Hour

	// Default monitoring settings
	defaultMonitoringMode = MonitoringScrape
	defaultListenAddress  = ":9090"
	defaultJobName        = "reactor"
)

// Config represents the complete host process configuration
type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Logging    logging.Config   `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Schedules  []ScheduleConfig `yaml:"schedules"`
}

// EngineConfig bounds workflow execution
type EngineConfig struct {
	// MaxConcurrency caps how many steps a single execution may run at
	// once. Zero means the engine default.
	MaxConcurrency int `yaml:"max_concurrency"`

	// Timeout is the deadline applied to each whole execution.
	Timeout time.Duration `yaml:"timeout"`
}

// MonitoringConfig holds metrics and monitoring settings
type MonitoringConfig struct {
	// Mode selects how metrics leave the process: scrape, push or off.
	Mode string `yaml:"mode"`

	// VictoriaMetricsURL is the remote write endpoint used in push mode.
	VictoriaMetricsURL string `yaml:"victoriametrics_url"`

	// MetricsPrefix is prepended to every metric name, typically an
	// environment tag such as "staging".
	MetricsPrefix string `yaml:"metrics_prefix"`

	// JobName and Instance become the job and instance labels in push
	// mode.
	JobName  string `yaml:"jobname"`
	Instance string `yaml:"instance"`

	// ListenAddress is where the scrape endpoint is served in scrape
	// mode.
	ListenAddress string `yaml:"listen_address"`
}

// ScheduleConfig starts a registered workflow on a cron expression
type ScheduleConfig struct {
	// Name identifies the schedule in logs and errors.
	Name string `yaml:"name"`

	// Reactor is the registered workflow the schedule executes.
	// Defaults to Name.
	Reactor string `yaml:"reactor"`

	// Cron is the expression deciding when executions start, in the
	// standard five field form.
	Cron string `yaml:"cron"`

	// Inputs are handed to every execution the schedule starts.
	Inputs map[string]any `yaml:"inputs"`
}

// Validate performs basic validation on the configuration
func (c *Config) Validate() error {
	if c.Engine.MaxConcurrency <= 0 {
		return fmt.Errorf("engine max_concurrency must be positive")
	}
	if c.Engine.Timeout <= 0 {
		return fmt.Errorf("engine timeout must be positive")
	}
	switch c.Monitoring.Mode {
	case MonitoringScrape:
		if c.Monitoring.ListenAddress == "" {
			return fmt.Errorf("monitoring listen address is required in scrape mode")
		}
	case MonitoringPush:
		if c.Monitoring.VictoriaMetricsURL == "" {
			return fmt.Errorf("VictoriaMetrics URL is required in push mode")
		}
	case MonitoringOff:
	default:
		return fmt.Errorf("unknown monitoring mode %q", c.Monitoring.Mode)
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	names := make(map[string]struct{}, len(c.Schedules))
	for i, s := range c.Schedules {
		if s.Name == "" {
			return fmt.Errorf("schedule %d: name is required", i)
		}
		if s.Cron == "" {
			return fmt.Errorf("schedule %q: cron expression is required", s.Name)
		}
		if _, dup := names[s.Name]; dup {
			return fmt.Errorf("duplicate schedule name %q", s.Name)
		}
		names[s.Name] = struct{}{}
	}
	return nil
}

// SetDefaults sets reasonable default values for optional fields
func (c *Config) SetDefaults() {
	if c.Engine.MaxConcurrency == 0 {
		c.Engine.MaxConcurrency = reactor.DefaultMaxConcurrency
	}
	if c.Engine.Timeout == 0 {
		c.Engine.Timeout = defaultExecutionTimeout
	}
	if c.Monitoring.Mode == "" {
		c.Monitoring.Mode = defaultMonitoringMode
	}
	if c.Monitoring.ListenAddress == "" {
		c.Monitoring.ListenAddress = defaultListenAddress
	}
	if c.Monitoring.JobName == "" {
		c.Monitoring.JobName = defaultJobName
	}
	c.Logging.SetDefaults()
	for i := range c.Schedules {
		if c.Schedules[i].Reactor == "" {
			c.Schedules[i].Reactor = c.Schedules[i].Name
		}
	}
}

// BuilderOptions returns the build options implied by the engine
// section. Loggers and observers are wired separately because they
// are constructed from the logging and monitoring sections.
func (c *Config) BuilderOptions() []reactor.Option {
	var opts []reactor.Option
	if c.Engine.MaxConcurrency > 0 {
		opts = append(opts, reactor.WithMaxConcurrency(c.Engine.MaxConcurrency))
	}
	if c.Engine.Timeout > 0 {
		opts = append(opts, reactor.WithTimeout(c.Engine.Timeout))
	}
	return opts
}

// PushConfig returns the remote write settings implied by the
// monitoring section.
func (m MonitoringConfig) PushConfig() metrics.PushConfig {
	return metrics.PushConfig{
		URL:      m.VictoriaMetricsURL,
		Prefix:   m.MetricsPrefix,
		Job:      m.JobName,
		Instance: m.Instance,
	}
}

// LoadConfig reads the YAML config file at the given path and returns a Config struct
func LoadConfig(path string) (Config, error) {
	var cfg Config
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
