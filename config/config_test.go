package config

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nomis52/reactor"
	"github.com/nomis52/reactor/logging"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid scrape config",
			cfg: Config{
				Engine:     EngineConfig{MaxConcurrency: 4, Timeout: time.Hour},
				Monitoring: MonitoringConfig{Mode: MonitoringScrape, ListenAddress: ":9090"},
			},
			wantErr: false,
		},
		{
			name: "valid push config",
			cfg: Config{
				Engine:     EngineConfig{MaxConcurrency: 4, Timeout: time.Hour},
				Monitoring: MonitoringConfig{Mode: MonitoringPush, VictoriaMetricsURL: "http://vm"},
			},
			wantErr: false,
		},
		{
			name: "valid with monitoring off",
			cfg: Config{
				Engine:     EngineConfig{MaxConcurrency: 1, Timeout: time.Minute},
				Monitoring: MonitoringConfig{Mode: MonitoringOff},
			},
			wantErr: false,
		},
		{
			name: "non-positive max concurrency",
			cfg: Config{
				Engine:     EngineConfig{Timeout: time.Hour},
				Monitoring: MonitoringConfig{Mode: MonitoringOff},
			},
			wantErr: true,
		},
		{
			name: "non-positive timeout",
			cfg: Config{
				Engine:     EngineConfig{MaxConcurrency: 4},
				Monitoring: MonitoringConfig{Mode: MonitoringOff},
			},
			wantErr: true,
		},
		{
			name: "push mode without URL",
			cfg: Config{
				Engine:     EngineConfig{MaxConcurrency: 4, Timeout: time.Hour},
				Monitoring: MonitoringConfig{Mode: MonitoringPush},
			},
			wantErr: true,
		},
		{
			name: "scrape mode without listen address",
			cfg: Config{
				Engine:     EngineConfig{MaxConcurrency: 4, Timeout: time.Hour},
				Monitoring: MonitoringConfig{Mode: MonitoringScrape},
			},
			wantErr: true,
		},
		{
			name: "unknown monitoring mode",
			cfg: Config{
				Engine:     EngineConfig{MaxConcurrency: 4, Timeout: time.Hour},
				Monitoring: MonitoringConfig{Mode: "telepathy"},
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			cfg: Config{
				Engine:     EngineConfig{MaxConcurrency: 4, Timeout: time.Hour},
				Monitoring: MonitoringConfig{Mode: MonitoringOff},
				Logging:    logging.Config{Level: "loud"},
			},
			wantErr: true,
		},
		{
			name: "schedule without name",
			cfg: Config{
				Engine:     EngineConfig{MaxConcurrency: 4, Timeout: time.Hour},
				Monitoring: MonitoringConfig{Mode: MonitoringOff},
				Schedules:  []ScheduleConfig{{Cron: "0 3 * * *"}},
			},
			wantErr: true,
		},
		{
			name: "schedule without cron expression",
			cfg: Config{
				Engine:     EngineConfig{MaxConcurrency: 4, Timeout: time.Hour},
				Monitoring: MonitoringConfig{Mode: MonitoringOff},
				Schedules:  []ScheduleConfig{{Name: "nightly"}},
			},
			wantErr: true,
		},
		{
			name: "duplicate schedule names",
			cfg: Config{
				Engine:     EngineConfig{MaxConcurrency: 4, Timeout: time.Hour},
				Monitoring: MonitoringConfig{Mode: MonitoringOff},
				Schedules: []ScheduleConfig{
					{Name: "nightly", Cron: "0 3 * * *"},
					{Name: "nightly", Cron: "0 4 * * *"},
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	cfg := Config{
		Schedules: []ScheduleConfig{{Name: "nightly", Cron: "0 3 * * *"}},
	}
	cfg.SetDefaults()
	if cfg.Engine.MaxConcurrency != reactor.DefaultMaxConcurrency {
		t.Errorf("MaxConcurrency default = %v, want %v", cfg.Engine.MaxConcurrency, reactor.DefaultMaxConcurrency)
	}
	if cfg.Engine.Timeout != time.Hour {
		t.Errorf("Timeout default = %v, want %v", cfg.Engine.Timeout, time.Hour)
	}
	if cfg.Monitoring.Mode != MonitoringScrape {
		t.Errorf("Mode default = %v, want %v", cfg.Monitoring.Mode, MonitoringScrape)
	}
	if cfg.Monitoring.ListenAddress != ":9090" {
		t.Errorf("ListenAddress default = %v, want %v", cfg.Monitoring.ListenAddress, ":9090")
	}
	if cfg.Monitoring.JobName != "reactor" {
		t.Errorf("JobName default = %v, want %v", cfg.Monitoring.JobName, "reactor")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level default = %v, want %v", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format default = %v, want %v", cfg.Logging.Format, "json")
	}
	if cfg.Schedules[0].Reactor != "nightly" {
		t.Errorf("Schedules[0].Reactor default = %v, want %v", cfg.Schedules[0].Reactor, "nightly")
	}
}

func TestLoadConfig(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "reactor_config_test.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpfile.Name())

	content := `engine:
  max_concurrency: 8
  timeout: 30m
logging:
  level: debug
  format: text
monitoring:
  mode: push
  victoriametrics_url: http://vm:8428/api/v1/write
  metrics_prefix: staging
schedules:
  - name: nightly-provision
    reactor: provision
    cron: "0 3 * * *"
    inputs:
      region: eu-west
      count: 2
`
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	tmpfile.Close()

	cfg, err := LoadConfig(tmpfile.Name())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v, want nil", err)
	}
	if cfg.Engine.MaxConcurrency != 8 {
		t.Errorf("Engine.MaxConcurrency = %v, want %v", cfg.Engine.MaxConcurrency, 8)
	}
	if cfg.Engine.Timeout != 30*time.Minute {
		t.Errorf("Engine.Timeout = %v, want %v", cfg.Engine.Timeout, 30*time.Minute)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %v, want %v", cfg.Logging.Level, "debug")
	}
	if cfg.Monitoring.VictoriaMetricsURL != "http://vm:8428/api/v1/write" {
		t.Errorf("VictoriaMetricsURL = %v, want %v", cfg.Monitoring.VictoriaMetricsURL, "http://vm:8428/api/v1/write")
	}
	if cfg.Monitoring.JobName != "reactor" {
		t.Errorf("JobName = %v, want default %v", cfg.Monitoring.JobName, "reactor")
	}

	if len(cfg.Schedules) != 1 {
		t.Fatalf("len(Schedules) = %v, want 1", len(cfg.Schedules))
	}
	s := cfg.Schedules[0]
	if s.Name != "nightly-provision" {
		t.Errorf("Schedules[0].Name = %v, want %v", s.Name, "nightly-provision")
	}
	if s.Reactor != "provision" {
		t.Errorf("Schedules[0].Reactor = %v, want %v", s.Reactor, "provision")
	}
	if s.Cron != "0 3 * * *" {
		t.Errorf("Schedules[0].Cron = %v, want %v", s.Cron, "0 3 * * *")
	}
	if s.Inputs["region"] != "eu-west" {
		t.Errorf("Schedules[0].Inputs[region] = %v, want %v", s.Inputs["region"], "eu-west")
	}
	if s.Inputs["count"] != 2 {
		t.Errorf("Schedules[0].Inputs[count] = %v, want %v", s.Inputs["count"], 2)
	}
}

func TestLoadConfig_TimeStrings(t *testing.T) {
	tests := []struct {
		name     string
		timeout  string
		expected time.Duration
	}{
		{"45s", "45s", 45 * time.Second},
		{"30m", "30m", 30 * time.Minute},
		{"2h", "2h", 2 * time.Hour},
		{"1h30m", "1h30m", 90 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpfile, err := os.CreateTemp("", "reactor_config_test.yaml")
			if err != nil {
				t.Fatalf("failed to create temp file: %v", err)
			}
			defer os.Remove(tmpfile.Name())

			content := fmt.Sprintf(`engine:
  timeout: %s
monitoring:
  mode: "off"
`, tt.timeout)

			if _, err := tmpfile.Write([]byte(content)); err != nil {
				t.Fatalf("failed to write temp config: %v", err)
			}
			tmpfile.Close()

			cfg, err := LoadConfig(tmpfile.Name())
			if err != nil {
				t.Fatalf("LoadConfig() error = %v, want nil", err)
			}

			if cfg.Engine.Timeout != tt.expected {
				t.Errorf("Engine.Timeout = %v, want %v", cfg.Engine.Timeout, tt.expected)
			}
		})
	}
}

func TestConfig_BuilderOptions(t *testing.T) {
	cfg := Config{Engine: EngineConfig{MaxConcurrency: 2, Timeout: time.Minute}}
	assert.Len(t, cfg.BuilderOptions(), 2, "both engine settings should map to options")

	var zero Config
	assert.Empty(t, zero.BuilderOptions(), "unset engine settings should map to no options")
}

func TestMonitoringConfig_PushConfig(t *testing.T) {
	m := MonitoringConfig{
		Mode:               MonitoringPush,
		VictoriaMetricsURL: "http://vm:8428/api/v1/write",
		MetricsPrefix:      "staging",
		JobName:            "reactor",
		Instance:           "host-1",
	}
	pc := m.PushConfig()
	assert.Equal(t, "http://vm:8428/api/v1/write", pc.URL, "URL should come from VictoriaMetricsURL")
	assert.Equal(t, "staging", pc.Prefix, "prefix should pass through")
	assert.Equal(t, "reactor", pc.Job, "job should come from JobName")
	assert.Equal(t, "host-1", pc.Instance, "instance should pass through")
}
