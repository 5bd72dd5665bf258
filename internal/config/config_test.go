package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const minimalConfig = `
mqtt:
  broker: tcp://localhost:1883
growspaces:
  - id: tent-a
    stage: veg
    stage_start: "2025-05-01"
    sensors:
      temperature: home/tent-a/temperature
      humidity: home/tent-a/humidity
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.Path != "./growmond.sqlite" {
		t.Errorf("database path = %q, want default", cfg.Database.Path)
	}
	if cfg.MQTT.ClientID != "growmond" {
		t.Errorf("client id = %q, want growmond", cfg.MQTT.ClientID)
	}
	if cfg.MQTT.BaseTopic != "growmond" {
		t.Errorf("base topic = %q, want growmond", cfg.MQTT.BaseTopic)
	}
	if cfg.MQTT.Timeout.Duration() != 10*time.Second {
		t.Errorf("mqtt timeout = %v, want 10s", cfg.MQTT.Timeout.Duration())
	}
	if cfg.Ledger.RetentionDays != 90 {
		t.Errorf("retention = %d, want 90", cfg.Ledger.RetentionDays)
	}
	if cfg.Web.Port != 8086 {
		t.Errorf("web port = %d, want 8086", cfg.Web.Port)
	}
	if cfg.Engine.TickInterval.Duration() != time.Minute {
		t.Errorf("tick interval = %v, want 1m", cfg.Engine.TickInterval.Duration())
	}
	if cfg.ShutdownTimeout.Duration() != 5*time.Second {
		t.Errorf("shutdown timeout = %v, want 5s", cfg.ShutdownTimeout.Duration())
	}
}

func TestLoad_GrowspaceFields(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
mqtt:
  broker: tcp://localhost:1883
growspaces:
  - id: tent-a
    stage: flower
    conditions: [stress, mold_risk]
    priors:
      stress: 0.2
    gates:
      stress:
        turn_on: 0.8
        turn_off: 0.65
        min_dwell: 10m
    light_debounce: 30s
    schedule_tolerance: 20m
    trend_window: 45m
    sensors:
      temperature: home/tent-a/temperature
      light: home/tent-a/light
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	gs := cfg.Growspaces[0]
	if len(gs.Conditions) != 2 {
		t.Errorf("conditions = %v, want 2", gs.Conditions)
	}
	if gs.Priors["stress"] != 0.2 {
		t.Errorf("stress prior = %v, want 0.2", gs.Priors["stress"])
	}
	g := gs.Gates["stress"]
	if g.TurnOn != 0.8 || g.TurnOff != 0.65 || g.MinDwell.Duration() != 10*time.Minute {
		t.Errorf("gate = %+v, want 0.8/0.65/10m", g)
	}
	if gs.LightDebounce.Duration() != 30*time.Second {
		t.Errorf("light debounce = %v, want 30s", gs.LightDebounce.Duration())
	}
	if gs.ScheduleTolerance.Duration() != 20*time.Minute {
		t.Errorf("schedule tolerance = %v, want 20m", gs.ScheduleTolerance.Duration())
	}
	if gs.TrendWindow.Duration() != 45*time.Minute {
		t.Errorf("trend window = %v, want 45m", gs.TrendWindow.Duration())
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("GROWMOND_TEST_BROKER", "tcp://broker.example:1883")
	cfg, err := Load(writeConfig(t, `
mqtt:
  broker: ${GROWMOND_TEST_BROKER}
  username: ${GROWMOND_TEST_MISSING:fallback}
growspaces:
  - id: tent-a
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MQTT.Broker != "tcp://broker.example:1883" {
		t.Errorf("broker = %q, want env value", cfg.MQTT.Broker)
	}
	if cfg.MQTT.Username != "fallback" {
		t.Errorf("username = %q, want default fallback", cfg.MQTT.Username)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no_growspaces", `
mqtt:
  broker: tcp://localhost:1883
`},
		{"empty_id", `
growspaces:
  - stage: veg
`},
		{"duplicate_id", `
growspaces:
  - id: tent-a
  - id: tent-a
`},
		{"unknown_stage", `
growspaces:
  - id: tent-a
    stage: sprouting
`},
		{"bad_stage_start", `
growspaces:
  - id: tent-a
    stage: veg
    stage_start: "01.05.2025"
`},
		{"unknown_condition", `
growspaces:
  - id: tent-a
    conditions: [wilting]
`},
		{"prior_out_of_range", `
growspaces:
  - id: tent-a
    priors:
      stress: 1.2
`},
		{"inverted_gate", `
growspaces:
  - id: tent-a
    gates:
      stress:
        turn_on: 0.5
        turn_off: 0.7
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
