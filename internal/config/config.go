package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tentwatch/growmond/internal/engine/bayes"
	"github.com/tentwatch/growmond/internal/engine/profile"
)

// Config represents the application configuration
type Config struct {
	MQTT            MQTTConfig        `yaml:"mqtt"`
	Database        DatabaseConfig    `yaml:"database"`
	Log             LogConfig         `yaml:"log"`
	Ledger          LedgerConfig      `yaml:"ledger"`
	Web             WebConfig         `yaml:"web"`
	EventBus        EventBusConfig    `yaml:"eventbus"`
	Engine          EngineConfig      `yaml:"engine"`
	Growspaces      []GrowspaceConfig `yaml:"growspaces"`
	ShutdownTimeout Duration          `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// MQTTConfig contains broker connection settings
type MQTTConfig struct {
	Broker    string   `yaml:"broker"`
	ClientID  string   `yaml:"client_id"`
	Username  string   `yaml:"username"`
	Password  string   `yaml:"password"`
	BaseTopic string   `yaml:"base_topic"` // Prefix for published verdict topics
	QoS       byte     `yaml:"qos"`
	Timeout   Duration `yaml:"timeout"` // Connect/publish timeout
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	Colors  bool   `yaml:"colors"`
	UseJSON bool   `yaml:"json"`
}

// GetLevel returns the configured level with default
func (c *LogConfig) GetLevel() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}

// LedgerConfig contains verdict ledger settings
type LedgerConfig struct {
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`
}

// WebConfig contains status API server settings
type WebConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 4)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 100)
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 4
	}
	return c.Workers
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 100
	}
	return c.QueueSize
}

// EngineConfig contains inference engine settings
type EngineConfig struct {
	// TickInterval drives time-based logic (dwell expiry, 24h window
	// closure) when no sensor events arrive.
	TickInterval Duration `yaml:"tick_interval"`
}

// GateConfig contains per-condition hysteresis overrides
type GateConfig struct {
	TurnOn   float64  `yaml:"turn_on"`
	TurnOff  float64  `yaml:"turn_off"`
	MinDwell Duration `yaml:"min_dwell"`
}

// SensorBindings maps sensor roles to MQTT topics. Empty topics mean
// the sensor is not bound.
type SensorBindings struct {
	Temperature  string `yaml:"temperature"`
	Humidity     string `yaml:"humidity"`
	VPD          string `yaml:"vpd"`
	CO2          string `yaml:"co2"`
	Exhaust      string `yaml:"exhaust"`
	Light        string `yaml:"light"`
	Fan          string `yaml:"fan"`
	Dehumidifier string `yaml:"dehumidifier"`
	Humidifier   string `yaml:"humidifier"`
}

// GrowspaceConfig describes one monitored growspace
type GrowspaceConfig struct {
	ID         string `yaml:"id"`
	Stage      string `yaml:"stage"`       // Initial stage, may be updated over MQTT
	StageStart string `yaml:"stage_start"` // ISO date, defaults to startup time

	Conditions []string              `yaml:"conditions"` // Enabled conditions, empty = stress/mold_risk/optimal
	Priors     map[string]float64    `yaml:"priors"`
	Gates      map[string]GateConfig `yaml:"gates"`

	LightDebounce     Duration `yaml:"light_debounce"`     // 0 = no flap pre-filter
	ScheduleTolerance Duration `yaml:"schedule_tolerance"` // 0 = default 15m
	TrendWindow       Duration `yaml:"trend_window"`       // 0 = default 30m

	Sensors SensorBindings `yaml:"sensors"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads, parses and validates the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./growmond.sqlite"
	}

	// MQTT defaults
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "growmond"
	}
	if cfg.MQTT.BaseTopic == "" {
		cfg.MQTT.BaseTopic = "growmond"
	}
	if cfg.MQTT.Timeout == 0 {
		cfg.MQTT.Timeout = Duration(10 * time.Second)
	}

	// Ledger defaults
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 90
	}

	// Web defaults
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8086
	}
	if cfg.Web.Host == "" {
		cfg.Web.Host = "0.0.0.0"
	}

	// Engine defaults
	if cfg.Engine.TickInterval == 0 {
		cfg.Engine.TickInterval = Duration(1 * time.Minute)
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for engine-fatal errors. Bad
// priors, inverted gate thresholds and unknown stages or conditions are
// surfaced here, before any growspace starts.
func (cfg *Config) Validate() error {
	if len(cfg.Growspaces) == 0 {
		return fmt.Errorf("config: no growspaces configured")
	}

	seen := make(map[string]bool, len(cfg.Growspaces))
	for i := range cfg.Growspaces {
		gs := &cfg.Growspaces[i]
		if gs.ID == "" {
			return fmt.Errorf("config: growspace %d has empty id", i)
		}
		if seen[gs.ID] {
			return fmt.Errorf("config: duplicate growspace id %q", gs.ID)
		}
		seen[gs.ID] = true

		if gs.Stage != "" && !profile.GrowthStage(gs.Stage).Valid() {
			return fmt.Errorf("config: growspace %q: unknown stage %q", gs.ID, gs.Stage)
		}
		if gs.StageStart != "" {
			if _, err := time.Parse("2006-01-02", gs.StageStart); err != nil {
				return fmt.Errorf("config: growspace %q: bad stage_start: %w", gs.ID, err)
			}
		}

		for _, c := range gs.Conditions {
			if !knownCondition(c) {
				return fmt.Errorf("config: growspace %q: unknown condition %q", gs.ID, c)
			}
		}
		for c, p := range gs.Priors {
			if !knownCondition(c) {
				return fmt.Errorf("config: growspace %q: prior for unknown condition %q", gs.ID, c)
			}
			if p <= 0 || p >= 1 {
				return fmt.Errorf("config: growspace %q: prior for %s is %v, must be inside (0,1)", gs.ID, c, p)
			}
		}
		for c, g := range gs.Gates {
			if !knownCondition(c) {
				return fmt.Errorf("config: growspace %q: gate for unknown condition %q", gs.ID, c)
			}
			if g.TurnOn <= g.TurnOff {
				return fmt.Errorf("config: growspace %q: gate for %s: turn_on %v must exceed turn_off %v",
					gs.ID, c, g.TurnOn, g.TurnOff)
			}
		}
	}
	return nil
}

func knownCondition(c string) bool {
	switch bayes.Condition(c) {
	case bayes.ConditionStress, bayes.ConditionMoldRisk, bayes.ConditionOptimal,
		bayes.ConditionDrying, bayes.ConditionCuring:
		return true
	}
	return false
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}

// ExpandEnvString expands a single string with environment variables
func ExpandEnvString(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return expandEnvVars(s)
	}
	return s
}
