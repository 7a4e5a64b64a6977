// Package config loads the root YAML configuration of a dungen host: logging,
// telemetry, the scheduler, weapon and enemy presets, and what to spawn.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/amp-labs/dungen/ai"
	"github.com/amp-labs/dungen/logger"
	"github.com/amp-labs/dungen/telemetry"
	"github.com/amp-labs/dungen/weapon"
	"gopkg.in/yaml.v3"
)

const (
	defaultInterval = 16 * time.Millisecond
	defaultWorkers  = 8
)

// ErrInvalidConfig is returned when the configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the root configuration document.
type Config struct {
	Logging   Logging                 `json:"logging"   yaml:"logging"`
	Telemetry telemetry.Config        `json:"telemetry" yaml:"telemetry"`
	Scheduler Scheduler               `json:"scheduler" yaml:"scheduler"`
	Weapons   map[string]WeaponPreset `json:"weapons"   yaml:"weapons"`
	Enemies   map[string]EnemyPreset  `json:"enemies"   yaml:"enemies"`
	Spawns    []Spawn                 `json:"spawns"    yaml:"spawns"`
}

// Logging selects the log format, level and destination.
type Logging struct {
	Level  string `json:"level"  yaml:"level"`
	JSON   bool   `json:"json"   yaml:"json"`
	Output string `json:"output" yaml:"output"`
}

// Scheduler tunes the host loop.
type Scheduler struct {
	Interval time.Duration `json:"interval" yaml:"interval"`
	Workers  int           `json:"workers"  yaml:"workers"`
}

// Spawn places Count enemies built from an enemy preset. Each enemy may
// carry a weapon preset.
type Spawn struct {
	Name     string     `json:"name"     yaml:"name"`
	Enemy    string     `json:"enemy"    yaml:"enemy"`
	Weapon   string     `json:"weapon"   yaml:"weapon"`
	Count    int        `json:"count"    yaml:"count"`
	Position [3]float64 `json:"position" yaml:"position"`
}

// WeaponPreset is a named weapon.Properties. Fields left out of the document
// keep their defaults.
type WeaponPreset weapon.Properties

// UnmarshalYAML decodes over weapon.DefaultProperties.
func (p *WeaponPreset) UnmarshalYAML(value *yaml.Node) error {
	props := weapon.DefaultProperties()

	err := decodeStrict(value, &props)
	if err != nil {
		return err
	}

	*p = WeaponPreset(props)

	return nil
}

// Properties returns the preset as weapon properties.
func (p WeaponPreset) Properties() weapon.Properties {
	return weapon.Properties(p)
}

// EnemyPreset is a named ai.Settings. Fields left out of the document keep
// their defaults.
type EnemyPreset ai.Settings

// UnmarshalYAML decodes over ai.DefaultSettings.
func (p *EnemyPreset) UnmarshalYAML(value *yaml.Node) error {
	settings := ai.DefaultSettings()

	err := decodeStrict(value, &settings)
	if err != nil {
		return err
	}

	*p = EnemyPreset(settings)

	return nil
}

// Settings returns the preset as AI settings.
func (p EnemyPreset) Settings() ai.Settings {
	return ai.Settings(p)
}

// decodeStrict decodes a preset node rejecting unknown fields. Node.Decode
// does not carry KnownFields over from the outer decoder, so the node is
// re-encoded and decoded on its own.
func decodeStrict(value *yaml.Node, out any) error {
	raw, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	err = dec.Decode(out)
	if err != nil {
		return fmt.Errorf("preset at line %d: %w", value.Line, err)
	}

	return nil
}

// Load reads, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg, err := LoadFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromBytes parses a YAML document. Unknown fields are rejected. An empty
// document yields the defaults.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := &Config{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	err := dec.Decode(cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.ApplyDefaults()

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	c.Telemetry.ApplyDefaults()

	if c.Scheduler.Interval == 0 {
		c.Scheduler.Interval = defaultInterval
	}

	if c.Scheduler.Workers == 0 {
		c.Scheduler.Workers = defaultWorkers
	}

	for i := range c.Spawns {
		if c.Spawns[i].Count == 0 {
			c.Spawns[i].Count = 1
		}
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	_, err := logger.ParseLevel(c.Logging.Level)
	if err != nil {
		invalid("logging: %w", err)
	}

	_, err = logger.ParseOutput(c.Logging.Output)
	if err != nil {
		invalid("logging: %w", err)
	}

	err = c.Telemetry.Validate()
	if err != nil {
		invalid("telemetry: %w", err)
	}

	if c.Scheduler.Interval < 0 {
		invalid("scheduler interval must be positive")
	}

	if c.Scheduler.Workers < 0 {
		invalid("scheduler workers must not be negative")
	}

	for name, preset := range c.Weapons {
		err = preset.Properties().Validate()
		if err != nil {
			invalid("weapon %q: %w", name, err)
		}
	}

	for name, preset := range c.Enemies {
		err = preset.Settings().Validate()
		if err != nil {
			invalid("enemy %q: %w", name, err)
		}
	}

	seen := make(map[string]bool, len(c.Spawns))

	for i, spawn := range c.Spawns {
		if strings.TrimSpace(spawn.Name) == "" {
			invalid("spawn %d: name is required", i)
		} else if seen[spawn.Name] {
			invalid("spawn %q: duplicate name", spawn.Name)
		}

		seen[spawn.Name] = true

		if _, ok := c.Enemies[spawn.Enemy]; !ok {
			invalid("spawn %q: unknown enemy preset %q", spawn.Name, spawn.Enemy)
		}

		if _, ok := c.Weapons[spawn.Weapon]; spawn.Weapon != "" && !ok {
			invalid("spawn %q: unknown weapon preset %q", spawn.Name, spawn.Weapon)
		}

		if spawn.Count < 0 {
			invalid("spawn %q: count must not be negative", spawn.Name)
		}
	}

	return errors.Join(errs...)
}

// LoggerOptions converts the logging section for logger.ConfigureLoggingWithOptions.
// Call it on a validated config.
func (c *Config) LoggerOptions(subsystem string) logger.Options {
	level, _ := logger.ParseLevel(c.Logging.Level)
	output, _ := logger.ParseOutput(c.Logging.Output)

	return logger.Options{
		Subsystem: subsystem,
		JSON:      c.Logging.JSON,
		MinLevel:  level,
		Output:    output,
	}
}
