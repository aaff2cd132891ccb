package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/ruta/pkg/ruta/internalerr"
	"github.com/cognicore/ruta/pkg/ruta/paths"
	"github.com/cognicore/ruta/pkg/ruta/recommend"
	"github.com/cognicore/ruta/pkg/ruta/rules"
)

// Config is the application configuration.
type Config struct {
	Seed   uint64       `yaml:"seed"`
	Rules  RulesConfig  `yaml:"rules"`
	Routes RoutesConfig `yaml:"routes"`
	Store  StoreConfig  `yaml:"store"`
	Output OutputConfig `yaml:"output"`
}

// RulesConfig holds the rule-set constants.
type RulesConfig struct {
	PruneFactor         float64 `yaml:"prune_factor"`
	CongestionMin       float64 `yaml:"congestion_min"`
	CongestionMax       float64 `yaml:"congestion_max"`
	LightWaitMin        float64 `yaml:"light_wait_min"`
	LightWaitMax        float64 `yaml:"light_wait_max"`
	BidirectionalFactor float64 `yaml:"bidirectional_factor"`

	// MaxFirings caps a run. 0 derives the cap from the network size.
	MaxFirings int `yaml:"max_firings"`
}

// RoutesConfig controls candidate route generation. When Generate is set,
// routes are enumerated from the network instead of read from it.
type RoutesConfig struct {
	Generate  bool `yaml:"generate"`
	MaxHops   int  `yaml:"max_hops"`
	MaxRoutes int  `yaml:"max_routes"`
}

// StoreConfig selects the persistence backend: memory, sqlite or postgres.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// OutputConfig selects how recommendations are rendered.
type OutputConfig struct {
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	rc := rules.DefaultConfig()
	lim := paths.DefaultLimits()
	return &Config{
		Seed: 1,
		Rules: RulesConfig{
			PruneFactor:         rc.PruneFactor,
			CongestionMin:       rc.CongestionMin,
			CongestionMax:       rc.CongestionMax,
			LightWaitMin:        rc.LightWaitMin,
			LightWaitMax:        rc.LightWaitMax,
			BidirectionalFactor: rc.BidirectionalFactor,
		},
		Routes: RoutesConfig{MaxHops: lim.MaxHops, MaxRoutes: lim.MaxRoutes},
		Store:  StoreConfig{Driver: "memory"},
		Output: OutputConfig{Format: recommend.FormatText},
	}
}

// Load reads a YAML configuration file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML configuration over the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %v: %w", err, internalerr.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.RuleConfig().Validate(); err != nil {
		return err
	}
	if c.Rules.MaxFirings < 0 {
		return fmt.Errorf("max_firings %d: %w", c.Rules.MaxFirings, internalerr.ErrInvalidConfig)
	}
	if c.Routes.MaxHops < 0 || c.Routes.MaxRoutes < 0 {
		return fmt.Errorf("route limits must not be negative: %w", internalerr.ErrInvalidConfig)
	}
	switch c.Store.Driver {
	case "memory":
	case "sqlite", "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store driver %s needs a dsn: %w", c.Store.Driver, internalerr.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("unknown store driver %q: %w", c.Store.Driver, internalerr.ErrInvalidConfig)
	}
	switch c.Output.Format {
	case recommend.FormatText, recommend.FormatJSON:
	default:
		return fmt.Errorf("unknown output format %q: %w", c.Output.Format, internalerr.ErrInvalidConfig)
	}
	return nil
}

// RuleConfig converts the rule section for rules.New.
func (c *Config) RuleConfig() rules.Config {
	return rules.Config{
		PruneFactor:         c.Rules.PruneFactor,
		CongestionMin:       c.Rules.CongestionMin,
		CongestionMax:       c.Rules.CongestionMax,
		LightWaitMin:        c.Rules.LightWaitMin,
		LightWaitMax:        c.Rules.LightWaitMax,
		BidirectionalFactor: c.Rules.BidirectionalFactor,
	}
}

// Limits converts the route section for paths.Enumerate.
func (c *Config) Limits() paths.Limits {
	return paths.Limits{MaxHops: c.Routes.MaxHops, MaxRoutes: c.Routes.MaxRoutes}
}
