package config

import (
	"fmt"

	"github.com/cognicore/ruta/pkg/ruta/graph"
)

// Loader loads the configuration file and an optional network file.
type Loader struct {
	ConfigPath  string
	NetworkPath string
}

// Components holds everything a Loader produced.
type Components struct {
	Config  *Config
	Network *graph.Graph // nil when no network file was given
}

// Load reads the files named by the loader. An empty ConfigPath yields the
// default configuration.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	// Load configuration
	if l.ConfigPath != "" {
		cfg, err := Load(l.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		comp.Config = cfg
	} else {
		comp.Config = Default()
	}

	// Load network
	if l.NetworkPath != "" {
		g, err := LoadNetwork(l.NetworkPath)
		if err != nil {
			return nil, fmt.Errorf("load network: %w", err)
		}
		comp.Network = g
	}

	return comp, nil
}
