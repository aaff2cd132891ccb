package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cognicore/ruta/pkg/ruta"
	"github.com/cognicore/ruta/pkg/ruta/config"
	"github.com/cognicore/ruta/pkg/ruta/graph"
	"github.com/cognicore/ruta/pkg/ruta/inference"
	"github.com/cognicore/ruta/pkg/ruta/store"
	"github.com/cognicore/ruta/pkg/ruta/store/memstore"
	"github.com/cognicore/ruta/pkg/ruta/store/sqlstore"
)

var version = "dev"

type globals struct {
	cfgFile string
	db      string
	format  string
	trace   bool
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "ruta",
		Short: "Rule-based fastest-route recommender",
		Long: `ruta recommends the fastest route between two landmarks of a road
network. Networks are imported from YAML files into a store and evaluated by a
forward-chaining rule engine that accounts for closures, events, traffic
lights and traffic flow.

Environment:
  RUTA_CONFIG  configuration file (same as --config)
  RUTA_DB      SQLite path or postgres:// URL (same as --db)
  RUTA_SEED    default random seed`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&g.cfgFile, "config", os.Getenv("RUTA_CONFIG"), "Config file (YAML)")
	root.PersistentFlags().StringVar(&g.db, "db", os.Getenv("RUTA_DB"), "SQLite path or postgres:// URL")
	root.PersistentFlags().StringVarP(&g.format, "output", "o", "", "Output format (text, json)")
	root.PersistentFlags().BoolVar(&g.trace, "trace", false, "Log every rule firing")

	root.AddCommand(
		newImportCmd(g),
		newRecommendCmd(g),
		newRunsCmd(g),
		newGraphsCmd(g),
		newLandmarksCmd(g),
		newServeCmd(g),
		newVersionCmd(),
	)
	return root
}

// loadConfig applies flag and environment overrides on top of the config file.
func (g *globals) loadConfig() (*config.Config, error) {
	loader := config.Loader{ConfigPath: g.cfgFile}
	comp, err := loader.Load()
	if err != nil {
		return nil, err
	}
	cfg := comp.Config

	if s := os.Getenv("RUTA_SEED"); s != "" {
		seed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("RUTA_SEED %q: %w", s, err)
		}
		cfg.Seed = seed
	}
	if g.db != "" {
		cfg.Store = storeFor(g.db)
	}
	if g.format != "" {
		cfg.Output.Format = g.format
	}
	return cfg, cfg.Validate()
}

func storeFor(dsn string) config.StoreConfig {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return config.StoreConfig{Driver: "postgres", DSN: dsn}
	}
	return config.StoreConfig{Driver: "sqlite", DSN: dsn}
}

func openStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	if sc.Driver == "memory" {
		return memstore.New(), nil
	}
	return sqlstore.Open(ctx, sc.Driver, sc.DSN)
}

// openPlanner builds a planner over the configured store.
func (g *globals) openPlanner(ctx context.Context) (*ruta.Planner, *config.Config, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	opts := ruta.Options{Config: cfg, Store: st}
	if g.trace {
		opts.OnFire = func(f inference.Firing) {
			log.Printf("fire seq=%d rule=%s salience=%d handles=%v", f.Seq, f.Rule, f.Salience, f.Handles)
		}
	}
	p, err := ruta.New(opts)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return p, cfg, nil
}

// network resolves --network or --graph to a graph.
func network(ctx context.Context, p *ruta.Planner, file, name string) (*graph.Graph, error) {
	switch {
	case file != "":
		return config.LoadNetwork(file)
	case name != "":
		return p.Graph(ctx, name)
	}
	return nil, fmt.Errorf("--network or --graph required")
}
