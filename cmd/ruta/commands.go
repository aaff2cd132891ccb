package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognicore/ruta/internal/httpapi"
	"github.com/cognicore/ruta/pkg/ruta"
	"github.com/cognicore/ruta/pkg/ruta/config"
	"github.com/cognicore/ruta/pkg/ruta/recommend"
	"github.com/cognicore/ruta/pkg/ruta/store"
)

func newImportCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "import NAME FILE",
		Short: "Import a YAML network into the store",
		Long: `Validate a YAML road network and store it under NAME, replacing any
graph already stored under that name.

Examples:
  ruta import medellin data/medellin.yaml --db ruta.db`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, _, err := g.openPlanner(ctx)
			if err != nil {
				return err
			}
			defer p.Close()

			net, err := config.LoadNetwork(args[1])
			if err != nil {
				return err
			}
			if err := p.Import(ctx, args[0], net); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s: %d triples\n", args[0], net.Len())
			return nil
		},
	}
}

func newRecommendCmd(g *globals) *cobra.Command {
	var (
		from, to    string
		graphName   string
		networkFile string
		seed        uint64
	)
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend the fastest route between two landmarks",
		Long: `Run the rule engine over a network and print the fastest route.

The network is read from --network or loaded from the store by --graph.
Runs over stored graphs are recorded in the run history.

Examples:
  ruta recommend --network data/medellin.yaml --from "Universidad Nacional" --to "Estadio Atanasio Girardot"
  ruta recommend --graph medellin --from UNAL --to ESTADIO -o json --seed 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, cfg, err := g.openPlanner(ctx)
			if err != nil {
				return err
			}
			defer p.Close()

			req := ruta.Request{Graph: graphName, From: from, To: to, Seed: seed}
			if networkFile != "" {
				if req.Network, err = config.LoadNetwork(networkFile); err != nil {
					return err
				}
			}
			res, err := p.Recommend(ctx, req)
			if err != nil {
				return err
			}
			if g.trace {
				fmt.Fprintf(cmd.ErrOrStderr(), "run %s seed=%d firings=%d\n", res.RunID, res.Seed, res.Firings)
			}
			return recommend.Render(cmd.OutOrStdout(), res.Recommendation, cfg.Output.Format)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Origin landmark name (required)")
	cmd.Flags().StringVar(&to, "to", "", "Destination landmark name (required)")
	cmd.Flags().StringVar(&graphName, "graph", "", "Stored graph name")
	cmd.Flags().StringVar(&networkFile, "network", "", "YAML network file")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (0 uses the configured seed)")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagsMutuallyExclusive("graph", "network")
	cmd.MarkFlagsOneRequired("graph", "network")
	return cmd
}

func newRunsCmd(g *globals) *cobra.Command {
	var (
		graphName string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded recommendation runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, cfg, err := g.openPlanner(ctx)
			if err != nil {
				return err
			}
			defer p.Close()

			runs, err := p.Runs(ctx, graphName, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cfg.Output.Format == recommend.FormatJSON {
				rows := make([]store.RunView, len(runs))
				for i, r := range runs {
					rows[i] = r.View()
				}
				return writeJSON(out, rows)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tGRAPH\tFROM\tTO\tROUTE\tMINUTES\tKM")
			for _, r := range runs {
				route := recommend.NoRoute
				if r.Found {
					route = fmt.Sprintf("%d", r.RouteID)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f\t%.2f\n", r.ID, r.Graph, r.From, r.To, route, r.Minutes, r.DistanceKm)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&graphName, "graph", "", "Only runs over this graph")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	return cmd
}

func newGraphsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "graphs",
		Short: "List stored network graphs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, cfg, err := g.openPlanner(ctx)
			if err != nil {
				return err
			}
			defer p.Close()

			graphs, err := p.Graphs(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cfg.Output.Format == recommend.FormatJSON {
				rows := make([]store.GraphView, len(graphs))
				for i, gi := range graphs {
					rows[i] = gi.View()
				}
				return writeJSON(out, rows)
			}
			for _, gi := range graphs {
				fmt.Fprintf(out, "%s\t%d triples\t%s\n", gi.Name, gi.Triples, gi.UpdatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}

func newLandmarksCmd(g *globals) *cobra.Command {
	var graphName, networkFile string
	cmd := &cobra.Command{
		Use:   "landmarks",
		Short: "List the landmarks of a network",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, cfg, err := g.openPlanner(ctx)
			if err != nil {
				return err
			}
			defer p.Close()

			net, err := network(ctx, p, networkFile, graphName)
			if err != nil {
				return err
			}
			names, err := ruta.Landmarks(net)
			if err != nil {
				return err
			}
			if cfg.Output.Format == recommend.FormatJSON {
				return writeJSON(cmd.OutOrStdout(), names)
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
			return nil
		},
	}
	cmd.Flags().StringVar(&graphName, "graph", "", "Stored graph name")
	cmd.Flags().StringVar(&networkFile, "network", "", "YAML network file")
	return cmd
}

func newServeCmd(g *globals) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve recommendations over HTTP",
		Long: `Serve stored graphs, recommendations and run history as a JSON API.

Routes:
  GET  /api/graphs
  GET  /api/graphs/{name}/landmarks
  POST /api/recommend   {"graph": "...", "from": "...", "to": "...", "seed": 0}
  GET  /api/runs?graph=NAME&limit=N
  GET  /api/runs/{id}

Examples:
  ruta serve --db ruta.db --addr :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p, _, err := g.openPlanner(ctx)
			if err != nil {
				return err
			}
			defer p.Close()

			srv := &http.Server{
				Addr:              addr,
				Handler:           httpapi.NewHandler(p).Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errc := make(chan error, 1)
			go func() {
				log.Printf("ruta listening on %s", addr)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			log.Println("shutting down")
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ruta %s\n", version)
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
