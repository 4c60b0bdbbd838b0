package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"git.sr.ht/~whereswaldon/watt-wealth/backend"
	"git.sr.ht/~whereswaldon/watt-wealth/config"
	"git.sr.ht/~whereswaldon/watt-wealth/flow"
	"git.sr.ht/~whereswaldon/watt-wealth/render"
	"git.sr.ht/~whereswaldon/watt-wealth/server"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// openOutput opens path for writing, with "-" meaning stdout.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed creating output: %w", err)
	}
	return f, nil
}

func writeTo(path string, write func(io.Writer) error) error {
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	if err := write(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func newRootCmd() *cobra.Command {
	v := config.New()
	var cfg config.Config
	root := &cobra.Command{
		Use:           "watt-wealth-cli",
		Short:         "Headless tools for the WattWealth home energy dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load(v, cmd.Flags())
			if err != nil {
				return err
			}
			c.ConfigureLogging()
			cfg = c
			return nil
		},
	}
	config.Flags(root.PersistentFlags())
	root.AddCommand(
		serveCmd(&cfg),
		reportCmd(&cfg),
		flowSVGCmd(&cfg),
		exportCSVCmd(&cfg),
	)
	return root
}

func serveCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard data, live readings and documents over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			ds, err := cfg.Datasource()
			if err != nil {
				return err
			}
			defer func() {
				if err := ds.Close(); err != nil {
					log.Errorf("failed closing trace: %v", err)
				}
			}()
			readings, err := readingSource(ctx, ds, cfg.Replay)
			if err != nil {
				return err
			}
			srv := server.New(ds, cfg.Nudge)
			go srv.Run(ctx, readings)
			go func() {
				for range ds.Snapshots(ctx) {
				}
			}()
			return srv.ListenAndServe(ctx, cfg.Listen)
		},
	}
}

func readingSource(ctx context.Context, ds *backend.Datasource, replay string) (<-chan flow.Reading, error) {
	if replay == "" {
		return ds.Live(ctx), nil
	}
	log.Infof("replaying %q", replay)
	return ds.ReplayFile(ctx, replay)
}

func outputFlag(cmd *cobra.Command, def string) *string {
	return cmd.Flags().StringP("output", "o", def, `output file ("-" for stdout)`)
}

func reportCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the forecast charts as an HTML page",
		Args:  cobra.NoArgs,
	}
	output := outputFlag(cmd, "report.html")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		s := backend.LoadOrFallback(cfg.Data)
		return writeTo(*output, func(w io.Writer) error {
			return render.Report(w, s)
		})
	}
	return cmd
}

func flowSVGCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flow-svg",
		Short: "Write the present power flow diagram as SVG",
		Args:  cobra.NoArgs,
	}
	output := outputFlag(cmd, "flow.svg")
	ticks := cmd.Flags().Int("ticks", 0, "advance the simulated reading by this many live updates first")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		r := backend.LoadOrFallback(cfg.Data).Now.Reading
		rnd := newSource(cfg.Seed)
		for i := 0; i < *ticks; i++ {
			r = flow.Tick(r, rnd)
		}
		return writeTo(*output, func(w io.Writer) error {
			return render.FlowSVG(w, r, cfg.Nudge)
		})
	}
	return cmd
}

func exportCSVCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-csv",
		Short: "Write the 24 hour forecast as CSV",
		Args:  cobra.NoArgs,
	}
	output := outputFlag(cmd, "-")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		d := backend.LoadOrFallback(cfg.Data).Dataset()
		return writeTo(*output, func(w io.Writer) error {
			return backend.WriteForecastCSV(w, d)
		})
	}
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newSource(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
