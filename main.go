package main

import (
	"context"
	"os"

	"gioui.org/app"
	"gioui.org/op"
	"gioui.org/unit"
	"gioui.org/x/explorer"
	"git.sr.ht/~whereswaldon/watt-wealth/backend"
	"git.sr.ht/~whereswaldon/watt-wealth/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	v := config.New()
	launched := false
	root := &cobra.Command{
		Use:          "watt-wealth",
		Short:        "Home energy dashboard: live power flow, forecast and savings",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, cmd.Flags())
			if err != nil {
				return err
			}
			cfg.ConfigureLogging()
			ds, err := cfg.Datasource()
			if err != nil {
				return err
			}
			launched = true
			w := app.NewWindow(
				app.Title("WattWealth"),
				app.Size(unit.Dp(1100), unit.Dp(760)),
			)
			go func() {
				if err := loop(w, ds, cfg); err != nil {
					log.Fatal(err)
				}
				os.Exit(0)
			}()
			return nil
		},
	}
	config.Flags(root.Flags())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
	if launched {
		app.Main()
	}
}

func loop(w *app.Window, ds *backend.Datasource, cfg config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer func() {
		if err := ds.Close(); err != nil {
			log.Warnf("failed closing datasource: %v", err)
		}
	}()
	expl := explorer.NewExplorer(w)
	ws := backend.NewWindowState(ctx, backend.NewBundle(ds), w.Invalidate)
	ui := NewUI(ws, expl, cfg, w.Invalidate)
	var ops op.Ops
	for {
		ev := w.NextEvent()
		expl.ListenEvents(ev)
		switch ev := ev.(type) {
		case app.DestroyEvent:
			return ev.Err
		case app.FrameEvent:
			gtx := app.NewContext(&ops, ev)
			ui.Layout(gtx)
			ev.Frame(gtx.Ops)
		}
	}
}
