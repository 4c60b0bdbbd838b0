package main

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"sync"

	"gioui.org/font/gofont"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"gioui.org/x/explorer"
	"git.sr.ht/~gioverse/skel/stream"
	"git.sr.ht/~whereswaldon/watt-wealth/backend"
	"git.sr.ht/~whereswaldon/watt-wealth/config"
	"git.sr.ht/~whereswaldon/watt-wealth/flow"
	"git.sr.ht/~whereswaldon/watt-wealth/render"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/shiny/materialdesign/icons"
)

type (
	C = layout.Context
	D = layout.Dimensions
)

const (
	tabFlow     = "flow"
	tabForecast = "forecast"
)

var (
	pauseIcon = mustIcon(icons.AVPause)
	playIcon  = mustIcon(icons.AVPlayArrow)
)

func mustIcon(data []byte) *widget.Icon {
	ic, err := widget.NewIcon(data)
	if err != nil {
		panic(err)
	}
	return ic
}

// actionResult reports the outcome of a file dialog run off the UI
// goroutine.
type actionResult struct {
	status string
	err    error
	// replay is set when the user picked a trace to replay.
	replay io.ReadCloser
}

// UI is responsible for holding the state of and drawing the top-level UI.
type UI struct {
	ws   backend.WindowState
	expl *explorer.Explorer
	th   *material.Theme

	snapshotStream *stream.Stream[backend.Snapshot]
	readingStream  *stream.Stream[flow.Reading]
	snapshot       backend.Snapshot
	dataset        backend.Dataset
	reading        flow.Reading

	tab       widget.Enum
	flowView  FlowView
	power     *Chart
	battery   *Chart
	tips      TipList
	decisions widget.List
	health    Dialog

	pauseBtn  widget.Clickable
	csvBtn    widget.Clickable
	svgBtn    widget.Clickable
	replayBtn widget.Clickable
	healthBtn widget.Clickable

	busy       bool
	status     string
	statusErr  bool
	results    chan actionResult
	invalidate func()
}

func NewUI(ws backend.WindowState, expl *explorer.Explorer, cfg config.Config, invalidate func()) *UI {
	th := material.NewTheme()
	th.Shaper = text.NewShaper(text.WithCollection(gofont.Collection()), text.NoSystemFonts())
	ds := ws.Bundle.Datasource
	ui := &UI{
		ws:             ws,
		expl:           expl,
		th:             th,
		tab:            widget.Enum{Value: tabFlow},
		flowView:       FlowView{Nudge: cfg.Nudge},
		snapshotStream: stream.New(ws.Controller, ds.Snapshots),
		readingStream:  stream.New(ws.Controller, ds.Live),
		reading:        ds.Latest(),
		results:        make(chan actionResult, 1),
		invalidate:     invalidate,
	}
	if cfg.Replay != "" {
		path := cfg.Replay
		ui.readingStream = stream.New(ws.Controller, func(ctx context.Context) <-chan flow.Reading {
			ch, err := ds.ReplayFile(ctx, path)
			if err != nil {
				log.Errorf("failed replaying %q: %v", path, err)
				return closed[flow.Reading]()
			}
			return ch
		})
	}
	ui.setSnapshot(ds.Snapshot())
	return ui
}

func closed[T any]() <-chan T {
	ch := make(chan T)
	close(ch)
	return ch
}

// replayOnce adapts a picked trace to a stream provider. The trace can only
// be read once, so a restarted stream ends immediately.
func replayOnce(ds *backend.Datasource, source io.ReadCloser) func(context.Context) <-chan flow.Reading {
	var once sync.Once
	return func(ctx context.Context) <-chan flow.Reading {
		ch := closed[flow.Reading]()
		once.Do(func() {
			c, err := ds.Replay(ctx, source)
			if err != nil {
				log.Errorf("failed replaying trace: %v", err)
				return
			}
			ch = c
		})
		return ch
	}
}

func (ui *UI) setSnapshot(s backend.Snapshot) {
	ui.snapshot = s
	ui.dataset = s.Dataset()
	ui.power = ReplaceChart(ui.power, "Power (24h)", ui.dataset,
		backend.SeriesSolar, backend.SeriesLoad, backend.SeriesBattery, backend.SeriesGrid)
	ui.battery = ReplaceChart(ui.battery, "Battery and price", ui.dataset,
		backend.SeriesSoC, backend.SeriesPrice)
	ui.tips.Set(s.Tips)
}

// run executes a file dialog action off the UI goroutine.
func (ui *UI) run(action func() actionResult) {
	ui.busy = true
	go func() {
		ui.results <- action()
		ui.invalidate()
	}()
}

// exportCSV and exportSVG capture what they write on the UI goroutine.
func (ui *UI) exportCSV() func() actionResult {
	d := ui.dataset
	return func() actionResult {
		return ui.export("forecast.csv", func(w io.Writer) error {
			return backend.WriteForecastCSV(w, d)
		})
	}
}

func (ui *UI) exportSVG() func() actionResult {
	r := ui.reading
	nudge := ui.flowView.nudge()
	return func() actionResult {
		return ui.export("flow.svg", func(w io.Writer) error {
			return render.FlowSVG(w, r, nudge)
		})
	}
}

func (ui *UI) export(name string, write func(io.Writer) error) actionResult {
	f, err := ui.expl.CreateFile(name)
	if err != nil {
		return actionResult{err: fmt.Errorf("failed creating %s: %w", name, err)}
	}
	if err := write(f); err != nil {
		f.Close()
		return actionResult{err: fmt.Errorf("failed writing %s: %w", name, err)}
	}
	if err := f.Close(); err != nil {
		return actionResult{err: fmt.Errorf("failed closing %s: %w", name, err)}
	}
	return actionResult{status: "Saved " + name}
}

func (ui *UI) chooseTrace() actionResult {
	f, err := ui.expl.ChooseFile(".csv")
	if err != nil {
		return actionResult{err: fmt.Errorf("failed browsing for trace: %w", err)}
	}
	return actionResult{status: "Replaying trace", replay: f}
}

// Update the state of the UI. The streams are read every frame so that they
// stay alive whichever tab is shown.
func (ui *UI) Update(gtx C) {
	if s, isNew := ui.snapshotStream.ReadNew(gtx); isNew {
		ui.setSnapshot(s)
	}
	ui.readingStream.ReadInto(gtx, &ui.reading, ui.reading)
	ui.tab.Update(gtx)

	select {
	case res := <-ui.results:
		ui.busy = false
		ui.status, ui.statusErr = res.status, false
		if res.err != nil {
			log.Warn(res.err)
			ui.status, ui.statusErr = res.err.Error(), true
		}
		if res.replay != nil {
			ds := ui.ws.Bundle.Datasource
			ds.SetPaused(false)
			ui.readingStream = stream.New(ui.ws.Controller, replayOnce(ds, res.replay))
		}
	default:
	}

	ds := ui.ws.Bundle.Datasource
	if ui.pauseBtn.Clicked(gtx) {
		ds.SetPaused(!ds.Paused())
	}
	if ui.flowView.BatteryClicked(gtx) || ui.healthBtn.Clicked(gtx) {
		ui.health.Open = true
	}
	if ui.busy {
		return
	}
	switch {
	case ui.csvBtn.Clicked(gtx):
		ui.run(ui.exportCSV())
	case ui.svgBtn.Clicked(gtx):
		ui.run(ui.exportSVG())
	case ui.replayBtn.Clicked(gtx):
		ui.run(ui.chooseTrace)
	}
}

type TabStyle struct {
	state  *widget.Enum
	label  material.LabelStyle
	border widget.Border
	inset  layout.Inset
	value  string
	fill   color.NRGBA
}

func Tab(th *material.Theme, state *widget.Enum, value, display string) TabStyle {
	ts := TabStyle{
		state: state,
		label: material.Body1(th, display),
		inset: layout.UniformInset(2),
		border: widget.Border{
			Width: 2,
			Color: th.ContrastBg,
		},
		value: value,
	}
	ts.label.Alignment = text.Middle
	if state.Value == value {
		ts.label.Color = th.ContrastFg
		ts.fill = th.ContrastBg
	}
	return ts
}

func (t TabStyle) Layout(gtx C) D {
	return t.inset.Layout(gtx, func(gtx C) D {
		return t.border.Layout(gtx, func(gtx C) D {
			return t.state.Layout(gtx, t.value, func(gtx C) D {
				return layout.Background{}.Layout(gtx, func(gtx C) D {
					paint.FillShape(gtx.Ops, t.fill, clip.Rect{Max: gtx.Constraints.Min}.Op())
					return D{Size: gtx.Constraints.Min}
				}, func(gtx C) D {
					return t.inset.Layout(gtx, t.label.Layout)
				})
			})
		})
	})
}

func (ui *UI) layoutToolbar(gtx C) D {
	icon := pauseIcon
	if ui.ws.Bundle.Datasource.Paused() {
		icon = playIcon
	}
	button := func(btn *widget.Clickable, label string) layout.FlexChild {
		return layout.Rigid(func(gtx C) D {
			if ui.busy {
				gtx = gtx.Disabled()
			}
			return layout.UniformInset(2).Layout(gtx, material.Button(ui.th, btn, label).Layout)
		})
	}
	return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
		layout.Rigid(func(gtx C) D {
			return layout.UniformInset(2).Layout(gtx, material.IconButton(ui.th, &ui.pauseBtn, icon, "Pause live updates").Layout)
		}),
		button(&ui.csvBtn, "Export CSV"),
		button(&ui.svgBtn, "Export SVG"),
		button(&ui.replayBtn, "Replay trace"),
		layout.Rigid(func(gtx C) D {
			return layout.UniformInset(2).Layout(gtx, material.Button(ui.th, &ui.healthBtn, "Battery").Layout)
		}),
		layout.Flexed(1, func(gtx C) D {
			return layoutStatus(gtx, ui.th, ui.status, ui.statusErr)
		}),
	)
}

func (ui *UI) layoutFlowTab(gtx C) D {
	return layout.Flex{}.Layout(gtx,
		layout.Flexed(0.6, func(gtx C) D {
			return ui.flowView.Layout(gtx, ui.th, ui.reading)
		}),
		layout.Flexed(0.4, func(gtx C) D {
			return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
				layout.Rigid(material.H6(ui.th, "Why the battery does what it does").Layout),
				layout.Flexed(0.5, func(gtx C) D {
					return layoutDecisions(gtx, ui.th, &ui.decisions, ui.snapshot.Decisions)
				}),
				layout.Rigid(material.H6(ui.th, "Tips").Layout),
				layout.Flexed(0.5, func(gtx C) D {
					return ui.tips.Layout(gtx, ui.th)
				}),
			)
		}),
	)
}

func (ui *UI) layoutForecastTab(gtx C) D {
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Flexed(0.5, func(gtx C) D {
			return ui.power.Layout(gtx, ui.th)
		}),
		layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
		layout.Flexed(0.5, func(gtx C) D {
			return ui.battery.Layout(gtx, ui.th)
		}),
	)
}

func (ui *UI) layoutMainArea(gtx C) D {
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(ui.layoutToolbar),
		layout.Rigid(func(gtx C) D {
			return layoutKPIs(gtx, ui.th, KPIs(ui.snapshot, ui.dataset))
		}),
		layout.Rigid(func(gtx C) D {
			return layout.Flex{}.Layout(gtx,
				layout.Flexed(1, Tab(ui.th, &ui.tab, tabFlow, "Flow").Layout),
				layout.Flexed(1, Tab(ui.th, &ui.tab, tabForecast, "Forecast").Layout),
			)
		}),
		layout.Flexed(1, func(gtx C) D {
			return layout.UniformInset(8).Layout(gtx, func(gtx C) D {
				if ui.tab.Value == tabForecast {
					return ui.layoutForecastTab(gtx)
				}
				return ui.layoutFlowTab(gtx)
			})
		}),
	)
}

// Layout the UI into the provided context.
func (ui *UI) Layout(gtx C) D {
	ui.Update(gtx)
	return layout.Stack{}.Layout(gtx,
		layout.Expanded(ui.layoutMainArea),
		layout.Expanded(func(gtx C) D {
			return ui.health.Layout(gtx, ui.th, "Battery health",
				layoutHealth(ui.th, ui.snapshot.Battery, ui.reading.Battery))
		}),
	)
}
