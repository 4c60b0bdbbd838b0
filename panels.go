package main

import (
	"image"
	"image/color"

	"gioui.org/font"
	"gioui.org/layout"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"git.sr.ht/~whereswaldon/watt-wealth/backend"
	"git.sr.ht/~whereswaldon/watt-wealth/units"
)

// Tip is one saving tip. Clicking it toggles whether it has been
// acknowledged.
type Tip struct {
	Text  string
	Acked bool
	btn   widget.Clickable
}

type TipList struct {
	tips []*Tip
	list widget.List
}

// Set replaces the tips, keeping the acknowledgement of tips that are still
// present.
func (t *TipList) Set(texts []string) {
	acked := map[string]bool{}
	for _, tip := range t.tips {
		acked[tip.Text] = tip.Acked
	}
	t.tips = t.tips[:0]
	for _, txt := range texts {
		t.tips = append(t.tips, &Tip{Text: txt, Acked: acked[txt]})
	}
}

func (t *TipList) Update(gtx C) {
	for _, tip := range t.tips {
		for tip.btn.Clicked(gtx) {
			tip.Acked = !tip.Acked
		}
	}
}

func (t *TipList) Layout(gtx C, th *material.Theme) D {
	t.Update(gtx)
	t.list.Axis = layout.Vertical
	return material.List(th, &t.list).Layout(gtx, len(t.tips), func(gtx C, i int) D {
		tip := t.tips[i]
		return material.Clickable(gtx, &tip.btn, func(gtx C) D {
			return layout.UniformInset(4).Layout(gtx, func(gtx C) D {
				l := material.Body2(th, "• "+tip.Text)
				if !tip.Acked {
					return l.Layout(gtx)
				}
				l.Color.A = 100
				dims := l.Layout(gtx)
				// Strike the acknowledged tip through.
				y := dims.Size.Y / 2
				paint.FillShape(gtx.Ops, l.Color, clip.Rect{
					Min: image.Pt(0, y),
					Max: image.Pt(dims.Size.X, y+gtx.Dp(1)),
				}.Op())
				return dims
			})
		})
	})
}

// KPI is one headline figure.
type KPI struct {
	Title, Value string
}

func KPIs(s backend.Snapshot, d backend.Dataset) []KPI {
	kpis := []KPI{
		{"Saving now", units.Euros.Format(s.Now.SavingPerHour) + "/h"},
		{"Green energy", units.Percent.Format(s.Now.GreenPercent)},
		{"Saved today", units.Euros.Format(s.Savings.Today)},
		{"This week", units.Euros.Format(s.Savings.Week)},
		{"Lifetime", units.Euros.Format(s.Savings.Lifetime)},
		{"CO₂ avoided", units.Kilograms.Format(s.Savings.CO2Kg)},
	}
	if d.Initialized() {
		kpis = append(kpis, KPI{"Solar forecast", units.KilowattHours.Format(d.TotalSolar())})
		if cheapest := d.CheapestHours(1); len(cheapest) == 1 {
			kpis = append(kpis, KPI{"Cheapest hour", cheapest[0].Hour + ":00 " + units.EurosPerKWh.Format(cheapest[0].Value)})
		}
	}
	return kpis
}

func layoutKPIs(gtx C, th *material.Theme, kpis []KPI) D {
	children := make([]layout.FlexChild, 0, len(kpis))
	for _, k := range kpis {
		k := k
		children = append(children, layout.Flexed(1, func(gtx C) D {
			return layout.UniformInset(4).Layout(gtx, func(gtx C) D {
				return layout.Flex{Axis: layout.Vertical, Alignment: layout.Middle}.Layout(gtx,
					layout.Rigid(material.Caption(th, k.Title).Layout),
					layout.Rigid(material.H6(th, k.Value).Layout),
				)
			})
		}))
	}
	return layout.Flex{}.Layout(gtx, children...)
}

func layoutDecisions(gtx C, th *material.Theme, list *widget.List, decisions []backend.Decision) D {
	list.Axis = layout.Vertical
	return material.List(th, list).Layout(gtx, len(decisions), func(gtx C, i int) D {
		d := decisions[i]
		return layout.UniformInset(4).Layout(gtx, func(gtx C) D {
			return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
				layout.Rigid(func(gtx C) D {
					l := material.Body1(th, d.Period)
					l.Font.Weight = font.Bold
					return l.Layout(gtx)
				}),
				layout.Rigid(material.Body2(th, d.Reason).Layout),
			)
		})
	})
}

// Dialog is a modal card over a dimmed backdrop. Clicking the backdrop or
// the close button dismisses it.
type Dialog struct {
	Open     bool
	scrim    widget.Clickable
	card     widget.Clickable
	closeBtn widget.Clickable
}

func (d *Dialog) Update(gtx C) {
	if d.scrim.Clicked(gtx) || d.closeBtn.Clicked(gtx) {
		d.Open = false
	}
}

func (d *Dialog) Layout(gtx C, th *material.Theme, title string, body layout.Widget) D {
	d.Update(gtx)
	if !d.Open {
		return D{}
	}
	return layout.Stack{Alignment: layout.Center}.Layout(gtx,
		layout.Expanded(func(gtx C) D {
			return d.scrim.Layout(gtx, func(gtx C) D {
				paint.FillShape(gtx.Ops, scrimColor, clip.Rect{Max: gtx.Constraints.Min}.Op())
				return D{Size: gtx.Constraints.Min}
			})
		}),
		layout.Stacked(func(gtx C) D {
			gtx.Constraints.Min = image.Point{}
			gtx.Constraints.Max.X = min(gtx.Constraints.Max.X, gtx.Dp(360))
			// The card swallows clicks so they do not reach the backdrop.
			return d.card.Layout(gtx, func(gtx C) D {
				return layout.Background{}.Layout(gtx,
					func(gtx C) D {
						rr := gtx.Dp(8)
						paint.FillShape(gtx.Ops, th.Bg, clip.UniformRRect(image.Rectangle{Max: gtx.Constraints.Min}, rr).Op(gtx.Ops))
						return D{Size: gtx.Constraints.Min}
					},
					func(gtx C) D {
						return layout.UniformInset(16).Layout(gtx, func(gtx C) D {
							heading := material.H6(th, title)
							heading.Alignment = text.Middle
							return layout.Flex{Axis: layout.Vertical, Alignment: layout.Middle}.Layout(gtx,
								layout.Rigid(heading.Layout),
								layout.Rigid(layout.Spacer{Height: 8}.Layout),
								layout.Rigid(body),
								layout.Rigid(layout.Spacer{Height: 8}.Layout),
								layout.Rigid(material.Button(th, &d.closeBtn, "Close").Layout),
							)
						})
					},
				)
			})
		}),
	)
}

func layoutHealth(th *material.Theme, h backend.Health, soc float64) layout.Widget {
	rows := []KPI{
		{"Charge", units.Percent.Format(soc)},
		{"State of health", units.Percent.Format(h.SoH)},
		{"Cycles", units.Unknown.Format(float64(h.Cycles))},
		{"Expected life", units.Unknown.Format(h.LifeYears) + " years"},
	}
	return func(gtx C) D {
		children := make([]layout.FlexChild, 0, len(rows))
		for _, r := range rows {
			r := r
			children = append(children, layout.Rigid(func(gtx C) D {
				return layout.Flex{Spacing: layout.SpaceBetween}.Layout(gtx,
					layout.Rigid(material.Body1(th, r.Title).Layout),
					layout.Rigid(layout.Spacer{Width: unit.Dp(24)}.Layout),
					layout.Rigid(material.Body1(th, r.Value).Layout),
				)
			}))
		}
		return layout.Flex{Axis: layout.Vertical}.Layout(gtx, children...)
	}
}

func layoutStatus(gtx C, th *material.Theme, msg string, isErr bool) D {
	if msg == "" {
		return D{}
	}
	l := material.Body2(th, msg)
	if isErr {
		l.Color = errorColor
	} else {
		l.Color = color.NRGBA{R: 60, G: 60, B: 60, A: 255}
	}
	return layout.UniformInset(4).Layout(gtx, l.Layout)
}
