package main

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"gioui.org/font/gofont"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/text"
	"gioui.org/widget/material"
	"git.sr.ht/~whereswaldon/watt-wealth/backend"
	"git.sr.ht/~whereswaldon/watt-wealth/flow"
	"git.sr.ht/~whereswaldon/watt-wealth/labels"
	"git.sr.ht/~whereswaldon/watt-wealth/render"
)

func TestHexColor(t *testing.T) {
	type testcase struct {
		in       string
		expected color.NRGBA
	}
	for _, tc := range []testcase{
		{"#f5a623", color.NRGBA{R: 0xf5, G: 0xa6, B: 0x23, A: 0xff}},
		{"#000000", color.NRGBA{A: 0xff}},
		{"f5a623", color.NRGBA{A: 0xff}},
		{"#zzzzzz", color.NRGBA{A: 0xff}},
	} {
		if got := hexColor(tc.in); got != tc.expected {
			t.Errorf("hexColor(%q) = %v, expected %v", tc.in, got, tc.expected)
		}
	}
}

func TestLabelSurface(t *testing.T) {
	var s labelSurface
	s.reset()
	if _, err := s.Measure(); !errors.Is(err, labels.ErrNotMeasured) {
		t.Fatalf("expected ErrNotMeasured before any label, got %v", err)
	}
	s.add("a", image.Pt(10, 10), image.Pt(40, 16), op.CallOp{})
	s.add("b", image.Pt(20, 14), image.Pt(40, 16), op.CallOp{})
	boxes, err := s.Measure()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(boxes) != 2 {
		t.Fatalf("expected 2 boxes, got %d", len(boxes))
	}
	if err := s.Place("b", image.Pt(20, 30)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	boxes, _ = s.Measure()
	if boxes[1].Offset != image.Pt(20, 30) {
		t.Errorf("expected b at (20,30), got %v", boxes[1].Offset)
	}
	s.reset()
	if _, err := s.Measure(); !errors.Is(err, labels.ErrNotMeasured) {
		t.Errorf("expected reset to forget labels, got %v", err)
	}
}

func TestReplaceChart(t *testing.T) {
	d := backend.Fallback().Dataset()
	first := ReplaceChart(nil, "power", d, backend.SeriesSolar, backend.SeriesLoad)
	if len(first.Enabled) != 2 || !first.Enabled[0].Value || !first.Enabled[1].Value {
		t.Fatalf("expected every series enabled on a new chart")
	}
	first.Enabled[1].Value = false

	second := ReplaceChart(first, "power", d, backend.SeriesLoad, backend.SeriesGrid)
	if !first.Disposed() {
		t.Errorf("expected the previous chart to be disposed")
	}
	if second.Disposed() {
		t.Errorf("new chart should not be disposed")
	}
	if second.Enabled[0].Value {
		t.Errorf("expected load to stay disabled")
	}
	if !second.Enabled[1].Value {
		t.Errorf("expected grid, new to this chart, to be enabled")
	}
}

func TestTipListKeepsAcks(t *testing.T) {
	var tips TipList
	tips.Set([]string{"run the dishwasher at noon", "charge the car overnight"})
	tips.tips[0].Acked = true
	tips.Set([]string{"charge the car overnight", "run the dishwasher at noon", "lower the thermostat"})
	for _, tip := range tips.tips {
		expected := tip.Text == "run the dishwasher at noon"
		if tip.Acked != expected {
			t.Errorf("tip %q acked=%v, expected %v", tip.Text, tip.Acked, expected)
		}
	}
}

func TestKPIs(t *testing.T) {
	s := backend.Fallback()
	kpis := KPIs(s, s.Dataset())
	if len(kpis) != 8 {
		t.Fatalf("expected 8 KPIs with a forecast, got %d", len(kpis))
	}
	if kpis := KPIs(s, backend.Dataset{}); len(kpis) != 6 {
		t.Errorf("expected 6 KPIs without a forecast, got %d", len(kpis))
	}
}

func TestFlowViewLayout(t *testing.T) {
	th := material.NewTheme()
	th.Shaper = text.NewShaper(text.WithCollection(gofont.Collection()), text.NoSystemFonts())
	size := image.Pt(render.Width, render.Height)
	gtx := layout.Context{
		Ops:         new(op.Ops),
		Constraints: layout.Exact(size),
	}
	var f FlowView
	dims := f.Layout(gtx, th, flow.Reading{Solar: 4.2, Battery: 65, Grid: 0.3, Home: 1.8})
	if dims.Size != size {
		t.Errorf("expected size %v, got %v", size, dims.Size)
	}
	boxes, err := f.surface.Measure()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(boxes) != len(render.Labels(flow.Reading{})) {
		t.Errorf("expected a box per label, got %d", len(boxes))
	}
	for _, b := range boxes {
		if b.Size.X <= 0 || b.Size.Y <= 0 {
			t.Errorf("label %q was not measured: %v", b.ID, b.Size)
		}
	}
}

func TestChartAxesBelowZero(t *testing.T) {
	s := backend.Fallback()
	battery := make([]float64, len(s.Forecast.Hours))
	battery[3] = -1.5
	battery[12] = 2
	s.Forecast.BatteryPower = battery
	d := s.Dataset()
	c := ReplaceChart(nil, "power", d, backend.SeriesSolar, backend.SeriesBattery)

	left, _ := c.axes()
	if left.lo != -2 || left.hi != 5 {
		t.Fatalf("expected left axis [-2,5], got [%v,%v]", left.lo, left.hi)
	}
	if got := left.at(0); got != -2 {
		t.Errorf("expected the bottom label to read -2, got %v", got)
	}
	for _, id := range c.ids {
		series := d.Get(id)
		for hour := 0; hour < series.Len(); hour++ {
			if f := left.fraction(series.At(hour)); f < 0 || f > 1 {
				t.Errorf("%s at hour %d plots at %v, outside the axis", series.Name(), hour, f)
			}
		}
	}

	c.Enabled[1].Value = false
	if left, _ := c.axes(); left.lo != 0 {
		t.Errorf("expected the axis to start at zero without the battery, got %v", left.lo)
	}
}
