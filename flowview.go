package main

import (
	"image"
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"git.sr.ht/~whereswaldon/watt-wealth/flow"
	"git.sr.ht/~whereswaldon/watt-wealth/labels"
	"git.sr.ht/~whereswaldon/watt-wealth/render"
)

// labelSurface collects the readouts of one frame so the resolver can move
// them before they are drawn.
type labelSurface struct {
	boxes labels.Boxes
	calls map[labels.ID]op.CallOp
}

var _ labels.Surface = (*labelSurface)(nil)

func (s *labelSurface) reset() {
	s.boxes = s.boxes[:0]
	if s.calls == nil {
		s.calls = map[labels.ID]op.CallOp{}
	}
	clear(s.calls)
}

func (s *labelSurface) add(id labels.ID, offset image.Point, size image.Point, call op.CallOp) {
	s.boxes = append(s.boxes, labels.Box{ID: id, Offset: offset, Size: size})
	s.calls[id] = call
}

func (s *labelSurface) Measure() ([]labels.Box, error) {
	if len(s.boxes) == 0 {
		return nil, labels.ErrNotMeasured
	}
	return s.boxes.Measure()
}

func (s *labelSurface) Place(id labels.ID, offset image.Point) error {
	return s.boxes.Place(id, offset)
}

func (s *labelSurface) paint(ops *op.Ops) {
	for _, b := range s.boxes {
		stack := op.Offset(b.Offset).Push(ops)
		s.calls[b.ID].Add(ops)
		stack.Pop()
	}
}

// FlowView draws the power flow diagram scaled to its constraints.
type FlowView struct {
	Nudge      int
	batteryBtn widget.Clickable
	surface    labelSurface
	resolver   labels.Resolver
}

// transform maps diagram coordinates into the widget.
type transform struct {
	scale  float32
	origin f32.Point
}

func newTransform(size image.Point) transform {
	scale := min(float32(size.X)/render.Width, float32(size.Y)/render.Height)
	return transform{
		scale: scale,
		origin: f32.Pt(
			(float32(size.X)-render.Width*scale)/2,
			(float32(size.Y)-render.Height*scale)/2,
		),
	}
}

func (t transform) pt(p render.Point) f32.Point {
	return f32.Pt(t.origin.X+float32(p.X)*t.scale, t.origin.Y+float32(p.Y)*t.scale)
}

func (t transform) length(l float64) float32 {
	return float32(l) * t.scale
}

func strokeLine(ops *op.Ops, a, b f32.Point, width float32, c color.NRGBA) {
	var p clip.Path
	p.Begin(ops)
	p.MoveTo(a)
	p.LineTo(b)
	paint.FillShape(ops, c, clip.Stroke{Path: p.End(), Width: width}.Op())
}

// strokeArc draws the clockwise arc from the top of a circle covering the
// given fraction of it.
func strokeArc(ops *op.Ops, center f32.Point, radius, fraction, width float32, c color.NRGBA) {
	fraction = max(0, min(1, fraction))
	if fraction == 0 {
		return
	}
	const segments = 72
	steps := max(1, int(math.Ceil(float64(segments*fraction))))
	var p clip.Path
	p.Begin(ops)
	for i := 0; i <= steps; i++ {
		angle := -math.Pi/2 + 2*math.Pi*float64(fraction)*float64(i)/float64(steps)
		pt := center.Add(f32.Pt(radius*float32(math.Cos(angle)), radius*float32(math.Sin(angle))))
		if i == 0 {
			p.MoveTo(pt)
		} else {
			p.LineTo(pt)
		}
	}
	paint.FillShape(ops, c, clip.Stroke{Path: p.End(), Width: width}.Op())
}

func fillCircle(ops *op.Ops, center f32.Point, radius float32, c color.NRGBA) {
	r := image.Rect(
		int(center.X-radius), int(center.Y-radius),
		int(center.X+radius), int(center.Y+radius),
	)
	paint.FillShape(ops, c, clip.Ellipse(r).Op(ops))
}

// BatteryClicked reports whether the battery node was clicked.
func (f *FlowView) BatteryClicked(gtx C) bool {
	return f.batteryBtn.Clicked(gtx)
}

func (f *FlowView) Layout(gtx C, th *material.Theme, r flow.Reading) D {
	size := gtx.Constraints.Max
	t := newTransform(size)
	lineWidth := max(t.length(6), 2)
	intensities := flow.Normalize(r)

	for _, p := range render.Paths {
		from, to := p.Ends()
		length := p.Length()
		in := intensities.For(p.Channel)
		strokeLine(gtx.Ops, t.pt(from), t.pt(to), lineWidth, trackColor)
		visible := length - render.DashOffset(length, in.Magnitude)
		if visible <= 0 {
			continue
		}
		c := channelColors[p.Channel]
		c.A = render.Alpha(in.Opacity)
		strokeLine(gtx.Ops, t.pt(from), t.pt(from.Lerp(to, visible/length)), lineWidth, c)
	}

	nodeRadius := t.length(render.NodeRadius)
	for n, center := range render.Nodes {
		id := render.NodeID(n)
		c := t.pt(center)
		fillCircle(gtx.Ops, c, nodeRadius, nodeColor(id))
		if id != render.NodeBattery {
			continue
		}
		ringRadius := t.length(render.RingRadius)
		ringWidth := max(t.length(5), 2)
		ring := float32(1 - render.RingOffset(r.Battery)/render.RingCircumference)
		strokeArc(gtx.Ops, c, ringRadius, 1, ringWidth, trackColor)
		strokeArc(gtx.Ops, c, ringRadius, ring, ringWidth, channelColors[flow.Battery])

		side := int(2 * ringRadius)
		stack := op.Offset(image.Pt(int(c.X-ringRadius), int(c.Y-ringRadius))).Push(gtx.Ops)
		btnGtx := gtx
		btnGtx.Constraints = layout.Exact(image.Pt(side, side))
		f.batteryBtn.Layout(btnGtx, func(gtx C) D {
			return D{Size: gtx.Constraints.Min}
		})
		stack.Pop()
	}

	f.layoutLabels(gtx, th, t, r)
	return D{Size: size}
}

// layoutLabels measures every readout at its natural anchor, lets the
// resolver separate overlaps and then draws them.
func (f *FlowView) layoutLabels(gtx C, th *material.Theme, t transform, r flow.Reading) {
	f.surface.reset()
	labelGtx := gtx
	labelGtx.Constraints.Min = image.Point{}
	for _, l := range render.Labels(r) {
		anchor := t.pt(render.Point{
			X: float64(l.Offset.X) + float64(l.Size.X)/2,
			Y: float64(l.Offset.Y),
		})
		dims, call := rec(labelGtx, material.Body2(th, l.Text).Layout)
		offset := image.Pt(int(anchor.X)-dims.Size.X/2, int(anchor.Y))
		f.surface.add(l.ID, offset, dims.Size, call)
	}
	f.resolver.Nudge = gtx.Dp(unit.Dp(f.nudge()))
	f.resolver.Apply(&f.surface)
	f.surface.paint(gtx.Ops)
}

func (f *FlowView) nudge() int {
	if f.Nudge > 0 {
		return f.Nudge
	}
	return labels.DefaultNudge
}

func rec(gtx C, w layout.Widget) (D, op.CallOp) {
	macro := op.Record(gtx.Ops)
	dims := w(gtx)
	call := macro.Stop()
	return dims, call
}
