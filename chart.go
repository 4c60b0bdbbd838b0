package main

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"

	"gioui.org/f32"
	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"gioui.org/x/component"
	"git.sr.ht/~whereswaldon/watt-wealth/backend"
	"git.sr.ht/~whereswaldon/watt-wealth/units"
	"golang.org/x/exp/constraints"
)

// Chart plots some series of a forecast dataset against the hour of day.
// Series sharing the unit of the first series use the left axis, all others
// are scaled to the right axis.
type Chart struct {
	Title    string
	data     backend.Dataset
	ids      []backend.SeriesID
	Enabled  []*widget.Bool
	keyTable component.GridState
	// hover gesture state
	pos       f32.Point
	isHovered bool
	disposed  bool
}

// ReplaceChart returns a chart of the given series of d, disposing prev. The
// enabled state of series that prev also plotted carries over.
func ReplaceChart(prev *Chart, title string, d backend.Dataset, ids ...backend.SeriesID) *Chart {
	c := &Chart{
		Title: title,
		data:  d,
		ids:   slices.Clone(ids),
	}
	for _, id := range ids {
		enabled := true
		if prev != nil && !prev.disposed {
			if j := slices.Index(prev.ids, id); j >= 0 {
				enabled = prev.Enabled[j].Value
			}
		}
		c.Enabled = append(c.Enabled, &widget.Bool{Value: enabled})
	}
	if prev != nil {
		prev.Dispose()
	}
	return c
}

// Dispose releases the chart's data. A disposed chart lays out as empty
// space.
func (c *Chart) Dispose() {
	c.disposed = true
	c.data = backend.Dataset{}
	c.ids = nil
	c.Enabled = nil
}

func (c *Chart) Disposed() bool {
	return c.disposed
}

func ceil[T constraints.Integer | constraints.Float](a T) T {
	return T(math.Ceil(float64(a)))
}

func floor[T constraints.Integer | constraints.Float](a T) T {
	return T(math.Floor(float64(a)))
}

// axis is the value range of a y axis. Its bottom is zero unless a series
// dips below it.
type axis struct {
	lo, hi float64
}

func newAxis(lo, hi float64) axis {
	a := axis{hi: niceCeil(hi)}
	if lo < 0 {
		a.lo = -niceCeil(-lo)
	}
	return a
}

// fraction is the height of v above the bottom of the axis, relative to the
// axis span.
func (a axis) fraction(v float64) float64 {
	return (v - a.lo) / (a.hi - a.lo)
}

// at is the value at the given fraction of the axis span.
func (a axis) at(frac float64) float64 {
	return a.lo + frac*(a.hi-a.lo)
}

// axes returns the ranges of the left and right axes.
func (c *Chart) axes() (left, right axis) {
	primary := c.data.Get(c.ids[0]).Unit()
	var leftLo, leftHi, rightLo, rightHi float64
	for i, id := range c.ids {
		if !c.Enabled[i].Value {
			continue
		}
		s := c.data.Get(id)
		lo, hi := s.Range()
		if s.Unit() == primary {
			leftLo, leftHi = min(leftLo, lo), max(leftHi, hi)
		} else {
			rightLo, rightHi = min(rightLo, lo), max(rightHi, hi)
		}
	}
	return newAxis(leftLo, leftHi), newAxis(rightLo, rightHi)
}

// niceCeil rounds v up to one significant digit, so that axis ticks fall on
// round numbers.
func niceCeil(v float64) float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 1
	}
	mag := math.Pow(10, floor(math.Log10(v)))
	return ceil(v/mag) * mag
}

func (c *Chart) axisFor(i int, left, right axis) axis {
	if c.data.Get(c.ids[i]).Unit() == c.data.Get(c.ids[0]).Unit() {
		return left
	}
	return right
}

func (c *Chart) Update(gtx C) {
	for _, e := range c.Enabled {
		e.Update(gtx)
	}
	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target: c,
			Kinds:  pointer.Enter | pointer.Leave | pointer.Move,
		})
		if !ok {
			break
		}
		switch ev := ev.(type) {
		case pointer.Event:
			switch ev.Kind {
			case pointer.Enter:
				c.isHovered = true
				c.pos = ev.Position
			case pointer.Leave, pointer.Cancel:
				c.isHovered = false
			case pointer.Move:
				c.pos = ev.Position
			}
		}
	}
}

func (c *Chart) Layout(gtx C, th *material.Theme) D {
	if c.disposed || len(c.ids) == 0 || !c.data.Initialized() {
		return D{Size: gtx.Constraints.Max}
	}
	c.Update(gtx)
	origConstraints := gtx.Constraints
	gtx.Constraints.Min = image.Point{}

	// Reserve space for the axis labels and the key.
	axisLabel := material.Body2(th, "000.0")
	axisDims, _ := rec(gtx, axisLabel.Layout)
	gtx.Constraints.Min.X = gtx.Constraints.Max.X
	keyDims, keyCall := rec(gtx, func(gtx C) D {
		return c.layoutKey(gtx, th)
	})
	gtx.Constraints = origConstraints

	left, right := c.axes()
	title := material.Body1(th, c.Title)
	title.Alignment = text.Middle
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(title.Layout),
		layout.Flexed(1, func(gtx C) D {
			return layout.Flex{}.Layout(gtx,
				layout.Rigid(func(gtx C) D {
					return c.layoutYAxis(gtx, th, axisDims.Size.X, left, c.data.Get(c.ids[0]).Unit())
				}),
				layout.Flexed(1, func(gtx C) D {
					return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
						layout.Flexed(1, func(gtx C) D {
							return c.layoutPlot(gtx, th, left, right)
						}),
						layout.Rigid(func(gtx C) D {
							return c.layoutXAxis(gtx, th)
						}),
					)
				}),
				layout.Rigid(func(gtx C) D {
					if !c.hasSecondary() {
						return D{Size: image.Pt(axisDims.Size.X, 0)}
					}
					return c.layoutYAxis(gtx, th, axisDims.Size.X, right, c.secondaryUnit())
				}),
			)
		}),
		layout.Rigid(func(gtx C) D {
			keyCall.Add(gtx.Ops)
			return keyDims
		}),
	)
}

func (c *Chart) hasSecondary() bool {
	_, ok := c.secondary()
	return ok
}

func (c *Chart) secondary() (units.Unit, bool) {
	primary := c.data.Get(c.ids[0]).Unit()
	for _, id := range c.ids {
		if u := c.data.Get(id).Unit(); u != primary {
			return u, true
		}
	}
	return units.Unknown, false
}

func (c *Chart) secondaryUnit() units.Unit {
	u, _ := c.secondary()
	return u
}

// layoutYAxis draws the top, middle and bottom values of an axis.
func (c *Chart) layoutYAxis(gtx C, th *material.Theme, width int, a axis, unit units.Unit) D {
	gtx.Constraints.Min = image.Point{}
	label := material.Body2(th, "")
	height := gtx.Constraints.Max.Y
	for _, frac := range []float64{1, 0.5, 0} {
		label.Text = fmt.Sprintf("%.4g", a.at(frac))
		dims, call := rec(gtx, label.Layout)
		y := int(float64(height-dims.Size.Y) * (1 - frac))
		stack := op.Offset(image.Pt(width-dims.Size.X, y)).Push(gtx.Ops)
		call.Add(gtx.Ops)
		stack.Pop()
	}
	label.Text = unit.String()
	dims, call := rec(gtx, label.Layout)
	stack := op.Offset(image.Pt(width-dims.Size.X, height/2-dims.Size.Y*2)).Push(gtx.Ops)
	call.Add(gtx.Ops)
	stack.Pop()
	return D{Size: image.Pt(width, height)}
}

func (c *Chart) layoutXAxis(gtx C, th *material.Theme) D {
	gtx.Constraints.Min = image.Point{}
	hours := c.data.Hours
	label := material.Body2(th, hours[0])
	dims, _ := rec(gtx, label.Layout)
	width := gtx.Constraints.Max.X
	step := max(1, int(ceil(float64(len(hours)*dims.Size.X*2)/float64(max(width, 1)))))
	for i := 0; i < len(hours); i += step {
		label.Text = hours[i]
		ldims, call := rec(gtx, label.Layout)
		x := c.xFor(i, width) - ldims.Size.X/2
		x = max(0, min(x, width-ldims.Size.X))
		stack := op.Offset(image.Pt(x, 0)).Push(gtx.Ops)
		call.Add(gtx.Ops)
		stack.Pop()
	}
	return D{Size: image.Pt(width, dims.Size.Y)}
}

func (c *Chart) xFor(hour, width int) int {
	n := len(c.data.Hours)
	if n < 2 {
		return width / 2
	}
	return hour * width / (n - 1)
}

// hourAt returns the hour nearest to pixel column x.
func (c *Chart) hourAt(x float32, width int) int {
	n := len(c.data.Hours)
	if n < 2 || width <= 0 {
		return 0
	}
	h := int(math.Round(float64(x) * float64(n-1) / float64(width)))
	return max(0, min(n-1, h))
}

func (c *Chart) layoutYAxisGrid(gtx C, size image.Point) {
	oneDp := gtx.Dp(1)
	const lines = 4
	for i := 0; i <= lines; i++ {
		y := (size.Y - oneDp) * i / lines
		a := uint8(50)
		if i == lines {
			a = 100
		}
		paint.FillShape(gtx.Ops, color.NRGBA{A: a}, clip.Rect{
			Min: image.Point{Y: y},
			Max: image.Point{X: size.X, Y: y + oneDp},
		}.Op())
	}
}

func (c *Chart) layoutLinePlot(gtx C, size image.Point, left, right axis) {
	width := float32(gtx.Dp(2))
	for i, id := range c.ids {
		if !c.Enabled[i].Value {
			continue
		}
		a := c.axisFor(i, left, right)
		s := c.data.Get(id)
		var p clip.Path
		p.Begin(gtx.Ops)
		for hour := 0; hour < s.Len(); hour++ {
			pt := f32.Pt(
				float32(c.xFor(hour, size.X)),
				float32(size.Y)-float32(a.fraction(s.At(hour)))*float32(size.Y),
			)
			if hour == 0 {
				p.MoveTo(pt)
			} else {
				p.LineTo(pt)
			}
		}
		paint.FillShape(gtx.Ops, seriesColors[id], clip.Stroke{Path: p.End(), Width: width}.Op())
	}
}

func (c *Chart) layoutPlot(gtx C, th *material.Theme, left, right axis) D {
	size := gtx.Constraints.Max
	area := clip.Rect{Max: size}.Push(gtx.Ops)
	event.Op(gtx.Ops, c)
	area.Pop()
	defer clip.Rect{Max: size}.Push(gtx.Ops).Pop()

	c.layoutYAxisGrid(gtx, size)
	c.layoutLinePlot(gtx, size, left, right)
	if !c.isHovered {
		return D{Size: size}
	}

	hour := c.hourAt(c.pos.X, size.X)
	x := c.xFor(hour, size.X)
	paint.FillShape(gtx.Ops, color.NRGBA{A: 255}, clip.Rect{
		Min: image.Point{X: x},
		Max: image.Point{X: x + gtx.Dp(1), Y: size.Y},
	}.Op())

	children := []layout.FlexChild{
		layout.Rigid(material.Body2(th, c.data.Hours[hour]+":00").Layout),
	}
	for i, id := range c.ids {
		if !c.Enabled[i].Value {
			continue
		}
		id := id
		s := c.data.Get(id)
		children = append(children, layout.Rigid(func(gtx C) D {
			return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
				layout.Rigid(material.Body2(th, s.Unit().Format(s.At(hour))).Layout),
				layout.Rigid(layout.Spacer{Width: 8}.Layout),
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					sz := image.Pt(gtx.Dp(8), gtx.Dp(8))
					paint.FillShape(gtx.Ops, seriesColors[id], clip.Ellipse{Max: sz}.Op(gtx.Ops))
					return D{Size: sz}
				}),
			)
		}))
	}
	gtx.Constraints.Min = image.Point{}
	hoverDims, hoverCall := rec(gtx, func(gtx C) D {
		return layout.Background{}.Layout(gtx,
			func(gtx layout.Context) layout.Dimensions {
				paint.FillShape(gtx.Ops, color.NRGBA{R: 255, G: 255, B: 255, A: 200}, clip.Rect{Max: gtx.Constraints.Min}.Op())
				return D{Size: gtx.Constraints.Min}
			},
			func(gtx layout.Context) layout.Dimensions {
				return layout.UniformInset(8).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
					return layout.Flex{Axis: layout.Vertical, Alignment: layout.End}.Layout(gtx, children...)
				})
			},
		)
	})
	pos := image.Point{Y: min(int(c.pos.Y), max(0, size.Y-hoverDims.Size.Y))}
	if x > size.X/2 {
		pos.X = max(x-hoverDims.Size.X, 0)
	} else {
		pos.X = min(x+gtx.Dp(1), size.X-hoverDims.Size.X)
	}
	stack := op.Offset(pos).Push(gtx.Ops)
	hoverCall.Add(gtx.Ops)
	stack.Pop()
	return D{Size: size}
}

func (c *Chart) layoutKey(gtx C, th *material.Theme) D {
	table := component.Table(th, &c.keyTable)
	table.HScrollbarStyle.Indicator.MinorWidth = 0
	table.HScrollbarStyle.Track.MinorPadding = 0
	table.VScrollbarStyle.Indicator.MinorWidth = 0
	table.VScrollbarStyle.Track.MinorPadding = 0
	colorColWidth := gtx.Dp(50)
	valueColWidth := gtx.Dp(110)
	nameColWidth := max(gtx.Constraints.Max.X-colorColWidth-2*valueColWidth-gtx.Dp(table.VScrollbarStyle.Width()), 0)
	rowHeight := gtx.Sp(20)
	const (
		colorCol = iota
		seriesNameCol
		totalCol
		peakCol
		numCols
	)
	gtx.Constraints.Max.Y = min(gtx.Constraints.Max.Y, rowHeight*(len(c.ids)+1)+gtx.Dp(4))
	return table.Layout(gtx, len(c.ids), numCols,
		func(axis layout.Axis, index, constraint int) int {
			if axis == layout.Vertical {
				return min(constraint, rowHeight)
			}
			var size int
			switch index {
			case colorCol:
				size = colorColWidth
			case seriesNameCol:
				size = nameColWidth
			case totalCol, peakCol:
				size = valueColWidth
			}
			return min(size, constraint)
		},
		func(gtx layout.Context, index int) layout.Dimensions {
			var l material.LabelStyle
			switch index {
			case colorCol:
				l = material.Body1(th, "Color")
			case seriesNameCol:
				l = material.Body1(th, "Series")
				l.Alignment = text.Middle
			case totalCol:
				l = material.Body1(th, "Total")
				l.Alignment = text.End
			case peakCol:
				l = material.Body1(th, "Peak")
				l.Alignment = text.End
			default:
				l = material.Body1(th, "???")
			}
			l.Color = th.ContrastFg
			return layout.Background{}.Layout(gtx,
				func(gtx layout.Context) layout.Dimensions {
					paint.FillShape(gtx.Ops, th.ContrastBg, clip.Rect{Max: gtx.Constraints.Max}.Op())
					return D{Size: gtx.Constraints.Min}
				}, l.Layout,
			)
		},
		func(gtx layout.Context, row, col int) (dims layout.Dimensions) {
			defer func() {
				dims.Size = gtx.Constraints.Constrain(dims.Size)
			}()
			id := c.ids[row]
			s := c.data.Get(id)
			enabled := c.Enabled[row].Value
			disabledAlpha := uint8(100)
			dims = layout.UniformInset(2).Layout(gtx, func(gtx layout.Context) layout.Dimensions {
				var l material.LabelStyle
				switch col {
				case colorCol:
					return c.Enabled[row].Layout(gtx, func(gtx layout.Context) layout.Dimensions {
						return layout.Center.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
							sideLen := gtx.Dp(10)
							sz := image.Pt(sideLen, sideLen)
							fullColor := seriesColors[id]
							if !enabled {
								fullColor.A = disabledAlpha
							}
							paint.FillShape(gtx.Ops, fullColor, clip.Rect{Max: sz}.Op())
							return D{Size: sz}
						})
					})
				case seriesNameCol:
					l = material.Body2(th, s.Name())
				case totalCol:
					l = material.Body2(th, seriesTotal(s))
					l.Alignment = text.End
				case peakCol:
					peak, ok := c.data.Peak(id)
					txt := "-"
					if ok {
						txt = peak.Hour + ":00"
					}
					l = material.Body2(th, txt)
					l.Alignment = text.End
				default:
					return D{Size: gtx.Constraints.Max}
				}
				if !enabled {
					l.Color.A = disabledAlpha
				}
				return l.Layout(gtx)
			})
			if row&1 != 0 {
				col := seriesColors[id]
				col.A = 50
				paint.FillShape(gtx.Ops, col, clip.Rect{Max: gtx.Constraints.Max}.Op())
			}
			return dims
		})
}

// seriesTotal summarizes a series for the key: energy for power series, the
// mean for everything else.
func seriesTotal(s *backend.Series) string {
	if s.Unit() == units.Kilowatts {
		return units.KilowattHours.Format(s.Sum())
	}
	_, mean, _, ok := s.Between(0, s.Len())
	if !ok {
		return "-"
	}
	return "avg " + s.Unit().Format(mean)
}
