package render

import (
	"fmt"
	"image"
	"io"
	"math"
	"strings"

	"git.sr.ht/~whereswaldon/watt-wealth/flow"
	"git.sr.ht/~whereswaldon/watt-wealth/labels"
	"git.sr.ht/~whereswaldon/watt-wealth/units"
	svg "github.com/ajstarks/svgo"
)

// Colors shared with the desktop view, as CSS hex strings.
var Colors = map[flow.Channel]string{
	flow.Solar:   "#f5a623",
	flow.Battery: "#2ecc71",
	flow.Grid:    "#3498db",
}

const (
	homeColor  = "#9b59b6"
	labelColor = "#2c3e50"
	trackColor = "#e0e0e0"
)

func nodeColor(n NodeID) string {
	switch n {
	case NodeSolar:
		return Colors[flow.Solar]
	case NodeBattery:
		return Colors[flow.Battery]
	case NodeGrid:
		return Colors[flow.Grid]
	}
	return homeColor
}

// Label is a text readout of the diagram and its box.
type Label struct {
	labels.Box
	Text string
}

const (
	labelCharWidth = 7
	labelPadding   = 4
	labelHeight    = 16
)

func estimateSize(text string) image.Point {
	return image.Pt(len([]rune(text))*labelCharWidth+2*labelPadding, labelHeight)
}

// centered returns a label whose box is centred horizontally on x with its
// top edge at y.
func centered(id labels.ID, text string, x, y float64) Label {
	size := estimateSize(text)
	return Label{
		Box: labels.Box{
			ID:     id,
			Offset: image.Pt(int(math.Round(x))-size.X/2, int(math.Round(y))),
			Size:   size,
		},
		Text: text,
	}
}

// Labels returns the readouts of r at their natural positions: one under each
// node and one on the middle of each path.
func Labels(r flow.Reading) []Label {
	values := [numNodes]string{
		NodeSolar:   units.Kilowatts.Format(r.Solar),
		NodeBattery: units.Percent.Format(r.Battery),
		NodeGrid:    units.Kilowatts.Format(r.Grid),
		NodeHome:    units.Kilowatts.Format(r.Home),
	}
	var out []Label
	for n := NodeID(0); n < numNodes; n++ {
		c := Nodes[n]
		text := n.String() + " " + values[n]
		id := labels.ID(strings.ToLower(n.String()))
		if n == NodeSolar {
			// Nothing fits above the top node, so its label sits beside it.
			out = append(out, centered(id, text, c.X+NodeRadius+float64(estimateSize(text).X)/2+4, c.Y-labelHeight/2))
			continue
		}
		out = append(out, centered(id, text, c.X, c.Y+NodeRadius+4))
	}
	for _, p := range Paths {
		from, to := p.Ends()
		mid := from.Lerp(to, 0.5)
		id := labels.ID(strings.ToLower(p.From.String() + "-" + p.To.String()))
		out = append(out, centered(id, units.Kilowatts.Format(PathPower(p, r)), mid.X, mid.Y-labelHeight/2))
	}
	return out
}

// PathPower is the power carried along p. Solar serves the home first and
// only its surplus goes to the battery; the battery covers what solar and
// grid leave of the load.
func PathPower(p Path, r flow.Reading) float64 {
	solar, home, grid := math.Max(0, r.Solar), math.Max(0, r.Home), math.Max(0, r.Grid)
	switch {
	case p.From == NodeSolar && p.To == NodeHome:
		return math.Min(solar, home)
	case p.From == NodeSolar && p.To == NodeBattery:
		return math.Max(0, solar-home)
	case p.From == NodeBattery:
		return math.Max(0, home-solar-grid)
	case p.From == NodeGrid:
		return grid
	}
	return 0
}

// ResolveLabels separates overlapping labels with a single resolver pass.
func ResolveLabels(ls []Label, nudge int) []Label {
	boxes := make(labels.Boxes, len(ls))
	for i, l := range ls {
		boxes[i] = l.Box
	}
	labels.Resolver{Nudge: nudge}.Apply(&boxes)
	out := make([]Label, len(ls))
	for i, l := range ls {
		out[i] = Label{Box: boxes[i], Text: l.Text}
	}
	return out
}

// errWriter remembers the first write error, since the SVG canvas does not
// report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(b []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(b)
	e.err = err
	return n, err
}

func fmtFloat(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// FlowSVG writes the flow diagram for r. Each path is drawn as a dashed
// stroke whose visible part and opacity follow the normalized intensity of
// its channel.
func FlowSVG(w io.Writer, r flow.Reading, nudge int) error {
	ew := &errWriter{w: w}
	canvas := svg.New(ew)
	canvas.Start(Width, Height)
	canvas.Title("Power flow")
	canvas.Rect(0, 0, Width, Height, "fill:white")

	intensities := flow.Normalize(r)
	canvas.Gid("flows")
	for _, p := range Paths {
		from, to := p.Ends()
		length := p.Length()
		in := intensities.For(p.Channel)
		x1, y1 := int(math.Round(from.X)), int(math.Round(from.Y))
		x2, y2 := int(math.Round(to.X)), int(math.Round(to.Y))
		canvas.Line(x1, y1, x2, y2, "stroke:"+trackColor+";stroke-width:6;stroke-linecap:round")
		canvas.Line(x1, y1, x2, y2,
			`class="flow"`,
			fmt.Sprintf(`data-channel="%s"`, p.Channel),
			fmt.Sprintf(`style="stroke:%s;stroke-width:6;stroke-linecap:round;stroke-dasharray:%s;stroke-dashoffset:%s;opacity:%s"`,
				Colors[p.Channel], fmtFloat(length), fmtFloat(DashOffset(length, in.Magnitude)), fmtFloat(in.Opacity)),
		)
	}
	canvas.Gend()

	canvas.Gid("nodes")
	for n := NodeID(0); n < numNodes; n++ {
		c := Nodes[n]
		x, y := int(math.Round(c.X)), int(math.Round(c.Y))
		canvas.Circle(x, y, NodeRadius, "fill:"+nodeColor(n))
		if n == NodeBattery {
			radius := int(math.Round(RingRadius))
			canvas.Circle(x, y, radius, "fill:none;stroke:"+trackColor+";stroke-width:5")
			canvas.Circle(x, y, radius,
				`class="ring"`,
				fmt.Sprintf(`style="fill:none;stroke:%s;stroke-width:5;stroke-dasharray:%d;stroke-dashoffset:%s"`,
					Colors[flow.Battery], RingCircumference, fmtFloat(RingOffset(r.Battery))),
				fmt.Sprintf(`transform="rotate(-90 %d %d)"`, x, y),
			)
		}
	}
	canvas.Gend()

	canvas.Gid("labels")
	canvas.Gstyle("font-family:sans-serif;font-size:12px;fill:" + labelColor)
	for _, l := range ResolveLabels(Labels(r), nudge) {
		canvas.Text(l.Offset.X+labelPadding, l.Offset.Y+labelHeight-4, l.Text, fmt.Sprintf(`id="label-%s"`, l.ID))
	}
	canvas.Gend()
	canvas.Gend()
	canvas.End()
	return ew.err
}
