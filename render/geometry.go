// Package render draws the dashboard outside of the desktop window: the flow
// diagram as SVG and the forecast as an HTML report.
package render

import (
	"math"

	"git.sr.ht/~whereswaldon/watt-wealth/flow"
)

// Diagram size in SVG user units. The desktop view scales the same geometry
// to its constraints.
const (
	Width  = 400
	Height = 280
)

// RingCircumference is the stroke length of the battery charge ring.
const RingCircumference = 276

// RingRadius gives a circle whose circumference is RingCircumference.
const RingRadius = RingCircumference / (2 * math.Pi)

type Point struct {
	X, Y float64
}

func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Lerp returns the point at fraction t of the way from p to q.
func (p Point) Lerp(q Point, t float64) Point {
	return Point{X: p.X + (q.X-p.X)*t, Y: p.Y + (q.Y-p.Y)*t}
}

type NodeID uint8

const (
	NodeSolar NodeID = iota
	NodeBattery
	NodeGrid
	NodeHome
	numNodes
)

func (n NodeID) String() string {
	switch n {
	case NodeSolar:
		return "Solar"
	case NodeBattery:
		return "Battery"
	case NodeGrid:
		return "Grid"
	case NodeHome:
		return "Home"
	}
	return "?"
}

// NodeRadius is the radius of a node disc.
const NodeRadius = 24

// Nodes holds the centre of every node.
var Nodes = [numNodes]Point{
	NodeSolar:   {X: 200, Y: 48},
	NodeBattery: {X: 72, Y: 140},
	NodeGrid:    {X: 328, Y: 140},
	NodeHome:    {X: 200, Y: 232},
}

// Path is one flow line of the diagram and the channel that drives it.
type Path struct {
	From, To NodeID
	Channel  flow.Channel
}

var Paths = []Path{
	{From: NodeSolar, To: NodeBattery, Channel: flow.Solar},
	{From: NodeSolar, To: NodeHome, Channel: flow.Solar},
	{From: NodeBattery, To: NodeHome, Channel: flow.Battery},
	{From: NodeGrid, To: NodeHome, Channel: flow.Grid},
}

// Ends returns the path's end points, trimmed to the edges of its nodes.
func (p Path) Ends() (from, to Point) {
	a, b := Nodes[p.From], Nodes[p.To]
	length := math.Hypot(b.X-a.X, b.Y-a.Y)
	if length <= 2*NodeRadius {
		return a, b
	}
	t := NodeRadius / length
	return a.Lerp(b, t), a.Lerp(b, 1-t)
}

// Length is the stroke length of the visible path.
func (p Path) Length() float64 {
	from, to := p.Ends()
	d := to.Sub(from)
	return math.Hypot(d.X, d.Y)
}

// DashOffset is the dash offset that leaves a fraction magnitude of a dashed
// stroke of the given total length visible.
func DashOffset(total, magnitude float64) float64 {
	if math.IsNaN(magnitude) || magnitude < 0 {
		magnitude = 0
	} else if magnitude > 1 {
		magnitude = 1
	}
	return total - magnitude*total
}

// Alpha converts an opacity in [0,1] to an 8 bit alpha value.
func Alpha(opacity float64) uint8 {
	if math.IsNaN(opacity) || opacity <= 0 {
		return 0
	}
	if opacity >= 1 {
		return 255
	}
	return uint8(math.Round(opacity * 255))
}

// RingOffset is the dash offset of the battery ring for a charge in percent.
func RingOffset(soc float64) float64 {
	return DashOffset(RingCircumference, soc/100)
}
