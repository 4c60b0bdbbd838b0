package render

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"

	"git.sr.ht/~whereswaldon/watt-wealth/backend"
	"git.sr.ht/~whereswaldon/watt-wealth/flow"
	"git.sr.ht/~whereswaldon/watt-wealth/labels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashOffset(t *testing.T) {
	assert.Equal(t, 100.0, DashOffset(100, 0))
	assert.Equal(t, 0.0, DashOffset(100, 1))
	assert.InDelta(t, 75.0, DashOffset(100, 0.25), 1e-9)
	assert.Equal(t, 100.0, DashOffset(100, -3))
	assert.Equal(t, 0.0, DashOffset(100, 7))
}

func TestAlpha(t *testing.T) {
	assert.Equal(t, uint8(0), Alpha(0))
	assert.Equal(t, uint8(255), Alpha(1))
	assert.Equal(t, uint8(128), Alpha(0.5))
	assert.Equal(t, uint8(255), Alpha(2))
}

func TestRingOffset(t *testing.T) {
	assert.Equal(t, float64(RingCircumference), RingOffset(0))
	assert.Equal(t, 0.0, RingOffset(100))
	assert.InDelta(t, 276*0.14, RingOffset(86), 1e-9)
}

func TestPathsTrimmedToNodes(t *testing.T) {
	for _, p := range Paths {
		full := Nodes[p.To].Sub(Nodes[p.From])
		assert.InDelta(t, math.Hypot(full.X, full.Y)-2*NodeRadius, p.Length(), 1e-9, "path %v->%v", p.From, p.To)
	}
	assert.InDelta(t, 136.0, Paths[1].Length(), 1e-9)
}

func TestFlowSVG(t *testing.T) {
	r := flow.Reading{Solar: 2, Battery: 50, Grid: 0, Home: 2}
	var buf bytes.Buffer
	require.NoError(t, FlowSVG(&buf, r, labels.DefaultNudge))
	out := buf.String()
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "<?xml"))
	assert.Equal(t, len(Paths), strings.Count(out, `class="flow"`))

	in := flow.Normalize(r)
	for _, p := range Paths {
		want := fmt.Sprintf("stroke-dasharray:%.2f;stroke-dashoffset:%.2f;opacity:%.2f",
			p.Length(), DashOffset(p.Length(), in.For(p.Channel).Magnitude), in.For(p.Channel).Opacity)
		assert.Contains(t, out, want, "path %v->%v", p.From, p.To)
	}
	// Solar covers the whole load, so solar paths are fully drawn and the
	// idle grid path fully hidden.
	assert.Contains(t, out, "stroke-dashoffset:0.00;opacity:1.00")
	assert.Contains(t, out, fmt.Sprintf("stroke-dashoffset:%.2f;opacity:0.30", Paths[3].Length()))
	assert.Contains(t, out, "stroke-dasharray:276;stroke-dashoffset:138.00")
	assert.Contains(t, out, `id="label-battery"`)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, fmt.Errorf("disk full")
}

func TestFlowSVGWriteError(t *testing.T) {
	assert.Error(t, FlowSVG(failingWriter{}, flow.Reading{}, 0))
}

func TestLabelsResolved(t *testing.T) {
	r := backend.Fallback().Now.Reading
	natural := Labels(r)
	require.Len(t, natural, 8)
	resolved := ResolveLabels(natural, labels.DefaultNudge)

	boxes := make(labels.Boxes, len(resolved))
	for i, l := range resolved {
		boxes[i] = l.Box
		assert.Equal(t, natural[i].Size, l.Size, "label sizes never change")
		assert.Equal(t, natural[i].Offset.X, l.Offset.X, "labels only move vertically")
	}
	battery, ok := boxes.Lookup("battery")
	require.True(t, ok)
	assert.Equal(t, 168-labels.DefaultNudge, battery.Offset.Y)
	path, ok := boxes.Lookup("battery-home")
	require.True(t, ok)
	assert.Equal(t, 178+labels.DefaultNudge, path.Offset.Y)
	assert.False(t, battery.Bounds().Overlaps(path.Bounds()))

	grid, ok := boxes.Lookup("grid")
	require.True(t, ok)
	gridPath, ok := boxes.Lookup("grid-home")
	require.True(t, ok)
	assert.False(t, grid.Bounds().Overlaps(gridPath.Bounds()))
}

func TestPathPowerSplitsSolar(t *testing.T) {
	r := flow.Reading{Solar: 3, Battery: 50, Grid: 0.5, Home: 2}
	power := map[labels.ID]string{}
	for _, l := range Labels(r) {
		power[l.ID] = l.Text
	}
	assert.Equal(t, "2.00 kW", power["solar-home"])
	assert.Equal(t, "1.00 kW", power["solar-battery"])
	assert.Equal(t, "0.00 kW", power["battery-home"])
	assert.Equal(t, "0.50 kW", power["grid-home"])

	var solar float64
	for _, p := range Paths {
		if p.From == NodeSolar {
			solar += PathPower(p, r)
		}
	}
	assert.InDelta(t, r.Solar, solar, 1e-9, "solar is counted once across its paths")

	short := flow.Reading{Solar: 0.5, Grid: 0.5, Home: 2}
	for _, p := range Paths {
		if p.From == NodeBattery {
			assert.InDelta(t, 1.0, PathPower(p, short), 1e-9)
		}
	}
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Report(&buf, backend.Fallback()))
	out := buf.String()
	assert.Contains(t, out, "echarts")
	assert.Contains(t, out, "Energy mix")
}
