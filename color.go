package main

import (
	"image/color"
	"strconv"
	"strings"

	"git.sr.ht/~whereswaldon/watt-wealth/backend"
	"git.sr.ht/~whereswaldon/watt-wealth/flow"
	"git.sr.ht/~whereswaldon/watt-wealth/render"
)

// hexColor parses a "#rrggbb" string. Malformed input yields opaque black.
func hexColor(s string) color.NRGBA {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 16, 32)
	if err != nil || len(s) != 7 {
		return color.NRGBA{A: 0xff}
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

var (
	channelColors = map[flow.Channel]color.NRGBA{
		flow.Solar:   hexColor(render.Colors[flow.Solar]),
		flow.Battery: hexColor(render.Colors[flow.Battery]),
		flow.Grid:    hexColor(render.Colors[flow.Grid]),
	}
	homeColor  = color.NRGBA{R: 0x9b, G: 0x59, B: 0xb6, A: 0xff}
	trackColor = color.NRGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
	errorColor = color.NRGBA{R: 150, A: 255}
	scrimColor = color.NRGBA{A: 120}
)

func nodeColor(n render.NodeID) color.NRGBA {
	switch n {
	case render.NodeSolar:
		return channelColors[flow.Solar]
	case render.NodeBattery:
		return channelColors[flow.Battery]
	case render.NodeGrid:
		return channelColors[flow.Grid]
	}
	return homeColor
}

var seriesColors = map[backend.SeriesID]color.NRGBA{
	backend.SeriesSolar:   channelColors[flow.Solar],
	backend.SeriesLoad:    homeColor,
	backend.SeriesBattery: channelColors[flow.Battery],
	backend.SeriesGrid:    channelColors[flow.Grid],
	backend.SeriesPrice:   {R: 0xa4, G: 0x63, B: 0x3a, A: 0xff},
	backend.SeriesSoC:     {R: 0x51, G: 0x85, B: 0x4d, A: 0xff},
}
