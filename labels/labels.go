// Package labels keeps the node readouts of the flow diagram from drawing on
// top of each other.
//
// The resolver works on measured boxes only. It never creates nodes and never
// changes their size; it moves overlapping boxes apart vertically, once, and
// gives up quietly whenever the surface cannot report its geometry.
package labels

import (
	"errors"
	"fmt"
	"image"
	"slices"

	log "github.com/sirupsen/logrus"
)

// DefaultNudge is the vertical distance, in pixels, an overlapping label is
// moved by.
const DefaultNudge = 12

// ErrNotMeasured is reported by surfaces that have not been laid out yet.
var ErrNotMeasured = errors.New("label geometry not measured")

type ID string

// Box is the measured rectangle of one label. Offset is the position of its
// top-left corner and Size its bounds.
type Box struct {
	ID     ID
	Offset image.Point
	Size   image.Point
}

func (b Box) Bounds() image.Rectangle {
	return image.Rectangle{Min: b.Offset, Max: b.Offset.Add(b.Size)}
}

// Surface is the rendering side of the resolver: it reports the geometry of
// its labels and accepts new positions for them.
type Surface interface {
	Measure() ([]Box, error)
	Place(id ID, offset image.Point) error
}

// Resolve returns a copy of boxes in which every overlapping pair has been
// pushed apart along the vertical axis. Overlaps are judged against the input
// geometry, so the result depends only on the input. Three or more mutually
// overlapping boxes may still overlap afterwards.
func Resolve(boxes []Box, nudge int) []Box {
	out := slices.Clone(boxes)
	for i := 0; i < len(boxes); i++ {
		for j := i + 1; j < len(boxes); j++ {
			if !boxes[i].Bounds().Overlaps(boxes[j].Bounds()) {
				continue
			}
			upper, lower := i, j
			if above(boxes[j], boxes[i]) {
				upper, lower = j, i
			}
			out[upper].Offset.Y -= nudge
			out[lower].Offset.Y += nudge
		}
	}
	return out
}

// above reports whether a is strictly earlier than b in reading order. Equal
// heights are ordered by ID.
func above(a, b Box) bool {
	if a.Offset.Y != b.Offset.Y {
		return a.Offset.Y < b.Offset.Y
	}
	return a.ID < b.ID
}

// Resolver applies Resolve to a Surface.
type Resolver struct {
	// Nudge overrides DefaultNudge when positive.
	Nudge int
}

func (r Resolver) nudge() int {
	if r.Nudge > 0 {
		return r.Nudge
	}
	return DefaultNudge
}

// Apply measures s, resolves overlaps and places the boxes that moved. It
// returns the number of boxes placed. Any measurement problem turns the call
// into a no-op. If a box cannot be placed, the boxes placed before it are put
// back where they were measured and Apply returns 0.
func (r Resolver) Apply(s Surface) (moved int) {
	boxes, err := s.Measure()
	if err == nil {
		err = validate(boxes)
	}
	if err != nil {
		log.Debugf("skipping label layout: %v", err)
		return 0
	}
	resolved := Resolve(boxes, r.nudge())
	placed := make([]int, 0, len(resolved))
	for i, b := range resolved {
		if b.Offset == boxes[i].Offset {
			continue
		}
		if err := s.Place(b.ID, b.Offset); err != nil {
			log.Debugf("failed placing label %q, reverting layout: %v", b.ID, err)
			for _, j := range placed {
				if err := s.Place(boxes[j].ID, boxes[j].Offset); err != nil {
					log.Debugf("failed restoring label %q: %v", boxes[j].ID, err)
				}
			}
			return 0
		}
		placed = append(placed, i)
	}
	return len(placed)
}

func validate(boxes []Box) error {
	if len(boxes) == 0 {
		return ErrNotMeasured
	}
	for _, b := range boxes {
		if b.Size.X <= 0 || b.Size.Y <= 0 {
			return fmt.Errorf("label %q: %w", b.ID, ErrNotMeasured)
		}
	}
	return nil
}

// Boxes is a Surface backed by a plain slice, for renderers that compute
// label geometry themselves.
type Boxes []Box

var _ Surface = (*Boxes)(nil)

func (bs *Boxes) Measure() ([]Box, error) {
	return slices.Clone(*bs), nil
}

func (bs *Boxes) Place(id ID, offset image.Point) error {
	for i := range *bs {
		if (*bs)[i].ID == id {
			(*bs)[i].Offset = offset
			return nil
		}
	}
	return fmt.Errorf("no label %q", id)
}

// Lookup returns the box with the given id.
func (bs Boxes) Lookup(id ID) (Box, bool) {
	for _, b := range bs {
		if b.ID == id {
			return b, true
		}
	}
	return Box{}, false
}
