// Package landmark models detector output and converts it to pixel space.
package landmark

import (
	"fmt"

	"github.com/okian/tailor/internal/domain/geometry"
)

// Point is a landmark position normalized to the frame, x and y in [0,1].
type Point struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Visibility float64 `json:"visibility,omitempty"`
}

// Set is the detector output for a single frame. A nil *Set means no body
// was found. Sets are immutable once built.
type Set struct {
	points map[Name]Point
}

// Get returns the normalized point for n.
func (s *Set) Get(n Name) (Point, bool) {
	if s == nil {
		return Point{}, false
	}
	p, ok := s.points[n]
	return p, ok
}

// Len returns the number of points present.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.points)
}

// Builder assembles a Set. Points below the minimum visibility are dropped.
type Builder struct {
	minVisibility float64
	points        map[Name]Point
}

// NewBuilder returns a Builder that keeps points whose visibility is at least
// minVisibility. A zero minVisibility keeps every point.
func NewBuilder(minVisibility float64) *Builder {
	return &Builder{
		minVisibility: minVisibility,
		points:        make(map[Name]Point, numNames),
	}
}

// Add records p under n. It reports whether the point was kept.
func (b *Builder) Add(n Name, p Point) bool {
	if !n.Valid() {
		return false
	}
	if b.minVisibility > 0 && p.Visibility < b.minVisibility {
		return false
	}
	b.points[n] = p
	return true
}

// Build returns the assembled Set, or nil when no point was kept.
func (b *Builder) Build() *Set {
	if len(b.points) == 0 {
		return nil
	}
	pts := make(map[Name]Point, len(b.points))
	for k, v := range b.points {
		pts[k] = v
	}
	return &Set{points: pts}
}

// Pixels holds landmark positions in pixel coordinates for one frame.
type Pixels struct {
	Width  int
	Height int
	points map[Name]geometry.Point
}

// Point returns the pixel position of n.
func (p *Pixels) Point(n Name) (geometry.Point, bool) {
	if p == nil {
		return geometry.Point{}, false
	}
	pt, ok := p.points[n]
	return pt, ok
}

// Missing returns the names from want that are absent.
func (p *Pixels) Missing(want ...Name) []Name {
	var out []Name
	for _, n := range want {
		if _, ok := p.Point(n); !ok {
			out = append(out, n)
		}
	}
	return out
}

// Extract converts normalized landmarks to pixel coordinates.
// It returns nil without error when set is nil (no body detected).
func Extract(set *Set, frameWidth, frameHeight int) (*Pixels, error) {
	if frameWidth <= 0 || frameHeight <= 0 {
		return nil, fmt.Errorf("%dx%d: %w", frameWidth, frameHeight, ErrInvalidDimensions)
	}
	if set == nil {
		return nil, nil
	}
	out := &Pixels{
		Width:  frameWidth,
		Height: frameHeight,
		points: make(map[Name]geometry.Point, len(set.points)),
	}
	for n, p := range set.points {
		out.points[n] = geometry.Pt(p.X*float64(frameWidth), p.Y*float64(frameHeight))
	}
	return out, nil
}

// NewPixels builds Pixels from already converted pixel positions.
func NewPixels(frameWidth, frameHeight int, points map[Name]geometry.Point) *Pixels {
	pts := make(map[Name]geometry.Point, len(points))
	for k, v := range points {
		if k.Valid() {
			pts[k] = v
		}
	}
	return &Pixels{Width: frameWidth, Height: frameHeight, points: pts}
}
