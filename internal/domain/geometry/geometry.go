// Package geometry provides the planar math used by the measurement pipeline.
package geometry

import (
	"math"

	"github.com/golang/geo/r2"
)

// Point is a position in pixel space.
type Point = r2.Point

// Pt is shorthand for constructing a Point.
func Pt(x, y float64) Point {
	return r2.Point{X: x, Y: y}
}

// Distance returns the Euclidean distance between p1 and p2.
func Distance(p1, p2 Point) float64 {
	return p1.Sub(p2).Norm()
}

// Round1 rounds v to one decimal place, half away from zero.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
