// Package bounding implements the bounding volumes indexed by the partitioning trees.
package bounding

import (
	"github.com/akmonengine/proximity/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Volume is the contract the trees need from a bounding volume type B.
// Implementations are values: every method returns a new volume and leaves the
// receiver untouched.
type Volume[B any] interface {
	// Intersects reports whether the two volumes share at least one point.
	Intersects(other B) bool
	// Contains reports whether other lies entirely inside the receiver.
	Contains(other B) bool
	// Merged returns the smallest volume of this kind enclosing both volumes.
	Merged(other B) B
	// Loosened returns the volume enlarged by margin in every direction.
	Loosened(margin float64) B
	// Measure is a size heuristic used to compare candidate merges. It must be
	// monotonic with respect to containment.
	Measure() float64
	Center() *mgl64.VecN
	// IntersectsRay reports whether the ray enters the volume for some t in [0, maxToi].
	IntersectsRay(ray geom.Ray, maxToi float64) bool
}
