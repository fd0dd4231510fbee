// Package simplex implements the simplex bookkeeping GJK relies on: a set of at most
// n+1 affinely independent points in n-dimensional space, and the projection of the
// origin onto their convex hull.
//
// Two implementations are provided:
//   - Johnson, the production one, based on Johnson's distance sub-algorithm with a
//     recursion template cached per dimension;
//   - BruteForce, an exhaustive implementation solving every sub-face independently. It
//     only exists to cross-check Johnson in tests.
//
// References:
//   - Gilbert, Johnson, Keerthi: "A Fast Procedure for Computing the Distance Between
//     Complex Objects in Three-Dimensional Space" (1988)
//   - Van den Bergen: "Collision Detection in Interactive 3D Environments" (2003), ch. 4.3
package simplex

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon is the relative precision contract of the projection.
//
// A signed sub-determinant is considered zero when its magnitude is below Epsilon times
// the magnitude of the products it was accumulated from, so the threshold follows the
// scale of the input points. Sub-faces whose determinants fall under it are degenerate and
// are handled as boundary cases: their vertices get a zero weight and are dropped.
const Epsilon = 1e-12

// Vertex is anything a simplex can hold.
type Vertex interface {
	Point() *mgl64.VecN
}

// Plain is a vertex carrying nothing but its position.
type Plain struct {
	P *mgl64.VecN
}

func (p Plain) Point() *mgl64.VecN {
	return p.P
}

// Simplex is the state of a distance query. It is owned by a single caller and can be
// reused across queries through Reset.
type Simplex[V Vertex] interface {
	// Reset reinitializes the simplex with a single vertex.
	Reset(v V)
	// AddPoint appends a vertex. It returns false, leaving the simplex untouched, when v
	// is numerically coincident with a vertex already held or when the simplex is full.
	AddPoint(v V) bool
	// ProjectOrigin returns the point of the convex hull nearest to the origin and
	// reduces the simplex to the smallest sub-face containing it.
	ProjectOrigin() *mgl64.VecN
	// ProjectOriginNoReduce computes the same projection without modifying the simplex.
	ProjectOriginNoReduce() *mgl64.VecN
	// Vertices returns the vertices currently held.
	Vertices() []V
	// Weights returns the barycentric coordinates computed by the last ProjectOrigin,
	// aligned with Vertices. Vertices added since then have a zero weight.
	Weights() []float64
	Len() int
	Dimension() int
	// MaxSquaredLen is the largest squared norm among the vertices.
	MaxSquaredLen() float64
	// Contains reports whether p coincides with one of the vertices.
	Contains(p *mgl64.VecN) bool
}

func maxSquaredLen[V Vertex](vertices []V) float64 {
	var max float64
	for _, v := range vertices {
		max = math.Max(max, v.Point().LenSqr())
	}
	return max
}

// coincident uses the same scale-relative tolerance as the determinant tests.
func coincident(a, b *mgl64.VecN, scale float64) bool {
	d := a.Sub(nil, b).LenSqr()
	return d <= Epsilon*Epsilon*math.Max(1, scale)
}
