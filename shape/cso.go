package shape

import (
	"github.com/akmonengine/proximity/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// CSOSupportPoint computes a support point of the configuration space obstacle
// s1 - s2 (their Minkowski difference).
//
// The CSO contains the origin iff the two shapes overlap, and its support point along
// dir is furthestPoint(s1, dir) - furthestPoint(s2, -dir). Both source points are kept
// in the returned AnnotatedPoint so witness points can be rebuilt later.
func CSOSupportPoint(t1 Transform, s1 SupportMap, t2 Transform, s2 SupportMap, dir *mgl64.VecN) geom.AnnotatedPoint {
	a := s1.SupportPoint(t1, dir)
	b := s2.SupportPoint(t2, geom.Neg(dir))
	return geom.NewAnnotatedPoint(a, b)
}
