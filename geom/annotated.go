package geom

import "github.com/go-gl/mathgl/mgl64"

// AnnotatedPoint is a point of the configuration space obstacle A - B, tagged with the
// support points of each shape it was built from. Carrying A and B through the simplex
// is what lets GJK recover witness points from barycentric weights.
type AnnotatedPoint struct {
	A *mgl64.VecN // support point on the first shape
	B *mgl64.VecN // support point on the second shape
	P *mgl64.VecN // A - B
}

// NewAnnotatedPoint builds the CSO point a - b.
func NewAnnotatedPoint(a, b *mgl64.VecN) AnnotatedPoint {
	return AnnotatedPoint{A: a, B: b, P: a.Sub(nil, b)}
}

func (p AnnotatedPoint) Point() *mgl64.VecN {
	return p.P
}
