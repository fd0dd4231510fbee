// Package geom holds the dimension-generic point helpers shared by every other package.
//
// Points are *mgl64.VecN values. They are never mutated once built: every helper here,
// and every call site in this module, passes a nil destination to the mgl64 operations
// so a fresh vector is allocated.
package geom

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec builds a point from its coordinates.
func Vec(coords ...float64) *mgl64.VecN {
	return mgl64.NewVecNFromData(coords)
}

// Zero returns the origin of the n-dimensional space.
func Zero(n int) *mgl64.VecN {
	v := mgl64.NewVecN(n)
	v.Zero(n)
	return v
}

// Axis returns the i-th unit vector of the n-dimensional space.
func Axis(n, i int) *mgl64.VecN {
	v := Zero(n)
	v.Set(i, 1)
	return v
}

// Splat returns a point whose n coordinates are all equal to value.
func Splat(n int, value float64) *mgl64.VecN {
	v := mgl64.NewVecN(n)
	for i := 0; i < n; i++ {
		v.Set(i, value)
	}
	return v
}

func FromVec2(v mgl64.Vec2) *mgl64.VecN {
	return Vec(v[0], v[1])
}

func FromVec3(v mgl64.Vec3) *mgl64.VecN {
	return Vec(v[0], v[1], v[2])
}

// Clone returns a copy of v that shares no memory with it.
func Clone(v *mgl64.VecN) *mgl64.VecN {
	return mgl64.NewVecNFromData(v.Raw())
}

func Neg(v *mgl64.VecN) *mgl64.VecN {
	return v.Mul(nil, -1)
}

// AddScaled returns a + s*b.
func AddScaled(a *mgl64.VecN, s float64, b *mgl64.VecN) *mgl64.VecN {
	out := Clone(a)
	for i := 0; i < out.Size(); i++ {
		out.Set(i, a.Get(i)+s*b.Get(i))
	}
	return out
}

// Combination returns the weighted sum Σ weights[i]*points[i].
func Combination(points []*mgl64.VecN, weights []float64) *mgl64.VecN {
	if len(points) == 0 {
		return nil
	}
	out := Zero(points[0].Size())
	for i, p := range points {
		for k := 0; k < out.Size(); k++ {
			out.Set(k, out.Get(k)+weights[i]*p.Get(k))
		}
	}
	return out
}

func DistanceSqr(a, b *mgl64.VecN) float64 {
	return a.Sub(nil, b).LenSqr()
}

func Distance(a, b *mgl64.VecN) float64 {
	return math.Sqrt(DistanceSqr(a, b))
}

// Min returns the component-wise minimum of a and b.
func Min(a, b *mgl64.VecN) *mgl64.VecN {
	out := Clone(a)
	for i := 0; i < out.Size(); i++ {
		out.Set(i, math.Min(a.Get(i), b.Get(i)))
	}
	return out
}

// Max returns the component-wise maximum of a and b.
func Max(a, b *mgl64.VecN) *mgl64.VecN {
	out := Clone(a)
	for i := 0; i < out.Size(); i++ {
		out.Set(i, math.Max(a.Get(i), b.Get(i)))
	}
	return out
}

// MustSameDimension panics when a and b do not live in the same space.
// Mixing dimensions is a programming error, not a recoverable condition.
func MustSameDimension(a, b *mgl64.VecN) {
	if a.Size() != b.Size() {
		panic(fmt.Sprintf("geom: dimension mismatch (%d vs %d)", a.Size(), b.Size()))
	}
}
