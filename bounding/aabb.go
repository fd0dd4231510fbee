package bounding

import (
	"fmt"
	"math"

	"github.com/akmonengine/proximity/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min *mgl64.VecN
	Max *mgl64.VecN
}

var _ Volume[AABB] = AABB{}

// NewAABB panics if min and max are not ordered on every axis.
func NewAABB(min, max *mgl64.VecN) AABB {
	geom.MustSameDimension(min, max)
	for i := 0; i < min.Size(); i++ {
		if min.Get(i) > max.Get(i) {
			panic(fmt.Sprintf("bounding: invalid AABB, min[%d]=%v > max[%d]=%v", i, min.Get(i), i, max.Get(i)))
		}
	}
	return AABB{Min: min, Max: max}
}

// AABBFromPoints returns the tightest box around a non-empty point set.
func AABBFromPoints(points ...*mgl64.VecN) AABB {
	if len(points) == 0 {
		panic("bounding: AABBFromPoints needs at least one point")
	}
	min, max := geom.Clone(points[0]), geom.Clone(points[0])
	for _, p := range points[1:] {
		min = geom.Min(min, p)
		max = geom.Max(max, p)
	}
	return AABB{Min: min, Max: max}
}

func (a AABB) Dimension() int {
	return a.Min.Size()
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point *mgl64.VecN) bool {
	for i := 0; i < a.Dimension(); i++ {
		if point.Get(i) < a.Min.Get(i) || point.Get(i) > a.Max.Get(i) {
			return false
		}
	}
	return true
}

// Intersects checks if two AABBs overlap. Touching boxes overlap.
func (a AABB) Intersects(other AABB) bool {
	// AABBs overlap if they overlap on every axis
	for i := 0; i < a.Dimension(); i++ {
		if a.Max.Get(i) < other.Min.Get(i) || a.Min.Get(i) > other.Max.Get(i) {
			return false
		}
	}
	return true
}

func (a AABB) Contains(other AABB) bool {
	for i := 0; i < a.Dimension(); i++ {
		if other.Min.Get(i) < a.Min.Get(i) || other.Max.Get(i) > a.Max.Get(i) {
			return false
		}
	}
	return true
}

func (a AABB) Merged(other AABB) AABB {
	return AABB{Min: geom.Min(a.Min, other.Min), Max: geom.Max(a.Max, other.Max)}
}

func (a AABB) Loosened(margin float64) AABB {
	m := geom.Splat(a.Dimension(), margin)
	return AABB{Min: a.Min.Sub(nil, m), Max: a.Max.Add(nil, m)}
}

// Measure is the sum of the extents, the n-dimensional analogue of box2d's perimeter
// heuristic. Unlike the volume it stays meaningful for flat boxes.
func (a AABB) Measure() float64 {
	var sum float64
	for i := 0; i < a.Dimension(); i++ {
		sum += a.Max.Get(i) - a.Min.Get(i)
	}
	return sum
}

func (a AABB) Center() *mgl64.VecN {
	return a.Min.Add(nil, a.Max).Mul(nil, 0.5)
}

// HalfExtents returns half the size of the box on every axis.
func (a AABB) HalfExtents() *mgl64.VecN {
	return a.Max.Sub(nil, a.Min).Mul(nil, 0.5)
}

// IntersectsRay uses the slab test: the ray parameter interval is clipped against every
// pair of axis planes.
func (a AABB) IntersectsRay(ray geom.Ray, maxToi float64) bool {
	tmin, tmax := 0.0, maxToi
	for i := 0; i < a.Dimension(); i++ {
		o, d := ray.Origin.Get(i), ray.Dir.Get(i)
		lo, hi := a.Min.Get(i), a.Max.Get(i)

		if math.Abs(d) < 1e-15 {
			// Parallel to the slab: the origin must already be inside it.
			if o < lo || o > hi {
				return false
			}
			continue
		}

		t1 := (lo - o) / d
		t2 := (hi - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return false
		}
	}
	return true
}
