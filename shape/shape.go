// Package shape provides the support-mapping capability GJK is built on, and the two
// convex shapes this module ships with.
package shape

import (
	"github.com/akmonengine/proximity/bounding"
	"github.com/akmonengine/proximity/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// SupportMap is the interface that every convex shape usable with GJK must implement.
type SupportMap interface {
	// SupportPoint returns the point of the shape, placed by t, that is furthest along
	// dir. dir need not be normalized; a zero dir may return any point of the shape.
	SupportPoint(t Transform, dir *mgl64.VecN) *mgl64.VecN
}

// Ball is an n-dimensional sphere centred on its transform's position.
type Ball struct {
	Radius float64
}

func (b Ball) SupportPoint(t Transform, dir *mgl64.VecN) *mgl64.VecN {
	l := dir.Len()
	if l == 0 {
		return geom.Clone(t.Position)
	}
	// Rotation does not change a ball.
	return geom.AddScaled(t.Position, b.Radius/l, dir)
}

func (b Ball) BoundingSphere(t Transform) bounding.Sphere {
	return bounding.NewSphere(t.Position, b.Radius)
}

func (b Ball) AABB(t Transform) bounding.AABB {
	return b.BoundingSphere(t).AABB()
}

// Cuboid is an oriented box defined by its half-extents on every local axis.
type Cuboid struct {
	HalfExtents *mgl64.VecN
}

func (c Cuboid) SupportPoint(t Transform, dir *mgl64.VecN) *mgl64.VecN {
	local := t.InverseRotate(dir)

	corner := geom.Clone(c.HalfExtents)
	for i := 0; i < corner.Size(); i++ {
		if local.Get(i) < 0 {
			corner.Set(i, -corner.Get(i))
		}
	}

	return t.Apply(corner)
}

// AABBOf computes the tight world-space box of any support-mapped shape with two support
// queries per axis.
func AABBOf(s SupportMap, t Transform) bounding.AABB {
	n := t.Dimension()
	min, max := geom.Zero(n), geom.Zero(n)

	for i := 0; i < n; i++ {
		axis := geom.Axis(n, i)
		max.Set(i, s.SupportPoint(t, axis).Get(i))
		min.Set(i, s.SupportPoint(t, geom.Neg(axis)).Get(i))
	}

	return bounding.AABB{Min: min, Max: max}
}
