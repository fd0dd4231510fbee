package bounding

import (
	"math"

	"github.com/akmonengine/proximity/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Sphere is a bounding ball.
type Sphere struct {
	Position *mgl64.VecN
	Radius   float64
}

var _ Volume[Sphere] = Sphere{}

func NewSphere(position *mgl64.VecN, radius float64) Sphere {
	if radius < 0 {
		panic("bounding: negative sphere radius")
	}
	return Sphere{Position: position, Radius: radius}
}

func (s Sphere) Intersects(other Sphere) bool {
	r := s.Radius + other.Radius
	return geom.DistanceSqr(s.Position, other.Position) <= r*r
}

func (s Sphere) Contains(other Sphere) bool {
	return geom.Distance(s.Position, other.Position)+other.Radius <= s.Radius
}

// Merged returns the smallest sphere enclosing both spheres.
func (s Sphere) Merged(other Sphere) Sphere {
	d := geom.Distance(s.Position, other.Position)
	if d+other.Radius <= s.Radius {
		return s
	}
	if d+s.Radius <= other.Radius {
		return other
	}

	radius := (d + s.Radius + other.Radius) / 2
	// Slide from s.Position toward other.Position so both far rims stay on the new sphere.
	dir := other.Position.Sub(nil, s.Position).Mul(nil, 1/d)
	position := geom.AddScaled(s.Position, radius-s.Radius, dir)
	return Sphere{Position: position, Radius: radius}
}

func (s Sphere) Loosened(margin float64) Sphere {
	return Sphere{Position: s.Position, Radius: s.Radius + margin}
}

func (s Sphere) Measure() float64 {
	return s.Radius
}

func (s Sphere) Center() *mgl64.VecN {
	return s.Position
}

func (s Sphere) IntersectsRay(ray geom.Ray, maxToi float64) bool {
	// Solve |o + t d - c|² = r² for the smallest t in [0, maxToi].
	oc := ray.Origin.Sub(nil, s.Position)
	c := oc.LenSqr() - s.Radius*s.Radius
	if c <= 0 {
		return true
	}
	a := ray.Dir.LenSqr()
	if a == 0 {
		return false
	}
	b := oc.Dot(ray.Dir)
	if b > 0 {
		return false
	}
	disc := b*b - a*c
	if disc < 0 {
		return false
	}
	t := (-b - math.Sqrt(disc)) / a
	return t <= maxToi
}

// AABB returns the box circumscribing the sphere.
func (s Sphere) AABB() AABB {
	r := geom.Splat(s.Position.Size(), s.Radius)
	return AABB{Min: s.Position.Sub(nil, r), Max: s.Position.Add(nil, r)}
}
