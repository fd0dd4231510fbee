package gjk

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/akmonengine/proximity/geom"
	"github.com/akmonengine/proximity/shape"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper functions

func randomPoint(rng *rand.Rand, dim int, scale float64) *mgl64.VecN {
	p := geom.Zero(dim)
	for i := 0; i < dim; i++ {
		p.Set(i, (rng.Float64()-0.5)*scale)
	}
	return p
}

func assertPointNear(t *testing.T, expected, actual *mgl64.VecN, tol float64, msgAndArgs ...interface{}) {
	t.Helper()
	require.NotNil(t, actual, msgAndArgs...)
	require.Equal(t, expected.Size(), actual.Size(), msgAndArgs...)
	assert.LessOrEqual(t, geom.Distance(expected, actual), tol, msgAndArgs...)
}

func closestPoints(t1 shape.Transform, s1 shape.SupportMap, t2 shape.Transform, s2 shape.SupportMap) Result {
	return ClosestPoints(t1, s1, t2, s2, NewSimplex(t1.Dimension()), DefaultOptions())
}

// Status and options tests

func TestStatusString(t *testing.T) {
	tests := []struct {
		status   Status
		expected string
	}{
		{Converged, "converged"},
		{Intersecting, "intersecting"},
		{NonConvergent, "non-convergent"},
		{Status(42), "Status(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.String())
		})
	}
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Options)
		wantErr bool
	}{
		{name: "defaults", mutate: func(o *Options) {}},
		{name: "zero tolerances", mutate: func(o *Options) { o.Epsilon, o.RelativeTolerance = 0, 0 }},
		{name: "no iterations", mutate: func(o *Options) { o.MaxIterations = 0 }, wantErr: true},
		{name: "negative epsilon", mutate: func(o *Options) { o.Epsilon = -1 }, wantErr: true},
		{name: "NaN relative tolerance", mutate: func(o *Options) { o.RelativeTolerance = math.NaN() }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)

			err := opts.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// ClosestPoints tests

// Random balls against the analytic answer, in dimensions 1 to 6.
func TestClosestPointsBallBall(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 1))

	for dim := 1; dim <= 6; dim++ {
		t.Run(fmt.Sprintf("%dD", dim), func(t *testing.T) {
			smp := NewSimplex(dim)

			for range 200 {
				r1 := rng.Float64() * 10
				r2 := rng.Float64() * 10
				c1 := randomPoint(rng, dim, 100)
				c2 := randomPoint(rng, dim, 100)

				res := ClosestPoints(shape.Translation(c1), shape.Ball{Radius: r1}, shape.Translation(c2), shape.Ball{Radius: r2}, smp, DefaultOptions())

				centers := geom.Distance(c1, c2)
				if res.Status == Intersecting {
					assert.LessOrEqual(t, centers, r1+r2+1e-6, "c1: %v, c2: %v", c1, c2)
					continue
				}

				require.Equal(t, Converged, res.Status, "c1: %v, c2: %v", c1, c2)
				u := c2.Sub(nil, c1).Mul(nil, 1/centers)
				expectedA := geom.AddScaled(c1, r1, u)
				expectedB := geom.AddScaled(c2, -r2, u)

				assert.InDelta(t, centers-r1-r2, res.Distance, 1e-6)
				assertPointNear(t, expectedA, res.PointA, 1e-3, "c1: %v, c2: %v", c1, c2)
				assertPointNear(t, expectedB, res.PointB, 1e-3, "c1: %v, c2: %v", c1, c2)
			}
		})
	}
}

func TestClosestPointsOverlappingBalls(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))

	for dim := 1; dim <= 6; dim++ {
		t.Run(fmt.Sprintf("%dD", dim), func(t *testing.T) {
			for range 100 {
				r1 := 1 + rng.Float64()*5
				r2 := 1 + rng.Float64()*5
				c1 := randomPoint(rng, dim, 20)
				// c2 lies strictly inside the sum of the radii.
				offset := randomPoint(rng, dim, 2)
				if l := offset.Len(); l > 0 {
					offset = offset.Mul(nil, 0.9*(r1+r2)*rng.Float64()/l)
				}
				c2 := c1.Add(nil, offset)

				res := closestPoints(shape.Translation(c1), shape.Ball{Radius: r1}, shape.Translation(c2), shape.Ball{Radius: r2})

				assert.Equal(t, Intersecting, res.Status)
				assert.Zero(t, res.Distance)
				assert.Nil(t, res.PointA)
				assert.Nil(t, res.PointB)
			}
		})
	}
}

// Exact contact counts as an intersection, a visible gap does not.
func TestClosestPointsTouchingBoundary(t *testing.T) {
	ball1, ball2 := shape.Ball{Radius: 1}, shape.Ball{Radius: 2}
	t1 := shape.Translation(geom.Vec(0, 0, 0))

	t.Run("touching", func(t *testing.T) {
		res := closestPoints(t1, ball1, shape.Translation(geom.Vec(3, 0, 0)), ball2)

		assert.Equal(t, Intersecting, res.Status)
		_, _, ok := res.Separation()
		assert.False(t, ok)
	})

	t.Run("gap of 1e-3", func(t *testing.T) {
		res := closestPoints(t1, ball1, shape.Translation(geom.Vec(3.001, 0, 0)), ball2)

		require.Equal(t, Converged, res.Status)
		assert.InDelta(t, 1e-3, res.Distance, 1e-12)

		a, b, ok := res.Separation()
		require.True(t, ok)
		assertPointNear(t, geom.Vec(1, 0, 0), a, 1e-12)
		assertPointNear(t, geom.Vec(1.001, 0, 0), b, 1e-12)
	})

	t.Run("same position", func(t *testing.T) {
		res := closestPoints(t1, ball1, t1, ball2)
		assert.Equal(t, Intersecting, res.Status)
	})
}

func TestClosestPointsCuboids(t *testing.T) {
	tests := []struct {
		name      string
		t1        shape.Transform
		s1        shape.SupportMap
		t2        shape.Transform
		s2        shape.SupportMap
		status    Status
		distance  float64
		expectedA *mgl64.VecN
		expectedB *mgl64.VecN
	}{
		{
			name:      "2D boxes, rotated corner facing a face",
			t1:        shape.Identity(2),
			s1:        shape.Cuboid{HalfExtents: geom.Vec(1, 1)},
			t2:        shape.FromVec2Angle(mgl64.Vec2{4, 0}, math.Pi/4),
			s2:        shape.Cuboid{HalfExtents: geom.Vec(1, 1)},
			status:    Converged,
			distance:  3 - math.Sqrt2,
			expectedA: geom.Vec(1, 0),
			expectedB: geom.Vec(4-math.Sqrt2, 0),
		},
		{
			name:      "3D box and ball near an edge",
			t1:        shape.Identity(3),
			s1:        shape.Cuboid{HalfExtents: geom.Vec(1, 1, 1)},
			t2:        shape.Translation(geom.Vec(3, 3, 0.5)),
			s2:        shape.Ball{Radius: 0.5},
			status:    Converged,
			distance:  math.Sqrt(8) - 0.5,
			expectedA: geom.Vec(1, 1, 0.5),
			expectedB: geom.Vec(3-0.5/math.Sqrt2, 3-0.5/math.Sqrt2, 0.5),
		},
		{
			name:     "3D rotated boxes overlapping",
			t1:       shape.FromVec3Quat(mgl64.Vec3{0, 0, 0}, mgl64.QuatRotate(0.3, mgl64.Vec3{0, 1, 0})),
			s1:       shape.Cuboid{HalfExtents: geom.Vec(1, 2, 1)},
			t2:       shape.FromVec3Quat(mgl64.Vec3{1.5, 0.5, 0}, mgl64.QuatRotate(0.7, mgl64.Vec3{1, 1, 0})),
			s2:       shape.Cuboid{HalfExtents: geom.Vec(1, 1, 1)},
			status:   Intersecting,
			distance: 0,
		},
		{
			name:     "3D stacked boxes",
			t1:       shape.Identity(3),
			s1:       shape.Cuboid{HalfExtents: geom.Vec(2, 0.5, 2)},
			t2:       shape.Translation(geom.Vec(0, 2, 0)),
			s2:       shape.Cuboid{HalfExtents: geom.Vec(0.5, 0.5, 0.5)},
			status:   Converged,
			distance: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := closestPoints(tt.t1, tt.s1, tt.t2, tt.s2)

			require.Equal(t, tt.status, res.Status)
			assert.InDelta(t, tt.distance, res.Distance, 1e-6)
			if tt.expectedA != nil {
				assertPointNear(t, tt.expectedA, res.PointA, 1e-3)
				assertPointNear(t, tt.expectedB, res.PointB, 1e-3)
			}
			if res.Status == Converged {
				assert.InDelta(t, res.Distance, geom.Distance(res.PointA, res.PointB), 1e-6)
			}
		})
	}
}

func TestClosestPointsNonConvergent(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxIterations = 1

	t1 := shape.Identity(3)
	t2 := shape.Translation(geom.Vec(3, 3, 0.5))
	box := shape.Cuboid{HalfExtents: geom.Vec(1, 1, 1)}
	ball := shape.Ball{Radius: 0.5}

	res := ClosestPoints(t1, box, t2, ball, NewSimplex(3), opts)

	assert.Equal(t, NonConvergent, res.Status)
	assert.Equal(t, 1, res.Iterations)
	assert.NotNil(t, res.PointA, "the best estimate is attached")
	assert.GreaterOrEqual(t, res.Distance, math.Sqrt(8)-0.5)
	_, _, ok := res.Separation()
	assert.False(t, ok, "a non-convergent result is never a separation")
}

func TestClosestPointsSimplexReuse(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 9))
	shared := NewSimplex(3)

	for range 20 {
		c1 := randomPoint(rng, 3, 40)
		c2 := randomPoint(rng, 3, 40)
		s1 := shape.Cuboid{HalfExtents: geom.Vec(1, 2, 3)}
		s2 := shape.Ball{Radius: 2}

		reused := ClosestPoints(shape.Translation(c1), s1, shape.Translation(c2), s2, shared, DefaultOptions())
		fresh := closestPoints(shape.Translation(c1), s1, shape.Translation(c2), s2)

		assert.Equal(t, fresh, reused)
	}
}

func TestClosestPointsDimensionMismatch(t *testing.T) {
	assert.Panics(t, func() {
		ClosestPoints(shape.Identity(3), shape.Ball{Radius: 1}, shape.Identity(3), shape.Ball{Radius: 1}, NewSimplex(2), DefaultOptions())
	})
	assert.Panics(t, func() {
		ClosestPoints(shape.Identity(2), shape.Ball{Radius: 1}, shape.Identity(3), shape.Ball{Radius: 1}, NewSimplex(2), DefaultOptions())
	})
}

func TestClosestPointsInvalidOptions(t *testing.T) {
	ball := shape.Ball{Radius: 1}
	t1, t2 := shape.Translation(geom.Vec(0, 0)), shape.Translation(geom.Vec(5, 0))

	for _, opts := range []Options{
		{},
		{MaxIterations: 10, Epsilon: -1},
		{MaxIterations: 10, RelativeTolerance: math.NaN()},
	} {
		assert.Panics(t, func() {
			ClosestPoints(t1, ball, t2, ball, NewSimplex(2), opts)
		}, "options %+v", opts)
	}
}

// Wrappers and pool tests

func TestDistance(t *testing.T) {
	ball := shape.Ball{Radius: 1}

	d, status := Distance(shape.Translation(geom.Vec(0, 0)), ball, shape.Translation(geom.Vec(0, 5)), ball)
	assert.Equal(t, Converged, status)
	assert.InDelta(t, 3.0, d, 1e-9)

	assert.True(t, Intersects(shape.Translation(geom.Vec(0, 0)), ball, shape.Translation(geom.Vec(1, 1)), ball))
	assert.False(t, Intersects(shape.Translation(geom.Vec(0, 0)), ball, shape.Translation(geom.Vec(3, 0)), ball))
}

func TestSimplexPool(t *testing.T) {
	for dim := 1; dim <= 6; dim++ {
		smp := AcquireSimplex(dim)
		assert.Equal(t, dim, smp.Dimension())
		ReleaseSimplex(smp)
	}

	assert.Panics(t, func() { AcquireSimplex(0) })
}
