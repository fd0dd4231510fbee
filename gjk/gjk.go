// Package gjk implements the Gilbert-Johnson-Keerthi (GJK) distance algorithm.
//
// GJK computes the distance between two convex shapes by finding the point of their
// configuration space obstacle (CSO, the Minkowski difference A - B) nearest to the
// origin. The algorithm builds a simplex of CSO support points incrementally, projecting
// the origin onto it at each step, and stops once a new support point no longer brings
// the projection meaningfully closer.
//
// Shapes only need to implement shape.SupportMap. Points are n-dimensional, so the same
// code runs in 1D, 2D, 3D and beyond.
//
// References:
//   - Gilbert, Johnson, Keerthi: "A Fast Procedure for Computing the Distance Between
//     Complex Objects in Three-Dimensional Space" (1988)
//   - Van den Bergen: "Collision Detection in Interactive 3D Environments" (2003)
package gjk

import (
	"fmt"
	"math"
	"sync"

	"github.com/akmonengine/proximity/geom"
	"github.com/akmonengine/proximity/shape"
	"github.com/akmonengine/proximity/simplex"
	"github.com/go-gl/mathgl/mgl64"
)

// Status is the outcome of a GJK query.
type Status int

const (
	// Converged means the shapes are disjoint and the witness points are available.
	Converged Status = iota
	// Intersecting means the shapes overlap or touch.
	Intersecting
	// NonConvergent means the iteration cap was reached. The result holds the best
	// estimate found so far, which must not be taken as an exact answer.
	NonConvergent
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case Intersecting:
		return "intersecting"
	case NonConvergent:
		return "non-convergent"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Options tunes the stopping criteria of ClosestPoints.
type Options struct {
	// MaxIterations caps the number of projections. Exhausting it yields NonConvergent.
	MaxIterations int
	// Epsilon is the distance, relative to the CSO scale, under which the origin is
	// considered inside the simplex.
	Epsilon float64
	// RelativeTolerance stops the iteration when the gap between the distance upper
	// bound |v| and its lower bound v·w/|v| falls below this fraction of |v|².
	RelativeTolerance float64
}

func DefaultOptions() Options {
	return Options{
		MaxIterations:     100,
		Epsilon:           1e-10,
		RelativeTolerance: 1e-12,
	}
}

func (o Options) Validate() error {
	if o.MaxIterations <= 0 {
		return fmt.Errorf("gjk: max iterations must be positive, got %d", o.MaxIterations)
	}
	if o.Epsilon < 0 || math.IsNaN(o.Epsilon) {
		return fmt.Errorf("gjk: epsilon must be non-negative, got %v", o.Epsilon)
	}
	if o.RelativeTolerance < 0 || math.IsNaN(o.RelativeTolerance) {
		return fmt.Errorf("gjk: relative tolerance must be non-negative, got %v", o.RelativeTolerance)
	}
	return nil
}

// Result of a closest points query.
//
// PointA and PointB are nil when Status is Intersecting. For NonConvergent results they
// hold the closest pair found before the iteration cap.
type Result struct {
	Status     Status
	Distance   float64
	PointA     *mgl64.VecN
	PointB     *mgl64.VecN
	Iterations int
}

// Separation returns the witness points of a converged query.
func (r Result) Separation() (a, b *mgl64.VecN, ok bool) {
	if r.Status != Converged {
		return nil, nil, false
	}
	return r.PointA, r.PointB, true
}

// Simplex is the simplex type GJK drives: CSO points annotated with their support points.
type Simplex = simplex.Simplex[geom.AnnotatedPoint]

// NewSimplex creates a Johnson simplex for the given dimension.
func NewSimplex(dim int) Simplex {
	return simplex.NewJohnson[geom.AnnotatedPoint](dim)
}

var simplexPools [simplex.MaxDimension + 1]*sync.Pool

func init() {
	for dim := 1; dim <= simplex.MaxDimension; dim++ {
		simplexPools[dim] = &sync.Pool{
			New: func() interface{} {
				return NewSimplex(dim)
			},
		}
	}
}

// AcquireSimplex takes a simplex of the given dimension from a shared pool. Release it
// with ReleaseSimplex once the query is done.
func AcquireSimplex(dim int) Simplex {
	if dim < 1 || dim > simplex.MaxDimension {
		panic(fmt.Sprintf("gjk: unsupported dimension %d", dim))
	}
	return simplexPools[dim].Get().(Simplex)
}

func ReleaseSimplex(s Simplex) {
	simplexPools[s.Dimension()].Put(s)
}

// ClosestPoints computes the closest points between s1 placed by t1 and s2 placed by t2.
//
// Algorithm overview:
//  1. Seed the simplex with the CSO support point along the direction from shape 1 to
//     shape 2
//  2. Project the origin onto the simplex, dropping the vertices that do not support
//     the projection v
//  3. If v is the origin (up to Epsilon) → the shapes overlap
//  4. Query the CSO support point w along -v
//  5. If w does not improve the bound (|v|² - v·w small), or v stopped shrinking, or w
//     is already in the simplex → converged
//  6. Otherwise add w and go to 2
//
// The simplex is reset by the call and left holding the final sub-face, so it can be
// reused for the next query. Its dimension must match the transforms', and opts must pass
// Validate: both are checked and violations panic.
func ClosestPoints(t1 shape.Transform, s1 shape.SupportMap, t2 shape.Transform, s2 shape.SupportMap, smp Simplex, opts Options) Result {
	if err := opts.Validate(); err != nil {
		panic(err)
	}
	dim := t1.Dimension()
	geom.MustSameDimension(t1.Position, t2.Position)
	if smp.Dimension() != dim {
		panic(fmt.Sprintf("gjk: %d-dimensional simplex used for a %d-dimensional query", smp.Dimension(), dim))
	}

	// Starting toward the other shape typically reduces iterations
	direction := t2.Position.Sub(nil, t1.Position)
	if direction.LenSqr() < 1e-16 {
		direction = geom.Axis(dim, 0) // Fallback if positions are identical
	}
	smp.Reset(shape.CSOSupportPoint(t1, s1, t2, s2, direction))

	best := Result{Status: NonConvergent, Distance: math.Inf(1)}
	bestSqDist := math.Inf(1)

	for i := 1; i <= opts.MaxIterations; i++ {
		v := smp.ProjectOrigin()
		sqDist := v.LenSqr()

		scale := math.Max(1, smp.MaxSquaredLen())
		if sqDist <= opts.Epsilon*opts.Epsilon*scale {
			return Result{Status: Intersecting, Iterations: i}
		}

		// Rounding can make the projection oscillate once the exact answer is reached.
		if sqDist >= bestSqDist {
			best.Status = Converged
			best.Iterations = i
			return best
		}

		a, b := witnesses(smp)
		bestSqDist = sqDist
		best = Result{
			Status:     NonConvergent,
			Distance:   math.Sqrt(sqDist),
			PointA:     a,
			PointB:     b,
			Iterations: i,
		}

		w := shape.CSOSupportPoint(t1, s1, t2, s2, geom.Neg(v))
		if sqDist-v.Dot(w.P) <= opts.RelativeTolerance*sqDist || !smp.AddPoint(w) {
			best.Status = Converged
			return best
		}
	}

	return best
}

// witnesses rebuilds the points of each shape from the barycentric weights of the
// last projection.
func witnesses(smp Simplex) (a, b *mgl64.VecN) {
	vertices := smp.Vertices()
	as := make([]*mgl64.VecN, len(vertices))
	bs := make([]*mgl64.VecN, len(vertices))
	for i, v := range vertices {
		as[i], bs[i] = v.A, v.B
	}

	weights := smp.Weights()
	return geom.Combination(as, weights), geom.Combination(bs, weights)
}

// Distance returns the distance between two shapes using a pooled simplex and the
// default options. It is zero for intersecting shapes.
func Distance(t1 shape.Transform, s1 shape.SupportMap, t2 shape.Transform, s2 shape.SupportMap) (float64, Status) {
	smp := AcquireSimplex(t1.Dimension())
	defer ReleaseSimplex(smp)

	res := ClosestPoints(t1, s1, t2, s2, smp, DefaultOptions())
	return res.Distance, res.Status
}

// Intersects reports whether two shapes overlap or touch.
func Intersects(t1 shape.Transform, s1 shape.SupportMap, t2 shape.Transform, s2 shape.SupportMap) bool {
	_, status := Distance(t1, s1, t2, s2)
	return status == Intersecting
}
