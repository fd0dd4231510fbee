package simplex

import (
	"fmt"
	"math"

	"github.com/akmonengine/proximity/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// optimalityTolerance bounds how far, relative to |p|·max|y_i|, a selected projection p
// may violate the optimality condition p·y_i ≥ |p|².
const optimalityTolerance = 1e-9

// Johnson is a simplex projected with Johnson's distance sub-algorithm.
//
// For a sub-face X of the simplex Y = {y_0 ... y_m}, the signed sub-determinants are
// defined recursively:
//
//	Δ_i({y_i})       = 1
//	Δ_j(X ∪ {y_j})   = Σ_{i∈X} Δ_i(X) · (y_i·y_k − y_i·y_j)    for any fixed k ∈ X
//
// The projection of the origin onto the hull lies in the relative interior of X iff
// Δ_i(X) > 0 for every i ∈ X and Δ_j(X ∪ {y_j}) ≤ 0 for every j ∉ X. Its barycentric
// coordinates are then λ_i = Δ_i(X) / Σ Δ(X).
//
// All determinants are computed bottom-up in the order given by the RecursionTemplate of
// the dimension. The scratch buffers are sized once, so a Johnson simplex can be reset and
// reused across queries without allocating new tables.
type Johnson[V Vertex] struct {
	tpl      *RecursionTemplate
	vertices []V
	points   []*mgl64.VecN
	weights  []float64

	det   []float64 // det[mask*maxPoints+i] = Δ_i(mask)
	err   []float64 // magnitude the matching determinant was accumulated from
	terms []float64 // terms[(i*maxPoints+k)*maxPoints+j] = y_i·(y_k − y_j)
	spans []float64 // spans[k*maxPoints+j] = |y_k − y_j|
	norms []float64
}

var _ Simplex[Plain] = (*Johnson[Plain])(nil)

// NewJohnson creates an empty simplex for the given dimension. Reset must be called
// before any other method.
func NewJohnson[V Vertex](dim int) *Johnson[V] {
	tpl := TemplateFor(dim)
	mp := tpl.maxPoints

	return &Johnson[V]{
		tpl:      tpl,
		vertices: make([]V, 0, mp),
		points:   make([]*mgl64.VecN, 0, mp),
		weights:  make([]float64, 0, mp),
		det:      make([]float64, (1<<mp)*mp),
		err:      make([]float64, (1<<mp)*mp),
		terms:    make([]float64, mp*mp*mp),
		spans:    make([]float64, mp*mp),
		norms:    make([]float64, mp),
	}
}

func (s *Johnson[V]) checkDimension(p *mgl64.VecN) {
	if p.Size() != s.tpl.dim {
		panic(fmt.Sprintf("simplex: %d-dimensional point added to a %d-dimensional simplex", p.Size(), s.tpl.dim))
	}
}

func (s *Johnson[V]) Reset(v V) {
	s.checkDimension(v.Point())

	s.vertices = append(s.vertices[:0], v)
	s.points = append(s.points[:0], v.Point())
	s.weights = append(s.weights[:0], 1)
}

func (s *Johnson[V]) AddPoint(v V) bool {
	p := v.Point()
	s.checkDimension(p)

	if len(s.vertices) == s.tpl.maxPoints {
		return false
	}
	scale := math.Max(s.MaxSquaredLen(), p.LenSqr())
	for _, q := range s.points {
		if coincident(p, q, scale) {
			return false
		}
	}

	s.vertices = append(s.vertices, v)
	s.points = append(s.points, p)
	s.weights = append(s.weights, 0)
	return true
}

func (s *Johnson[V]) ProjectOrigin() *mgl64.VecN {
	mask, weights, proj := s.solve()

	members := s.tpl.members[mask]
	if len(members) < len(s.vertices) {
		// Members are sorted, so compacting in place never overwrites a slot still to be read.
		for slot, i := range members {
			s.vertices[slot] = s.vertices[i]
			s.points[slot] = s.points[i]
		}
		s.vertices = s.vertices[:len(members)]
		s.points = s.points[:len(members)]
	}
	s.weights = append(s.weights[:0], weights...)

	return proj
}

func (s *Johnson[V]) ProjectOriginNoReduce() *mgl64.VecN {
	_, _, proj := s.solve()
	return proj
}

func (s *Johnson[V]) Vertices() []V {
	return s.vertices
}

func (s *Johnson[V]) Weights() []float64 {
	return s.weights
}

func (s *Johnson[V]) Len() int {
	return len(s.vertices)
}

func (s *Johnson[V]) Dimension() int {
	return s.tpl.dim
}

func (s *Johnson[V]) MaxSquaredLen() float64 {
	return maxSquaredLen(s.vertices)
}

func (s *Johnson[V]) Contains(p *mgl64.VecN) bool {
	scale := math.Max(s.MaxSquaredLen(), p.LenSqr())
	for _, q := range s.points {
		if coincident(p, q, scale) {
			return true
		}
	}
	return false
}

// solve selects the sub-face supporting the projection of the origin and returns its
// mask, the barycentric weights of its members and the projected point.
func (s *Johnson[V]) solve() (int, []float64, *mgl64.VecN) {
	n := len(s.points)
	if n == 0 {
		panic("simplex: projection of an empty simplex")
	}

	s.computeDeterminants(n)

	// The whole simplex first: when it qualifies, an already reduced simplex is kept as is.
	// A face passing the determinant tests is only trusted once its projection is checked
	// to be optimal: on clustered vertices rounding noise can pass the sign tests.
	full := 1<<n - 1
	if s.isProjectionFace(full, n) {
		if mask, weights, p := s.barycentric(full); s.isOptimal(p, n) {
			return mask, weights, p
		}
	}
	for _, mask := range s.tpl.ordered {
		if mask >= full || !s.isProjectionFace(mask, n) {
			continue
		}
		if mask, weights, p := s.barycentric(mask); s.isOptimal(p, n) {
			return mask, weights, p
		}
	}

	// Backup procedure: rounding left no sub-face passing every test. Fall back on the
	// sub-face with positive determinants whose own projection is the closest to the
	// origin. Positive determinants make that projection a convex combination of the
	// vertices, so the minimum is taken over points of the hull. Single vertices always
	// qualify, so this cannot come back empty.
	bestMask, bestDist := 0, math.Inf(1)
	for _, mask := range s.tpl.ordered {
		if mask > full || !s.isInterior(mask) {
			continue
		}
		_, _, p := s.barycentric(mask)
		if d := p.LenSqr(); d < bestDist {
			bestMask, bestDist = mask, d
		}
	}

	return s.barycentric(bestMask)
}

func (s *Johnson[V]) computeDeterminants(n int) {
	mp := s.tpl.maxPoints

	for i := 0; i < n; i++ {
		s.norms[i] = s.points[i].Len()
	}
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			// Dotting with the edge instead of subtracting two dot products keeps the
			// cancellation error proportional to the edge length.
			diff := s.points[k].Sub(nil, s.points[j])
			s.spans[k*mp+j] = diff.Len()
			for i := 0; i < n; i++ {
				s.terms[(i*mp+k)*mp+j] = s.points[i].Dot(diff)
			}
		}
	}

	limit := 1 << n
	for _, mask := range s.tpl.ordered {
		if mask >= limit {
			continue
		}

		members := s.tpl.members[mask]
		if len(members) == 1 {
			s.det[mask*mp+members[0]] = 1
			s.err[mask*mp+members[0]] = 0
			continue
		}

		for _, j := range members {
			sub := mask &^ (1 << j)
			k := s.tpl.members[sub][0]

			var d, e float64
			for _, i := range s.tpl.members[sub] {
				di := s.det[sub*mp+i]
				d += di * s.terms[(i*mp+k)*mp+j]
				e += math.Abs(di) * s.norms[i] * s.spans[k*mp+j]
			}
			s.det[mask*mp+j] = d
			s.err[mask*mp+j] = e
		}
	}
}

// isPositive applies the precision contract: a determinant within Epsilon of the
// magnitude it was accumulated from counts as zero.
func (s *Johnson[V]) isPositive(mask, i int) bool {
	idx := mask*s.tpl.maxPoints + i
	return s.det[idx] > Epsilon*s.err[idx]
}

func (s *Johnson[V]) isInterior(mask int) bool {
	for _, i := range s.tpl.members[mask] {
		if !s.isPositive(mask, i) {
			return false
		}
	}
	return true
}

func (s *Johnson[V]) isProjectionFace(mask, n int) bool {
	if !s.isInterior(mask) {
		return false
	}
	for j := 0; j < n; j++ {
		if mask&(1<<j) != 0 {
			continue
		}
		// Boundary inclusive: a zero determinant does not disqualify the face.
		if s.isPositive(mask|1<<j, j) {
			return false
		}
	}
	return true
}

// isOptimal checks that p is the point of the hull nearest to the origin: every vertex
// y_i must satisfy p·y_i ≥ |p|², up to a tolerance relative to the vertex norms.
func (s *Johnson[V]) isOptimal(p *mgl64.VecN, n int) bool {
	var maxNorm float64
	for i := 0; i < n; i++ {
		maxNorm = math.Max(maxNorm, s.norms[i])
	}

	sqLen := p.LenSqr()
	tolerance := maxNorm * (optimalityTolerance*math.Sqrt(sqLen) + Epsilon*maxNorm)
	for i := 0; i < n; i++ {
		if p.Dot(s.points[i]) < sqLen-tolerance {
			return false
		}
	}
	return true
}

func (s *Johnson[V]) barycentric(mask int) (int, []float64, *mgl64.VecN) {
	mp := s.tpl.maxPoints
	members := s.tpl.members[mask]

	var total float64
	for _, i := range members {
		total += s.det[mask*mp+i]
	}

	weights := make([]float64, len(members))
	points := make([]*mgl64.VecN, len(members))
	for slot, i := range members {
		weights[slot] = s.det[mask*mp+i] / total
		points[slot] = s.points[i]
	}

	return mask, weights, geom.Combination(points, weights)
}
