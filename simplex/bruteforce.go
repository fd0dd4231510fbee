package simplex

import (
	"fmt"
	"math"

	"github.com/akmonengine/proximity/geom"
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
)

// bruteForceWeightTolerance is how far below zero a barycentric coordinate may fall
// before a candidate projection is considered outside its sub-face.
const bruteForceWeightTolerance = 1e-9

// BruteForce projects the origin by solving, for every sub-face independently, the
// projection onto its affine hull, and keeping the closest projection lying inside its
// face. It shares nothing with Johnson (no recursion template, no determinant cache),
// which makes it a suitable oracle for tests. It is exponentially slower and is never
// used on query paths.
type BruteForce[V Vertex] struct {
	dim      int
	vertices []V
	weights  []float64
}

var _ Simplex[Plain] = (*BruteForce[Plain])(nil)

func NewBruteForce[V Vertex](dim int) *BruteForce[V] {
	return &BruteForce[V]{dim: dim}
}

func (s *BruteForce[V]) Reset(v V) {
	if v.Point().Size() != s.dim {
		panic(fmt.Sprintf("simplex: %d-dimensional point added to a %d-dimensional simplex", v.Point().Size(), s.dim))
	}
	s.vertices = append(s.vertices[:0], v)
	s.weights = append(s.weights[:0], 1)
}

func (s *BruteForce[V]) AddPoint(v V) bool {
	if len(s.vertices) == s.dim+1 || s.Contains(v.Point()) {
		return false
	}
	s.vertices = append(s.vertices, v)
	s.weights = append(s.weights, 0)
	return true
}

func (s *BruteForce[V]) ProjectOrigin() *mgl64.VecN {
	members, weights, proj := s.solve()

	vertices := make([]V, 0, len(members))
	kept := make([]float64, 0, len(members))
	for slot, i := range members {
		if weights[slot] > 0 {
			vertices = append(vertices, s.vertices[i])
			kept = append(kept, weights[slot])
		}
	}
	s.vertices = vertices
	s.weights = normalize(kept)

	return proj
}

func (s *BruteForce[V]) ProjectOriginNoReduce() *mgl64.VecN {
	_, _, proj := s.solve()
	return proj
}

func (s *BruteForce[V]) Vertices() []V {
	return s.vertices
}

func (s *BruteForce[V]) Weights() []float64 {
	return s.weights
}

func (s *BruteForce[V]) Len() int {
	return len(s.vertices)
}

func (s *BruteForce[V]) Dimension() int {
	return s.dim
}

func (s *BruteForce[V]) MaxSquaredLen() float64 {
	return maxSquaredLen(s.vertices)
}

func (s *BruteForce[V]) Contains(p *mgl64.VecN) bool {
	scale := math.Max(s.MaxSquaredLen(), p.LenSqr())
	for _, v := range s.vertices {
		if coincident(p, v.Point(), scale) {
			return true
		}
	}
	return false
}

func (s *BruteForce[V]) solve() ([]int, []float64, *mgl64.VecN) {
	n := len(s.vertices)
	if n == 0 {
		panic("simplex: projection of an empty simplex")
	}

	var (
		bestMembers []int
		bestWeights []float64
		bestProj    *mgl64.VecN
		bestDist    = math.Inf(1)
	)

	for mask := 1; mask < 1<<n; mask++ {
		members := make([]int, 0, n)
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				members = append(members, i)
			}
		}

		weights, ok := s.affineProjection(members)
		if !ok {
			continue
		}

		points := make([]*mgl64.VecN, len(members))
		for slot, i := range members {
			points[slot] = s.vertices[i].Point()
		}
		proj := geom.Combination(points, weights)

		if d := proj.LenSqr(); d < bestDist {
			bestMembers, bestWeights, bestProj, bestDist = members, weights, proj, d
		}
	}

	return bestMembers, bestWeights, bestProj
}

// affineProjection returns the barycentric coordinates of the origin's projection onto
// the affine hull of the given vertices, or false when the hull is degenerate or the
// projection falls outside the face.
//
// With y_0 as base and e_i = y_i - y_0, the projection y_0 + Σ μ_i e_i satisfies the
// normal equations (EᵀE) μ = -Eᵀ y_0.
func (s *BruteForce[V]) affineProjection(members []int) ([]float64, bool) {
	if len(members) == 1 {
		return []float64{1}, true
	}

	base := s.vertices[members[0]].Point()
	k := len(members) - 1
	edges := make([]*mgl64.VecN, k)
	for i := 0; i < k; i++ {
		edges[i] = s.vertices[members[i+1]].Point().Sub(nil, base)
	}

	gram := mat.NewSymDense(k, nil)
	rhs := mat.NewVecDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			gram.SetSym(i, j, edges[i].Dot(edges[j]))
		}
		rhs.SetVec(i, -edges[i].Dot(base))
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(gram); !ok {
		return nil, false
	}
	var mu mat.VecDense
	if err := chol.SolveVecTo(&mu, rhs); err != nil {
		// Ill-conditioned: the face is degenerate and one of its sub-faces covers it.
		return nil, false
	}

	weights := make([]float64, len(members))
	weights[0] = 1
	for i := 0; i < k; i++ {
		weights[i+1] = mu.AtVec(i)
		weights[0] -= mu.AtVec(i)
	}
	for _, w := range weights {
		if w < -bruteForceWeightTolerance {
			return nil, false
		}
	}

	return weights, true
}

func normalize(weights []float64) []float64 {
	var total float64
	for _, w := range weights {
		total += w
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights
}
