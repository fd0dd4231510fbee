package simplex

import (
	"fmt"
	"math/bits"
	"sort"
	"sync"
)

// MaxDimension bounds the dimensions a recursion template can be built for. The template
// enumerates every subset of n+1 vertices, so it grows as 2^(n+1).
const MaxDimension = 16

// RecursionTemplate is the dimension-dependent part of Johnson's sub-algorithm.
//
// Sub-faces of a simplex are encoded as bitmasks over vertex slots. For every non-empty
// mask the template stores its members; masks are listed by increasing cardinality so
// that the determinants of a sub-face are always computed before those of the faces
// containing it.
//
// Templates are immutable and shared: use TemplateFor.
type RecursionTemplate struct {
	dim       int
	maxPoints int
	members   [][]int
	ordered   []int
}

var (
	templatesMu sync.Mutex
	templates   = map[int]*RecursionTemplate{}
)

// TemplateFor returns the recursion template of the given dimension, building it on
// first use.
func TemplateFor(dim int) *RecursionTemplate {
	if dim < 1 || dim > MaxDimension {
		panic(fmt.Sprintf("simplex: unsupported dimension %d", dim))
	}

	templatesMu.Lock()
	defer templatesMu.Unlock()

	if t, ok := templates[dim]; ok {
		return t
	}
	t := newRecursionTemplate(dim)
	templates[dim] = t
	return t
}

func newRecursionTemplate(dim int) *RecursionTemplate {
	maxPoints := dim + 1
	count := 1 << maxPoints

	t := &RecursionTemplate{
		dim:       dim,
		maxPoints: maxPoints,
		members:   make([][]int, count),
		ordered:   make([]int, 0, count-1),
	}

	for mask := 1; mask < count; mask++ {
		m := make([]int, 0, bits.OnesCount(uint(mask)))
		for i := 0; i < maxPoints; i++ {
			if mask&(1<<i) != 0 {
				m = append(m, i)
			}
		}
		t.members[mask] = m
		t.ordered = append(t.ordered, mask)
	}

	sort.SliceStable(t.ordered, func(a, b int) bool {
		return len(t.members[t.ordered[a]]) < len(t.members[t.ordered[b]])
	})

	return t
}

func (t *RecursionTemplate) Dimension() int {
	return t.dim
}

// MaxPoints is the capacity of a simplex in this dimension, n+1.
func (t *RecursionTemplate) MaxPoints() int {
	return t.maxPoints
}

// Members returns the vertex slots of a sub-face.
func (t *RecursionTemplate) Members(mask int) []int {
	return t.members[mask]
}

// Ordered returns every non-empty sub-face mask, smallest faces first.
func (t *RecursionTemplate) Ordered() []int {
	return t.ordered
}
