package partitioning

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/akmonengine/proximity/bounding"
	"github.com/akmonengine/proximity/geom"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper functions

func randomBox(rng *rand.Rand, dim int, extent float64) bounding.AABB {
	center := geom.Zero(dim)
	half := geom.Zero(dim)
	for i := 0; i < dim; i++ {
		center.Set(i, (rng.Float64()-0.5)*extent)
		half.Set(i, 0.5+rng.Float64()*4.5)
	}
	return bounding.NewAABB(center.Sub(nil, half), center.Add(nil, half))
}

func randomLeaves(rng *rand.Rand, n, dim int) []Leaf[bounding.AABB, int] {
	leaves := make([]Leaf[bounding.AABB, int], n)
	for i := range leaves {
		leaves[i] = NewLeaf(randomBox(rng, dim, 100), i)
	}
	return leaves
}

func box(min, max []float64) bounding.AABB {
	return bounding.NewAABB(geom.Vec(min...), geom.Vec(max...))
}

// leafCounter counts the leaves handed to VisitLeaf and can refuse to enter internal nodes.
type leafCounter struct {
	internals int
	leaves    []int
	status    VisitStatus
}

func (c *leafCounter) VisitInternal(bounding.AABB) VisitStatus {
	c.internals++
	return c.status
}

func (c *leafCounter) VisitLeaf(_ bounding.AABB, payload int) {
	c.leaves = append(c.leaves, payload)
}

// bruteForcePairs lists the unordered pairs i < j of intersecting volumes.
func bruteForcePairs(leaves []Leaf[bounding.AABB, int]) []Pair[int] {
	var pairs []Pair[int]
	for i := range leaves {
		for j := i + 1; j < len(leaves); j++ {
			if leaves[i].Volume.Intersects(leaves[j].Volume) {
				pairs = append(pairs, Pair[int]{A: leaves[i].Payload, B: leaves[j].Payload})
			}
		}
	}
	return pairs
}

// normalized orders each pair so that unordered pairs compare equal.
func normalized(pairs []Pair[int]) []Pair[int] {
	return lo.Map(pairs, func(p Pair[int], _ int) Pair[int] {
		if p.A > p.B {
			return Pair[int]{A: p.B, B: p.A}
		}
		return p
	})
}

// Partitioner tests

func TestMedianPartitioner(t *testing.T) {
	t.Run("splits along the widest axis", func(t *testing.T) {
		leaves := []Leaf[bounding.AABB, int]{
			NewLeaf(box([]float64{0, 40}, []float64{1, 41}), 0),
			NewLeaf(box([]float64{2, 0}, []float64{3, 1}), 1),
			NewLeaf(box([]float64{1, 20}, []float64{2, 21}), 2),
			NewLeaf(box([]float64{0, 10}, []float64{1, 11}), 3),
			NewLeaf(box([]float64{3, 30}, []float64{4, 31}), 4),
		}

		volume, left, right := MedianPartitioner[bounding.AABB, int]()(0, leaves)

		assert.Equal(t, []int{1, 3, 2}, lo.Map(left, func(l Leaf[bounding.AABB, int], _ int) int { return l.Payload }))
		assert.Equal(t, []int{4, 0}, lo.Map(right, func(l Leaf[bounding.AABB, int], _ int) int { return l.Payload }))
		assert.True(t, volume.Min.ApproxEqualThreshold(geom.Vec(0, 0), 1e-12))
		assert.True(t, volume.Max.ApproxEqualThreshold(geom.Vec(4, 41), 1e-12))
		assert.Equal(t, []int{0, 1, 2, 3, 4}, lo.Map(leaves, func(l Leaf[bounding.AABB, int], _ int) int { return l.Payload }), "input must not be reordered")
	})

	t.Run("caller provided centres", func(t *testing.T) {
		leaves := []Leaf[bounding.AABB, int]{
			NewLeaf(box([]float64{0, 0}, []float64{1, 1}), 0),
			NewLeaf(box([]float64{0, 0}, []float64{1, 1}), 1),
			NewLeaf(box([]float64{0, 0}, []float64{1, 1}), 2),
		}
		centers := map[int]*mgl64.VecN{0: geom.Vec(0, 5), 1: geom.Vec(0, -5), 2: geom.Vec(0, 1)}

		partitioner := MedianPartitionerWithCenters(func(l Leaf[bounding.AABB, int]) *mgl64.VecN {
			return centers[l.Payload]
		})
		_, left, right := partitioner(0, leaves)

		assert.Len(t, left, 2)
		assert.Equal(t, 1, left[0].Payload)
		assert.Equal(t, 2, left[1].Payload)
		assert.Equal(t, 0, right[0].Payload)
	})

	t.Run("panics on a single leaf", func(t *testing.T) {
		assert.Panics(t, func() {
			MedianPartitioner[bounding.AABB, int]()(0, []Leaf[bounding.AABB, int]{NewLeaf(box([]float64{0}, []float64{1}), 0)})
		})
	})
}

// BVT tests

func TestNewBVT(t *testing.T) {
	t.Run("empty leaf set panics", func(t *testing.T) {
		assert.Panics(t, func() {
			NewBVT[bounding.AABB, int](nil, MedianPartitioner[bounding.AABB, int]())
		})
	})

	t.Run("single leaf", func(t *testing.T) {
		leaf := NewLeaf(box([]float64{0, 0, 0}, []float64{1, 1, 1}), 7)
		tree := NewBVT([]Leaf[bounding.AABB, int]{leaf}, MedianPartitioner[bounding.AABB, int]())

		assert.True(t, tree.Root().IsLeaf())
		assert.Equal(t, 7, tree.Root().Payload())
		assert.Equal(t, 1, tree.Len())
		assert.Equal(t, 1, tree.Depth())
		assert.Empty(t, tree.SelfPairs())
	})

	t.Run("balanced and tight", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(1, 1))
		leaves := randomLeaves(rng, 100, 3)
		tree := NewBVT(leaves, MedianPartitioner[bounding.AABB, int]())

		assert.Equal(t, 100, tree.Len())
		assert.Equal(t, int(math.Ceil(math.Log2(100)))+1, tree.Depth())
		assert.ElementsMatch(t, lo.Range(100), lo.Map(tree.Leaves(), func(l Leaf[bounding.AABB, int], _ int) int { return l.Payload }))

		var check func(n Node[bounding.AABB, int])
		check = func(n Node[bounding.AABB, int]) {
			if n.IsLeaf() {
				return
			}
			left, right := n.Children()
			assert.True(t, n.Volume().Contains(left.Volume()))
			assert.True(t, n.Volume().Contains(right.Volume()))
			check(left)
			check(right)
		}
		check(tree.Root())
	})
}

func TestBVTVisit(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 3))
	leaves := randomLeaves(rng, 64, 2)
	tree := NewBVT(leaves, MedianPartitioner[bounding.AABB, int]())

	t.Run("root volume query returns every leaf", func(t *testing.T) {
		collector := NewVolumeInterferencesCollector[bounding.AABB, int](tree.Root().Volume())
		tree.Visit(collector)
		assert.ElementsMatch(t, lo.Range(64), collector.Hits)
	})

	t.Run("disjoint query returns nothing", func(t *testing.T) {
		collector := NewVolumeInterferencesCollector[bounding.AABB, int](box([]float64{500, 500}, []float64{600, 600}))
		tree.Visit(collector)
		assert.Empty(t, collector.Hits)
	})

	t.Run("volume query matches a linear scan", func(t *testing.T) {
		query := box([]float64{-10, -20}, []float64{15, 5})
		collector := NewVolumeInterferencesCollector[bounding.AABB, int](query)
		tree.Visit(collector)

		expected := lo.FilterMap(leaves, func(l Leaf[bounding.AABB, int], _ int) (int, bool) {
			return l.Payload, l.Volume.Intersects(query)
		})
		assert.ElementsMatch(t, expected, collector.Hits)
	})

	t.Run("ray query matches a linear scan", func(t *testing.T) {
		ray := geom.NewRay(geom.Vec(-60, -3), geom.Vec(1, 0.1))
		collector := NewRayInterferencesCollector[bounding.AABB, int](ray, 80)
		tree.Visit(collector)

		expected := lo.FilterMap(leaves, func(l Leaf[bounding.AABB, int], _ int) (int, bool) {
			return l.Payload, l.Volume.IntersectsRay(ray, 80)
		})
		assert.ElementsMatch(t, expected, collector.Hits)
	})

	t.Run("stop prunes subtrees", func(t *testing.T) {
		counter := &leafCounter{status: Stop}
		tree.Visit(counter)
		assert.Equal(t, 1, counter.internals)
		assert.Empty(t, counter.leaves)

		counter = &leafCounter{status: Continue}
		tree.Visit(counter)
		assert.Equal(t, 63, counter.internals)
		assert.Len(t, counter.leaves, 64)
	})
}

// DBVT tests

func TestDBVTInsertRemove(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 8))
	leaves := randomLeaves(rng, 200, 3)
	tree := NewDBVT[bounding.AABB, int]()

	assert.True(t, tree.IsEmpty())
	assert.Nil(t, tree.Root())
	assert.Equal(t, -1, tree.Height())

	handles := make([]Handle, len(leaves))
	for i, leaf := range leaves {
		handles[i] = tree.Insert(leaf.Volume, leaf.Payload)
		require.NoError(t, tree.CheckInvariants())
	}
	assert.Equal(t, 200, tree.Len())

	for i, h := range handles {
		assert.Equal(t, i, tree.Get(h))
		assert.Equal(t, leaves[i].Volume, tree.Volume(h))
	}

	rng.Shuffle(len(handles), func(i, j int) {
		handles[i], handles[j] = handles[j], handles[i]
	})
	for i, h := range handles {
		payload := tree.Remove(h)
		assert.Equal(t, leaves[payload].Payload, payload)
		require.NoError(t, tree.CheckInvariants())
		assert.Equal(t, len(handles)-i-1, tree.Len())
	}

	assert.True(t, tree.IsEmpty())
	assert.Nil(t, tree.Root())
	assert.Zero(t, tree.Len())
}

func TestDBVTHandles(t *testing.T) {
	tree := NewDBVT[bounding.AABB, string]()
	a := tree.Insert(box([]float64{0, 0}, []float64{1, 1}), "a")
	b := tree.Insert(box([]float64{5, 5}, []float64{6, 6}), "b")
	c := tree.Insert(box([]float64{-3, 2}, []float64{-2, 3}), "c")

	assert.Equal(t, "c", tree.Remove(c))
	assert.Panics(t, func() { tree.Remove(c) }, "double removal")
	assert.Panics(t, func() { tree.Get(Handle{}) }, "zero handle")
	assert.Panics(t, func() { tree.Get(Handle{id: -1, generation: 1}) })
	assert.Panics(t, func() { tree.Volume(Handle{id: 1000, generation: 1}) })

	// Internal nodes are not leaves.
	for id := 0; id < 5; id++ {
		if id != a.id && id != b.id {
			assert.Panics(t, func() { tree.Get(tree.handle(id)) }, "node %d", id)
		}
	}

	d := tree.Insert(box([]float64{2, 2}, []float64{3, 3}), "d")
	assert.Equal(t, "a", tree.Get(a))
	assert.Equal(t, "b", tree.Get(b))
	assert.Equal(t, "d", tree.Get(d))
	require.NoError(t, tree.CheckInvariants())
}

func TestDBVTStaleHandle(t *testing.T) {
	tree := NewDBVT[bounding.AABB, string]()
	tree.Insert(box([]float64{0, 0}, []float64{1, 1}), "a")
	tree.Insert(box([]float64{5, 5}, []float64{6, 6}), "b")
	c := tree.Insert(box([]float64{-3, 2}, []float64{-2, 3}), "c")

	tree.Remove(c)
	d := tree.Insert(box([]float64{2, 2}, []float64{3, 3}), "d")
	require.Equal(t, c.id, d.id, "the freed slot is reused")
	require.NotEqual(t, c, d)

	assert.Panics(t, func() { tree.Remove(c) })
	assert.Panics(t, func() { tree.Update(c, box([]float64{0, 0}, []float64{1, 1})) })
	assert.Panics(t, func() { tree.Get(c) })

	assert.Equal(t, 3, tree.Len())
	assert.Equal(t, "d", tree.Get(d))
	require.NoError(t, tree.CheckInvariants())
}

func TestDBVTViewHandle(t *testing.T) {
	tree := NewDBVT[bounding.AABB, int]()
	h := tree.Insert(box([]float64{0}, []float64{1}), 4)

	view, ok := tree.Root().(interface{ Handle() Handle })
	require.True(t, ok)
	assert.Equal(t, h, view.Handle())
	assert.Equal(t, 4, tree.Get(view.Handle()))
}

func TestDBVTUpdate(t *testing.T) {
	rng := rand.New(rand.NewPCG(13, 21))
	leaves := randomLeaves(rng, 50, 2)
	tree := NewDBVT[bounding.AABB, int]()

	handles := lo.Map(leaves, func(l Leaf[bounding.AABB, int], _ int) Handle {
		return tree.Insert(l.Volume, l.Payload)
	})

	for step := 0; step < 200; step++ {
		i := rng.IntN(len(leaves))
		leaves[i].Volume = randomBox(rng, 2, 100)
		tree.Update(handles[i], leaves[i].Volume)

		require.NoError(t, tree.CheckInvariants())
		require.Equal(t, i, tree.Get(handles[i]), "update must keep the handle")
	}
	assert.Equal(t, 50, tree.Len())

	query := box([]float64{-20, -20}, []float64{20, 20})
	collector := NewVolumeInterferencesCollector[bounding.AABB, int](query)
	tree.Visit(collector)

	expected := lo.FilterMap(leaves, func(l Leaf[bounding.AABB, int], _ int) (int, bool) {
		return l.Payload, l.Volume.Intersects(query)
	})
	assert.ElementsMatch(t, expected, collector.Hits)
}

func TestDBVTSpheres(t *testing.T) {
	rng := rand.New(rand.NewPCG(34, 55))
	tree := NewDBVT[bounding.Sphere, int]()

	var handles []Handle
	for i := 0; i < 60; i++ {
		center := geom.Vec((rng.Float64()-0.5)*50, (rng.Float64()-0.5)*50, (rng.Float64()-0.5)*50)
		handles = append(handles, tree.Insert(bounding.NewSphere(center, 0.5+rng.Float64()*3), i))
	}
	require.NoError(t, tree.CheckInvariants())

	for _, h := range handles[:30] {
		tree.Remove(h)
	}
	require.NoError(t, tree.CheckInvariants())
	assert.Equal(t, 30, tree.Len())
	assert.Len(t, tree.SelfPairs(), len(bruteForceSpherePairs(tree, handles[30:])))
}

func bruteForceSpherePairs(tree *DBVT[bounding.Sphere, int], handles []Handle) []Pair[int] {
	var pairs []Pair[int]
	for i := range handles {
		for j := i + 1; j < len(handles); j++ {
			if tree.Volume(handles[i]).Intersects(tree.Volume(handles[j])) {
				pairs = append(pairs, Pair[int]{A: tree.Get(handles[i]), B: tree.Get(handles[j])})
			}
		}
	}
	return pairs
}

// Dual-tree traversal tests

func TestSelfPairs(t *testing.T) {
	rng := rand.New(rand.NewPCG(89, 144))

	for _, dim := range []int{1, 2, 3} {
		leaves := randomLeaves(rng, 150, dim)
		expected := bruteForcePairs(leaves)
		require.NotEmpty(t, expected)

		t.Run("BVT", func(t *testing.T) {
			tree := NewBVT(leaves, MedianPartitioner[bounding.AABB, int]())
			pairs := normalized(tree.SelfPairs())

			assert.ElementsMatch(t, expected, pairs)
			assert.Len(t, lo.Uniq(pairs), len(pairs), "each pair is reported once")
		})

		t.Run("DBVT", func(t *testing.T) {
			tree := NewDBVT[bounding.AABB, int]()
			for _, leaf := range leaves {
				tree.Insert(leaf.Volume, leaf.Payload)
			}
			pairs := normalized(tree.SelfPairs())

			assert.ElementsMatch(t, expected, pairs)
			for _, p := range pairs {
				assert.NotEqual(t, p.A, p.B, "no self pairs")
			}
		})
	}

	t.Run("identical volumes are distinct leaves", func(t *testing.T) {
		v := box([]float64{0, 0}, []float64{1, 1})
		tree := NewBVT([]Leaf[bounding.AABB, int]{NewLeaf(v, 0), NewLeaf(v, 1)}, MedianPartitioner[bounding.AABB, int]())
		assert.Equal(t, []Pair[int]{{A: 0, B: 1}}, normalized(tree.SelfPairs()))
	})

	t.Run("empty DBVT", func(t *testing.T) {
		assert.Empty(t, NewDBVT[bounding.AABB, int]().SelfPairs())
	})
}

func TestCrossPairs(t *testing.T) {
	rng := rand.New(rand.NewPCG(233, 377))
	static := randomLeaves(rng, 80, 2)
	dynamic := randomLeaves(rng, 40, 2)

	bvt := NewBVT(static, MedianPartitioner[bounding.AABB, int]())
	dbvt := NewDBVT[bounding.AABB, int]()
	for _, leaf := range dynamic {
		dbvt.Insert(leaf.Volume, leaf.Payload)
	}

	var expected []Pair[int]
	for _, s := range static {
		for _, d := range dynamic {
			if s.Volume.Intersects(d.Volume) {
				expected = append(expected, Pair[int]{A: s.Payload, B: d.Payload})
			}
		}
	}

	pairs := CrossPairs[bounding.AABB, int](bvt.Root(), dbvt.Root())
	assert.ElementsMatch(t, expected, pairs)
}

// pruneAll refuses every pair.
type pruneAll struct {
	visited  int
	reported int
}

func (p *pruneAll) VisitPair(a, b Node[bounding.AABB, int]) PairAction {
	p.visited++
	return Prune
}

func (p *pruneAll) ReportPair(a, b Node[bounding.AABB, int]) {
	p.reported++
}

func TestTraversePairsPrune(t *testing.T) {
	rng := rand.New(rand.NewPCG(610, 987))
	a := NewBVT(randomLeaves(rng, 20, 3), MedianPartitioner[bounding.AABB, int]())
	b := NewBVT(randomLeaves(rng, 20, 3), MedianPartitioner[bounding.AABB, int]())

	visitor := &pruneAll{}
	TraversePairs[bounding.AABB, int](a.Root(), b.Root(), visitor)

	assert.Equal(t, 1, visitor.visited)
	assert.Zero(t, visitor.reported)
}
