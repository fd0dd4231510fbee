package partitioning

import (
	"fmt"
	"sort"

	"github.com/akmonengine/proximity/bounding"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

// Leaf is an element indexed by a tree: a payload and the volume bounding it.
type Leaf[B bounding.Volume[B], T any] struct {
	Volume  B
	Payload T
}

func NewLeaf[B bounding.Volume[B], T any](volume B, payload T) Leaf[B, T] {
	return Leaf[B, T]{Volume: volume, Payload: payload}
}

// Partitioner splits a set of at least two leaves into two non-empty halves and returns
// the volume bounding the whole set. depth is the depth of the node being built, 0 for
// the root.
type Partitioner[B bounding.Volume[B], T any] func(depth int, leaves []Leaf[B, T]) (volume B, left, right []Leaf[B, T])

// MedianPartitioner splits on the axis along which the leaf volume centres are the most
// spread out, at the median centre. The left half receives ⌈k/2⌉ leaves.
func MedianPartitioner[B bounding.Volume[B], T any]() Partitioner[B, T] {
	return MedianPartitionerWithCenters(func(leaf Leaf[B, T]) *mgl64.VecN {
		return leaf.Volume.Center()
	})
}

// MedianPartitionerWithCenters works like MedianPartitioner but takes the centre of
// each leaf from the caller, e.g. the position of the object rather than the centre of
// its bounding volume.
func MedianPartitionerWithCenters[B bounding.Volume[B], T any](center func(Leaf[B, T]) *mgl64.VecN) Partitioner[B, T] {
	return func(depth int, leaves []Leaf[B, T]) (B, []Leaf[B, T], []Leaf[B, T]) {
		if len(leaves) < 2 {
			panic(fmt.Sprintf("partitioning: cannot split %d leaves", len(leaves)))
		}

		volume := mergeVolumes(leaves)

		centers := lo.Map(leaves, func(leaf Leaf[B, T], _ int) *mgl64.VecN {
			return center(leaf)
		})
		axis := widestAxis(centers)

		order := lo.Range(len(leaves))
		sort.SliceStable(order, func(i, j int) bool {
			return centers[order[i]].Get(axis) < centers[order[j]].Get(axis)
		})
		sorted := lo.Map(order, func(i int, _ int) Leaf[B, T] {
			return leaves[i]
		})

		mid := (len(sorted) + 1) / 2
		return volume, sorted[:mid], sorted[mid:]
	}
}

func mergeVolumes[B bounding.Volume[B], T any](leaves []Leaf[B, T]) B {
	return lo.Reduce(leaves[1:], func(acc B, leaf Leaf[B, T], _ int) B {
		return acc.Merged(leaf.Volume)
	}, leaves[0].Volume)
}

// widestAxis returns the axis with the greatest spread of the points. Ties go to the
// lowest axis.
func widestAxis(points []*mgl64.VecN) int {
	best, bestSpread := 0, -1.0
	for axis := 0; axis < points[0].Size(); axis++ {
		coords := lo.Map(points, func(p *mgl64.VecN, _ int) float64 {
			return p.Get(axis)
		})
		if spread := lo.Max(coords) - lo.Min(coords); spread > bestSpread {
			best, bestSpread = axis, spread
		}
	}
	return best
}
