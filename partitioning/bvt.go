// Package partitioning provides bounding volume trees to index convex objects.
//
// Three structures share the same bounding.Volume contract:
//   - BVT, a static tree built once by recursive median partitioning
//   - DBVT, a dynamic tree supporting incremental insertion, removal and updates
//   - TraversePairs, a simultaneous traversal of two trees (or one tree with itself)
//     that enumerates the pairs of leaves whose volumes interfere
//
// Trees never inspect payloads: they only index the volumes given alongside them.
package partitioning

import (
	"github.com/akmonengine/proximity/bounding"
)

// BVTNode is a node of a static BVT. Leaves carry a payload, internal nodes exactly two
// children. A node is never modified once the tree is built.
type BVTNode[B bounding.Volume[B], T any] struct {
	volume  B
	payload T
	left    *BVTNode[B, T]
	right   *BVTNode[B, T]
}

var _ Node[bounding.AABB, int] = (*BVTNode[bounding.AABB, int])(nil)

func (n *BVTNode[B, T]) Volume() B {
	return n.volume
}

func (n *BVTNode[B, T]) IsLeaf() bool {
	return n.left == nil
}

// Payload returns the payload of a leaf, or the zero value for an internal node.
func (n *BVTNode[B, T]) Payload() T {
	return n.payload
}

func (n *BVTNode[B, T]) Children() (Node[B, T], Node[B, T]) {
	if n.IsLeaf() {
		return nil, nil
	}
	return n.left, n.right
}

// BVT is a static bounding volume tree.
type BVT[B bounding.Volume[B], T any] struct {
	root *BVTNode[B, T]
	size int
}

// NewBVT builds a tree over leaves, splitting them recursively with partitioner until
// every node holds a single leaf. The leaves slice is not modified.
//
// An empty leaf set is a programming error and panics.
func NewBVT[B bounding.Volume[B], T any](leaves []Leaf[B, T], partitioner Partitioner[B, T]) *BVT[B, T] {
	if len(leaves) == 0 {
		panic("partitioning: cannot build a BVT without leaves")
	}

	owned := make([]Leaf[B, T], len(leaves))
	copy(owned, leaves)

	return &BVT[B, T]{
		root: build(0, owned, partitioner),
		size: len(leaves),
	}
}

func build[B bounding.Volume[B], T any](depth int, leaves []Leaf[B, T], partitioner Partitioner[B, T]) *BVTNode[B, T] {
	if len(leaves) == 1 {
		return &BVTNode[B, T]{volume: leaves[0].Volume, payload: leaves[0].Payload}
	}

	volume, left, right := partitioner(depth, leaves)
	if len(left) == 0 || len(right) == 0 {
		panic("partitioning: partitioner returned an empty half")
	}

	return &BVTNode[B, T]{
		volume: volume,
		left:   build(depth+1, left, partitioner),
		right:  build(depth+1, right, partitioner),
	}
}

func (t *BVT[B, T]) Root() *BVTNode[B, T] {
	return t.root
}

// Len returns the number of leaves.
func (t *BVT[B, T]) Len() int {
	return t.size
}

// Depth returns the number of nodes on the longest root-to-leaf path.
func (t *BVT[B, T]) Depth() int {
	return depthOf(t.root)
}

func depthOf[B bounding.Volume[B], T any](n *BVTNode[B, T]) int {
	if n.IsLeaf() {
		return 1
	}
	return 1 + max(depthOf(n.left), depthOf(n.right))
}

// Leaves returns every leaf, left to right.
func (t *BVT[B, T]) Leaves() []Leaf[B, T] {
	leaves := make([]Leaf[B, T], 0, t.size)
	var collect func(n *BVTNode[B, T])
	collect = func(n *BVTNode[B, T]) {
		if n.IsLeaf() {
			leaves = append(leaves, Leaf[B, T]{Volume: n.volume, Payload: n.payload})
			return
		}
		collect(n.left)
		collect(n.right)
	}
	collect(t.root)
	return leaves
}

// Visit walks the tree depth-first. Subtrees whose internal node is answered with Stop
// are skipped; every leaf reached is handed to VisitLeaf.
func (t *BVT[B, T]) Visit(visitor Visitor[B, T]) {
	visitNode(t.root, visitor)
}

func visitNode[B bounding.Volume[B], T any](n *BVTNode[B, T], visitor Visitor[B, T]) {
	if n.IsLeaf() {
		visitor.VisitLeaf(n.volume, n.payload)
		return
	}
	if visitor.VisitInternal(n.volume) == Stop {
		return
	}
	visitNode(n.left, visitor)
	visitNode(n.right, visitor)
}

// SelfPairs returns the pairs of distinct leaves whose volumes intersect.
func (t *BVT[B, T]) SelfPairs() []Pair[T] {
	return SelfPairs[B, T](t.root)
}
