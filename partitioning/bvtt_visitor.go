package partitioning

import "github.com/akmonengine/proximity/bounding"

// Node is a read-only view of a tree node, shared by BVT and DBVT so that both can be
// traversed simultaneously. Implementations must be comparable: two views are equal iff
// they denote the same node.
type Node[B any, T any] interface {
	Volume() B
	IsLeaf() bool
	// Payload is only meaningful for leaves.
	Payload() T
	// Children returns the two children of an internal node, nil for a leaf.
	Children() (Node[B, T], Node[B, T])
}

// PairAction is the decision of a PairVisitor on a pair of nodes.
type PairAction int

const (
	// Prune skips every pair below the two nodes.
	Prune PairAction = iota
	// Recurse expands one of the two nodes into its children.
	Recurse
	// Report hands the pair to ReportPair and stops there.
	Report
)

type PairVisitor[B any, T any] interface {
	VisitPair(a, b Node[B, T]) PairAction
	ReportPair(a, b Node[B, T])
}

// TraversePairs traverses two trees simultaneously, asking the visitor what to do with
// each pair of nodes met. When a pair is expanded, the node with the larger volume is
// split first; a leaf is never split.
//
// a and b may be the same node, usually the root of a single tree: only unordered pairs
// of distinct leaves are then produced, each one exactly once.
func TraversePairs[B bounding.Volume[B], T any](a, b Node[B, T], visitor PairVisitor[B, T]) {
	if a == nil || b == nil {
		return
	}

	if a == b {
		if a.IsLeaf() {
			return
		}
		left, right := a.Children()
		TraversePairs(left, left, visitor)
		TraversePairs(left, right, visitor)
		TraversePairs(right, right, visitor)
		return
	}

	switch visitor.VisitPair(a, b) {
	case Prune:
		return
	case Report:
		visitor.ReportPair(a, b)
		return
	}

	switch {
	case a.IsLeaf() && b.IsLeaf():
		return
	case b.IsLeaf() || (!a.IsLeaf() && a.Volume().Measure() >= b.Volume().Measure()):
		left, right := a.Children()
		TraversePairs(left, b, visitor)
		TraversePairs(right, b, visitor)
	default:
		left, right := b.Children()
		TraversePairs(a, left, visitor)
		TraversePairs(a, right, visitor)
	}
}

// Pair of payloads whose leaf volumes interfere.
type Pair[T any] struct {
	A T
	B T
}

// BVTTVisitor collects every pair of leaves with intersecting volumes.
type BVTTVisitor[B bounding.Volume[B], T any] struct {
	Pairs []Pair[T]
}

func (v *BVTTVisitor[B, T]) VisitPair(a, b Node[B, T]) PairAction {
	if !a.Volume().Intersects(b.Volume()) {
		return Prune
	}
	if a.IsLeaf() && b.IsLeaf() {
		return Report
	}
	return Recurse
}

func (v *BVTTVisitor[B, T]) ReportPair(a, b Node[B, T]) {
	v.Pairs = append(v.Pairs, Pair[T]{A: a.Payload(), B: b.Payload()})
}

// SelfPairs returns the pairs of distinct leaves of a tree whose volumes intersect.
func SelfPairs[B bounding.Volume[B], T any](root Node[B, T]) []Pair[T] {
	visitor := &BVTTVisitor[B, T]{}
	TraversePairs(root, root, visitor)
	return visitor.Pairs
}

// CrossPairs returns the pairs (leaf of a, leaf of b) whose volumes intersect.
func CrossPairs[B bounding.Volume[B], T any](a, b Node[B, T]) []Pair[T] {
	visitor := &BVTTVisitor[B, T]{}
	TraversePairs(a, b, visitor)
	return visitor.Pairs
}
