package partitioning

import (
	"fmt"

	"github.com/akmonengine/proximity/bounding"
	"go.uber.org/multierr"
)

const nullNode = -1

// Handle identifies a leaf of a DBVT. It stays valid until the leaf is removed, across
// any number of insertions, removals of other leaves and updates.
//
// Node slots are recycled, so a handle also records the generation of its slot: once the
// leaf is removed the handle is rejected, even after the slot is reused. The zero Handle
// is never valid.
type Handle struct {
	id         int
	generation uint32
}

type dbvtNode[B bounding.Volume[B], T any] struct {
	volume  B
	payload T

	parent int
	next   int // free list link
	left   int
	right  int

	// leaf = 0, free node = -1
	height int
	// bumped every time the slot is freed
	generation uint32
}

func (n *dbvtNode[B, T]) isLeaf() bool {
	return n.left == nullNode
}

// DBVT is a dynamic bounding volume tree.
//
// Nodes live in an arena and refer to each other by index, freed slots being recycled
// through a free list. Leaves are inserted greedily where they enlarge the tree the
// least; the tree is never rebalanced globally, so heavily skewed insertion orders
// degrade query time but not correctness.
type DBVT[B bounding.Volume[B], T any] struct {
	nodes    []dbvtNode[B, T]
	root     int
	freeList int
	leaves   int
}

func NewDBVT[B bounding.Volume[B], T any]() *DBVT[B, T] {
	return &DBVT[B, T]{root: nullNode, freeList: nullNode}
}

func (t *DBVT[B, T]) allocateNode() int {
	if t.freeList == nullNode {
		t.nodes = append(t.nodes, dbvtNode[B, T]{next: nullNode, generation: 1})
		t.freeList = len(t.nodes) - 1
	}

	// Peel a node off the free list.
	id := t.freeList
	t.freeList = t.nodes[id].next
	t.nodes[id] = dbvtNode[B, T]{
		parent:     nullNode,
		next:       nullNode,
		left:       nullNode,
		right:      nullNode,
		generation: t.nodes[id].generation,
	}
	return id
}

func (t *DBVT[B, T]) freeNode(id int) {
	t.nodes[id] = dbvtNode[B, T]{
		parent:     nullNode,
		next:       t.freeList,
		left:       nullNode,
		right:      nullNode,
		height:     -1,
		generation: t.nodes[id].generation + 1,
	}
	t.freeList = id
}

func (t *DBVT[B, T]) handle(id int) Handle {
	return Handle{id: id, generation: t.nodes[id].generation}
}

func (t *DBVT[B, T]) checkHandle(h Handle) {
	if h.id < 0 || h.id >= len(t.nodes) || t.nodes[h.id].height != 0 || t.nodes[h.id].generation != h.generation {
		panic(fmt.Sprintf("partitioning: invalid or stale DBVT handle %d (generation %d)", h.id, h.generation))
	}
}

// Insert adds a leaf and returns its handle.
func (t *DBVT[B, T]) Insert(volume B, payload T) Handle {
	id := t.allocateNode()
	t.nodes[id].volume = volume
	t.nodes[id].payload = payload
	t.insertLeaf(id)
	t.leaves++
	return t.handle(id)
}

// Remove detaches a leaf and returns its payload. Removing an unknown or already removed
// handle panics.
func (t *DBVT[B, T]) Remove(h Handle) T {
	t.checkHandle(h)

	id := h.id
	payload := t.nodes[id].payload
	t.removeLeaf(id)
	t.freeNode(id)
	t.leaves--
	return payload
}

// Update moves a leaf to a new volume. The handle stays the same.
func (t *DBVT[B, T]) Update(h Handle, volume B) {
	t.checkHandle(h)

	id := h.id
	t.removeLeaf(id)
	t.nodes[id].volume = volume
	t.insertLeaf(id)
}

func (t *DBVT[B, T]) Get(h Handle) T {
	t.checkHandle(h)
	return t.nodes[h.id].payload
}

func (t *DBVT[B, T]) Volume(h Handle) B {
	t.checkHandle(h)
	return t.nodes[h.id].volume
}

// Len returns the number of leaves.
func (t *DBVT[B, T]) Len() int {
	return t.leaves
}

func (t *DBVT[B, T]) IsEmpty() bool {
	return t.root == nullNode
}

// Height returns the number of edges on the longest root-to-leaf path, -1 for an empty tree.
func (t *DBVT[B, T]) Height() int {
	if t.root == nullNode {
		return -1
	}
	return t.nodes[t.root].height
}

// Root returns a read-only view of the root, nil when the tree is empty. Views are only
// valid until the next modification of the tree.
func (t *DBVT[B, T]) Root() Node[B, T] {
	if t.root == nullNode {
		return nil
	}
	return dbvtNodeView[B, T]{tree: t, id: t.root}
}

func (t *DBVT[B, T]) insertLeaf(leaf int) {
	if t.root == nullNode {
		t.root = leaf
		t.nodes[leaf].parent = nullNode
		return
	}

	// Find the best sibling: descend toward the child whose volume grows the least.
	leafVolume := t.nodes[leaf].volume
	index := t.root
	for !t.nodes[index].isLeaf() {
		left := t.nodes[index].left
		right := t.nodes[index].right

		leftGrowth := t.nodes[left].volume.Merged(leafVolume).Measure() - t.nodes[left].volume.Measure()
		rightGrowth := t.nodes[right].volume.Merged(leafVolume).Measure() - t.nodes[right].volume.Measure()

		if leftGrowth <= rightGrowth {
			index = left
		} else {
			index = right
		}
	}

	sibling := index

	// Create a new parent.
	oldParent := t.nodes[sibling].parent
	newParent := t.allocateNode()
	t.nodes[newParent].parent = oldParent
	t.nodes[newParent].left = sibling
	t.nodes[newParent].right = leaf
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	if oldParent != nullNode {
		// The sibling was not the root.
		if t.nodes[oldParent].left == sibling {
			t.nodes[oldParent].left = newParent
		} else {
			t.nodes[oldParent].right = newParent
		}
	} else {
		// The sibling was the root.
		t.root = newParent
	}

	t.refit(newParent)
}

func (t *DBVT[B, T]) removeLeaf(leaf int) {
	if leaf == t.root {
		t.root = nullNode
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent
	sibling := t.nodes[parent].left
	if sibling == leaf {
		sibling = t.nodes[parent].right
	}

	if grandParent != nullNode {
		// Destroy parent and connect sibling to grandParent.
		if t.nodes[grandParent].left == parent {
			t.nodes[grandParent].left = sibling
		} else {
			t.nodes[grandParent].right = sibling
		}
		t.nodes[sibling].parent = grandParent
		t.freeNode(parent)

		t.refit(grandParent)
	} else {
		t.root = sibling
		t.nodes[sibling].parent = nullNode
		t.freeNode(parent)
	}

	t.nodes[leaf].parent = nullNode
}

// refit walks back up the tree fixing heights and volumes.
func (t *DBVT[B, T]) refit(index int) {
	for index != nullNode {
		left := t.nodes[index].left
		right := t.nodes[index].right

		t.nodes[index].height = 1 + max(t.nodes[left].height, t.nodes[right].height)
		t.nodes[index].volume = t.nodes[left].volume.Merged(t.nodes[right].volume)

		index = t.nodes[index].parent
	}
}

// Visit walks the tree depth-first with the same semantics as BVT.Visit.
func (t *DBVT[B, T]) Visit(visitor Visitor[B, T]) {
	if t.root == nullNode {
		return
	}

	stack := []int{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := &t.nodes[id]
		if node.isLeaf() {
			visitor.VisitLeaf(node.volume, node.payload)
			continue
		}
		if visitor.VisitInternal(node.volume) == Continue {
			stack = append(stack, node.right, node.left)
		}
	}
}

// CheckInvariants validates the structure of the tree: parent links, heights, leaf
// count and tight volumes on every internal node. It returns every violation found.
func (t *DBVT[B, T]) CheckInvariants() error {
	if t.root == nullNode {
		if t.leaves != 0 {
			return fmt.Errorf("empty tree reports %d leaves", t.leaves)
		}
		return nil
	}

	var err error
	if t.nodes[t.root].parent != nullNode {
		err = multierr.Append(err, fmt.Errorf("root %d has parent %d", t.root, t.nodes[t.root].parent))
	}

	leaves := 0
	var check func(id int)
	check = func(id int) {
		node := &t.nodes[id]
		if node.height < 0 {
			err = multierr.Append(err, fmt.Errorf("node %d is reachable but free", id))
			return
		}
		if node.isLeaf() {
			leaves++
			if node.height != 0 || node.right != nullNode {
				err = multierr.Append(err, fmt.Errorf("leaf %d is malformed", id))
			}
			return
		}

		left, right := node.left, node.right
		for _, child := range []int{left, right} {
			if t.nodes[child].parent != id {
				err = multierr.Append(err, fmt.Errorf("node %d has parent %d, expected %d", child, t.nodes[child].parent, id))
			}
		}
		if node.height != 1+max(t.nodes[left].height, t.nodes[right].height) {
			err = multierr.Append(err, fmt.Errorf("node %d has height %d", id, node.height))
		}

		tight := t.nodes[left].volume.Merged(t.nodes[right].volume)
		if !node.volume.Contains(tight) || !tight.Contains(node.volume) {
			err = multierr.Append(err, fmt.Errorf("node %d volume is not the union of its children", id))
		}

		check(left)
		check(right)
	}
	check(t.root)

	if leaves != t.leaves {
		err = multierr.Append(err, fmt.Errorf("found %d leaves, tree reports %d", leaves, t.leaves))
	}
	return err
}

// dbvtNodeView exposes a DBVT node through the Node interface.
type dbvtNodeView[B bounding.Volume[B], T any] struct {
	tree *DBVT[B, T]
	id   int
}

func (v dbvtNodeView[B, T]) Volume() B {
	return v.tree.nodes[v.id].volume
}

func (v dbvtNodeView[B, T]) IsLeaf() bool {
	return v.tree.nodes[v.id].isLeaf()
}

func (v dbvtNodeView[B, T]) Payload() T {
	return v.tree.nodes[v.id].payload
}

func (v dbvtNodeView[B, T]) Children() (Node[B, T], Node[B, T]) {
	node := &v.tree.nodes[v.id]
	if node.isLeaf() {
		return nil, nil
	}
	return dbvtNodeView[B, T]{tree: v.tree, id: node.left}, dbvtNodeView[B, T]{tree: v.tree, id: node.right}
}

// Handle returns the handle of a leaf view.
func (v dbvtNodeView[B, T]) Handle() Handle {
	return v.tree.handle(v.id)
}

// SelfPairs returns the pairs of distinct leaves whose volumes intersect.
func (t *DBVT[B, T]) SelfPairs() []Pair[T] {
	return SelfPairs(t.Root())
}
