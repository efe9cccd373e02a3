package ps

import (
	"iter"
	"slices"
	"sort"

	"github.com/nickyhof/MandukyaDB/core"
)

const (
	DefaultFanout = 64
	MinFanout     = 3
)

// node is either a leaf holding (key, row) pairs linked to its right
// sibling, or an internal node where keys[i] is the smallest key reachable
// through children[i+1].
type node struct {
	leaf     bool
	keys     []uint64
	rows     []core.Row
	children []*node
	next     *node
}

// BTree is an in-memory B+ tree mapping row ids to rows. Leaves hold at most
// fanout entries and internal nodes at most fanout children. Deletes do not
// merge under-full leaves; empty leaves stay linked and are skipped by scans
// until the tree is emptied, at which point it collapses to a single leaf.
type BTree struct {
	root   *node
	fanout int
	size   int
	height int
}

func NewBTree(fanout int) *BTree {
	if fanout < MinFanout {
		fanout = MinFanout
	}
	return &BTree{
		root:   &node{leaf: true},
		fanout: fanout,
		height: 1,
	}
}

func (t *BTree) Len() int {
	return t.size
}

// Height is the number of levels from the root to any leaf.
func (t *BTree) Height() int {
	return t.height
}

// Insert stores row under key, replacing any existing row. It reports
// whether a row was replaced.
func (t *BTree) Insert(key uint64, row core.Row) bool {
	midKey, right, replaced := t.insertNode(t.root, key, row)
	if right != nil {
		t.root = &node{
			keys:     []uint64{midKey},
			children: []*node{t.root, right},
		}
		t.height++
	}
	if !replaced {
		t.size++
	}
	return replaced
}

func (t *BTree) insertNode(n *node, key uint64, row core.Row) (uint64, *node, bool) {
	if n.leaf {
		idx := sort.Search(len(n.keys), func(i int) bool { return n.keys[i] >= key })
		if idx < len(n.keys) && n.keys[idx] == key {
			n.rows[idx] = row
			return 0, nil, true
		}
		n.keys = slices.Insert(n.keys, idx, key)
		n.rows = slices.Insert(n.rows, idx, row)

		if len(n.keys) <= t.fanout {
			return 0, nil, false
		}
		midKey, right := t.splitLeaf(n)
		return midKey, right, false
	}

	idx := childIndex(n, key)
	midKey, right, replaced := t.insertNode(n.children[idx], key, row)
	if right == nil {
		return 0, nil, replaced
	}

	n.keys = slices.Insert(n.keys, idx, midKey)
	n.children = slices.Insert(n.children, idx+1, right)
	if len(n.children) <= t.fanout {
		return 0, nil, replaced
	}
	midKey, right = t.splitInternal(n)
	return midKey, right, replaced
}

func (t *BTree) splitLeaf(n *node) (uint64, *node) {
	mid := len(n.keys) / 2
	right := &node{
		leaf: true,
		keys: slices.Clone(n.keys[mid:]),
		rows: slices.Clone(n.rows[mid:]),
		next: n.next,
	}
	clear(n.rows[mid:])
	n.keys = n.keys[:mid]
	n.rows = n.rows[:mid]
	n.next = right
	return right.keys[0], right
}

func (t *BTree) splitInternal(n *node) (uint64, *node) {
	mid := len(n.keys) / 2
	midKey := n.keys[mid]
	right := &node{
		keys:     slices.Clone(n.keys[mid+1:]),
		children: slices.Clone(n.children[mid+1:]),
	}
	clear(n.children[mid+1:])
	n.keys = n.keys[:mid]
	n.children = n.children[:mid+1]
	return midKey, right
}

// childIndex picks the child whose key range contains key.
func childIndex(n *node, key uint64) int {
	return sort.Search(len(n.keys), func(i int) bool { return n.keys[i] > key })
}

func (t *BTree) findLeaf(key uint64) *node {
	n := t.root
	for !n.leaf {
		n = n.children[childIndex(n, key)]
	}
	return n
}

func (t *BTree) Get(key uint64) (core.Row, bool) {
	n := t.findLeaf(key)
	idx := sort.Search(len(n.keys), func(i int) bool { return n.keys[i] >= key })
	if idx < len(n.keys) && n.keys[idx] == key {
		return n.rows[idx], true
	}
	return nil, false
}

// Delete removes key and reports whether it was present.
func (t *BTree) Delete(key uint64) bool {
	n := t.findLeaf(key)
	idx := sort.Search(len(n.keys), func(i int) bool { return n.keys[i] >= key })
	if idx == len(n.keys) || n.keys[idx] != key {
		return false
	}
	n.keys = slices.Delete(n.keys, idx, idx+1)
	n.rows = slices.Delete(n.rows, idx, idx+1)
	t.size--

	if t.size == 0 {
		t.root = &node{leaf: true}
		t.height = 1
	}
	return true
}

// All yields every (key, row) pair in ascending key order by walking the
// leaf chain. The tree must not be modified during iteration.
func (t *BTree) All() iter.Seq2[uint64, core.Row] {
	return func(yield func(uint64, core.Row) bool) {
		n := t.root
		for !n.leaf {
			n = n.children[0]
		}
		for ; n != nil; n = n.next {
			for i, key := range n.keys {
				if !yield(key, n.rows[i]) {
					return
				}
			}
		}
	}
}

// Keys returns every key in ascending order.
func (t *BTree) Keys() []uint64 {
	keys := make([]uint64, 0, t.size)
	for key := range t.All() {
		keys = append(keys, key)
	}
	return keys
}
