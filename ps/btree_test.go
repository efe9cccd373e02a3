package ps

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/nickyhof/MandukyaDB/core"
)

// checkTree verifies sorted leaves, uniform leaf depth, separator bounds and
// that the leaf chain visits every key once in ascending order.
func checkTree(t *testing.T, tree *BTree) {
	t.Helper()

	leafDepth := -1
	var walk func(n *node, depth int, lo, hi uint64, hasHi bool)
	walk = func(n *node, depth int, lo, hi uint64, hasHi bool) {
		if !slices.IsSorted(n.keys) {
			t.Fatalf("Unsorted keys at depth %d: %v", depth, n.keys)
		}
		for _, k := range n.keys {
			if k < lo || (hasHi && k >= hi) {
				t.Fatalf("Key %d outside [%d, %d) at depth %d", k, lo, hi, depth)
			}
		}
		if n.leaf {
			if len(n.keys) != len(n.rows) {
				t.Fatalf("Leaf has %d keys and %d rows", len(n.keys), len(n.rows))
			}
			if len(n.keys) > tree.fanout {
				t.Fatalf("Leaf overflow: %d > %d", len(n.keys), tree.fanout)
			}
			if leafDepth == -1 {
				leafDepth = depth
			} else if leafDepth != depth {
				t.Fatalf("Leaves at depths %d and %d", leafDepth, depth)
			}
			return
		}
		if len(n.children) != len(n.keys)+1 {
			t.Fatalf("Internal node has %d keys and %d children", len(n.keys), len(n.children))
		}
		if len(n.children) > tree.fanout {
			t.Fatalf("Internal overflow: %d > %d", len(n.children), tree.fanout)
		}
		for i, child := range n.children {
			childLo, childHi, childHasHi := lo, hi, hasHi
			if i > 0 {
				childLo = n.keys[i-1]
			}
			if i < len(n.keys) {
				childHi, childHasHi = n.keys[i], true
			}
			walk(child, depth+1, childLo, childHi, childHasHi)
		}
	}
	walk(tree.root, 1, 0, 0, false)

	if leafDepth != tree.Height() {
		t.Fatalf("Leaf depth %d differs from height %d", leafDepth, tree.Height())
	}

	keys := tree.Keys()
	if len(keys) != tree.Len() {
		t.Fatalf("Leaf chain has %d keys, tree reports %d", len(keys), tree.Len())
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Fatalf("Leaf chain not strictly ascending at %d: %v", i, keys[i-1:i+1])
		}
	}
}

func TestBTreeSequentialInsert(t *testing.T) {
	for _, fanout := range []int{3, 4, 5, 16, 64} {
		t.Run(fmt.Sprintf("fanout %d", fanout), func(t *testing.T) {
			tree := NewBTree(fanout)
			for i := uint64(1); i <= 1000; i++ {
				tree.Insert(i, core.Row{core.Integer(int64(i))})
			}
			checkTree(t, tree)

			if tree.Len() != 1000 {
				t.Errorf("Expected 1000 entries, got %d", tree.Len())
			}
			if tree.Height() < 2 {
				t.Errorf("Expected tree to grow, height %d", tree.Height())
			}

			want := uint64(1)
			for key, row := range tree.All() {
				if key != want || row[0].Int() != int64(want) {
					t.Fatalf("Expected key %d, got %d (%v)", want, key, row)
				}
				want++
			}
		})
	}
}

func TestBTreeRandomInsertAndDelete(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	tree := NewBTree(4)
	present := map[uint64]bool{}

	for i := 0; i < 2000; i++ {
		key := rng.Uint64N(500)
		if rng.IntN(3) == 0 {
			if tree.Delete(key) != present[key] {
				t.Fatalf("Delete(%d) disagreed with model", key)
			}
			delete(present, key)
		} else {
			replaced := tree.Insert(key, core.Row{core.Integer(int64(key))})
			if replaced != present[key] {
				t.Fatalf("Insert(%d) replaced=%v, model says %v", key, replaced, present[key])
			}
			present[key] = true
		}
	}
	checkTree(t, tree)

	var want []uint64
	for key := range present {
		want = append(want, key)
	}
	slices.Sort(want)
	if got := tree.Keys(); !slices.Equal(got, want) {
		t.Errorf("Keys mismatch: got %d keys, want %d", len(got), len(want))
	}
	for _, key := range want {
		if row, ok := tree.Get(key); !ok || row[0].Int() != int64(key) {
			t.Errorf("Get(%d) = %v, %v", key, row, ok)
		}
	}
}

func TestBTreeDeleteLeavesEmptyLeaves(t *testing.T) {
	tree := NewBTree(3)
	for i := uint64(1); i <= 30; i++ {
		tree.Insert(i, core.Row{core.Integer(int64(i))})
	}
	height := tree.Height()

	for i := uint64(1); i <= 20; i++ {
		if !tree.Delete(i) {
			t.Fatalf("Delete(%d) returned false", i)
		}
	}
	if tree.Delete(5) {
		t.Error("Deleting a missing key returned true")
	}
	checkTree(t, tree)

	if tree.Height() != height {
		t.Errorf("Delete changed height from %d to %d", height, tree.Height())
	}
	if got := tree.Keys(); len(got) != 10 || got[0] != 21 || got[9] != 30 {
		t.Errorf("Unexpected remaining keys %v", got)
	}

	tree.Insert(31, core.Row{core.Integer(31)})
	checkTree(t, tree)
}

func TestBTreeEmptiedTreeCollapses(t *testing.T) {
	tree := NewBTree(3)
	for i := uint64(1); i <= 10; i++ {
		tree.Insert(i, nil)
	}
	for i := uint64(1); i <= 10; i++ {
		tree.Delete(i)
	}
	if tree.Len() != 0 || tree.Height() != 1 {
		t.Errorf("Expected empty single-leaf tree, got len %d height %d", tree.Len(), tree.Height())
	}
	for range tree.All() {
		t.Fatal("Empty tree yielded a row")
	}
}

func TestBTreeAllStopsEarly(t *testing.T) {
	tree := NewBTree(3)
	for i := uint64(1); i <= 10; i++ {
		tree.Insert(i, nil)
	}
	count := 0
	for range tree.All() {
		count++
		if count == 4 {
			break
		}
	}
	if count != 4 {
		t.Errorf("Expected to stop after 4, got %d", count)
	}
}

func TestBTreeMinimumFanout(t *testing.T) {
	tree := NewBTree(1)
	if tree.fanout != MinFanout {
		t.Errorf("Expected fanout clamped to %d, got %d", MinFanout, tree.fanout)
	}
}

func BenchmarkBTreeInsert(b *testing.B) {
	tree := NewBTree(DefaultFanout)
	row := core.Row{core.Integer(1), core.Text("Arjuna")}
	var key uint64
	for b.Loop() {
		key++
		tree.Insert(key, row)
	}
}
