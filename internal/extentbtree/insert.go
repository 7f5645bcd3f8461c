package extentbtree

import (
	"github.com/twojstaryzdomu/asfs/internal/types"
)

// insertBNode inserts key into a container known to have room, shifting
// trailing entries up by one slot, and returns the index the new
// (key-only; other fields zero) node was written at. Mirrors
// insertbnode.
func insertBNode(body []byte, nodesize, count int, key uint32) int {
	i := count - 1
	for {
		if i < 0 || key > keyAtIdx(body, nodesize, i) {
			i++
			putKeyAtIdx(body, nodesize, i, key)
			return i
		}
		copy(nodeSlice(body, nodesize, i+1), nodeSlice(body, nodesize, i))
		i--
	}
}

// getParentBTreeContainer finds the internal container whose child
// pointer leads to child's block, by descending from the root using
// child's first key as the routing key. Returns (nil, nil) if child is
// the tree root. Mirrors getparentbtreecontainer.
func (t *Tree) getParentBTreeContainer(child *container) (*container, error) {
	childBlock := child.block()
	if childBlock == t.root {
		return nil, nil
	}
	var childKey uint32
	if child.count() > 0 {
		childKey = keyAtIdx(child.body(), child.nodesize(), 0)
	}

	block := t.root
	for {
		c, err := t.pinContainer(block)
		if err != nil {
			return nil, err
		}
		if c.hdr.IsLeaf {
			// A valid child always has an internal ancestor; landing on
			// a leaf while searching for one means the tree is corrupt,
			// but mirror the original's tolerant "give up" behaviour by
			// releasing and returning (nil, nil), the same "no parent"
			// result the root gets; callers handle it as the root case,
			// except splitBTreeContainer's re-lookup after a recursive
			// split, which reports an I/O error (searchForBNode below
			// would be called on count==0 only for an empty root, which can't have a
			// non-root child anyway).
			_ = c.release()
			return nil, nil
		}
		for i := 0; i < c.count(); i++ {
			if types.Block(be32(nodeSlice(c.body(), c.nodesize(), i)[4:])) == childBlock {
				return c, nil
			}
		}
		idx := searchForBNode(c.body(), c.nodesize(), c.count(), childKey)
		next := types.Block(be32(nodeSlice(c.body(), c.nodesize(), idx)[4:]))
		if err := c.release(); err != nil {
			return nil, err
		}
		block = next
	}
}

// CreateExtentBNode finds or creates the leaf slot for key, splitting
// containers as needed, and returns the owning block and slot index.
// Callers write the remaining ExtentBNode fields via SetExtentAt.
// Mirrors createextentbnode.
func (t *Tree) CreateExtentBNode(key uint32) (types.Block, int, error) {
	for {
		loc, err := t.findBNode(key)
		if err != nil {
			return 0, 0, err
		}
		c := loc.leaf
		branches := t.branches(c.nodesize())

		if c.count() < branches {
			idx := insertBNode(c.body(), c.nodesize(), c.count(), key)
			c.hdr.NodeCount++
			c.storeHeader()
			block := c.block()
			return block, idx, c.release()
		}

		if err := t.splitBTreeContainer(c); err != nil {
			return 0, 0, err
		}
		// Loop and retry the insert now that there's room somewhere.
	}
}

// SetExtentAt writes a leaf ExtentBNode record into block at index.
func (t *Tree) SetExtentAt(block types.Block, index int, node types.ExtentBNode) error {
	c, err := t.pinContainer(block)
	if err != nil {
		return err
	}
	types.EncodeExtentBNode(nodeSlice(c.body(), c.nodesize(), index), node)
	c.buf.MarkDirty()
	return c.release()
}

// GetExtentAt reads a leaf ExtentBNode record from block at index.
func (t *Tree) GetExtentAt(block types.Block, index int) (types.ExtentBNode, error) {
	c, err := t.pinContainer(block)
	if err != nil {
		return types.ExtentBNode{}, err
	}
	defer c.release()
	return types.DecodeExtentBNode(nodeSlice(c.body(), c.nodesize(), index)), nil
}
