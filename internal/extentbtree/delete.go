package extentbtree

import (
	"fmt"

	"github.com/twojstaryzdomu/asfs/internal/asfserr"
	"github.com/twojstaryzdomu/asfs/internal/types"
)

func removeBNodeAt(body []byte, nodesize, count, idx int) {
	for i := idx; i < count-1; i++ {
		copy(nodeSlice(body, nodesize, i), nodeSlice(body, nodesize, i+1))
	}
}

// DeleteBNode removes the leaf entry with the given key, rebalancing the
// container chain on underflow. Mirrors asfs_deletebnode.
func (t *Tree) DeleteBNode(key uint32) error {
	loc, err := t.findBNode(key)
	if err != nil {
		return err
	}
	c := loc.leaf
	if loc.index < 0 || keyAtIdx(c.body(), c.nodesize(), loc.index) != key {
		_ = c.release()
		return asfserr.New(asfserr.NotFound, "extentbtree.DeleteBNode", fmt.Errorf("no extent with key %d", key))
	}

	removeBNodeAt(c.body(), c.nodesize(), c.count(), loc.index)
	c.hdr.NodeCount--
	c.storeHeader()
	return t.rebalance(c)
}

// rebalance restores minimum occupancy for an underfull container by
// stealing from or merging with a neighbour, always preferring the next
// sibling and falling back to the previous one — a symmetric fix for
// removebnode's previous-sibling branch, which in the original never
// fires because its guard compares equal to zero where it was almost
// certainly meant to compare not-equal. Always consumes c.
func (t *Tree) rebalance(c *container) error {
	parent, err := t.getParentBTreeContainer(c)
	if err != nil {
		_ = c.release()
		return err
	}
	if parent == nil {
		// c is the tree root; underflow there is not an error.
		return c.release()
	}

	minimum := t.branches(c.nodesize()) / 2
	if c.count() >= minimum {
		if err := c.release(); err != nil {
			_ = parent.release()
			return err
		}
		return parent.release()
	}

	childIdx := -1
	for i := 0; i < parent.count(); i++ {
		if types.Block(be32(nodeSlice(parent.body(), parent.nodesize(), i)[4:])) == c.block() {
			childIdx = i
			break
		}
	}
	if childIdx < 0 {
		_ = c.release()
		_ = parent.release()
		return asfserr.New(asfserr.IO, "extentbtree.rebalance", fmt.Errorf("block %d missing from its parent", c.block()))
	}

	if childIdx+1 < parent.count() {
		siblingBlock := types.Block(be32(nodeSlice(parent.body(), parent.nodesize(), childIdx+1)[4:]))
		sibling, err := t.pinContainer(siblingBlock)
		if err != nil {
			_ = c.release()
			_ = parent.release()
			return err
		}
		return t.mergeOrSteal(c, sibling, parent, childIdx)
	}
	if childIdx > 0 {
		siblingBlock := types.Block(be32(nodeSlice(parent.body(), parent.nodesize(), childIdx-1)[4:]))
		sibling, err := t.pinContainer(siblingBlock)
		if err != nil {
			_ = c.release()
			_ = parent.release()
			return err
		}
		return t.mergeOrSteal(sibling, c, parent, childIdx-1)
	}

	// Sole child of its parent: nothing to borrow from or merge with
	// here; a later merge one level up may collapse this root.
	if err := c.release(); err != nil {
		_ = parent.release()
		return err
	}
	return parent.release()
}

// mergeOrSteal resolves an underflow between adjacent siblings left and
// right (left's routing entry sits at parent index leftIdx, right's at
// leftIdx+1): merges them into left when they jointly fit one
// container, otherwise steals one entry from whichever is richer.
// Always consumes left, right and parent.
func (t *Tree) mergeOrSteal(left, right, parent *container, leftIdx int) error {
	branches := t.branches(left.nodesize())
	combined := left.count() + right.count()

	if combined <= branches {
		copy(nodeRange(left.body(), left.nodesize(), left.count(), right.count()),
			nodeRange(right.body(), right.nodesize(), 0, right.count()))
		left.hdr.NodeCount = uint16(combined)
		left.storeHeader()

		rightBlock := right.block()
		if err := right.release(); err != nil {
			_ = left.release()
			_ = parent.release()
			return err
		}

		removeBNodeAt(parent.body(), parent.nodesize(), parent.count(), leftIdx+1)
		parent.hdr.NodeCount--
		parent.storeHeader()

		if err := left.release(); err != nil {
			_ = parent.release()
			return err
		}
		if err := t.admin.Free(rightBlock); err != nil {
			_ = parent.release()
			return err
		}
		return t.rebalanceAfterMerge(parent)
	}

	if left.count() < right.count() {
		moving := make([]byte, right.nodesize())
		copy(moving, nodeSlice(right.body(), right.nodesize(), 0))
		copy(nodeSlice(left.body(), left.nodesize(), left.count()), moving)
		removeBNodeAt(right.body(), right.nodesize(), right.count(), 0)
		left.hdr.NodeCount++
		right.hdr.NodeCount--
	} else {
		moving := make([]byte, left.nodesize())
		copy(moving, nodeSlice(left.body(), left.nodesize(), left.count()-1))
		for i := right.count(); i > 0; i-- {
			copy(nodeSlice(right.body(), right.nodesize(), i), nodeSlice(right.body(), right.nodesize(), i-1))
		}
		copy(nodeSlice(right.body(), right.nodesize(), 0), moving)
		left.hdr.NodeCount--
		right.hdr.NodeCount++
	}
	left.storeHeader()
	right.storeHeader()

	newKey := keyAtIdx(right.body(), right.nodesize(), 0)
	putKeyAtIdx(parent.body(), parent.nodesize(), leftIdx+1, newKey)
	parent.buf.MarkDirty()

	if err := left.release(); err != nil {
		_ = right.release()
		_ = parent.release()
		return err
	}
	if err := right.release(); err != nil {
		_ = parent.release()
		return err
	}
	return parent.release()
}

// rebalanceAfterMerge collapses the root when a merge has left it with
// a single child, and otherwise propagates rebalancing up the tree when
// the merge itself left parent underfull. Always consumes parent.
func (t *Tree) rebalanceAfterMerge(parent *container) error {
	if parent.block() == t.root {
		if parent.count() != 1 {
			return parent.release()
		}
		childBlock := types.Block(be32(nodeSlice(parent.body(), parent.nodesize(), 0)[4:]))
		child, err := t.pinContainer(childBlock)
		if err != nil {
			_ = parent.release()
			return err
		}
		copy(parent.buf.Bytes(), child.buf.Bytes())
		var hdr types.BlockHeader
		hdr.Decode(parent.buf.Bytes())
		hdr.ID = types.IDBNodeContainer
		hdr.OwnBlock = parent.block()
		hdr.Encode(parent.buf.Bytes())
		parent.buf.MarkDirty()
		if err := child.release(); err != nil {
			_ = parent.release()
			return err
		}
		if err := t.admin.Free(childBlock); err != nil {
			_ = parent.release()
			return err
		}
		return parent.release()
	}
	return t.rebalance(parent)
}
