package extentbtree

import (
	"fmt"

	"github.com/twojstaryzdomu/asfs/internal/asfserr"
	"github.com/twojstaryzdomu/asfs/internal/types"
)

func nodeRange(body []byte, nodesize, idx, count int) []byte {
	off := idx * nodesize
	return body[off : off+count*nodesize]
}

// splitBTreeContainer splits a full container 50/50 into itself (lower
// half) and a freshly admin-allocated sibling (upper half), inserting a
// routing key for the sibling into the parent container — growing the
// tree by a level first if c is the root. Always consumes c (and the
// parent it resolves). Mirrors splitbtreecontainer.
func (t *Tree) splitBTreeContainer(c *container) error {
	parent, err := t.getParentBTreeContainer(c)
	if err != nil {
		_ = c.release()
		return err
	}

	if parent == nil {
		newBlock, err := t.admin.Alloc()
		if err != nil {
			_ = c.release()
			return err
		}
		newBuf, err := t.pool.New(newBlock, types.IDBNodeContainer)
		if err != nil {
			_ = c.release()
			return err
		}
		copy(newBuf.Bytes(), c.buf.Bytes())
		var newHdr types.BlockHeader
		newHdr.Decode(newBuf.Bytes())
		newHdr.ID = types.IDBNodeContainer
		newHdr.OwnBlock = newBlock
		newHdr.Encode(newBuf.Bytes())
		newBuf.MarkDirty()
		if err := newBuf.Release(); err != nil {
			_ = c.release()
			return err
		}

		oldRootBlock := c.block()
		body := c.buf.Bytes()
		for i := range body {
			body[i] = 0
		}
		hdr := types.BlockHeader{ID: types.IDBNodeContainer, OwnBlock: oldRootBlock}
		hdr.Encode(body)
		c.hdr = types.BTreeContainer{IsLeaf: false, NodeSize: types.BNodeSize, NodeCount: 0}
		c.storeHeader()

		idx := insertBNode(c.body(), c.nodesize(), c.count(), 0)
		c.hdr.NodeCount++
		c.storeHeader()
		putBE32(nodeSlice(c.body(), c.nodesize(), idx)[4:], uint32(newBlock))
		c.buf.MarkDirty()

		parent = c
		c, err = t.pinContainer(newBlock)
		if err != nil {
			_ = parent.release()
			return err
		}
	}

	parentBranches := t.branches(parent.nodesize())
	if parent.count() == parentBranches {
		if err := t.splitBTreeContainer(parent); err != nil {
			_ = c.release()
			return err
		}
		parent, err = t.getParentBTreeContainer(c)
		if err != nil {
			_ = c.release()
			return err
		}
		if parent == nil {
			_ = c.release()
			return asfserr.New(asfserr.IO, "extentbtree.splitBTreeContainer", fmt.Errorf("lost parent of block %d after recursive split", c.block()))
		}
	}

	nodesize := c.nodesize()
	branches := t.branches(nodesize)
	lower := branches / 2
	upper := branches - lower

	newBlock, err := t.admin.Alloc()
	if err != nil {
		_ = c.release()
		_ = parent.release()
		return err
	}
	newBuf, err := t.pool.New(newBlock, types.IDBNodeContainer)
	if err != nil {
		_ = c.release()
		_ = parent.release()
		return err
	}

	newHdrBody := types.BTreeContainer{IsLeaf: c.hdr.IsLeaf, NodeSize: c.hdr.NodeSize, NodeCount: uint16(upper)}
	newHdrBody.Encode(newBuf.Bytes()[types.BlockHeaderSize:])
	newBody := newBuf.Bytes()[types.BNodeContainerHeaderSize:]
	copy(newBody[:upper*nodesize], nodeRange(c.body(), nodesize, lower, upper))
	newKey := keyAtIdx(newBody, nodesize, 0)
	newBuf.MarkDirty()
	if err := newBuf.Release(); err != nil {
		_ = c.release()
		_ = parent.release()
		return err
	}

	c.hdr.NodeCount = uint16(lower)
	c.storeHeader()
	if err := c.release(); err != nil {
		_ = parent.release()
		return err
	}

	idx := insertBNode(parent.body(), parent.nodesize(), parent.count(), newKey)
	parent.hdr.NodeCount++
	parent.storeHeader()
	putBE32(nodeSlice(parent.body(), parent.nodesize(), idx)[4:], uint32(newBlock))
	parent.buf.MarkDirty()

	return parent.release()
}
