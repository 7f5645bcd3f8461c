// Package extentbtree implements the per-file extent B-tree, a chain of
// fixed-node-size containers keyed by the first block of each data run.
// Grounded on extents.c
// (searchforbnode/findbnode/insertbnode/splitbtreecontainer/
// asfs_deletebnode/asfs_addblocks/asfs_deleteextents), split across
// search/insert/split/delete files: a navigator for low-level walks and
// a searcher/manager for higher-level rebalance.
package extentbtree

import (
	"encoding/binary"

	"github.com/twojstaryzdomu/asfs/internal/adminspace"
	"github.com/twojstaryzdomu/asfs/internal/bitmap"
	"github.com/twojstaryzdomu/asfs/internal/interfaces"
	"github.com/twojstaryzdomu/asfs/internal/types"
)

// Tree is the extent B-tree for one volume. Its root block number is
// fixed for the volume's lifetime (the on-disk root block's
// extentbnoderoot field); splits and merges rewrite that block's
// contents in place instead of relocating the root.
type Tree struct {
	pool  interfaces.BufferPool
	admin *adminspace.Allocator
	space *bitmap.Allocator
	root  types.Block

	blockSize uint32
}

// NewTree builds a Tree rooted at root. admin allocates/frees the
// B-tree's own container blocks; space allocates/frees the file-data
// blocks described by its leaf extents.
func NewTree(pool interfaces.BufferPool, admin *adminspace.Allocator, space *bitmap.Allocator, root types.Block, blockSize uint32) *Tree {
	return &Tree{pool: pool, admin: admin, space: space, root: root, blockSize: blockSize}
}

func be32(b []byte) uint32       { return binary.BigEndian.Uint32(b) }
func putBE32(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }

// branches returns the number of nodesize-sized slots that fit in one
// container body.
func (t *Tree) branches(nodesize int) int {
	return int((t.blockSize - uint32(types.BNodeContainerHeaderSize)) / uint32(nodesize))
}

// body-relative node helpers: body is always container.body(), a slice
// starting right after the BTreeContainer header.

func keyAtIdx(body []byte, nodesize, idx int) uint32 {
	return be32(body[idx*nodesize:])
}

func putKeyAtIdx(body []byte, nodesize, idx int, key uint32) {
	putBE32(body[idx*nodesize:], key)
}

func nodeSlice(body []byte, nodesize, idx int) []byte {
	off := idx * nodesize
	return body[off : off+nodesize]
}

// container is a pinned buffer's decoded B-tree header, kept together
// for convenience while navigating.
type container struct {
	buf interfaces.Buffer
	hdr types.BTreeContainer
}

func (t *Tree) pinContainer(block types.Block) (*container, error) {
	buf, err := t.pool.Pin(block, types.IDBNodeContainer)
	if err != nil {
		return nil, err
	}
	var hdr types.BTreeContainer
	hdr.Decode(buf.Bytes()[types.BlockHeaderSize:])
	return &container{buf: buf, hdr: hdr}, nil
}

func (c *container) nodesize() int      { return int(c.hdr.NodeSize) }
func (c *container) count() int         { return int(c.hdr.NodeCount) }
func (c *container) body() []byte       { return c.buf.Bytes()[types.BNodeContainerHeaderSize:] }
func (c *container) block() types.Block { return c.buf.Block() }

func (c *container) storeHeader() {
	c.hdr.Encode(c.buf.Bytes()[types.BlockHeaderSize:])
	c.buf.MarkDirty()
}

func (c *container) release() error { return c.buf.Release() }
