// Package objectnode implements Component E: the height-adaptive sparse
// tree mapping a dense 32-bit object-node number to the (container
// block, slot) pair locating its fsObjectNode record. Grounded on
// nodes.c (asfs_getnode/asfs_createnode/asfs_deletenode and their
// markparentfull/markparentempty/freecontainer helpers), following the
// two-layer manager/middleware navigation-vs-rebalance split the
// teacher uses for its own B-tree packages.
package objectnode

import (
	"encoding/binary"
	"fmt"

	"github.com/twojstaryzdomu/asfs/internal/adminspace"
	"github.com/twojstaryzdomu/asfs/internal/asfserr"
	"github.com/twojstaryzdomu/asfs/internal/interfaces"
	"github.com/twojstaryzdomu/asfs/internal/types"
)

// Tree is the object-node index. Its root block number is fixed for the
// lifetime of the volume (it is the value stored in the on-disk root
// block's objectnoderoot field) — growth and shrinkage rewrite the root
// container's contents in place rather than relocating it.
type Tree struct {
	pool      interfaces.BufferPool
	admin     *adminspace.Allocator
	root      types.Block
	blockSize uint32
	blockBits uint
}

// NewTree builds a Tree rooted at root, for a device with the given
// block size (must be a power of two).
func NewTree(pool interfaces.BufferPool, admin *adminspace.Allocator, root types.Block, blockSize uint32) *Tree {
	bits := uint(0)
	for v := blockSize; v > 1; v >>= 1 {
		bits++
	}
	return &Tree{pool: pool, admin: admin, root: root, blockSize: blockSize, blockBits: bits}
}

func (t *Tree) leafCapacity() int {
	return int((t.blockSize - types.NodeContainerHeaderSize) / types.ObjectNodeSize)
}

func (t *Tree) internalCapacity() int {
	return int((t.blockSize - types.NodeContainerHeaderSize) / 4)
}

func be32(b []byte) uint32        { return binary.BigEndian.Uint32(b) }
func putBE32(b []byte, v uint32)  { binary.BigEndian.PutUint32(b, v) }

// Get returns the ObjectNode record for nodeno.
func (t *Tree) Get(nodeno uint32) (types.ObjectNode, error) {
	buf, nc, err := t.locateLeaf(nodeno)
	if err != nil {
		return types.ObjectNode{}, err
	}
	off := int(nodeno-nc.NodeNumber) * types.ObjectNodeSize
	rec := types.DecodeObjectNode(buf.Bytes()[int(types.NodeContainerHeaderSize)+off:])
	return rec, buf.Release()
}

// Set overwrites the ObjectNode record for nodeno.
func (t *Tree) Set(nodeno uint32, rec types.ObjectNode) error {
	buf, nc, err := t.locateLeaf(nodeno)
	if err != nil {
		return err
	}
	off := int(nodeno-nc.NodeNumber) * types.ObjectNodeSize
	types.EncodeObjectNode(buf.Bytes()[int(types.NodeContainerHeaderSize)+off:], rec)
	buf.MarkDirty()
	return buf.Release()
}

// locateLeaf descends from the root to the leaf container that would
// hold nodeno, mirroring asfs_getnode.
func (t *Tree) locateLeaf(nodeno uint32) (interfaces.Buffer, types.NodeContainer, error) {
	nodeIndex := t.root
	for {
		buf, err := t.pool.Pin(nodeIndex, types.IDNodeContainer)
		if err != nil {
			return nil, types.NodeContainer{}, err
		}
		var nc types.NodeContainer
		nc.Decode(buf.Bytes())
		if nc.IsLeaf() {
			return buf, nc, nil
		}

		cap := t.internalCapacity()
		words := buf.Bytes()[types.NodeContainerHeaderSize:]
		entry := (nodeno - nc.NodeNumber) / nc.Nodes
		if int(entry) >= cap {
			_ = buf.Release()
			return nil, types.NodeContainer{}, asfserr.New(asfserr.NotFound, "objectnode.locateLeaf", fmt.Errorf("node %d is out of range", nodeno))
		}
		w := be32(words[entry*4:])
		child, _ := types.DecodeChildPointer(w, t.blockBits)
		if err := buf.Release(); err != nil {
			return nil, types.NodeContainer{}, err
		}
		nodeIndex = child
	}
}

// Create reserves the first free object-node slot, growing the tree if
// necessary, and returns its node-number. The caller must Set the
// record's Data/Hash16 afterwards. Mirrors asfs_createnode.
func (t *Tree) Create() (uint32, error) {
	nodeIndex := t.root
	for {
		buf, err := t.pool.Pin(nodeIndex, types.IDNodeContainer)
		if err != nil {
			return 0, err
		}
		var nc types.NodeContainer
		nc.Decode(buf.Bytes())

		if nc.IsLeaf() {
			nodeno, grew, err := t.createInLeaf(buf, nc)
			if err != nil {
				return 0, err
			}
			if grew {
				nodeIndex = t.root
				continue
			}
			return nodeno, nil
		}

		nextIndex, grew, err := t.descendOrGrowInternal(buf, nc)
		if err != nil {
			return 0, err
		}
		if grew {
			nodeIndex = t.root
			continue
		}
		nodeIndex = nextIndex
	}
}

// createInLeaf attempts to claim a free fsObjectNode slot in the pinned
// leaf buf (which it always releases). grew reports that the tree had
// to gain a level and the caller should restart from the root.
func (t *Tree) createInLeaf(buf interfaces.Buffer, nc types.NodeContainer) (nodeno uint32, grew bool, err error) {
	cap := t.leafCapacity()
	slots := buf.Bytes()[types.NodeContainerHeaderSize:]

	freeIdx := -1
	for i := 0; i < cap; i++ {
		if types.DecodeObjectNode(slots[i*types.ObjectNodeSize:]).Data == 0 {
			freeIdx = i
			break
		}
	}

	if freeIdx < 0 {
		block := buf.Block()
		if releaseErr := buf.Release(); releaseErr != nil {
			return 0, false, releaseErr
		}
		if block != t.root {
			return 0, false, asfserr.New(asfserr.IO, "objectnode.Create", fmt.Errorf("leaf container %d unexpectedly full", block))
		}
		if err := t.addNewLevel(); err != nil {
			return 0, false, err
		}
		return 0, true, nil
	}

	nodeno = nc.NodeNumber + uint32(freeIdx)
	moreFree := false
	for i := freeIdx + 1; i < cap; i++ {
		if types.DecodeObjectNode(slots[i*types.ObjectNodeSize:]).Data == 0 {
			moreFree = true
			break
		}
	}
	block := buf.Block()
	if err := buf.Release(); err != nil {
		return 0, false, err
	}
	if !moreFree {
		if err := t.markParentFull(block); err != nil {
			return 0, false, err
		}
	}
	return nodeno, false, nil
}

// descendOrGrowInternal picks the next child to descend into from an
// internal container, allocating a fresh child container if necessary.
// It always releases buf.
func (t *Tree) descendOrGrowInternal(buf interfaces.Buffer, nc types.NodeContainer) (next types.Block, grew bool, err error) {
	cap := t.internalCapacity()
	words := buf.Bytes()[types.NodeContainerHeaderSize:]

	for i := 0; i < cap; i++ {
		w := be32(words[i*4:])
		if w != 0 && w&1 == 0 {
			child, _ := types.DecodeChildPointer(w, t.blockBits)
			return child, false, buf.Release()
		}
	}

	freeIdx := -1
	for i := 0; i < cap; i++ {
		if be32(words[i*4:]) == 0 {
			freeIdx = i
			break
		}
	}

	if freeIdx >= 0 {
		var childNodes uint32
		if nc.Nodes == uint32(t.leafCapacity()) {
			childNodes = 1
		} else {
			childNodes = nc.Nodes / uint32(cap)
		}
		childNodeNumber := nc.NodeNumber + uint32(freeIdx)*nc.Nodes
		newBlock, cerr := t.createNodeContainer(childNodeNumber, childNodes)
		if cerr != nil {
			_ = buf.Release()
			return 0, false, cerr
		}
		putBE32(words[freeIdx*4:], types.EncodeChildPointer(newBlock, false, t.blockBits))
		buf.MarkDirty()
		return newBlock, false, buf.Release()
	}

	// Every slot full or zero-but-unavailable: this must be the root,
	// since a non-root container this full would have had its parent's
	// full-bit set already.
	if releaseErr := buf.Release(); releaseErr != nil {
		return 0, false, releaseErr
	}
	if err := t.addNewLevel(); err != nil {
		return 0, false, err
	}
	return 0, true, nil
}

// addNewLevel grows the tree by one level: the current root's contents
// are copied into a freshly allocated sibling, and the root block
// (whose number must never change) is rewritten in place as an
// internal container with a single full child pointing at the sibling.
// Mirrors addnewnodelevel.
func (t *Tree) addNewLevel() error {
	buf, err := t.pool.Pin(t.root, types.IDNodeContainer)
	if err != nil {
		return err
	}
	var nc types.NodeContainer
	nc.Decode(buf.Bytes())

	newBlock, err := t.admin.Alloc()
	if err != nil {
		_ = buf.Release()
		return err
	}
	newBuf, err := t.pool.New(newBlock, types.IDNodeContainer)
	if err != nil {
		_ = buf.Release()
		return err
	}
	newNC := types.NodeContainer{NodeNumber: nc.NodeNumber, Nodes: nc.Nodes}
	newNC.Encode(newBuf.Bytes())
	copy(newBuf.Bytes()[types.NodeContainerHeaderSize:], buf.Bytes()[types.NodeContainerHeaderSize:])
	newBuf.MarkDirty()
	if err := newBuf.Release(); err != nil {
		_ = buf.Release()
		return err
	}

	if nc.Nodes == 1 {
		nc.Nodes = uint32(t.leafCapacity())
	} else {
		nc.Nodes = nc.Nodes * uint32(t.internalCapacity())
	}
	nc.Encode(buf.Bytes())

	body := buf.Bytes()[types.NodeContainerHeaderSize:]
	for i := range body {
		body[i] = 0
	}
	putBE32(body[0:], types.EncodeChildPointer(newBlock, true, t.blockBits))

	buf.MarkDirty()
	return buf.Release()
}

func (t *Tree) createNodeContainer(nodenumber, nodes uint32) (types.Block, error) {
	block, err := t.admin.Alloc()
	if err != nil {
		return 0, err
	}
	buf, err := t.pool.New(block, types.IDNodeContainer)
	if err != nil {
		return 0, err
	}
	nc := types.NodeContainer{NodeNumber: nodenumber, Nodes: nodes}
	nc.Encode(buf.Bytes())
	buf.MarkDirty()
	return block, buf.Release()
}

// parentContainer finds the internal container whose child pointer
// refers to childBlock, given the node-number childBlock's container
// covers. Mirrors parentnodecontainer. found is false (with err nil)
// when childBlock is the tree root.
func (t *Tree) parentContainer(childBlock types.Block, childNodeNumber uint32) (parent types.Block, found bool, err error) {
	if childBlock == t.root {
		return 0, false, nil
	}
	nodeIndex := t.root
	for {
		buf, err := t.pool.Pin(nodeIndex, types.IDNodeContainer)
		if err != nil {
			return 0, false, err
		}
		var nc types.NodeContainer
		nc.Decode(buf.Bytes())
		if nc.IsLeaf() {
			_ = buf.Release()
			return 0, false, asfserr.New(asfserr.IO, "objectnode.parentContainer", fmt.Errorf("descended to a leaf looking for the parent of block %d", childBlock))
		}

		cap := t.internalCapacity()
		words := buf.Bytes()[types.NodeContainerHeaderSize:]
		entry := (childNodeNumber - nc.NodeNumber) / nc.Nodes
		if int(entry) >= cap {
			_ = buf.Release()
			return 0, false, asfserr.New(asfserr.IO, "objectnode.parentContainer", fmt.Errorf("node tree corrupted locating parent of block %d", childBlock))
		}
		w := be32(words[entry*4:])
		child, _ := types.DecodeChildPointer(w, t.blockBits)
		if child == childBlock {
			thisBlock := buf.Block()
			return thisBlock, true, buf.Release()
		}
		if err := buf.Release(); err != nil {
			return 0, false, err
		}
		nodeIndex = child
	}
}

func (t *Tree) childNodeNumber(block types.Block) (uint32, error) {
	buf, err := t.pool.Pin(block, types.IDNodeContainer)
	if err != nil {
		return 0, err
	}
	var nc types.NodeContainer
	nc.Decode(buf.Bytes())
	return nc.NodeNumber, buf.Release()
}

func isFullWords(words []byte, cap int) bool {
	for i := 0; i < cap; i++ {
		w := be32(words[i*4:])
		if w == 0 || w&1 == 0 {
			return false
		}
	}
	return true
}

// markParentFull sets the parent's full-bit for childBlock, recursing
// upward while each container this propagates into also becomes full.
// Mirrors markparentfull.
func (t *Tree) markParentFull(childBlock types.Block) error {
	childNodeNumber, err := t.childNodeNumber(childBlock)
	if err != nil {
		return err
	}
	parentBlock, ok, err := t.parentContainer(childBlock, childNodeNumber)
	if err != nil || !ok {
		return err
	}

	pbuf, err := t.pool.Pin(parentBlock, types.IDNodeContainer)
	if err != nil {
		return err
	}
	var pnc types.NodeContainer
	pnc.Decode(pbuf.Bytes())
	cap := t.internalCapacity()
	words := pbuf.Bytes()[types.NodeContainerHeaderSize:]
	entry := (childNodeNumber - pnc.NodeNumber) / pnc.Nodes
	w := be32(words[entry*4:])
	putBE32(words[entry*4:], w|1)
	pbuf.MarkDirty()

	full := isFullWords(words, cap)
	if err := pbuf.Release(); err != nil {
		return err
	}
	if full {
		return t.markParentFull(parentBlock)
	}
	return nil
}

// markParentEmpty clears the parent's full-bit for childBlock, and
// recurses upward if the parent was itself previously marked full.
// Mirrors markparentempty.
func (t *Tree) markParentEmpty(childBlock types.Block) error {
	childNodeNumber, err := t.childNodeNumber(childBlock)
	if err != nil {
		return err
	}
	parentBlock, ok, err := t.parentContainer(childBlock, childNodeNumber)
	if err != nil || !ok {
		return err
	}

	pbuf, err := t.pool.Pin(parentBlock, types.IDNodeContainer)
	if err != nil {
		return err
	}
	var pnc types.NodeContainer
	pnc.Decode(pbuf.Bytes())
	cap := t.internalCapacity()
	words := pbuf.Bytes()[types.NodeContainerHeaderSize:]
	wasFull := isFullWords(words, cap)
	entry := (childNodeNumber - pnc.NodeNumber) / pnc.Nodes
	w := be32(words[entry*4:])
	putBE32(words[entry*4:], w&^uint32(1))
	pbuf.MarkDirty()

	if err := pbuf.Release(); err != nil {
		return err
	}
	if wasFull {
		return t.markParentEmpty(parentBlock)
	}
	return nil
}

// freeContainer releases childBlock's admin allocation and zeroes its
// parent's pointer to it, recursing upward if that empties the parent
// too. Never frees the tree root. Mirrors freecontainer.
func (t *Tree) freeContainer(childBlock types.Block) error {
	childNodeNumber, err := t.childNodeNumber(childBlock)
	if err != nil {
		return err
	}
	parentBlock, ok, err := t.parentContainer(childBlock, childNodeNumber)
	if err != nil || !ok {
		return err
	}

	pbuf, err := t.pool.Pin(parentBlock, types.IDNodeContainer)
	if err != nil {
		return err
	}
	var pnc types.NodeContainer
	pnc.Decode(pbuf.Bytes())
	cap := t.internalCapacity()
	words := pbuf.Bytes()[types.NodeContainerHeaderSize:]
	entry := (childNodeNumber - pnc.NodeNumber) / pnc.Nodes

	if err := t.admin.Free(childBlock); err != nil {
		_ = pbuf.Release()
		return err
	}
	putBE32(words[entry*4:], 0)
	pbuf.MarkDirty()

	allZero := true
	for i := 0; i < cap; i++ {
		if be32(words[i*4:]) != 0 {
			allZero = false
			break
		}
	}
	if err := pbuf.Release(); err != nil {
		return err
	}
	if allZero {
		return t.freeContainer(parentBlock)
	}
	return nil
}

// Delete zeroes nodeno's record, propagating full/empty bookkeeping and
// freeing the leaf container if it becomes wholly empty. Mirrors
// asfs_deletenode/internaldeletenode.
func (t *Tree) Delete(nodeno uint32) error {
	buf, nc, err := t.locateLeaf(nodeno)
	if err != nil {
		return err
	}
	cap := t.leafCapacity()
	slots := buf.Bytes()[types.NodeContainerHeaderSize:]
	off := int(nodeno-nc.NodeNumber) * types.ObjectNodeSize

	rec := types.DecodeObjectNode(slots[off:])
	rec.Data = 0
	types.EncodeObjectNode(slots[off:], rec)
	buf.MarkDirty()

	empty := 0
	for i := 0; i < cap; i++ {
		if types.DecodeObjectNode(slots[i*types.ObjectNodeSize:]).Data == 0 {
			empty++
		}
	}
	block := buf.Block()
	if err := buf.Release(); err != nil {
		return err
	}

	switch {
	case empty == 1:
		return t.markParentEmpty(block)
	case empty == cap:
		return t.freeContainer(block)
	default:
		return nil
	}
}
