package objects

import (
	"encoding/binary"

	"github.com/twojstaryzdomu/asfs/internal/adminspace"
	"github.com/twojstaryzdomu/asfs/internal/bitmap"
	"github.com/twojstaryzdomu/asfs/internal/extentbtree"
	"github.com/twojstaryzdomu/asfs/internal/interfaces"
	"github.com/twojstaryzdomu/asfs/internal/objectnode"
	"github.com/twojstaryzdomu/asfs/internal/types"
)

// FreeBlocks reports the cached free-block population, used to enforce
// the ALWAYSFREE reserve on object creation.
type FreeBlocks interface {
	FreeBlocks() uint32
}

// RecycledCounters tracks the aggregate file/block counts of the
// recycled directory, adjusted whenever an object moves into or out of
// it. Mirrors setrecycledinfodiff.
type RecycledCounters interface {
	AdjustRecycled(deltaFiles, deltaBlocks int32) error
}

// Manager implements object-record and directory-chain operations over
// one volume's object containers, hash tables and soft-link blocks. It
// is built on top of the object-node index and the extent B-tree, which
// it never bypasses: every object's identity is its node-number, and
// every file's data is a chain the extent tree already knows how to
// grow, thread and tear down.
type Manager struct {
	pool    interfaces.BufferPool
	admin   *adminspace.Allocator
	space   *bitmap.Allocator
	nodes   *objectnode.Tree
	extents *extentbtree.Tree

	free     FreeBlocks
	recycled RecycledCounters

	caseSensitive bool
	blockSize     uint32
}

// NewManager builds a Manager over the given volume-wide allocators and
// indexes. caseSensitive mirrors the root block's
// ASFS_ROOTBITS_CASESENSITIVE flag.
func NewManager(pool interfaces.BufferPool, admin *adminspace.Allocator, space *bitmap.Allocator, nodes *objectnode.Tree, extents *extentbtree.Tree, free FreeBlocks, recycled RecycledCounters, caseSensitive bool, blockSize uint32) *Manager {
	return &Manager{
		pool: pool, admin: admin, space: space, nodes: nodes, extents: extents,
		free: free, recycled: recycled,
		caseSensitive: caseSensitive, blockSize: blockSize,
	}
}

func (m *Manager) pinObjectContainer(block types.Block) (interfaces.Buffer, error) {
	return m.pool.Pin(block, types.IDObjectContainer)
}

func (m *Manager) newObjectContainer(block types.Block) (interfaces.Buffer, error) {
	return m.pool.New(block, types.IDObjectContainer)
}

func (m *Manager) pinHashTable(block types.Block) (interfaces.Buffer, error) {
	return m.pool.Pin(block, types.IDHashTable)
}

// ParentNode returns the node-number of the directory that owns the
// object container at containerBlock, read straight from the
// container's header (ObjectContainer.Parent).
func (m *Manager) ParentNode(containerBlock types.Block) (uint32, error) {
	buf, err := m.pinObjectContainer(containerBlock)
	if err != nil {
		return 0, err
	}
	var oc types.ObjectContainer
	oc.Decode(buf.Bytes())
	if err := buf.Release(); err != nil {
		return 0, err
	}
	return uint32(oc.Parent), nil
}

// objectContainerBody returns the packed-record region of a pinned
// object container's buffer.
func objectContainerBody(buf interfaces.Buffer) []byte {
	return buf.Bytes()[types.ObjectContainerHeaderSize:]
}

func hashTableBuckets(blockSize uint32) uint32 {
	return (blockSize - types.HashTableHeaderSize) / 4
}

func be32(b []byte) uint32       { return binary.BigEndian.Uint32(b) }
func putBE32(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }
