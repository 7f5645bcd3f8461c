// Package adminspace implements the admin-space half of Component C: the
// micro-allocator that hands out single blocks for object containers,
// B-tree nodes, node-tree containers, hash tables and soft-link blocks
// out of 32-block regions reserved from the bitmap allocator. Grounded
// on adminspace.c's asfs_allocadminspace/asfs_freeadminspace.
package adminspace

import (
	"fmt"

	"github.com/twojstaryzdomu/asfs/internal/asfserr"
	"github.com/twojstaryzdomu/asfs/internal/bitfuncs"
	"github.com/twojstaryzdomu/asfs/internal/bitmap"
	"github.com/twojstaryzdomu/asfs/internal/interfaces"
	"github.com/twojstaryzdomu/asfs/internal/types"
)

// regionSize is the fixed size, in blocks, of one admin-space region
// (ASFS reserves these 32 blocks at a time regardless of device block
// size).
const regionSize = 32

// Allocator is the admin-block micro-allocator: a chain of
// AdminSpaceContainer blocks starting at root, each holding an array of
// AdminSpace{Space,Bits} 32-block regions with a per-block usage mask.
type Allocator struct {
	pool  interfaces.BufferPool
	space *bitmap.Allocator
	root  types.Block

	entriesPerContainer int
}

// NewAllocator builds an Allocator rooted at the volume's
// adminspacecontainer block. space is used to reserve fresh 32-block
// regions when every existing AdminSpaceContainer entry is full.
func NewAllocator(pool interfaces.BufferPool, space *bitmap.Allocator, root types.Block, blockSize uint32) *Allocator {
	entries := int((blockSize - types.AdminSpaceContainerHeaderSize) / types.AdminSpaceEntrySize)
	return &Allocator{pool: pool, space: space, root: root, entriesPerContainer: entries}
}

func (a *Allocator) readEntries(buf []byte) []types.AdminSpace {
	out := make([]types.AdminSpace, a.entriesPerContainer)
	for i := range out {
		out[i] = types.DecodeAdminSpace(buf[types.AdminSpaceContainerHeaderSize+i*types.AdminSpaceEntrySize:])
	}
	return out
}

func (a *Allocator) writeEntry(buf []byte, i int, e types.AdminSpace) {
	types.EncodeAdminSpace(buf[types.AdminSpaceContainerHeaderSize+i*types.AdminSpaceEntrySize:], e)
}

// Alloc hands out one free admin block, growing the admin-space chain if
// every existing region is full. Mirrors asfs_allocadminspace's two-tier
// fallback: first try to carve a bit out of an existing AdminSpace
// region, then try to install a new AdminSpace entry into an existing
// container, and only as a last resort link a brand-new
// AdminSpaceContainer block into the chain.
func (a *Allocator) Alloc() (types.Block, error) {
	block := a.root
	for {
		buf, err := a.pool.Pin(block, types.IDAdminSpace)
		if err != nil {
			return 0, err
		}
		var container types.AdminSpaceContainer
		container.Decode(buf.Bytes())
		entries := a.readEntries(buf.Bytes())

		for i, e := range entries {
			if e.Space == 0 {
				continue
			}
			if bit := bitfuncs.Bfffz(e.Bits, 0); bit >= 0 {
				emptyBlock := e.Space + types.Block(bit)
				e.Bits = bitfuncs.Bfset(e.Bits, bit, 1)
				a.writeEntry(buf.Bytes(), i, e)
				buf.MarkDirty()
				if err := buf.Release(); err != nil {
					return 0, err
				}
				return emptyBlock, nil
			}
		}

		next := container.Next
		if err := buf.Release(); err != nil {
			return 0, err
		}
		if next != 0 {
			block = next
			continue
		}

		if _, err := a.growChain(block); err != nil {
			return 0, err
		}
		block = a.root
	}
}

// growChain reserves a new 32-block region and links it into the admin
// chain, either by installing a new AdminSpace entry in an existing
// container or, if none has room, by allocating and linking a fresh
// AdminSpaceContainer block as the first block of the new region.
func (a *Allocator) growChain(lastContainer types.Block) (types.Block, error) {
	startBlock, err := a.space.FindAndMarkSpace(regionSize)
	if err != nil {
		return 0, err
	}

	block := a.root
	for {
		buf, err := a.pool.Pin(block, types.IDAdminSpace)
		if err != nil {
			return 0, err
		}
		var container types.AdminSpaceContainer
		container.Decode(buf.Bytes())
		entries := a.readEntries(buf.Bytes())

		freeIdx := -1
		for i, e := range entries {
			if e.Space == 0 {
				freeIdx = i
				break
			}
		}
		if freeIdx >= 0 {
			a.writeEntry(buf.Bytes(), freeIdx, types.AdminSpace{Space: startBlock, Bits: 0})
			container.Bits++
			container.Encode(buf.Bytes())
			buf.MarkDirty()
			if err := buf.Release(); err != nil {
				return 0, err
			}
			return startBlock, nil
		}

		if container.Next == 0 {
			container.Next = startBlock
			container.Encode(buf.Bytes())
			buf.MarkDirty()
			if err := buf.Release(); err != nil {
				return 0, err
			}

			newBuf, err := a.pool.New(startBlock, types.IDAdminSpace)
			if err != nil {
				return 0, err
			}
			var nc types.AdminSpaceContainer
			nc.Previous = block
			nc.Bits = 1
			nc.Encode(newBuf.Bytes())
			a.writeEntry(newBuf.Bytes(), 0, types.AdminSpace{Space: startBlock, Bits: types.MSBMask})
			newBuf.MarkDirty()
			if err := newBuf.Release(); err != nil {
				return 0, err
			}
			return startBlock, nil
		}

		next := container.Next
		if err := buf.Release(); err != nil {
			return 0, err
		}
		block = next
	}
}

// Free releases an admin block previously returned by Alloc, clearing
// its bit in whichever AdminSpace region covers it. Mirrors
// asfs_freeadminspace.
func (a *Allocator) Free(block types.Block) error {
	cur := a.root
	for {
		buf, err := a.pool.Pin(cur, types.IDAdminSpace)
		if err != nil {
			return err
		}
		var container types.AdminSpaceContainer
		container.Decode(buf.Bytes())
		entries := a.readEntries(buf.Bytes())

		for i, e := range entries {
			if e.Space != 0 && block >= e.Space && block < e.Space+regionSize {
				bitoffset := int(block - e.Space)
				e.Bits = bitfuncs.Bfclr(e.Bits, bitoffset, 1)
				a.writeEntry(buf.Bytes(), i, e)
				buf.MarkDirty()
				return buf.Release()
			}
		}

		next := container.Next
		if err := buf.Release(); err != nil {
			return err
		}
		if next == 0 {
			return asfserr.New(asfserr.NotFound, "adminspace.Free", fmt.Errorf("block %d is not covered by any admin-space region", block))
		}
		cur = next
	}
}
