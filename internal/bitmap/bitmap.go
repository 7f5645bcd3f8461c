// Package bitmap implements the file-data space allocator half of
// Component C: the bitmap search/mark/free primitives, transcribed from
// adminspace.c's asfs_findspace/asfs_markspace/asfs_freespace and the
// findandmarkspace wrapper, built on top of internal/bitfuncs's
// region-spanning bit primitives.
package bitmap

import (
	"fmt"

	"github.com/twojstaryzdomu/asfs/internal/asfserr"
	"github.com/twojstaryzdomu/asfs/internal/bitfuncs"
	"github.com/twojstaryzdomu/asfs/internal/interfaces"
	"github.com/twojstaryzdomu/asfs/internal/types"
)

// FreeBlockCounter is the narrow slice of the cached RootInfo counters
// the allocator needs: the current free-block population count, kept in
// sync with every mark/free so it never has to be recomputed by
// scanning the whole bitmap.
type FreeBlockCounter interface {
	FreeBlocks() uint32
	SetFreeBlocks(n uint32) error
}

// Allocator is the file-data space allocator: it treats the bitmap area
// as one long bit sequence split across fixed-size blocks, bit=1 meaning
// free, and never allocates into the AlwaysFree reserve: FindSpace and
// FindAndMarkSpace both refuse a request that would eat into it, and
// there is no bypass (admin-space growth goes through FindAndMarkSpace
// too).
type Allocator struct {
	pool  interfaces.BufferPool
	count FreeBlockCounter

	bitmapBase     types.Block
	blocksInBitmap uint32 // bits addressable per bitmap block
	totalBlocks    uint32
}

// NewAllocator builds an Allocator over the bitmap area starting at
// bitmapBase, sized for a device with the given block size and total
// block count.
func NewAllocator(pool interfaces.BufferPool, count FreeBlockCounter, bitmapBase types.Block, blockSize, totalBlocks uint32) *Allocator {
	return &Allocator{
		pool:           pool,
		count:          count,
		bitmapBase:     bitmapBase,
		blocksInBitmap: (blockSize - types.BitmapHeaderSize) * 8,
		totalBlocks:    totalBlocks,
	}
}

func (a *Allocator) enoughSpace(blocks uint32) bool {
	free := a.count.FreeBlocks()
	if free < types.AlwaysFree {
		return false
	}
	return free-types.AlwaysFree >= blocks
}

// FindSpace scans the bitmap for a run of up to maxneeded free blocks in
// [start,end), wrapping around to 0 if start >= end (end == 0 means "to
// the end of the volume"). It reports the first/longest run found even
// if shorter than maxneeded, mirroring asfs_findspace's "best available,
// early-out on exact match" behaviour.
func (a *Allocator) FindSpace(maxneeded, start, end uint32) (block types.Block, blocks uint32, err error) {
	if !a.enoughSpace(maxneeded) {
		return 0, 0, asfserr.New(asfserr.NoSpace, "bitmap.FindSpace", fmt.Errorf("only %d free blocks left", a.count.FreeBlocks()))
	}

	if start >= a.totalBlocks {
		start -= a.totalBlocks
	}
	if end == 0 {
		end = a.totalBlocks
	}

	reads := (end-1)/a.blocksInBitmap + 1 - start/a.blocksInBitmap
	if start >= end {
		reads += (a.totalBlocks-1)/a.blocksInBitmap + 1
	}

	breakpoint := end
	if start >= end {
		breakpoint = a.totalBlocks
	}

	bitend := int(start % a.blocksInBitmap)
	cur := start - uint32(bitend)
	bitmapBlock := a.bitmapBase + types.Block(start/a.blocksInBitmap)

	var space uint32
	var returnedBlock types.Block
	var returnedBlocks uint32

	for {
		buf, berr := a.pool.Pin(bitmapBlock, types.IDBitmap)
		if berr != nil {
			return 0, 0, berr
		}
		bitmapBlock++
		payload := buf.Bytes()[types.BitmapHeaderSize:]

		localBreakpoint := breakpoint - cur
		if localBreakpoint > a.blocksInBitmap {
			localBreakpoint = a.blocksInBitmap
		}

		for {
			bitstart := bitfuncs.Bmffo(payload, bitend)
			if bitstart < 0 || bitstart >= int(a.blocksInBitmap) {
				break
			}
			if uint32(bitstart) >= localBreakpoint {
				break
			}
			if bitstart != 0 {
				space = 0
			}

			be := bitfuncs.Bmffz(payload, bitstart)
			if be < 0 {
				be = int(a.blocksInBitmap)
			}
			if uint32(be) > localBreakpoint {
				be = int(localBreakpoint)
			}
			bitend = be

			space += uint32(bitend) - uint32(bitstart)

			if returnedBlocks < space {
				returnedBlock = types.Block(cur + uint32(bitend) - space)
				if space >= maxneeded {
					returnedBlocks = maxneeded
					_ = buf.Release()
					return returnedBlock, returnedBlocks, nil
				}
				returnedBlocks = space
			}

			if uint32(bitend) >= localBreakpoint {
				break
			}
		}

		_ = buf.Release()

		reads--
		if reads == 0 {
			break
		}

		if uint32(bitend) != a.blocksInBitmap {
			space = 0
		}
		bitend = 0
		cur += a.blocksInBitmap

		if cur >= a.totalBlocks {
			cur = 0
			space = 0
			breakpoint = end
			bitmapBlock = a.bitmapBase
		}
	}

	if returnedBlocks == 0 {
		return 0, 0, asfserr.New(asfserr.NoSpace, "bitmap.FindSpace", fmt.Errorf("no free run found"))
	}
	return returnedBlock, returnedBlocks, nil
}

// availableSpace counts the number of free blocks starting at block,
// stopping at the first allocated block or once maxneeded is reached.
func (a *Allocator) availableSpace(block, maxneeded uint32) (int, error) {
	maxBitmapBlock := a.bitmapBase + types.Block(a.blocksInBitmap)
	_ = maxBitmapBlock
	found := 0
	bitstart := block % a.blocksInBitmap
	nextBlock := a.bitmapBase + types.Block(block/a.blocksInBitmap)

	for {
		buf, err := a.pool.Pin(nextBlock, types.IDBitmap)
		if err != nil {
			return -1, err
		}
		nextBlock++
		payload := buf.Bytes()[types.BitmapHeaderSize:]

		bitend := bitfuncs.Bmffz(payload, int(bitstart))
		if bitend >= 0 {
			found += bitend - int(bitstart)
			_ = buf.Release()
			return found, nil
		}
		found += int(a.blocksInBitmap - bitstart)
		_ = buf.Release()
		if uint32(found) >= maxneeded {
			return found, nil
		}
		bitstart = 0
	}
}

// MarkSpace marks blocks blocks starting at block as allocated (clears
// their bitmap bits) and decrements the cached free-block count.
// Mirrors asfs_markspace.
func (a *Allocator) MarkSpace(block types.Block, blocks uint32) error {
	if avail, err := a.availableSpace(uint32(block), blocks); err != nil {
		return err
	} else if avail < int(blocks) {
		return asfserr.New(asfserr.IO, "bitmap.MarkSpace", fmt.Errorf("block %d: only %d of %d requested blocks are free", block, avail, blocks))
	}

	if err := a.count.SetFreeBlocks(a.count.FreeBlocks() - blocks); err != nil {
		return err
	}

	skip := uint32(block) / a.blocksInBitmap
	cur := uint32(block) - skip*a.blocksInBitmap
	bitmapBlock := a.bitmapBase + types.Block(skip)

	for blocks > 0 {
		buf, err := a.pool.Pin(bitmapBlock, types.IDBitmap)
		if err != nil {
			return err
		}
		bitmapBlock++
		payload := buf.Bytes()[types.BitmapHeaderSize:]

		n := bitfuncs.Bmclr(payload, int(cur), int(blocks))
		blocks -= uint32(n)
		cur = 0

		buf.MarkDirty()
		if err := buf.Release(); err != nil {
			return err
		}
	}
	return nil
}

// FreeSpace marks blocks blocks starting at block as free (sets their
// bitmap bits) and increments the cached free-block count. Mirrors
// asfs_freespace.
func (a *Allocator) FreeSpace(block types.Block, blocks uint32) error {
	freed := blocks

	skip := uint32(block) / a.blocksInBitmap
	cur := uint32(block) - skip*a.blocksInBitmap
	bitmapBlock := a.bitmapBase + types.Block(skip)

	for blocks > 0 {
		buf, err := a.pool.Pin(bitmapBlock, types.IDBitmap)
		if err != nil {
			return err
		}
		bitmapBlock++
		payload := buf.Bytes()[types.BitmapHeaderSize:]

		n := bitfuncs.Bmset(payload, int(cur), int(blocks))
		blocks -= uint32(n)
		cur = 0

		buf.MarkDirty()
		if err := buf.Release(); err != nil {
			return err
		}
	}
	return a.count.SetFreeBlocks(a.count.FreeBlocks() + freed)
}

// FindAndMarkSpace finds blocksneeded contiguous free blocks anywhere on
// the volume and marks them allocated in one step. Returns
// asfserr.NoSpace if no large enough run exists. Mirrors
// findandmarkspace.
func (a *Allocator) FindAndMarkSpace(blocksneeded uint32) (types.Block, error) {
	if !a.enoughSpace(blocksneeded) {
		return 0, asfserr.New(asfserr.NoSpace, "bitmap.FindAndMarkSpace", fmt.Errorf("only %d free blocks left", a.count.FreeBlocks()))
	}
	block, blocks, err := a.FindSpace(blocksneeded, 0, a.totalBlocks)
	if err != nil {
		return 0, err
	}
	if blocks != blocksneeded {
		return 0, asfserr.New(asfserr.NoSpace, "bitmap.FindAndMarkSpace", fmt.Errorf("largest free run is %d blocks, need %d", blocks, blocksneeded))
	}
	if err := a.MarkSpace(block, blocksneeded); err != nil {
		return 0, err
	}
	return block, nil
}
