package volume

import "github.com/twojstaryzdomu/asfs/internal/types"

// loadRootInfo reads the RootInfo trailer embedded in the last
// types.RootInfoSize bytes of the root object container block.
func (v *Volume) loadRootInfo() error {
	buf, err := v.pool.Pin(v.root.RootObjectContainer, 0)
	if err != nil {
		return err
	}
	off := len(buf.Bytes()) - types.RootInfoSize
	v.info.Decode(buf.Bytes()[off:])
	return buf.Release()
}

// persistRootInfo rewrites the RootInfo trailer in place.
func (v *Volume) persistRootInfo() error {
	buf, err := v.pool.Pin(v.root.RootObjectContainer, 0)
	if err != nil {
		return err
	}
	off := len(buf.Bytes()) - types.RootInfoSize
	v.info.Encode(buf.Bytes()[off:])
	buf.MarkDirty()
	return buf.Release()
}

// FreeBlocks implements internal/bitmap.FreeBlockCounter: the cached
// population count of the bitmap's free bits.
func (v *Volume) FreeBlocks() uint32 { return v.info.FreeBlocks }

// SetFreeBlocks implements internal/bitmap.FreeBlockCounter, persisting
// the new count to the root info trailer immediately: the counter must
// never lag the bitmap on allocation and never lead it on free (spec
// §5's crash-ordering guarantee), so every update is flushed rather than
// batched.
func (v *Volume) SetFreeBlocks(n uint32) error {
	v.info.FreeBlocks = n
	return v.persistRootInfo()
}

// AdjustRecycled implements internal/objects.RecycledCounters: the
// recycled directory's cosmetic deletedfiles/deletedblocks accounting
// (spec Design Notes §9 — these may drift after a crash without
// compromising consistency).
func (v *Volume) AdjustRecycled(deltaFiles, deltaBlocks int32) error {
	v.info.DeletedFiles = uint32(int32(v.info.DeletedFiles) + deltaFiles)
	v.info.DeletedBlocks = uint32(int32(v.info.DeletedBlocks) + deltaBlocks)
	return v.persistRootInfo()
}
