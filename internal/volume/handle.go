// Package volume implements Component G: root-block/superblock parsing,
// the mount sequence (probe, reopen, checksum + mirror + transaction-
// failure validation), and the external API spec §6 exposes to a VFS
// layer, built as a single facade over the lower components (which
// never call back into it — control flow is always top-down per spec
// §2). Grounded on original_source/src/super.c
// (asfs_fill_super/asfs_calcchecksum/asfs_statfs) and dir.c
// (asfs_readdir/asfs_lookup).
package volume

import (
	"sync"

	"github.com/google/uuid"

	"github.com/twojstaryzdomu/asfs/internal/adminspace"
	"github.com/twojstaryzdomu/asfs/internal/bitmap"
	"github.com/twojstaryzdomu/asfs/internal/deviceio"
	"github.com/twojstaryzdomu/asfs/internal/extentbtree"
	"github.com/twojstaryzdomu/asfs/internal/interfaces"
	"github.com/twojstaryzdomu/asfs/internal/objectnode"
	"github.com/twojstaryzdomu/asfs/internal/objects"
	"github.com/twojstaryzdomu/asfs/internal/types"
)

// Volume is a mounted ASFS instance: the single coarse lock spec §5
// requires plus every allocator, index and manager wired together. It
// is the only type other packages' callers interact with; nothing
// inside internal/{bitmap,adminspace,extentbtree,objectnode,objects}
// ever references a Volume back.
type Volume struct {
	mu sync.Mutex

	pool interfaces.BufferPool
	dev  interfaces.BlockDevice

	root types.RootBlock
	info types.RootInfo
	flg  flags

	admin   *adminspace.Allocator
	space   *bitmap.Allocator
	nodes   *objectnode.Tree
	extents *extentbtree.Tree
	objs    *objects.Manager

	cfg *deviceio.MountConfig

	// SessionID correlates overlapping CLI invocations against the same
	// image in logs; ASFS's on-disk format carries no UUID field, so
	// this lives purely in memory (spec.md has no analogue — see
	// SPEC_FULL.md §2).
	SessionID uuid.UUID
}

var _ bitmap.FreeBlockCounter = (*Volume)(nil)
var _ objects.RecycledCounters = (*Volume)(nil)

// ReadOnly reports whether writes are rejected, either because the
// device itself is read-only or because mount forced read-only status
// (corrupt mirror root, or a transaction-failure sentinel block).
func (v *Volume) ReadOnly() bool { return v.flg.ReadOnly() || v.dev.ReadOnly() }

// BlockSize returns the device's fixed block size in bytes.
func (v *Volume) BlockSize() uint32 { return v.dev.BlockSize() }

// TotalBlocks returns the volume's total block count.
func (v *Volume) TotalBlocks() uint32 { return v.root.TotalBlocks }

// Close flushes and releases the backing device.
func (v *Volume) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.dev.Flush(); err != nil {
		return err
	}
	return v.dev.Close()
}

func deviceOptsReadOnly(cfg *deviceio.MountConfig) bool {
	return cfg != nil && cfg.ReadOnly
}
