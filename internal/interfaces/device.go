// Package interfaces holds the public contracts for each ASFS concern,
// one small interface per file, grouped by the component that consumes
// it.
package interfaces

import "github.com/twojstaryzdomu/asfs/internal/types"

// BlockDevice is the fixed-size block I/O abstraction the engine is
// built on. It carries no vendor info, no removable-media probing, and
// no container auto-detection: ASFS's external layer never needs that.
type BlockDevice interface {
	// BlockSize returns the device's fixed block size in bytes.
	BlockSize() uint32

	// TotalBlocks returns the total number of blocks on the device.
	TotalBlocks() uint32

	// ReadBlock reads one block into a freshly allocated buffer.
	ReadBlock(block types.Block) ([]byte, error)

	// WriteBlock writes a full block's worth of data.
	WriteBlock(block types.Block, data []byte) error

	// ReadOnly reports whether writes are rejected.
	ReadOnly() bool

	// Flush commits any buffered writes to the backing store.
	Flush() error

	// Close releases the device.
	Close() error
}

// Buffer is a pinned, owned view of one block's payload: an owned handle
// that releases on scope exit and offers a safe typed view into its
// payload with endian conversion at the boundary. Buffers are not safe
// for concurrent use; the engine's single coarse volume lock is what
// makes that safe in practice.
type Buffer interface {
	// Block returns the block number this buffer is pinned to.
	Block() types.Block

	// Bytes returns the mutable backing array. Callers must not retain
	// it past Release.
	Bytes() []byte

	// MarkDirty flags the buffer for a checksum reseal and flush on
	// Release.
	MarkDirty()

	// Release re-checksums (if dirty) and writes the buffer back,
	// then returns it to the pin pool. Safe to call exactly once.
	Release() error
}

// BufferPool pins and releases block buffers, centralising the
// re-checksum-on-dirty-release behaviour so every allocator and tree
// package shares one implementation.
type BufferPool interface {
	// Pin reads block and returns an owned Buffer. typ is the expected
	// block-id tag; 0 means "don't check" (used when formatting a
	// brand-new block before its header is written).
	Pin(block types.Block, typ uint32) (Buffer, error)

	// New pins a freshly zero-initialised block tagged typ, without
	// reading the device: used whenever an allocator hands out a fresh
	// admin block and needs to write its initialised content.
	New(block types.Block, typ uint32) (Buffer, error)

	Device() BlockDevice
}
