// Package deviceio implements the block device underneath the engine: a
// plain file- or image-backed device plus the buffer pool every other
// package pins blocks through, adapted down to ASFS's flatter,
// single-partition model.
package deviceio

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/twojstaryzdomu/asfs/internal/asfserr"
	"github.com/twojstaryzdomu/asfs/internal/blockcodec"
	"github.com/twojstaryzdomu/asfs/internal/interfaces"
	"github.com/twojstaryzdomu/asfs/internal/types"
)

// FileDevice is a BlockDevice backed by an *os.File (a raw partition node
// or a flat disk image), fixed at a given block size.
type FileDevice struct {
	mu sync.Mutex

	f           *os.File
	blockSize   uint32
	totalBlocks uint32
	readOnly    bool
}

var _ interfaces.BlockDevice = (*FileDevice)(nil)

// Open opens path for an ASFS mount. blockSize and totalBlocks describe
// the addressable region; callers typically discover these with a 512-byte
// probe read of the root block before calling Open, then reopen with the
// real values.
func Open(path string, blockSize, totalBlocks uint32, readOnly bool) (*FileDevice, error) {
	flag := os.O_RDWR
	if readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		if !readOnly && os.IsPermission(err) {
			f, err = os.OpenFile(path, os.O_RDONLY, 0)
			if err == nil {
				readOnly = true
			}
		}
		if err != nil {
			return nil, asfserr.New(asfserr.IO, "deviceio.Open", err)
		}
	}
	return &FileDevice{f: f, blockSize: blockSize, totalBlocks: totalBlocks, readOnly: readOnly}, nil
}

func (d *FileDevice) BlockSize() uint32   { return d.blockSize }
func (d *FileDevice) TotalBlocks() uint32 { return d.totalBlocks }
func (d *FileDevice) ReadOnly() bool      { return d.readOnly }

func (d *FileDevice) ReadBlock(block types.Block) ([]byte, error) {
	if uint32(block) >= d.totalBlocks {
		return nil, asfserr.New(asfserr.Invalid, "deviceio.ReadBlock", fmt.Errorf("block %d out of range (%d total)", block, d.totalBlocks))
	}
	buf := make([]byte, d.blockSize)
	d.mu.Lock()
	_, err := d.f.ReadAt(buf, int64(block)*int64(d.blockSize))
	d.mu.Unlock()
	if err != nil && err != io.EOF {
		return nil, asfserr.New(asfserr.IO, "deviceio.ReadBlock", err)
	}
	return buf, nil
}

func (d *FileDevice) WriteBlock(block types.Block, data []byte) error {
	if d.readOnly {
		return asfserr.New(asfserr.ReadOnly, "deviceio.WriteBlock", fmt.Errorf("volume mounted read-only"))
	}
	if uint32(block) >= d.totalBlocks {
		return asfserr.New(asfserr.Invalid, "deviceio.WriteBlock", fmt.Errorf("block %d out of range (%d total)", block, d.totalBlocks))
	}
	if uint32(len(data)) != d.blockSize {
		return asfserr.New(asfserr.Invalid, "deviceio.WriteBlock", fmt.Errorf("short write: %d bytes, want %d", len(data), d.blockSize))
	}
	d.mu.Lock()
	_, err := d.f.WriteAt(data, int64(block)*int64(d.blockSize))
	d.mu.Unlock()
	if err != nil {
		return asfserr.New(asfserr.IO, "deviceio.WriteBlock", err)
	}
	return nil
}

func (d *FileDevice) Flush() error {
	if d.readOnly {
		return nil
	}
	if err := d.f.Sync(); err != nil {
		return asfserr.New(asfserr.IO, "deviceio.Flush", err)
	}
	return nil
}

func (d *FileDevice) Close() error { return d.f.Close() }

// buffer is the default interfaces.Buffer implementation: a pinned copy
// of a block's bytes, re-checksummed and written back through pool on a
// dirty Release.
type buffer struct {
	pool  *Pool
	block types.Block
	data  []byte
	dirty bool
}

func (b *buffer) Block() types.Block { return b.block }
func (b *buffer) Bytes() []byte      { return b.data }
func (b *buffer) MarkDirty()         { b.dirty = true }

func (b *buffer) Release() error {
	if !b.dirty {
		return nil
	}
	blockcodec.Seal(b.data)
	return b.pool.dev.WriteBlock(b.block, b.data)
}

// Pool is the straightforward interfaces.BufferPool: it does no caching
// beyond the single in-flight buffer — the single coarse volume lock
// makes that sufficient, since there is never more than one mutator
// active at a time.
type Pool struct {
	dev interfaces.BlockDevice
}

var _ interfaces.BufferPool = (*Pool)(nil)

// NewPool wraps dev in a BufferPool.
func NewPool(dev interfaces.BlockDevice) *Pool { return &Pool{dev: dev} }

func (p *Pool) Device() interfaces.BlockDevice { return p.dev }

func (p *Pool) Pin(block types.Block, typ uint32) (interfaces.Buffer, error) {
	data, err := p.dev.ReadBlock(block)
	if err != nil {
		return nil, err
	}
	if typ != 0 {
		v := blockcodec.Verifier{ExpectedID: typ, ExpectedOwnBlock: block, Payload: data}
		if err := v.Verify(); err != nil {
			return nil, err
		}
	}
	return &buffer{pool: p, block: block, data: data}, nil
}

func (p *Pool) New(block types.Block, typ uint32) (interfaces.Buffer, error) {
	data := make([]byte, p.dev.BlockSize())
	blockcodec.InitBlock(data, typ, block)
	return &buffer{pool: p, block: block, data: data, dirty: true}, nil
}
