package adminspace_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/twojstaryzdomu/asfs/internal/adminspace"
	"github.com/twojstaryzdomu/asfs/internal/bitmap"
	"github.com/twojstaryzdomu/asfs/internal/blockcodec"
	"github.com/twojstaryzdomu/asfs/internal/interfaces"
	"github.com/twojstaryzdomu/asfs/internal/types"
)

type memPool struct {
	blockSize uint32
	blocks    map[types.Block][]byte
}

func newMemPool(blockSize uint32) *memPool { return &memPool{blockSize: blockSize, blocks: make(map[types.Block][]byte)} }

func (p *memPool) Device() interfaces.BlockDevice { return nil }

func (p *memPool) Pin(block types.Block, typ uint32) (interfaces.Buffer, error) {
	data, ok := p.blocks[block]
	if !ok {
		data = make([]byte, p.blockSize)
		for i := types.BlockHeaderSize; i < len(data); i++ {
			data[i] = 0xff
		}
		blockcodec.InitBlock(data, types.IDBitmap, block)
		blockcodec.Seal(data)
		p.blocks[block] = data
	}
	return &memBuffer{pool: p, block: block, data: append([]byte(nil), data...)}, nil
}

func (p *memPool) New(block types.Block, typ uint32) (interfaces.Buffer, error) {
	buf := make([]byte, p.blockSize)
	blockcodec.InitBlock(buf, typ, block)
	return &memBuffer{pool: p, block: block, data: buf, dirty: true}, nil
}

type memBuffer struct {
	pool  *memPool
	block types.Block
	data  []byte
	dirty bool
}

func (b *memBuffer) Block() types.Block { return b.block }
func (b *memBuffer) Bytes() []byte      { return b.data }
func (b *memBuffer) MarkDirty()         { b.dirty = true }
func (b *memBuffer) Release() error {
	if b.dirty {
		blockcodec.Seal(b.data)
		b.pool.blocks[b.block] = b.data
	}
	return nil
}

type counter struct{ free uint32 }

func (c *counter) FreeBlocks() uint32           { return c.free }
func (c *counter) SetFreeBlocks(n uint32) error { c.free = n; return nil }

func TestAllocGrowsChainThenFrees(t *testing.T) {
	const blockSize = 64
	pool := newMemPool(blockSize)

	// Seed the root AdminSpaceContainer at block 100 with a single,
	// already-full region so the first Alloc is forced to grow the chain.
	rootBlock := types.Block(100)
	rootBuf, err := pool.New(rootBlock, types.IDAdminSpace)
	require.NoError(t, err)
	var root types.AdminSpaceContainer
	root.Bits = 1
	root.Encode(rootBuf.Bytes())
	types.EncodeAdminSpace(rootBuf.Bytes()[types.AdminSpaceContainerHeaderSize:], types.AdminSpace{Space: rootBlock, Bits: 0xffffffff})
	rootBuf.MarkDirty()
	require.NoError(t, rootBuf.Release())

	bitsPerBitmapBlock := (blockSize - types.BitmapHeaderSize) * 8
	c := &counter{free: bitsPerBitmapBlock * 4}
	space := bitmap.NewAllocator(pool, c, 200, blockSize, bitsPerBitmapBlock*4)

	a := adminspace.NewAllocator(pool, space, rootBlock, blockSize)
	b, err := a.Alloc()
	require.NoError(t, err)
	require.NotZero(t, b)

	require.NoError(t, a.Free(b))
}
