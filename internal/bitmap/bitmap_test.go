package bitmap_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/twojstaryzdomu/asfs/internal/bitmap"
	"github.com/twojstaryzdomu/asfs/internal/blockcodec"
	"github.com/twojstaryzdomu/asfs/internal/interfaces"
	"github.com/twojstaryzdomu/asfs/internal/types"
)

// memPool is a minimal in-memory interfaces.BufferPool/BlockDevice fixture,
// backed by plain []byte block buffers.
type memPool struct {
	blockSize uint32
	blocks    map[types.Block][]byte
}

func newMemPool(blockSize uint32, total int) *memPool {
	p := &memPool{blockSize: blockSize, blocks: make(map[types.Block][]byte)}
	for i := 0; i < total; i++ {
		buf := make([]byte, blockSize)
		blockcodec.InitBlock(buf, types.IDBitmap, types.Block(i))
		for j := types.BitmapHeaderSize; j < len(buf); j++ {
			buf[j] = 0xff // all free
		}
		blockcodec.Seal(buf)
		p.blocks[types.Block(i)] = buf
	}
	return p
}

func (p *memPool) Device() interfaces.BlockDevice { return nil }

func (p *memPool) Pin(block types.Block, typ uint32) (interfaces.Buffer, error) {
	return &memBuffer{pool: p, block: block, data: append([]byte(nil), p.blocks[block]...)}, nil
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

func (c *counter) FreeBlocks() uint32         { return c.free }
func (c *counter) SetFreeBlocks(n uint32) error { c.free = n; return nil }

func TestFindAndMarkSpaceThenFree(t *testing.T) {
	const blockSize = 64
	const totalBlocks = 40 // fits in one bitmap block of (64-12)*8=416 bits, plenty
	pool := newMemPool(blockSize, 4)
	bitsPerBlock := (blockSize - types.BitmapHeaderSize) * 8
	c := &counter{free: bitsPerBlock * 4}

	a := bitmap.NewAllocator(pool, c, 0, blockSize, bitsPerBlock*4)
	_ = totalBlocks

	block, err := a.FindAndMarkSpace(10)
	require.NoError(t, err)
	require.Equal(t, types.Block(0), block)
	require.Equal(t, bitsPerBlock*4-10, c.FreeBlocks())

	require.NoError(t, a.FreeSpace(block, 10))
	require.Equal(t, bitsPerBlock*4, c.FreeBlocks())
}

func TestFindAndMarkSpaceFailsWhenFull(t *testing.T) {
	const blockSize = 64
	pool := newMemPool(blockSize, 1)
	bitsPerBlock := (blockSize - types.BitmapHeaderSize) * 8
	c := &counter{free: types.AlwaysFree}

	a := bitmap.NewAllocator(pool, c, 0, blockSize, bitsPerBlock)
	_, err := a.FindAndMarkSpace(5)
	require.Error(t, err)
}
