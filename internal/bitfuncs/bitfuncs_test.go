package bitfuncs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twojstaryzdomu/asfs/internal/bitfuncs"
)

func TestBfffoBfffz(t *testing.T) {
	assert.Equal(t, 0, bitfuncs.Bfffo(0x80000000, 0))
	assert.Equal(t, 8, bitfuncs.Bfffo(0x00800000, 0))
	assert.Equal(t, -1, bitfuncs.Bfffo(0x00000000, 0))
	assert.Equal(t, 31, bitfuncs.Bfffo(0x00000001, 1))

	assert.Equal(t, 0, bitfuncs.Bfffz(0x00000000, 0))
	assert.Equal(t, 31, bitfuncs.Bfffz(0xfffffffe, 0))
	assert.Equal(t, -1, bitfuncs.Bfffz(0xffffffff, 0))
}

func TestBfsetBfclr(t *testing.T) {
	assert.Equal(t, uint32(0xf0000000), bitfuncs.Bfset(0, 0, 4))
	assert.Equal(t, uint32(0x0f000000), bitfuncs.Bfset(0, 4, 4))
	assert.Equal(t, uint32(0x0fffffff), bitfuncs.Bfclr(0xffffffff, 0, 4))
}

func TestBmffoBmffzAcrossWords(t *testing.T) {
	bm := make([]byte, 8) // 64 bits, all free (bits=1 semantics handled by caller)
	bm[4] = 0x01           // bit 39 set within the second word
	require.Equal(t, 39, bitfuncs.Bmffo(bm, 0))
	require.Equal(t, 0, bitfuncs.Bmffz(bm, 0))

	for i := range bm {
		bm[i] = 0xff
	}
	require.Equal(t, -1, bitfuncs.Bmffz(bm, 0))
	require.Equal(t, 0, bitfuncs.Bmffo(bm, 0))
}

func TestBmsetBmclr(t *testing.T) {
	bm := make([]byte, 8)
	n := bitfuncs.Bmset(bm, 4, 40)
	require.Equal(t, 40, n)
	// bits [4,44) set within a 64-bit region: first nibble stays clear.
	assert.Equal(t, byte(0x0f), bm[0])
	assert.Equal(t, byte(0xff), bm[1])
	assert.Equal(t, byte(0xff), bm[4])
	assert.Equal(t, byte(0xf0), bm[5])

	cleared := bitfuncs.Bmclr(bm, 4, 40)
	require.Equal(t, 40, cleared)
	for _, b := range bm {
		assert.Equal(t, byte(0), b)
	}
}

func TestBmsetStopsAtRegionEnd(t *testing.T) {
	bm := make([]byte, 4)
	n := bitfuncs.Bmset(bm, 30, 10)
	require.Equal(t, 2, n)
	assert.Equal(t, byte(0x03), bm[3])
}
