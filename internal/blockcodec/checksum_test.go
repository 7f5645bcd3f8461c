package blockcodec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twojstaryzdomu/asfs/internal/asfserr"
	"github.com/twojstaryzdomu/asfs/internal/blockcodec"
	"github.com/twojstaryzdomu/asfs/internal/types"
)

func TestSealRoundTrips(t *testing.T) {
	buf := make([]byte, 64)
	blockcodec.InitBlock(buf, types.IDBitmap, 7)
	for i := types.BlockHeaderSize; i < len(buf); i++ {
		buf[i] = byte(i * 3)
	}
	blockcodec.Seal(buf)
	assert.Equal(t, uint32(0), blockcodec.Checksum(buf))
}

func TestVerifierCatchesCorruption(t *testing.T) {
	buf := make([]byte, 32)
	blockcodec.InitBlock(buf, types.IDObjectContainer, 42)
	blockcodec.Seal(buf)

	v := blockcodec.Verifier{ExpectedID: types.IDObjectContainer, ExpectedOwnBlock: 42, Payload: buf}
	require.NoError(t, v.Verify())

	buf[len(buf)-1] ^= 0xff
	v2 := blockcodec.Verifier{ExpectedID: types.IDObjectContainer, ExpectedOwnBlock: 42, Payload: buf}
	err := v2.Verify()
	require.Error(t, err)
	kind, ok := asfserr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, asfserr.IO, kind)
}

func TestVerifierChecksWrongOwnBlock(t *testing.T) {
	buf := make([]byte, 16)
	blockcodec.InitBlock(buf, types.IDBitmap, 3)
	blockcodec.Seal(buf)

	v := blockcodec.Verifier{ExpectedID: types.IDBitmap, ExpectedOwnBlock: 4, Payload: buf}
	err := v.Verify()
	require.Error(t, err)
}
