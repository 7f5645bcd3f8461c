// Package blockcodec implements block checksum computation/verification
// and typed block fetch/initialise, grounded on super.c:asfs_calcchecksum
// and shaped as an Inspector{header,payload}, Verify() error idiom.
package blockcodec

import (
	"encoding/binary"
	"fmt"

	"github.com/twojstaryzdomu/asfs/internal/asfserr"
	"github.com/twojstaryzdomu/asfs/internal/types"
)

// Checksum computes the Amiga-style sum-to-zero checksum of a block: sum
// every big-endian 32-bit word (including the stored checksum field
// itself) with an initial seed of 1. The value that must be written into
// the checksum field for the block to validate is the negation of that
// sum relative to the field's current contents, i.e. recompute with the
// field left as-is and the result is 0 exactly when the block is valid.
func Checksum(block []byte) uint32 {
	sum := types.BlockChecksumSeed
	for i := 0; i+4 <= len(block); i += 4 {
		sum += binary.BigEndian.Uint32(block[i:])
	}
	return sum
}

// Seal recomputes and writes the checksum field (bytes [4:8] of the block
// header) so that Checksum(block) == 0 afterwards.
func Seal(block []byte) {
	binary.BigEndian.PutUint32(block[4:8], 0)
	sum := Checksum(block)
	binary.BigEndian.PutUint32(block[4:8], -sum)
}

// Verifier checks a fetched block against the id and own-block number the
// caller expected, and validates its checksum.
type Verifier struct {
	ExpectedID       uint32
	ExpectedOwnBlock types.Block
	Payload          []byte
}

// Verify returns an *asfserr.Error with Kind asfserr.IO describing the
// first mismatch found, or nil if the block is intact.
func (v *Verifier) Verify() error {
	if len(v.Payload) < types.BlockHeaderSize {
		return asfserr.New(asfserr.IO, "blockcodec.Verify", fmt.Errorf("short block: %d bytes", len(v.Payload)))
	}
	var hdr types.BlockHeader
	hdr.Decode(v.Payload)
	if hdr.ID != v.ExpectedID {
		return asfserr.New(asfserr.IO, "blockcodec.Verify", fmt.Errorf("block %d: id %08x, want %08x", v.ExpectedOwnBlock, hdr.ID, v.ExpectedID))
	}
	if hdr.OwnBlock != v.ExpectedOwnBlock {
		return asfserr.New(asfserr.IO, "blockcodec.Verify", fmt.Errorf("block %d: ownblock field says %d", v.ExpectedOwnBlock, hdr.OwnBlock))
	}
	if Checksum(v.Payload) != 0 {
		return asfserr.New(asfserr.IO, "blockcodec.Verify", fmt.Errorf("block %d: checksum mismatch", v.ExpectedOwnBlock))
	}
	return nil
}

// InitBlock zero-fills buf and writes a fresh BlockHeader (id, own-block,
// checksum left at 0 until the caller fills the payload and calls Seal).
func InitBlock(buf []byte, id uint32, own types.Block) {
	for i := range buf {
		buf[i] = 0
	}
	hdr := types.BlockHeader{ID: id, OwnBlock: own}
	hdr.Encode(buf)
}
