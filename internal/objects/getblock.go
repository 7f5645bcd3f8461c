package objects

import (
	"fmt"

	"github.com/twojstaryzdomu/asfs/internal/asfserr"
	"github.com/twojstaryzdomu/asfs/internal/types"
)

// GetBlock translates a file's logical block index into a physical
// device block, walking its extent chain and summing run lengths. When
// no extent covers logicalBlock and create is true, it grows the file
// in BlockChunks-sized runs (the minimum extension unit, spec §9's
// ASFS_BLOCKCHUNKS) until one covers logicalBlock, and returns that
// newly allocated physical block.
// Mirrors the page-cache block-mapping hook spec §6 describes; the
// original's asfs_get_block lives in file.c, out of the core's scope,
// but the extent-walk it depends on belongs here.
func (m *Manager) GetBlock(containerBlock types.Block, offset int, obj *types.Object, logicalBlock uint32, create bool) (types.Block, error) {
	wantedSize := (uint64(logicalBlock) + 1) * uint64(m.blockSize)

	if obj.Data != 0 {
		var pos uint32
		key := uint32(obj.Data)
		for {
			node, err := m.extents.GetExtent(key)
			if err != nil {
				return 0, err
			}
			if logicalBlock < pos+uint32(node.Blocks) {
				return types.Block(node.Key) + types.Block(logicalBlock-pos), nil
			}
			pos += uint32(node.Blocks)
			if node.Next == 0 {
				break
			}
			key = uint32(node.Next)
		}
	}

	if !create {
		return 0, asfserr.New(asfserr.NotFound, "objects.GetBlock", fmt.Errorf("logical block %d is beyond the file's current extent chain", logicalBlock))
	}

	for {
		if _, _, err := m.AddBlocksToFile(containerBlock, offset, obj, types.BlockChunks); err != nil {
			return 0, err
		}
		if obj.Size < uint32(wantedSize) {
			obj.Size = uint32(wantedSize)
			if err := m.storeObjectField(containerBlock, offset, obj); err != nil {
				return 0, err
			}
		}
		var pos uint32
		key := uint32(obj.Data)
		for {
			node, err := m.extents.GetExtent(key)
			if err != nil {
				return 0, err
			}
			if logicalBlock < pos+uint32(node.Blocks) {
				return types.Block(node.Key) + types.Block(logicalBlock-pos), nil
			}
			pos += uint32(node.Blocks)
			if node.Next == 0 {
				break
			}
			key = uint32(node.Next)
		}
	}
}
