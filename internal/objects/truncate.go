package objects

import (
	"fmt"

	"github.com/twojstaryzdomu/asfs/internal/asfserr"
	"github.com/twojstaryzdomu/asfs/internal/types"
)

// TruncateBlocksInFile shrinks a file's extent chain so it holds exactly
// the blocks needed for newSize bytes, freeing the tail: the boundary
// extent is cut down to the blocks it keeps, everything after it is
// deleted outright, and an entirely emptied chain clears the file's
// first-extent pointer. Mirrors asfs_truncateblocksinfile.
func (m *Manager) TruncateBlocksInFile(containerBlock types.Block, offset int, obj *types.Object, newSize uint32) error {
	if obj.Data == 0 {
		return nil
	}
	newBlocks := (newSize + m.blockSize - 1) / m.blockSize

	filedata := uint32(obj.Data)
	var node types.ExtentBNode
	var pos uint32
	for {
		var err error
		node, err = m.extents.GetExtent(filedata)
		if err != nil {
			return err
		}
		if pos+uint32(node.Blocks) >= newBlocks {
			break
		}
		pos += uint32(node.Blocks)
		if node.Next == 0 {
			break
		}
		filedata = uint32(node.Next)
	}

	keepBlocks := newBlocks - pos
	if uint32(node.Blocks) < keepBlocks {
		return asfserr.New(asfserr.Invalid, "objects.TruncateBlocksInFile", fmt.Errorf("extent chain of node %d is too short or damaged", obj.ObjectNode))
	}

	if uint32(node.Blocks) > keepBlocks {
		if err := m.space.FreeSpace(types.Block(node.Key+keepBlocks), uint32(node.Blocks)-keepBlocks); err != nil {
			return err
		}
	}
	if node.Next != 0 {
		if err := m.extents.DeleteExtents(uint32(node.Next)); err != nil {
			return err
		}
	}

	node.Blocks = uint16(keepBlocks)
	node.Next = 0
	key := node.Key
	if err := m.extents.UpdateExtent(key, node); err != nil {
		return err
	}

	if keepBlocks == 0 {
		if node.HasOwnerTag() {
			obj.Data = 0
			if err := m.storeObjectField(containerBlock, offset, obj); err != nil {
				return err
			}
		} else {
			prev, err := m.extents.GetExtent(node.Prev)
			if err != nil {
				return err
			}
			prev.Next = 0
			if err := m.extents.UpdateExtent(prev.Key, prev); err != nil {
				return err
			}
		}
		if err := m.extents.DeleteBNode(key); err != nil {
			return err
		}
	}

	return nil
}
