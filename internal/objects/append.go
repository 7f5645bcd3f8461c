package objects

import "github.com/twojstaryzdomu/asfs/internal/types"

// AddBlocksToFile grows a file's data by locating free space after its
// current last extent (or anywhere, for an empty file) and threading it
// onto the extent chain. It may allocate fewer blocks than requested
// when the free-space search returns a shorter run; callers that need
// more must call again. containerBlock/offset/obj locate the file's own
// object record, rewritten in place the first time it gains any data.
// Returns the new space's starting block and how many blocks were
// actually added. Mirrors asfs_addblockstofile.
func (m *Manager) AddBlocksToFile(containerBlock types.Block, offset int, obj *types.Object, blocksWanted uint32) (newspace types.Block, added uint32, err error) {
	var lastKey uint32
	var lastBlocks uint32
	if obj.Data != 0 {
		node, err := m.extents.GetExtent(uint32(obj.Data))
		if err != nil {
			return 0, 0, err
		}
		for node.Next != 0 {
			node, err = m.extents.GetExtent(uint32(node.Next))
			if err != nil {
				return 0, 0, err
			}
		}
		lastKey = node.Key
		lastBlocks = uint32(node.Blocks)
	}

	searchStart := uint32(0)
	if obj.Data != 0 {
		searchStart = lastKey + lastBlocks
	}

	foundBlock, foundBlocks, err := m.space.FindSpace(blocksWanted, searchStart, searchStart)
	if err != nil {
		return 0, 0, err
	}
	if err := m.space.MarkSpace(foundBlock, foundBlocks); err != nil {
		return 0, 0, err
	}

	lastExtentBNode := types.Block(0)
	if obj.Data != 0 {
		lastExtentBNode = types.Block(lastKey)
	}
	newTail, err := m.extents.AddBlocks(uint16(foundBlocks), foundBlock, uint32(obj.ObjectNode), lastExtentBNode)
	if err != nil {
		return 0, 0, err
	}

	if obj.Data == 0 {
		obj.Data = newTail
		if err := m.storeObjectField(containerBlock, offset, obj); err != nil {
			return 0, 0, err
		}
	}

	return foundBlock, foundBlocks, nil
}
