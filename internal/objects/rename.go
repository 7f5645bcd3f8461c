package objects

import "github.com/twojstaryzdomu/asfs/internal/types"

// RenameObject moves the object at (containerBlock, offset) into the
// directory identified by newParentNode under newName, preserving its
// node-number (and so its identity to anything holding a reference to
// it). It dehashes from the old directory, compacts the old record out,
// then re-creates it in the new directory with the preserved node. If
// re-creation fails, it tries to restore the object under its original
// name and parent; callers should treat any returned error as "the
// object's final location could not be confirmed" regardless of which
// attempt failed. Mirrors asfs_renameobject.
func (m *Manager) RenameObject(containerBlock types.Block, offset int, obj types.Object, oldParentNode, newParentNode uint32, newName string) (types.Block, int, types.Object, error) {
	original := obj
	oldName := obj.Name

	if err := m.dehashObjectQuick(uint32(obj.ObjectNode), obj.Name, oldParentNode); err != nil {
		return 0, 0, types.Object{}, err
	}

	if err := m.simpleRemoveObject(containerBlock, offset, &obj); err != nil {
		return 0, 0, types.Object{}, err
	}
	if oldParentNode == types.RecycledNode {
		blocks := (original.Size + m.blockSize - 1) / m.blockSize
		if err := m.recycled.AdjustRecycled(-1, -int32(blocks)); err != nil {
			return 0, 0, types.Object{}, err
		}
	}

	// The destination directory's own record may have moved when
	// simpleRemoveObject compacted a container it shared; re-locate it
	// fresh rather than trusting a pre-removal snapshot.
	freshParentBlock, freshParentOff, freshParent, err := m.ReadObject(newParentNode)
	if err != nil {
		return 0, 0, types.Object{}, err
	}

	newBlock, newOff, newObj, createErr := m.CreateObject(freshParentBlock, freshParentOff, &freshParent, original, newName, true)
	if createErr == nil {
		if newParentNode == types.RecycledNode {
			blocks := (newObj.Size + m.blockSize - 1) / m.blockSize
			if err := m.recycled.AdjustRecycled(1, int32(blocks)); err != nil {
				return 0, 0, types.Object{}, err
			}
		}
		return newBlock, newOff, newObj, nil
	}

	// Re-creation in the destination failed; try to put the object back
	// where it came from so it is not lost.
	oldParentBlock, oldParentOff, oldParent, err := m.ReadObject(oldParentNode)
	if err != nil {
		return 0, 0, types.Object{}, createErr
	}
	_, _, restoredObj, restoreErr := m.CreateObject(oldParentBlock, oldParentOff, &oldParent, original, oldName, true)
	if restoreErr != nil {
		return 0, 0, types.Object{}, createErr
	}
	if oldParentNode == types.RecycledNode {
		blocks := (restoredObj.Size + m.blockSize - 1) / m.blockSize
		_ = m.recycled.AdjustRecycled(1, int32(blocks))
	}
	return 0, 0, types.Object{}, createErr
}
