package extentbtree

import (
	"fmt"

	"github.com/twojstaryzdomu/asfs/internal/asfserr"
	"github.com/twojstaryzdomu/asfs/internal/types"
)

// extentLocation finds the leaf block and slot index of the extent with
// the given key, or asfserr.NotFound.
func (t *Tree) extentLocation(key uint32) (types.Block, int, error) {
	loc, err := t.findBNode(key)
	if err != nil {
		return 0, 0, err
	}
	defer loc.leaf.release()
	if loc.index < 0 || keyAtIdx(loc.leaf.body(), loc.leaf.nodesize(), loc.index) != key {
		return 0, 0, asfserr.New(asfserr.NotFound, "extentbtree.extentLocation", fmt.Errorf("no extent with key %d", key))
	}
	return loc.leaf.block(), loc.index, nil
}

// AddBlocks attaches blocks contiguous data blocks starting at newspace
// to a file's extent chain, extending the last extent in place when
// newspace is contiguous with it and its run count has headroom,
// otherwise appending a new leaf entry. lastExtentBNode is 0 when the
// file has no chain yet. Returns the (possibly unchanged) key of the
// chain's new last extent. Mirrors asfs_addblocks.
func (t *Tree) AddBlocks(blocks uint16, newspace types.Block, objectNode uint32, lastExtentBNode types.Block) (types.Block, error) {
	if lastExtentBNode != 0 {
		block, idx, err := t.extentLocation(uint32(lastExtentBNode))
		if err != nil {
			return 0, err
		}
		ebn, err := t.GetExtentAt(block, idx)
		if err != nil {
			return 0, err
		}

		if ebn.Key+uint32(ebn.Blocks) == uint32(newspace) && uint32(ebn.Blocks)+uint32(blocks) < 65536 {
			ebn.Blocks += blocks
			if err := t.SetExtentAt(block, idx, ebn); err != nil {
				return 0, err
			}
			return lastExtentBNode, nil
		}

		ebn.Next = newspace
		if err := t.SetExtentAt(block, idx, ebn); err != nil {
			return 0, err
		}

		newBlock, newIdx, err := t.CreateExtentBNode(uint32(newspace))
		if err != nil {
			return 0, err
		}
		newNode := types.ExtentBNode{Key: uint32(newspace), Prev: uint32(lastExtentBNode), Next: 0, Blocks: blocks}
		if err := t.SetExtentAt(newBlock, newIdx, newNode); err != nil {
			return 0, err
		}
		return newspace, nil
	}

	newBlock, newIdx, err := t.CreateExtentBNode(uint32(newspace))
	if err != nil {
		return 0, err
	}
	newNode := types.ExtentBNode{Key: uint32(newspace), Next: 0, Blocks: blocks}
	newNode = newNode.WithOwnerNode(objectNode)
	if err := t.SetExtentAt(newBlock, newIdx, newNode); err != nil {
		return 0, err
	}
	return newspace, nil
}

// UpdateExtent rewrites the leaf record for key in place, for callers
// that have an ExtentBNode in hand (e.g. from GetExtent) and only need
// to patch its Blocks/Next fields rather than relocate it.
func (t *Tree) UpdateExtent(key uint32, node types.ExtentBNode) error {
	block, idx, err := t.extentLocation(key)
	if err != nil {
		return err
	}
	return t.SetExtentAt(block, idx, node)
}

// DeleteExtents walks and removes every extent in a file's chain
// starting at key, freeing each run's data blocks. Mirrors
// asfs_deleteextents.
func (t *Tree) DeleteExtents(key uint32) error {
	for key != 0 {
		ebn, err := t.GetExtent(key)
		if err != nil {
			return err
		}
		next := uint32(ebn.Next)

		if err := t.space.FreeSpace(types.Block(ebn.Key), uint32(ebn.Blocks)); err != nil {
			return err
		}
		if err := t.DeleteBNode(ebn.Key); err != nil {
			return err
		}

		key = next
	}
	return nil
}
