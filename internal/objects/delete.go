package objects

import (
	"fmt"

	"github.com/twojstaryzdomu/asfs/internal/asfserr"
	"github.com/twojstaryzdomu/asfs/internal/types"
)

// removeObjectContainer unlinks an emptied object container from its
// directory's chain (fixing whichever of its neighbours exist, or the
// parent directory's FirstDirBlock if it was the chain head) and frees
// its admin block. Mirrors removeobjectcontainer.
func (m *Manager) removeObjectContainer(containerBlock types.Block) error {
	buf, err := m.pinObjectContainer(containerBlock)
	if err != nil {
		return err
	}
	var oc types.ObjectContainer
	oc.Decode(buf.Bytes())
	if err := buf.Release(); err != nil {
		return err
	}

	if oc.Next != 0 && oc.Next != containerBlock {
		nextBuf, err := m.pinObjectContainer(oc.Next)
		if err != nil {
			return err
		}
		var nextOC types.ObjectContainer
		nextOC.Decode(nextBuf.Bytes())
		nextOC.Previous = oc.Previous
		nextOC.Encode(nextBuf.Bytes())
		nextBuf.MarkDirty()
		if err := nextBuf.Release(); err != nil {
			return err
		}
	}

	if oc.Previous != 0 && oc.Previous != containerBlock {
		prevBuf, err := m.pinObjectContainer(oc.Previous)
		if err != nil {
			return err
		}
		var prevOC types.ObjectContainer
		prevOC.Decode(prevBuf.Bytes())
		prevOC.Next = oc.Next
		prevOC.Encode(prevBuf.Bytes())
		prevBuf.MarkDirty()
		if err := prevBuf.Release(); err != nil {
			return err
		}
	} else {
		parentBlock, parentOff, parentObj, err := m.ReadObject(uint32(oc.Parent))
		if err != nil {
			return err
		}
		parentObj.FirstDirBlock = oc.Next
		if err := m.storeObjectField(parentBlock, parentOff, &parentObj); err != nil {
			return err
		}
	}

	return m.admin.Free(containerBlock)
}

// simpleRemoveObject removes the record at offset from containerBlock's
// stream: if it is the container's sole live record, the whole
// container is unlinked and freed, otherwise the trailing records
// shift down over it. Does not touch the hash chain. Mirrors
// simpleremoveobject.
func (m *Manager) simpleRemoveObject(containerBlock types.Block, offset int, o *types.Object) error {
	buf, err := m.pinObjectContainer(containerBlock)
	if err != nil {
		return err
	}
	body := objectContainerBody(buf)

	var first types.Object
	firstSize := first.Decode(body)
	var probe types.Object
	isOnly := probe.Decode(body[firstSize:]) == 0

	if err := buf.Release(); err != nil {
		return err
	}
	if isOnly {
		return m.removeObjectContainer(containerBlock)
	}

	buf, err = m.pinObjectContainer(containerBlock)
	if err != nil {
		return err
	}
	body = objectContainerBody(buf)
	removedLen := o.EncodedSize()
	tailStart := offset + removedLen
	copy(body[offset:], body[tailStart:])
	for i := len(body) - removedLen; i < len(body); i++ {
		body[i] = 0
	}
	buf.MarkDirty()
	return buf.Release()
}

// removeObject fully detaches an object from its directory: it is
// dehashed, compacted out of its container, and its node-number is
// freed. Mirrors removeobject.
func (m *Manager) removeObject(containerBlock types.Block, offset int, o *types.Object, parentNode uint32) error {
	if err := m.dehashObjectQuick(uint32(o.ObjectNode), o.Name, parentNode); err != nil {
		return err
	}
	nodeno := uint32(o.ObjectNode)
	if err := m.simpleRemoveObject(containerBlock, offset, o); err != nil {
		return err
	}
	return m.nodes.Delete(nodeno)
}

// DeleteObject deletes the object at (containerBlock, offset): it must
// be an empty directory, a file, or a link. Files' data extents and
// directories'/links' type-specific admin blocks are freed; recycled-bin
// counters are adjusted when the object lived in the recycled directory.
// Mirrors asfs_deleteobject.
func (m *Manager) DeleteObject(containerBlock types.Block, offset int, o types.Object) error {
	if o.IsDir() && o.FirstDirBlock != 0 {
		return asfserr.New(asfserr.NotEmpty, "objects.DeleteObject", fmt.Errorf("%q is not empty", o.Name))
	}

	var oc types.ObjectContainer
	buf, err := m.pinObjectContainer(containerBlock)
	if err != nil {
		return err
	}
	oc.Decode(buf.Bytes())
	if err := buf.Release(); err != nil {
		return err
	}

	bits := o.Bits
	hashblock := o.HashTable
	extentbnode := o.Data

	inRecycled := uint32(oc.Parent) == types.RecycledNode && bits&types.OTypeDir == 0 && bits&types.OTypeLink == 0
	var recycledBlocks uint32
	if inRecycled {
		recycledBlocks = (o.Size + m.blockSize - 1) / m.blockSize
	}

	if err := m.removeObject(containerBlock, offset, &o, uint32(oc.Parent)); err != nil {
		return err
	}

	if inRecycled {
		if err := m.recycled.AdjustRecycled(-1, -int32(recycledBlocks)); err != nil {
			return err
		}
	}

	switch {
	case bits&types.OTypeLink != 0:
		return m.admin.Free(extentbnode)
	case bits&types.OTypeDir != 0:
		return m.admin.Free(hashblock)
	default:
		if extentbnode != 0 {
			return m.extents.DeleteExtents(uint32(extentbnode))
		}
		return nil
	}
}
