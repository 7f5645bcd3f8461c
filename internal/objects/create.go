package objects

import (
	"fmt"

	"github.com/twojstaryzdomu/asfs/internal/asfserr"
	"github.com/twojstaryzdomu/asfs/internal/types"
)

// findObjectSpace locates room for a bytesNeeded object record somewhere
// in the directory's container chain, creating and head-linking a fresh
// admin block when no existing container has enough trailing slack.
// parentBlock/parentOff locate the directory's own object record, which
// is rewritten in place when a new container becomes the chain head.
// Mirrors findobjectspace.
func (m *Manager) findObjectSpace(parentBlock types.Block, parentOff int, parent *types.Object, bytesNeeded int) (types.Block, int, error) {
	next := parent.FirstDirBlock
	for next != 0 {
		buf, err := m.pinObjectContainer(next)
		if err != nil {
			return 0, 0, err
		}
		body := objectContainerBody(buf)
		off := m.emptySpaceOffset(body)
		if len(body)-off >= bytesNeeded {
			return next, off, buf.Release()
		}
		var oc types.ObjectContainer
		oc.Decode(buf.Bytes())
		if err := buf.Release(); err != nil {
			return 0, 0, err
		}
		next = oc.Next
	}

	newBlock, err := m.admin.Alloc()
	if err != nil {
		return 0, 0, err
	}
	buf, err := m.newObjectContainer(newBlock)
	if err != nil {
		return 0, 0, err
	}
	oc := types.ObjectContainer{Parent: types.Block(parent.ObjectNode), Next: parent.FirstDirBlock, Previous: 0}
	oc.Encode(buf.Bytes())
	buf.MarkDirty()
	if err := buf.Release(); err != nil {
		return 0, 0, err
	}

	oldHead := parent.FirstDirBlock
	parent.FirstDirBlock = newBlock
	if err := m.storeObjectField(parentBlock, parentOff, parent); err != nil {
		return 0, 0, err
	}

	if oldHead != 0 {
		headBuf, err := m.pinObjectContainer(oldHead)
		if err != nil {
			return 0, 0, err
		}
		var headOC types.ObjectContainer
		headOC.Decode(headBuf.Bytes())
		headOC.Previous = newBlock
		headOC.Encode(headBuf.Bytes())
		headBuf.MarkDirty()
		if err := headBuf.Release(); err != nil {
			return 0, 0, err
		}
	}

	return newBlock, 0, nil
}

// storeObjectField rewrites the object record at (block, off) from o,
// used whenever a directory's own record must be patched in place
// (FirstDirBlock/HashTable updates) without touching its name/size.
func (m *Manager) storeObjectField(block types.Block, off int, o *types.Object) error {
	buf, err := m.pinObjectContainer(block)
	if err != nil {
		return err
	}
	o.Encode(objectContainerBody(buf)[off:])
	buf.MarkDirty()
	return buf.Release()
}

// StoreObjectField exposes storeObjectField to callers outside the
// package (the volume facade, after an operation it drives patches a
// field storeObjectField itself doesn't touch, such as Size after a
// truncate).
func (m *Manager) StoreObjectField(block types.Block, off int, o *types.Object) error {
	return m.storeObjectField(block, off, o)
}

// CreateObject creates a new object named name in the directory located
// at (parentBlock, parentOff, parent), cloning template's fixed fields.
// template.ObjectNode == 0 requests a freshly issued node; a non-zero
// value reuses that node (the rename path's node-preserving re-insert).
// force bypasses the free-space reserve and recycled-directory guard,
// for the restore-on-failure path of rename. Returns the new record's
// location and final decoded value. Mirrors asfs_createobject.
func (m *Manager) CreateObject(parentBlock types.Block, parentOff int, parent *types.Object, template types.Object, name string, force bool) (types.Block, int, types.Object, error) {
	if !force && m.free.FreeBlocks() < types.AlwaysFree {
		return 0, 0, types.Object{}, asfserr.New(asfserr.NoSpace, "objects.CreateObject", fmt.Errorf("free-block reserve exhausted"))
	}
	if !force && uint32(parent.ObjectNode) == types.RecycledNode {
		return 0, 0, types.Object{}, asfserr.New(asfserr.Invalid, "objects.CreateObject", fmt.Errorf("cannot create directly in the recycled directory"))
	}
	if err := CheckName(name); err != nil {
		return 0, 0, types.Object{}, err
	}

	hashblock := parent.HashTable
	obj := template
	obj.Name = name
	obj.Comment = ""
	size := obj.EncodedSize()

	containerBlock, off, err := m.findObjectSpace(parentBlock, parentOff, parent, size)
	if err != nil {
		return 0, 0, types.Object{}, err
	}

	var nodeno uint32
	var rec types.ObjectNode
	if obj.ObjectNode != 0 {
		nodeno = uint32(obj.ObjectNode)
		rec, err = m.nodes.Get(nodeno)
	} else {
		nodeno, err = m.nodes.Create()
		if err == nil {
			rec.Hash16 = Hash(name, m.caseSensitive)
			obj.ObjectNode = types.Block(nodeno)
		}
	}
	if err != nil {
		return 0, 0, types.Object{}, err
	}

	rec.Data = containerBlock
	if err := m.nodes.Set(nodeno, rec); err != nil {
		return 0, 0, types.Object{}, err
	}
	if err := m.hashObject(hashblock, nodeno, name); err != nil {
		return 0, 0, types.Object{}, err
	}

	buf, err := m.pinObjectContainer(containerBlock)
	if err != nil {
		return 0, 0, types.Object{}, err
	}
	obj.Encode(objectContainerBody(buf)[off:])
	buf.MarkDirty()
	if err := buf.Release(); err != nil {
		return 0, 0, types.Object{}, err
	}

	if obj.IsDir() && obj.HashTable == 0 {
		htBlock, err := m.admin.Alloc()
		if err != nil {
			return 0, 0, types.Object{}, err
		}
		htBuf, err := m.pool.New(htBlock, types.IDHashTable)
		if err != nil {
			return 0, 0, types.Object{}, err
		}
		ht := types.HashTable{Parent: types.Block(obj.ObjectNode)}
		ht.Encode(htBuf.Bytes())
		htBuf.MarkDirty()
		if err := htBuf.Release(); err != nil {
			return 0, 0, types.Object{}, err
		}
		obj.HashTable = htBlock
		if err := m.storeObjectField(containerBlock, off, &obj); err != nil {
			return 0, 0, types.Object{}, err
		}
	}

	if obj.IsLink() && !obj.IsHardlink() && obj.Data == 0 {
		slBlock, err := m.admin.Alloc()
		if err != nil {
			return 0, 0, types.Object{}, err
		}
		slBuf, err := m.pool.New(slBlock, types.IDSoftLink)
		if err != nil {
			return 0, 0, types.Object{}, err
		}
		sl := types.SoftLink{Parent: types.Block(obj.ObjectNode)}
		sl.Encode(slBuf.Bytes())
		slBuf.MarkDirty()
		if err := slBuf.Release(); err != nil {
			return 0, 0, types.Object{}, err
		}
		obj.Data = slBlock
		if err := m.storeObjectField(containerBlock, off, &obj); err != nil {
			return 0, 0, types.Object{}, err
		}
	}

	return containerBlock, off, obj, nil
}
