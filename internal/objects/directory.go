package objects

import (
	"fmt"

	"github.com/twojstaryzdomu/asfs/internal/asfserr"
	"github.com/twojstaryzdomu/asfs/internal/types"
)

// objectFits reports whether a record can start at absolute byte offset
// off within a container (offset measured from the start of the block,
// header included), mirroring the bound check every scan in objects.c
// repeats: room for at least a fixed header plus the two NUL
// terminators of an empty name/comment pair.
func objectFits(off int, blockSize uint32) bool {
	return off+types.ObjectFixedSize+2 < int(blockSize)
}

// forEachObject walks the packed record stream of a pinned container's
// body, calling fn with each live object's body-relative offset and
// decoded value. It stops at the first all-zero terminator record or
// when objectFits reports no more room. Mirrors the asfs_nextobject
// walk shared by asfs_find_obj_by_name/asfs_readdir/
// emptyspaceinobjectcontainer.
func (m *Manager) forEachObject(body []byte, fn func(off int, o types.Object) bool) {
	off := 0
	for objectFits(types.ObjectContainerHeaderSize+off, m.blockSize) {
		var o types.Object
		n := o.Decode(body[off:])
		if n == 0 {
			return
		}
		if !fn(off, o) {
			return
		}
		off += n
	}
}

// emptySpaceOffset returns the body-relative offset of the first
// all-zero terminator record in a container, i.e. where a new object
// record can be written. Mirrors emptyspaceinobjectcontainer.
func (m *Manager) emptySpaceOffset(body []byte) int {
	off := 0
	for objectFits(types.ObjectContainerHeaderSize+off, m.blockSize) {
		var o types.Object
		n := o.Decode(body[off:])
		if n == 0 {
			break
		}
		off += n
	}
	return off
}

// findObjectByName scans one container's body for a live record whose
// name matches. Mirrors asfs_find_obj_by_name.
func (m *Manager) findObjectByName(body []byte, name string) (int, types.Object, bool) {
	var found int = -1
	var foundObj types.Object
	m.forEachObject(body, func(off int, o types.Object) bool {
		if NameEqual(o.Name, name, m.caseSensitive) {
			found, foundObj = off, o
			return false
		}
		return true
	})
	return found, foundObj, found >= 0
}

// findObjectByNode scans one container's body for the record with the
// given node-number. Mirrors find_obj_by_node.
func (m *Manager) findObjectByNode(body []byte, nodeno uint32) (int, types.Object, bool) {
	var found int = -1
	var foundObj types.Object
	m.forEachObject(body, func(off int, o types.Object) bool {
		if uint32(o.ObjectNode) == nodeno {
			found, foundObj = off, o
			return false
		}
		return true
	})
	return found, foundObj, found >= 0
}

// ReadObject locates the object record owned by nodeno: it follows the
// node index to the container holding it, then scans that container for
// the matching record. Mirrors asfs_readobject.
func (m *Manager) ReadObject(nodeno uint32) (types.Block, int, types.Object, error) {
	rec, err := m.nodes.Get(nodeno)
	if err != nil {
		return 0, 0, types.Object{}, err
	}
	if rec.Data == 0 {
		return 0, 0, types.Object{}, asfserr.New(asfserr.NotFound, "objects.ReadObject", fmt.Errorf("node %d has no container", nodeno))
	}
	buf, err := m.pinObjectContainer(rec.Data)
	if err != nil {
		return 0, 0, types.Object{}, err
	}
	defer buf.Release()
	off, obj, ok := m.findObjectByNode(objectContainerBody(buf), nodeno)
	if !ok {
		return 0, 0, types.Object{}, asfserr.New(asfserr.NotFound, "objects.ReadObject", fmt.Errorf("node %d missing from container %d", nodeno, rec.Data))
	}
	return rec.Data, off, obj, nil
}

// Lookup searches a directory's object container chain for name,
// preferring its hash table when present. Mirrors asfs_lookup's quick
// and long-search paths.
func (m *Manager) Lookup(dir *types.Object, name string) (types.Block, int, types.Object, error) {
	if err := CheckName(name); err != nil {
		return 0, 0, types.Object{}, err
	}

	if dir.HashTable != 0 {
		hash16 := Hash(name, m.caseSensitive)
		htBuf, err := m.pinHashTable(dir.HashTable)
		if err != nil {
			return 0, 0, types.Object{}, err
		}
		bucket := hashBucket(hash16, hashTableBuckets(m.blockSize))
		node := be32(htBuf.Bytes()[types.HashTableHeaderSize+int(bucket)*4:])
		if err := htBuf.Release(); err != nil {
			return 0, 0, types.Object{}, err
		}

		for node != 0 {
			rec, err := m.nodes.Get(node)
			if err != nil {
				return 0, 0, types.Object{}, err
			}
			if rec.Hash16 == hash16 {
				buf, err := m.pinObjectContainer(rec.Data)
				if err != nil {
					return 0, 0, types.Object{}, err
				}
				off, obj, ok := m.findObjectByName(objectContainerBody(buf), name)
				if ok {
					return rec.Data, off, obj, buf.Release()
				}
				if err := buf.Release(); err != nil {
					return 0, 0, types.Object{}, err
				}
			}
			node = rec.Next
		}
		return 0, 0, types.Object{}, asfserr.New(asfserr.NotFound, "objects.Lookup", fmt.Errorf("%q not found", name))
	}

	block := dir.FirstDirBlock
	for block != 0 {
		buf, err := m.pinObjectContainer(block)
		if err != nil {
			return 0, 0, types.Object{}, err
		}
		off, obj, ok := m.findObjectByName(objectContainerBody(buf), name)
		if ok {
			return block, off, obj, buf.Release()
		}
		var oc types.ObjectContainer
		oc.Decode(buf.Bytes())
		if err := buf.Release(); err != nil {
			return 0, 0, types.Object{}, err
		}
		block = oc.Next
	}
	return 0, 0, types.Object{}, asfserr.New(asfserr.NotFound, "objects.Lookup", fmt.Errorf("%q not found", name))
}

// DirEntry is one resolved directory listing entry.
type DirEntry struct {
	Block  types.Block
	Name   string
	Node   uint32
	Bits   uint8
	Hidden bool
}

// Readdir lists every live object across a directory's entire
// container chain, starting from FirstDirBlock (the newest container);
// hidden objects are included and marked via DirEntry.Hidden. Callers
// wanting resumable paging can slice the result by node-number cursor
// themselves. Mirrors asfs_readdir's full-chain sweep.
func (m *Manager) Readdir(dir *types.Object) ([]DirEntry, error) {
	var entries []DirEntry
	block := dir.FirstDirBlock
	for block != 0 {
		buf, err := m.pinObjectContainer(block)
		if err != nil {
			return nil, err
		}
		m.forEachObject(objectContainerBody(buf), func(_ int, o types.Object) bool {
			entries = append(entries, DirEntry{Block: block, Name: o.Name, Node: uint32(o.ObjectNode), Bits: o.Bits, Hidden: o.Bits&types.OTypeHidden != 0})
			return true
		})
		var oc types.ObjectContainer
		oc.Decode(buf.Bytes())
		if err := buf.Release(); err != nil {
			return nil, err
		}
		block = oc.Next
	}
	return entries, nil
}
