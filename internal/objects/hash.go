package objects

import (
	"fmt"

	"github.com/twojstaryzdomu/asfs/internal/types"
)

// hashObject links nodeno at the head of hashblock's bucket chain for
// name, updating the object-node's own Next/Hash16 fields. A zero
// hashblock (directories lazily allocate theirs; the root may have
// none before its first insert) is a no-op. Mirrors hashobject.
func (m *Manager) hashObject(hashblock types.Block, nodeno uint32, name string) error {
	if hashblock == 0 {
		return nil
	}
	hash16 := Hash(name, m.caseSensitive)
	bucket := hashBucket(hash16, hashTableBuckets(m.blockSize))

	htBuf, err := m.pinHashTable(hashblock)
	if err != nil {
		return err
	}
	entryOff := types.HashTableHeaderSize + int(bucket)*4
	nextHash := be32(htBuf.Bytes()[entryOff:])
	putBE32(htBuf.Bytes()[entryOff:], nodeno)
	htBuf.MarkDirty()
	if err := htBuf.Release(); err != nil {
		return err
	}

	rec, err := m.nodes.Get(nodeno)
	if err != nil {
		return err
	}
	rec.Next = nextHash
	rec.Hash16 = hash16
	return m.nodes.Set(nodeno, rec)
}

// dehashObjectQuick splices nodeno out of its parent directory's hash
// bucket chain, walking the chain by node-number until the predecessor
// of nodeno is found (or nodeno is the bucket head). A no-op if the
// parent has no hash table. Mirrors dehashobjectquick.
func (m *Manager) dehashObjectQuick(nodeno uint32, name string, parentNode uint32) error {
	_, _, parentObj, err := m.ReadObject(parentNode)
	if err != nil {
		return err
	}
	if parentObj.HashTable == 0 {
		return nil
	}

	hash16 := Hash(name, m.caseSensitive)
	bucket := hashBucket(hash16, hashTableBuckets(m.blockSize))

	htBuf, err := m.pinHashTable(parentObj.HashTable)
	if err != nil {
		return err
	}
	entryOff := types.HashTableHeaderSize + int(bucket)*4
	nextHash := be32(htBuf.Bytes()[entryOff:])

	on, err := m.nodes.Get(nodeno)
	if err != nil {
		_ = htBuf.Release()
		return err
	}

	if nextHash == nodeno {
		putBE32(htBuf.Bytes()[entryOff:], on.Next)
		htBuf.MarkDirty()
		return htBuf.Release()
	}
	if err := htBuf.Release(); err != nil {
		return err
	}

	prev := nextHash
	for prev != 0 {
		prevRec, err := m.nodes.Get(prev)
		if err != nil {
			return err
		}
		if prevRec.Next == nodeno {
			prevRec.Next = on.Next
			return m.nodes.Set(prev, prevRec)
		}
		prev = prevRec.Next
	}
	return fmt.Errorf("objects.dehashObjectQuick: hash chain of object %d is corrupt", nodeno)
}
