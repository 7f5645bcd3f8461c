package extentbtree

import (
	"fmt"

	"github.com/twojstaryzdomu/asfs/internal/asfserr"
	"github.com/twojstaryzdomu/asfs/internal/types"
)

// searchForBNode returns the index of the BNode equal to key, or the
// index of the BNode slightly lower than key, or 0 if no such BNode
// exists either (including when the container is otherwise empty — the
// caller is responsible for checking count() > 0 first). Mirrors
// searchforbnode.
func searchForBNode(body []byte, nodesize, count int, key uint32) int {
	idx := count - 1
	n := count - 1
	for {
		if n <= 0 || key >= keyAtIdx(body, nodesize, idx) {
			return idx
		}
		idx--
		n--
	}
}

// located is the result of descending the tree for a key: the leaf
// container it landed on (still pinned) and the index searchForBNode
// picked within it.
type located struct {
	leaf  *container
	index int
}

// findBNode descends from the root looking for key, returning the leaf
// container (pinned; caller must release) and the index of the closest
// match. Mirrors findbnode.
func (t *Tree) findBNode(key uint32) (*located, error) {
	block := t.root
	for {
		c, err := t.pinContainer(block)
		if err != nil {
			return nil, err
		}
		if c.count() == 0 {
			return &located{leaf: c, index: -1}, nil
		}
		idx := searchForBNode(c.body(), c.nodesize(), c.count(), key)
		if c.hdr.IsLeaf {
			return &located{leaf: c, index: idx}, nil
		}
		child := types.Block(be32(nodeSlice(c.body(), c.nodesize(), idx)[4:]))
		if err := c.release(); err != nil {
			return nil, err
		}
		block = child
	}
}

// GetExtent returns the leaf entry whose key exactly matches key, or
// asfserr.NotFound. Mirrors asfs_getextent.
func (t *Tree) GetExtent(key uint32) (types.ExtentBNode, error) {
	loc, err := t.findBNode(key)
	if err != nil {
		return types.ExtentBNode{}, err
	}
	defer loc.leaf.release()
	if loc.index < 0 || keyAtIdx(loc.leaf.body(), loc.leaf.nodesize(), loc.index) != key {
		return types.ExtentBNode{}, asfserr.New(asfserr.NotFound, "extentbtree.GetExtent", fmt.Errorf("no extent with key %d", key))
	}
	return types.DecodeExtentBNode(nodeSlice(loc.leaf.body(), loc.leaf.nodesize(), loc.index)), nil
}
