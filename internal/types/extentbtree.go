package types

// BTreeContainerHeaderSize is the fixed prefix of a BTreeContainer: node
// count, leaf flag, and node size, before the packed node array.
const BTreeContainerHeaderSize = 2 + 1 + 1

// BNodeSize is the encoded size of an internal BNode{key,data} pair.
const BNodeSize = 8

// ExtentBNodeSize is the encoded size of a leaf fsExtentBNode record.
const ExtentBNodeSize = 4 + 4 + 4 + 2

// BTreeContainer is the generic shape shared by every extent B-tree
// block: a node count, a leaf/internal flag, and a fixed node size that
// determines how the trailing node array is interpreted.
type BTreeContainer struct {
	NodeCount uint16
	IsLeaf    bool
	NodeSize  uint8 // BNodeSize for internal containers, ExtentBNodeSize for leaves
}

// Decode parses the BTreeContainer header from buf.
func (c *BTreeContainer) Decode(buf []byte) {
	c.NodeCount = be16(buf[0:])
	c.IsLeaf = buf[2] != 0
	c.NodeSize = buf[3]
}

// Encode writes the BTreeContainer header into buf.
func (c *BTreeContainer) Encode(buf []byte) {
	putBE16(buf[0:], c.NodeCount)
	if c.IsLeaf {
		buf[2] = 1
	} else {
		buf[2] = 0
	}
	buf[3] = c.NodeSize
}

// BNode is an internal extent B-tree entry: a routing key and the child
// container block it leads to.
type BNode struct {
	Key  uint32
	Data Block
}

// DecodeBNode reads a BNode from buf.
func DecodeBNode(buf []byte) BNode {
	return BNode{Key: be32(buf[0:]), Data: Block(be32(buf[4:]))}
}

// EncodeBNode writes a BNode into buf.
func EncodeBNode(buf []byte, n BNode) {
	putBE32(buf[0:], n.Key)
	putBE32(buf[4:], uint32(n.Data))
}

// ExtentBNode is a leaf extent B-tree entry: a contiguous run of file
// data blocks starting at Key, threaded into its owning file's extent
// chain via Next/Prev.
//
// The first extent in a file's chain tags Prev with types.MSBMask and
// encodes the owning object-node number in the low bits instead of a
// previous-extent key; use ExtentBNode.OwnerNode / HasOwnerTag to
// interpret it.
type ExtentBNode struct {
	Key    uint32
	Next   Block
	Prev   uint32
	Blocks uint16
}

// HasOwnerTag reports whether Prev encodes the owning object-node number
// rather than a previous-extent key.
func (e ExtentBNode) HasOwnerTag() bool { return e.Prev&MSBMask != 0 }

// OwnerNode returns the owning object-node number. Valid only when
// HasOwnerTag is true.
func (e ExtentBNode) OwnerNode() uint32 { return e.Prev &^ MSBMask }

// WithOwnerNode returns a copy of e with Prev set to tag nodeno as the
// owning object-node.
func (e ExtentBNode) WithOwnerNode(nodeno uint32) ExtentBNode {
	e.Prev = nodeno | MSBMask
	return e
}

// DecodeExtentBNode reads an ExtentBNode from buf.
func DecodeExtentBNode(buf []byte) ExtentBNode {
	return ExtentBNode{
		Key:    be32(buf[0:]),
		Next:   Block(be32(buf[4:])),
		Prev:   be32(buf[8:]),
		Blocks: be16(buf[12:]),
	}
}

// EncodeExtentBNode writes an ExtentBNode into buf.
func EncodeExtentBNode(buf []byte, e ExtentBNode) {
	putBE32(buf[0:], e.Key)
	putBE32(buf[4:], uint32(e.Next))
	putBE32(buf[8:], e.Prev)
	putBE16(buf[12:], e.Blocks)
}

// BNodeContainerHeaderSize is the fixed prefix of a block holding a
// BTreeContainer (the fsBNodeContainer wrapper: block header + tree
// header), before the node array.
const BNodeContainerHeaderSize = BlockHeaderSize + BTreeContainerHeaderSize
