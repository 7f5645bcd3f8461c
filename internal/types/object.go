package types

// ObjectFixedSize is the size of an fsObject record up to (excluding) the
// variable-length name/comment trailer.
const ObjectFixedSize = 2 + 2 + 4 + 4 + 8 + 4 + 1

// Object is the on-disk inode-equivalent: a variable-length record packed
// into an ObjectContainer's record stream, terminated by an all-zero
// record. The "object" union is file{data,size} for files/symlinks or
// dir{hashtable,firstdirblock} for directories.
type Object struct {
	OwnerUID uint16
	OwnerGID uint16

	ObjectNode Block // node-number, see types.RootNode/RecycledNode and internal/objectnode

	Protection uint32

	// File/symlink fields (object.file).
	Data Block // first extent's key (file/symlink data), or soft-link block
	Size uint32

	// Directory fields (object.dir). Decode fills them from the same two
	// on-disk words as Data/Size, so they are meaningful only for
	// directories.
	HashTable     Block
	FirstDirBlock Block

	DateModified uint32 // seconds since 1978-01-01 UTC
	Bits         uint8  // OTypeHidden / OTypeHardlink / OTypeLink / OTypeDir

	Name    string
	Comment string
}

// IsDir reports whether the object is a directory.
func (o *Object) IsDir() bool { return o.Bits&OTypeDir != 0 }

// IsLink reports whether the object is a soft link.
func (o *Object) IsLink() bool { return o.Bits&OTypeLink != 0 }

// IsHardlink reports whether the object is a hard link.
func (o *Object) IsHardlink() bool { return o.Bits&OTypeHardlink != 0 }

// EncodedSize returns the number of bytes this record occupies on disk:
// fixed header + name + NUL + comment + NUL, rounded up to a 2-byte
// boundary.
func (o *Object) EncodedSize() int {
	n := ObjectFixedSize + len(o.Name) + 1 + len(o.Comment) + 1
	if n%2 != 0 {
		n++
	}
	return n
}

// Decode parses an Object record starting at buf[0]. It returns the
// number of bytes consumed (EncodedSize()), or 0 if the record is the
// all-zero terminator.
func (o *Object) Decode(buf []byte) int {
	o.OwnerUID = be16(buf[0:])
	o.OwnerGID = be16(buf[2:])
	o.ObjectNode = Block(be32(buf[4:]))
	if o.OwnerUID == 0 && o.OwnerGID == 0 && o.ObjectNode == 0 && be32(buf[8:]) == 0 {
		return 0
	}
	o.Protection = be32(buf[8:])
	o.Data = Block(be32(buf[12:]))
	o.Size = be32(buf[16:])
	o.HashTable = o.Data
	o.FirstDirBlock = Block(o.Size)
	o.DateModified = be32(buf[20:])
	o.Bits = buf[24]

	rest := buf[ObjectFixedSize:]
	nameEnd := indexByte(rest, 0)
	o.Name = string(rest[:nameEnd])
	rest = rest[nameEnd+1:]
	commentEnd := indexByte(rest, 0)
	o.Comment = string(rest[:commentEnd])
	return o.EncodedSize()
}

// Encode writes the Object record (including name/comment terminators and
// alignment padding) into buf, which must have at least EncodedSize()
// bytes available. It returns the number of bytes written.
func (o *Object) Encode(buf []byte) int {
	putBE16(buf[0:], o.OwnerUID)
	putBE16(buf[2:], o.OwnerGID)
	putBE32(buf[4:], uint32(o.ObjectNode))
	putBE32(buf[8:], o.Protection)
	if o.IsDir() {
		putBE32(buf[12:], uint32(o.HashTable))
		putBE32(buf[16:], uint32(o.FirstDirBlock))
	} else {
		putBE32(buf[12:], uint32(o.Data))
		putBE32(buf[16:], o.Size)
	}
	putBE32(buf[20:], o.DateModified)
	buf[24] = o.Bits

	n := ObjectFixedSize
	n += copy(buf[n:], o.Name)
	buf[n] = 0
	n++
	n += copy(buf[n:], o.Comment)
	buf[n] = 0
	n++
	if n%2 != 0 {
		buf[n] = 0
		n++
	}
	return n
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return len(b)
}

// ObjectContainerHeaderSize is the fixed prefix of an ObjectContainer
// (header + parent/next/previous links), before the packed record stream.
const ObjectContainerHeaderSize = BlockHeaderSize + 4*3

// ObjectContainer is an on-disk block holding a packed stream of Object
// records, chained into its directory's doubly-linked container list.
type ObjectContainer struct {
	Header BlockHeader

	Parent   Block
	Next     Block
	Previous Block // 0 for the first block in the directory's chain
}

// Decode parses the container header (not the record stream) from buf.
func (c *ObjectContainer) Decode(buf []byte) {
	c.Header.Decode(buf)
	c.Parent = Block(be32(buf[BlockHeaderSize:]))
	c.Next = Block(be32(buf[BlockHeaderSize+4:]))
	c.Previous = Block(be32(buf[BlockHeaderSize+8:]))
}

// Encode writes the container header into buf.
func (c *ObjectContainer) Encode(buf []byte) {
	c.Header.Encode(buf)
	putBE32(buf[BlockHeaderSize:], uint32(c.Parent))
	putBE32(buf[BlockHeaderSize+4:], uint32(c.Next))
	putBE32(buf[BlockHeaderSize+8:], uint32(c.Previous))
}
