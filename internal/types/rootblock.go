package types

// RootBlockSize is the encoded size of RootBlock (amigasfs.h struct
// fsRootBlock), independent of the device's actual block size — the root
// block is always padded with zeroes to fill the real block.
const RootBlockSize = 12 + 2 + 2 + 4 + 1 + 1 + 2 + 8 + 4 + 4 + 4 + 4 + 8 + 8 + 32 + 4*5 + 12

// RootBlock is the on-disk "super block", stored at block 0 and mirrored
// at block totalblocks-1.
type RootBlock struct {
	Header BlockHeader

	Version        uint16
	SequenceNumber uint16 // highest sequence number among the copies is authoritative

	DateCreated uint32
	Bits        uint8 // RootBitsCaseSensitive

	FirstByteH, FirstByte uint32 // partition start offset from disk start, split hi/lo
	LastByteH, LastByte   uint32 // partition end offset, exclusive

	TotalBlocks uint32
	BlockSize   uint32

	BitmapBase          Block
	AdminSpaceContainer Block
	RootObjectContainer Block
	ExtentBNodeRoot     Block
	ObjectNodeRoot      Block
}

// Decode parses a RootBlock from buf (must be at least RootBlockSize bytes,
// typically the full device block size).
func (r *RootBlock) Decode(buf []byte) {
	r.Header.Decode(buf)
	o := BlockHeaderSize
	r.Version = be16(buf[o:])
	r.SequenceNumber = be16(buf[o+2:])
	r.DateCreated = be32(buf[o+4:])
	r.Bits = buf[o+8]
	// o+9..o+11: pad1, pad2
	// o+12..o+19: reserved1[2]
	o += 12 + 8
	r.FirstByteH = be32(buf[o:])
	r.FirstByte = be32(buf[o+4:])
	r.LastByteH = be32(buf[o+8:])
	r.LastByte = be32(buf[o+12:])
	o += 16
	r.TotalBlocks = be32(buf[o:])
	r.BlockSize = be32(buf[o+4:])
	o += 8
	// reserved2[2] + reserved3[8] = 10 * 4 bytes
	o += 40
	r.BitmapBase = Block(be32(buf[o:]))
	r.AdminSpaceContainer = Block(be32(buf[o+4:]))
	r.RootObjectContainer = Block(be32(buf[o+8:]))
	r.ExtentBNodeRoot = Block(be32(buf[o+12:]))
	r.ObjectNodeRoot = Block(be32(buf[o+16:]))
}

// Encode writes the RootBlock into buf (which must be at least the
// device's block size; trailing bytes are left untouched by the caller).
func (r *RootBlock) Encode(buf []byte) {
	r.Header.Encode(buf)
	o := BlockHeaderSize
	putBE16(buf[o:], r.Version)
	putBE16(buf[o+2:], r.SequenceNumber)
	putBE32(buf[o+4:], r.DateCreated)
	buf[o+8] = r.Bits
	buf[o+9] = 0
	putBE16(buf[o+10:], 0)
	for i := 0; i < 8; i++ {
		buf[o+12+i] = 0
	}
	o += 12 + 8
	putBE32(buf[o:], r.FirstByteH)
	putBE32(buf[o+4:], r.FirstByte)
	putBE32(buf[o+8:], r.LastByteH)
	putBE32(buf[o+12:], r.LastByte)
	o += 16
	putBE32(buf[o:], r.TotalBlocks)
	putBE32(buf[o+4:], r.BlockSize)
	o += 8
	for i := 0; i < 40; i++ {
		buf[o+i] = 0
	}
	o += 40
	putBE32(buf[o:], uint32(r.BitmapBase))
	putBE32(buf[o+4:], uint32(r.AdminSpaceContainer))
	putBE32(buf[o+8:], uint32(r.RootObjectContainer))
	putBE32(buf[o+12:], uint32(r.ExtentBNodeRoot))
	putBE32(buf[o+16:], uint32(r.ObjectNodeRoot))
}

// RootInfoSize is the encoded size of RootInfo.
const RootInfoSize = 4 * 9

// RootInfo is the trailer embedded at the end of the root object
// container holding cached free-space accounting and allocator hints.
type RootInfo struct {
	DeletedBlocks uint32 // blocks consumed by files in the recycled directory
	DeletedFiles  uint32 // number of deleted files in the recycled directory

	FreeBlocks uint32 // cached population count of bitmap free bits

	DateCreated uint32

	LastAllocatedBlock      Block
	LastAllocatedAdminSpace Block
	LastAllocatedExtentNode uint32
	LastAllocatedObjectNode uint32

	RovingPointer Block // allocator hint: where the last file-data allocation ended
}

// Decode parses a RootInfo from buf.
func (ri *RootInfo) Decode(buf []byte) {
	ri.DeletedBlocks = be32(buf[0:])
	ri.DeletedFiles = be32(buf[4:])
	ri.FreeBlocks = be32(buf[8:])
	ri.DateCreated = be32(buf[12:])
	ri.LastAllocatedBlock = Block(be32(buf[16:]))
	ri.LastAllocatedAdminSpace = Block(be32(buf[20:]))
	ri.LastAllocatedExtentNode = be32(buf[24:])
	ri.LastAllocatedObjectNode = be32(buf[28:])
	ri.RovingPointer = Block(be32(buf[32:]))
}

// Encode writes a RootInfo into buf.
func (ri *RootInfo) Encode(buf []byte) {
	putBE32(buf[0:], ri.DeletedBlocks)
	putBE32(buf[4:], ri.DeletedFiles)
	putBE32(buf[8:], ri.FreeBlocks)
	putBE32(buf[12:], ri.DateCreated)
	putBE32(buf[16:], uint32(ri.LastAllocatedBlock))
	putBE32(buf[20:], uint32(ri.LastAllocatedAdminSpace))
	putBE32(buf[24:], ri.LastAllocatedExtentNode)
	putBE32(buf[28:], ri.LastAllocatedObjectNode)
	putBE32(buf[32:], uint32(ri.RovingPointer))
}
