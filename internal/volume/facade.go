package volume

import (
	"fmt"
	"strings"
	"time"

	"github.com/twojstaryzdomu/asfs/internal/asfserr"
	"github.com/twojstaryzdomu/asfs/internal/types"
)

// amigaEpoch is the zero point of fsObject.datemodified and
// RootInfo.DateCreated: seconds since 1978-01-01 UTC.
var amigaEpoch = time.Date(1978, 1, 1, 0, 0, 0, 0, time.UTC)

func amigaNow() uint32 {
	return uint32(time.Since(amigaEpoch).Seconds())
}

// AmigaTime converts an on-disk DateModified/DateCreated field to a
// time.Time, for callers (the FUSE front end, the CLI) that print or
// compare timestamps.
func AmigaTime(seconds uint32) time.Time {
	return amigaEpoch.Add(time.Duration(seconds) * time.Second)
}

// Kind selects the type of object Create produces.
type Kind int

const (
	KindFile Kind = iota
	KindDir
	KindSymlink
)

// StatfsResult is the volume-wide usage summary spec §6's statfs
// returns.
type StatfsResult struct {
	TotalBlocks uint32
	FreeBlocks  uint32
	BlockSize   uint32
	MaxNameLen  int
}

// Statfs reports volume-wide space usage.
func (v *Volume) Statfs() StatfsResult {
	v.mu.Lock()
	defer v.mu.Unlock()
	return StatfsResult{
		TotalBlocks: v.root.TotalBlocks,
		FreeBlocks:  v.info.FreeBlocks,
		BlockSize:   v.root.BlockSize,
		MaxNameLen:  types.MaxNameLen,
	}
}

func (v *Volume) requireWritable(op string) error {
	if v.ReadOnly() {
		return asfserr.New(asfserr.ReadOnly, op, fmt.Errorf("volume is mounted read-only"))
	}
	return nil
}

// Lookup resolves name within the directory identified by dirNode to its
// object-node number.
func (v *Volume) Lookup(dirNode uint32, name string) (uint32, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, _, dir, err := v.objs.ReadObject(dirNode)
	if err != nil {
		return 0, err
	}
	_, _, obj, err := v.objs.Lookup(&dir, name)
	if err != nil {
		return 0, err
	}
	return uint32(obj.ObjectNode), nil
}

// ResolvePath walks a '/'-separated path from the root directory,
// returning the final component's node-number. A convenience built on
// top of repeated Lookup calls for callers (the CLI, the FUSE front
// end) that address objects by path rather than by node-number.
func (v *Volume) ResolvePath(path string) (uint32, error) {
	node := types.RootNode
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "" {
			continue
		}
		n, err := v.Lookup(node, part)
		if err != nil {
			return 0, err
		}
		node = n
	}
	return node, nil
}

// DirEntry is one resolved directory listing entry, widened with the
// synthesized "." and ".." pseudo-entries readdir emits at cursor
// positions 0 and 1 (spec §6 / SPEC_FULL.md §3.9).
type DirEntry struct {
	Name   string
	Node   uint32
	IsDir  bool
	IsLink bool
	Hidden bool
}

// Readdir returns the entry at cursor (0-based across the synthesized
// "." / ".." pair followed by the directory's live objects) and the
// cursor to pass next. done is true once the listing is exhausted.
// Mirrors asfs_readdir's full-chain rescan-per-call approach: each call
// walks the directory fresh rather than holding a live iterator, so the
// cursor tolerates concurrent mutation by simply recomputing its
// position in the (possibly now-different) listing.
func (v *Volume) Readdir(dirNode uint32, cursor uint64) (DirEntry, uint64, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if cursor == 0 {
		return DirEntry{Name: ".", Node: dirNode, IsDir: true}, 1, false, nil
	}

	containerBlock, _, dir, err := v.objs.ReadObject(dirNode)
	if err != nil {
		return DirEntry{}, cursor, true, err
	}

	if cursor == 1 {
		parent := dirNode
		if dirNode != types.RootNode {
			if p, perr := v.objs.ParentNode(containerBlock); perr == nil {
				parent = p
			}
		}
		return DirEntry{Name: "..", Node: parent, IsDir: true}, 2, false, nil
	}

	entries, err := v.objs.Readdir(&dir)
	if err != nil {
		return DirEntry{}, cursor, true, err
	}
	idx := int(cursor - 2)
	if idx >= len(entries) {
		return DirEntry{}, cursor, true, nil
	}
	e := entries[idx]
	return DirEntry{Name: e.Name, Node: e.Node, IsDir: e.Bits&types.OTypeDir != 0, IsLink: e.Bits&types.OTypeLink != 0, Hidden: e.Hidden}, cursor + 1, idx+1 >= len(entries), nil
}

// ReadObject returns the full decoded object record for nodeno.
func (v *Volume) ReadObject(nodeno uint32) (types.Object, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, _, obj, err := v.objs.ReadObject(nodeno)
	return obj, err
}

func (v *Volume) defaultProtection() uint32 {
	if v.cfg == nil || v.cfg.Mode == "" {
		return 0
	}
	var mode uint32
	fmt.Sscanf(v.cfg.Mode, "%o", &mode)
	return mode
}

func (v *Volume) ownerIDs() (uint16, uint16) {
	if v.cfg == nil {
		return 0, 0
	}
	uid, gid := 0, 0
	if v.cfg.SetUID >= 0 {
		uid = v.cfg.SetUID
	}
	if v.cfg.SetGID >= 0 {
		gid = v.cfg.SetGID
	}
	return uint16(uid), uint16(gid)
}

// Create creates a new object named name inside the directory dirNode
// and returns its node-number. kind selects file/directory/symlink;
// symlinkTarget is only meaningful for KindSymlink.
func (v *Volume) Create(dirNode uint32, name string, kind Kind, mode uint32, symlinkTarget string) (uint32, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.requireWritable("volume.Create"); err != nil {
		return 0, err
	}

	parentBlock, parentOff, parent, err := v.objs.ReadObject(dirNode)
	if err != nil {
		return 0, err
	}

	uid, gid := v.ownerIDs()
	if mode == 0 {
		mode = v.defaultProtection()
	}
	template := types.Object{
		OwnerUID:     uid,
		OwnerGID:     gid,
		Protection:   mode,
		DateModified: amigaNow(),
	}
	switch kind {
	case KindDir:
		template.Bits = types.OTypeDir
	case KindSymlink:
		template.Bits = types.OTypeLink
	}

	_, _, obj, err := v.objs.CreateObject(parentBlock, parentOff, &parent, template, name, false)
	if err != nil {
		return 0, err
	}

	if kind == KindSymlink && obj.Data != 0 {
		buf, err := v.pool.Pin(obj.Data, types.IDSoftLink)
		if err != nil {
			return 0, err
		}
		n := copy(buf.Bytes()[types.SoftLinkHeaderSize:], symlinkTarget)
		buf.Bytes()[types.SoftLinkHeaderSize+n] = 0
		buf.MarkDirty()
		if err := buf.Release(); err != nil {
			return 0, err
		}
	}

	return uint32(obj.ObjectNode), nil
}

// Unlink removes a non-directory object (file, symlink, hardlink) named
// name from directory dirNode.
func (v *Volume) Unlink(dirNode uint32, name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.requireWritable("volume.Unlink"); err != nil {
		return err
	}
	_, _, dir, err := v.objs.ReadObject(dirNode)
	if err != nil {
		return err
	}
	block, off, obj, err := v.objs.Lookup(&dir, name)
	if err != nil {
		return err
	}
	if obj.IsDir() {
		return asfserr.New(asfserr.Invalid, "volume.Unlink", fmt.Errorf("%q is a directory", name))
	}
	return v.objs.DeleteObject(block, off, obj)
}

// Rmdir removes an empty directory named name from directory dirNode.
func (v *Volume) Rmdir(dirNode uint32, name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.requireWritable("volume.Rmdir"); err != nil {
		return err
	}
	_, _, dir, err := v.objs.ReadObject(dirNode)
	if err != nil {
		return err
	}
	block, off, obj, err := v.objs.Lookup(&dir, name)
	if err != nil {
		return err
	}
	if !obj.IsDir() {
		return asfserr.New(asfserr.Invalid, "volume.Rmdir", fmt.Errorf("%q is not a directory", name))
	}
	return v.objs.DeleteObject(block, off, obj)
}

// Rename moves oldName out of oldDirNode into newDirNode as newName,
// overwriting any pre-existing destination by unlinking it first.
func (v *Volume) Rename(oldDirNode uint32, oldName string, newDirNode uint32, newName string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.requireWritable("volume.Rename"); err != nil {
		return err
	}

	_, _, oldDir, err := v.objs.ReadObject(oldDirNode)
	if err != nil {
		return err
	}
	block, off, obj, err := v.objs.Lookup(&oldDir, oldName)
	if err != nil {
		return err
	}

	_, _, newDir, err := v.objs.ReadObject(newDirNode)
	if err != nil {
		return err
	}
	if destBlock, destOff, destObj, derr := v.objs.Lookup(&newDir, newName); derr == nil {
		if err := v.objs.DeleteObject(destBlock, destOff, destObj); err != nil {
			return err
		}
	}

	_, _, _, err = v.objs.RenameObject(block, off, obj, oldDirNode, newDirNode, newName)
	return err
}

// GetBlock translates a file's logical block index to a physical device
// block, growing the file when create is true and the block does not
// yet exist.
func (v *Volume) GetBlock(nodeno uint32, logicalBlock uint32, create bool) (types.Block, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if create {
		if err := v.requireWritable("volume.GetBlock"); err != nil {
			return 0, err
		}
	}
	block, off, obj, err := v.objs.ReadObject(nodeno)
	if err != nil {
		return 0, err
	}
	return v.objs.GetBlock(block, off, &obj, logicalBlock, create)
}

// ReadSymlinkTarget returns the NUL-terminated target string stored in
// a symlink's SoftLink block.
func (v *Volume) ReadSymlinkTarget(nodeno uint32) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, _, obj, err := v.objs.ReadObject(nodeno)
	if err != nil {
		return "", err
	}
	if !obj.IsLink() || obj.Data == 0 {
		return "", asfserr.New(asfserr.Invalid, "volume.ReadSymlinkTarget", fmt.Errorf("node %d is not a symlink", nodeno))
	}
	buf, err := v.pool.Pin(obj.Data, types.IDSoftLink)
	if err != nil {
		return "", err
	}
	rest := buf.Bytes()[types.SoftLinkHeaderSize:]
	n := 0
	for n < len(rest) && rest[n] != 0 {
		n++
	}
	target := string(rest[:n])
	return target, buf.Release()
}

// ReadBlockData returns the raw payload of a file-data block. File
// content blocks carry no checksum header (only metadata blocks do),
// so this bypasses the typed Pin/Verifier path and reads the device
// directly.
func (v *Volume) ReadBlockData(block types.Block) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dev.ReadBlock(block)
}

// Truncate shrinks a file to newSize bytes. Growing a file is a no-op
// here; growth happens lazily via GetBlock(create=true) on write, per
// spec §6.
func (v *Volume) Truncate(nodeno uint32, newSize uint32) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.requireWritable("volume.Truncate"); err != nil {
		return err
	}
	block, off, obj, err := v.objs.ReadObject(nodeno)
	if err != nil {
		return err
	}
	if newSize >= obj.Size {
		return nil
	}
	if err := v.objs.TruncateBlocksInFile(block, off, &obj, newSize); err != nil {
		return err
	}
	obj.Size = newSize
	return v.objs.StoreObjectField(block, off, &obj)
}
