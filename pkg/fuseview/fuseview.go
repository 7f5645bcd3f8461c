// Package fuseview is an optional, external read-only FUSE front end
// over an ASFS volume. It sits outside internal/ and is never imported
// by the engine packages: the engine promises the lookup/readdir/
// read_object/get_block surface spec §6 describes, and this package is
// one way to drive that surface through the kernel's FUSE protocol,
// not a part of any core invariant. Grounded on distr1-distri's
// internal/fuse/fuse.go (fuseutil.FileSystem via
// fuseutil.NotImplementedFileSystem, LookUpInode/GetInodeAttributes/
// ReadDir/ReadFile/ReadSymlink/StatFS, fuse.Mount/fuse.MountConfig).
package fuseview

import (
	"context"
	"os"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/twojstaryzdomu/asfs/internal/types"
	"github.com/twojstaryzdomu/asfs/internal/volume"
)

// FS adapts a mounted *volume.Volume to fuseutil.FileSystem. ASFS's
// dense node-number space maps directly onto FUSE inode IDs — node 1
// is both ASFS's RootNode and FUSE's RootInodeID, so no translation
// table is needed the way distri needs one for its per-package inode
// encoding.
type FS struct {
	fuseutil.NotImplementedFileSystem

	vol *volume.Volume
}

// New wraps vol for serving over FUSE.
func New(vol *volume.Volume) *FS {
	return &FS{vol: vol}
}

// Mount serves vol at mountpoint until ctx is cancelled or the mount
// is unmounted externally, then returns.
func Mount(ctx context.Context, vol *volume.Volume, mountpoint string) error {
	server := fuseutil.NewFileSystemServer(New(vol))
	mfs, err := fuse.Mount(mountpoint, server, &fuse.MountConfig{
		FSName:   "asfs",
		ReadOnly: true,
		Options: map[string]string{
			"allow_other": "",
		},
	})
	if err != nil {
		return err
	}
	defer fuse.Unmount(mountpoint)
	return mfs.Join(ctx)
}

func (fs *FS) attributes(obj types.Object) fuseops.InodeAttributes {
	mode := os.FileMode(0644)
	switch {
	case obj.IsDir():
		mode = os.ModeDir | 0755
	case obj.IsLink():
		mode = os.ModeSymlink | 0777
	}
	mtime := volume.AmigaTime(obj.DateModified)
	return fuseops.InodeAttributes{
		Size:  uint64(obj.Size),
		Nlink: 1,
		Mode:  mode,
		Uid:   uint32(obj.OwnerUID),
		Gid:   uint32(obj.OwnerGID),
		Atime: mtime,
		Mtime: mtime,
		Ctime: mtime,
	}
}

func (fs *FS) StatFS(ctx context.Context, op *fuseops.StatFSOp) error {
	st := fs.vol.Statfs()
	op.BlockSize = st.BlockSize
	op.Blocks = uint64(st.TotalBlocks)
	op.BlocksFree = uint64(st.FreeBlocks)
	op.BlocksAvailable = uint64(st.FreeBlocks)
	op.IoSize = st.BlockSize
	return nil
}

func (fs *FS) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	node, err := fs.vol.Lookup(uint32(op.Parent), op.Name)
	if err != nil {
		return fuse.ENOENT
	}
	obj, err := fs.vol.ReadObject(node)
	if err != nil {
		return fuse.EIO
	}
	op.Entry.Child = fuseops.InodeID(node)
	op.Entry.Attributes = fs.attributes(obj)
	never := time.Now().Add(365 * 24 * time.Hour)
	op.Entry.AttributesExpiration = never
	op.Entry.EntryExpiration = never
	return nil
}

func (fs *FS) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	obj, err := fs.vol.ReadObject(uint32(op.Inode))
	if err != nil {
		return fuse.ENOENT
	}
	op.Attributes = fs.attributes(obj)
	return nil
}

func (fs *FS) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	return nil
}

func (fs *FS) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	cursor := uint64(op.Offset)
	for {
		entry, next, done, err := fs.vol.Readdir(uint32(op.Inode), cursor)
		if err != nil {
			return fuse.EIO
		}
		if entry.Name != "" {
			typ := fuseutil.DT_File
			switch {
			case entry.IsDir:
				typ = fuseutil.DT_Directory
			case entry.IsLink:
				typ = fuseutil.DT_Link
			}
			n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], fuseutil.Dirent{
				Offset: fuseops.DirOffset(next),
				Inode:  fuseops.InodeID(entry.Node),
				Name:   entry.Name,
				Type:   typ,
			})
			if n == 0 {
				break
			}
			op.BytesRead += n
		}
		cursor = next
		if done {
			break
		}
	}
	return nil
}

func (fs *FS) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	return nil
}

func (fs *FS) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	blockSize := fs.vol.Statfs().BlockSize
	node := uint32(op.Inode)
	for op.BytesRead < len(op.Dst) {
		pos := uint64(op.Offset) + uint64(op.BytesRead)
		logical := uint32(pos / uint64(blockSize))
		within := uint32(pos % uint64(blockSize))

		phys, err := fs.vol.GetBlock(node, logical, false)
		if err != nil {
			if op.BytesRead > 0 {
				break
			}
			return nil
		}
		data, err := fs.vol.ReadBlockData(phys)
		if err != nil {
			return fuse.EIO
		}
		n := copy(op.Dst[op.BytesRead:], data[within:])
		op.BytesRead += n
		if n == 0 {
			break
		}
	}
	return nil
}

func (fs *FS) ReadSymlink(ctx context.Context, op *fuseops.ReadSymlinkOp) error {
	target, err := fs.vol.ReadSymlinkTarget(uint32(op.Inode))
	if err != nil {
		return fuse.EIO
	}
	op.Target = target
	return nil
}
