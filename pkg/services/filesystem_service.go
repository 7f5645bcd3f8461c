package services

import (
	"context"
	"fmt"
	stdpath "path"
	"time"

	"github.com/twojstaryzdomu/asfs/internal/types"
	"github.com/twojstaryzdomu/asfs/internal/volume"
)

// filesystemService implements FilesystemService on top of a shared
// volumeService, the way the teacher's filesystemService holds a
// ContainerService to reach an already-open container.
type filesystemService struct {
	volumes *volumeService
}

// NewFilesystemService creates a new filesystem service instance.
func NewFilesystemService(volumes *volumeService) FilesystemService {
	return &filesystemService{volumes: volumes}
}

func kindString(obj types.Object) string {
	switch {
	case obj.IsDir():
		return "directory"
	case obj.IsLink():
		return "symlink"
	default:
		return "file"
	}
}

func (fs *filesystemService) fileInfo(v *volume.Volume, node uint32, name, path string) (FileInfo, error) {
	obj, err := v.ReadObject(node)
	if err != nil {
		return FileInfo{}, err
	}
	info := FileInfo{
		Node:     node,
		Name:     name,
		Path:     path,
		Type:     kindString(obj),
		Size:     uint64(obj.Size),
		Mode:     obj.Protection,
		Owner:    obj.OwnerUID,
		Group:    obj.OwnerGID,
		Modified: volume.AmigaTime(obj.DateModified),
	}
	if obj.IsLink() {
		if target, terr := v.ReadSymlinkTarget(node); terr == nil {
			info.LinkTarget = target
		}
	}
	return info, nil
}

// ListDirectory lists dirPath's entries, recursing into subdirectories
// when recursive is true.
func (fs *filesystemService) ListDirectory(ctx context.Context, volumePath string, dirPath string, recursive bool) ([]FileInfo, error) {
	v, err := fs.volumes.open(volumePath, true)
	if err != nil {
		return nil, err
	}
	dirNode, err := v.ResolvePath(dirPath)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dirPath, err)
	}

	var out []FileInfo
	if err := fs.listInto(v, dirNode, dirPath, recursive, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (fs *filesystemService) listInto(v *volume.Volume, dirNode uint32, dirPath string, recursive bool, out *[]FileInfo) error {
	var cursor uint64
	for {
		entry, next, done, err := v.Readdir(dirNode, cursor)
		if err != nil {
			return err
		}
		cursor = next
		if entry.Name != "" && entry.Name != "." && entry.Name != ".." {
			childPath := stdpath.Join(dirPath, entry.Name)
			info, ferr := fs.fileInfo(v, entry.Node, entry.Name, childPath)
			if ferr != nil {
				return ferr
			}
			*out = append(*out, info)
			if recursive && entry.IsDir {
				if err := fs.listInto(v, entry.Node, childPath, true, out); err != nil {
					return err
				}
			}
		}
		if done {
			break
		}
	}
	return nil
}

// GetFileInfo resolves filePath and returns its metadata.
func (fs *filesystemService) GetFileInfo(ctx context.Context, volumePath string, filePath string) (FileInfo, error) {
	v, err := fs.volumes.open(volumePath, true)
	if err != nil {
		return FileInfo{}, err
	}
	node, err := v.ResolvePath(filePath)
	if err != nil {
		return FileInfo{}, fmt.Errorf("resolve %s: %w", filePath, err)
	}
	return fs.fileInfo(v, node, stdpath.Base(filePath), filePath)
}

// GetDirectoryInfo resolves dirPath and returns its metadata plus child
// statistics, including children when includeChildren is true.
func (fs *filesystemService) GetDirectoryInfo(ctx context.Context, volumePath string, dirPath string, includeChildren bool) (DirectoryInfo, error) {
	base, err := fs.GetFileInfo(ctx, volumePath, dirPath)
	if err != nil {
		return DirectoryInfo{}, err
	}
	children, err := fs.ListDirectory(ctx, volumePath, dirPath, false)
	if err != nil {
		return DirectoryInfo{}, err
	}
	result := DirectoryInfo{FileInfo: base, ChildCount: len(children)}
	if includeChildren {
		result.Children = children
	}
	return result, nil
}

// WalkFilesystem performs a depth-first traversal from rootPath,
// invoking walkFunc for every object visited.
func (fs *filesystemService) WalkFilesystem(ctx context.Context, volumePath string, rootPath string, walkFunc func(FileInfo) error) error {
	v, err := fs.volumes.open(volumePath, true)
	if err != nil {
		return err
	}
	rootNode, err := v.ResolvePath(rootPath)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", rootPath, err)
	}
	rootInfo, err := fs.fileInfo(v, rootNode, stdpath.Base(rootPath), rootPath)
	if err != nil {
		return err
	}
	if err := walkFunc(rootInfo); err != nil {
		return err
	}
	return fs.walk(v, rootNode, rootPath, walkFunc)
}

func (fs *filesystemService) walk(v *volume.Volume, dirNode uint32, dirPath string, walkFunc func(FileInfo) error) error {
	var cursor uint64
	for {
		entry, next, done, err := v.Readdir(dirNode, cursor)
		if err != nil {
			return err
		}
		cursor = next
		if entry.Name != "" && entry.Name != "." && entry.Name != ".." {
			childPath := stdpath.Join(dirPath, entry.Name)
			info, ferr := fs.fileInfo(v, entry.Node, entry.Name, childPath)
			if ferr != nil {
				return ferr
			}
			if err := walkFunc(info); err != nil {
				return err
			}
			if entry.IsDir {
				if err := fs.walk(v, entry.Node, childPath, walkFunc); err != nil {
					return err
				}
			}
		}
		if done {
			break
		}
	}
	return nil
}

// CheckIntegrity walks the whole tree, forcing every object and extent
// it touches through checksum verification (internal/volume.GetBlock
// transitively Pins every extent it crosses), and reports what it finds
// without repairing anything — the same reuse-over-reinvention approach
// cmd/fsck.go takes.
func (fs *filesystemService) CheckIntegrity(ctx context.Context, volumePath string) (IntegrityStatus, error) {
	v, err := fs.volumes.open(volumePath, true)
	if err != nil {
		return IntegrityStatus{}, err
	}

	status := IntegrityStatus{}
	err = fs.WalkFilesystem(ctx, volumePath, "/", func(fi FileInfo) error {
		status.ObjectsChecked++
		if fi.Type == "symlink" {
			return nil
		}
		blockSize := v.Statfs().BlockSize
		blocks := (uint32(fi.Size) + blockSize - 1) / blockSize
		for logical := uint32(0); logical < blocks; logical++ {
			if _, err := v.GetBlock(fi.Node, logical, false); err != nil {
				status.Problems = append(status.Problems, fmt.Sprintf("%s: block %d: %v", fi.Path, logical, err))
			}
		}
		return nil
	})
	status.LastChecked = time.Now()
	return status, err
}
