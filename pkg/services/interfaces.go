// Package services is a DTO-and-interface facade over internal/volume,
// the way pkg/services sits over the teacher's internal/parsers and
// internal/interfaces: callers that want plain structs and context-
// aware signatures instead of the engine's *volume.Volume handle go
// through here rather than importing internal/ directly.
package services

import (
	"context"
	"io"
	"time"

	"github.com/twojstaryzdomu/asfs/pkg/app"
)

// VolumeInfo represents basic volume metadata, mirroring the summary
// volume.Statfs returns.
type VolumeInfo struct {
	Path        string
	BlockSize   uint32
	TotalBlocks uint32
	FreeBlocks  uint32
	MaxNameLen  int
	ReadOnly    bool
	SessionID   string
}

// FileInfo represents detailed information about one object.
type FileInfo struct {
	Node       uint32
	Name       string
	Path       string
	Type       string // "file", "directory", "symlink"
	Size       uint64
	Mode       uint32
	Owner      uint16
	Group      uint16
	Modified   time.Time
	LinkTarget string
}

// DirectoryInfo widens FileInfo with listing statistics.
type DirectoryInfo struct {
	FileInfo
	ChildCount int
	Children   []FileInfo
}

// IntegrityStatus reports the outcome of a tree-wide checksum walk.
type IntegrityStatus struct {
	ObjectsChecked int
	Problems       []string
	LastChecked    time.Time
}

// VolumeService manages volume handles by path.
type VolumeService interface {
	// OpenVolume mounts path if not already open and returns its summary.
	OpenVolume(ctx context.Context, path string, readOnly bool) (VolumeInfo, error)

	// Statfs reports current space usage for an already-open volume.
	Statfs(ctx context.Context, path string) (VolumeInfo, error)

	// Close unmounts every volume the service opened.
	Close() error
}

// FilesystemService provides filesystem navigation.
type FilesystemService interface {
	// ListDirectory lists dirPath's entries, recursing into
	// subdirectories when recursive is true.
	ListDirectory(ctx context.Context, volumePath string, dirPath string, recursive bool) ([]FileInfo, error)

	// GetFileInfo resolves filePath and returns its metadata.
	GetFileInfo(ctx context.Context, volumePath string, filePath string) (FileInfo, error)

	// GetDirectoryInfo resolves dirPath and returns its metadata plus
	// child statistics, including children when includeChildren is true.
	GetDirectoryInfo(ctx context.Context, volumePath string, dirPath string, includeChildren bool) (DirectoryInfo, error)

	// WalkFilesystem performs a depth-first traversal from rootPath,
	// invoking walkFunc for every object visited.
	WalkFilesystem(ctx context.Context, volumePath string, rootPath string, walkFunc func(FileInfo) error) error

	// CheckIntegrity walks the whole tree, forcing every object and
	// extent it touches through checksum verification, and reports what
	// it finds without repairing anything.
	CheckIntegrity(ctx context.Context, volumePath string) (IntegrityStatus, error)
}

// ExtractionService copies file content out of a volume image into the
// host filesystem.
type ExtractionService interface {
	// ExtractFile copies filePath's content to destPath on the host.
	ExtractFile(ctx context.Context, volumePath string, filePath string, destPath string) error

	// ExtractDirectory copies every file under sourcePath to destPath on
	// the host, recreating the directory structure; it descends into
	// subdirectories only when recursive is true.
	ExtractDirectory(ctx context.Context, volumePath string, sourcePath string, destPath string, recursive bool) error

	// StreamFile returns a reader over filePath's content without
	// copying it to the host filesystem.
	StreamFile(ctx context.Context, volumePath string, filePath string) (io.ReadCloser, error)

	// SetProgressCallback registers cb to be invoked after each entry
	// (file or directory) ExtractDirectory extracts.
	SetProgressCallback(cb func(app.ProgressUpdate))
}
