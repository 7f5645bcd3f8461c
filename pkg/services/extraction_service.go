package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	stdpath "path"
	"path/filepath"
	"time"

	"github.com/twojstaryzdomu/asfs/internal/volume"
	"github.com/twojstaryzdomu/asfs/pkg/app"
)

// extractionService implements ExtractionService on top of a shared
// volumeService and filesystemService.
type extractionService struct {
	volumes     *volumeService
	filesystems *filesystemService
	onProgress  func(app.ProgressUpdate)
}

// NewExtractionService creates a new extraction service instance.
func NewExtractionService(volumes *volumeService, filesystems *filesystemService) ExtractionService {
	return &extractionService{volumes: volumes, filesystems: filesystems}
}

// SetProgressCallback registers a callback invoked after each entry
// (file or directory) ExtractDirectory extracts, letting long-running
// CLI extractions of a large tree report a running completed/total/ETA
// summary.
func (es *extractionService) SetProgressCallback(cb func(app.ProgressUpdate)) {
	es.onProgress = cb
}

func (es *extractionService) streamFile(v *volume.Volume, node uint32, size uint64) io.ReadCloser {
	blockSize := v.Statfs().BlockSize
	var buf bytes.Buffer
	remaining := size
	for logical := uint32(0); remaining > 0; logical++ {
		phys, err := v.GetBlock(node, logical, false)
		if err != nil {
			break
		}
		data, err := v.ReadBlockData(phys)
		if err != nil {
			break
		}
		n := uint64(len(data))
		if n > remaining {
			n = remaining
		}
		buf.Write(data[:n])
		remaining -= n
	}
	return io.NopCloser(&buf)
}

// StreamFile returns a reader over filePath's content without copying
// it to the host filesystem.
func (es *extractionService) StreamFile(ctx context.Context, volumePath string, filePath string) (io.ReadCloser, error) {
	v, err := es.volumes.open(volumePath, true)
	if err != nil {
		return nil, err
	}
	node, err := v.ResolvePath(filePath)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", filePath, err)
	}
	obj, err := v.ReadObject(node)
	if err != nil {
		return nil, err
	}
	return es.streamFile(v, node, uint64(obj.Size)), nil
}

// ExtractFile copies filePath's content to destPath on the host.
func (es *extractionService) ExtractFile(ctx context.Context, volumePath string, filePath string, destPath string) error {
	r, err := es.StreamFile(ctx, volumePath, filePath)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return err
	}
	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, r)
	return err
}

// ExtractDirectory copies every file under sourcePath to destPath on
// the host, recreating the directory structure.
func (es *extractionService) ExtractDirectory(ctx context.Context, volumePath string, sourcePath string, destPath string, recursive bool) error {
	entries, err := es.filesystems.ListDirectory(ctx, volumePath, sourcePath, recursive)
	if err != nil {
		return err
	}

	started := time.Now()
	for i, entry := range entries {
		rel, err := stdpathRel(sourcePath, entry.Path)
		if err != nil {
			return err
		}
		hostPath := filepath.Join(destPath, filepath.FromSlash(rel))
		if entry.Type == "directory" {
			if err := os.MkdirAll(hostPath, 0755); err != nil {
				return err
			}
		} else if err := es.ExtractFile(ctx, volumePath, entry.Path, hostPath); err != nil {
			return err
		}

		if es.onProgress != nil {
			es.onProgress(app.ProgressUpdate{
				Message:     entry.Path,
				Completed:   int64(i + 1),
				Total:       int64(len(entries)),
				StartedAt:   started,
				ElapsedTime: time.Since(started),
			})
		}
	}
	return nil
}

func stdpathRel(base, target string) (string, error) {
	base = stdpath.Clean(base)
	target = stdpath.Clean(target)
	if base == "/" {
		return target[1:], nil
	}
	if len(target) <= len(base) || target[:len(base)] != base || target[len(base)] != '/' {
		return "", fmt.Errorf("%s is not under %s", target, base)
	}
	return target[len(base)+1:], nil
}
