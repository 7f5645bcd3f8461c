package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/twojstaryzdomu/asfs/internal/deviceio"
	"github.com/twojstaryzdomu/asfs/internal/volume"
)

// volumeService implements VolumeService, keeping one mounted
// *volume.Volume per path the way the teacher's containerService keeps
// one *os.File per device path.
type volumeService struct {
	mu      sync.Mutex
	volumes map[string]*volume.Volume
}

// NewVolumeService creates a new volume service instance.
func NewVolumeService() VolumeService {
	return &volumeService{volumes: make(map[string]*volume.Volume)}
}

func (vs *volumeService) open(path string, readOnly bool) (*volume.Volume, error) {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	if v, exists := vs.volumes[path]; exists {
		return v, nil
	}
	v, err := volume.Mount(path, &deviceio.MountConfig{ReadOnly: readOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to mount volume %s: %w", path, err)
	}
	vs.volumes[path] = v
	return v, nil
}

func (vs *volumeService) info(path string, v *volume.Volume) VolumeInfo {
	st := v.Statfs()
	return VolumeInfo{
		Path:        path,
		BlockSize:   st.BlockSize,
		TotalBlocks: st.TotalBlocks,
		FreeBlocks:  st.FreeBlocks,
		MaxNameLen:  st.MaxNameLen,
		ReadOnly:    v.ReadOnly(),
		SessionID:   v.SessionID.String(),
	}
}

// OpenVolume mounts path if not already open and returns its summary.
func (vs *volumeService) OpenVolume(ctx context.Context, path string, readOnly bool) (VolumeInfo, error) {
	v, err := vs.open(path, readOnly)
	if err != nil {
		return VolumeInfo{}, err
	}
	return vs.info(path, v), nil
}

// Statfs reports current space usage for an already-open volume.
func (vs *volumeService) Statfs(ctx context.Context, path string) (VolumeInfo, error) {
	v, err := vs.open(path, true)
	if err != nil {
		return VolumeInfo{}, err
	}
	return vs.info(path, v), nil
}

// Close unmounts every volume the service opened.
func (vs *volumeService) Close() error {
	vs.mu.Lock()
	defer vs.mu.Unlock()

	var firstErr error
	for path, v := range vs.volumes {
		if err := v.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing volume %s: %w", path, err)
		}
	}
	vs.volumes = make(map[string]*volume.Volume)
	return firstErr
}
