package services

import (
	"fmt"
	"sync"
)

// ServiceFactory provides a centralized way to create and manage ASFS
// services, mirroring the teacher's lazy-init/RWMutex factory shape.
type ServiceFactory struct {
	volumes     *volumeService
	filesystems FilesystemService
	extraction  ExtractionService
	mu          sync.RWMutex
	initialized bool
}

// NewServiceFactory creates a new service factory instance.
func NewServiceFactory() *ServiceFactory {
	return &ServiceFactory{}
}

// Initialize initializes all services with their dependencies.
func (sf *ServiceFactory) Initialize() error {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	if sf.initialized {
		return nil
	}

	volumes := NewVolumeService().(*volumeService)
	sf.volumes = volumes
	sf.filesystems = NewFilesystemService(volumes)
	sf.extraction = NewExtractionService(volumes, sf.filesystems.(*filesystemService))

	sf.initialized = true
	return nil
}

// VolumeService returns the volume service instance.
func (sf *ServiceFactory) VolumeService() (VolumeService, error) {
	if err := sf.ensureInitialized(); err != nil {
		return nil, err
	}
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	return sf.volumes, nil
}

// FilesystemService returns the filesystem service instance.
func (sf *ServiceFactory) FilesystemService() (FilesystemService, error) {
	if err := sf.ensureInitialized(); err != nil {
		return nil, err
	}
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	return sf.filesystems, nil
}

// ExtractionService returns the extraction service instance.
func (sf *ServiceFactory) ExtractionService() (ExtractionService, error) {
	if err := sf.ensureInitialized(); err != nil {
		return nil, err
	}
	sf.mu.RLock()
	defer sf.mu.RUnlock()
	return sf.extraction, nil
}

func (sf *ServiceFactory) ensureInitialized() error {
	sf.mu.RLock()
	done := sf.initialized
	sf.mu.RUnlock()
	if done {
		return nil
	}
	return sf.Initialize()
}

// Shutdown gracefully shuts down all services, unmounting every volume
// they opened.
func (sf *ServiceFactory) Shutdown() error {
	sf.mu.Lock()
	defer sf.mu.Unlock()

	if !sf.initialized {
		return nil
	}
	err := sf.volumes.Close()
	sf.volumes = nil
	sf.filesystems = nil
	sf.extraction = nil
	sf.initialized = false
	return err
}

// ServiceInfo describes one service for discovery/introspection callers.
type ServiceInfo struct {
	Name        string
	Description string
	Available   bool
}

// ListAvailableServices returns information about all available services.
func (sf *ServiceFactory) ListAvailableServices() []ServiceInfo {
	return []ServiceInfo{
		{Name: "volume", Description: "Mount/statfs/close for ASFS volume images", Available: true},
		{Name: "filesystem", Description: "Directory listing, file metadata, tree walk, integrity check", Available: true},
		{Name: "extraction", Description: "Copying file and directory content out to the host filesystem", Available: true},
	}
}

// Common errors.
var ErrServiceNotAvailable = fmt.Errorf("service not available")

// DefaultServiceFactory is the default global service factory instance.
var DefaultServiceFactory = NewServiceFactory()

// GetVolumeService returns the default volume service.
func GetVolumeService() (VolumeService, error) { return DefaultServiceFactory.VolumeService() }

// GetFilesystemService returns the default filesystem service.
func GetFilesystemService() (FilesystemService, error) {
	return DefaultServiceFactory.FilesystemService()
}

// GetExtractionService returns the default extraction service.
func GetExtractionService() (ExtractionService, error) {
	return DefaultServiceFactory.ExtractionService()
}

// InitializeServices initializes all services using the default factory.
func InitializeServices() error { return DefaultServiceFactory.Initialize() }

// ShutdownServices shuts down all services using the default factory.
func ShutdownServices() error { return DefaultServiceFactory.Shutdown() }
