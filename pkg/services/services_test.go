package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/twojstaryzdomu/asfs/pkg/services"
)

func TestServiceFactoryLifecycle(t *testing.T) {
	factory := services.NewServiceFactory()

	require.NoError(t, factory.Initialize())

	volumeSvc, err := factory.VolumeService()
	require.NoError(t, err)
	require.NotNil(t, volumeSvc)

	filesystemSvc, err := factory.FilesystemService()
	require.NoError(t, err)
	require.NotNil(t, filesystemSvc)

	extractionSvc, err := factory.ExtractionService()
	require.NoError(t, err)
	require.NotNil(t, extractionSvc)

	require.NoError(t, factory.Shutdown())
}

func TestServiceFactoryLazyInitialize(t *testing.T) {
	factory := services.NewServiceFactory()

	// VolumeService is called before Initialize; the factory must
	// initialize itself on demand rather than returning an error.
	volumeSvc, err := factory.VolumeService()
	require.NoError(t, err)
	require.NotNil(t, volumeSvc)

	require.NoError(t, factory.Shutdown())
}

func TestListAvailableServices(t *testing.T) {
	factory := services.NewServiceFactory()
	list := factory.ListAvailableServices()

	require.Len(t, list, 3)
	names := map[string]bool{}
	for _, s := range list {
		names[s.Name] = true
		require.True(t, s.Available)
	}
	require.True(t, names["volume"])
	require.True(t, names["filesystem"])
	require.True(t, names["extraction"])
}

func TestOpenVolumeMissingFile(t *testing.T) {
	volumeSvc := services.NewVolumeService()
	_, err := volumeSvc.OpenVolume(context.Background(), "/nonexistent/path/disk.adf", true)
	require.Error(t, err)
}
