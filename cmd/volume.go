package cmd

import (
	"fmt"
	stdpath "path"

	"github.com/twojstaryzdomu/asfs/internal/deviceio"
	"github.com/twojstaryzdomu/asfs/internal/volume"
)

// splitParent splits an ASFS path into its containing directory and
// final component, the way every create/remove/rename command needs
// to resolve "where" separately from "what".
func splitParent(p string) (dir, base string) {
	return stdpath.Dir(p), stdpath.Base(p)
}

// openVolume loads the mount-options config (defaults, optional config
// file, ASFS_-prefixed env vars), overlays the global --mode/--setuid/
// --setgid/--lowercasevol flags and the calling command's readOnly
// choice, and mounts path.
func openVolume(path string, readOnly bool) (*volume.Volume, error) {
	cfg, err := deviceio.LoadMountConfig(configFile)
	if err != nil {
		return nil, err
	}
	if mode != "" {
		cfg.Mode = mode
	}
	if setUID >= 0 {
		cfg.SetUID = setUID
	}
	if setGID >= 0 {
		cfg.SetGID = setGID
	}
	cfg.LowercaseVol = lowercase
	cfg.ReadOnly = readOnly

	return volume.Mount(path, cfg)
}

func closeVolume(v *volume.Volume) {
	if v == nil {
		return
	}
	if err := v.Close(); err != nil {
		appContext().Log(fmt.Sprintf("warning: error closing volume: %v", err))
	}
}
