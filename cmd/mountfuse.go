package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/twojstaryzdomu/asfs/pkg/fuseview"
)

var mountfuseCmd = &cobra.Command{
	Use:   "mountfuse <image> <mountpoint>",
	Short: "Mount the volume read-only through FUSE",
	Long: `Mountfuse opens the image the same way mount does, then serves it
through the kernel's FUSE protocol at mountpoint until interrupted
(Ctrl-C) or unmounted externally (fusermount -u / umount). The FUSE
view is always read-only.

Examples:
  asfs mountfuse disk.adf /mnt/asfs`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runMountfuse(args[0], args[1]); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(mountfuseCmd)
}

func runMountfuse(imagePath, mountpoint string) error {
	v, err := openVolume(imagePath, true)
	if err != nil {
		return err
	}
	defer closeVolume(v)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	fmt.Printf("serving %s at %s (read-only, Ctrl-C to stop)\n", imagePath, mountpoint)
	return fuseview.Mount(ctx, v, mountpoint)
}
