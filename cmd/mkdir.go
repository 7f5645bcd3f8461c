package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/twojstaryzdomu/asfs/internal/volume"
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <image> <path>",
	Short: "Create a directory",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCreate(args[0], args[1], volume.KindDir); err != nil {
			cobra.CheckErr(err)
		}
	},
}

var touchCmd = &cobra.Command{
	Use:   "touch <image> <path>",
	Short: "Create an empty file",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCreate(args[0], args[1], volume.KindFile); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(mkdirCmd)
	rootCmd.AddCommand(touchCmd)
}

func runCreate(imagePath, targetPath string, kind volume.Kind) error {
	v, err := openVolume(imagePath, false)
	if err != nil {
		return err
	}
	defer closeVolume(v)

	dirPath, name := splitParent(targetPath)
	dirNode, err := v.ResolvePath(dirPath)
	if err != nil {
		return err
	}
	node, err := v.Create(dirNode, name, kind, 0, "")
	if err != nil {
		return err
	}
	if verbose {
		fmt.Printf("created %s as node %d\n", targetPath, node)
	}
	return nil
}
