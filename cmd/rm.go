package cmd

import (
	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <image> <path>",
	Short: "Remove a file",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runRemove(args[0], args[1], false); err != nil {
			cobra.CheckErr(err)
		}
	},
}

var rmdirCmd = &cobra.Command{
	Use:   "rmdir <image> <path>",
	Short: "Remove an empty directory",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runRemove(args[0], args[1], true); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(rmdirCmd)
}

func runRemove(imagePath, targetPath string, isDir bool) error {
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
	if isDir {
		return v.Rmdir(dirNode, name)
	}
	return v.Unlink(dirNode, name)
}
