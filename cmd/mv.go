package cmd

import (
	"github.com/spf13/cobra"
)

var mvCmd = &cobra.Command{
	Use:   "mv <image> <old-path> <new-path>",
	Short: "Rename or move an object",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runMv(args[0], args[1], args[2]); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(mvCmd)
}

func runMv(imagePath, oldPath, newPath string) error {
	v, err := openVolume(imagePath, false)
	if err != nil {
		return err
	}
	defer closeVolume(v)

	oldDirPath, oldName := splitParent(oldPath)
	newDirPath, newName := splitParent(newPath)

	oldDirNode, err := v.ResolvePath(oldDirPath)
	if err != nil {
		return err
	}
	newDirNode, err := v.ResolvePath(newDirPath)
	if err != nil {
		return err
	}
	return v.Rename(oldDirNode, oldName, newDirNode, newName)
}
