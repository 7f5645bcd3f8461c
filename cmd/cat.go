package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat <image> <path>",
	Short: "Print a file's contents",
	Long: `Cat resolves path to a file object, walks its extent chain block by
block, and writes its contents to stdout.

Examples:
  asfs cat disk.adf /Work/Docs/readme.txt`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runCat(args[0], args[1]); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
}

func runCat(imagePath, filePath string) error {
	v, err := openVolume(imagePath, true)
	if err != nil {
		return err
	}
	defer closeVolume(v)

	node, err := v.ResolvePath(filePath)
	if err != nil {
		return err
	}
	obj, err := v.ReadObject(node)
	if err != nil {
		return err
	}

	blockSize := v.Statfs().BlockSize
	remaining := obj.Size
	for logical := uint32(0); remaining > 0; logical++ {
		phys, err := v.GetBlock(node, logical, false)
		if err != nil {
			return err
		}
		data, err := v.ReadBlockData(phys)
		if err != nil {
			return err
		}
		n := blockSize
		if remaining < n {
			n = remaining
		}
		if _, err := os.Stdout.Write(data[:n]); err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}
