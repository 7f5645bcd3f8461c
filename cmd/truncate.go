package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
)

var truncateCmd = &cobra.Command{
	Use:   "truncate <image> <path> <size>",
	Short: "Shrink a file to size bytes",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runTruncate(args[0], args[1], args[2]); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(truncateCmd)
}

func runTruncate(imagePath, filePath, sizeArg string) error {
	size, err := strconv.ParseUint(sizeArg, 10, 32)
	if err != nil {
		return err
	}

	v, err := openVolume(imagePath, false)
	if err != nil {
		return err
	}
	defer closeVolume(v)

	node, err := v.ResolvePath(filePath)
	if err != nil {
		return err
	}
	return v.Truncate(node, uint32(size))
}
