package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lsShowHidden bool

var lsCmd = &cobra.Command{
	Use:   "ls <image> [path]",
	Short: "List a directory's contents",
	Long: `Ls lists the objects in a directory, walking the path from the
volume root.

Examples:
  asfs ls disk.adf /
  asfs ls disk.adf /Work/Docs`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		path := "/"
		if len(args) == 2 {
			path = args[1]
		}
		if err := runLs(args[0], path); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().BoolVarP(&lsShowHidden, "all", "a", false, "include hidden objects")
}

func runLs(imagePath, dirPath string) error {
	v, err := openVolume(imagePath, true)
	if err != nil {
		return err
	}
	defer closeVolume(v)

	node, err := v.ResolvePath(dirPath)
	if err != nil {
		return err
	}

	fmt.Printf("📂 %s\n", dirPath)
	var cursor uint64
	for {
		entry, next, done, err := v.Readdir(node, cursor)
		if err != nil {
			return err
		}
		if entry.Name != "" && entry.Name != "." && entry.Name != ".." {
			if entry.Hidden && !lsShowHidden {
				cursor = next
				if done {
					break
				}
				continue
			}
			marker := "  "
			if entry.IsDir {
				marker = "📁"
			} else if entry.IsLink {
				marker = "🔗"
			}
			fmt.Printf("└── %s %s\n", marker, entry.Name)
		}
		cursor = next
		if done {
			break
		}
	}
	return nil
}
