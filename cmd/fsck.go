package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/twojstaryzdomu/asfs/internal/types"
	"github.com/twojstaryzdomu/asfs/internal/volume"
)

var fsckCmd = &cobra.Command{
	Use:   "fsck <image>",
	Short: "Walk the volume and check the testable properties of §8",
	Long: `Fsck mounts the volume read-only and walks every reachable directory
and file, which forces every object container, extent and hash table it
touches through its checksum verification. It never repairs anything —
per the volume's crash policy, a damaged image is reported, not fixed.

Examples:
  asfs fsck disk.adf`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runFsck(args[0]); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(fsckCmd)
}

func runFsck(path string) error {
	v, err := openVolume(path, true)
	if err != nil {
		return err
	}
	defer closeVolume(v)

	st := v.Statfs()
	if st.FreeBlocks > st.TotalBlocks {
		return fmt.Errorf("fsck: cached free-block count %d exceeds total blocks %d", st.FreeBlocks, st.TotalBlocks)
	}

	problems := 0
	walkDir(v, types.RootNode, "/", &problems)

	if problems == 0 {
		fmt.Println("✅ no problems found")
		return nil
	}
	return fmt.Errorf("fsck: %d problem(s) found", problems)
}

func walkDir(v *volume.Volume, node uint32, path string, problems *int) {
	var cursor uint64
	for {
		entry, next, done, err := v.Readdir(node, cursor)
		if err != nil {
			fmt.Printf("❌ %s: readdir: %v\n", path, err)
			*problems++
			return
		}
		cursor = next
		if entry.Name != "" && entry.Name != "." && entry.Name != ".." {
			childPath := path + entry.Name
			if entry.IsDir {
				walkDir(v, entry.Node, childPath+"/", problems)
			} else {
				walkFile(v, entry.Node, childPath, problems)
			}
		}
		if done {
			break
		}
	}
}

func walkFile(v *volume.Volume, node uint32, path string, problems *int) {
	obj, err := v.ReadObject(node)
	if err != nil {
		fmt.Printf("❌ %s: %v\n", path, err)
		*problems++
		return
	}
	if obj.IsLink() {
		return
	}
	blockSize := v.Statfs().BlockSize
	blocks := (obj.Size + blockSize - 1) / blockSize
	for logical := uint32(0); logical < blocks; logical++ {
		if _, err := v.GetBlock(node, logical, false); err != nil {
			fmt.Printf("❌ %s: block %d: %v\n", path, logical, err)
			*problems++
			return
		}
	}
}
