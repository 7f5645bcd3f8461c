package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mountCmd = &cobra.Command{
	Use:   "mount <image>",
	Short: "Probe a volume image and report its statfs summary",
	Long: `Mount probes an ASFS volume image through the two-phase probe-then-
reopen sequence, then prints the same summary statfs would return,
without attaching anything to the host's VFS.

Examples:
  asfs mount disk.adf`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runMount(args[0]); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(mountCmd)
}

func runMount(path string) error {
	v, err := openVolume(path, true)
	if err != nil {
		return err
	}
	defer closeVolume(v)

	st := v.Statfs()
	fmt.Printf("📦 %s\n", path)
	fmt.Printf("    Block size:   %d\n", st.BlockSize)
	fmt.Printf("    Total blocks: %d\n", st.TotalBlocks)
	fmt.Printf("    Free blocks:  %d\n", st.FreeBlocks)
	fmt.Printf("    Max name len: %d\n", st.MaxNameLen)
	fmt.Printf("    Read-only:    %v\n", v.ReadOnly())
	appContext().Log(fmt.Sprintf("    Session:      %s", v.SessionID))
	return nil
}
