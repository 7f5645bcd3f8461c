package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/twojstaryzdomu/asfs/pkg/app"
)

var (
	// Global output flags only
	verbose      bool
	quiet        bool
	outputFormat string

	// Global mount-options flags (cmd/volume.go binds these into a
	// deviceio.MountConfig)
	configFile string
	mode       string
	setUID     int
	setGID     int
	lowercase  bool
)

var rootCmd = &cobra.Command{
	Use:   "asfs",
	Short: "ASFS (Amiga Smart File System) engine and command-line explorer",
	Long: `asfs is a read-write command-line tool for exploring and mutating
Amiga Smart File System (ASFS) volume images directly, without mounting
them through the kernel.

Commands:
  mount       Probe a volume image and report its statfs summary
  ls          List a directory's contents
  cat         Print a file's contents
  mkdir       Create a directory
  touch       Create an empty file
  rm          Remove a file
  rmdir       Remove an empty directory
  mv          Rename or move an object
  truncate    Shrink a file
  fsck        Walk the volume and check the testable properties of §8
  mountfuse   Mount the volume read-only through FUSE
  extract     Copy a file or directory tree out to the host filesystem`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "mount-options config file (asfs-config.yaml)")
	rootCmd.PersistentFlags().StringVar(&mode, "mode", "", "default protection bits for newly created objects, octal (e.g. 0644)")
	rootCmd.PersistentFlags().IntVar(&setUID, "setuid", -1, "override owner uid for newly created objects")
	rootCmd.PersistentFlags().IntVar(&setGID, "setgid", -1, "override owner gid for newly created objects")
	rootCmd.PersistentFlags().BoolVar(&lowercase, "lowercasevol", false, "set the lowercasevol mount option (recorded in the mount flags; no command prints a volume name)")
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}

// GetQuiet returns the quiet flag value
func GetQuiet() bool {
	return quiet
}

// GetOutputFormat returns the output format
func GetOutputFormat() string {
	return outputFormat
}

// appContext builds the pkg/app.Context every command shares for its
// verbosity-gated diagnostic output, reflecting the current flag
// values rather than a snapshot taken at init time.
func appContext() *app.Context {
	c := app.NewContext()
	c.Verbose = verbose
	c.Quiet = quiet
	c.OutputFormat = outputFormat
	return c
}
