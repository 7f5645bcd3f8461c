package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/twojstaryzdomu/asfs/pkg/app"
	"github.com/twojstaryzdomu/asfs/pkg/services"
)

var extractRecursive bool

var extractCmd = &cobra.Command{
	Use:   "extract <image> <path> <dest>",
	Short: "Copy a file or directory tree out to the host filesystem",
	Long: `Extract copies path's content onto the host filesystem at dest. If
path names a directory, --recursive controls whether subdirectories are
descended into; files are always copied with their host-relative layout
preserved under dest.

Examples:
  asfs extract disk.adf /docs/readme.txt ./readme.txt
  asfs extract disk.adf / ./out --recursive`,
	Args: cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runExtract(args[0], args[1], args[2]); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	extractCmd.Flags().BoolVarP(&extractRecursive, "recursive", "r", false, "descend into subdirectories")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(imagePath, sourcePath, destPath string) error {
	factory := services.NewServiceFactory()
	defer factory.Shutdown()

	fsSvc, err := factory.FilesystemService()
	if err != nil {
		return err
	}
	extractSvc, err := factory.ExtractionService()
	if err != nil {
		return err
	}

	ctx := context.Background()
	info, err := fsSvc.GetFileInfo(ctx, imagePath, sourcePath)
	if err != nil {
		return err
	}

	extractSvc.SetProgressCallback(func(p app.ProgressUpdate) {
		appContext().Log(fmt.Sprintf("  %d/%d %s", p.Completed, p.Total, p.Message))
	})

	if info.Type == "directory" {
		return extractSvc.ExtractDirectory(ctx, imagePath, sourcePath, destPath, extractRecursive)
	}
	return extractSvc.ExtractFile(ctx, imagePath, sourcePath, destPath)
}
