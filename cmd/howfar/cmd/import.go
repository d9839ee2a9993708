/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/ssargent/howfar/pkg/archive"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <capture.uf2>...",
	Short: "Import dumps into the archive",
	Long: `Import one or more UF2 dumps into the capture archive.

Measurements already archived from an earlier, overlapping dump are
stored once. Every dump is kept so it can be downloaded again later.
Dumps identical to an archived one are skipped.

Examples:
  howfar import CURRENT.UF2
  howfar import dumps/*.uf2 --name field-test`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")

		arch, err := container.OpenArchive()
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer arch.Close()

		for _, path := range args {
			stream, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read dump: %w", err)
			}
			captureName := name
			if captureName == "" {
				captureName = filepath.Base(path)
			}
			capture, err := arch.Import(captureName, stream)
			var dup *archive.DuplicateCaptureError
			if errors.As(err, &dup) {
				cmd.Printf("Skipped %s: already archived as %s\n", path, dup.Existing.ID)
				continue
			}
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			cmd.Printf("Imported %s as %s: %d records, %d new\n",
				path, capture.ID, capture.Records, capture.NewRecords)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringP("name", "n", "", "Capture name (default: file name)")
}
