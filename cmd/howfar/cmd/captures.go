/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/ssargent/howfar/pkg/archive"
)

// capturesCmd represents the captures command
var capturesCmd = &cobra.Command{
	Use:   "captures",
	Short: "List archived captures",
	Long: `List the dumps stored in the archive, oldest first.

Examples:
  howfar captures
  howfar captures show 2NjYsW0A3RoWPFsbwmvpXfYj3pi
  howfar captures raw 2NjYsW0A3RoWPFsbwmvpXfYj3pi copy.uf2`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		arch, err := container.OpenArchive()
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer arch.Close()

		captures, err := arch.Captures()
		if err != nil {
			return err
		}
		if len(captures) == 0 {
			cmd.Println("No captures archived")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tIMPORTED\tVERSION\tRECORDS\tNEW\tSIZE")
		for _, c := range captures {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				c.ID, c.Name, humanize.Time(c.ImportedAt), c.Version,
				c.Records, c.NewRecords, humanize.Bytes(uint64(c.ContainerSize)))
		}
		return tw.Flush()
	},
}

var captureShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one capture",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		arch, err := container.OpenArchive()
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer arch.Close()

		c, err := arch.Capture(args[0])
		if err != nil {
			return err
		}
		printCapture(cmd, c)
		return nil
	},
}

var captureRawCmd = &cobra.Command{
	Use:   "raw <id> <output.uf2>",
	Short: "Write the original dump of a capture",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		arch, err := container.OpenArchive()
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer arch.Close()

		stream, err := arch.Raw(args[0])
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[1], stream, 0644); err != nil {
			return fmt.Errorf("failed to write dump: %w", err)
		}
		cmd.Printf("Wrote %s to %s\n", humanize.Bytes(uint64(len(stream))), args[1])
		return nil
	},
}

var captureDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a capture from the archive",
	Long: `Remove the metadata and stored dump of a capture. Measurements stay in
the archive since later captures usually repeat them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		arch, err := container.OpenArchive()
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer arch.Close()

		if err := arch.DeleteCapture(args[0]); err != nil {
			return err
		}
		cmd.Printf("Deleted capture %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(capturesCmd)
	capturesCmd.AddCommand(captureShowCmd)
	capturesCmd.AddCommand(captureRawCmd)
	capturesCmd.AddCommand(captureDeleteCmd)
}

func printCapture(cmd *cobra.Command, c *archive.Capture) {
	cmd.Printf("ID:          %s\n", c.ID)
	cmd.Printf("Name:        %s\n", c.Name)
	cmd.Printf("Imported:    %s (%s)\n", c.ImportedAt.Format(time.RFC3339), humanize.Time(c.ImportedAt))
	cmd.Printf("Version:     %d\n", c.Version)
	cmd.Printf("Records:     %s (%s new)\n", humanize.Comma(int64(c.Records)), humanize.Comma(int64(c.NewRecords)))
	if c.Records > 0 {
		cmd.Printf("First:       %s\n", time.Unix(int64(c.FirstTimestamp), 0).UTC().Format(time.RFC3339))
		cmd.Printf("Last:        %s\n", time.Unix(int64(c.LastTimestamp), 0).UTC().Format(time.RFC3339))
	}
	cmd.Printf("Container:   %s\n", humanize.Bytes(uint64(c.ContainerSize)))
	cmd.Printf("Flash:       %s\n", humanize.Bytes(uint64(c.FlashSize)))
	cmd.Printf("Stored:      %s\n", humanize.Bytes(uint64(c.StoredSize)))
}
