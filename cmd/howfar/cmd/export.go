/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/ssargent/howfar/pkg/archive"
	"github.com/ssargent/howfar/pkg/export"
	"github.com/ssargent/howfar/pkg/howfar"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [output]",
	Short: "Export archived measurements",
	Long: `Export measurements from the archive, oldest first.

Times accept unix seconds, 2006-01-02T15:04:05 in the configured timezone,
or RFC 3339. Without --version the newest archived record version is used.
Output defaults to stdout.

Examples:
  howfar export --from 2024-09-15T00:00:00 --to 2024-09-16T00:00:00 day.csv
  howfar export --format json --from 1726400000`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output := "-"
		if len(args) == 1 {
			output = args[0]
		}

		formatName, _ := cmd.Flags().GetString("format")
		if formatName == "" {
			formatName = container.GetConfig().Output.Format
		}
		format, err := export.ParseFormat(formatName)
		if err != nil {
			return err
		}

		loc, err := container.GetConfig().Location()
		if err != nil {
			return err
		}
		fromFlag, _ := cmd.Flags().GetString("from")
		toFlag, _ := cmd.Flags().GetString("to")
		version, _ := cmd.Flags().GetUint32("version")

		from, err := parseTimestamp(fromFlag, loc)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		to, err := parseTimestamp(toFlag, loc)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}

		arch, err := container.OpenArchive()
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer arch.Close()

		set, err := arch.Records(archive.Query{Version: version, From: from, To: to})
		if err != nil {
			return err
		}
		if len(set.Columns) == 0 {
			cmd.PrintErrln("Archive is empty")
			return nil
		}

		out, closeOut, err := openOutput(cmd, output)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		w, err := export.NewWriter(out, format)
		if err == nil {
			err = export.WriteRows(w, set.Columns, set.Rows)
		}
		if cerr := closeOut(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("failed to write records: %w", err)
		}
		if output != "-" {
			cmd.Printf("Wrote %d records (version %d) to %s\n", len(set.Rows), set.Version, output)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("format", "f", "", "Output format: csv or json (default from config)")
	exportCmd.Flags().String("from", "", "First timestamp to include")
	exportCmd.Flags().String("to", "", "Last timestamp to include")
	exportCmd.Flags().Uint32("version", 0, "Record version (default: newest archived)")
}

// parseTimestamp converts a command line time to unix seconds, empty means 0
func parseTimestamp(s string, loc *time.Location) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		return uint32(n), nil
	}

	t, err := time.ParseInLocation(howfar.TimestampFormat, s, loc)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
	}
	if err != nil {
		return 0, fmt.Errorf("unrecognized time %q", s)
	}
	if t.Unix() < 0 || t.Unix() > math.MaxUint32 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return uint32(t.Unix()), nil
}
