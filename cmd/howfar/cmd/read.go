/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ssargent/howfar/pkg/export"
	"github.com/ssargent/howfar/pkg/howfar"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read <input.uf2> <output.csv>",
	Short: "Decode a device dump into CSV",
	Long: `Decode the measurements of a UF2 dump copied from the device.

The output starts with a header row naming the columns of the record
version found on the device. Use - as output to write to stdout.

Examples:
  howfar read CURRENT.UF2 measurements.csv
  howfar read CURRENT.UF2 - --format json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, output := args[0], args[1]

		formatName, _ := cmd.Flags().GetString("format")
		if formatName == "" {
			formatName = container.GetConfig().Output.Format
		}
		format, err := export.ParseFormat(formatName)
		if err != nil {
			return err
		}

		stream, err := os.ReadFile(input)
		if err != nil {
			return fmt.Errorf("failed to read dump: %w", err)
		}
		opts, err := container.DatabaseOptions()
		if err != nil {
			return err
		}
		db, err := howfar.OpenDatabase(stream, opts...)
		if err != nil {
			return fmt.Errorf("%s: %w", input, err)
		}

		out, closeOut, err := openOutput(cmd, output)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		w, err := export.NewWriter(out, format)
		if err != nil {
			closeOut()
			return err
		}
		n, err := export.Copy(w, db.Columns(), db.Records())
		if cerr := closeOut(); err == nil {
			err = cerr
		}
		if err != nil {
			if output != "-" {
				os.Remove(output)
			}
			return fmt.Errorf("failed to write records: %w", err)
		}

		container.Logger("read").WithFields(logrus.Fields{
			"input":   input,
			"version": db.Version(),
			"records": n,
		}).Debug("dump decoded")
		if output != "-" {
			cmd.Printf("Wrote %d records (version %d) to %s\n", n, db.Version(), output)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().StringP("format", "f", "", "Output format: csv or json (default from config)")
}
