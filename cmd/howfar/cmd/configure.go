/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/ssargent/howfar/pkg/howfar"
)

var errMissingOutput = errors.New("missing output file")

// configureCmd represents the configure command
var configureCmd = &cobra.Command{
	Use:   "configure <output.uf2> [setting=value ...]",
	Short: "Write a settings file for the device",
	Long: `Write a UF2 settings file the device applies on its next start.

Settings not named on the command line keep their defaults. Run without
arguments to list the settings and their default values.

Examples:
  howfar configure /media/HOWFAR/optoconf.uf2
  howfar configure optoconf.uf2 examinationIdentifier=P0042 measurementInterval=30`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := howfar.DefaultSettings(time.Now())

		if len(args) == 0 {
			cmd.Println(cmd.UsageString())
			cmd.Println("Default settings:")
			printSettings(cmd, settings, "  ")
			return errMissingOutput
		}

		output := args[0]
		assignments, err := howfar.ParseAssignments(args[1:])
		if err != nil {
			return err
		}
		for _, a := range assignments {
			if err := settings.Set(a.Key, a.Value); err != nil {
				return err
			}
		}

		printSettings(cmd, settings, "")

		stream := container.Encoder().Encode(settings.Pack())
		if err := os.WriteFile(output, stream, 0644); err != nil {
			return fmt.Errorf("failed to write settings: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configureCmd)
}

func printSettings(cmd *cobra.Command, settings *howfar.Settings, indent string) {
	for _, key := range settings.Keys() {
		value, err := settings.Get(key)
		if err != nil {
			continue
		}
		cmd.Printf("%s%s=%v\n", indent, key, value)
	}
}
