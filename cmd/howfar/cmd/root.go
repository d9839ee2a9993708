/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/ssargent/howfar/pkg/config"
	"github.com/ssargent/howfar/pkg/di"
)

// container holds injected dependencies
var container *di.Container

// SetContainer sets the dependency injection container
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "howfar",
	Short: "HowFar flash dump toolkit",
	Long: `howfar reads measurement dumps copied off a HowFar device, writes
settings files the device picks up on its next start, and keeps every
imported dump in a local archive that can be queried or served over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		logLevel, _ := cmd.Flags().GetString("log-level")
		return loadContainer(configPath, logLevel)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file (default ~/.config/howfar/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level")
}

// loadContainer reads the configuration into the container. An explicit path
// must exist; the default path is optional.
func loadContainer(configPath, logLevel string) error {
	if container == nil {
		container = di.NewContainer()
	}

	cfg := config.DefaultConfig()
	path := configPath
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	if configPath != "" || config.ConfigExists(path) {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	container.SetConfig(cfg)
	container.SetLogger(logger)
	return nil
}

// configPathFor returns the --config value or the default path
func configPathFor(cmd *cobra.Command) string {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return path
	}
	return config.GetDefaultConfigPath()
}

// openOutput opens path for writing, "-" selects the command's stdout
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
