/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ssargent/howfar/pkg/api"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Serve the capture archive over HTTP until interrupted.

Reads are open. When an API key is set, uploads and deletes require it in
the X-API-Key header. Prometheus metrics are exposed on /metrics and the
API documentation on /swagger/.

Examples:
  howfar serve
  howfar serve --bind 0.0.0.0 --port 9000 --api-key=mysecretkey`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := container.GetConfig()

		port, _ := cmd.Flags().GetInt("port")
		bind, _ := cmd.Flags().GetString("bind")
		apiKey, _ := cmd.Flags().GetString("api-key")
		origins, _ := cmd.Flags().GetString("allowed-origins")
		maxUpload, _ := cmd.Flags().GetInt64("max-upload")

		if !cmd.Flags().Changed("port") {
			port = cfg.Port
		}
		if !cmd.Flags().Changed("bind") {
			bind = cfg.Bind
		}
		if apiKey == "" {
			apiKey = os.Getenv("HOWFAR_API_KEY")
		}

		arch, err := container.OpenArchive()
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer arch.Close()

		serverConfig := api.ServerConfig{
			Port:           port,
			Bind:           bind,
			APIKey:         apiKey,
			AllowedOrigins: splitList(origins),
			MaxUploadSize:  maxUpload,
			Logger:         container.Logger("api"),
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		starter := container.GetServerFactory().CreateServerStarter()
		if err := starter.StartServer(ctx, arch, serverConfig, container.Metrics()); err != nil {
			return fmt.Errorf("error starting server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (default from config)")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind (default from config)")
	serveCmd.Flags().String("api-key", "", "API key for uploads and deletes (or HOWFAR_API_KEY)")
	serveCmd.Flags().String("allowed-origins", "", "Comma separated CORS origins")
	serveCmd.Flags().Int64("max-upload", api.DefaultMaxUploadSize, "Largest accepted upload in bytes")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
