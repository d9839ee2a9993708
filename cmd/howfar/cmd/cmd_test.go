package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/ssargent/howfar/pkg/api"
	"github.com/ssargent/howfar/pkg/config"
	"github.com/ssargent/howfar/pkg/di"
	"github.com/ssargent/howfar/pkg/howfar"
	"github.com/ssargent/howfar/pkg/howfar/howfartest"
	"github.com/ssargent/howfar/pkg/uf2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const t0 = 1726400000

// setupTestEnv writes a config with a temporary archive and a fresh container
func setupTestEnv(t *testing.T) (string, string) {
	tmpDir, err := os.MkdirTemp("", "howfar_cmd_test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	cfg := config.DefaultConfig()
	cfg.ArchiveDir = filepath.Join(tmpDir, "archive")
	cfg.Output.Timezone = "UTC"
	cfg.Logging.Level = "error"
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, config.SaveConfig(cfg, configPath))

	c := di.NewContainer()
	c.SetRegisterer(prometheus.NewRegistry())
	SetContainer(c)

	return tmpDir, configPath
}

// executeCommand runs the root command with fresh flag values
func executeCommand(args ...string) (string, error) {
	resetFlags(rootCmd)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func writeDump(t *testing.T, dir, name string, n int) string {
	path := filepath.Join(dir, name)
	stream := howfartest.Dump(howfartest.Version, howfartest.Series(t0, n)...)
	require.NoError(t, os.WriteFile(path, stream, 0644))
	return path
}

func TestReadCommand(t *testing.T) {
	tmpDir, configPath := setupTestEnv(t)
	input := writeDump(t, tmpDir, "CURRENT.UF2", 3)

	t.Run("CSV file", func(t *testing.T) {
		output := filepath.Join(tmpDir, "out.csv")
		out, err := executeCommand("read", input, output, "--config", configPath)
		require.NoError(t, err)
		assert.Contains(t, out, "Wrote 3 records (version 2024091501)")

		data, err := os.ReadFile(output)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		require.Len(t, lines, 4)
		assert.Equal(t, "datetime,timestamp,alx_lx,tof_distance_mm", lines[0])
		assert.Equal(t, "2024-09-15T11:33:20,1726400000,0.0,100", lines[1])
		assert.Equal(t, "2024-09-15T11:34:20,1726400060,0.01,101", lines[2])
	})

	t.Run("JSON to stdout", func(t *testing.T) {
		out, err := executeCommand("read", input, "-", "--format", "json", "--config", configPath)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 3)
		assert.JSONEq(t, `{"datetime":"2024-09-15T11:33:20","timestamp":1726400000,"alx_lx":0,"tof_distance_mm":100}`, lines[0])
	})

	t.Run("Missing argument", func(t *testing.T) {
		_, err := executeCommand("read", input, "--config", configPath)
		assert.Error(t, err)
	})

	t.Run("Undecodable dump", func(t *testing.T) {
		bad := filepath.Join(tmpDir, "bad.uf2")
		require.NoError(t, os.WriteFile(bad, make([]byte, 100), 0644))
		output := filepath.Join(tmpDir, "bad.csv")

		_, err := executeCommand("read", bad, output, "--config", configPath)
		assert.ErrorIs(t, err, howfar.ErrImageSizeMismatch)
		assert.NoFileExists(t, output)
	})

	t.Run("Unknown format", func(t *testing.T) {
		_, err := executeCommand("read", input, "-", "--format", "xml", "--config", configPath)
		assert.Error(t, err)
	})
}

func TestConfigureCommand(t *testing.T) {
	tmpDir, configPath := setupTestEnv(t)

	t.Run("No arguments prints defaults", func(t *testing.T) {
		out, err := executeCommand("configure", "--config", configPath)
		assert.ErrorIs(t, err, errMissingOutput)
		assert.Contains(t, out, "Default settings:")
		assert.Contains(t, out, "  measurementInterval=")
		assert.NotContains(t, out, "_featurePadding")
	})

	t.Run("Writes settings file", func(t *testing.T) {
		output := filepath.Join(tmpDir, "optoconf.uf2")
		out, err := executeCommand("configure", output, "examinationIdentifier=P0042", "featureTOF=0", "--config", configPath)
		require.NoError(t, err)
		assert.Contains(t, out, "examinationIdentifier=P0042\n")
		assert.Contains(t, out, "featureTOF=0\n")

		stream, err := os.ReadFile(output)
		require.NoError(t, err)
		assert.Len(t, stream, uf2.BlockSize)

		blob, err := uf2.Decode(stream)
		require.NoError(t, err)
		settings, err := howfar.ParseSettings(blob)
		require.NoError(t, err)
		id, err := settings.GetString(howfar.IdentifierKey)
		require.NoError(t, err)
		assert.Equal(t, "P0042", id)
		tof, err := settings.Get("featureTOF")
		require.NoError(t, err)
		assert.Equal(t, uint64(0), tof)
	})

	t.Run("Help example runs", func(t *testing.T) {
		output := filepath.Join(tmpDir, "example.uf2")
		out, err := executeCommand("configure", output, "examinationIdentifier=P0042", "measurementInterval=30", "--config", configPath)
		require.NoError(t, err)
		assert.Contains(t, out, "measurementInterval=30\n")
		assert.Contains(t, out, "examinationIdentifier=P0042\n")
	})

	t.Run("Unknown setting", func(t *testing.T) {
		output := filepath.Join(tmpDir, "rejected.uf2")
		_, err := executeCommand("configure", output, "bogus=1", "--config", configPath)
		assert.ErrorIs(t, err, howfar.ErrUnknownSetting)
		assert.NoFileExists(t, output)
	})

	t.Run("Malformed argument", func(t *testing.T) {
		_, err := executeCommand("configure", filepath.Join(tmpDir, "x.uf2"), "featureTOF", "--config", configPath)
		assert.ErrorIs(t, err, howfar.ErrMalformedArgument)
	})
}

func TestArchiveCommands(t *testing.T) {
	tmpDir, configPath := setupTestEnv(t)
	first := writeDump(t, tmpDir, "monday.uf2", 5)
	second := writeDump(t, tmpDir, "tuesday.uf2", 8)

	out, err := executeCommand("import", first, second, "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "5 records, 5 new")
	assert.Contains(t, out, "8 records, 3 new")

	t.Run("Import skips identical dump", func(t *testing.T) {
		out, err := executeCommand("import", first, "--config", configPath)
		require.NoError(t, err)
		assert.Contains(t, out, "Skipped "+first)
	})

	t.Run("List captures", func(t *testing.T) {
		out, err := executeCommand("captures", "--config", configPath)
		require.NoError(t, err)
		assert.Contains(t, out, "monday.uf2")
		assert.Contains(t, out, "tuesday.uf2")
		assert.Contains(t, out, "2024091501")
	})

	t.Run("Export range", func(t *testing.T) {
		out, err := executeCommand("export", "--from", "2024-09-15T11:34:20", "--to", "1726400180", "--config", configPath)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 4)
		assert.Equal(t, "datetime,timestamp,alx_lx,tof_distance_mm", lines[0])
		assert.True(t, strings.HasPrefix(lines[1], "2024-09-15T11:34:20,1726400060,"))
		assert.True(t, strings.HasPrefix(lines[3], "2024-09-15T11:36:20,1726400180,"))
	})

	t.Run("Export to file", func(t *testing.T) {
		output := filepath.Join(tmpDir, "all.csv")
		out, err := executeCommand("export", output, "--config", configPath)
		require.NoError(t, err)
		assert.Contains(t, out, "Wrote 8 records")
		assert.FileExists(t, output)
	})

	t.Run("Export bad time", func(t *testing.T) {
		_, err := executeCommand("export", "--from", "yesterday", "--config", configPath)
		assert.Error(t, err)
	})

	t.Run("Import rejects bad dump", func(t *testing.T) {
		bad := filepath.Join(tmpDir, "bad.uf2")
		require.NoError(t, os.WriteFile(bad, []byte("not a dump"), 0644))
		_, err := executeCommand("import", bad, "--config", configPath)
		assert.Error(t, err)
	})

	t.Run("Show unknown capture", func(t *testing.T) {
		_, err := executeCommand("captures", "show", "nope", "--config", configPath)
		assert.Error(t, err)
	})
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{"", 0, false},
		{"1726400000", 1726400000, false},
		{"2024-09-15T11:33:20", 1726400000, false},
		{"2024-09-15T13:33:20+02:00", 1726400000, false},
		{"1969-12-31T23:59:59", 0, true},
		{"next week", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTimestamp(tt.in, time.UTC)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type fakeStarter struct {
	called bool
	config api.ServerConfig
}

func (f *fakeStarter) StartServer(ctx context.Context, store api.ArchiveStore, config api.ServerConfig, metrics *api.Metrics) error {
	f.called = true
	f.config = config
	if config.Port == 1 {
		return errors.New("port in use")
	}
	return nil
}

type fakeFactory struct{ starter *fakeStarter }

func (f *fakeFactory) CreateServerStarter() api.ServerStarter { return f.starter }

func TestServeCommand(t *testing.T) {
	_, configPath := setupTestEnv(t)
	starter := &fakeStarter{}
	container.SetServerFactory(&fakeFactory{starter: starter})

	t.Run("Uses config defaults", func(t *testing.T) {
		_, err := executeCommand("serve", "--config", configPath)
		require.NoError(t, err)
		assert.True(t, starter.called)
		assert.Equal(t, 8080, starter.config.Port)
		assert.Equal(t, "127.0.0.1", starter.config.Bind)
		assert.Empty(t, starter.config.AllowedOrigins)
	})

	t.Run("Flags override config", func(t *testing.T) {
		_, err := executeCommand("serve", "--port", "9000", "--api-key", "secret",
			"--allowed-origins", "http://a.example, http://b.example", "--config", configPath)
		require.NoError(t, err)
		assert.Equal(t, 9000, starter.config.Port)
		assert.Equal(t, "secret", starter.config.APIKey)
		assert.Equal(t, []string{"http://a.example", "http://b.example"}, starter.config.AllowedOrigins)
	})

	t.Run("Start failure", func(t *testing.T) {
		_, err := executeCommand("serve", "--port", "1", "--config", configPath)
		assert.Error(t, err)
	})
}

func TestConfigCommands(t *testing.T) {
	tmpDir, configPath := setupTestEnv(t)

	t.Run("Show", func(t *testing.T) {
		out, err := executeCommand("config", "show", "--config", configPath)
		require.NoError(t, err)
		assert.Contains(t, out, "timezone: UTC")
		assert.Contains(t, out, "0xBABBBA4E")
	})

	t.Run("Init refuses to overwrite", func(t *testing.T) {
		_, err := executeCommand("config", "init", "--config", configPath)
		assert.Error(t, err)
	})

	t.Run("Init new file", func(t *testing.T) {
		path := filepath.Join(tmpDir, "nested", "howfar.yaml")
		out, err := executeCommand("config", "init", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Configuration written to")

		cfg, err := config.LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, config.DefaultConfig().ArchiveDir, cfg.ArchiveDir)
	})

	t.Run("Missing explicit config", func(t *testing.T) {
		_, err := executeCommand("config", "show", "--config", filepath.Join(tmpDir, "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("Log level override", func(t *testing.T) {
		_, err := executeCommand("config", "show", "--log-level", "verbose", "--config", configPath)
		assert.Error(t, err)
	})
}
