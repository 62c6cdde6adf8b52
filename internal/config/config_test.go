package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/pulse/internal/hotkey"
	"go.klb.dev/pulse/internal/upload"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("url", "", "")
	fs.String("token", "", "")
	fs.String("hotkey", "", "")
	fs.Bool("dump", false, "")
	fs.Bool("tray", true, "")
	fs.String("log-level", "", "")
	return fs
}

func TestDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	v := viper.New()
	require.NoError(t, Read(v, ""))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Empty(t, cfg.Upload.URL)
	assert.ErrorIs(t, cfg.RequireUpload(), ErrNoEndpoint)
	assert.Equal(t, upload.DefaultTimeout, cfg.Upload.Timeout)
	assert.False(t, cfg.Upload.SingleFlight)
	assert.Equal(t, time.Second, cfg.MetricsInterval)
	assert.True(t, cfg.Tray)
	assert.Empty(t, cfg.DumpPath)
	assert.NotEmpty(t, cfg.Listen)

	want, err := hotkey.Parse(hotkey.Default())
	require.NoError(t, err)
	assert.Equal(t, want, cfg.Hotkey)
}

func TestFileValues(t *testing.T) {
	path := writeConfig(t, `
hotkey = "ctrl+alt+p"
tray = false

[upload]
url = "https://img.example.com/api/image"
token = "file-token"
base_url = "https://img.example.com"
timeout = "5s"
single_flight = true

[debug]
dump = true
dump_path = "/tmp/x.png"

[metrics]
interval = "2s"
`)
	v := viper.New()
	require.NoError(t, Read(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, upload.Config{
		Endpoint: "https://img.example.com/api/image",
		BaseURL:  "https://img.example.com",
		Token:    "file-token",
		Timeout:  5 * time.Second,
	}, cfg.UploadConfig())
	assert.True(t, cfg.Upload.SingleFlight)
	assert.Equal(t, "ctrl+alt+p", cfg.Hotkey.String())
	assert.False(t, cfg.Tray)
	assert.Equal(t, "/tmp/x.png", cfg.DumpPath)
	assert.Equal(t, 2*time.Second, cfg.MetricsInterval)
	assert.Equal(t, path, cfg.File)
	assert.NoError(t, cfg.RequireUpload())
}

func TestPrecedence(t *testing.T) {
	path := writeConfig(t, `
[upload]
url = "https://file.example.com/up"
token = "file-token"
`)
	t.Setenv("PULSE_UPLOAD_TOKEN", "env-token")
	t.Setenv("PULSE_UPLOAD_URL", "https://env.example.com/up")

	fs := flags()
	require.NoError(t, fs.Parse([]string{"--url", "https://flag.example.com/up"}))

	v := viper.New()
	require.NoError(t, Read(v, path))
	require.NoError(t, BindFlags(v, fs))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "https://flag.example.com/up", cfg.Upload.URL, "flag beats env")
	assert.Equal(t, "env-token", cfg.Upload.Token, "env beats file")
	assert.True(t, cfg.Tray, "unset flag does not override default")
}

func TestUnsetFlagKeepsFileValue(t *testing.T) {
	path := writeConfig(t, "tray = false\n")
	fs := flags()
	require.NoError(t, fs.Parse(nil))

	v := viper.New()
	require.NoError(t, Read(v, path))
	require.NoError(t, BindFlags(v, fs))
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.False(t, cfg.Tray)
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]string{
		"bad hotkey":    `hotkey = "shift+"`,
		"bad scheme":    "[upload]\nurl = \"ftp://x/y\"",
		"no host":       "[upload]\nurl = \"https:///y\"",
		"zero timeout":  "[upload]\ntimeout = \"0s\"",
		"zero interval": "[metrics]\ninterval = \"0s\"",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			v := viper.New()
			require.NoError(t, Read(v, writeConfig(t, body)))
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}

func TestReadMissingExplicitFile(t *testing.T) {
	v := viper.New()
	assert.Error(t, Read(v, filepath.Join(t.TempDir(), "nope.toml")))
}

func TestSearchPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".config", "pulse")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[upload]\ntoken = \"home\"\n"), 0o600))

	v := viper.New()
	require.NoError(t, Read(v, ""))
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "home", cfg.Upload.Token)
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, WriteDefault(path))
	assert.ErrorIs(t, WriteDefault(path), ErrExists)

	v := viper.New()
	require.NoError(t, Read(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "https://your-upload-server.com/api/image", cfg.Upload.URL)
	assert.Equal(t, "your-token-here", cfg.Upload.Token)
	assert.Equal(t, "https://your-upload-server.com", cfg.Upload.BaseURL)
}

func TestPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	p, err := Path()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "pulse", "config.toml"), p)
}

func TestControlAddrNeedsToken(t *testing.T) {
	v := viper.New()
	require.NoError(t, Read(v, writeConfig(t, "[control]\naddr = \"127.0.0.1:38417\"\n")))
	_, err := Load(v)
	assert.ErrorContains(t, err, KeyControlToken)

	v = viper.New()
	require.NoError(t, Read(v, writeConfig(t, "[control]\naddr = \"127.0.0.1:38417\"\ntoken = \"t\"\n")))
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:38417", cfg.ControlAddr)
	assert.Equal(t, "t", cfg.ControlToken)
}
