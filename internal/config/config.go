// Package config resolves pulse settings from defaults, the TOML config
// file, PULSE_* environment variables and command-line flags, in that order
// of increasing precedence, and freezes them into a Config value.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"go.klb.dev/pulse/internal/hotkey"
	"go.klb.dev/pulse/internal/ipc"
	"go.klb.dev/pulse/internal/metrics"
	"go.klb.dev/pulse/internal/upload"
)

const (
	AppName   = "pulse"
	EnvPrefix = "PULSE"
	FileName  = "config.toml"
)

// Keys as they appear in the config file. Environment variables use the
// upper-cased key with "." and "-" replaced by "_", e.g. PULSE_UPLOAD_TOKEN.
const (
	KeyUploadURL          = "upload.url"
	KeyUploadToken        = "upload.token"
	KeyUploadBaseURL      = "upload.base_url"
	KeyUploadTimeout      = "upload.timeout"
	KeyUploadSingleFlight = "upload.single_flight"
	KeyHotkey             = "hotkey"
	KeyListen             = "listen"
	KeyDebugDump          = "debug.dump"
	KeyDebugDumpPath      = "debug.dump_path"
	KeyMetricsInterval    = "metrics.interval"
	KeyTray               = "tray"
	KeyControlAddr        = "control.addr"
	KeyControlToken       = "control.token"
)

// ErrNoEndpoint is returned by Config.RequireUpload when upload.url is unset.
var ErrNoEndpoint = errors.New("upload.url is not configured (run \"pulse config init\")")

// Upload holds the image host settings.
type Upload struct {
	URL          string
	Token        string
	BaseURL      string
	Timeout      time.Duration
	SingleFlight bool
}

// Config is the resolved, immutable configuration. Pass it by value.
type Config struct {
	Upload          Upload
	Hotkey          hotkey.Combo
	Listen          string
	DumpPath        string // empty when debug dumps are off
	MetricsInterval time.Duration
	Tray            bool
	// ControlAddr is an optional TCP address serving the control plane to
	// the web UI, in addition to the Listen socket.
	ControlAddr  string
	ControlToken string
	File         string // config file used, if any
}

// UploadConfig converts the upload section for upload.New.
func (c Config) UploadConfig() upload.Config {
	return upload.Config{
		Endpoint: c.Upload.URL,
		BaseURL:  c.Upload.BaseURL,
		Token:    c.Upload.Token,
		Timeout:  c.Upload.Timeout,
	}
}

// RequireUpload reports whether uploads can work at all.
func (c Config) RequireUpload() error {
	if c.Upload.URL == "" {
		return ErrNoEndpoint
	}
	return nil
}

// SetDefaults registers the default for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyUploadURL, "")
	v.SetDefault(KeyUploadToken, "")
	v.SetDefault(KeyUploadBaseURL, "")
	v.SetDefault(KeyUploadTimeout, upload.DefaultTimeout)
	v.SetDefault(KeyUploadSingleFlight, false)
	v.SetDefault(KeyHotkey, hotkey.Default())
	v.SetDefault(KeyListen, ipc.SocketPath())
	v.SetDefault(KeyDebugDump, false)
	v.SetDefault(KeyDebugDumpPath, filepath.Join(os.TempDir(), "clipboard_debug.png"))
	v.SetDefault(KeyMetricsInterval, metrics.DefaultInterval)
	v.SetDefault(KeyTray, true)
	v.SetDefault(KeyControlAddr, "")
	v.SetDefault(KeyControlToken, "")
}

// Path returns the per-user config file path, ~/.config/pulse/config.toml.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config path: %w", err)
	}
	return filepath.Join(home, ".config", AppName, FileName), nil
}

// Read prepares v: defaults, the config file and the environment. When
// file is empty the system and per-user locations are searched and a
// missing file is not an error.
func Read(v *viper.Viper, file string) error {
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Join("/etc", AppName))
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", AppName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return nil
}

// flagKeys maps command-line flag names to the config keys they override.
var flagKeys = map[string]string{
	"url":              KeyUploadURL,
	"token":            KeyUploadToken,
	"base-url":         KeyUploadBaseURL,
	"timeout":          KeyUploadTimeout,
	"single-flight":    KeyUploadSingleFlight,
	"hotkey":           KeyHotkey,
	"listen":           KeyListen,
	"dump":             KeyDebugDump,
	"dump-path":        KeyDebugDumpPath,
	"metrics-interval": KeyMetricsInterval,
	"tray":             KeyTray,
	"control-addr":     KeyControlAddr,
	"control-token":    KeyControlToken,
}

// BindFlags binds command-line flags into v. Flags listed in flagKeys
// override their config key; every other flag is bound under its own name.
// Flags not set on the command line never override the file or environment.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	if err := v.BindPFlags(fs); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag --%s: %w", name, err)
		}
	}
	return nil
}

// Load validates the values in v and freezes them.
func Load(v *viper.Viper) (Config, error) {
	combo, err := hotkey.Parse(v.GetString(KeyHotkey))
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", KeyHotkey, err)
	}

	cfg := Config{
		Upload: Upload{
			URL:          strings.TrimSpace(v.GetString(KeyUploadURL)),
			Token:        v.GetString(KeyUploadToken),
			BaseURL:      strings.TrimSpace(v.GetString(KeyUploadBaseURL)),
			Timeout:      v.GetDuration(KeyUploadTimeout),
			SingleFlight: v.GetBool(KeyUploadSingleFlight),
		},
		Hotkey:          combo,
		Listen:          v.GetString(KeyListen),
		MetricsInterval: v.GetDuration(KeyMetricsInterval),
		Tray:            v.GetBool(KeyTray),
		ControlAddr:     strings.TrimSpace(v.GetString(KeyControlAddr)),
		ControlToken:    v.GetString(KeyControlToken),
		File:            v.ConfigFileUsed(),
	}
	if v.GetBool(KeyDebugDump) {
		cfg.DumpPath = v.GetString(KeyDebugDumpPath)
	}

	if cfg.Upload.URL != "" {
		if err := checkURL(cfg.Upload.URL); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", KeyUploadURL, err)
		}
	}
	if cfg.Upload.Timeout <= 0 {
		return Config{}, fmt.Errorf("config %s: must be positive, got %s", KeyUploadTimeout, cfg.Upload.Timeout)
	}
	if cfg.MetricsInterval <= 0 {
		return Config{}, fmt.Errorf("config %s: must be positive, got %s", KeyMetricsInterval, cfg.MetricsInterval)
	}
	if cfg.Listen == "" {
		return Config{}, fmt.Errorf("config %s: must not be empty", KeyListen)
	}
	if cfg.ControlAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.ControlAddr); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", KeyControlAddr, err)
		}
		if cfg.ControlToken == "" {
			return Config{}, fmt.Errorf("config %s: required when %s is set", KeyControlToken, KeyControlAddr)
		}
	}
	return cfg, nil
}

func checkURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q: scheme must be http or https", s)
	}
	if u.Host == "" {
		return fmt.Errorf("%q: missing host", s)
	}
	return nil
}
