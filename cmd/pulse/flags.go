package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/pulse/internal/config"
	"go.klb.dev/pulse/internal/logging"
)

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and PULSE_* env var prefix.
//
// Precedence (lowest → highest): defaults → config file → PULSE_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	file, _ := cmd.Flags().GetString("config")
	if err := config.Read(v, file); err != nil {
		return err
	}
	return config.BindFlags(v, cmd.Flags())
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-background", false, "run interactively: tinter logs + debug level")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "", "log level: debug|info|warn|error (default: info for service, debug for interactive)")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// addListenFlag adds the --listen flag naming the agent socket.
func addListenFlag(cmd *cobra.Command) {
	cmd.Flags().String("listen", "", "agent control socket (default: $XDG_RUNTIME_DIR/pulse.sock)")
}

// setupLogging reads logging flags from viper and configures slog.
func setupLogging(v *viper.Viper) {
	logging.Setup(logging.Options{
		Format:      v.GetString("log-format"),
		Level:       v.GetString("log-level"),
		Interactive: v.GetBool("no-background") || logging.IsTTY(os.Stderr),
	})
}

// setupQuietLogging configures slog for one-shot CLI commands: warnings
// and above only, unless --log-level says otherwise.
func setupQuietLogging(v *viper.Viper) {
	level := v.GetString("log-level")
	if level == "" {
		level = "warn"
	}
	logging.Setup(logging.Options{Format: v.GetString("log-format"), Level: level})
}
