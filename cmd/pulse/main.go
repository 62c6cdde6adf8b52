// pulse: clipboard screenshot uploader and status-bar system monitor.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "pulse",
		Short: "Clipboard screenshot uploader and status-bar system monitor",
		Long: `pulse runs in the background, uploads the clipboard image to your image
host when the global hotkey is pressed, and shows live CPU and network
figures in the status bar.

Run "pulse agent" to start it. The other commands talk to the running agent
over its local socket.

Config file search order (first found wins):
  /etc/pulse/config.toml
  $HOME/.config/pulse/config.toml
  path supplied via --config

All settings can be set via PULSE_<KEY> env vars (e.g. PULSE_UPLOAD_TOKEN)
or config-file keys. See "pulse agent --help" for the full flag reference.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newAgentCmd(),
		newTriggerCmd(),
		newUploadCmd(),
		newStatsCmd(),
		newClipboardCmd(),
		newEventsCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("pulse %s\n", Version)
		},
	}
}
