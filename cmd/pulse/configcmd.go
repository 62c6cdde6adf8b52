package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/pulse/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigPathCmd(), newConfigShowCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter config file",
		Long: `Writes a commented starter config to ~/.config/pulse/config.toml, or to
path when given. An existing file is left alone unless --force is passed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path, err := configPathArg(args)
			if err != nil {
				return err
			}
			if force {
				if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
					return err
				}
			}
			if err := config.WriteDefault(path); err != nil {
				if errors.Is(err, config.ErrExists) {
					return fmt.Errorf("%w (use --force to overwrite)", err)
				}
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the per-user config file path",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path, err := config.Path()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:     "show",
		Short:   "Print the resolved configuration",
		Long:    `Prints every setting after defaults, the config file and PULSE_* env vars are applied. Tokens are masked.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			file := cfg.File
			if file == "" {
				file = "(none)"
			}
			dump := cfg.DumpPath
			if dump == "" {
				dump = "off"
			}

			w := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
			fmt.Fprintf(w, "FILE\t%s\n", file)
			fmt.Fprintf(w, "%s\t%s\n", config.KeyUploadURL, cfg.Upload.URL)
			fmt.Fprintf(w, "%s\t%s\n", config.KeyUploadToken, mask(cfg.Upload.Token))
			fmt.Fprintf(w, "%s\t%s\n", config.KeyUploadBaseURL, cfg.Upload.BaseURL)
			fmt.Fprintf(w, "%s\t%s\n", config.KeyUploadTimeout, cfg.Upload.Timeout)
			fmt.Fprintf(w, "%s\t%t\n", config.KeyUploadSingleFlight, cfg.Upload.SingleFlight)
			fmt.Fprintf(w, "%s\t%s\n", config.KeyHotkey, cfg.Hotkey)
			fmt.Fprintf(w, "%s\t%s\n", config.KeyListen, cfg.Listen)
			fmt.Fprintf(w, "%s\t%s\n", config.KeyMetricsInterval, cfg.MetricsInterval)
			fmt.Fprintf(w, "%s\t%t\n", config.KeyTray, cfg.Tray)
			fmt.Fprintf(w, "%s\t%s\n", config.KeyControlAddr, cfg.ControlAddr)
			fmt.Fprintf(w, "%s\t%s\n", config.KeyControlToken, mask(cfg.ControlToken))
			fmt.Fprintf(w, "%s\t%s\n", config.KeyDebugDumpPath, dump)
			return w.Flush()
		},
	}
	addConfigFlag(cmd)
	return cmd
}

func configPathArg(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	return config.Path()
}

// mask hides all but the last four characters of a secret.
func mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "****"
	default:
		return "****" + s[len(s)-4:]
	}
}
