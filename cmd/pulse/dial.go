package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/pulse/internal/config"
	"go.klb.dev/pulse/internal/control"
	"go.klb.dev/pulse/internal/ipc"
)

var errNoAgent = errors.New("no pulse agent is running (start one with \"pulse agent\")")

// addAgentFlags adds the flags every agent client command shares.
func addAgentFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("control-addr", "", "agent control address (used when no local agent socket answers)")
	f.String("control-token", "", "bearer token for --control-addr")
	f.String("log-format", "auto", "log format: auto|text|json")
	f.String("log-level", "", "log level: debug|info|warn|error (default: warn)")
	addListenFlag(cmd)
	addConfigFlag(cmd)
}

// dialAgent connects to the running agent. The local socket wins unless
// --control-addr was given explicitly; the configured control address is
// the fallback.
func dialAgent(cmd *cobra.Command, v *viper.Viper) (*control.Client, string, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, "", err
	}

	if !cmd.Flags().Changed("control-addr") && ipc.IsRunning(cfg.Listen) {
		c, err := control.Dial("unix://"+cfg.Listen, "")
		if err == nil {
			return c, fmt.Sprintf("ipc (%s)", cfg.Listen), nil
		}
		slog.Debug("ipc dial failed, trying tcp", "err", err)
	}

	if cfg.ControlAddr == "" {
		return nil, "", errNoAgent
	}
	c, err := control.Dial(cfg.ControlAddr, cfg.ControlToken)
	if err != nil {
		return nil, "", err
	}
	return c, fmt.Sprintf("tcp (%s)", cfg.ControlAddr), nil
}
