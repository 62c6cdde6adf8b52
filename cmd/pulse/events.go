package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/pulse/internal/events"
)

func newEventsCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow the agent's UI events",
		Long: `Streams the events the agent sends to its UI (show-window,
switch-to-upload, upload-result and status-bar) until interrupted.

Status-bar updates arrive every second; pass --no-status to hide them.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runEvents(cmd, v) },
	}

	f := cmd.Flags()
	f.Bool("no-status", false, "hide status-bar events")
	f.Bool("json", false, "one JSON object per line")
	addAgentFlags(cmd)

	return cmd
}

func runEvents(cmd *cobra.Command, v *viper.Viper) error {
	setupQuietLogging(v)

	c, transport, err := dialAgent(cmd, v)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hideStatus := v.GetBool("no-status")
	jsonOut := v.GetBool("json")
	enc := json.NewEncoder(os.Stdout)

	fmt.Fprintf(os.Stderr, "following events via %s\n", transport)
	return c.Events(ctx, func(ev events.Event) {
		if hideStatus && ev.Name == events.StatusBar {
			return
		}
		if jsonOut {
			_ = enc.Encode(ev)
			return
		}
		payload := ""
		if ev.Payload != nil {
			if b, err := json.Marshal(ev.Payload); err == nil {
				payload = string(b)
			}
		}
		fmt.Printf("%s  %-16s %s\n", ev.At.Local().Format(time.TimeOnly), ev.Name, payload)
	})
}
