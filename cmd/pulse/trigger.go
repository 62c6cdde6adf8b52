package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newTriggerCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Upload the clipboard image, as if the hotkey was pressed",
		Long: `Asks the running agent to start an upload run. The command returns as soon
as the run has started; the result is shown in the agent's UI. Use
"pulse events" to watch it.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runTrigger(cmd, v) },
	}
	addAgentFlags(cmd)
	return cmd
}

func runTrigger(cmd *cobra.Command, v *viper.Viper) error {
	setupQuietLogging(v)

	c, transport, err := dialAgent(cmd, v)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Trigger(ctx); err != nil {
		return fmt.Errorf("trigger: %w", err)
	}
	fmt.Printf("upload started via %s\n", transport)
	return nil
}
