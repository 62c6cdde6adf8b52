package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/pulse/internal/clip"
	"go.klb.dev/pulse/internal/upload"
)

func newClipboardCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "clipboard",
		Short: "Show the image currently on the clipboard",
		Long: `Reports whether the clipboard holds an image and how large it is, as the
agent sees it. Pass --save to write the image to a file, or --local to read
this session's clipboard without the agent.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runClipboard(cmd, v) },
	}

	f := cmd.Flags()
	f.Bool("local", false, "read the clipboard directly instead of asking the agent")
	f.String("save", "", "write the clipboard image to this file")
	f.Bool("json", false, "output raw JSON")
	addAgentFlags(cmd)

	return cmd
}

func runClipboard(cmd *cobra.Command, v *viper.Viper) error {
	setupQuietLogging(v)

	var p clip.Preview
	if v.GetBool("local") {
		p = clip.PreviewOf(clip.New())
	} else {
		c, _, err := dialAgent(cmd, v)
		if err != nil {
			return err
		}
		defer c.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		p, err = c.Clipboard(ctx)
		if err != nil {
			return fmt.Errorf("clipboard: %w", err)
		}
	}

	if path := v.GetString("save"); path != "" && p.HasImage {
		data, err := upload.DecodeDataURL(p.DataURL)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("save clipboard image: %w", err)
		}
	}

	if v.GetBool("json") {
		p.DataURL = ""
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}

	w := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	if !p.HasImage {
		fmt.Fprintf(w, "IMAGE\tnone\n")
		if p.Error != "" {
			fmt.Fprintf(w, "REASON\t%s\n", p.Error)
		}
		return w.Flush()
	}
	fmt.Fprintf(w, "IMAGE\tyes\n")
	fmt.Fprintf(w, "SIZE\t%s\n", upload.FormatSize(p.SizeBytes))
	if path := v.GetString("save"); path != "" {
		fmt.Fprintf(w, "SAVED\t%s\n", path)
	}
	return w.Flush()
}
