package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/pulse/internal/clip"
	"go.klb.dev/pulse/internal/codec"
	"go.klb.dev/pulse/internal/config"
	"go.klb.dev/pulse/internal/upload"
)

func newUploadCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "upload [file]",
		Short: "Upload an image file",
		Long: `Uploads an image to the configured image host and prints the result.

The image is read from the named file, or from stdin when no file (or "-")
is given. PNG is sent as-is; BMP, TIFF and WebP are converted to PNG first.

By default the upload goes through the running agent so that its UI shows
the result. Pass --direct to upload from this process instead, using the
upload settings from the config file, environment and flags.

Examples:
  pulse upload shot.png
  grim - | pulse upload
  pulse upload --direct --json shot.webp`,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, args []string) error { return runUpload(cmd, v, args) },
	}

	f := cmd.Flags()
	f.Bool("direct", false, "upload without the agent")
	f.String("url", "", "image host upload endpoint (with --direct)")
	f.String("token", "", "bearer token for the image host (with --direct)")
	f.String("base-url", "", "prefix for relative URLs (with --direct)")
	f.Duration("timeout", upload.DefaultTimeout, "per-attempt upload timeout (with --direct)")
	f.Bool("json", false, "output raw JSON")
	addAgentFlags(cmd)

	return cmd
}

func runUpload(cmd *cobra.Command, v *viper.Viper, args []string) error {
	setupQuietLogging(v)

	name := "-"
	if len(args) == 1 {
		name = args[0]
	}
	data, err := readInput(name)
	if err != nil {
		return err
	}
	payload, err := toPNG(data)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	slog.Debug("image ready", "source", name, "size", upload.FormatSize(len(payload)))

	ctx := context.Background()
	var out upload.Outcome
	if v.GetBool("direct") {
		cfg, err := config.Load(v)
		if err != nil {
			return err
		}
		if err := cfg.RequireUpload(); err != nil {
			return err
		}
		out, err = upload.New(cfg.UploadConfig()).UploadWithRetry(ctx, payload)
		if err != nil {
			slog.Debug("upload chain failed", "err", err)
		}
	} else {
		c, transport, err := dialAgent(cmd, v)
		if err != nil {
			return err
		}
		defer c.Close()
		slog.Debug("uploading via agent", "transport", transport)
		out, err = c.Upload(ctx, base64.StdEncoding.EncodeToString(payload))
		if err != nil {
			return fmt.Errorf("upload: %w", err)
		}
	}

	if v.GetBool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		printOutcome(out)
	}
	if !out.Success {
		return fmt.Errorf("upload failed: %s", out.Error)
	}
	return nil
}

func readInput(name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

// toPNG passes PNG data through and re-encodes any other supported format.
func toPNG(data []byte) ([]byte, error) {
	if codec.HasPNGSignature(data) {
		return data, nil
	}
	raw, err := clip.DecodeRGBA(data)
	if err != nil {
		return nil, err
	}
	return codec.Encode(raw)
}

func printOutcome(out upload.Outcome) {
	w := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	if !out.Success {
		fmt.Fprintf(w, "ERROR\t%s\n", out.Error)
		w.Flush()
		return
	}
	fmt.Fprintf(w, "URL\t%s\n", out.URL)
	fmt.Fprintf(w, "FILENAME\t%s\n", out.Filename)
	fmt.Fprintf(w, "SIZE\t%s\n", out.Size)
	fmt.Fprintf(w, "DURATION\t%s\n", out.Duration)
	w.Flush()
}
