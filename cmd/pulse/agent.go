package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"go.klb.dev/pulse/internal/clip"
	"go.klb.dev/pulse/internal/config"
	"go.klb.dev/pulse/internal/control"
	"go.klb.dev/pulse/internal/events"
	"go.klb.dev/pulse/internal/hotkey"
	"go.klb.dev/pulse/internal/ipc"
	"go.klb.dev/pulse/internal/metrics"
	"go.klb.dev/pulse/internal/pipeline"
	"go.klb.dev/pulse/internal/statusbar"
	"go.klb.dev/pulse/internal/tray"
	"go.klb.dev/pulse/internal/trigger"
	"go.klb.dev/pulse/internal/upload"
)

func newAgentCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Run the background agent",
		Long: `Starts the pulse agent.

The agent registers the global hotkey, and on each press reads the image on
the clipboard, encodes it as PNG and uploads it to the configured image host,
retrying transient failures up to three times. The result is published to
every UI attached to the control plane.

Alongside, CPU, memory, disk and network figures are sampled every second and
shown as the status item title. The status item menu can also start an upload.

The control plane listens on a local Unix socket and, when --control-addr is
set, on TCP as well. Both serve gRPC and REST on the same port.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runAgent(v) },
	}

	f := cmd.Flags()
	f.String("url", "", "image host upload endpoint")
	f.String("token", "", "bearer token for the image host")
	f.String("base-url", "", "prefix for relative URLs returned by the image host")
	f.Duration("timeout", upload.DefaultTimeout, "per-attempt upload timeout")
	f.Bool("single-flight", false, "drop hotkey presses while an upload is running")
	f.String("hotkey", hotkey.Default(), "global upload hotkey, e.g. shift+cmd+u")
	f.Bool("dump", false, "keep a copy of the last encoded screenshot")
	f.String("dump-path", "", "where --dump writes the screenshot")
	f.Duration("metrics-interval", metrics.DefaultInterval, "status item refresh interval")
	f.Bool("tray", true, "show the status item")
	f.String("control-addr", "", "also serve the control plane on this TCP address")
	f.String("control-token", "", "bearer token required on --control-addr")
	addListenFlag(cmd)
	addConfigFlag(cmd)
	addLoggingFlags(cmd)

	return cmd
}

func runAgent(v *viper.Viper) error {
	setupLogging(v)

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	if err := cfg.RequireUpload(); err != nil {
		slog.Warn("uploads will fail until configured", "err", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewBus()
	hub := events.NewHub(events.StatusBar)
	if err := hub.Attach(bus); err != nil {
		return fmt.Errorf("attach hub: %w", err)
	}

	src := clip.New()
	uploader := upload.New(cfg.UploadConfig())
	orch := pipeline.New(src, uploader, events.NewNotifier(bus, hub), pipeline.Options{
		SingleFlight: cfg.Upload.SingleFlight,
		DumpPath:     cfg.DumpPath,
	})
	if err := bus.SubscribeTrigger(func(ev trigger.Event) { orch.HandleTrigger(ev) }); err != nil {
		return fmt.Errorf("subscribe triggers: %w", err)
	}

	sampler := metrics.NewSampler()
	deps := control.Deps{
		Bus:        bus,
		Hub:        hub,
		Uploader:   uploader,
		Stats:      sampler.Latest,
		Clipboard:  src,
		ConfigPath: cfg.File,
	}

	ln, err := ipc.Listen(cfg.Listen)
	if err != nil {
		return err
	}
	var tcp net.Listener
	if cfg.ControlAddr != "" {
		tcp, err = net.Listen("tcp", cfg.ControlAddr)
		if err != nil {
			ln.Close()
			return fmt.Errorf("control listen %s: %w", cfg.ControlAddr, err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var tr *tray.Tray
	var renderer statusbar.Renderer = statusbar.RendererFunc(func(l statusbar.Layout) {
		slog.Debug("status", "text", l.Text)
	})
	if cfg.Tray {
		tr = tray.New(bus, cancel)
		renderer = tr
	}
	label := statusbar.NewLabel(renderer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return control.NewService(deps).Serve(gctx, ln) })
	if tcp != nil {
		remote := deps
		remote.Token = cfg.ControlToken
		g.Go(func() error { return control.NewService(remote).Serve(gctx, tcp) })
	}
	g.Go(func() error {
		if err := hotkey.Listen(gctx, cfg.Hotkey, bus.PublishTrigger); err != nil {
			// The tray menu and the control plane can still trigger uploads.
			slog.Warn("global hotkey unavailable", "hotkey", cfg.Hotkey.String(), "err", err)
		}
		return nil
	})
	g.Go(func() error {
		metrics.Loop(gctx, sampler, cfg.MetricsInterval, func(st metrics.Stats) {
			bus.PublishUI(events.New(events.StatusBar, label.Update(st)))
		})
		return nil
	})

	slog.Info("agent started",
		"version", Version,
		"clipboard", src.Name(),
		"config", cfg.File,
		"tray", cfg.Tray,
	)

	wait := func() error {
		err := g.Wait()
		orch.Wait()
		return err
	}

	if tr == nil {
		hotkey.RunMain(func() { err = wait() })
	} else {
		done := make(chan error, 1)
		tr.Run(func() {
			go func() {
				done <- wait()
				tr.Stop()
			}()
		})
		cancel()
		err = <-done
	}

	if errors.Is(err, context.Canceled) {
		err = nil
	}
	slog.Info("agent stopped")
	return err
}
