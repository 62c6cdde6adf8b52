// Package pipeline runs the capture-encode-upload-notify sequence that a
// trigger press starts.
//
// Every pressed event gets its own goroutine. A run walks
//
//	Idle -> Capturing -> Encoding -> Uploading -> Notifying -> Done
//
// and always ends with the full UI choreography, whatever happened before
// Notifying. Runs are independent: two quick presses produce two runs that
// race on the clipboard and interleave their UI events, unless SingleFlight
// is set.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"go.klb.dev/pulse/internal/clip"
	"go.klb.dev/pulse/internal/codec"
	"go.klb.dev/pulse/internal/trigger"
	"go.klb.dev/pulse/internal/upload"
)

// DefaultNotifyDelay separates the three UI notifications so the view can
// mount its result listener before the payload arrives.
const DefaultNotifyDelay = 50 * time.Millisecond

// State is the stage a run is in.
type State uint8

const (
	Idle State = iota
	Capturing
	Encoding
	Uploading
	Notifying
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Encoding:
		return "encoding"
	case Uploading:
		return "uploading"
	case Notifying:
		return "notifying"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Uploader is the part of upload.Client a run needs.
type Uploader interface {
	UploadWithRetry(ctx context.Context, payload []byte) (upload.Outcome, error)
}

// Notifier delivers the run's UI signals. Implementations may fail; a run
// logs those failures and carries on.
type Notifier interface {
	ShowMainWindow() error
	SwitchToUpload() error
	Result(upload.Outcome) error
}

// Options tune an Orchestrator. The zero value is usable.
type Options struct {
	// SingleFlight drops presses that arrive while a run is in progress.
	SingleFlight bool
	// DumpPath, when set, receives a copy of every encoded image.
	DumpPath string
	// NotifyDelay overrides DefaultNotifyDelay.
	NotifyDelay time.Duration
	// StateHook observes every transition. Used by tests and the control plane.
	StateHook func(run string, s State)
}

// Orchestrator owns the collaborators shared by all runs. Its fields are
// fixed at construction and read concurrently by workers.
type Orchestrator struct {
	src  clip.Source
	up   Uploader
	ui   Notifier
	opts Options

	busy atomic.Bool
	wg   sync.WaitGroup
}

// New returns an Orchestrator. None of the collaborators may be nil.
func New(src clip.Source, up Uploader, ui Notifier, opts Options) *Orchestrator {
	if opts.NotifyDelay <= 0 {
		opts.NotifyDelay = DefaultNotifyDelay
	}
	return &Orchestrator{src: src, up: up, ui: ui, opts: opts}
}

// HandleTrigger starts a run for a pressed event and returns immediately.
// It reports whether a run was started.
func (o *Orchestrator) HandleTrigger(ev trigger.Event) bool {
	if ev.State != trigger.Pressed {
		return false
	}
	if o.opts.SingleFlight && !o.busy.CompareAndSwap(false, true) {
		slog.Info("upload already in progress, trigger dropped", "trigger", ev.Name)
		return false
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if o.opts.SingleFlight {
			defer o.busy.Store(false)
		}
		o.Run(context.Background())
	}()
	return true
}

// Wait blocks until every run started by HandleTrigger has finished.
func (o *Orchestrator) Wait() { o.wg.Wait() }

// Run executes one run on the calling goroutine and returns its Outcome
// after the UI has been notified.
func (o *Orchestrator) Run(ctx context.Context) upload.Outcome {
	id := uuid.NewString()
	log := slog.With("run", id)
	start := time.Now()
	log.Info("upload run started")

	out := o.execute(ctx, id, log)

	o.transition(id, Notifying)
	o.notify(log, out)
	o.transition(id, Done)

	log.Info("upload run finished",
		"success", out.Success,
		"error", out.Error,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return out
}

// execute covers Capturing through Uploading. A panic anywhere in a
// collaborator becomes a failed Outcome.
func (o *Orchestrator) execute(ctx context.Context, id string, log *slog.Logger) (out upload.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("upload run panicked", "panic", r)
			out = upload.Failed(fmt.Sprintf("Internal error: %v", r))
		}
	}()

	o.transition(id, Capturing)
	raw, err := o.src.ReadImage()
	if err != nil {
		log.Warn("clipboard read failed", "source", o.src.Name(), "err", err)
		return upload.Failed(clipboardMessage(err))
	}
	log.Debug("clipboard image read", "width", raw.Width, "height", raw.Height)

	o.transition(id, Encoding)
	png, err := codec.Encode(raw)
	if err != nil {
		log.Warn("encode failed", "err", err)
		return upload.Failed("Failed to convert image: " + err.Error())
	}
	log.Debug("image encoded", "size_bytes", len(png))
	o.dump(log, png)

	o.transition(id, Uploading)
	out, err = o.up.UploadWithRetry(ctx, png)
	if err != nil {
		return upload.Failed(upload.Message(err))
	}
	return out
}

// notify runs the fixed UI choreography. Each step is best-effort.
func (o *Orchestrator) notify(log *slog.Logger, out upload.Outcome) {
	if err := o.ui.ShowMainWindow(); err != nil {
		log.Warn("show main window failed", "err", err)
	}
	time.Sleep(o.opts.NotifyDelay)
	if err := o.ui.SwitchToUpload(); err != nil {
		log.Warn("switch-to-upload failed", "err", err)
	}
	time.Sleep(o.opts.NotifyDelay)
	if err := o.ui.Result(out); err != nil {
		log.Warn("upload-result delivery failed", "err", err)
	}
}

func (o *Orchestrator) dump(log *slog.Logger, png codec.EncodedImage) {
	if o.opts.DumpPath == "" {
		return
	}
	if err := os.WriteFile(o.opts.DumpPath, png, 0o600); err != nil {
		log.Warn("debug dump failed", "path", o.opts.DumpPath, "err", err)
		return
	}
	log.Debug("debug dump written", "path", o.opts.DumpPath)
}

func (o *Orchestrator) transition(id string, s State) {
	if o.opts.StateHook != nil {
		o.opts.StateHook(id, s)
	}
}

func clipboardMessage(err error) string {
	switch {
	case errors.Is(err, clip.ErrEmpty):
		return "No image in clipboard"
	case errors.Is(err, clip.ErrAccessDenied):
		return "Clipboard access denied: " + err.Error()
	default:
		return "Failed to access clipboard: " + err.Error()
	}
}
