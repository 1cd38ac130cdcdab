package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"screen-translate/src/clipboard"
	"screen-translate/src/config"
	"screen-translate/src/eventloop"
	"screen-translate/src/gui"
	"screen-translate/src/hotkey"
	"screen-translate/src/logutil"
	"screen-translate/src/notification"
	"screen-translate/src/ocr"
	"screen-translate/src/overlay"
	"screen-translate/src/runtimeinit"
	"screen-translate/src/session"
	"screen-translate/src/singleinstance"
)

const appID = "io.github.screen-translate"

type mainOptions struct {
	runOnce bool
	stdout  bool
	envFile string
}

func main() {
	// Ensure DPI awareness before creating any windows or querying metrics
	enableDPIAwareness()

	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(normalizeLegacyArgs(os.Args)[1:])
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screen-translate",
		Short:         "Capture the screen, OCR it and translate the text",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.runOnce {
				return runOnce(*opts)
			}
			return runResident(*opts)
		},
	}
	cmd.Flags().BoolVar(&opts.runOnce, "run-once", false, "Translate the screen once via the running window (or headless) and exit")
	cmd.Flags().BoolVar(&opts.stdout, "stdout", false, "With --run-once, print the translation instead of copying it")
	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "Path to a .env file (highest precedence)")
	return cmd
}

// normalizeLegacyArgs maps single-dash long flags to cobra's double-dash form.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return []string{"screen-translate"}
	}
	out := make([]string, len(args))
	copy(out, args)
	for i := 1; i < len(out); i++ {
		for _, name := range []string{"run-once", "stdout", "env-file"} {
			if out[i] == "-"+name || strings.HasPrefix(out[i], "-"+name+"=") {
				out[i] = "-" + out[i]
			}
		}
	}
	return out
}

type runOnceClient interface {
	TryRunOnce(ctx context.Context, outputToStdout bool) (bool, string, error)
}

func runOnce(opts mainOptions) error {
	// Load .env early so SINGLEINSTANCE_PORT_* are applied before the delegation scan
	cfg, err := config.LoadWithOptions(config.LoadOptions{EnvFileOverride: opts.envFile})
	if err != nil {
		return err
	}
	logutil.Setup(cfg.EnableFileLogging)

	// the resident applies its own run deadline; allow for queueing behind it
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(2*cfg.RunDeadlineSec+5)*time.Second)
	defer cancel()
	return handleRunOnceWithDelegation(ctx, singleinstance.NewClient(), opts.stdout, os.Stdout, func() error {
		return runHeadless(ctx, opts)
	})
}

// handleRunOnceWithDelegation asks a resident window to run the pipeline and
// falls back to a headless run when none answers.
func handleRunOnceWithDelegation(ctx context.Context, client runOnceClient, stdout bool, w io.Writer, fallback func() error) error {
	delegated, text, err := client.TryRunOnce(ctx, stdout)
	switch {
	case err != nil && delegated:
		return fmt.Errorf("resident: %w", err)
	case err != nil:
		log.Printf("Delegation error: %v; falling back to standalone", err)
		return fallback()
	case delegated:
		log.Printf("Delegated to resident")
		if stdout {
			_, err := fmt.Fprint(w, text)
			return err
		}
		return nil
	default:
		log.Printf("No resident detected, running standalone")
		return fallback()
	}
}

func runHeadless(ctx context.Context, opts mainOptions) error {
	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:   config.LoadOptions{EnvFileOverride: opts.envFile},
		SetupLogging:  logutil.Setup,
		NeedClipboard: !opts.stdout,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	o := session.RunOnce(ctx, rt.SessionOptions(session.Discard, rt.DefaultSettings))
	var target session.ResultTarget = session.ClipboardTarget{}
	if opts.stdout {
		target = session.StdoutTarget{ErrWriter: io.Discard}
	}
	if err := session.Deliver(target, o); err != nil {
		return err
	}
	if o.Err != nil {
		return o.Err
	}
	if o.TranslateErr != nil {
		return errors.New(o.Translated)
	}
	return nil
}

func runResident(opts mainOptions) error {
	loadOpts := config.LoadOptions{EnvFileOverride: opts.envFile}
	// Load .env early so SINGLEINSTANCE_PORT_* are available for pre-flight
	if _, err := config.LoadWithOptions(loadOpts); err != nil {
		return err
	}
	if port, ok := singleinstance.DetectResidentPort(context.Background()); ok {
		return fmt.Errorf("one is already running on port %d", port)
	}

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:  loadOpts,
		SetupLogging: logutil.Setup,
	})
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg := rt.Config
	logMonitorConfiguration()

	copyFn := func(text string) error { return clipboard.Write(text) }
	if err := clipboard.Init(); err != nil {
		log.Printf("Clipboard unavailable, copy disabled: %v", err)
		copyFn = nil
	}

	a := app.NewWithID(appID)
	var loop *eventloop.Loop
	win := gui.New(gui.Options{
		App:      a,
		Defaults: rt.DefaultSettings(),
		Post:     func(t eventloop.Trigger) bool { return loop.Post(t) },
		Copy:     copyFn,
	})

	viewer := overlay.Viewer{
		App:      a,
		Capture:  runtimeinit.CaptureScreen,
		Detector: ocr.NewDetector(),
		Duration: time.Duration(cfg.OverlayDurationSec) * time.Second,
	}
	saved := rt.HistoryLog()
	results := resultHandler{
		notify:     cfg.Notify,
		copy:       cfg.CopyToClipboard && copyFn != nil,
		showResult: notification.ShowResult,
		showError:  notification.ShowError,
		copyText:   copyFn,
	}

	loop = eventloop.New(eventloop.Handlers{
		Capture: func(ctx context.Context, t eventloop.Trigger) session.Outcome {
			return session.RunOnce(ctx, rt.SessionOptions(win, win.Settings))
		},
		Overlay: viewer.Show,
		History: func() {
			text, err := saved.Load()
			if err != nil {
				text = fmt.Sprintf("Error: %v", err)
			}
			win.SetHistory(text)
		},
		OnResult: results.handle,
		OnBusy:   win.SetBusy,
	}, rt.Deadline())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sources := []eventloop.Source{
		hotkey.Source{Combo: cfg.Hotkey},
		eventloop.ResidentSource{Server: singleinstance.NewServer()},
	}
	go func() {
		if err := loop.Run(ctx, sources...); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("event loop stopped: %v", err)
		}
	}()

	// Handle SIGINT/SIGTERM
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			fyne.Do(a.Quit)
		case <-ctx.Done():
		}
	}()

	log.Printf("Screen Text Translator started, hotkey %s", cfg.Hotkey)
	if win.SetupTray() {
		log.Printf("System tray menu installed")
	}
	win.ShowAndRun()
	return nil
}

// resultHandler reacts to finished capture runs on the loop goroutine.
type resultHandler struct {
	notify     bool
	copy       bool
	showResult func(string)
	showError  func(string)
	copyText   func(string) error
}

func (h resultHandler) handle(t eventloop.Trigger, o session.Outcome) {
	failure := o.Failure()
	if h.copy && failure == nil && t.Result == nil {
		if err := h.copyText(o.Translated); err != nil {
			log.Printf("copy after run %s failed: %v", o.RunID, err)
		}
	}
	// the window already shows button runs
	if !h.notify || t.Origin == "button" || t.Result != nil {
		return
	}
	switch {
	case o.Err != nil:
		h.showError(o.Err.Error())
	case failure != nil:
		h.showError(o.Translated)
	default:
		h.showResult(o.Translated)
	}
}
