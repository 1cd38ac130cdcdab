// Package runtimeinit wires configuration into the pipeline components shared
// by the window and the CLI.
package runtimeinit

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"time"

	"screen-translate/src/clipboard"
	"screen-translate/src/config"
	"screen-translate/src/history"
	"screen-translate/src/llm"
	"screen-translate/src/logutil"
	"screen-translate/src/ocr"
	"screen-translate/src/screenshot"
	"screen-translate/src/session"
	"screen-translate/src/translate"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// NeedClipboard fails bootstrap when the clipboard cannot be initialised.
	NeedClipboard bool
}

// Runtime holds the components built from one configuration.
type Runtime struct {
	Config     *config.Config
	Extractor  ocr.Extractor
	Translator *translate.Translator
	// History is nil when SAVE_HISTORY is false.
	History *history.Log
}

func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}

	if _, err := translate.ParseName(cfg.Translator); err != nil {
		return nil, fmt.Errorf("TRANSLATOR %q is not one of %v", cfg.Translator, translate.Names())
	}

	ocrOpts := ocr.Options{Language: cfg.OCRLanguage}
	if cfg.OCRStrategy == config.StrategyVision {
		if cfg.OpenRouterAPIKey == "" {
			return nil, fmt.Errorf("OPENROUTER_API_KEY is required for the vision strategy. Checked key file %s and OPENROUTER_API_KEY env var", cfg.OpenRouterAPIKeyPath)
		}
		if cfg.Model == "" {
			return nil, fmt.Errorf("MODEL is required for the vision strategy. Please set it in your .env file")
		}
		log.Printf("runtimeinit: vision model %s, key %s", cfg.Model, logutil.RedactKey(cfg.OpenRouterAPIKey))
		ocrOpts.Vision = llm.New(llm.Config{
			APIKey:    cfg.OpenRouterAPIKey,
			Model:     cfg.Model,
			Providers: cfg.Providers,
		})
	}
	extractor, err := ocr.New(cfg.OCRStrategy, ocrOpts)
	if err != nil {
		return nil, err
	}

	if cfg.DeepLAPIKey != "" {
		log.Printf("runtimeinit: DeepL key %s", logutil.RedactKey(cfg.DeepLAPIKey))
	}
	tr := translate.NewDefault(translate.Options{
		DeepLAPIKey: cfg.DeepLAPIKey,
		Proxy:       os.Getenv("HTTPS_PROXY"),
	})

	if opts.NeedClipboard {
		if err := clipboard.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialize clipboard: %w", err)
		}
	}

	rt := &Runtime{Config: cfg, Extractor: extractor, Translator: tr}
	if cfg.SaveHistory {
		rt.History = history.New(cfg.HistoryFile)
	}
	log.Printf("runtimeinit: translator=%s strategy=%s history=%v", cfg.Translator, cfg.OCRStrategy, cfg.SaveHistory)
	return rt, nil
}

// DefaultSettings is the selector state from configuration.
func (rt *Runtime) DefaultSettings() session.Settings {
	return session.Settings{
		Backend: translate.Name(rt.Config.Translator),
		Source:  rt.Config.SourceLang,
		Target:  rt.Config.TargetLang,
	}
}

// SessionOptions returns pipeline options for one run against the live screen.
func (rt *Runtime) SessionOptions(target session.Target, settings session.SettingsFunc) session.Options {
	opts := session.Options{
		Deadline:   rt.Deadline(),
		Capture:    CaptureScreen,
		Extractor:  rt.Extractor,
		Translator: rt.Translator,
		Settings:   settings,
		Target:     target,
	}
	if rt.History != nil {
		opts.History = rt.History
	}
	return opts
}

// HistoryLog is the log the window reloads from. It is the same Log runs
// append to, so reloads and appends share one mutex; with SAVE_HISTORY=false
// a read-only Log over HISTORY_FILE is returned.
func (rt *Runtime) HistoryLog() *history.Log {
	if rt.History != nil {
		return rt.History
	}
	return history.New(rt.Config.HistoryFile)
}

// Deadline is the per-run deadline from RUN_DEADLINE_SEC.
func (rt *Runtime) Deadline() time.Duration {
	return time.Duration(rt.Config.RunDeadlineSec) * time.Second
}

// CaptureScreen adapts screenshot.Capture to the session capture signature.
func CaptureScreen(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return screenshot.Capture()
}

func (rt *Runtime) Close() error {
	if rt.Extractor != nil {
		return rt.Extractor.Close()
	}
	return nil
}
