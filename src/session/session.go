// Package session runs one capture → extract → translate → display → log pass.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"screen-translate/src/history"
	"screen-translate/src/logutil"
	"screen-translate/src/ocr"
	"screen-translate/src/translate"
)

var (
	ErrNoTarget     = errors.New("session: target is required")
	ErrNoCapture    = errors.New("session: capture function is required")
	ErrNoExtractor  = errors.New("session: extractor is required")
	ErrNoTranslator = errors.New("session: translator is required")
)

const DefaultDeadline = 20 * time.Second

type CaptureFunc func(ctx context.Context) (*image.RGBA, error)

type Extractor interface {
	Extract(ctx context.Context, img image.Image) (ocr.Result, error)
}

type Translator interface {
	Translate(ctx context.Context, req translate.Request) (string, error)
}

// Settings is the selector state read once at the start of a run.
type Settings struct {
	Backend translate.Name
	Source  string
	Target  string
}

type SettingsFunc func() Settings

// Target receives the two panes of a run. Implementations that own widgets
// must marshal onto their UI thread themselves.
type Target interface {
	SetExtracted(text string)
	SetTranslated(text string)
	OnFailure(err error)
}

type HistoryWriter interface {
	Append(original, translated string) (history.Record, error)
}

type Options struct {
	Deadline   time.Duration
	Capture    CaptureFunc
	Extractor  Extractor
	Translator Translator
	Settings   SettingsFunc
	Target     Target
	// History is optional; nil disables logging to file.
	History HistoryWriter
}

// Outcome summarizes a finished run. Err is set only when capture or
// extraction failed; a translation failure is carried in TranslateErr and
// rendered into Translated.
type Outcome struct {
	RunID        string
	Extracted    string
	Translated   string
	TranslateErr error
	Err          error
	Duration     time.Duration
}

// Failure returns the error a delivery target should report, if any.
func (o Outcome) Failure() error {
	if o.Err != nil {
		return o.Err
	}
	return o.TranslateErr
}

// RunOnce executes the pipeline. It never panics on backend failures and
// always returns an Outcome.
func RunOnce(ctx context.Context, opts Options) (out Outcome) {
	out = Outcome{RunID: uuid.NewString()}
	start := time.Now()
	defer func() { out.Duration = time.Since(start) }()

	if err := opts.validate(); err != nil {
		out.Err = err
		if opts.Target != nil {
			opts.Target.OnFailure(err)
		}
		return out
	}

	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	log.Printf("session %s: capture", out.RunID)
	img, err := opts.Capture(runCtx)
	if err != nil {
		out.Err = fmt.Errorf("capture failed: %w", err)
		log.Printf("session %s: %v", out.RunID, out.Err)
		opts.Target.OnFailure(out.Err)
		return out
	}

	res, err := opts.Extractor.Extract(runCtx, img)
	if err != nil {
		out.Err = fmt.Errorf("text extraction failed: %w", err)
		log.Printf("session %s: %v", out.RunID, out.Err)
		opts.Target.OnFailure(out.Err)
		return out
	}
	out.Extracted = strings.TrimSpace(res.Text)
	log.Printf("session %s: extracted %d chars: %s", out.RunID, len(out.Extracted), logutil.Sanitize(out.Extracted))
	opts.Target.SetExtracted(out.Extracted)

	settings := Settings{}
	if opts.Settings != nil {
		settings = opts.Settings()
	}
	text, err := opts.Translator.Translate(runCtx, translate.Request{
		Text:    out.Extracted,
		Source:  settings.Source,
		Target:  settings.Target,
		Backend: settings.Backend,
	})
	out.TranslateErr = err
	out.Translated = translate.Display(text, err)
	opts.Target.SetTranslated(out.Translated)

	if opts.History != nil {
		if _, err := opts.History.Append(out.Extracted, out.Translated); err != nil {
			log.Printf("session %s: history append failed: %v", out.RunID, err)
		}
	}
	log.Printf("session %s: done in %v", out.RunID, time.Since(start))
	return out
}

func (o Options) validate() error {
	switch {
	case o.Target == nil:
		return ErrNoTarget
	case o.Capture == nil:
		return ErrNoCapture
	case o.Extractor == nil:
		return ErrNoExtractor
	case o.Translator == nil:
		return ErrNoTranslator
	}
	return nil
}

type discard struct{}

func (discard) SetExtracted(string)  {}
func (discard) SetTranslated(string) {}
func (discard) OnFailure(error)      {}

// Discard is a Target for headless runs.
var Discard Target = discard{}
