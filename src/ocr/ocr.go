package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"screen-translate/src/config"
	"screen-translate/src/llm"
)

// Fragment is one piece of detected text and where it was found.
type Fragment struct {
	Text string
	Box  image.Rectangle
}

// Result is the text extracted from one captured image. Fragments are only
// populated by strategies that locate text (the detector).
type Result struct {
	Text      string
	Fragments []Fragment
}

// Extractor runs OCR over an in-memory image. No text is not an error:
// it yields an empty Result.
type Extractor interface {
	Extract(ctx context.Context, img image.Image) (Result, error)
	Close() error
}

type Options struct {
	// Language is the tesseract language used by the classic strategy.
	Language string
	// Vision is required by the vision strategy.
	Vision *llm.Client
}

// New returns the extractor for a strategy name (see config.Strategy*).
func New(strategy string, opts Options) (Extractor, error) {
	switch strategy {
	case config.StrategyDetector, "":
		return NewDetector(), nil
	case config.StrategyClassic:
		lang := opts.Language
		if lang == "" {
			lang = config.DefaultOCRLanguage
		}
		return NewClassic(lang), nil
	case config.StrategyVision:
		if opts.Vision == nil {
			return nil, fmt.Errorf("vision strategy requires an OpenRouter client")
		}
		return NewVision(opts.Vision), nil
	default:
		return nil, fmt.Errorf("unknown OCR strategy: %s", strategy)
	}
}

// joinFragments space-joins fragment text in the order the engine emitted it.
func joinFragments(frags []Fragment) string {
	parts := make([]string, 0, len(frags))
	for _, f := range frags {
		if t := strings.TrimSpace(f.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// runWithContext lets a blocking engine call respect ctx. The engine keeps
// running in the background after cancellation; its result is dropped.
func runWithContext(ctx context.Context, fn func() (Result, error)) (Result, error) {
	type outcome struct {
		res Result
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := fn()
		ch <- outcome{res, err}
	}()
	select {
	case o := <-ch:
		return o.res, o.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
