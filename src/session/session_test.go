package session

import (
	"bytes"
	"context"
	"errors"
	"image"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"screen-translate/src/history"
	"screen-translate/src/ocr"
	"screen-translate/src/translate"
)

type recordingTarget struct {
	mu         sync.Mutex
	extracted  string
	translated string
	failures   []error
}

func (r *recordingTarget) SetExtracted(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extracted = text
}

func (r *recordingTarget) SetTranslated(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.translated = text
}

func (r *recordingTarget) OnFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
}

type fixedExtractor struct{ text string }

func (f fixedExtractor) Extract(ctx context.Context, img image.Image) (ocr.Result, error) {
	return ocr.Result{Text: f.text}, nil
}

type failingBackend struct{}

func (failingBackend) Name() translate.Name { return translate.Google }

func (failingBackend) Translate(ctx context.Context, req translate.Request) (string, error) {
	return "", &translate.Error{Kind: translate.KindNetwork, Message: "connection reset"}
}

type echoBackend struct{}

func (echoBackend) Name() translate.Name { return translate.Google }

func (echoBackend) Translate(ctx context.Context, req translate.Request) (string, error) {
	return strings.ToUpper(req.Text) + " (" + req.Source + "->" + req.Target + ")", nil
}

func fakeCapture(ctx context.Context) (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
}

func googleSettings() Settings {
	return Settings{Backend: translate.Google, Source: "de", Target: "en"}
}

func TestRunOnceTranslationFailure(t *testing.T) {
	target := &recordingTarget{}
	logPath := filepath.Join(t.TempDir(), "translations.txt")
	hist := history.New(logPath)

	out := RunOnce(context.Background(), Options{
		Capture:    fakeCapture,
		Extractor:  fixedExtractor{text: "Guten Tag"},
		Translator: translate.New(failingBackend{}),
		Settings:   googleSettings,
		Target:     target,
		History:    hist,
	})

	if out.Err != nil {
		t.Fatalf("pipeline error: %v", out.Err)
	}
	if !translate.IsKind(out.TranslateErr, translate.KindNetwork) {
		t.Errorf("TranslateErr = %v, want network kind", out.TranslateErr)
	}
	if target.extracted != "Guten Tag" {
		t.Errorf("extracted pane = %q", target.extracted)
	}
	if !strings.HasPrefix(target.translated, "Translation Error:") {
		t.Errorf("translated pane = %q, want Translation Error prefix", target.translated)
	}
	if len(target.failures) != 0 {
		t.Errorf("unexpected failures: %v", target.failures)
	}

	saved, err := hist.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(saved, "Original: Guten Tag\nTranslated: Translation Error:") {
		t.Errorf("history = %q", saved)
	}
}

func TestRunOnceSuccess(t *testing.T) {
	target := &recordingTarget{}
	out := RunOnce(context.Background(), Options{
		Capture:    fakeCapture,
		Extractor:  fixedExtractor{text: "  hallo \n"},
		Translator: translate.New(echoBackend{}),
		Settings:   googleSettings,
		Target:     target,
	})
	if out.Failure() != nil {
		t.Fatalf("unexpected failure: %v", out.Failure())
	}
	if out.RunID == "" {
		t.Error("expected a run ID")
	}
	if out.Translated != "HALLO (de->en)" || target.translated != out.Translated {
		t.Errorf("translated = %q, pane = %q", out.Translated, target.translated)
	}
}

func TestRunOnceEmptyText(t *testing.T) {
	target := &recordingTarget{}
	out := RunOnce(context.Background(), Options{
		Capture:    fakeCapture,
		Extractor:  fixedExtractor{text: ""},
		Translator: translate.New(failingBackend{}),
		Settings:   googleSettings,
		Target:     target,
	})
	if out.Translated != translate.NoTextDetected {
		t.Errorf("translated = %q, want %q", out.Translated, translate.NoTextDetected)
	}
}

func TestRunOnceCaptureFailure(t *testing.T) {
	target := &recordingTarget{}
	captureErr := errors.New("no active display")
	out := RunOnce(context.Background(), Options{
		Capture: func(ctx context.Context) (*image.RGBA, error) {
			return nil, captureErr
		},
		Extractor:  fixedExtractor{text: "never"},
		Translator: translate.New(echoBackend{}),
		Settings:   googleSettings,
		Target:     target,
	})
	if !errors.Is(out.Err, captureErr) {
		t.Fatalf("Err = %v, want wrapped capture error", out.Err)
	}
	if len(target.failures) != 1 {
		t.Errorf("failures = %v", target.failures)
	}
	if target.translated != "" {
		t.Errorf("translated pane should be untouched, got %q", target.translated)
	}
}

func TestRunOnceMissingTarget(t *testing.T) {
	out := RunOnce(context.Background(), Options{})
	if !errors.Is(out.Err, ErrNoTarget) {
		t.Fatalf("Err = %v, want ErrNoTarget", out.Err)
	}
}

func TestRunOnceConcurrent(t *testing.T) {
	hist := history.New(filepath.Join(t.TempDir(), "translations.txt"))
	tr := translate.New(echoBackend{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			RunOnce(context.Background(), Options{
				Capture:    fakeCapture,
				Extractor:  fixedExtractor{text: "text"},
				Translator: tr,
				Settings:   googleSettings,
				Target:     &recordingTarget{},
				History:    hist,
			})
		}()
	}
	wg.Wait()

	saved, _ := hist.Load()
	records, err := history.Parse(saved)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(records) != 16 {
		t.Errorf("got %d history records, want 16", len(records))
	}
}

func TestDeliver(t *testing.T) {
	var stdout, stderr bytes.Buffer
	target := StdoutTarget{Writer: &stdout, ErrWriter: &stderr}

	if err := Deliver(target, Outcome{Translated: "Hello"}); err != nil {
		t.Fatal(err)
	}
	if stdout.String() != "Hello" {
		t.Errorf("stdout = %q", stdout.String())
	}

	failed := Outcome{
		Translated:   "Translation Error: quota",
		TranslateErr: &translate.Error{Kind: translate.KindQuota, Message: "quota"},
	}
	if err := Deliver(target, failed); err != nil {
		t.Fatal(err)
	}
	if stderr.String() != "Translation Error: quota\n" {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunOnceReportsDuration(t *testing.T) {
	slowCapture := func(ctx context.Context) (*image.RGBA, error) {
		time.Sleep(20 * time.Millisecond)
		return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
	}
	out := RunOnce(context.Background(), Options{
		Capture:    slowCapture,
		Extractor:  fixedExtractor{text: "Hallo"},
		Translator: translate.New(echoBackend{}),
		Settings:   googleSettings,
		Target:     &recordingTarget{},
	})
	if out.Duration < 20*time.Millisecond {
		t.Errorf("Duration = %v, want at least 20ms", out.Duration)
	}

	failing := RunOnce(context.Background(), Options{
		Capture: func(ctx context.Context) (*image.RGBA, error) {
			time.Sleep(10 * time.Millisecond)
			return nil, errors.New("no display")
		},
		Extractor:  fixedExtractor{text: "Hallo"},
		Translator: translate.New(echoBackend{}),
		Target:     &recordingTarget{},
	})
	if failing.Err == nil || failing.Duration < 10*time.Millisecond {
		t.Errorf("failed run: err=%v duration=%v", failing.Err, failing.Duration)
	}
}
