package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"screen-translate/src/config"
	"screen-translate/src/llm"
)

func TestNew(t *testing.T) {
	tests := []struct {
		strategy string
		opts     Options
		wantType string
		wantErr  bool
	}{
		{config.StrategyDetector, Options{}, "*ocr.Detector", false},
		{"", Options{}, "*ocr.Detector", false},
		{config.StrategyClassic, Options{Language: "deu"}, "*ocr.Classic", false},
		{config.StrategyVision, Options{}, "", true},
		{config.StrategyVision, Options{Vision: llm.New(llm.Config{})}, "*ocr.Vision", false},
		{"bogus", Options{}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			ex, err := New(tt.strategy, tt.opts)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer ex.Close()
			switch ex.(type) {
			case *Detector:
				if tt.wantType != "*ocr.Detector" {
					t.Errorf("got Detector, want %s", tt.wantType)
				}
			case *Classic:
				if tt.wantType != "*ocr.Classic" {
					t.Errorf("got Classic, want %s", tt.wantType)
				}
			case *Vision:
				if tt.wantType != "*ocr.Vision" {
					t.Errorf("got Vision, want %s", tt.wantType)
				}
			}
		})
	}
}

func TestClassicDefaultsLanguage(t *testing.T) {
	ex, err := New(config.StrategyClassic, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if c := ex.(*Classic); c.language != config.DefaultOCRLanguage {
		t.Errorf("language = %q, want %q", c.language, config.DefaultOCRLanguage)
	}
}

func TestJoinFragments(t *testing.T) {
	frags := []Fragment{
		{Text: "second line\n"},
		{Text: "  "},
		{Text: "first"},
		{Text: "\tthird"},
	}
	// Emission order is kept; no reading-order sort.
	if got := joinFragments(frags); got != "second line first third" {
		t.Errorf("joinFragments = %q", got)
	}
	if got := joinFragments(nil); got != "" {
		t.Errorf("joinFragments(nil) = %q, want empty", got)
	}
}

func TestRunWithContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := runWithContext(ctx, func() (Result, error) {
		time.Sleep(200 * time.Millisecond)
		return Result{Text: "late"}, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func visionServer(content string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(llm.ChatResponse{Choices: []llm.Choice{{Message: llm.ResponseMessage{Content: content}}}})
	}))
}

func TestVisionExtract(t *testing.T) {
	srv := visionServer("  Bonjour  ")
	defer srv.Close()

	v := NewVision(llm.New(llm.Config{APIKey: "k", Model: "m", URL: srv.URL}))
	res, err := v.Extract(context.Background(), image.NewRGBA(image.Rect(0, 0, 2, 2)))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Text != "Bonjour" {
		t.Errorf("text = %q, want Bonjour", res.Text)
	}
}

func TestVisionNoTextIsEmpty(t *testing.T) {
	srv := visionServer("NO_TEXT_FOUND")
	defer srv.Close()

	v := NewVision(llm.New(llm.Config{APIKey: "k", Model: "m", URL: srv.URL}))
	res, err := v.Extract(context.Background(), image.NewRGBA(image.Rect(0, 0, 2, 2)))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Text != "" {
		t.Errorf("text = %q, want empty", res.Text)
	}
}
