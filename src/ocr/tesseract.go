package ocr

import (
	"context"
	"fmt"
	"image"
	"log"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"screen-translate/src/preprocess"
	"screen-translate/src/screenshot"
)

// Detector locates text lines on the raw image and recognizes each of them.
type Detector struct {
	languages []string
}

func NewDetector(languages ...string) *Detector {
	return &Detector{languages: languages}
}

func (d *Detector) Extract(ctx context.Context, img image.Image) (Result, error) {
	frags, err := d.Detect(ctx, img)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: joinFragments(frags), Fragments: frags}, nil
}

// Detect returns one fragment per text line in engine emission order.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]Fragment, error) {
	data, err := screenshot.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	res, err := runWithContext(ctx, func() (Result, error) {
		client := gosseract.NewClient()
		defer client.Close()

		if len(d.languages) > 0 {
			if err := client.SetLanguage(d.languages...); err != nil {
				return Result{}, fmt.Errorf("failed to set language: %w", err)
			}
		}
		if err := client.SetImageFromBytes(data); err != nil {
			return Result{}, fmt.Errorf("failed to set image: %w", err)
		}
		boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
		if err != nil {
			return Result{}, fmt.Errorf("text detection failed: %w", err)
		}

		frags := make([]Fragment, 0, len(boxes))
		for _, b := range boxes {
			text := strings.TrimSpace(b.Word)
			if text == "" {
				continue
			}
			frags = append(frags, Fragment{Text: text, Box: b.Box})
		}
		return Result{Fragments: frags}, nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("ocr: detector found %d fragments", len(res.Fragments))
	return res.Fragments, nil
}

func (d *Detector) Close() error { return nil }

// Classic binarizes the image and runs tesseract with one fixed language.
type Classic struct {
	language string
}

func NewClassic(language string) *Classic {
	return &Classic{language: language}
}

func (c *Classic) Extract(ctx context.Context, img image.Image) (Result, error) {
	bw, threshold := preprocess.Binarize(img)
	log.Printf("ocr: classic threshold=%d lang=%s", threshold, c.language)

	data, err := screenshot.EncodePNG(bw)
	if err != nil {
		return Result{}, err
	}

	return runWithContext(ctx, func() (Result, error) {
		client := gosseract.NewClient()
		defer client.Close()

		if err := client.SetLanguage(c.language); err != nil {
			return Result{}, fmt.Errorf("failed to set language: %w", err)
		}
		if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
			return Result{}, fmt.Errorf("failed to set page segmentation: %w", err)
		}
		if err := client.SetImageFromBytes(data); err != nil {
			return Result{}, fmt.Errorf("failed to set image: %w", err)
		}
		text, err := client.Text()
		if err != nil {
			return Result{}, fmt.Errorf("tesseract OCR failed: %w", err)
		}
		return Result{Text: strings.TrimSpace(text)}, nil
	})
}

func (c *Classic) Close() error { return nil }
