package ocr

import (
	"context"
	"errors"
	"image"
	"strings"

	"screen-translate/src/llm"
	"screen-translate/src/screenshot"
)

// Vision sends the capture to an OpenRouter vision model.
type Vision struct {
	client *llm.Client
}

func NewVision(client *llm.Client) *Vision {
	return &Vision{client: client}
}

func (v *Vision) Extract(ctx context.Context, img image.Image) (Result, error) {
	data, err := screenshot.EncodePNG(img)
	if err != nil {
		return Result{}, err
	}
	text, err := v.client.QueryVision(ctx, data)
	if errors.Is(err, llm.ErrNoText) {
		return Result{}, nil
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Text: strings.TrimSpace(text)}, nil
}

func (v *Vision) Close() error { return nil }
