package screenshot

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/kbinani/screenshot"
)

// ErrCaptureUnavailable is returned when the display or capture subsystem cannot be used.
var ErrCaptureUnavailable = errors.New("screen capture unavailable")

// Capture captures the entire primary display (display 0).
func Capture() (img *image.RGBA, err error) {
	// Some backends panic when no display server is reachable.
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, r)
		}
	}()

	bounds, err := GetDisplayBounds()
	if err != nil {
		return nil, err
	}
	img, err = screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	return img, nil
}

// GetDisplayBounds returns the bounds of the primary display
func GetDisplayBounds() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}, fmt.Errorf("%w: no active displays found", ErrCaptureUnavailable)
	}
	return screenshot.GetDisplayBounds(0), nil
}

// EncodePNG encodes a captured image for OCR engines that take encoded bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image as PNG: %w", err)
	}
	return buf.Bytes(), nil
}
