// Package overlay draws detected text regions over a capture and shows the
// result in a short-lived window.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"screen-translate/src/ocr"
)

const (
	WindowTitle     = "Detected Text"
	DefaultDuration = 3 * time.Second
	borderWidth     = 2
)

var boxColor = color.RGBA{G: 255, A: 255}

// Annotate returns a copy of img with a green rectangle and the recognized
// text drawn for every fragment. img is not modified.
func Annotate(img image.Image, frags []ocr.Fragment) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, img, b.Min, draw.Src)

	face := basicfont.Face7x13
	for _, f := range frags {
		r := f.Box.Intersect(b)
		if r.Empty() {
			continue
		}
		strokeRect(out, r)

		// label sits above the box, or inside it when there is no room
		baseline := r.Min.Y - 3
		if baseline-face.Ascent < b.Min.Y {
			baseline = r.Min.Y + borderWidth + face.Ascent
		}
		d := &font.Drawer{
			Dst:  out,
			Src:  image.NewUniform(boxColor),
			Face: face,
			Dot:  fixed.P(r.Min.X, baseline),
		}
		d.DrawString(f.Text)
	}
	return out
}

func strokeRect(dst *image.RGBA, r image.Rectangle) {
	src := image.NewUniform(boxColor)
	w := borderWidth
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w).Intersect(r), src, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y).Intersect(r), src, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y).Intersect(r), src, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Max.Y).Intersect(r), src, image.Point{}, draw.Src)
}

// Detector locates text fragments; the overlay always uses the detector
// strategy regardless of the configured extractor.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]ocr.Fragment, error)
}

// Viewer captures, annotates and shows the overlay window.
type Viewer struct {
	App      fyne.App
	Capture  func(ctx context.Context) (*image.RGBA, error)
	Detector Detector
	Duration time.Duration
}

// Show runs one overlay pass. It is called off the UI thread; window work is
// marshalled with fyne.Do.
func (v Viewer) Show(ctx context.Context) error {
	if v.App == nil || v.Capture == nil || v.Detector == nil {
		return errors.New("overlay: viewer not configured")
	}
	img, err := v.Capture(ctx)
	if err != nil {
		return fmt.Errorf("overlay capture: %w", err)
	}
	frags, err := v.Detector.Detect(ctx, img)
	if err != nil {
		return fmt.Errorf("overlay detect: %w", err)
	}
	log.Printf("overlay: %d fragments", len(frags))
	annotated := Annotate(img, frags)

	d := v.Duration
	if d <= 0 {
		d = DefaultDuration
	}
	fyne.Do(func() {
		w := v.App.NewWindow(WindowTitle)
		picture := canvas.NewImageFromImage(annotated)
		picture.FillMode = canvas.ImageFillContain
		w.SetContent(picture)
		w.Resize(fitSize(annotated.Bounds()))
		w.Show()
		time.AfterFunc(d, func() { fyne.Do(w.Close) })
	})
	return nil
}

// fitSize scales the capture down to at most 1024 pixels wide for the window.
func fitSize(b image.Rectangle) fyne.Size {
	w, h := float32(b.Dx()), float32(b.Dy())
	if w <= 0 || h <= 0 {
		return fyne.NewSize(400, 300)
	}
	if w > 1024 {
		h = h * 1024 / w
		w = 1024
	}
	return fyne.NewSize(w, h)
}
