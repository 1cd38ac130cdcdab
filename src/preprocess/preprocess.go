// Package preprocess prepares captured screens for classical OCR.
package preprocess

import (
	"image"

	"github.com/disintegration/imaging"
)

// ToGray converts any image to 8-bit luminance.
func ToGray(img image.Image) *image.Gray {
	nrgba := imaging.Grayscale(img)
	b := nrgba.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+b.Dx()*4]
		dst := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()]
		for x := range dst {
			dst[x] = src[x*4]
		}
	}
	return gray
}

// Threshold returns the global binarization threshold for a grayscale image:
// Otsu's method. A histogram with a single gray level has nothing to split
// and yields 0, so a uniform image binarizes to white.
func Threshold(gray *image.Gray) uint8 {
	var hist [256]int
	total := 0
	b := gray.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := gray.Pix[(y-b.Min.Y)*gray.Stride : (y-b.Min.Y)*gray.Stride+b.Dx()]
		for _, v := range row {
			hist[v]++
		}
		total += b.Dx()
	}

	levels := 0
	sumAll := 0
	for i, n := range hist {
		if n > 0 {
			levels++
		}
		sumAll += i * n
	}
	if levels < 2 {
		return 0
	}

	// Integer running sums keep sigma identical across empty bins, so ties
	// always resolve to the lowest threshold.
	best := 0
	bestSigma := -1.0
	w1, sum1 := 0, 0
	for t := 0; t < 256; t++ {
		w1 += hist[t]
		sum1 += t * hist[t]
		w2 := total - w1
		if w1 == 0 || w2 == 0 {
			continue
		}
		mu1 := float64(sum1) / float64(w1)
		mu2 := float64(sumAll-sum1) / float64(w2)
		q1 := float64(w1) / float64(total)
		q2 := float64(w2) / float64(total)
		sigma := q1 * q2 * (mu1 - mu2) * (mu1 - mu2)
		if sigma > bestSigma {
			bestSigma = sigma
			best = t
		}
	}
	return uint8(best)
}

// Binarize converts img to black and white: pixels above the threshold become
// 255, everything else 0. The threshold used is returned alongside.
func Binarize(img image.Image) (*image.Gray, uint8) {
	gray := ToGray(img)
	t := Threshold(gray)
	for i, v := range gray.Pix {
		if v > t {
			gray.Pix[i] = 255
		} else {
			gray.Pix[i] = 0
		}
	}
	return gray, t
}
