package frame

import (
	"image"
	"math"
)

// Normalize rescales r into an 8-bit grayscale image of the same size.
//
// Uint8 rasters are copied unchanged. Other kinds are stretched linearly so
// the frame minimum maps to 0 and the maximum to 255, rounding to the
// nearest integer; a constant frame becomes all zeros. The result never
// aliases r.Samples.
func Normalize(r Raster) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, r.Width, r.Height))
	n := r.Width * r.Height
	if n == 0 || len(r.Samples) < n {
		return img
	}
	samples := r.Samples[:n]

	if r.Kind == Uint8 {
		for i, v := range samples {
			img.Pix[i] = clampByte(v)
		}
		return img
	}

	lo, hi := bounds(samples)
	if !(hi > lo) {
		return img
	}
	scale := 255 / (hi - lo)
	for i, v := range samples {
		img.Pix[i] = clampByte(math.Round((v - lo) * scale))
	}
	return img
}

// bounds returns the minimum and maximum of samples, ignoring NaNs. An
// all-NaN slice yields (0, 0).
func bounds(samples []float64) (lo, hi float64) {
	first := true
	for _, v := range samples {
		if math.IsNaN(v) {
			continue
		}
		if first {
			lo, hi = v, v
			first = false
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func clampByte(v float64) uint8 {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
