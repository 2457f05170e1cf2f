package volume

import (
	"fmt"
	"math"

	"github.com/backmassage/cag2mp4/internal/frame"
)

// Layout is the interpretation of an array shape. The set of layouts is
// closed: only [SingleFrame], [ColorFrame] and [MultiFrame] implement it.
type Layout interface {
	// Name is a short label for logs and reports.
	Name() string
	// Frames returns the number of frames the layout yields.
	Frames() int
	// extract splits a validated array into raw rasters in output order.
	extract(a Array) []frame.Raster
}

// SingleFrame is a 2-D (H, W) array.
type SingleFrame struct{ Height, Width int }

// ColorFrame is a channel-first (3, H, W) RGB array.
type ColorFrame struct{ Height, Width int }

// MultiFrame is an (N, H, W) stack with N != 3.
type MultiFrame struct{ Count, Height, Width int }

func (SingleFrame) Name() string { return "single" }
func (ColorFrame) Name() string  { return "color" }
func (MultiFrame) Name() string  { return "multi" }

func (SingleFrame) Frames() int  { return 1 }
func (ColorFrame) Frames() int   { return 1 }
func (m MultiFrame) Frames() int { return m.Count }

// Classify picks the layout for shape. Ranks other than 2 and 3 are
// rejected with ErrUnexpectedShape.
func Classify(shape []int) (Layout, error) {
	switch len(shape) {
	case 2:
		return SingleFrame{Height: shape[0], Width: shape[1]}, nil
	case 3:
		if shape[0] == 3 {
			return ColorFrame{Height: shape[1], Width: shape[2]}, nil
		}
		return MultiFrame{Count: shape[0], Height: shape[1], Width: shape[2]}, nil
	default:
		return nil, fmt.Errorf("%w %v", ErrUnexpectedShape, shape)
	}
}

func (l SingleFrame) extract(a Array) []frame.Raster {
	return []frame.Raster{{Width: l.Width, Height: l.Height, Kind: a.Kind, Samples: a.Data}}
}

func (l MultiFrame) extract(a Array) []frame.Raster {
	plane := l.Width * l.Height
	out := make([]frame.Raster, 0, l.Count)
	for i := 0; i < l.Count; i++ {
		out = append(out, frame.Raster{
			Width:   l.Width,
			Height:  l.Height,
			Kind:    a.Kind,
			Samples: a.Data[i*plane : (i+1)*plane : (i+1)*plane],
		})
	}
	return out
}

// BT.601 luma weights.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

func (l ColorFrame) extract(a Array) []frame.Raster {
	plane := l.Width * l.Height
	r, g, b := a.Data[:plane], a.Data[plane:2*plane], a.Data[2*plane:3*plane]

	gray := frame.NewRaster(l.Width, l.Height, a.Kind)
	for i := range gray.Samples {
		y := lumaR*r[i] + lumaG*g[i] + lumaB*b[i]
		if a.Kind.IsInteger() {
			y = math.Round(y)
		}
		gray.Samples[i] = y
	}
	return []frame.Raster{gray}
}
