// Package frame defines raster frames before and after intensity
// normalization, and the ordered frame sequence handed to the encoder.
package frame

import (
	"errors"
	"fmt"
	"image"
)

// Kind is the sample type of a raster before normalization.
type Kind int

const (
	Uint8 Kind = iota
	Int8
	Uint16
	Int16
	Uint32
	Int32
	Float32
	Float64
)

var kindNames = [...]string{"uint8", "int8", "uint16", "int16", "uint32", "int32", "float32", "float64"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// IsInteger reports whether samples of this kind are whole numbers.
func (k Kind) IsInteger() bool { return k != Float32 && k != Float64 }

// Raster is one 2-D grid of intensity samples in row-major order. Samples
// are held as float64 regardless of Kind; Kind records the source type.
type Raster struct {
	Width   int
	Height  int
	Kind    Kind
	Samples []float64
}

// NewRaster allocates a zeroed raster.
func NewRaster(width, height int, kind Kind) Raster {
	return Raster{Width: width, Height: height, Kind: kind, Samples: make([]float64, width*height)}
}

// Validate checks that the sample count matches the dimensions.
func (r Raster) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("invalid raster size %dx%d", r.Width, r.Height)
	}
	if len(r.Samples) != r.Width*r.Height {
		return fmt.Errorf("raster %dx%d has %d samples", r.Width, r.Height, len(r.Samples))
	}
	return nil
}

// Sequence is the ordered list of normalized frames of one source file.
type Sequence []*image.Gray

// ErrEmptySequence is returned when a sequence holds no frames.
var ErrEmptySequence = errors.New("frame sequence is empty")

// Size returns the width and height of the first frame, or zeros.
func (s Sequence) Size() (width, height int) {
	if len(s) == 0 {
		return 0, 0
	}
	b := s[0].Bounds()
	return b.Dx(), b.Dy()
}

// Validate reports an error when the sequence is empty or when any frame's
// size differs from the first frame.
func (s Sequence) Validate() error {
	if len(s) == 0 {
		return ErrEmptySequence
	}
	w, h := s.Size()
	for i, f := range s {
		b := f.Bounds()
		if b.Dx() != w || b.Dy() != h {
			return fmt.Errorf("frame %d is %dx%d, want %dx%d", i, b.Dx(), b.Dy(), w, h)
		}
	}
	return nil
}
