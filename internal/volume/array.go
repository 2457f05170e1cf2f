package volume

import (
	"fmt"

	"github.com/backmassage/cag2mp4/internal/frame"
)

// Array is a decoded multi-dimensional sample array. Shape lists the axis
// sizes outermost first; Data holds product(Shape) samples in row-major
// order.
type Array struct {
	Shape []int
	Kind  frame.Kind
	Data  []float64
}

// Len returns the number of samples implied by Shape.
func (a Array) Len() int {
	if len(a.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// Validate checks that every axis is positive and Data matches Shape.
func (a Array) Validate() error {
	for i, d := range a.Shape {
		if d <= 0 {
			return fmt.Errorf("axis %d has size %d", i, d)
		}
	}
	if len(a.Data) != a.Len() {
		return fmt.Errorf("shape %v needs %d samples, have %d", a.Shape, a.Len(), len(a.Data))
	}
	return nil
}

// Reader decodes one source file into an Array. It is the boundary to the
// imaging library (see package dicom).
type Reader interface {
	Read(path string) (Array, error)
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func(path string) (Array, error)

// Read calls f(path).
func (f ReaderFunc) Read(path string) (Array, error) { return f(path) }
