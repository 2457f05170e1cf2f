package volume

import (
	"errors"
	"fmt"

	"github.com/backmassage/cag2mp4/internal/frame"
)

// Sentinel reasons wrapped by DecodeError.
var (
	ErrUnexpectedShape = errors.New("unexpected shape")
	ErrNoFrames        = errors.New("no frames extracted")
)

// DecodeError reports that one source file could not be turned into a
// frame sequence. Err is the underlying cause.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decoded is the result of decoding one source file.
type Decoded struct {
	Path   string
	Layout Layout
	Kind   frame.Kind
	Frames frame.Sequence
}

// Decoder reads source files through a Reader and produces normalized
// frame sequences.
type Decoder struct {
	reader Reader
}

// NewDecoder returns a Decoder backed by r.
func NewDecoder(r Reader) *Decoder {
	return &Decoder{reader: r}
}

// Decode reads path, classifies the array shape, extracts and normalizes
// every frame. All failures are returned as *DecodeError.
func (d *Decoder) Decode(path string) (*Decoded, error) {
	a, err := d.reader.Read(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	layout, err := Classify(a.Shape)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	if layout.Frames() == 0 {
		return nil, &DecodeError{Path: path, Err: ErrNoFrames}
	}
	if err := a.Validate(); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	frames, err := FromArray(layout, a)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return &Decoded{Path: path, Layout: layout, Kind: a.Kind, Frames: frames}, nil
}

// FromArray extracts and normalizes the frames of a according to layout.
// a must already be validated against its shape.
func FromArray(layout Layout, a Array) (frame.Sequence, error) {
	rasters := layout.extract(a)
	if len(rasters) == 0 {
		return nil, ErrNoFrames
	}
	seq := make(frame.Sequence, 0, len(rasters))
	for _, r := range rasters {
		seq = append(seq, frame.Normalize(r))
	}
	return seq, nil
}
