// Package dicom reads DICOM files into sample arrays using
// github.com/cocosip/go-dicom. Compressed transfer syntaxes are handled by
// the go-dicom-codec packages registered below.
package dicom

import (
	"fmt"

	"github.com/cocosip/go-dicom/pkg/dicom/parser"
	"github.com/cocosip/go-dicom/pkg/imaging"

	// Register codecs for encapsulated pixel data.
	_ "github.com/cocosip/go-dicom-codec/jpeg/baseline"
	_ "github.com/cocosip/go-dicom-codec/jpeg/extended"
	_ "github.com/cocosip/go-dicom-codec/jpeg/lossless"
	_ "github.com/cocosip/go-dicom-codec/jpeg/lossless14sv1"
	_ "github.com/cocosip/go-dicom-codec/jpeg2000/lossless"
	_ "github.com/cocosip/go-dicom-codec/jpeg2000/lossy"
	_ "github.com/cocosip/go-dicom-codec/jpegls/lossless"

	"github.com/backmassage/cag2mp4/internal/volume"
)

// Reader implements volume.Reader for DICOM files.
type Reader struct{}

// NewReader returns a DICOM reader.
func NewReader() *Reader { return &Reader{} }

// Read parses path, decodes every frame of its pixel data and returns the
// samples as an array shaped like the image: (H, W), (F, H, W), (3, H, W)
// for a single color frame, or (F, H, W, 3) for color cines.
func (r *Reader) Read(path string) (volume.Array, error) {
	res, err := parser.ParseFile(path, parser.WithReadOption(parser.ReadAll))
	if err != nil {
		return volume.Array{}, fmt.Errorf("parse: %w", err)
	}
	pd, err := imaging.CreatePixelData(res.Dataset)
	if err != nil {
		return volume.Array{}, fmt.Errorf("pixel data: %w", err)
	}

	info := pd.Info
	l := pixelLayout{
		Width:         int(info.Width),
		Height:        int(info.Height),
		Samples:       int(info.SamplesPerPixel),
		Planar:        info.PlanarConfiguration == imaging.PlanarPlanar,
		BitsAllocated: int(info.BitsAllocated),
		BitsStored:    int(info.BitsStored),
		Signed:        info.PixelRepresentation == 1,
	}

	count := int(pd.FrameCount())
	frames := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		f, err := pd.GetFrame(i)
		if err != nil {
			return volume.Array{}, fmt.Errorf("frame %d: %w", i, err)
		}
		frames = append(frames, f)
	}
	return assemble(l, frames)
}
