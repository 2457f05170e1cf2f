package dicom

import (
	"encoding/binary"
	"fmt"

	"github.com/backmassage/cag2mp4/internal/frame"
	"github.com/backmassage/cag2mp4/internal/volume"
)

// pixelLayout is the subset of the image pixel module needed to unpack
// native little-endian frames.
type pixelLayout struct {
	Width         int
	Height        int
	Samples       int  // Samples per pixel: 1 (monochrome) or 3 (RGB).
	Planar        bool // RGB stored as R, G and B planes per frame instead of interleaved.
	BitsAllocated int  // 8, 16 or 32.
	BitsStored    int
	Signed        bool
}

func (l pixelLayout) bytesPerSample() int { return l.BitsAllocated / 8 }

func (l pixelLayout) frameBytes() int {
	return l.Width * l.Height * l.Samples * l.bytesPerSample()
}

func (l pixelLayout) kind() frame.Kind {
	switch l.BitsAllocated {
	case 8:
		if l.Signed {
			return frame.Int8
		}
		return frame.Uint8
	case 16:
		if l.Signed {
			return frame.Int16
		}
		return frame.Uint16
	default:
		if l.Signed {
			return frame.Int32
		}
		return frame.Uint32
	}
}

func (l pixelLayout) validate() error {
	if l.Width <= 0 || l.Height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", l.Width, l.Height)
	}
	switch l.BitsAllocated {
	case 8, 16, 32:
	default:
		return fmt.Errorf("unsupported bits allocated: %d", l.BitsAllocated)
	}
	if l.Samples != 1 && l.Samples != 3 {
		return fmt.Errorf("unsupported samples per pixel: %d", l.Samples)
	}
	return nil
}

// assemble unpacks raw frames into an array. Monochrome data becomes
// (H, W) or (F, H, W); a single RGB frame is channel-first (3, H, W);
// several RGB frames are interleaved (F, H, W, 3).
func assemble(l pixelLayout, frames [][]byte) (volume.Array, error) {
	if err := l.validate(); err != nil {
		return volume.Array{}, err
	}
	if len(frames) == 0 {
		return volume.Array{}, volume.ErrNoFrames
	}

	per := l.Width * l.Height * l.Samples
	data := make([]float64, 0, per*len(frames))
	for i, raw := range frames {
		if len(raw) < l.frameBytes() {
			return volume.Array{}, fmt.Errorf("frame %d: %d bytes, want %d", i, len(raw), l.frameBytes())
		}
		data = appendSamples(data, raw[:l.frameBytes()], l)
	}

	a := volume.Array{Kind: l.kind(), Data: data}
	switch {
	case l.Samples == 1 && len(frames) == 1:
		a.Shape = []int{l.Height, l.Width}
	case l.Samples == 1:
		a.Shape = []int{len(frames), l.Height, l.Width}
	case len(frames) == 1:
		a.Shape = []int{3, l.Height, l.Width}
		if !l.Planar {
			a.Data = planarize(data, l.Width*l.Height)
		}
	default:
		a.Shape = []int{len(frames), l.Height, l.Width, 3}
		if l.Planar {
			for off := 0; off < len(data); off += per {
				copy(data[off:off+per], interleave(data[off:off+per], l.Width*l.Height))
			}
		}
	}
	return a, nil
}

// appendSamples decodes raw little-endian samples, masking to BitsStored
// and sign-extending when the pixel representation is signed.
func appendSamples(dst []float64, raw []byte, l pixelLayout) []float64 {
	bps := l.bytesPerSample()
	stored := l.BitsStored
	if stored <= 0 || stored > l.BitsAllocated {
		stored = l.BitsAllocated
	}
	mask := uint32(1)<<uint(stored) - 1
	if stored == 32 {
		mask = ^uint32(0)
	}
	signBit := uint32(1) << uint(stored-1)

	for off := 0; off+bps <= len(raw); off += bps {
		var v uint32
		switch bps {
		case 1:
			v = uint32(raw[off])
		case 2:
			v = uint32(binary.LittleEndian.Uint16(raw[off:]))
		default:
			v = binary.LittleEndian.Uint32(raw[off:])
		}
		v &= mask
		if l.Signed && v&signBit != 0 {
			dst = append(dst, float64(int64(v)-int64(mask)-1))
			continue
		}
		dst = append(dst, float64(v))
	}
	return dst
}

// planarize converts interleaved RGBRGB... samples into three consecutive
// planes (R..., G..., B...).
func planarize(interleaved []float64, pixels int) []float64 {
	out := make([]float64, 3*pixels)
	for p := 0; p < pixels; p++ {
		out[p] = interleaved[3*p]
		out[pixels+p] = interleaved[3*p+1]
		out[2*pixels+p] = interleaved[3*p+2]
	}
	return out
}

// interleave is the inverse of planarize.
func interleave(planes []float64, pixels int) []float64 {
	out := make([]float64, 3*pixels)
	for p := 0; p < pixels; p++ {
		out[3*p] = planes[p]
		out[3*p+1] = planes[pixels+p]
		out[3*p+2] = planes[2*pixels+p]
	}
	return out
}
