package probe

import (
	"strconv"
	"strings"
)

// FormatInfo holds container-level metadata from ffprobe's format section.
type FormatInfo struct {
	Filename   string
	FormatName string
	Duration   float64
	Size       int64
	BitRate    int64
}

// VideoStream holds the parsed properties of a single video stream.
type VideoStream struct {
	Index        int
	Codec        string
	CodecTag     string
	PixFmt       string
	Width        int
	Height       int
	AvgFrameRate string
	Frames       int // Decoded frame count (nb_read_frames); 0 when not counted.
}

// ProbeResult is the parsed output of a single ffprobe JSON call.
// PrimaryVideo is the first video stream (nil if none).
type ProbeResult struct {
	Format       FormatInfo
	PrimaryVideo *VideoStream
}

// FrameRate returns the primary stream's average frame rate in frames per
// second, or 0 when unknown.
func (p *ProbeResult) FrameRate() float64 {
	if p.PrimaryVideo == nil {
		return 0
	}
	num, den, ok := strings.Cut(p.PrimaryVideo.AvgFrameRate, "/")
	if !ok {
		return parseFloat(num)
	}
	d := parseFloat(den)
	if d == 0 {
		return 0
	}
	return parseFloat(num) / d
}

// Resolution returns "WxH" for the primary video stream, or "unknown".
func (p *ProbeResult) Resolution() string {
	if p.PrimaryVideo == nil || p.PrimaryVideo.Width <= 0 || p.PrimaryVideo.Height <= 0 {
		return "unknown"
	}
	return strconv.Itoa(p.PrimaryVideo.Width) + "x" + strconv.Itoa(p.PrimaryVideo.Height)
}
