package ffmpeg

import (
	"fmt"
	"strconv"

	"github.com/backmassage/cag2mp4/internal/config"
)

// evenPadFilter pads odd widths/heights up by one pixel for encoders or
// pixel formats that need even dimensions.
const evenPadFilter = "pad=ceil(iw/2)*2:ceil(ih/2)*2"

// Spec describes one output video.
type Spec struct {
	OutputPath string
	Width      int
	Height     int
	FrameRate  int
	PadEven    bool
}

// Build constructs the complete ffmpeg argument slice (binary first) for
// an encode that reads raw gray frames from stdin.
func Build(cfg *config.Config, s Spec) []string {
	args := make([]string, 0, 40)

	// --- Preamble ---
	args = append(args, cfg.FFmpegPath, "-hide_banner", "-y")
	if cfg.Verbose {
		args = append(args, "-loglevel", "info")
	} else {
		args = append(args, "-loglevel", "error")
	}

	// --- Input: raw frames on stdin ---
	args = append(args,
		"-f", "rawvideo",
		"-pix_fmt", "gray",
		"-video_size", fmt.Sprintf("%dx%d", s.Width, s.Height),
		"-framerate", strconv.Itoa(s.FrameRate),
		"-i", "pipe:0",
	)

	// --- Video ---
	args = append(args, "-an")
	if s.PadEven {
		args = append(args, "-vf", evenPadFilter)
	}
	args = append(args,
		"-c:v", config.VideoCodec,
		"-tag:v", config.VideoCodecTag,
		"-q:v", "2",
		"-pix_fmt", "yuv420p",
	)

	// --- Container ---
	args = append(args, "-movflags", "+faststart", "-f", config.VideoExtension)

	// --- Output ---
	args = append(args, s.OutputPath)
	return args
}
