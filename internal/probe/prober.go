package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Probe runs ffprobe (bin) against path, counting decoded frames, and
// returns the parsed result.
func Probe(ctx context.Context, bin, path string) (*ProbeResult, error) {
	cmd := exec.CommandContext(ctx, bin,
		"-v", "quiet",
		"-print_format", "json",
		"-count_frames",
		"-show_format", "-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %q: %w", path, err)
	}

	return ParseJSON(out)
}

// ParseJSON converts raw ffprobe JSON output into a ProbeResult.
// Exported for testing without a real ffprobe binary.
func ParseJSON(data []byte) (*ProbeResult, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse ffprobe JSON: %w", err)
	}
	return buildResult(&raw), nil
}

// ErrMismatch is wrapped by Check when a video differs from what was encoded.
var ErrMismatch = errors.New("video does not match encoded sequence")

// Check compares a probe result against the expected frame count and size.
func Check(pr *ProbeResult, frames, width, height int) error {
	v := pr.PrimaryVideo
	if v == nil {
		return fmt.Errorf("%w: no video stream", ErrMismatch)
	}
	if v.Width != width || v.Height != height {
		return fmt.Errorf("%w: size %s, want %dx%d", ErrMismatch, pr.Resolution(), width, height)
	}
	if v.Frames != frames {
		return fmt.Errorf("%w: %d frames, want %d", ErrMismatch, v.Frames, frames)
	}
	return nil
}

// Verifier probes written videos with a configured ffprobe binary.
type Verifier struct {
	bin string
}

// NewVerifier returns a Verifier that runs bin.
func NewVerifier(bin string) *Verifier { return &Verifier{bin: bin} }

// Verify probes path and checks it with [Check].
func (v *Verifier) Verify(ctx context.Context, path string, frames, width, height int) error {
	pr, err := Probe(ctx, v.bin, path)
	if err != nil {
		return err
	}
	return Check(pr, frames, width, height)
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

type ffprobeStream struct {
	Index        int    `json:"index"`
	CodecName    string `json:"codec_name"`
	CodecType    string `json:"codec_type"`
	CodecTag     string `json:"codec_tag_string"`
	PixFmt       string `json:"pix_fmt"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	NbReadFrames string `json:"nb_read_frames"`
	NbFrames     string `json:"nb_frames"`
}

// --- Conversion from wire types to domain types ---

func buildResult(raw *ffprobeOutput) *ProbeResult {
	pr := &ProbeResult{
		Format: FormatInfo{
			Filename:   raw.Format.Filename,
			FormatName: raw.Format.FormatName,
			Duration:   parseFloat(raw.Format.Duration),
			Size:       parseInt64(raw.Format.Size),
			BitRate:    parseInt64(raw.Format.BitRate),
		},
	}

	for i := range raw.Streams {
		s := &raw.Streams[i]
		if s.CodecType != "video" || pr.PrimaryVideo != nil {
			continue
		}
		frames := parseInt(s.NbReadFrames)
		if frames == 0 {
			frames = parseInt(s.NbFrames)
		}
		pr.PrimaryVideo = &VideoStream{
			Index:        s.Index,
			Codec:        s.CodecName,
			CodecTag:     s.CodecTag,
			PixFmt:       s.PixFmt,
			Width:        s.Width,
			Height:       s.Height,
			AvgFrameRate: s.AvgFrameRate,
			Frames:       frames,
		}
	}
	return pr
}

// --- Numeric parsing helpers (ffprobe returns numbers as strings) ---

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
