package ffmpeg

import (
	"errors"
	"fmt"
	"regexp"
)

// Sentinel causes wrapped by EncodeError.
var (
	ErrShapeMismatch      = errors.New("frame size differs from first frame")
	ErrEncoderUnavailable = errors.New("mpeg4 encoder or mp4 muxer unavailable")
)

// EncodeError reports a failure to open, write to, or finalize a video.
// Stderr holds ffmpeg's captured diagnostics, if any.
type EncodeError struct {
	Path   string
	Op     string // "open", "write" or "finalize".
	Stderr string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// Pre-compiled regexes for classifying ffmpeg stderr output.
var (
	reOddDimensions = regexp.MustCompile(
		`(?i)(width|height|dimensions?) (must be|not) (a multiple of|divisible by) 2|` +
			`odd (width|height|dimensions?)|` +
			`width and height .*(even|divisible)`)

	reEncoderUnavailable = regexp.MustCompile(
		`(?i)Unknown encoder|Encoder .* not found|` +
			`Requested output format .* is not a suitable output format|` +
			`Unknown (output )?format`)
)

// MatchOddDimensions reports whether stderr complains about odd frame sizes.
func MatchOddDimensions(stderr string) bool {
	return reOddDimensions.MatchString(stderr)
}

// MatchEncoderUnavailable reports whether stderr says the codec or muxer
// is missing from this ffmpeg build.
func MatchEncoderUnavailable(stderr string) bool {
	return reEncoderUnavailable.MatchString(stderr)
}
