package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"

	"github.com/backmassage/cag2mp4/internal/config"
	"github.com/backmassage/cag2mp4/internal/frame"
)

// Logger is the subset of logging.Logger the encoder uses.
type Logger interface {
	Warn(string, ...interface{})
	Debug(bool, string, ...interface{})
}

// Writer is one open ffmpeg process accepting frames of a fixed size.
// Frames must be written in order; Close finalizes the container.
type Writer struct {
	path   string
	width  int
	height int
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	frames int
	done   bool
}

// Open starts ffmpeg for spec and returns a Writer ready for frames.
func Open(ctx context.Context, cfg *config.Config, spec Spec) (*Writer, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, &EncodeError{Path: spec.OutputPath, Op: "open",
			Err: fmt.Errorf("invalid frame size %dx%d", spec.Width, spec.Height)}
	}
	args := Build(cfg, spec)

	w := &Writer{path: spec.OutputPath, width: spec.Width, height: spec.Height}
	w.cmd = exec.CommandContext(ctx, args[0], args[1:]...)
	if cfg.Verbose {
		w.cmd.Stderr = io.MultiWriter(&w.stderr, os.Stderr)
	} else {
		w.cmd.Stderr = &w.stderr
	}

	stdin, err := w.cmd.StdinPipe()
	if err != nil {
		return nil, &EncodeError{Path: w.path, Op: "open", Err: err}
	}
	w.stdin = stdin
	if err := w.cmd.Start(); err != nil {
		return nil, &EncodeError{Path: w.path, Op: "open", Err: err}
	}
	return w, nil
}

// Frames returns how many frames were written so far.
func (w *Writer) Frames() int { return w.frames }

// WriteFrame sends one frame. A frame whose size differs from the size the
// writer was opened with is rejected with ErrShapeMismatch.
func (w *Writer) WriteFrame(img *image.Gray) error {
	if w.done {
		return &EncodeError{Path: w.path, Op: "write", Err: errors.New("writer is closed")}
	}
	b := img.Bounds()
	if b.Dx() != w.width || b.Dy() != w.height {
		return &EncodeError{Path: w.path, Op: "write", Err: fmt.Errorf("%w: frame %d is %dx%d, want %dx%d",
			ErrShapeMismatch, w.frames, b.Dx(), b.Dy(), w.width, w.height)}
	}

	if img.Stride == w.width {
		start := img.PixOffset(b.Min.X, b.Min.Y)
		if _, err := w.stdin.Write(img.Pix[start : start+w.width*w.height]); err != nil {
			return w.writeErr(err)
		}
	} else {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			start := img.PixOffset(b.Min.X, y)
			if _, err := w.stdin.Write(img.Pix[start : start+w.width]); err != nil {
				return w.writeErr(err)
			}
		}
	}
	w.frames++
	return nil
}

// writeErr reaps the process so its stderr explains the broken pipe.
func (w *Writer) writeErr(err error) error {
	w.done = true
	_ = w.stdin.Close()
	_ = w.cmd.Wait()
	return &EncodeError{Path: w.path, Op: "write", Stderr: w.stderr.String(), Err: err}
}

// Close flushes stdin and waits for ffmpeg to write the trailer. The file
// is complete and playable once Close returns nil.
func (w *Writer) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.stdin.Close(); err != nil {
		_ = w.cmd.Wait()
		return &EncodeError{Path: w.path, Op: "finalize", Stderr: w.stderr.String(), Err: err}
	}
	if err := w.cmd.Wait(); err != nil {
		cause := err
		if MatchEncoderUnavailable(w.stderr.String()) {
			cause = fmt.Errorf("%w: %v", ErrEncoderUnavailable, err)
		}
		return &EncodeError{Path: w.path, Op: "finalize", Stderr: w.stderr.String(), Err: cause}
	}
	return nil
}

// Abort kills ffmpeg without finalizing. Any partial file is left as is.
func (w *Writer) Abort() {
	if w.done {
		return
	}
	w.done = true
	_ = w.stdin.Close()
	if w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
	}
	_ = w.cmd.Wait()
}

// Encoder writes whole frame sequences to MP4 files at the fixed frame rate.
type Encoder struct {
	cfg *config.Config
	log Logger
}

// NewEncoder returns an Encoder using cfg's ffmpeg binary and verbosity.
func NewEncoder(cfg *config.Config, log Logger) *Encoder {
	return &Encoder{cfg: cfg, log: log}
}

// Video describes a finished encode. Width and Height are the stored
// frame size, which exceeds the sequence size by one pixel per odd axis
// when the even-padding retry was needed.
type Video struct {
	Width  int
	Height int
	Frames int
	Padded bool
}

// Encode writes seq to outputPath. The frame size is taken from the first
// frame. A failed attempt whose stderr matches a known fix is retried once.
// On failure a partial output file may remain.
func (e *Encoder) Encode(ctx context.Context, seq frame.Sequence, outputPath string) (Video, error) {
	if len(seq) == 0 {
		return Video{}, &EncodeError{Path: outputPath, Op: "open", Err: frame.ErrEmptySequence}
	}
	width, height := seq.Size()
	rs := NewRetryState()

	for {
		err := e.encodeOnce(ctx, seq, Spec{
			OutputPath: outputPath,
			Width:      width,
			Height:     height,
			FrameRate:  config.FrameRate,
			PadEven:    rs.PadEven,
		})
		if err == nil {
			v := Video{Width: width, Height: height, Frames: len(seq), Padded: rs.PadEven}
			if v.Padded {
				v.Width, v.Height = evenSize(width), evenSize(height)
			}
			return v, nil
		}
		if ctx.Err() != nil || errors.Is(err, ErrShapeMismatch) {
			return Video{}, err
		}

		var ee *EncodeError
		if !errors.As(err, &ee) {
			return Video{}, err
		}
		if rs.Advance(ee.Stderr) == RetryNone {
			return Video{}, err
		}
		e.log.Warn("Retry %d: padding %dx%d to even dimensions", rs.Attempt, width, height)
	}
}

// evenSize mirrors the pad filter's ceil(n/2)*2.
func evenSize(n int) int { return n + n%2 }

func (e *Encoder) encodeOnce(ctx context.Context, seq frame.Sequence, spec Spec) error {
	w, err := Open(ctx, e.cfg, spec)
	if err != nil {
		return err
	}
	for _, img := range seq {
		if err := w.WriteFrame(img); err != nil {
			w.Abort()
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	e.log.Debug(e.cfg.Verbose, "Wrote %d frames (%dx%d @ %d fps)", w.Frames(), spec.Width, spec.Height, spec.FrameRate)
	return nil
}
