package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/backmassage/cag2mp4/internal/config"
	"github.com/backmassage/cag2mp4/internal/display"
	"github.com/backmassage/cag2mp4/internal/ffmpeg"
	"github.com/backmassage/cag2mp4/internal/frame"
	"github.com/backmassage/cag2mp4/internal/naming"
	"github.com/backmassage/cag2mp4/internal/volume"
)

// Decoder turns one source file into a normalized frame sequence.
type Decoder interface {
	Decode(path string) (*volume.Decoded, error)
}

// Encoder writes a frame sequence to a video file.
type Encoder interface {
	Encode(ctx context.Context, seq frame.Sequence, outputPath string) (ffmpeg.Video, error)
}

// Verifier checks a written video against what was encoded.
type Verifier interface {
	Verify(ctx context.Context, path string, frames, width, height int) error
}

// Recorder receives per-stage timings and per-file outcomes.
type Recorder interface {
	ObserveStage(stage string, d time.Duration)
	FileDone(ok bool, frames int)
}

// Logger is the subset of logging.Logger the runner uses.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(bool, string, ...interface{})
}

// Runner converts every source file under a root directory.
type Runner struct {
	Decoder  Decoder
	Encoder  Encoder
	Verifier Verifier // nil skips verification.
	Metrics  Recorder // nil records nothing.
	Log      Logger
	DryRun   bool
	Verbose  bool
}

// NewRunner returns a Runner configured from cfg.
func NewRunner(cfg *config.Config, log Logger, dec Decoder, enc Encoder) *Runner {
	return &Runner{
		Decoder: dec,
		Encoder: enc,
		Log:     log,
		DryRun:  cfg.DryRun,
		Verbose: cfg.Verbose,
	}
}

// Run converts every source file under root, one at a time, and returns
// the tally. The context is checked between files; a cancelled run stops
// early with Summary.Interrupted set. The error is non-nil only when the
// run could not start (*ConfigurationError, *DiscoveryError).
func (r *Runner) Run(ctx context.Context, root string) (Summary, error) {
	return r.run(ctx, root, func(Progress) {})
}

func (r *Runner) run(ctx context.Context, root string, emit func(Progress)) (Summary, error) {
	s := Summary{
		RunID:   uuid.NewString(),
		Root:    root,
		DryRun:  r.DryRun,
		Started: time.Now(),
	}
	finish := func() { s.Finished = time.Now() }

	if strings.TrimSpace(root) == "" {
		finish()
		emit(Progress{State: StateAborted, Status: statusNoRoot})
		return s, &ConfigurationError{Err: ErrNoRootDir}
	}

	emit(Progress{State: StateDiscovering, Status: "Scanning " + root})
	files, err := Discover(root)
	if err != nil {
		finish()
		r.Log.Error("%v", err)
		emit(Progress{State: StateAborted, Status: err.Error()})
		return s, err
	}
	s.Total = len(files)

	if s.Total == 0 {
		finish()
		r.Log.Warn("%s under %s", statusNoFiles, root)
		emit(Progress{State: StateDone, Status: statusNoFiles})
		return s, nil
	}

	r.Log.Info("Found %d source files under %s", s.Total, root)
	resolver := naming.NewCollisionResolver()

	for i, path := range files {
		if ctx.Err() != nil {
			r.Log.Warn("Interrupted")
			s.Interrupted = true
			break
		}

		r.Log.Info("[%d/%d] %s", i+1, s.Total, relPath(root, path))
		// A started file runs to completion; cancellation takes effect
		// before the next one.
		res := r.processFile(context.WithoutCancel(ctx), path, resolver)
		s.record(res)
		if r.Metrics != nil {
			encoded := res.Frames
			if r.DryRun {
				encoded = 0
			}
			r.Metrics.FileDone(res.OK(), encoded)
		}

		emit(Progress{
			State:     StateRecorded,
			Processed: s.Processed(),
			Total:     s.Total,
			Succeeded: s.Succeeded,
			Failed:    s.Failed,
			Status:    processingStatus(s.Processed(), s.Total, s.Succeeded),
			Result:    &res,
		})
	}

	finish()
	r.logSummary(&s)
	emit(Progress{
		State:     StateDone,
		Processed: s.Processed(),
		Total:     s.Total,
		Succeeded: s.Succeeded,
		Failed:    s.Failed,
		Status:    doneStatus(&s),
	})
	return s, nil
}

// processFile runs decode, encode and optional verification for one file.
// Every failure, including a panic in a collaborator, is captured in the
// result.
func (r *Runner) processFile(ctx context.Context, path string, resolver *naming.CollisionResolver) (res ConversionResult) {
	start := time.Now()
	res = ConversionResult{Source: path}
	stage := StateDecoding
	defer func() { res.Duration = time.Since(start) }()
	defer func() {
		if p := recover(); p != nil {
			res = r.fail(res, panicError(stage, res, p))
		}
	}()

	requested := naming.OutputPath(path, config.VideoExtension)
	res.Output = resolver.Resolve(path, requested)
	if res.Output != requested {
		r.Log.Warn("Output name taken in this run, writing %s", filepath.Base(res.Output))
	}

	// --- Decode (normalization happens per frame inside) ---
	r.Log.Debug(r.Verbose, "  %s", StateDecoding)
	stageStart := time.Now()
	dec, err := r.Decoder.Decode(path)
	r.observe("decode", stageStart)
	if err != nil {
		return r.fail(res, err)
	}
	res.Layout = dec.Layout.Name()
	res.Frames = len(dec.Frames)
	res.Width, res.Height = dec.Frames.Size()
	r.Log.Debug(r.Verbose, "  Layout: %s, %d frame(s) %dx%d, %s samples",
		res.Layout, res.Frames, res.Width, res.Height, dec.Kind)

	if r.DryRun {
		r.Log.Success("[DRY] Would encode %d frame(s) -> %s", res.Frames, filepath.Base(res.Output))
		return res
	}

	// --- Encode ---
	stage = StateEncoding
	r.Log.Debug(r.Verbose, "  %s", stage)
	stageStart = time.Now()
	video, err := r.Encoder.Encode(ctx, dec.Frames, res.Output)
	r.observe("encode", stageStart)
	if err != nil {
		return r.fail(res, err)
	}
	if video.Padded {
		res.Width, res.Height, res.Padded = video.Width, video.Height, true
		r.Log.Debug(r.Verbose, "  Stored as %dx%d", res.Width, res.Height)
	}

	// --- Verify ---
	if r.Verifier != nil {
		stage = StateVerifying
		r.Log.Debug(r.Verbose, "  %s", stage)
		stageStart = time.Now()
		err = r.Verifier.Verify(ctx, res.Output, res.Frames, res.Width, res.Height)
		r.observe("verify", stageStart)
		if err != nil {
			return r.fail(res, err)
		}
	}

	if fi, err := os.Stat(res.Output); err == nil {
		res.Bytes = fi.Size()
	}
	r.Log.Success("Converted %d frame(s) -> %s (%s)", res.Frames, filepath.Base(res.Output), display.FormatBytes(res.Bytes))
	return res
}

// panicError turns a recovered panic into the error type of the stage it
// interrupted.
func panicError(stage State, res ConversionResult, p any) error {
	cause := fmt.Errorf("%w: %v", ErrPanic, p)
	switch stage {
	case StateDecoding:
		return &volume.DecodeError{Path: res.Source, Err: cause}
	case StateEncoding:
		return &ffmpeg.EncodeError{Path: res.Output, Op: "write", Err: cause}
	default:
		return fmt.Errorf("%s %s: %w", stage, res.Output, cause)
	}
}

func (r *Runner) fail(res ConversionResult, err error) ConversionResult {
	res.Err = err
	r.Log.Error("%v", err)

	var ee *ffmpeg.EncodeError
	if errors.As(err, &ee) {
		r.logStderr(ee.Stderr)
	}
	return res
}

func (r *Runner) observe(stage string, start time.Time) {
	if r.Metrics != nil {
		r.Metrics.ObserveStage(stage, time.Since(start))
	}
}

// logStderr prints the last lines of ffmpeg's output.
func (r *Runner) logStderr(stderr string) {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return
	}
	r.Log.Error("Last ffmpeg output:")
	lines := strings.Split(stderr, "\n")
	start := 0
	if len(lines) > 20 {
		start = len(lines) - 20
	}
	for _, l := range lines[start:] {
		r.Log.Error("  %s", l)
	}
}

func (r *Runner) logSummary(s *Summary) {
	r.Log.Info("==============================")
	r.Log.Info("%s", doneStatus(s))
	r.Log.Info("  Processed: %d, succeeded: %d, failed: %d", s.Processed(), s.Succeeded, s.Failed)
	r.Log.Info("  Elapsed: %s", display.FormatDuration(s.Finished.Sub(s.Started)))
	if !s.DryRun {
		r.Log.Info("  Written: %s", display.FormatBytes(s.OutputBytes()))
	}
	for _, f := range s.Failures() {
		r.Log.Warn("  Failed: %s", relPath(s.Root, f.Source))
	}
}

func relPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return path
}
