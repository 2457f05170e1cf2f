// Package config holds runtime configuration: defaults, CLI flag parsing, and
// validation. The conversion itself has almost nothing to tune; the fixed
// values below are part of the output contract.
package config

import (
	"errors"
	"strings"
)

// Fixed conversion parameters (not user-configurable).
const (
	FrameRate       = 15      // Output frames per second.
	SourceExtension = ".dcm"  // Matched case-insensitively.
	VideoExtension  = "mp4"   // Output container extension, without dot.
	VideoCodec      = "mpeg4" // ffmpeg encoder name.
	VideoCodecTag   = "mp4v"  // FourCC written into the container.
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Config holds all runtime settings. It is populated by [DefaultConfig] and
// then mutated by [ParseFlags] before being passed (by pointer) to packages
// that need it.
type Config struct {
	// RootDir is the directory tree scanned for source files (positional arg).
	RootDir string

	// External tools.
	FFmpegPath  string // Default: "ffmpeg".
	FFprobePath string // Default: "ffprobe".

	// Behavior flags.
	DryRun bool // Decode only; write no video files.
	Verify bool // Probe every written video and compare against the sequence.

	// Outputs besides the videos.
	ReportFile  string // Optional JSON run report path.
	MetricsFile string // Optional Prometheus textfile path.

	// Display and logging.
	Verbose      bool
	ShowProgress bool      // Default: true. Cleared by --no-progress.
	ColorMode    ColorMode // Default: "auto".
	LogFile      string    // Optional log file path (JSON lines).
	CheckOnly    bool      // Run --check diagnostics and exit.
}

// DefaultConfig returns a Config with all defaults applied. Used as the base
// before [ParseFlags] applies CLI overrides.
func DefaultConfig() Config {
	return Config{
		FFmpegPath:   "ffmpeg",
		FFprobePath:  "ffprobe",
		ShowProgress: true,
		ColorMode:    ColorAuto,
	}
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum fields and tool paths. The root directory is not
// checked here: an unset root is reported by the pipeline as a
// configuration error so every caller gets the same message.
func (c *Config) Validate() error {
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	if strings.TrimSpace(c.FFmpegPath) == "" {
		return errors.New("ffmpeg path must not be empty")
	}
	if c.Verify && strings.TrimSpace(c.FFprobePath) == "" {
		return errors.New("ffprobe path must not be empty when --verify is set")
	}
	if c.DryRun && c.Verify {
		return errors.New("--verify has no effect with --dry-run")
	}
	return nil
}
