// Package check provides system diagnostics (--check mode) and pre-run
// dependency validation (CheckDeps) for ffmpeg, ffprobe and the mpeg4/MP4
// encode path.
package check

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/backmassage/cag2mp4/internal/config"
)

// Sentinel errors returned by CheckDeps when a required tool or encoder is missing.
var (
	ErrFfmpegNotFound    = errors.New("ffmpeg not found")
	ErrFfprobeNotFound   = errors.New("ffprobe not found")
	ErrMpeg4EncodeFailed = errors.New("mpeg4 test encode to MP4 failed")
)

// Logger is the minimal logging interface needed by RunCheck.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(bool, string, ...interface{})
}

// RunCheck runs the interactive --check flow: ffmpeg version, ffprobe
// availability, the mpeg4 encoder listing, and a short test encode.
// This is informational only; it does not stop on failure.
func RunCheck(cfg *config.Config, log Logger) {
	log.Info("=== System Check ===")

	if !checkFfmpeg(cfg, log) {
		return
	}
	checkFfprobe(cfg, log)
	checkMpeg4Encoder(cfg, log)
	checkTestEncode(cfg, log)
}

// checkFfmpeg verifies ffmpeg is resolvable and logs its version string.
func checkFfmpeg(cfg *config.Config, log Logger) bool {
	if _, err := exec.LookPath(cfg.FFmpegPath); err != nil {
		log.Error("ffmpeg not found (%s)", cfg.FFmpegPath)
		return false
	}
	out, err := exec.Command(cfg.FFmpegPath, "-version").Output()
	if err != nil {
		log.Warn("ffmpeg found but -version failed: %v", err)
		return true
	}
	log.Success("ffmpeg: %s", firstLine(string(out)))
	return true
}

func checkFfprobe(cfg *config.Config, log Logger) {
	if _, err := exec.LookPath(cfg.FFprobePath); err != nil {
		log.Warn("ffprobe not found (%s); --verify unavailable", cfg.FFprobePath)
		return
	}
	log.Success("ffprobe: %s", cfg.FFprobePath)
}

// checkMpeg4Encoder lists the encoders ffmpeg reports for MPEG-4 Part 2.
func checkMpeg4Encoder(cfg *config.Config, log Logger) {
	out, err := exec.Command(cfg.FFmpegPath, "-hide_banner", "-encoders").Output()
	if err != nil {
		log.Warn("Could not list encoders: %v", err)
		return
	}
	found := false
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == config.VideoCodec {
			log.Info("  %s", strings.TrimSpace(line))
			found = true
		}
	}
	if !found {
		log.Error("Encoder %s not listed by ffmpeg", config.VideoCodec)
	}
}

func checkTestEncode(cfg *config.Config, log Logger) {
	log.Info("Testing %s -> %s...", config.VideoCodec, config.VideoExtension)
	if testEncode(cfg.FFmpegPath) {
		log.Success("Test encode works")
	} else {
		log.Error("Test encode failed")
	}
}

// CheckDeps is the pre-run validation: ffmpeg must be resolvable and able
// to write a grayscale mpeg4 MP4; ffprobe is required only with --verify.
// Returns a sentinel error on failure.
func CheckDeps(cfg *config.Config) error {
	if _, err := exec.LookPath(cfg.FFmpegPath); err != nil {
		return ErrFfmpegNotFound
	}
	if cfg.Verify {
		if _, err := exec.LookPath(cfg.FFprobePath); err != nil {
			return ErrFfprobeNotFound
		}
	}
	if !testEncode(cfg.FFmpegPath) {
		return ErrMpeg4EncodeFailed
	}
	return nil
}

// --- internal helpers ---

// testEncode writes a few gray frames through the same codec, tag and
// container the converter uses, into a throwaway directory.
func testEncode(bin string) bool {
	dir, err := os.MkdirTemp("", "cag2mp4-check-")
	if err != nil {
		return false
	}
	defer os.RemoveAll(dir)

	return runSilent(bin,
		"-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi", "-i", "color=c=gray:s=64x64:r=15:d=0.2",
		"-vf", "format=gray",
		"-c:v", config.VideoCodec, "-tag:v", config.VideoCodecTag,
		"-pix_fmt", "yuv420p",
		"-f", config.VideoExtension, "-y",
		filepath.Join(dir, "check."+config.VideoExtension),
	)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "\n"); idx > 0 {
		return s[:idx]
	}
	return s
}

// runSilent runs a command and returns true if it exits with status 0.
// Both stdout and stderr are discarded.
func runSilent(name string, args ...string) bool {
	cmd := exec.Command(name, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}
