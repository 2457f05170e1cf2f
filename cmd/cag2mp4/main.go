// Command cag2mp4 converts every DICOM file under a directory into an MP4
// video written next to it.
//
// It parses flags, validates configuration, and either runs system
// diagnostics (--check) or the conversion run.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/backmassage/cag2mp4/internal/check"
	"github.com/backmassage/cag2mp4/internal/config"
	"github.com/backmassage/cag2mp4/internal/dicom"
	"github.com/backmassage/cag2mp4/internal/display"
	"github.com/backmassage/cag2mp4/internal/ffmpeg"
	"github.com/backmassage/cag2mp4/internal/logging"
	"github.com/backmassage/cag2mp4/internal/metrics"
	"github.com/backmassage/cag2mp4/internal/pipeline"
	"github.com/backmassage/cag2mp4/internal/probe"
	"github.com/backmassage/cag2mp4/internal/report"
	"github.com/backmassage/cag2mp4/internal/term"
	"github.com/backmassage/cag2mp4/internal/volume"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "1.0.0"
	commit  = "unknown"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Phase 1: Bootstrap. The logger doesn't exist yet, so errors go
	// directly to stderr.
	cfg := config.DefaultConfig()
	if err := config.ParseFlags(&cfg, version, args); err != nil {
		if errors.Is(err, flag.ErrHelp) || errors.Is(err, config.ErrVersionShown) {
			return exitOK
		}
		fmt.Fprintf(os.Stderr, "cag2mp4: %v\n", err)
		return exitFailure
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "cag2mp4: %v\n", err)
		return exitFailure
	}

	log, err := logging.NewLogger(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cag2mp4: %v\n", err)
		return exitFailure
	}
	defer log.Close()

	// Phase 2: Logger available.
	display.PrintBanner(os.Stdout, version)

	if cfg.CheckOnly {
		check.RunCheck(&cfg, log)
		return exitOK
	}

	if cfg.RootDir == "" {
		log.Error("%v", &pipeline.ConfigurationError{Err: pipeline.ErrNoRootDir})
		log.Error("Please select a directory: cag2mp4 [options] <dir>")
		return exitFailure
	}
	if abs, err := filepath.Abs(cfg.RootDir); err == nil {
		cfg.RootDir = abs
	}

	log.Info("=== cag2mp4 v%s (%s) ===", version, commit)
	log.Info("Root: %s", cfg.RootDir)
	log.Info("Output: %s, %s at %d fps, next to each source", config.VideoExtension, config.VideoCodec, config.FrameRate)
	if cfg.DryRun {
		log.Warn("DRY RUN: files are decoded, nothing is written")
	} else if err := check.CheckDeps(&cfg); err != nil {
		log.Error("%v", err)
		return exitFailure
	}
	log.Info("")

	// Phase 3: Signal handling. The run stops between files.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Phase 4: Wire collaborators and run on a worker goroutine.
	runMetrics := metrics.NewRun()
	runner := pipeline.NewRunner(&cfg, log,
		volume.NewDecoder(dicom.NewReader()),
		ffmpeg.NewEncoder(&cfg, log))
	runner.Metrics = runMetrics
	if cfg.Verify {
		runner.Verifier = probe.NewVerifier(cfg.FFprobePath)
	}

	task := runner.Start(ctx, cfg.RootDir)
	if cfg.ShowProgress && term.IsTerminal(os.Stderr) {
		showProgress(os.Stderr, task.Progress())
	}
	summary, err := task.Wait()
	if err != nil {
		return exitFailure
	}

	// Phase 5: Run artifacts.
	runMetrics.Finish(time.Now())
	if cfg.MetricsFile != "" {
		if err := runMetrics.WriteFile(cfg.MetricsFile); err != nil {
			log.Error("Cannot write metrics: %v", err)
		} else {
			log.Debug(cfg.Verbose, "Metrics written to %s", cfg.MetricsFile)
		}
	}
	if cfg.ReportFile != "" {
		if err := report.Write(cfg.ReportFile, summary); err != nil {
			log.Error("Cannot write report: %v", err)
		} else {
			log.Info("Report: %s", cfg.ReportFile)
		}
	}

	return exitCode(summary)
}

func exitCode(s pipeline.Summary) int {
	switch {
	case s.Interrupted:
		return exitInterrupted
	case s.Failed > 0:
		return exitFailure
	default:
		return exitOK
	}
}
