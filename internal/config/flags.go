package config

// This file implements CLI flag parsing and help text.
// Negated flags (e.g. --no-progress) are applied after Parse so Config defaults hold unless set.

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrVersionShown is returned by [ParseFlags] after --version was printed.
// Callers treat it (and flag.ErrHelp) as a successful early exit.
var ErrVersionShown = errors.New("version shown")

// ParseFlags parses args (without the program name) into cfg. On --help it
// prints usage and returns flag.ErrHelp; on --version it prints the version
// and returns [ErrVersionShown].
func ParseFlags(cfg *Config, version string, args []string) error {
	fs := flag.NewFlagSet("cag2mp4", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() { printUsage(os.Stderr, version) }

	var negated negatedFlags

	defineBehaviorFlags(fs, cfg)
	defineOutputFlags(fs, cfg)
	defineDisplayFlags(fs, cfg, &negated)
	defineUtilityFlags(fs, cfg, &negated)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(os.Stderr, version)
		}
		return err
	}

	applyNegatedFlags(cfg, &negated)

	if negated.showHelp {
		printUsage(os.Stderr, version)
		return flag.ErrHelp
	}
	if negated.showVersion {
		fmt.Fprintln(os.Stdout, "cag2mp4 v"+version)
		return ErrVersionShown
	}

	return parsePositionalArgs(fs, cfg)
}

// negatedFlags holds boolean flags that are applied after Parse.
type negatedFlags struct {
	noProgress  bool
	forceColor  bool
	noColor     bool
	showVersion bool
	showHelp    bool
}

// defineBehaviorFlags registers --dry-run, --verify and the tool paths.
func defineBehaviorFlags(fs *flag.FlagSet, cfg *Config) {
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Decode only; do not write videos")
	fs.BoolVar(&cfg.DryRun, "d", false, "Same as --dry-run")
	fs.BoolVar(&cfg.Verify, "verify", false, "Probe each video and compare frame count and size")
	fs.StringVar(&cfg.FFmpegPath, "ffmpeg", cfg.FFmpegPath, "ffmpeg binary")
	fs.StringVar(&cfg.FFprobePath, "ffprobe", cfg.FFprobePath, "ffprobe binary")
}

// defineOutputFlags registers --report and --metrics-file.
func defineOutputFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.ReportFile, "report", "", "Write a JSON run report")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", "", "Write Prometheus metrics (textfile format)")
}

// defineDisplayFlags registers --color-mode, --color, --no-color, verbose, --no-progress, --log.
func defineDisplayFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.Var(&colorModeValue{&cfg.ColorMode}, "color-mode", "Color mode: auto | always | never")
	fs.BoolVar(&n.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&n.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVar(&n.noProgress, "no-progress", false, "Disable the progress bar")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&cfg.Verbose, "v", false, "Same as --verbose")
	fs.StringVar(&cfg.LogFile, "log", "", "Append JSON logs to file")
	fs.StringVar(&cfg.LogFile, "l", "", "Same as --log")
}

// defineUtilityFlags registers --check, --version and --help.
func defineUtilityFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVar(&cfg.CheckOnly, "check", false, "Run system diagnostics and exit")
	fs.BoolVar(&cfg.CheckOnly, "c", false, "Same as --check")
	fs.BoolVar(&n.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&n.showVersion, "V", false, "Same as --version")
	fs.BoolVar(&n.showHelp, "help", false, "Show this help and exit")
	fs.BoolVar(&n.showHelp, "h", false, "Same as --help")
}

// applyNegatedFlags copies negated and override flag values into cfg.
func applyNegatedFlags(cfg *Config, n *negatedFlags) {
	if n.noProgress {
		cfg.ShowProgress = false
	}
	if n.noColor {
		cfg.ColorMode = ColorNever
	} else if n.forceColor {
		cfg.ColorMode = ColorAlways
	}
}

// parsePositionalArgs sets RootDir from the single positional arg. Zero
// args leaves RootDir empty; the pipeline reports that to the user.
func parsePositionalArgs(fs *flag.FlagSet, cfg *Config) error {
	args := fs.Args()
	if cfg.CheckOnly {
		return nil
	}
	switch len(args) {
	case 0:
		return nil
	case 1:
		cfg.RootDir = NormalizeDirArg(strings.TrimSpace(args[0]))
		return nil
	default:
		return fmt.Errorf("expected one root directory, got %d arguments", len(args))
	}
}

// printUsage writes the help text to w. Column-aligned for readability.
func printUsage(w io.Writer, version string) {
	const col1 = 28
	lines := []struct {
		flags string
		desc  string
	}{
		{"", "cag2mp4 v" + version + " - DICOM to MP4 batch converter"},
		{"", ""},
		{"  cag2mp4 [OPTIONS] <root_dir>", ""},
		{"", ""},
		{"Every *.dcm file under root_dir is written as a sibling .mp4", ""},
		{"(15 fps, grayscale, MPEG-4 Part 2). Existing videos are overwritten.", ""},
		{"", ""},
		{"Behavior", ""},
		{"  -d, --dry-run", "Decode only; do not write videos"},
		{"  --verify", "Probe each video (frame count, size)"},
		{"  --ffmpeg <path>", "ffmpeg binary (default: ffmpeg)"},
		{"  --ffprobe <path>", "ffprobe binary (default: ffprobe)"},
		{"", ""},
		{"Reports", ""},
		{"  --report <path>", "Write a JSON run report"},
		{"  --metrics-file <path>", "Write Prometheus textfile metrics"},
		{"", ""},
		{"Display", ""},
		{"  --no-progress", "Disable the progress bar"},
		{"  --color-mode <mode>", "auto | always | never (default: auto)"},
		{"  --color", "Force colored logs"},
		{"  --no-color", "Disable colored logs"},
		{"  -v, --verbose", "Verbose output"},
		{"", ""},
		{"Utility", ""},
		{"  -l, --log <path>", "Append JSON logs to file"},
		{"  -c, --check", "System diagnostics (ffmpeg, ffprobe, mpeg4)"},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
	}

	for _, l := range lines {
		if l.flags == "" && l.desc == "" {
			fmt.Fprintln(w)
			continue
		}
		if l.desc == "" {
			fmt.Fprintln(w, l.flags)
			continue
		}
		if l.flags == "" {
			fmt.Fprintln(w, l.desc)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(w, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}
}

// flag.Value adapter so the ColorMode enum can be set directly.

type colorModeValue struct{ p *ColorMode }

func (c *colorModeValue) String() string {
	if c.p == nil {
		return ""
	}
	return string(*c.p)
}

func (c *colorModeValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "auto":
		*c.p = ColorAuto
	case "always":
		*c.p = ColorAlways
	case "never":
		*c.p = ColorNever
	default:
		return fmt.Errorf("invalid color mode %q (use 'auto', 'always' or 'never')", s)
	}
	return nil
}
