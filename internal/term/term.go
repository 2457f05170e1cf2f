// Package term holds the ANSI color codes used by the logger and the banner.
// The codes are empty strings until [Configure] enables them, so callers
// concatenate unconditionally.
package term

import (
	"os"
	"strings"

	"github.com/backmassage/cag2mp4/internal/config"
)

// ANSI color codes.
var (
	Red     = ""
	Green   = ""
	Yellow  = ""
	Blue    = ""
	Cyan    = ""
	Magenta = ""
	NC      = ""
)

// Configure sets the color codes for mode. ColorAuto colors only a stdout
// terminal, and NO_COLOR or TERM=dumb turn it off.
func Configure(mode config.ColorMode) {
	on := colorEnabled(mode, IsTerminal(os.Stdout), os.Getenv)
	set := func(code string) string {
		if on {
			return "\033[" + code + "m"
		}
		return ""
	}
	Red, Green, Yellow = set("1;91"), set("1;92"), set("1;93")
	Blue, Magenta, Cyan = set("1;94"), set("1;95"), set("1;96")
	NC = set("0")
}

func colorEnabled(mode config.ColorMode, tty bool, getenv func(string) string) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	return tty && getenv("NO_COLOR") == "" && !strings.EqualFold(getenv("TERM"), "dumb")
}

// IsTerminal reports whether f is a character device.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
