package display

import (
	"fmt"
	"io"

	"github.com/backmassage/cag2mp4/internal/term"
)

// PrintBanner writes the ASCII art banner and version to w; bold magenta
// when colors are enabled.
func PrintBanner(w io.Writer, version string) {
	if term.Magenta != "" {
		fmt.Fprint(w, "\033[1;95m")
	}
	fmt.Fprint(w, `                 ____                 _  _
  ___ __ _  __ _|___ \ _ __ ___  _ __ | || |
 / __/ _`+"`"+` |/ _`+"`"+` | __) | '_ `+"`"+` _ \| '_ \| || |_
| (_| (_| | (_| |/ __/| | | | | | |_) |__   _|
 \___\__,_|\__, |_____|_| |_| |_| .__/   |_|
           |___/                |_|
`)
	if term.Magenta != "" {
		fmt.Fprint(w, term.NC)
	}
	fmt.Fprintf(w, "cag2mp4 %s\n\n", version)
}
