package main

import (
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/backmassage/cag2mp4/internal/pipeline"
)

// showProgress renders snapshots from updates as a terminal progress bar
// until the channel closes.
func showProgress(w io.Writer, updates <-chan pipeline.Progress) {
	var bar *progressbar.ProgressBar
	for p := range updates {
		switch p.State {
		case pipeline.StateRecorded:
			if bar == nil {
				bar = newBar(w, p.Total)
			}
			bar.Describe(p.Status)
			_ = bar.Set(p.Processed)
		case pipeline.StateDone:
			if bar != nil {
				bar.Describe(p.Status)
				_ = bar.Finish()
				_, _ = io.WriteString(w, "\n")
			}
		}
	}
}

func newBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "▐",
			BarEnd:        "▌",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetRenderBlankState(true),
	)
}
