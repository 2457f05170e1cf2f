// Package report writes a machine-readable record of a conversion run.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/backmassage/cag2mp4/internal/pipeline"
)

// Report is the JSON document written by Write.
type Report struct {
	RunID       string    `json:"run_id"`
	Root        string    `json:"root"`
	Started     time.Time `json:"started"`
	Finished    time.Time `json:"finished"`
	DryRun      bool      `json:"dry_run,omitempty"`
	Interrupted bool      `json:"interrupted,omitempty"`
	Summary     Counts    `json:"summary"`
	Items       []Item    `json:"items"`
}

// Counts is the run tally.
type Counts struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Item is one source file's outcome.
type Item struct {
	Source     string  `json:"source"`
	Status     string  `json:"status"` // "converted" or "failed"
	Output     string  `json:"output,omitempty"`
	Layout     string  `json:"layout,omitempty"`
	Frames     int     `json:"frames,omitempty"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	Padded     bool    `json:"padded,omitempty"`
	Bytes      int64   `json:"bytes,omitempty"`
	DurationMS float64 `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
}

// Build converts a run summary to a Report. Items keep the summary's
// processing order.
func Build(s pipeline.Summary) Report {
	r := Report{
		RunID:       s.RunID,
		Root:        s.Root,
		Started:     s.Started.UTC(),
		Finished:    s.Finished.UTC(),
		DryRun:      s.DryRun,
		Interrupted: s.Interrupted,
		Summary: Counts{
			Total:     s.Total,
			Processed: s.Processed(),
			Succeeded: s.Succeeded,
			Failed:    s.Failed,
		},
		Items: make([]Item, 0, len(s.Results)),
	}
	for _, res := range s.Results {
		it := Item{
			Source:     res.Source,
			Status:     "converted",
			Output:     res.Output,
			Layout:     res.Layout,
			Frames:     res.Frames,
			Width:      res.Width,
			Height:     res.Height,
			Padded:     res.Padded,
			Bytes:      res.Bytes,
			DurationMS: float64(res.Duration.Microseconds()) / 1000,
		}
		if res.Err != nil {
			it.Status = "failed"
			it.Error = res.Err.Error()
		}
		r.Items = append(r.Items, it)
	}
	return r
}

// Write builds the report for s and writes it to path as indented JSON.
// The file is written to a temporary sibling and renamed into place.
func Write(path string, s pipeline.Summary) error {
	data, err := json.MarshalIndent(Build(s), "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*.json")
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
