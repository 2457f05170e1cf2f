package pipeline

import "time"

// ConversionResult is the outcome of one source file.
type ConversionResult struct {
	Source   string
	Output   string
	Layout   string // "single", "color" or "multi"; empty if decoding failed.
	Frames   int
	Width    int // Stored video size; the frame size plus padding when Padded.
	Height   int
	Padded   bool  // Odd dimensions were padded to even by the encoder.
	Bytes    int64 // Size of the written video; 0 on failure or dry run.
	Duration time.Duration
	Err      error
}

// OK reports whether the file converted.
func (r ConversionResult) OK() bool { return r.Err == nil }

// Summary is the final tally of a run. Total counts discovered files;
// Results holds one entry per attempted file, in discovery order.
type Summary struct {
	RunID       string
	Root        string
	Total       int
	Succeeded   int
	Failed      int
	Interrupted bool
	DryRun      bool
	Results     []ConversionResult
	Started     time.Time
	Finished    time.Time
}

// Processed returns the number of attempted files.
func (s *Summary) Processed() int { return len(s.Results) }

// OutputBytes returns the total size of all written videos.
func (s *Summary) OutputBytes() int64 {
	var n int64
	for _, r := range s.Results {
		n += r.Bytes
	}
	return n
}

// Failures returns the failed results in discovery order.
func (s *Summary) Failures() []ConversionResult {
	var out []ConversionResult
	for _, r := range s.Results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}

func (s *Summary) record(r ConversionResult) {
	s.Results = append(s.Results, r)
	if r.OK() {
		s.Succeeded++
	} else {
		s.Failed++
	}
}
