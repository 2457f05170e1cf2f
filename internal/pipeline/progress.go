package pipeline

import (
	"context"
	"fmt"
)

// State is the orchestrator's position in a run.
type State int

const (
	StateIdle State = iota
	StateDiscovering
	StateDecoding
	StateEncoding
	StateVerifying
	StateRecorded
	StateDone
	StateAborted // Configuration or discovery error; nothing was converted.
)

var stateNames = [...]string{"idle", "discovering", "decoding", "encoding", "verifying", "recorded", "done", "aborted"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Progress is an immutable snapshot sent after discovery, after every file
// and once at the end of a run.
type Progress struct {
	State     State
	Processed int
	Total     int
	Succeeded int
	Failed    int
	Status    string
	Result    *ConversionResult // Set for StateRecorded only.
}

// Status strings shown to the caller.
const (
	statusNoRoot  = "Please select a directory"
	statusNoFiles = "No source files to convert"
)

func processingStatus(processed, total, succeeded int) string {
	return fmt.Sprintf("Processing: %d/%d (succeeded: %d)", processed, total, succeeded)
}

func doneStatus(s *Summary) string {
	if s.Interrupted {
		return fmt.Sprintf("Interrupted after %d/%d (succeeded: %d)", s.Processed(), s.Total, s.Succeeded)
	}
	return fmt.Sprintf("Done! %d/%d files converted", s.Succeeded, s.Total)
}

// progressBuffer bounds the number of undelivered snapshots.
const progressBuffer = 8

// Task is a run executing on its own goroutine.
type Task struct {
	progress chan Progress
	done     chan struct{}
	summary  Summary
	err      error
}

// Start runs r.Run(ctx, root) on a new goroutine. The caller should drain
// Progress (or call Wait, which drains it) so the run is not held up.
func (r *Runner) Start(ctx context.Context, root string) *Task {
	t := &Task{
		progress: make(chan Progress, progressBuffer),
		done:     make(chan struct{}),
	}
	go func() {
		defer close(t.done)
		t.summary, t.err = r.run(ctx, root, func(p Progress) { t.progress <- p })
		close(t.progress)
	}()
	return t
}

// Progress returns the snapshot channel. It is closed when the run ends.
func (t *Task) Progress() <-chan Progress { return t.progress }

// Wait discards any undelivered snapshots, blocks until the run ends and
// returns its summary and abort error (nil unless the run never started
// converting).
func (t *Task) Wait() (Summary, error) {
	for range t.progress {
	}
	<-t.done
	return t.summary, t.err
}
