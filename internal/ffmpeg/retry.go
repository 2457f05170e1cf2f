package ffmpeg

// RetryAction identifies which fix was applied (or none).
type RetryAction int

const (
	RetryNone    RetryAction = iota
	RetryPadEven             // Pad odd dimensions to even.
)

const maxAttempts = 2

// RetryState tracks which fallback fixes have been applied across encode
// attempts for a single file.
type RetryState struct {
	Attempt     int
	MaxAttempts int
	PadEven     bool
}

// NewRetryState returns the state for a file's first attempt.
func NewRetryState() *RetryState {
	return &RetryState{MaxAttempts: maxAttempts}
}

// Advance inspects stderr from a failed run and applies the first
// matching fix that has not been applied yet. Returns RetryNone when
// nothing applies or the attempt limit is reached.
func (s *RetryState) Advance(stderr string) RetryAction {
	s.Attempt++
	if s.Attempt >= s.MaxAttempts {
		return RetryNone
	}
	if !s.PadEven && MatchOddDimensions(stderr) {
		s.PadEven = true
		return RetryPadEven
	}
	return RetryNone
}
