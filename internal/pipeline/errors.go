package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRootDir is wrapped by ConfigurationError when no root was given.
	ErrNoRootDir = errors.New("no root directory selected")
	// ErrPanic marks a file whose decoder or encoder panicked.
	ErrPanic = errors.New("recovered panic")
)

// ConfigurationError aborts a run before any file is touched.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// DiscoveryError reports that the root or one of its subdirectories could
// not be traversed. The run aborts with nothing converted.
type DiscoveryError struct {
	Root string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover %s: %v", e.Root, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }
