// Package pipeline discovers source files and converts them one at a time.
//
// A [Runner] walks a root directory, decodes each source into a frame
// sequence, encodes it next to the source, and records a [ConversionResult]
// per file. A failure in one file never stops the run. [Runner.Start] moves
// the run onto its own goroutine and reports [Progress] snapshots over a
// bounded channel, so the caller only ever sees immutable copies.
package pipeline
