// Package naming maps source files to output video paths.
//
// A video is written next to its source with the extension swapped. When
// two sources in one run map to the same output (a.dcm and a.DCM on a
// case-sensitive filesystem), [CollisionResolver] hands the later one a
// " - dupN" variant so no conversion overwrites another.
package naming
