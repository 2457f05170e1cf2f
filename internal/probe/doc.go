// Package probe inspects written videos with ffprobe. A single JSON call
// per file reports the container, the primary video stream and its decoded
// frame count, which is enough to check an encode against the sequence it
// was built from.
package probe
