// Package ffmpeg encodes frame sequences into MP4 files by piping raw
// 8-bit grayscale frames into an ffmpeg subprocess.
//
// Layout:
//   - builder.go: argument skeleton (rawvideo gray input on stdin, mpeg4
//     with the mp4v tag, yuv420p, faststart MP4).
//   - executor.go: Writer lifecycle (open, one write per frame, finalize)
//     and Encoder, which drives a whole sequence with retry.
//   - errors.go: EncodeError plus stderr classification.
//   - retry.go: one-shot fallback to even-padded dimensions.
package ffmpeg
