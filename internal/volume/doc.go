// Package volume turns one decoded source array into an ordered sequence
// of normalized frames.
//
// The array shape is classified once per file into a [Layout]:
//
//   - (H, W)     → SingleFrame: one frame.
//   - (3, H, W)  → ColorFrame: channel-first RGB, converted to BT.601 luma.
//   - (N, H, W)  → MultiFrame: N frames in native index order (N ≠ 3).
//
// Any other rank fails with a [DecodeError] wrapping [ErrUnexpectedShape].
// Every extracted frame goes through [frame.Normalize] before the
// sequence is returned; nothing is streamed to the encoder early.
package volume
