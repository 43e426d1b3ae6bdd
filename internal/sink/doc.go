// Package sink persists finalized utterances as WAV files. Writes run
// on a small worker pool and are atomic: each artifact is written to a
// temporary file in the target directory and renamed into place, so a
// crash never leaves a truncated recording behind.
package sink
