// Package audio provides PCM format helpers for the capture pipeline.
// It implements stereo-to-mono downmixing used as classifier input and
// WAV container encoding/decoding for finished utterance artifacts.
package audio
