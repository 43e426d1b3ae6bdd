// Package segment implements per-speaker utterance segmentation over a
// stereo PCM frame stream. Each tracked speaker runs an independent
// state machine that buffers frames while the speaker talks, closes an
// utterance after a run of silent classification checks, and hands the
// buffered frames to a finalizer. Classification is decimated: only
// every Nth frame is checked, while every frame during speech is
// buffered.
package segment
