// Package classifier provides the frame-level speech/non-speech decision
// used by the segmentation engine. The Adapter enforces the fixed mono
// frame length the detectors require and degrades every detector fault
// to a non-speech result so a transient classifier error never disturbs
// a live stream.
package classifier
