package classifier

import (
	"fmt"
	"sync"

	"github.com/streamer45/silero-vad-go/speech"
)

// SileroDetector is a speech detector backed by the Silero VAD ONNX
// model. It tracks the streaming speech state across frames: a frame is
// speech from the model's start event until its matching end event.
type SileroDetector struct {
	mu       sync.Mutex
	detector *speech.Detector
	speaking bool
}

// NewSileroDetector loads the Silero VAD model. The model expects mono
// 16-bit PCM at the configured sample rate; threshold is the speech
// probability cutoff (0-1).
func NewSileroDetector(modelPath string, sampleRate int, threshold float32) (*SileroDetector, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("model path cannot be empty")
	}

	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold must be between 0 and 1, got %f", threshold)
	}

	detector, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:  modelPath,
		SampleRate: sampleRate,
		Threshold:  threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create silero detector: %w", err)
	}

	return &SileroDetector{detector: detector}, nil
}

// Detect feeds one mono frame to the model and reports the streaming
// speech state. Model errors reset the stream state so a corrupt frame
// cannot wedge the detector in a speaking state.
func (d *SileroDetector) Detect(samples []int16) (bool, error) {
	pcm := make([]float32, len(samples))
	for i, sample := range samples {
		pcm[i] = float32(sample) / 32768.0
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	event, err := d.detector.DetectStreamFrame(pcm)
	if err != nil {
		d.detector.Reset()
		d.speaking = false
		return false, fmt.Errorf("silero detection failed: %w", err)
	}

	if event != nil {
		if event.IsStart {
			d.speaking = true
		}
		if event.IsEnd {
			d.speaking = false
		}
	}

	return d.speaking, nil
}

// Close releases the model resources.
func (d *SileroDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.detector.Destroy()
}
