package classifier

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/voicekit/voice-capture-service/internal/audio"
	"github.com/voicekit/voice-capture-service/internal/metrics"
)

// Detector is a frame-level speech detector. Detect reports whether the
// given mono 16-bit PCM window contains speech. Implementations may keep
// internal state and must be safe for concurrent use.
type Detector interface {
	Detect(samples []int16) (bool, error)
}

// Adapter wraps a Detector with the input contract the segmentation
// engine relies on: input shorter than one exact classifier frame is
// non-speech without invoking the detector, longer input is truncated to
// the exact frame, and any detector error resolves to non-speech.
type Adapter struct {
	detector   Detector
	frameBytes int
	logger     *slog.Logger
	metrics    *metrics.Metrics

	// Statistics
	mu         sync.RWMutex
	checks     uint64
	speech     uint64
	undersized uint64
	faults     uint64
}

// AdapterStats represents classification statistics
type AdapterStats struct {
	Checks     uint64 `json:"checks"`
	Speech     uint64 `json:"speech"`
	Undersized uint64 `json:"undersized"`
	Faults     uint64 `json:"faults"`
}

// NewAdapter creates a classifier adapter for the session audio format.
// The detector is fed exactly sampleRate*frameDurationMs/1000 mono samples
// per check.
func NewAdapter(detector Detector, sampleRate, frameDurationMs int, logger *slog.Logger, m *metrics.Metrics) (*Adapter, error) {
	if detector == nil {
		return nil, fmt.Errorf("detector cannot be nil")
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	if frameDurationMs <= 0 {
		return nil, fmt.Errorf("frame duration must be positive, got %d ms", frameDurationMs)
	}

	return &Adapter{
		detector:   detector,
		frameBytes: sampleRate * frameDurationMs / 1000 * audio.BytesPerSample,
		logger:     logger,
		metrics:    m,
	}, nil
}

// FrameBytes returns the exact mono frame size in bytes required per check.
func (a *Adapter) FrameBytes() int {
	return a.frameBytes
}

// Classify reports whether the mono PCM frame contains speech. It never
// fails: undersized input and detector errors both resolve to false.
func (a *Adapter) Classify(mono []byte) bool {
	if len(mono) < a.frameBytes {
		a.mu.Lock()
		a.checks++
		a.undersized++
		a.mu.Unlock()

		if a.metrics != nil {
			a.metrics.RecordClassifierUndersized()
		}
		return false
	}

	samples := audio.SamplesFromBytes(mono[:a.frameBytes])

	isSpeech, err := a.detector.Detect(samples)
	if err != nil {
		a.mu.Lock()
		a.checks++
		a.faults++
		a.mu.Unlock()

		if a.metrics != nil {
			a.metrics.RecordClassifierFault()
		}

		if a.logger != nil {
			a.logger.Debug("Speech detector fault, treating frame as non-speech",
				slog.String("error", err.Error()),
			)
		}
		return false
	}

	a.mu.Lock()
	a.checks++
	if isSpeech {
		a.speech++
	}
	a.mu.Unlock()

	return isSpeech
}

// GetStats returns current classification statistics
func (a *Adapter) GetStats() AdapterStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return AdapterStats{
		Checks:     a.checks,
		Speech:     a.speech,
		Undersized: a.undersized,
		Faults:     a.faults,
	}
}
