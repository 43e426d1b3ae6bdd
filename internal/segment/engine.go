package segment

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/voicekit/voice-capture-service/internal/audio"
	"github.com/voicekit/voice-capture-service/internal/metrics"
)

// Classifier makes the frame-level speech decision for a mono PCM frame
type Classifier interface {
	Classify(mono []byte) bool
}

// Finalizer receives closed utterances. Forced marks flushes that
// bypassed the minimum speech gate (shutdown or speaker eviction).
type Finalizer interface {
	Finalize(speakerID string, frames [][]byte, forced bool)
}

// Config holds the segmentation parameters
type Config struct {
	SampleRate          int
	Channels            int
	FrameDurationMs     int
	DecimationInterval  int
	SilenceThresholdMs  int
	MinSpeechDurationMs int
	QueueSize           int
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels != 2 {
		return fmt.Errorf("channels must be 2 for stereo input, got %d", c.Channels)
	}
	if c.FrameDurationMs <= 0 {
		return fmt.Errorf("frame duration must be positive, got %d ms", c.FrameDurationMs)
	}
	if c.DecimationInterval <= 0 {
		return fmt.Errorf("decimation interval must be positive, got %d", c.DecimationInterval)
	}
	if c.SilenceThresholdMs < c.FrameDurationMs*c.DecimationInterval {
		return fmt.Errorf("silence threshold %d ms is below one decimated check (%d ms)",
			c.SilenceThresholdMs, c.FrameDurationMs*c.DecimationInterval)
	}
	if c.MinSpeechDurationMs < 0 {
		return fmt.Errorf("minimum speech duration cannot be negative, got %d ms", c.MinSpeechDurationMs)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive, got %d", c.QueueSize)
	}
	return nil
}

// SilenceChecks returns how many consecutive silent classification
// checks close an utterance.
func (c *Config) SilenceChecks() int {
	return c.SilenceThresholdMs / c.FrameDurationMs / c.DecimationInterval
}

// MinSpeechFrames returns the minimum buffered frame count for an
// utterance to survive a normal close.
func (c *Config) MinSpeechFrames() int {
	return c.MinSpeechDurationMs / c.FrameDurationMs
}

// FrameBytes returns the expected stereo frame size in bytes
func (c *Config) FrameBytes() int {
	return c.SampleRate * c.FrameDurationMs / 1000 * c.Channels * audio.BytesPerSample
}

// EngineStats represents aggregate engine statistics
type EngineStats struct {
	ActiveSpeakers  int    `json:"active_speakers"`
	SpeakersCreated uint64 `json:"speakers_created"`
	SpeakersRemoved uint64 `json:"speakers_removed"`
	FramesRouted    uint64 `json:"frames_routed"`
	FramesIgnored   uint64 `json:"frames_ignored"`
	FramesDropped   uint64 `json:"frames_dropped"`
}

// Engine routes PCM frames to per-speaker segmentation state machines.
// Each speaker gets a bounded queue and a dedicated goroutine, so one
// slow speaker never blocks the others and per-speaker frame order is
// preserved.
type Engine struct {
	config     *Config
	classifier Classifier
	finalizer  Finalizer
	logger     *slog.Logger
	metrics    *metrics.Metrics

	mu       sync.RWMutex
	speakers map[string]*speaker
	closed   bool
	wg       sync.WaitGroup
	stopOnce sync.Once

	statsMu         sync.Mutex
	speakersCreated uint64
	speakersRemoved uint64
	framesRouted    uint64
	framesIgnored   uint64
	framesDropped   uint64
}

// NewEngine creates a segmentation engine
func NewEngine(config *Config, classifier Classifier, finalizer Finalizer, logger *slog.Logger, m *metrics.Metrics) (*Engine, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid segmenter config: %w", err)
	}
	if classifier == nil {
		return nil, fmt.Errorf("classifier cannot be nil")
	}
	if finalizer == nil {
		return nil, fmt.Errorf("finalizer cannot be nil")
	}

	return &Engine{
		config:     config,
		classifier: classifier,
		finalizer:  finalizer,
		logger:     logger,
		metrics:    m,
		speakers:   make(map[string]*speaker),
	}, nil
}

// AddSpeaker registers a speaker and starts its state machine. Adding
// an already tracked speaker is a no-op.
func (e *Engine) AddSpeaker(speakerID string) {
	if speakerID == "" {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	if _, exists := e.speakers[speakerID]; exists {
		return
	}

	e.addSpeakerLocked(speakerID)
}

// addSpeakerLocked creates and starts a speaker. Caller must hold e.mu.
func (e *Engine) addSpeakerLocked(speakerID string) *speaker {
	sp := newSpeaker(speakerID, e.config.QueueSize)
	e.speakers[speakerID] = sp

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		sp.run(e)
	}()

	e.statsMu.Lock()
	e.speakersCreated++
	e.statsMu.Unlock()

	if e.metrics != nil {
		e.metrics.RecordSpeakerCreated()
		e.metrics.SetActiveSpeakers(len(e.speakers))
	}

	if e.logger != nil {
		e.logger.Info("Speaker added",
			slog.String("speaker_id", speakerID),
		)
	}

	return sp
}

// Route delivers one stereo frame to the speaker's state machine,
// creating the speaker on first contact. Empty frames and unknown
// engine state are ignored; a full speaker queue drops the frame.
func (e *Engine) Route(speakerID string, frame []byte) {
	if speakerID == "" || len(frame) == 0 {
		e.statsMu.Lock()
		e.framesIgnored++
		e.statsMu.Unlock()
		if e.metrics != nil {
			e.metrics.RecordFrameIgnored()
		}
		return
	}

	// The enqueue happens under the lock that guards channel closes, so
	// a shutdown or eviction can never close a channel mid-send.
	e.mu.RLock()
	if !e.closed {
		if sp, exists := e.speakers[speakerID]; exists {
			e.enqueue(sp, frame)
			e.mu.RUnlock()
			return
		}
	}
	closed := e.closed
	e.mu.RUnlock()

	if closed {
		e.statsMu.Lock()
		e.framesIgnored++
		e.statsMu.Unlock()
		if e.metrics != nil {
			e.metrics.RecordFrameIgnored()
		}
		return
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()

		e.statsMu.Lock()
		e.framesIgnored++
		e.statsMu.Unlock()
		if e.metrics != nil {
			e.metrics.RecordFrameIgnored()
		}
		return
	}
	sp, exists := e.speakers[speakerID]
	if !exists {
		sp = e.addSpeakerLocked(speakerID)
	}
	e.enqueue(sp, frame)
	e.mu.Unlock()
}

// enqueue performs the non-blocking send to a speaker queue. Caller
// must hold e.mu (read or write).
func (e *Engine) enqueue(sp *speaker, frame []byte) {
	select {
	case sp.frames <- frame:
		e.statsMu.Lock()
		e.framesRouted++
		e.statsMu.Unlock()
		if e.metrics != nil {
			e.metrics.RecordFrameRouted()
		}
	default:
		sp.mu.Lock()
		sp.dropped++
		sp.mu.Unlock()

		e.statsMu.Lock()
		e.framesDropped++
		e.statsMu.Unlock()
		if e.metrics != nil {
			e.metrics.RecordFrameDropped()
		}

		if e.logger != nil {
			e.logger.Warn("Speaker queue full, dropping frame",
				slog.String("speaker_id", sp.id),
			)
		}
	}
}

// RemoveSpeaker evicts a speaker, drains its queue and force-flushes
// any buffered audio. Removing an unknown speaker is a no-op.
func (e *Engine) RemoveSpeaker(speakerID string) {
	e.mu.Lock()
	sp, exists := e.speakers[speakerID]
	if !exists || e.closed {
		e.mu.Unlock()
		return
	}
	delete(e.speakers, speakerID)
	remaining := len(e.speakers)
	close(sp.frames)
	e.mu.Unlock()

	<-sp.done
	sp.flushPending(e)

	e.statsMu.Lock()
	e.speakersRemoved++
	e.statsMu.Unlock()

	if e.metrics != nil {
		e.metrics.RecordSpeakerRemoved()
		e.metrics.SetActiveSpeakers(remaining)
	}

	if e.logger != nil {
		e.logger.Info("Speaker removed",
			slog.String("speaker_id", speakerID),
		)
	}
}

// Shutdown stops all speaker state machines, waits for queued frames
// to drain and force-flushes every buffer. Safe to call more than once.
func (e *Engine) Shutdown() {
	e.stopOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		remaining := make([]*speaker, 0, len(e.speakers))
		for _, sp := range e.speakers {
			remaining = append(remaining, sp)
			close(sp.frames)
		}
		e.speakers = make(map[string]*speaker)
		e.mu.Unlock()

		e.wg.Wait()

		for _, sp := range remaining {
			sp.flushPending(e)
		}

		if e.metrics != nil {
			e.metrics.SetActiveSpeakers(0)
		}

		if e.logger != nil {
			e.logger.Info("Segmentation engine stopped",
				slog.Int("speakers_flushed", len(remaining)),
			)
		}
	})
}

// Speaker returns information about one speaker
func (e *Engine) Speaker(speakerID string) (SpeakerInfo, bool) {
	e.mu.RLock()
	sp, exists := e.speakers[speakerID]
	e.mu.RUnlock()

	if !exists {
		return SpeakerInfo{}, false
	}
	return sp.info(), true
}

// Speakers returns information about all tracked speakers
func (e *Engine) Speakers() []SpeakerInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()

	infos := make([]SpeakerInfo, 0, len(e.speakers))
	for _, sp := range e.speakers {
		infos = append(infos, sp.info())
	}
	return infos
}

// SpeakerCount returns the number of tracked speakers
func (e *Engine) SpeakerCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.speakers)
}

// GetStats returns aggregate engine statistics
func (e *Engine) GetStats() EngineStats {
	count := e.SpeakerCount()

	e.statsMu.Lock()
	defer e.statsMu.Unlock()

	return EngineStats{
		ActiveSpeakers:  count,
		SpeakersCreated: e.speakersCreated,
		SpeakersRemoved: e.speakersRemoved,
		FramesRouted:    e.framesRouted,
		FramesIgnored:   e.framesIgnored,
		FramesDropped:   e.framesDropped,
	}
}
