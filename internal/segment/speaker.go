package segment

import (
	"log/slog"
	"sync"
	"time"

	"github.com/voicekit/voice-capture-service/internal/audio"
)

// SpeakerState represents the segmentation state of one speaker
type SpeakerState int

const (
	// StateSilent means the speaker is not currently talking
	StateSilent SpeakerState = iota
	// StateSpeaking means an utterance is being collected
	StateSpeaking
)

// String returns the state name
func (s SpeakerState) String() string {
	switch s {
	case StateSilent:
		return "silent"
	case StateSpeaking:
		return "speaking"
	default:
		return "unknown"
	}
}

// SpeakerInfo represents speaker information for API responses
type SpeakerInfo struct {
	ID             string    `json:"id"`
	State          string    `json:"state"`
	FramesReceived uint64    `json:"frames_received"`
	FramesDropped  uint64    `json:"frames_dropped"`
	FramesBuffered int       `json:"frames_buffered"`
	Utterances     uint64    `json:"utterances"`
	Discarded      uint64    `json:"discarded"`
	LastActive     time.Time `json:"last_active"`
}

// speaker holds the segmentation state machine for one speaker. All
// state below the channel fields is owned by the speaker's goroutine
// and guarded by mu only for snapshot reads.
type speaker struct {
	id     string
	frames chan []byte
	done   chan struct{}

	mu         sync.Mutex
	state      SpeakerState
	frameCount uint64
	silenceRun int
	buffer     [][]byte
	utterances uint64
	discarded  uint64
	dropped    uint64
	lastActive time.Time
}

func newSpeaker(id string, queueSize int) *speaker {
	return &speaker{
		id:         id,
		frames:     make(chan []byte, queueSize),
		done:       make(chan struct{}),
		state:      StateSilent,
		lastActive: time.Now(),
	}
}

// run consumes the speaker's frame queue until the channel is closed.
// It is the only goroutine that mutates the state machine.
func (s *speaker) run(e *Engine) {
	defer close(s.done)

	for frame := range s.frames {
		s.process(e, frame)
	}
}

// process advances the state machine by one frame. During speech every
// frame is buffered; classification runs only on every Nth frame. The
// transition frame that starts an utterance is captured exactly once.
func (s *speaker) process(e *Engine, frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frameCount++
	s.lastActive = time.Now()

	captured := false
	if s.state == StateSpeaking {
		s.buffer = append(s.buffer, frame)
		captured = true
	}

	if s.frameCount%uint64(e.config.DecimationInterval) != 0 {
		return
	}

	mono := audio.DownmixStereo(frame)
	isSpeech := e.classifier.Classify(mono)
	if e.metrics != nil {
		e.metrics.RecordClassifierCheck(isSpeech)
	}

	if isSpeech {
		if s.state == StateSilent {
			s.state = StateSpeaking
			if e.logger != nil {
				e.logger.Debug("Speech started",
					slog.String("speaker_id", s.id),
					slog.Uint64("frame", s.frameCount),
				)
			}
		}
		if !captured {
			s.buffer = append(s.buffer, frame)
		}
		s.silenceRun = 0
		return
	}

	if s.state == StateSpeaking {
		s.silenceRun++
		if s.silenceRun >= e.config.SilenceChecks() {
			s.closeUtteranceLocked(e, false)
			s.state = StateSilent
			s.silenceRun = 0
		}
	}
}

// closeUtteranceLocked finalizes or discards the buffered frames and
// clears the buffer. Forced closes bypass the minimum speech gate.
// Caller must hold s.mu.
func (s *speaker) closeUtteranceLocked(e *Engine, forced bool) {
	frames := s.buffer
	s.buffer = nil

	if len(frames) == 0 {
		return
	}

	if !forced && len(frames) < e.config.MinSpeechFrames() {
		s.discarded++
		if e.metrics != nil {
			e.metrics.RecordUtteranceDiscarded()
		}
		if e.logger != nil {
			e.logger.Debug("Utterance below minimum speech duration, discarding",
				slog.String("speaker_id", s.id),
				slog.Int("frames", len(frames)),
				slog.Int("min_frames", e.config.MinSpeechFrames()),
			)
		}
		return
	}

	s.utterances++
	if e.metrics != nil {
		e.metrics.RecordUtteranceFinalized()
		if forced {
			e.metrics.RecordForcedFlush()
		}
	}

	if e.logger != nil {
		e.logger.Info("Utterance closed",
			slog.String("speaker_id", s.id),
			slog.Int("frames", len(frames)),
			slog.Bool("forced", forced),
		)
	}

	e.finalizer.Finalize(s.id, frames, forced)
}

// flushPending force-closes whatever is buffered, bypassing the gate.
// Called after the speaker goroutine has exited.
func (s *speaker) flushPending(e *Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeUtteranceLocked(e, true)
	s.state = StateSilent
	s.silenceRun = 0
}

// info returns a snapshot of the speaker state
func (s *speaker) info() SpeakerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SpeakerInfo{
		ID:             s.id,
		State:          s.state.String(),
		FramesReceived: s.frameCount,
		FramesDropped:  s.dropped,
		FramesBuffered: len(s.buffer),
		Utterances:     s.utterances,
		Discarded:      s.discarded,
		LastActive:     s.lastActive,
	}
}
