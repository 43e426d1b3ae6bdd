package sink

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voicekit/voice-capture-service/internal/audio"
	"github.com/voicekit/voice-capture-service/internal/metrics"
)

// Config holds the artifact writer parameters
type Config struct {
	Directory  string
	SampleRate int
	Channels   int
	QueueSize  int
	Workers    int
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.Directory == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels < 1 {
		return fmt.Errorf("channels must be at least 1, got %d", c.Channels)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive, got %d", c.QueueSize)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	return nil
}

// job is one utterance waiting to be written
type job struct {
	id        string
	speakerID string
	frames    [][]byte
	forced    bool
	closedAt  time.Time
}

// WriterStats represents artifact writer statistics
type WriterStats struct {
	Written      uint64 `json:"written"`
	Errors       uint64 `json:"errors"`
	BytesWritten uint64 `json:"bytes_written"`
	QueueLength  int    `json:"queue_length"`
}

// Writer persists utterances as timestamped WAV files under a single
// output directory. Finalize blocks when the queue is full so closed
// utterances are never silently lost.
type Writer struct {
	config  *Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	jobs     chan job
	wg       sync.WaitGroup
	stopOnce sync.Once

	mu           sync.Mutex
	written      uint64
	errors       uint64
	bytesWritten uint64
}

// NewWriter creates the output directory if needed and starts the
// worker pool.
func NewWriter(config *Config, logger *slog.Logger, m *metrics.Metrics) (*Writer, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sink config: %w", err)
	}

	if err := os.MkdirAll(config.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	w := &Writer{
		config:  config,
		logger:  logger,
		metrics: m,
		jobs:    make(chan job, config.QueueSize),
	}

	for i := 0; i < config.Workers; i++ {
		w.wg.Add(1)
		go w.worker(i)
	}

	return w, nil
}

// Finalize queues an utterance for persistence. Empty utterances are
// dropped. Implements the segmentation engine's Finalizer interface.
func (w *Writer) Finalize(speakerID string, frames [][]byte, forced bool) {
	if len(frames) == 0 {
		return
	}

	w.jobs <- job{
		id:        uuid.New().String(),
		speakerID: speakerID,
		frames:    frames,
		forced:    forced,
		closedAt:  time.Now(),
	}

	if w.metrics != nil {
		w.metrics.SetSinkQueueSize(len(w.jobs))
	}
}

// Close drains the queue, waits for in-flight writes and stops the
// workers. Safe to call more than once.
func (w *Writer) Close() {
	w.stopOnce.Do(func() {
		close(w.jobs)
		w.wg.Wait()

		if w.logger != nil {
			stats := w.GetStats()
			w.logger.Info("Artifact writer stopped",
				slog.Uint64("written", stats.Written),
				slog.Uint64("errors", stats.Errors),
			)
		}
	})
}

// GetStats returns current writer statistics
func (w *Writer) GetStats() WriterStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return WriterStats{
		Written:      w.written,
		Errors:       w.errors,
		BytesWritten: w.bytesWritten,
		QueueLength:  len(w.jobs),
	}
}

func (w *Writer) worker(id int) {
	defer w.wg.Done()

	for j := range w.jobs {
		if w.metrics != nil {
			w.metrics.SetSinkQueueSize(len(w.jobs))
		}
		w.write(j)
	}
}

// write concatenates the utterance frames, encodes the WAV container
// and moves the finished file into place.
func (w *Writer) write(j job) {
	var total int
	for _, frame := range j.frames {
		total += len(frame)
	}

	payload := make([]byte, 0, total)
	for _, frame := range j.frames {
		payload = append(payload, frame...)
	}

	data, err := audio.EncodeWAV(payload, w.config.SampleRate, w.config.Channels)
	if err != nil {
		w.recordError(j, fmt.Errorf("failed to encode WAV: %w", err))
		return
	}

	path, err := w.writeAtomic(j, data)
	if err != nil {
		w.recordError(j, err)
		return
	}

	bytesPerSecond := w.config.SampleRate * w.config.Channels * audio.BytesPerSample
	duration := time.Duration(float64(len(payload)) / float64(bytesPerSecond) * float64(time.Second))

	w.mu.Lock()
	w.written++
	w.bytesWritten += uint64(len(data))
	w.mu.Unlock()

	if w.metrics != nil {
		w.metrics.RecordArtifactWritten(duration.Seconds(), len(data))
	}

	if w.logger != nil {
		w.logger.Info("Utterance saved",
			slog.String("utterance_id", j.id),
			slog.String("speaker_id", j.speakerID),
			slog.String("file", filepath.Base(path)),
			slog.Duration("duration", duration),
			slog.Int("size_bytes", len(data)),
			slog.Bool("forced", j.forced),
		)
	}
}

// writeAtomic writes the artifact to a temporary file in the output
// directory and links it to its final name. The link claims the name
// exclusively, so two workers finishing same-second utterances for one
// speaker can never overwrite each other; collisions take the first
// free numeric suffix.
func (w *Writer) writeAtomic(j job, data []byte) (string, error) {
	tmp, err := os.CreateTemp(w.config.Directory, ".utterance-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	base := fmt.Sprintf("user_%s_%s", j.speakerID, j.closedAt.Format("20060102_150405"))
	path := filepath.Join(w.config.Directory, base+".wav")
	for n := 1; ; n++ {
		err := os.Link(tmpPath, path)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			os.Remove(tmpPath)
			return "", fmt.Errorf("failed to link artifact: %w", err)
		}
		path = filepath.Join(w.config.Directory, fmt.Sprintf("%s_%d.wav", base, n))
	}

	os.Remove(tmpPath)

	return path, nil
}

func (w *Writer) recordError(j job, err error) {
	w.mu.Lock()
	w.errors++
	w.mu.Unlock()

	if w.metrics != nil {
		w.metrics.RecordStorageError()
	}

	if w.logger != nil {
		w.logger.Error("Failed to save utterance",
			slog.String("utterance_id", j.id),
			slog.String("speaker_id", j.speakerID),
			slog.String("error", err.Error()),
		)
	}
}
