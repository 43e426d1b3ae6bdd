package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	HTTP       HTTPConfig       `yaml:"http"`
	Audio      AudioConfig      `yaml:"audio"`
	Segmenter  SegmenterConfig  `yaml:"segmenter"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds the UDP ingest settings
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	BufferSize      int    `yaml:"buffer_size"`
	QueueSize       int    `yaml:"queue_size"`
	ReadTimeoutMs   int    `yaml:"read_timeout_ms"`
	MaxPacketSize   int    `yaml:"max_packet_size"`
	ShutdownTimeout int    `yaml:"shutdown_timeout_sec"`
}

// HTTPConfig holds the monitoring API settings
type HTTPConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
}

// AudioConfig describes the inbound PCM stream format
type AudioConfig struct {
	SampleRate      int `yaml:"sample_rate"`
	Channels        int `yaml:"channels"`
	FrameDurationMs int `yaml:"frame_duration_ms"`
}

// SegmenterConfig holds the utterance segmentation parameters
type SegmenterConfig struct {
	DecimationInterval  int `yaml:"decimation_interval"`
	SilenceThresholdMs  int `yaml:"silence_threshold_ms"`
	MinSpeechDurationMs int `yaml:"min_speech_duration_ms"`
	SpeakerQueueSize    int `yaml:"speaker_queue_size"`
}

// ClassifierConfig selects and tunes the speech detector backend
type ClassifierConfig struct {
	Engine         string  `yaml:"engine"` // "energy" or "silero"
	Aggressiveness int     `yaml:"aggressiveness"`
	ModelPath      string  `yaml:"model_path"`
	Threshold      float32 `yaml:"threshold"`
}

// OutputConfig holds the artifact storage settings
type OutputConfig struct {
	Directory string `yaml:"directory"`
	QueueSize int    `yaml:"queue_size"`
	Workers   int    `yaml:"workers"`
}

// LoggingConfig holds the logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
	Output string `yaml:"output"` // "stdout" or a file path
}

// Load reads and validates configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            9500,
			BufferSize:      1048576,
			QueueSize:       1000,
			ReadTimeoutMs:   1000,
			MaxPacketSize:   65507,
			ShutdownTimeout: 30,
		},
		HTTP: HTTPConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeoutSec:  10,
			WriteTimeoutSec: 10,
		},
		Audio: AudioConfig{
			SampleRate:      48000,
			Channels:        2,
			FrameDurationMs: 20,
		},
		Segmenter: SegmenterConfig{
			DecimationInterval:  5,
			SilenceThresholdMs:  1000,
			MinSpeechDurationMs: 500,
			SpeakerQueueSize:    256,
		},
		Classifier: ClassifierConfig{
			Engine:         "energy",
			Aggressiveness: 2,
			Threshold:      0.5,
		},
		Output: OutputConfig{
			Directory: "./recordings",
			QueueSize: 64,
			Workers:   2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Validate checks all sections and their cross-section constraints
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	if err := c.Segmenter.Validate(); err != nil {
		return fmt.Errorf("segmenter: %w", err)
	}
	if err := c.Classifier.Validate(); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	// The silence threshold must cover at least one decimated check.
	minSilence := c.Audio.FrameDurationMs * c.Segmenter.DecimationInterval
	if c.Segmenter.SilenceThresholdMs < minSilence {
		return fmt.Errorf("segmenter: silence_threshold_ms %d is below one decimated check (%d ms)",
			c.Segmenter.SilenceThresholdMs, minSilence)
	}

	return nil
}

// Validate checks the UDP server settings
func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be positive, got %d", c.BufferSize)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be positive, got %d", c.QueueSize)
	}
	if c.ReadTimeoutMs <= 0 {
		return fmt.Errorf("read_timeout_ms must be positive, got %d", c.ReadTimeoutMs)
	}
	if c.MaxPacketSize <= 0 || c.MaxPacketSize > 65507 {
		return fmt.Errorf("max_packet_size must be between 1 and 65507, got %d", c.MaxPacketSize)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout_sec must be positive, got %d", c.ShutdownTimeout)
	}
	return nil
}

// Validate checks the HTTP server settings
func (c *HTTPConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.ReadTimeoutSec <= 0 {
		return fmt.Errorf("read_timeout_sec must be positive, got %d", c.ReadTimeoutSec)
	}
	if c.WriteTimeoutSec <= 0 {
		return fmt.Errorf("write_timeout_sec must be positive, got %d", c.WriteTimeoutSec)
	}
	return nil
}

// Validate checks the stream format settings
func (c *AudioConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels != 2 {
		return fmt.Errorf("channels must be 2, the gateway feed is interleaved stereo, got %d", c.Channels)
	}
	switch c.FrameDurationMs {
	case 10, 20, 30:
	default:
		return fmt.Errorf("frame_duration_ms must be 10, 20 or 30, got %d", c.FrameDurationMs)
	}
	return nil
}

// Validate checks the segmentation settings
func (c *SegmenterConfig) Validate() error {
	if c.DecimationInterval <= 0 {
		return fmt.Errorf("decimation_interval must be positive, got %d", c.DecimationInterval)
	}
	if c.SilenceThresholdMs <= 0 {
		return fmt.Errorf("silence_threshold_ms must be positive, got %d", c.SilenceThresholdMs)
	}
	if c.MinSpeechDurationMs < 0 {
		return fmt.Errorf("min_speech_duration_ms cannot be negative, got %d", c.MinSpeechDurationMs)
	}
	if c.SpeakerQueueSize <= 0 {
		return fmt.Errorf("speaker_queue_size must be positive, got %d", c.SpeakerQueueSize)
	}
	return nil
}

// Validate checks the classifier settings
func (c *ClassifierConfig) Validate() error {
	switch c.Engine {
	case "energy":
		if c.Aggressiveness < 0 || c.Aggressiveness > 3 {
			return fmt.Errorf("aggressiveness must be between 0 and 3, got %d", c.Aggressiveness)
		}
	case "silero":
		if c.ModelPath == "" {
			return fmt.Errorf("model_path is required for the silero engine")
		}
		if c.Threshold < 0 || c.Threshold > 1 {
			return fmt.Errorf("threshold must be between 0 and 1, got %f", c.Threshold)
		}
	default:
		return fmt.Errorf("engine must be \"energy\" or \"silero\", got %q", c.Engine)
	}
	return nil
}

// Validate checks the artifact storage settings
func (c *OutputConfig) Validate() error {
	if c.Directory == "" {
		return fmt.Errorf("directory cannot be empty")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be positive, got %d", c.QueueSize)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	return nil
}

// Validate checks the logging settings
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be debug, info, warn or error, got %q", c.Level)
	}
	switch c.Format {
	case "json", "text":
	default:
		return fmt.Errorf("format must be json or text, got %q", c.Format)
	}
	if c.Output == "" {
		return fmt.Errorf("output cannot be empty, use \"stdout\" or a file path")
	}
	return nil
}

// GetListenAddr returns the UDP listen address
func (c *ServerConfig) GetListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetReadTimeout returns the UDP read timeout as a duration
func (c *ServerConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

// GetShutdownTimeout returns the shutdown timeout as a duration
func (c *ServerConfig) GetShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

// GetListenAddr returns the HTTP listen address
func (c *HTTPConfig) GetListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetReadTimeout returns the HTTP read timeout as a duration
func (c *HTTPConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSec) * time.Second
}

// GetWriteTimeout returns the HTTP write timeout as a duration
func (c *HTTPConfig) GetWriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSec) * time.Second
}

// GetFrameBytes returns the expected stereo frame size in bytes
func (c *AudioConfig) GetFrameBytes() int {
	return c.SampleRate * c.FrameDurationMs / 1000 * c.Channels * 2
}
