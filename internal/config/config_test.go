package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config failed validation: %v", err)
	}

	if cfg.Audio.Channels != 2 {
		t.Errorf("Expected 2 channels, got %d", cfg.Audio.Channels)
	}
	if cfg.Segmenter.DecimationInterval != 5 {
		t.Errorf("Expected decimation interval 5, got %d", cfg.Segmenter.DecimationInterval)
	}
	if cfg.Classifier.Engine != "energy" {
		t.Errorf("Expected energy classifier, got %s", cfg.Classifier.Engine)
	}
}

func TestLoad(t *testing.T) {
	content := `
server:
  port: 9600
audio:
  sample_rate: 16000
  frame_duration_ms: 30
segmenter:
  silence_threshold_ms: 1500
output:
  directory: "/tmp/test-recordings"
logging:
  level: "debug"
  format: "text"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9600 {
		t.Errorf("Expected port 9600, got %d", cfg.Server.Port)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.FrameDurationMs != 30 {
		t.Errorf("Expected frame duration 30 ms, got %d", cfg.Audio.FrameDurationMs)
	}
	if cfg.Segmenter.SilenceThresholdMs != 1500 {
		t.Errorf("Expected silence threshold 1500 ms, got %d", cfg.Segmenter.SilenceThresholdMs)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected debug level, got %s", cfg.Logging.Level)
	}

	// Unset fields keep their defaults
	if cfg.HTTP.Port != 8080 {
		t.Errorf("Expected default HTTP port 8080, got %d", cfg.HTTP.Port)
	}
	if cfg.Segmenter.DecimationInterval != 5 {
		t.Errorf("Expected default decimation interval 5, got %d", cfg.Segmenter.DecimationInterval)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{
			name:   "invalid UDP port",
			modify: func(c *Config) { c.Server.Port = 0 },
		},
		{
			name:   "oversized max packet",
			modify: func(c *Config) { c.Server.MaxPacketSize = 70000 },
		},
		{
			name:   "mono input",
			modify: func(c *Config) { c.Audio.Channels = 1 },
		},
		{
			name:   "unsupported frame duration",
			modify: func(c *Config) { c.Audio.FrameDurationMs = 15 },
		},
		{
			name:   "silence threshold below one decimated check",
			modify: func(c *Config) { c.Segmenter.SilenceThresholdMs = 50 },
		},
		{
			name:   "negative min speech duration",
			modify: func(c *Config) { c.Segmenter.MinSpeechDurationMs = -1 },
		},
		{
			name:   "unknown classifier engine",
			modify: func(c *Config) { c.Classifier.Engine = "webrtc" },
		},
		{
			name:   "energy aggressiveness out of range",
			modify: func(c *Config) { c.Classifier.Aggressiveness = 4 },
		},
		{
			name:   "silero without model path",
			modify: func(c *Config) { c.Classifier.Engine = "silero"; c.Classifier.ModelPath = "" },
		},
		{
			name:   "silero threshold out of range",
			modify: func(c *Config) { c.Classifier.Engine = "silero"; c.Classifier.ModelPath = "m.onnx"; c.Classifier.Threshold = 1.5 },
		},
		{
			name:   "empty output directory",
			modify: func(c *Config) { c.Output.Directory = "" },
		},
		{
			name:   "unknown log level",
			modify: func(c *Config) { c.Logging.Level = "verbose" },
		},
		{
			name:   "unknown log format",
			modify: func(c *Config) { c.Logging.Format = "xml" },
		},
		{
			name:   "empty log output",
			modify: func(c *Config) { c.Logging.Output = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error but got none")
			}
		})
	}
}

func TestDurationGetters(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.GetReadTimeout().Milliseconds() != int64(cfg.Server.ReadTimeoutMs) {
		t.Error("Read timeout getter does not match configured value")
	}
	if cfg.Server.GetShutdownTimeout().Seconds() != float64(cfg.Server.ShutdownTimeout) {
		t.Error("Shutdown timeout getter does not match configured value")
	}
	if cfg.Server.GetListenAddr() != "0.0.0.0:9500" {
		t.Errorf("Unexpected UDP listen address: %s", cfg.Server.GetListenAddr())
	}
	if cfg.HTTP.GetListenAddr() != "0.0.0.0:8080" {
		t.Errorf("Unexpected HTTP listen address: %s", cfg.HTTP.GetListenAddr())
	}

	// 48000 Hz * 20ms * 2 channels * 2 bytes = 3840
	if cfg.Audio.GetFrameBytes() != 3840 {
		t.Errorf("Expected frame size 3840 bytes, got %d", cfg.Audio.GetFrameBytes())
	}
}
