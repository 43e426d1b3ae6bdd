package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/voicekit/voice-capture-service/internal/classifier"
	"github.com/voicekit/voice-capture-service/internal/config"
	"github.com/voicekit/voice-capture-service/internal/metrics"
	"github.com/voicekit/voice-capture-service/internal/segment"
	"github.com/voicekit/voice-capture-service/internal/server"
	"github.com/voicekit/voice-capture-service/internal/sink"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(&cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("Starting voice capture service",
		slog.String("config", *configPath),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("frame_duration_ms", cfg.Audio.FrameDurationMs),
		slog.String("classifier", cfg.Classifier.Engine),
	)

	m := metrics.NewMetrics()

	detector, closeDetector, err := buildDetector(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize speech detector",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer closeDetector()

	adapter, err := classifier.NewAdapter(detector, cfg.Audio.SampleRate, cfg.Audio.FrameDurationMs, logger, m)
	if err != nil {
		logger.Error("Failed to create classifier adapter",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	writer, err := sink.NewWriter(&sink.Config{
		Directory:  cfg.Output.Directory,
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
		QueueSize:  cfg.Output.QueueSize,
		Workers:    cfg.Output.Workers,
	}, logger, m)
	if err != nil {
		logger.Error("Failed to create artifact writer",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	engine, err := segment.NewEngine(&segment.Config{
		SampleRate:          cfg.Audio.SampleRate,
		Channels:            cfg.Audio.Channels,
		FrameDurationMs:     cfg.Audio.FrameDurationMs,
		DecimationInterval:  cfg.Segmenter.DecimationInterval,
		SilenceThresholdMs:  cfg.Segmenter.SilenceThresholdMs,
		MinSpeechDurationMs: cfg.Segmenter.MinSpeechDurationMs,
		QueueSize:           cfg.Segmenter.SpeakerQueueSize,
	}, adapter, writer, logger, m)
	if err != nil {
		logger.Error("Failed to create segmentation engine",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	udpServer, err := server.NewUDPServer(&cfg.Server, engine, logger, m)
	if err != nil {
		logger.Error("Failed to create UDP server",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	if err := udpServer.Start(); err != nil {
		logger.Error("Failed to start UDP server",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	httpServer := server.NewHTTPServer(cfg, engine, writer, adapter, udpServer, logger, m)
	httpServer.Start()

	logger.Info("Service started",
		slog.String("udp_addr", cfg.Server.GetListenAddr()),
		slog.String("http_addr", cfg.HTTP.GetListenAddr()),
		slog.String("output_dir", cfg.Output.Directory),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info("Shutting down",
		slog.String("signal", sig.String()),
	)

	// Stop accepting requests first, then drain the pipeline front to
	// back so every buffered utterance reaches storage.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GetShutdownTimeout())
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error",
			slog.String("error", err.Error()),
		)
	}

	udpServer.Stop()
	engine.Shutdown()
	writer.Close()

	stats := engine.GetStats()
	sinkStats := writer.GetStats()
	logger.Info("Service stopped",
		slog.Uint64("frames_routed", stats.FramesRouted),
		slog.Uint64("speakers_created", stats.SpeakersCreated),
		slog.Uint64("artifacts_written", sinkStats.Written),
		slog.Uint64("storage_errors", sinkStats.Errors),
	)
}

// buildDetector creates the configured speech detector backend. The
// returned close function releases model resources, if any.
func buildDetector(cfg *config.Config, logger *slog.Logger) (classifier.Detector, func(), error) {
	switch cfg.Classifier.Engine {
	case "silero":
		det, err := classifier.NewSileroDetector(cfg.Classifier.ModelPath, cfg.Audio.SampleRate, cfg.Classifier.Threshold)
		if err != nil {
			return nil, nil, err
		}
		return det, func() {
			if err := det.Close(); err != nil {
				logger.Warn("Failed to close silero detector",
					slog.String("error", err.Error()),
				)
			}
		}, nil

	case "energy":
		det, err := classifier.NewEnergyDetector(cfg.Classifier.Aggressiveness)
		if err != nil {
			return nil, nil, err
		}
		return det, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown classifier engine: %q", cfg.Classifier.Engine)
	}
}

func initLogger(cfg *config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	out := os.Stdout
	if cfg.Output != "" && cfg.Output != "stdout" {
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s, falling back to stdout: %v\n", cfg.Output, err)
		} else {
			out = f
		}
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	return slog.New(handler)
}
