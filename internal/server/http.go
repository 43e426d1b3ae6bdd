package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voicekit/voice-capture-service/internal/classifier"
	"github.com/voicekit/voice-capture-service/internal/config"
	"github.com/voicekit/voice-capture-service/internal/metrics"
	"github.com/voicekit/voice-capture-service/internal/segment"
	"github.com/voicekit/voice-capture-service/internal/sink"
)

// HTTPServer exposes the monitoring API
type HTTPServer struct {
	config    *config.Config
	engine    *segment.Engine
	writer    *sink.Writer
	adapter   *classifier.Adapter
	udpServer *UDPServer
	logger    *slog.Logger
	metrics   *metrics.Metrics
	server    *http.Server
	startedAt time.Time
}

// NewHTTPServer creates the monitoring API server
func NewHTTPServer(cfg *config.Config, engine *segment.Engine, writer *sink.Writer, adapter *classifier.Adapter, udpServer *UDPServer, logger *slog.Logger, m *metrics.Metrics) *HTTPServer {
	s := &HTTPServer{
		config:    cfg,
		engine:    engine,
		writer:    writer,
		adapter:   adapter,
		udpServer: udpServer,
		logger:    logger,
		metrics:   m,
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.withMetrics("/", s.handleRoot))
	mux.HandleFunc("/health", s.withMetrics("/health", s.handleHealth))
	mux.HandleFunc("/speakers", s.withMetrics("/speakers", s.handleSpeakers))
	mux.HandleFunc("/speakers/", s.withMetrics("/speakers/{id}", s.handleSpeaker))
	mux.HandleFunc("/config", s.withMetrics("/config", s.handleConfig))
	mux.HandleFunc("/stats", s.withMetrics("/stats", s.handleStats))
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:         cfg.HTTP.GetListenAddr(),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.GetReadTimeout(),
		WriteTimeout: cfg.HTTP.GetWriteTimeout(),
	}

	return s
}

// Start starts the HTTP server in a background goroutine
func (s *HTTPServer) Start() {
	go func() {
		s.logger.Info("HTTP server started",
			slog.String("addr", s.server.Addr),
		)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error",
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Stop gracefully shuts down the HTTP server
func (s *HTTPServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// responseWriter captures the status code for metrics
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// withMetrics wraps a handler with request metrics
func (s *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(rw, r)

		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(r.Method, endpoint,
				fmt.Sprintf("%d", rw.statusCode), time.Since(start).Seconds())
			if rw.statusCode >= 400 {
				s.metrics.RecordHTTPError(r.Method, endpoint,
					http.StatusText(rw.statusCode))
			}
		}
	}
}

func (s *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"service": "voice-capture-service",
		"endpoints": []string{
			"/health",
			"/speakers",
			"/speakers/{id}",
			"/config",
			"/stats",
			"/metrics",
		},
	})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
		"speakers":       s.engine.SpeakerCount(),
	})
}

func (s *HTTPServer) handleSpeakers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	speakers := s.engine.Speakers()
	s.writeJSON(w, map[string]interface{}{
		"count":    len(speakers),
		"speakers": speakers,
	})
}

func (s *HTTPServer) handleSpeaker(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	speakerID := strings.TrimPrefix(r.URL.Path, "/speakers/")
	if speakerID == "" || strings.Contains(speakerID, "/") {
		http.Error(w, "invalid speaker ID", http.StatusBadRequest)
		return
	}

	info, found := s.engine.Speaker(speakerID)
	if !found {
		http.Error(w, "speaker not found", http.StatusNotFound)
		return
	}

	s.writeJSON(w, info)
}

func (s *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"audio": map[string]interface{}{
			"sample_rate":       s.config.Audio.SampleRate,
			"channels":          s.config.Audio.Channels,
			"frame_duration_ms": s.config.Audio.FrameDurationMs,
		},
		"segmenter": map[string]interface{}{
			"decimation_interval":    s.config.Segmenter.DecimationInterval,
			"silence_threshold_ms":   s.config.Segmenter.SilenceThresholdMs,
			"min_speech_duration_ms": s.config.Segmenter.MinSpeechDurationMs,
		},
		"classifier": map[string]interface{}{
			"engine": s.config.Classifier.Engine,
		},
		"output": map[string]interface{}{
			"directory": s.config.Output.Directory,
		},
	})
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := map[string]interface{}{
		"engine": s.engine.GetStats(),
		"sink":   s.writer.GetStats(),
	}
	if s.adapter != nil {
		stats["classifier"] = s.adapter.GetStats()
	}
	if s.udpServer != nil {
		stats["udp"] = s.udpServer.GetStats()
	}

	s.writeJSON(w, stats)
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response",
			slog.String("error", err.Error()),
		)
	}
}
