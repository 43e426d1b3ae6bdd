package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/voicekit/voice-capture-service/internal/config"
	"github.com/voicekit/voice-capture-service/internal/metrics"
	"github.com/voicekit/voice-capture-service/internal/protocol"
	"github.com/voicekit/voice-capture-service/internal/segment"
)

// UDPStats represents UDP server statistics
type UDPStats struct {
	PacketsReceived  uint64 `json:"packets_received"`
	PacketsProcessed uint64 `json:"packets_processed"`
	PacketsDropped   uint64 `json:"packets_dropped"`
	ParseErrors      uint64 `json:"parse_errors"`
	SequenceGaps     uint64 `json:"sequence_gaps"`
	BytesReceived    uint64 `json:"bytes_received"`
}

// UDPServer ingests the gateway feed and drives the segmentation
// engine. Packets are handed to a single processor goroutine so frames
// reach each speaker's state machine in arrival order.
type UDPServer struct {
	config  *config.ServerConfig
	engine  *segment.Engine
	logger  *slog.Logger
	metrics *metrics.Metrics

	conn       *net.UDPConn
	packetChan chan []byte
	stopChan   chan struct{}
	wg         sync.WaitGroup
	stopOnce   sync.Once

	statsMu sync.Mutex
	stats   UDPStats
}

// NewUDPServer creates a UDP ingest server
func NewUDPServer(cfg *config.ServerConfig, engine *segment.Engine, logger *slog.Logger, m *metrics.Metrics) (*UDPServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}

	return &UDPServer{
		config:     cfg,
		engine:     engine,
		logger:     logger,
		metrics:    m,
		packetChan: make(chan []byte, cfg.QueueSize),
		stopChan:   make(chan struct{}),
	}, nil
}

// Start binds the socket and starts the receive and processing loops
func (s *UDPServer) Start() error {
	addr, err := net.ResolveUDPAddr("udp", s.config.GetListenAddr())
	if err != nil {
		return fmt.Errorf("failed to resolve listen address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.GetListenAddr(), err)
	}

	if err := conn.SetReadBuffer(s.config.BufferSize); err != nil {
		s.logger.Warn("Failed to set UDP read buffer size",
			slog.Int("requested", s.config.BufferSize),
			slog.String("error", err.Error()),
		)
	}

	s.conn = conn

	s.wg.Add(2)
	go s.receiveLoop()
	go s.processLoop()

	s.logger.Info("UDP server started",
		slog.String("addr", s.config.GetListenAddr()),
		slog.Int("queue_size", s.config.QueueSize),
	)

	return nil
}

// Stop shuts the server down and waits for queued packets to drain
func (s *UDPServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		if s.conn != nil {
			s.conn.Close()
		}
		s.wg.Wait()

		s.logger.Info("UDP server stopped")
	})
}

// GetStats returns current server statistics
func (s *UDPServer) GetStats() UDPStats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

// receiveLoop reads datagrams off the socket and queues them for the
// processor. A full queue drops the packet rather than blocking the
// socket read.
func (s *UDPServer) receiveLoop() {
	defer s.wg.Done()
	defer close(s.packetChan)

	buf := make([]byte, s.config.MaxPacketSize)

	for {
		select {
		case <-s.stopChan:
			return
		default:
		}

		if err := s.conn.SetReadDeadline(time.Now().Add(s.config.GetReadTimeout())); err != nil {
			s.logger.Error("Failed to set read deadline",
				slog.String("error", err.Error()),
			)
			return
		}

		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			select {
			case <-s.stopChan:
				return
			default:
				s.logger.Error("UDP read error",
					slog.String("error", err.Error()),
				)
				continue
			}
		}

		// The read buffer is reused, so the packet must be copied
		// before it crosses the channel.
		packet := make([]byte, n)
		copy(packet, buf[:n])

		s.statsMu.Lock()
		s.stats.PacketsReceived++
		s.stats.BytesReceived += uint64(n)
		s.statsMu.Unlock()

		if s.metrics != nil {
			s.metrics.RecordPacketReceived()
		}

		select {
		case s.packetChan <- packet:
			if s.metrics != nil {
				s.metrics.SetQueueSize(len(s.packetChan))
			}
		default:
			s.statsMu.Lock()
			s.stats.PacketsDropped++
			s.statsMu.Unlock()

			s.logger.Warn("Packet queue full, dropping packet",
				slog.Int("size", n),
			)
		}
	}
}

// processLoop parses queued packets and drives the engine. It is the
// only goroutine touching the engine from the network side, which keeps
// per-speaker frame order identical to arrival order.
func (s *UDPServer) processLoop() {
	defer s.wg.Done()

	// Last seen sequence number per speaker, for gap accounting.
	lastSeq := make(map[string]uint32)

	for data := range s.packetChan {
		if s.metrics != nil {
			s.metrics.SetQueueSize(len(s.packetChan))
		}

		packet, err := protocol.ParsePacket(data)
		if err != nil {
			s.statsMu.Lock()
			s.stats.ParseErrors++
			s.statsMu.Unlock()

			if s.metrics != nil {
				s.metrics.RecordParseError()
			}

			s.logger.Debug("Failed to parse packet",
				slog.Int("size", len(data)),
				slog.String("error", err.Error()),
			)
			continue
		}

		switch {
		case packet.Control != nil:
			s.handleControl(packet.Control, lastSeq)
		case packet.Audio != nil:
			s.handleAudio(packet.Audio, lastSeq)
		}

		s.statsMu.Lock()
		s.stats.PacketsProcessed++
		s.statsMu.Unlock()

		if s.metrics != nil {
			s.metrics.RecordPacketProcessed()
		}
	}
}

func (s *UDPServer) handleControl(ctrl *protocol.ControlPayload, lastSeq map[string]uint32) {
	speakerID := ctrl.GetSpeakerID()
	if speakerID == "" {
		s.logger.Debug("Control packet with empty speaker ID, ignoring")
		return
	}

	switch ctrl.Event {
	case protocol.EventSpeakerJoin:
		s.engine.AddSpeaker(speakerID)
	case protocol.EventSpeakerLeave:
		s.engine.RemoveSpeaker(speakerID)
		delete(lastSeq, speakerID)
	}
}

func (s *UDPServer) handleAudio(audio *protocol.AudioPayload, lastSeq map[string]uint32) {
	speakerID := audio.GetSpeakerID()

	if prev, seen := lastSeq[speakerID]; seen && audio.Sequence != prev+1 {
		s.statsMu.Lock()
		s.stats.SequenceGaps++
		s.statsMu.Unlock()

		if s.metrics != nil {
			s.metrics.RecordSequenceGap()
		}

		s.logger.Debug("Audio sequence gap",
			slog.String("speaker_id", speakerID),
			slog.Uint64("expected", uint64(prev+1)),
			slog.Uint64("got", uint64(audio.Sequence)),
		)
	}
	lastSeq[speakerID] = audio.Sequence

	s.engine.Route(speakerID, audio.PCM)
}
