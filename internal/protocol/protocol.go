package protocol

import (
	"encoding/binary"
	"fmt"
)

// Wire format constants for the gateway feed.
const (
	// Packet types
	PacketTypeControl = 0x01
	PacketTypeAudio   = 0x02

	// Control events
	EventSpeakerJoin  = 0x01
	EventSpeakerLeave = 0x02

	// Packet structure sizes
	HeaderSize             = 3  // 1 + 2 bytes
	SpeakerIDSize          = 32 // Null-terminated string field
	ControlPayloadSize     = 1 + SpeakerIDSize
	AudioPayloadHeaderSize = SpeakerIDSize + 4 // Speaker ID + sequence number
)

// Header represents the 3-byte packet header.
// Layout: [PacketType:1][PacketLen:2]
type Header struct {
	PacketType uint8  // 0x01=Control, 0x02=Audio
	PacketLen  uint16 // Total packet size (header + payload)
}

// ControlPayload represents the 33-byte control packet payload.
// Layout: [Event:1][SpeakerID:32]
type ControlPayload struct {
	Event     uint8               // 0x01=Join, 0x02=Leave
	SpeakerID [SpeakerIDSize]byte // Null-terminated string (32 bytes)
}

// AudioPayload represents the audio packet payload.
// Layout: [SpeakerID:32][Sequence:4][PCM:N]
type AudioPayload struct {
	SpeakerID [SpeakerIDSize]byte // Null-terminated string (32 bytes)
	Sequence  uint32              // Frame sequence number
	PCM       []byte              // Interleaved stereo 16-bit PCM (variable length)
}

// ParsedPacket represents a fully parsed gateway packet
type ParsedPacket struct {
	Header  *Header
	Control *ControlPayload // Only set for control packets
	Audio   *AudioPayload   // Only set for audio packets
}

// ParseHeader parses the 3-byte packet header
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("header too short: expected %d bytes, got %d", HeaderSize, len(data))
	}

	header := &Header{
		PacketType: data[0],
		PacketLen:  binary.BigEndian.Uint16(data[1:3]),
	}

	return header, nil
}

// ParseControlPayload parses the 33-byte control packet payload
func ParseControlPayload(data []byte) (*ControlPayload, error) {
	if len(data) < ControlPayloadSize {
		return nil, fmt.Errorf("control payload too short: expected %d bytes, got %d",
			ControlPayloadSize, len(data))
	}

	payload := &ControlPayload{Event: data[0]}
	copy(payload.SpeakerID[:], data[1:1+SpeakerIDSize])

	if !IsValidEvent(payload.Event) {
		return nil, fmt.Errorf("invalid control event: 0x%02x", payload.Event)
	}

	return payload, nil
}

// ParseAudioPayload parses the audio packet payload (speaker ID + sequence + PCM)
func ParseAudioPayload(data []byte) (*AudioPayload, error) {
	if len(data) < AudioPayloadHeaderSize {
		return nil, fmt.Errorf("audio payload too short: expected at least %d bytes, got %d",
			AudioPayloadHeaderSize, len(data))
	}

	payload := &AudioPayload{}
	copy(payload.SpeakerID[:], data[0:SpeakerIDSize])
	payload.Sequence = binary.BigEndian.Uint32(data[SpeakerIDSize : SpeakerIDSize+4])

	if len(data) > AudioPayloadHeaderSize {
		payload.PCM = make([]byte, len(data)-AudioPayloadHeaderSize)
		copy(payload.PCM, data[AudioPayloadHeaderSize:])
	}

	return payload, nil
}

// ParsePacket parses a complete gateway packet (header + payload)
func ParsePacket(data []byte) (*ParsedPacket, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("packet too short: expected at least %d bytes, got %d", HeaderSize, len(data))
	}

	header, err := ParseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	// Validate packet length matches actual data
	if int(header.PacketLen) != len(data) {
		return nil, fmt.Errorf("packet length mismatch: header says %d bytes, got %d bytes",
			header.PacketLen, len(data))
	}

	if err := ValidateHeader(header); err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}

	packet := &ParsedPacket{Header: header}
	payloadData := data[HeaderSize:]

	switch header.PacketType {
	case PacketTypeControl:
		payload, err := ParseControlPayload(payloadData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse control payload: %w", err)
		}
		packet.Control = payload

	case PacketTypeAudio:
		payload, err := ParseAudioPayload(payloadData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse audio payload: %w", err)
		}
		packet.Audio = payload

	default:
		return nil, fmt.Errorf("unknown packet type: 0x%02x", header.PacketType)
	}

	return packet, nil
}

// ValidateHeader validates the packet header fields
func ValidateHeader(header *Header) error {
	if !IsValidPacketType(header.PacketType) {
		return fmt.Errorf("invalid packet type: 0x%02x", header.PacketType)
	}

	if header.PacketLen < HeaderSize {
		return fmt.Errorf("packet length too small: %d (minimum %d)", header.PacketLen, HeaderSize)
	}

	expectedPayloadSize := int(header.PacketLen) - HeaderSize
	switch header.PacketType {
	case PacketTypeControl:
		if expectedPayloadSize != ControlPayloadSize {
			return fmt.Errorf("control packet payload size mismatch: expected %d, got %d",
				ControlPayloadSize, expectedPayloadSize)
		}
	case PacketTypeAudio:
		if expectedPayloadSize < AudioPayloadHeaderSize {
			return fmt.Errorf("audio packet payload too small: expected at least %d, got %d",
				AudioPayloadHeaderSize, expectedPayloadSize)
		}
	}

	return nil
}

// IsValidPacketType checks if the packet type is valid
func IsValidPacketType(ptype uint8) bool {
	return ptype == PacketTypeControl || ptype == PacketTypeAudio
}

// IsValidEvent checks if the control event is valid
func IsValidEvent(event uint8) bool {
	return event == EventSpeakerJoin || event == EventSpeakerLeave
}

// EncodeControlPacket builds a complete control packet for the given event
// and speaker. Used by the gateway simulator and tests.
func EncodeControlPacket(event uint8, speakerID string) ([]byte, error) {
	if !IsValidEvent(event) {
		return nil, fmt.Errorf("invalid control event: 0x%02x", event)
	}

	if len(speakerID) >= SpeakerIDSize {
		return nil, fmt.Errorf("speaker ID too long: %d bytes (maximum %d)", len(speakerID), SpeakerIDSize-1)
	}

	data := make([]byte, HeaderSize+ControlPayloadSize)
	data[0] = PacketTypeControl
	binary.BigEndian.PutUint16(data[1:3], uint16(len(data)))
	data[HeaderSize] = event
	copy(data[HeaderSize+1:], speakerID)

	return data, nil
}

// EncodeAudioPacket builds a complete audio packet carrying one PCM frame.
func EncodeAudioPacket(speakerID string, sequence uint32, pcm []byte) ([]byte, error) {
	if len(speakerID) >= SpeakerIDSize {
		return nil, fmt.Errorf("speaker ID too long: %d bytes (maximum %d)", len(speakerID), SpeakerIDSize-1)
	}

	total := HeaderSize + AudioPayloadHeaderSize + len(pcm)
	if total > 0xFFFF {
		return nil, fmt.Errorf("packet too large: %d bytes (maximum %d)", total, 0xFFFF)
	}

	data := make([]byte, total)
	data[0] = PacketTypeAudio
	binary.BigEndian.PutUint16(data[1:3], uint16(total))
	copy(data[HeaderSize:], speakerID)
	binary.BigEndian.PutUint32(data[HeaderSize+SpeakerIDSize:], sequence)
	copy(data[HeaderSize+AudioPayloadHeaderSize:], pcm)

	return data, nil
}

// ExtractString extracts a null-terminated string from a fixed-size byte array
func ExtractString(buf []byte) string {
	// Find null terminator
	nullPos := len(buf)
	for i, b := range buf {
		if b == 0 {
			nullPos = i
			break
		}
	}
	return string(buf[:nullPos])
}

// GetSpeakerID extracts the speaker ID as a string
func (c *ControlPayload) GetSpeakerID() string {
	return ExtractString(c.SpeakerID[:])
}

// GetSpeakerID extracts the speaker ID as a string
func (a *AudioPayload) GetSpeakerID() string {
	return ExtractString(a.SpeakerID[:])
}

// String returns a human-readable representation of the header
func (h *Header) String() string {
	var packetType string

	switch h.PacketType {
	case PacketTypeControl:
		packetType = "Control"
	case PacketTypeAudio:
		packetType = "Audio"
	default:
		packetType = fmt.Sprintf("Unknown(0x%02x)", h.PacketType)
	}

	return fmt.Sprintf("Header{Type:%s, Len:%d}", packetType, h.PacketLen)
}

// String returns a human-readable representation of the control payload
func (c *ControlPayload) String() string {
	var event string

	switch c.Event {
	case EventSpeakerJoin:
		event = "Join"
	case EventSpeakerLeave:
		event = "Leave"
	default:
		event = fmt.Sprintf("Unknown(0x%02x)", c.Event)
	}

	return fmt.Sprintf("ControlPayload{Event:%s, SpeakerID:%q}", event, c.GetSpeakerID())
}

// String returns a human-readable representation of the audio payload
func (a *AudioPayload) String() string {
	return fmt.Sprintf("AudioPayload{SpeakerID:%q, Sequence:%d, PCMLen:%d}",
		a.GetSpeakerID(), a.Sequence, len(a.PCM))
}
