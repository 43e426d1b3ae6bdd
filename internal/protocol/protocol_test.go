package protocol

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestControlPacketRoundTrip(t *testing.T) {
	data, err := EncodeControlPacket(EventSpeakerJoin, "alice")
	if err != nil {
		t.Fatalf("Failed to encode control packet: %v", err)
	}

	if len(data) != HeaderSize+ControlPayloadSize {
		t.Errorf("Expected %d bytes, got %d", HeaderSize+ControlPayloadSize, len(data))
	}

	packet, err := ParsePacket(data)
	if err != nil {
		t.Fatalf("Failed to parse control packet: %v", err)
	}

	if packet.Control == nil {
		t.Fatal("Expected control payload")
	}
	if packet.Audio != nil {
		t.Error("Unexpected audio payload")
	}

	if packet.Control.Event != EventSpeakerJoin {
		t.Errorf("Expected join event, got 0x%02x", packet.Control.Event)
	}
	if packet.Control.GetSpeakerID() != "alice" {
		t.Errorf("Expected speaker alice, got %q", packet.Control.GetSpeakerID())
	}
}

func TestAudioPacketRoundTrip(t *testing.T) {
	pcm := make([]byte, 640)
	for i := range pcm {
		pcm[i] = byte(i % 256)
	}

	data, err := EncodeAudioPacket("bob", 42, pcm)
	if err != nil {
		t.Fatalf("Failed to encode audio packet: %v", err)
	}

	packet, err := ParsePacket(data)
	if err != nil {
		t.Fatalf("Failed to parse audio packet: %v", err)
	}

	if packet.Audio == nil {
		t.Fatal("Expected audio payload")
	}

	if packet.Audio.GetSpeakerID() != "bob" {
		t.Errorf("Expected speaker bob, got %q", packet.Audio.GetSpeakerID())
	}
	if packet.Audio.Sequence != 42 {
		t.Errorf("Expected sequence 42, got %d", packet.Audio.Sequence)
	}
	if !bytes.Equal(packet.Audio.PCM, pcm) {
		t.Error("PCM payload does not match input")
	}
}

func TestAudioPacketEmptyPCM(t *testing.T) {
	data, err := EncodeAudioPacket("bob", 1, nil)
	if err != nil {
		t.Fatalf("Failed to encode audio packet: %v", err)
	}

	packet, err := ParsePacket(data)
	if err != nil {
		t.Fatalf("Failed to parse audio packet: %v", err)
	}

	if len(packet.Audio.PCM) != 0 {
		t.Errorf("Expected empty PCM, got %d bytes", len(packet.Audio.PCM))
	}
}

func TestParsePacketErrors(t *testing.T) {
	valid, err := EncodeControlPacket(EventSpeakerLeave, "carol")
	if err != nil {
		t.Fatalf("Failed to encode packet: %v", err)
	}

	truncatedLen := make([]byte, len(valid))
	copy(truncatedLen, valid)
	binary.BigEndian.PutUint16(truncatedLen[1:3], uint16(len(valid)+10))

	badType := make([]byte, len(valid))
	copy(badType, valid)
	badType[0] = 0x99

	badEvent := make([]byte, len(valid))
	copy(badEvent, valid)
	badEvent[HeaderSize] = 0x99

	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "empty packet",
			data: []byte{},
		},
		{
			name: "header only fragment",
			data: []byte{PacketTypeControl, 0x00},
		},
		{
			name: "length mismatch",
			data: truncatedLen,
		},
		{
			name: "unknown packet type",
			data: badType,
		},
		{
			name: "unknown control event",
			data: badEvent,
		},
		{
			name: "control payload too short",
			data: []byte{PacketTypeControl, 0x00, 0x05, EventSpeakerJoin, 'a'},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePacket(tt.data); err == nil {
				t.Error("Expected parse error but got none")
			}
		})
	}
}

func TestValidateHeader(t *testing.T) {
	tests := []struct {
		name      string
		header    *Header
		expectErr bool
	}{
		{
			name:      "valid control header",
			header:    &Header{PacketType: PacketTypeControl, PacketLen: HeaderSize + ControlPayloadSize},
			expectErr: false,
		},
		{
			name:      "valid audio header",
			header:    &Header{PacketType: PacketTypeAudio, PacketLen: HeaderSize + AudioPayloadHeaderSize + 640},
			expectErr: false,
		},
		{
			name:      "invalid type",
			header:    &Header{PacketType: 0x55, PacketLen: 100},
			expectErr: true,
		},
		{
			name:      "control payload size mismatch",
			header:    &Header{PacketType: PacketTypeControl, PacketLen: HeaderSize + ControlPayloadSize + 1},
			expectErr: true,
		},
		{
			name:      "audio payload too small",
			header:    &Header{PacketType: PacketTypeAudio, PacketLen: HeaderSize + AudioPayloadHeaderSize - 1},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHeader(tt.header)
			if tt.expectErr && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestEncodeSpeakerIDTooLong(t *testing.T) {
	longID := string(make([]byte, SpeakerIDSize))

	if _, err := EncodeControlPacket(EventSpeakerJoin, longID); err == nil {
		t.Error("Expected error for oversized speaker ID in control packet")
	}
	if _, err := EncodeAudioPacket(longID, 1, nil); err == nil {
		t.Error("Expected error for oversized speaker ID in audio packet")
	}
}

func TestExtractString(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "null terminated",
			input:    []byte{'a', 'b', 'c', 0, 'x', 'x'},
			expected: "abc",
		},
		{
			name:     "no terminator",
			input:    []byte{'a', 'b', 'c'},
			expected: "abc",
		},
		{
			name:     "empty",
			input:    []byte{0, 0, 0},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractString(tt.input); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestHeaderString(t *testing.T) {
	h := &Header{PacketType: PacketTypeAudio, PacketLen: 100}
	if h.String() != "Header{Type:Audio, Len:100}" {
		t.Errorf("Unexpected header string: %s", h.String())
	}
}
