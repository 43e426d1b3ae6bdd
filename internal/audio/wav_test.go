package audio

import (
	"bytes"
	"testing"
)

func TestEncodeWAV(t *testing.T) {
	payload := make([]byte, 1600) // 100 stereo sample blocks
	for i := range payload {
		payload[i] = byte(i % 256)
	}

	data, err := EncodeWAV(payload, 48000, 2)
	if err != nil {
		t.Fatalf("Failed to encode WAV: %v", err)
	}

	if len(data) != 44+len(payload) {
		t.Errorf("Expected %d bytes, got %d", 44+len(payload), len(data))
	}

	// Check RIFF structure
	if string(data[0:4]) != "RIFF" {
		t.Error("Missing RIFF header")
	}
	if string(data[8:12]) != "WAVE" {
		t.Error("Missing WAVE format")
	}
	if string(data[12:16]) != "fmt " {
		t.Error("Missing fmt chunk")
	}
	if string(data[36:40]) != "data" {
		t.Error("Missing data chunk")
	}

	// Payload must follow the header unchanged
	if !bytes.Equal(data[44:], payload) {
		t.Error("Payload does not match input")
	}
}

func TestEncodeWAVValidation(t *testing.T) {
	validPayload := make([]byte, 400)

	tests := []struct {
		name       string
		payload    []byte
		sampleRate int
		channels   int
	}{
		{
			name:       "empty payload",
			payload:    []byte{},
			sampleRate: 48000,
			channels:   2,
		},
		{
			name:       "zero sample rate",
			payload:    validPayload,
			sampleRate: 0,
			channels:   2,
		},
		{
			name:       "negative sample rate",
			payload:    validPayload,
			sampleRate: -8000,
			channels:   2,
		},
		{
			name:       "zero channels",
			payload:    validPayload,
			sampleRate: 48000,
			channels:   0,
		},
		{
			name:       "payload not block aligned",
			payload:    make([]byte, 401),
			sampleRate: 48000,
			channels:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeWAV(tt.payload, tt.sampleRate, tt.channels)
			if err == nil {
				t.Error("Expected error but got none")
			}
		})
	}
}

func TestDecodeWAVRoundTrip(t *testing.T) {
	payload := make([]byte, 960)
	for i := range payload {
		payload[i] = byte((i * 7) % 256)
	}

	encoded, err := EncodeWAV(payload, 16000, 1)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	decoded, info, err := DecodeWAV(encoded)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}

	if !bytes.Equal(decoded, payload) {
		t.Error("Decoded payload does not match original")
	}

	if info.SampleRate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", info.SampleRate)
	}
	if info.Channels != 1 {
		t.Errorf("Expected 1 channel, got %d", info.Channels)
	}
	if info.BitsPerSample != 16 {
		t.Errorf("Expected 16 bits per sample, got %d", info.BitsPerSample)
	}
	if info.DataSize != uint32(len(payload)) {
		t.Errorf("Expected data size %d, got %d", len(payload), info.DataSize)
	}
}

func TestGetWAVInfo(t *testing.T) {
	// 1 second of stereo audio at 48kHz
	payload := make([]byte, 48000*2*2)

	encoded, err := EncodeWAV(payload, 48000, 2)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	info, err := GetWAVInfo(encoded)
	if err != nil {
		t.Fatalf("Failed to get info: %v", err)
	}

	if info.Duration != 1.0 {
		t.Errorf("Expected duration 1.0s, got %f", info.Duration)
	}
	if info.NumSamples != 48000 {
		t.Errorf("Expected 48000 samples, got %d", info.NumSamples)
	}
}

func TestGetWAVDuration(t *testing.T) {
	// 500ms of mono audio at 8kHz
	payload := make([]byte, 8000)

	encoded, err := EncodeWAV(payload, 8000, 1)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	duration, err := GetWAVDuration(encoded)
	if err != nil {
		t.Fatalf("Failed to get duration: %v", err)
	}

	if duration != 0.5 {
		t.Errorf("Expected duration 0.5s, got %f", duration)
	}
}

func TestValidateWAV(t *testing.T) {
	payload := make([]byte, 400)
	valid, err := EncodeWAV(payload, 48000, 2)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	if err := ValidateWAV(valid); err != nil {
		t.Errorf("Valid WAV failed validation: %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "too short",
			data: []byte{1, 2, 3},
		},
		{
			name: "missing RIFF",
			data: append([]byte("XXXX"), valid[4:]...),
		},
		{
			name: "missing WAVE",
			data: append(append([]byte{}, valid[:8]...), append([]byte("XXXX"), valid[12:]...)...),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateWAV(tt.data); err == nil {
				t.Error("Expected validation error but got none")
			}
		})
	}
}

func TestDecodeWAVTruncated(t *testing.T) {
	payload := make([]byte, 400)
	encoded, err := EncodeWAV(payload, 48000, 2)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	// Chop off half the declared payload
	_, _, err = DecodeWAV(encoded[:44+200])
	if err == nil {
		t.Error("Expected error for truncated WAV data")
	}
}
