package audio

import (
	"bytes"
	"testing"
)

func stereoFrame(pairs ...[2]int16) []byte {
	samples := make([]int16, 0, len(pairs)*2)
	for _, p := range pairs {
		samples = append(samples, p[0], p[1])
	}
	return BytesFromSamples(samples)
}

func TestDownmixStereo(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected []int16
	}{
		{
			name:     "equal channels",
			input:    stereoFrame([2]int16{1000, 1000}),
			expected: []int16{1000},
		},
		{
			name:     "averaged channels",
			input:    stereoFrame([2]int16{1000, 2000}),
			expected: []int16{1500},
		},
		{
			name:     "rounds toward negative infinity",
			input:    stereoFrame([2]int16{-3, -2}),
			expected: []int16{-3},
		},
		{
			name:     "positive odd sum truncates down",
			input:    stereoFrame([2]int16{3, 2}),
			expected: []int16{2},
		},
		{
			name:     "opposite extremes cancel",
			input:    stereoFrame([2]int16{32767, -32767}),
			expected: []int16{0},
		},
		{
			name:     "both at maximum",
			input:    stereoFrame([2]int16{32767, 32767}),
			expected: []int16{32767},
		},
		{
			name:     "both at minimum",
			input:    stereoFrame([2]int16{-32768, -32768}),
			expected: []int16{-32768},
		},
		{
			name:     "silence",
			input:    stereoFrame([2]int16{0, 0}),
			expected: []int16{0},
		},
		{
			name: "multiple pairs",
			input: stereoFrame(
				[2]int16{100, 200},
				[2]int16{-100, -200},
				[2]int16{0, 1},
			),
			expected: []int16{150, -150, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mono := DownmixStereo(tt.input)

			if len(mono) != len(tt.expected)*BytesPerSample {
				t.Fatalf("Expected %d output bytes, got %d", len(tt.expected)*BytesPerSample, len(mono))
			}

			samples := SamplesFromBytes(mono)
			for i, want := range tt.expected {
				if samples[i] != want {
					t.Errorf("Sample %d: expected %d, got %d", i, want, samples[i])
				}
			}
		})
	}
}

func TestDownmixStereoEmpty(t *testing.T) {
	mono := DownmixStereo(nil)
	if len(mono) != 0 {
		t.Errorf("Expected empty output for nil input, got %d bytes", len(mono))
	}

	mono = DownmixStereo([]byte{})
	if len(mono) != 0 {
		t.Errorf("Expected empty output for empty input, got %d bytes", len(mono))
	}
}

func TestDownmixStereoTrailingBytes(t *testing.T) {
	// One full pair plus 3 trailing bytes that cannot form a pair.
	input := append(stereoFrame([2]int16{500, 700}), 0x01, 0x02, 0x03)

	mono := DownmixStereo(input)
	if len(mono) != BytesPerSample {
		t.Fatalf("Expected %d output bytes, got %d", BytesPerSample, len(mono))
	}

	samples := SamplesFromBytes(mono)
	if samples[0] != 600 {
		t.Errorf("Expected sample 600, got %d", samples[0])
	}
}

func TestDownmixStereoDoesNotModifyInput(t *testing.T) {
	input := stereoFrame([2]int16{1234, 5678})
	original := make([]byte, len(input))
	copy(original, input)

	DownmixStereo(input)

	if !bytes.Equal(input, original) {
		t.Error("DownmixStereo modified its input frame")
	}
}

func TestSampleByteRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 12345, -12345}

	data := BytesFromSamples(samples)
	if len(data) != len(samples)*BytesPerSample {
		t.Fatalf("Expected %d bytes, got %d", len(samples)*BytesPerSample, len(data))
	}

	decoded := SamplesFromBytes(data)
	if len(decoded) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(decoded))
	}

	for i, want := range samples {
		if decoded[i] != want {
			t.Errorf("Sample %d: expected %d, got %d", i, want, decoded[i])
		}
	}
}

func TestSamplesFromBytesOddLength(t *testing.T) {
	samples := SamplesFromBytes([]byte{0x10, 0x00, 0xFF})
	if len(samples) != 1 {
		t.Fatalf("Expected 1 sample, got %d", len(samples))
	}
	if samples[0] != 16 {
		t.Errorf("Expected sample 16, got %d", samples[0])
	}
}
