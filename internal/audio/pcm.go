package audio

import (
	"encoding/binary"
)

// PCM sample layout constants for the 16-bit little-endian stream format.
const (
	BytesPerSample  = 2
	StereoFrameStep = 4 // One interleaved (L, R) sample pair
)

// DownmixStereo converts an interleaved stereo 16-bit little-endian PCM
// frame into a mono frame of half the byte length. Each output sample is
// floor((L+R)/2): the arithmetic shift rounds toward negative infinity,
// so a (-3, -2) pair yields -3, not the -2 a truncating division would
// produce. Trailing bytes that do not form a complete sample pair are
// ignored. The input frame is never modified.
func DownmixStereo(frame []byte) []byte {
	pairs := len(frame) / StereoFrameStep
	mono := make([]byte, pairs*BytesPerSample)

	for i := 0; i < pairs; i++ {
		left := int16(binary.LittleEndian.Uint16(frame[i*StereoFrameStep:]))
		right := int16(binary.LittleEndian.Uint16(frame[i*StereoFrameStep+2:]))

		sample := int16((int32(left) + int32(right)) >> 1)
		binary.LittleEndian.PutUint16(mono[i*BytesPerSample:], uint16(sample))
	}

	return mono
}

// SamplesFromBytes reinterprets little-endian 16-bit PCM bytes as samples.
// A trailing odd byte is ignored.
func SamplesFromBytes(data []byte) []int16 {
	count := len(data) / BytesPerSample
	samples := make([]int16, count)

	for i := 0; i < count; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*BytesPerSample:]))
	}

	return samples
}

// BytesFromSamples encodes samples as little-endian 16-bit PCM bytes.
func BytesFromSamples(samples []int16) []byte {
	data := make([]byte, len(samples)*BytesPerSample)

	for i, sample := range samples {
		binary.LittleEndian.PutUint16(data[i*BytesPerSample:], uint16(sample))
	}

	return data
}
