package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

const wavHeaderSize = 44

// WAVHeader is the canonical 44-byte RIFF/WAVE PCM header.
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // file size - 8
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

// EncodeWAV encodes float samples in [-1, 1] as mono 16-bit PCM WAV at the
// source sample rate. Out-of-range samples are clamped.
func EncodeWAV(samples []float32, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	pcm := make([]int16, len(samples))
	for i, s := range samples {
		pcm[i] = floatToPCM16(s)
	}
	return encodePCM16(pcm, sampleRate)
}

func floatToPCM16(s float32) int16 {
	v := math.Max(-1, math.Min(1, float64(s)))
	if v < 0 {
		return int16(v * 0x8000)
	}
	return int16(v * 0x7fff)
}

func encodePCM16(pcm []int16, sampleRate int) ([]byte, error) {
	const (
		numChannels   = uint16(1)
		bitsPerSample = uint16(16)
	)
	dataSize := uint32(len(pcm) * 2)

	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   numChannels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(numChannels) * uint32(bitsPerSample) / 8,
		BlockAlign:    numChannels * bitsPerSample / 8,
		BitsPerSample: bitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)*2))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, pcm); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}
	return buf.Bytes(), nil
}

// ValidateWAV checks the chunk markers without decoding samples.
func ValidateWAV(data []byte) error {
	if len(data) < wavHeaderSize {
		return fmt.Errorf("WAV data too short: need at least %d bytes, got %d", wavHeaderSize, len(data))
	}
	if string(data[0:4]) != "RIFF" {
		return fmt.Errorf("invalid WAV file: missing RIFF header")
	}
	if string(data[8:12]) != "WAVE" {
		return fmt.Errorf("invalid WAV file: missing WAVE format")
	}
	if string(data[12:16]) != "fmt " {
		return fmt.Errorf("invalid WAV file: missing fmt chunk")
	}
	if string(data[36:40]) != "data" {
		return fmt.Errorf("invalid WAV file: missing data chunk")
	}
	return nil
}

type WAVInfo struct {
	SampleRate    uint32  `json:"sample_rate"`
	Channels      uint16  `json:"channels"`
	BitsPerSample uint16  `json:"bits_per_sample"`
	Duration      float64 `json:"duration_seconds"`
	DataSize      uint32  `json:"data_size_bytes"`
}

func ReadWAVInfo(data []byte) (*WAVInfo, error) {
	if err := ValidateWAV(data); err != nil {
		return nil, err
	}

	var h WAVHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}
	if h.SampleRate == 0 || h.BitsPerSample == 0 || h.NumChannels == 0 {
		return nil, fmt.Errorf("invalid WAV header: rate=%d bits=%d channels=%d", h.SampleRate, h.BitsPerSample, h.NumChannels)
	}

	frameBytes := uint32(h.BitsPerSample/8) * uint32(h.NumChannels)
	return &WAVInfo{
		SampleRate:    h.SampleRate,
		Channels:      h.NumChannels,
		BitsPerSample: h.BitsPerSample,
		Duration:      float64(h.Subchunk2Size/frameBytes) / float64(h.SampleRate),
		DataSize:      h.Subchunk2Size,
	}, nil
}

// SilentWAV is the near-silent buffer played during unlock.
func SilentWAV(sampleRate int, seconds float64) []byte {
	n := int(float64(sampleRate) * seconds)
	b, _ := encodePCM16(make([]int16, n), sampleRate)
	return b
}

// ToneWAV synthesizes a sine tone with a linear attack and release.
func ToneWAV(sampleRate int, freqHz, seconds, gain float64) []byte {
	n := int(float64(sampleRate) * seconds)
	ramp := n / 5
	pcm := make([]int16, n)
	for i := range pcm {
		env := 1.0
		switch {
		case ramp > 0 && i < ramp:
			env = float64(i) / float64(ramp)
		case ramp > 0 && i >= n-ramp:
			env = float64(n-i) / float64(ramp)
		}
		v := gain * env * math.Sin(2*math.Pi*freqHz*float64(i)/float64(sampleRate))
		pcm[i] = floatToPCM16(float32(v))
	}
	b, _ := encodePCM16(pcm, sampleRate)
	return b
}
