package playback

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Narration audio is not a self-describing container: every payload is raw
// PCM in this fixed encoding, by contract with the speech-synthesis side.
const (
	SampleRate     = 24000
	NumChannels    = 1
	BytesPerSample = 2 // 16-bit little-endian
)

// ErrMalformedAudio reports a payload that cannot be decoded as 16-bit PCM.
var ErrMalformedAudio = errors.New("malformed audio payload")

// DecodePCM converts the raw payload into normalized samples in [-1, 1).
func DecodePCM(data []byte) ([]float64, error) {
	if len(data)%BytesPerSample != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not aligned to 16-bit samples", ErrMalformedAudio, len(data))
	}
	samples := make([]float64, len(data)/BytesPerSample)
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(data[i*BytesPerSample:]))
		samples[i] = float64(s) / 32768.0
	}
	return samples, nil
}

// WAV wraps the raw payload in a RIFF header so browsers can play it
// directly.
func WAV(pcm []byte) ([]byte, error) {
	if len(pcm)%BytesPerSample != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not aligned to 16-bit samples", ErrMalformedAudio, len(pcm))
	}

	out := make([]byte, 0, 44+len(pcm))
	le := binary.LittleEndian

	u32 := func(v uint32) []byte {
		var b [4]byte
		le.PutUint32(b[:], v)
		return b[:]
	}
	u16 := func(v uint16) []byte {
		var b [2]byte
		le.PutUint16(b[:], v)
		return b[:]
	}

	out = append(out, "RIFF"...)
	out = append(out, u32(uint32(36+len(pcm)))...)
	out = append(out, "WAVE"...)
	out = append(out, "fmt "...)
	out = append(out, u32(16)...) // PCM chunk size
	out = append(out, u16(1)...)  // PCM format
	out = append(out, u16(NumChannels)...)
	out = append(out, u32(SampleRate)...)
	out = append(out, u32(SampleRate*NumChannels*BytesPerSample)...) // byte rate
	out = append(out, u16(NumChannels*BytesPerSample)...)            // block align
	out = append(out, u16(8*BytesPerSample)...)                      // bits per sample
	out = append(out, "data"...)
	out = append(out, u32(uint32(len(pcm)))...)
	out = append(out, pcm...)
	return out, nil
}
