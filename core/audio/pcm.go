package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// DecodeBase64PCM16 turns a base64 audio payload into little-endian signed
// 16-bit samples. A trailing odd byte cannot form a sample and is dropped.
func DecodeBase64PCM16(payload string) ([]int16, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 audio: %w", err)
	}

	return BytesToPCM16(raw), nil
}

// EncodeBase64 encodes a frame for the wire.
func EncodeBase64(frame []byte) string {
	return base64.StdEncoding.EncodeToString(frame)
}

func BytesToPCM16(raw []byte) []int16 {
	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return samples
}

func PCM16ToBytes(samples []int16) []byte {
	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(s))
	}
	return raw
}
