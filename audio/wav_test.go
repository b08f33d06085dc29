package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestEncodeWAVLayout(t *testing.T) {
	// 0.1s of a 440Hz sine at 24kHz, the capture rate used by the clients.
	sampleRate := 24000
	numSamples := sampleRate / 10
	samples := make([]int16, numSamples)
	for i := range samples {
		ts := float64(i) / float64(sampleRate)
		samples[i] = int16(16383.0 * math.Sin(2*math.Pi*440*ts))
	}

	wavData, err := EncodeWAV(samples, sampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	expectedSize := 44 + len(samples)*2
	if len(wavData) != expectedSize {
		t.Errorf("Expected WAV size %d, got %d", expectedSize, len(wavData))
	}

	if string(wavData[0:4]) != "RIFF" || string(wavData[8:12]) != "WAVE" {
		t.Error("Missing RIFF/WAVE magic")
	}

	byteRate := binary.LittleEndian.Uint32(wavData[28:32])
	if byteRate != 48000 {
		t.Errorf("Expected ByteRate 48000, got %d", byteRate)
	}
	blockAlign := binary.LittleEndian.Uint16(wavData[32:34])
	if blockAlign != 2 {
		t.Errorf("Expected BlockAlign 2, got %d", blockAlign)
	}
	bitsPerSample := binary.LittleEndian.Uint16(wavData[34:36])
	if bitsPerSample != 16 {
		t.Errorf("Expected BitsPerSample 16, got %d", bitsPerSample)
	}
}

func TestDecodeWAVRoundTrip(t *testing.T) {
	originalSamples := []int16{100, -200, 300, -400, 500}
	sampleRate := 24000

	wavData, err := EncodeWAV(originalSamples, sampleRate)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	decoded, decodedRate, err := DecodeWAV(wavData)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if decodedRate != sampleRate {
		t.Errorf("Expected sample rate %d, got %d", sampleRate, decodedRate)
	}
	if len(decoded) != len(originalSamples) {
		t.Fatalf("Expected %d samples, got %d", len(originalSamples), len(decoded))
	}
	for i, original := range originalSamples {
		if decoded[i] != original {
			t.Errorf("Sample %d: expected %d, got %d", i, original, decoded[i])
		}
	}
}

func TestEncodeWAVEmpty(t *testing.T) {
	if _, err := EncodeWAV([]int16{}, 24000); err == nil {
		t.Error("Expected error for empty samples")
	}
}

func TestEncodeWAVInvalidSampleRate(t *testing.T) {
	samples := []int16{100, 200, 300}
	if _, err := EncodeWAV(samples, 0); err == nil {
		t.Error("Expected error for zero sample rate")
	}
	if _, err := EncodeWAV(samples, -24000); err == nil {
		t.Error("Expected error for negative sample rate")
	}
}

func TestDecodeWAVTooShort(t *testing.T) {
	if _, _, err := DecodeWAV([]byte{1, 2, 3}); err == nil {
		t.Error("Expected error for truncated WAV data")
	}
}
