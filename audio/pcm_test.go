package audio

import (
	"math"
	"testing"
)

func TestFloatToPCM16Clamps(t *testing.T) {
	samples := []float32{-2.0, -1.0, 0.0, 1.0, 2.0}
	pcm := FloatToPCM16(samples)

	expected := []int16{-32768, -32768, 0, 32767, 32767}
	for i, want := range expected {
		if pcm[i] != want {
			t.Errorf("Sample %d: expected %d, got %d", i, want, pcm[i])
		}
	}
}

func TestPCM16RoundTrip(t *testing.T) {
	// Round-trip must stay within one quantization step of 16-bit audio.
	const tolerance = 1.0 / 32767.0

	inputs := []float32{-1.0, -0.75, -0.5, -0.001, 0.0, 0.001, 0.25, 0.5, 0.999, 1.0}
	pcm := FloatToPCM16(inputs)
	back := PCM16ToFloat(pcm)

	for i, orig := range inputs {
		diff := math.Abs(float64(back[i]) - float64(orig))
		if diff > tolerance {
			t.Errorf("Sample %d (%f): round-trip drifted by %f", i, orig, diff)
		}
	}
}

func TestBytesToSamples(t *testing.T) {
	data := []byte{0x02, 0x01, 0x04, 0x03}
	samples := BytesToSamples(data)

	if len(samples) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(samples))
	}
	if samples[0] != 0x0102 {
		t.Errorf("Sample 0: expected 0x0102, got 0x%04x", samples[0])
	}
	if samples[1] != 0x0304 {
		t.Errorf("Sample 1: expected 0x0304, got 0x%04x", samples[1])
	}
}

func TestSamplesToBytesRoundTrip(t *testing.T) {
	samples := []int16{0x0102, -0x0304, 0, 32767, -32768}
	back := BytesToSamples(SamplesToBytes(samples))

	if len(back) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(back))
	}
	for i, s := range samples {
		if back[i] != s {
			t.Errorf("Sample %d: expected %d, got %d", i, s, back[i])
		}
	}
}

func TestDecodeBase64Invalid(t *testing.T) {
	if _, err := DecodeBase64("not base64!!!"); err == nil {
		t.Error("Expected error for malformed base64")
	}
}

func TestBase64RoundTrip(t *testing.T) {
	data := []byte{0x00, 0x01, 0xFF, 0x7F, 0x80}
	decoded, err := DecodeBase64(EncodeBase64(data))
	if err != nil {
		t.Fatalf("DecodeBase64 failed: %v", err)
	}
	if len(decoded) != len(data) {
		t.Fatalf("Expected %d bytes, got %d", len(data), len(decoded))
	}
	for i, b := range data {
		if decoded[i] != b {
			t.Errorf("Byte %d: expected 0x%02x, got 0x%02x", i, b, decoded[i])
		}
	}
}
