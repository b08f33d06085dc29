package voice

import "context"

// CaptureRate is the sample rate the upstream expects. Sources capturing at
// another rate must resample before delivering frames.
const CaptureRate = 24000

// CaptureSource produces microphone audio as float32 frames in [-1, 1] at
// CaptureRate. Implementations wrap whatever audio backend the platform
// provides; tests inject a scripted source.
type CaptureSource interface {
	// Start begins capture and returns the frame channel. The channel is
	// closed when capture ends, whether by Stop or by the context.
	Start(ctx context.Context) (<-chan []float32, error)
	// Stop ends capture and releases the device.
	Stop() error
}
