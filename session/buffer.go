package session

import (
	"errors"
	"sync"
)

// ErrBufferFull is returned when appending would exceed the buffer's cap.
var ErrBufferFull = errors.New("audio buffer full")

// AudioBuffer holds client audio that arrives before the upstream session
// is ready. Once the session reports ready the buffer is flushed in arrival
// order and bypassed from then on.
type AudioBuffer struct {
	mu        sync.Mutex
	chunks    [][]byte
	totalSize int
	maxSize   int
}

// NewAudioBuffer creates a buffer capped at maxSize bytes.
func NewAudioBuffer(maxSize int) *AudioBuffer {
	return &AudioBuffer{maxSize: maxSize}
}

// MaxSize returns the buffer's byte cap.
func (ab *AudioBuffer) MaxSize() int {
	return ab.maxSize
}

// Append adds a chunk, returning ErrBufferFull if it would exceed the cap.
func (ab *AudioBuffer) Append(chunk []byte) error {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	newSize := ab.totalSize + len(chunk)
	if newSize > ab.maxSize {
		return ErrBufferFull
	}

	ab.chunks = append(ab.chunks, chunk)
	ab.totalSize = newSize
	return nil
}

// Flush returns all buffered chunks in arrival order and empties the buffer.
func (ab *AudioBuffer) Flush() [][]byte {
	ab.mu.Lock()
	defer ab.mu.Unlock()

	chunks := ab.chunks
	ab.chunks = nil
	ab.totalSize = 0
	return chunks
}

// Clear discards buffered audio without returning it.
func (ab *AudioBuffer) Clear() {
	ab.mu.Lock()
	defer ab.mu.Unlock()
	ab.chunks = nil
	ab.totalSize = 0
}

// Size returns the total buffered bytes.
func (ab *AudioBuffer) Size() int {
	ab.mu.Lock()
	defer ab.mu.Unlock()
	return ab.totalSize
}

// IsEmpty reports whether any chunks are buffered.
func (ab *AudioBuffer) IsEmpty() bool {
	ab.mu.Lock()
	defer ab.mu.Unlock()
	return len(ab.chunks) == 0
}
