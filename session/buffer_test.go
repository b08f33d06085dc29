package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAudioBufferAppendAndFlush(t *testing.T) {
	buf := NewAudioBuffer(1024)
	require.True(t, buf.IsEmpty())

	require.NoError(t, buf.Append([]byte{1, 2}))
	require.NoError(t, buf.Append([]byte{3}))
	require.Equal(t, 3, buf.Size())

	chunks := buf.Flush()
	require.Equal(t, [][]byte{{1, 2}, {3}}, chunks, "chunks must keep arrival order")
	require.True(t, buf.IsEmpty())
	require.Nil(t, buf.Flush())
}

func TestAudioBufferFull(t *testing.T) {
	buf := NewAudioBuffer(4)

	require.NoError(t, buf.Append([]byte{1, 2, 3}))
	require.ErrorIs(t, buf.Append([]byte{4, 5}), ErrBufferFull)

	// The rejected chunk must not be partially kept.
	require.Equal(t, 3, buf.Size())

	require.NoError(t, buf.Append([]byte{4}))
	require.Equal(t, 4, buf.Size())
}

func TestAudioBufferClear(t *testing.T) {
	buf := NewAudioBuffer(16)
	require.NoError(t, buf.Append([]byte{1}))
	buf.Clear()
	require.True(t, buf.IsEmpty())
	require.Equal(t, 0, buf.Size())
}
