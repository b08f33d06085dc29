package voice

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lavjo97/eolia-voice-relay/realtime"
)

type fakeTransport struct {
	mu      sync.Mutex
	events  chan realtime.Event
	ready   chan struct{}
	audio   [][]byte
	texts   []string
	commits int
	cancels int
	closed  bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		events: make(chan realtime.Event, 64),
		ready:  make(chan struct{}),
	}
}

func (f *fakeTransport) Connect(ctx context.Context) error { return nil }
func (f *fakeTransport) Ready() <-chan struct{}            { return f.ready }
func (f *fakeTransport) Events() <-chan realtime.Event     { return f.events }

func (f *fakeTransport) SendAudio(pcm []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = append(f.audio, pcm)
	return nil
}

func (f *fakeTransport) CommitAudio() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits++
	return nil
}

func (f *fakeTransport) SendText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeTransport) CancelResponse() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

func (f *fakeTransport) emitReady() {
	close(f.ready)
	f.events <- realtime.Event{Kind: realtime.KindConnected}
}

func (f *fakeTransport) audioChunks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.audio)
}

type fakeSource struct {
	mu      sync.Mutex
	frames  chan []float32
	stopped bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{frames: make(chan []float32, 16)}
}

func (f *fakeSource) Start(ctx context.Context) (<-chan []float32, error) {
	return f.frames, nil
}

func (f *fakeSource) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stopped {
		f.stopped = true
		close(f.frames)
	}
	return nil
}

func awaitState(t *testing.T, s *Session, cond func(State) bool) State {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-s.Updates():
			if cond(st) {
				return st
			}
		case <-deadline:
			t.Fatalf("state condition not reached, last: %+v", s.State())
		}
	}
}

func TestSessionConnectLifecycle(t *testing.T) {
	transport := newFakeTransport()
	sess := NewSession(transport, newFakeSource())

	require.NoError(t, sess.Connect(context.Background()))
	require.True(t, sess.State().IsConnecting)

	transport.emitReady()
	awaitState(t, sess, func(st State) bool { return st.IsConnected && !st.IsConnecting })
}

func TestStartListeningStreamsFrames(t *testing.T) {
	transport := newFakeTransport()
	source := newFakeSource()
	sess := NewSession(transport, source)

	require.NoError(t, sess.Connect(context.Background()))
	transport.emitReady()
	awaitState(t, sess, func(st State) bool { return st.IsConnected })

	require.NoError(t, sess.StartListening(context.Background()))
	require.True(t, sess.State().IsListening)

	source.frames <- []float32{0, 0.5, -0.5}
	source.frames <- []float32{1, -1}

	require.Eventually(t, func() bool { return transport.audioChunks() == 2 }, time.Second, 5*time.Millisecond)

	// Each float frame becomes 2 bytes per sample of PCM16.
	transport.mu.Lock()
	require.Len(t, transport.audio[0], 6)
	require.Len(t, transport.audio[1], 4)
	transport.mu.Unlock()

	require.NoError(t, sess.StopListening())
	require.False(t, sess.State().IsListening)
	require.True(t, sess.State().IsProcessing)
	require.Equal(t, 1, transport.commits)
}

func TestStartListeningGuards(t *testing.T) {
	transport := newFakeTransport()
	source := newFakeSource()
	sess := NewSession(transport, source)

	require.ErrorIs(t, sess.StartListening(context.Background()), ErrNotConnected)

	require.NoError(t, sess.Connect(context.Background()))
	transport.emitReady()
	awaitState(t, sess, func(st State) bool { return st.IsConnected })

	require.NoError(t, sess.StartListening(context.Background()))
	require.ErrorIs(t, sess.StartListening(context.Background()), ErrCaptureActive)

	require.NoError(t, sess.StopListening())
	// Stopping twice is harmless.
	require.NoError(t, sess.StopListening())
}

func TestSpeechEventsDriveState(t *testing.T) {
	transport := newFakeTransport()
	sess := NewSession(transport, newFakeSource())

	require.NoError(t, sess.Connect(context.Background()))
	transport.emitReady()

	transport.events <- realtime.Event{Kind: realtime.KindSpeechStarted}
	awaitState(t, sess, func(st State) bool { return st.IsSpeaking })

	transport.events <- realtime.Event{Kind: realtime.KindSpeechStopped}
	awaitState(t, sess, func(st State) bool { return !st.IsSpeaking && st.IsProcessing })

	transport.events <- realtime.Event{Kind: realtime.KindTranscript, Text: "ajoute une ligne peinture", Final: true}
	st := awaitState(t, sess, func(st State) bool { return st.Transcript != "" })
	require.Equal(t, "ajoute une ligne peinture", st.Transcript)
}

func TestResponseActionsUpdateDocument(t *testing.T) {
	transport := newFakeTransport()
	sess := NewSession(transport, newFakeSource())

	require.NoError(t, sess.Connect(context.Background()))
	transport.emitReady()
	awaitState(t, sess, func(st State) bool { return st.IsConnected })

	reply := `{"actions":[` +
		`{"type":"set_object","params":{"objet":"Rénovation cuisine"}},` +
		`{"type":"update_line","params":{"index":-1,"field":"designation","value":"Peinture murs"}}` +
		`],"message":"C'est noté"}`
	transport.events <- realtime.Event{Kind: realtime.KindResponseText, Text: reply, Final: true}
	transport.events <- realtime.Event{Kind: realtime.KindResponseDone}

	st := awaitState(t, sess, func(st State) bool { return len(st.Actions) == 2 && !st.IsProcessing })
	require.Equal(t, "C'est noté", st.Response)
	require.Equal(t, "Rénovation cuisine", st.Document.Objet)
	require.Len(t, st.Document.Lignes, 1)
	require.Equal(t, "Peinture murs", st.Document.Lignes[0].Designation)
}

func TestPlainTextResponse(t *testing.T) {
	transport := newFakeTransport()
	sess := NewSession(transport, newFakeSource())

	require.NoError(t, sess.Connect(context.Background()))
	transport.emitReady()

	transport.events <- realtime.Event{Kind: realtime.KindResponseText, Text: "Je n'ai pas compris", Final: true}

	st := awaitState(t, sess, func(st State) bool { return st.Response != "" })
	require.Equal(t, "Je n'ai pas compris", st.Response)
	require.Empty(t, st.Actions)
}

func TestSendTextRequiresConnection(t *testing.T) {
	transport := newFakeTransport()
	sess := NewSession(transport, newFakeSource())

	require.ErrorIs(t, sess.SendText("bonjour"), ErrNotConnected)

	require.NoError(t, sess.Connect(context.Background()))
	transport.emitReady()
	awaitState(t, sess, func(st State) bool { return st.IsConnected })

	require.NoError(t, sess.SendText("bonjour"))
	require.Equal(t, []string{"bonjour"}, transport.texts)
	require.True(t, sess.State().IsProcessing)
}

func TestResetRestoresBlankDocument(t *testing.T) {
	transport := newFakeTransport()
	sess := NewSession(transport, newFakeSource())

	require.NoError(t, sess.Connect(context.Background()))
	transport.emitReady()
	awaitState(t, sess, func(st State) bool { return st.IsConnected })

	transport.events <- realtime.Event{Kind: realtime.KindResponseText,
		Text: `{"actions":[{"type":"set_object","params":{"objet":"Toiture"}}],"message":"ok"}`, Final: true}
	awaitState(t, sess, func(st State) bool { return st.Document.Objet == "Toiture" })

	sess.Reset()
	st := sess.State()
	require.Empty(t, st.Document.Objet)
	require.Len(t, st.Document.Lignes, 1)
	require.Empty(t, st.Actions)
}

func TestDisconnectForcesIdle(t *testing.T) {
	transport := newFakeTransport()
	source := newFakeSource()
	sess := NewSession(transport, source)

	require.NoError(t, sess.Connect(context.Background()))
	transport.emitReady()
	awaitState(t, sess, func(st State) bool { return st.IsConnected })
	require.NoError(t, sess.StartListening(context.Background()))

	require.NoError(t, sess.Disconnect())
	st := sess.State()
	require.False(t, st.IsConnected)
	require.False(t, st.IsListening)
	require.True(t, transport.closed)

	// Second Disconnect is a no-op.
	require.NoError(t, sess.Disconnect())
}
