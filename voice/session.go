package voice

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lavjo97/eolia-voice-relay/action"
	"github.com/lavjo97/eolia-voice-relay/audio"
	"github.com/lavjo97/eolia-voice-relay/devis"
	"github.com/lavjo97/eolia-voice-relay/logging"
	"github.com/lavjo97/eolia-voice-relay/realtime"
)

// ErrCaptureActive is returned by StartListening while a capture is already
// running.
var ErrCaptureActive = errors.New("voice: capture already active")

// ErrNotConnected is returned when an operation needs a live transport.
var ErrNotConnected = errors.New("voice: not connected")

const readyTimeout = 10 * time.Second

// Transport is the upstream session as the voice layer sees it.
// *realtime.Client satisfies it; tests substitute a scripted fake.
type Transport interface {
	Connect(ctx context.Context) error
	Ready() <-chan struct{}
	Events() <-chan realtime.Event
	SendAudio(pcm []byte) error
	CommitAudio() error
	SendText(text string) error
	CancelResponse() error
	Close() error
}

// State is a snapshot of the voice session, published after every change so
// a UI can render from it directly.
type State struct {
	IsConnected  bool
	IsConnecting bool
	IsListening  bool
	IsSpeaking   bool // user speech detected by server VAD
	IsProcessing bool // awaiting the assistant's reply
	Transcript   string
	Response     string
	LastError    error
	Actions      []action.Action
	Document     devis.Devis
}

// Session drives one voice interaction: it connects the transport, streams
// capture frames upstream and folds decoded actions into the working
// document.
type Session struct {
	transport Transport
	source    CaptureSource
	logger    zerolog.Logger

	mu       sync.Mutex
	state    State
	capture  context.CancelFunc // nil when not listening
	captured sync.WaitGroup

	updates chan State

	closeOnce sync.Once
}

// NewSession creates a voice session around a transport and capture source.
// The document starts as a fresh quote with one blank line.
func NewSession(transport Transport, source CaptureSource) *Session {
	return &Session{
		transport: transport,
		source:    source,
		logger:    logging.WithComponent("voice"),
		state:     State{Document: devis.New()},
		updates:   make(chan State, 64),
	}
}

// Updates returns the state snapshot stream. Snapshots are dropped, never
// blocked on, when the consumer lags; State() always has the latest.
func (s *Session) Updates() <-chan State {
	return s.updates
}

// State returns the current snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	snapshot := s.state
	s.mu.Unlock()

	select {
	case s.updates <- snapshot:
	default:
	}
}

// Connect dials the transport and starts consuming its events.
func (s *Session) Connect(ctx context.Context) error {
	s.setState(func(st *State) { st.IsConnecting = true; st.LastError = nil })

	if err := s.transport.Connect(ctx); err != nil {
		s.setState(func(st *State) { st.IsConnecting = false; st.LastError = err })
		return err
	}

	go s.consumeEvents()
	return nil
}

// StartListening waits for the transport to be ready, then streams capture
// frames upstream until StopListening or the context ends.
func (s *Session) StartListening(ctx context.Context) error {
	s.mu.Lock()
	if s.capture != nil {
		s.mu.Unlock()
		return ErrCaptureActive
	}
	connected := s.state.IsConnected || s.state.IsConnecting
	s.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}

	select {
	case <-s.transport.Ready():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(readyTimeout):
		return errors.New("voice: timed out waiting for session")
	}

	captureCtx, cancel := context.WithCancel(ctx)
	frames, err := s.source.Start(captureCtx)
	if err != nil {
		cancel()
		s.setState(func(st *State) { st.LastError = err })
		return err
	}

	s.mu.Lock()
	s.capture = cancel
	s.mu.Unlock()
	s.setState(func(st *State) { st.IsListening = true; st.Transcript = ""; st.Response = "" })

	s.captured.Add(1)
	go s.pumpFrames(frames)
	return nil
}

func (s *Session) pumpFrames(frames <-chan []float32) {
	defer s.captured.Done()
	for frame := range frames {
		pcm := audio.SamplesToBytes(audio.FloatToPCM16(frame))
		if err := s.transport.SendAudio(pcm); err != nil {
			s.logger.Warn().Err(err).Msg("dropping capture frame")
			s.setState(func(st *State) { st.LastError = err })
			return
		}
	}
}

// StopListening ends capture and commits the buffered utterance so the
// assistant responds even when VAD missed the end of speech.
func (s *Session) StopListening() error {
	s.mu.Lock()
	cancel := s.capture
	s.capture = nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	err := s.source.Stop()
	s.captured.Wait()

	s.setState(func(st *State) { st.IsListening = false; st.IsProcessing = true })

	if commitErr := s.transport.CommitAudio(); commitErr != nil && err == nil {
		err = commitErr
	}
	return err
}

// SendText submits a typed message through the same pipeline as speech.
func (s *Session) SendText(text string) error {
	s.mu.Lock()
	connected := s.state.IsConnected
	s.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}

	s.setState(func(st *State) { st.IsProcessing = true; st.Transcript = text })
	return s.transport.SendText(text)
}

// Cancel interrupts the in-flight assistant response.
func (s *Session) Cancel() error {
	return s.transport.CancelResponse()
}

// Reset replaces the working document with a fresh quote.
func (s *Session) Reset() {
	s.setState(func(st *State) {
		st.Document = devis.New()
		st.Actions = nil
		st.Transcript = ""
		st.Response = ""
	})
}

// Disconnect stops capture, closes the transport and forces the state back
// to idle. Idempotent.
func (s *Session) Disconnect() error {
	var err error
	s.closeOnce.Do(func() {
		s.StopListening()
		err = s.transport.Close()
		s.setState(func(st *State) {
			st.IsConnected = false
			st.IsConnecting = false
			st.IsListening = false
			st.IsSpeaking = false
			st.IsProcessing = false
		})
	})
	return err
}

// consumeEvents folds transport events into the state machine.
func (s *Session) consumeEvents() {
	for ev := range s.transport.Events() {
		switch ev.Kind {
		case realtime.KindConnected:
			s.setState(func(st *State) {
				st.IsConnected = true
				st.IsConnecting = false
			})

		case realtime.KindSpeechStarted:
			s.setState(func(st *State) { st.IsSpeaking = true })

		case realtime.KindSpeechStopped:
			s.setState(func(st *State) {
				st.IsSpeaking = false
				st.IsProcessing = true
			})

		case realtime.KindTranscript:
			if ev.Final {
				s.setState(func(st *State) { st.Transcript = ev.Text })
			}

		case realtime.KindResponseText:
			s.applyResponse(ev.Text)

		case realtime.KindResponseDone:
			s.setState(func(st *State) { st.IsProcessing = false })

		case realtime.KindError:
			s.setState(func(st *State) {
				st.LastError = ev.Err
				st.IsProcessing = false
			})

		case realtime.KindDisconnected:
			s.setState(func(st *State) {
				st.IsConnected = false
				st.IsListening = false
				st.IsSpeaking = false
				st.IsProcessing = false
			})
		}
	}
}

// applyResponse decodes the assistant's reply and applies any actions to
// the working document.
func (s *Session) applyResponse(text string) {
	result := action.Decode(text)

	s.setState(func(st *State) {
		if !result.Parsed {
			st.Response = text
			return
		}
		st.Response = result.Message
		st.Actions = result.Actions
		if len(result.Actions) > 0 {
			st.Document = devis.Apply(st.Document, result.Actions)
		}
	})
}
