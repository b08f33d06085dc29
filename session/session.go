package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lavjo97/eolia-voice-relay/action"
	"github.com/lavjo97/eolia-voice-relay/config"
	"github.com/lavjo97/eolia-voice-relay/logging"
	"github.com/lavjo97/eolia-voice-relay/messages"
	"github.com/lavjo97/eolia-voice-relay/metrics"
	"github.com/lavjo97/eolia-voice-relay/realtime"
)

const (
	writeBufferSize = 256
	writeTimeout    = 10 * time.Second
	maxReadLimit    = 512 * 1024
)

// Status describes the session's relationship to the upstream provider.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusError      Status = "error"
	StatusClosed     Status = "closed"
)

// ClientSession bridges one client WebSocket to one upstream realtime
// session. The upstream is dialed lazily on the first "start" (or "text")
// message and can be stopped and restarted over the life of the socket.
type ClientSession struct {
	ID           string
	ClientConn   *websocket.Conn
	AudioBuffer  *AudioBuffer
	CreatedAt    time.Time
	LastActivity time.Time

	cfg    *config.Config
	logger zerolog.Logger

	// single-writer queue for the client socket
	writeChan chan any

	mu       sync.RWMutex
	status   Status
	upstream *realtime.Client
	ready    bool // upstream acknowledged, audio can bypass the buffer
	closed   bool

	CloseChan chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClientSession wraps an upgraded client connection. The upstream is not
// dialed here; that waits for the client's start message.
func NewClientSession(id string, clientConn *websocket.Conn, cfg *config.Config) *ClientSession {
	ctx, cancel := context.WithCancel(context.Background())

	clientConn.SetReadLimit(maxReadLimit)
	clientConn.EnableWriteCompression(true)
	clientConn.SetCompressionLevel(6)

	return &ClientSession{
		ID:           id,
		ClientConn:   clientConn,
		AudioBuffer:  NewAudioBuffer(cfg.MaxBufferSize),
		CreatedAt:    time.Now(),
		LastActivity: time.Now(),
		cfg:          cfg,
		logger:       logging.WithSession("session", id),
		writeChan:    make(chan any, writeBufferSize),
		status:       StatusIdle,
		CloseChan:    make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start begins the read and write loops.
func (cs *ClientSession) Start() {
	go cs.writePump()
	go cs.handleClientMessages()
}

// GetStatus returns the current upstream status.
func (cs *ClientSession) GetStatus() Status {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.status
}

func (cs *ClientSession) setStatus(s Status) {
	cs.mu.Lock()
	cs.status = s
	cs.mu.Unlock()
}

// writePump handles all outgoing client messages in a single goroutine.
func (cs *ClientSession) writePump() {
	defer func() {
		cs.ClientConn.SetWriteDeadline(time.Now().Add(writeTimeout))
		cs.ClientConn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
	}()

	for {
		select {
		case <-cs.CloseChan:
			return
		case msg, ok := <-cs.writeChan:
			if !ok {
				return
			}
			cs.ClientConn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cs.ClientConn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

// queueMessage adds a message to the write queue without blocking. The send
// happens under the mutex so it can never interleave with Close closing the
// channel.
func (cs *ClientSession) queueMessage(msg any) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.closed {
		return
	}
	select {
	case cs.writeChan <- msg:
		cs.LastActivity = time.Now()
	default:
		cs.logger.Warn().Msg("write queue full, dropping message")
	}
}

func (cs *ClientSession) handleClientMessages() {
	defer cs.Close()

	for {
		select {
		case <-cs.CloseChan:
			return
		default:
			messageType, message, err := cs.ClientConn.ReadMessage()
			if err != nil {
				return
			}

			cs.mu.Lock()
			cs.LastActivity = time.Now()
			cs.mu.Unlock()

			// Binary frames are always raw PCM16 audio.
			if messageType == websocket.BinaryMessage {
				cs.forwardAudio(message)
				continue
			}

			var clientMsg messages.ClientMessage
			if err := sonic.Unmarshal(message, &clientMsg); err != nil {
				cs.queueMessage(messages.NewErrorMessage("invalid message format"))
				continue
			}
			cs.processClientMessage(&clientMsg)
		}
	}
}

func (cs *ClientSession) processClientMessage(msg *messages.ClientMessage) {
	switch msg.Type {
	case messages.TypeStart:
		if err := cs.startUpstream(); err != nil {
			cs.setStatus(StatusError)
			cs.queueMessage(messages.NewErrorMessage(err.Error()))
		}

	case messages.TypeStop:
		cs.stopUpstream()
		cs.queueMessage(messages.NewStoppedMessage())

	case messages.TypeAudio:
		audio, err := base64.StdEncoding.DecodeString(msg.Audio)
		if err != nil {
			cs.queueMessage(messages.NewErrorMessage("invalid base64 audio"))
			return
		}
		cs.forwardAudio(audio)

	case messages.TypeCommitAudio:
		if up := cs.currentUpstream(); up != nil {
			if err := up.CommitAudio(); err != nil {
				cs.queueMessage(messages.NewErrorMessage(err.Error()))
			}
		}

	case messages.TypeText:
		if err := cs.startUpstream(); err != nil {
			cs.setStatus(StatusError)
			cs.queueMessage(messages.NewErrorMessage(err.Error()))
			return
		}
		if err := cs.currentUpstream().SendText(msg.Text); err != nil {
			cs.queueMessage(messages.NewErrorMessage(err.Error()))
		}

	case messages.TypeCancel:
		if up := cs.currentUpstream(); up != nil {
			if err := up.CancelResponse(); err != nil {
				cs.queueMessage(messages.NewErrorMessage(err.Error()))
			}
		}

	default:
		cs.queueMessage(messages.NewErrorMessage("unknown message type: " + msg.Type))
	}
}

// forwardAudio streams audio upstream, buffering while the session is still
// being established.
func (cs *ClientSession) forwardAudio(pcm []byte) {
	cs.mu.RLock()
	up := cs.upstream
	ready := cs.ready
	cs.mu.RUnlock()

	if up == nil || !ready {
		if err := cs.AudioBuffer.Append(pcm); err != nil {
			cs.queueMessage(messages.NewErrorMessage(
				fmt.Sprintf("audio buffer full (max %d bytes)", cs.AudioBuffer.MaxSize())))
		}
		return
	}

	if err := up.SendAudio(pcm); err != nil {
		cs.queueMessage(messages.NewErrorMessage(err.Error()))
		return
	}
	metrics.AudioBytesForwarded.Add(float64(len(pcm)))
}

func (cs *ClientSession) currentUpstream() *realtime.Client {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.upstream
}

// startUpstream dials the realtime API if no session is active.
func (cs *ClientSession) startUpstream() error {
	cs.mu.Lock()
	if cs.upstream != nil {
		cs.mu.Unlock()
		return nil
	}
	cs.status = StatusConnecting

	client := realtime.New(realtime.Config{
		APIKey:       cs.cfg.OpenAIAPIKey,
		Model:        cs.cfg.OpenAIModel,
		Voice:        cs.cfg.OpenAIVoice,
		Instructions: systemPrompt,
		Modalities:   cs.cfg.Modalities,
		VAD: realtime.VADConfig{
			Threshold:         0.5,
			PrefixPaddingMS:   300,
			SilenceDurationMS: cs.cfg.VADSilenceMS,
		},
		KeepAlive: cs.cfg.KeepAlivePeriod,
	})
	cs.upstream = client
	cs.mu.Unlock()

	ctx, cancel := context.WithTimeout(cs.ctx, 15*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		cs.mu.Lock()
		cs.upstream = nil
		cs.status = StatusError
		cs.mu.Unlock()
		return fmt.Errorf("connect upstream: %w", err)
	}

	go cs.consumeUpstream(client)
	return nil
}

// stopUpstream closes the realtime session but keeps the client socket so
// the user can start another voice turn later.
func (cs *ClientSession) stopUpstream() {
	cs.mu.Lock()
	up := cs.upstream
	cs.upstream = nil
	cs.ready = false
	cs.status = StatusIdle
	cs.mu.Unlock()

	cs.AudioBuffer.Clear()
	if up != nil {
		up.Close()
	}
}

// consumeUpstream translates typed realtime events into client messages.
func (cs *ClientSession) consumeUpstream(client *realtime.Client) {
	for ev := range client.Events() {
		switch ev.Kind {
		case realtime.KindConnected:
			cs.setStatus(StatusConnected)
			cs.queueMessage(messages.NewConnectedMessage("session established"))
			cs.flushBufferedAudio(client)

		case realtime.KindSpeechStarted:
			cs.queueMessage(messages.NewSpeechStartedMessage())

		case realtime.KindSpeechStopped:
			cs.queueMessage(messages.NewSpeechStoppedMessage())

		case realtime.KindTranscript:
			if ev.Final {
				cs.queueMessage(messages.NewTranscriptMessage(ev.Text))
			} else {
				cs.queueMessage(messages.NewResponseTranscriptDeltaMessage(ev.Text))
			}

		case realtime.KindResponseText:
			cs.handleResponseText(ev.Text)

		case realtime.KindAudio:
			cs.queueMessage(messages.NewAudioDeltaMessage(base64.StdEncoding.EncodeToString(ev.Audio)))

		case realtime.KindAudioDone:
			cs.queueMessage(messages.NewAudioDoneMessage())

		case realtime.KindResponseDone:
			cs.queueMessage(messages.NewResponseDoneMessage())

		case realtime.KindError:
			cs.logger.Error().Err(ev.Err).Msg("upstream error")
			cs.queueMessage(messages.NewErrorMessage(ev.Err.Error()))

		case realtime.KindDisconnected:
			cs.logger.Info().Msg("upstream disconnected")
		}
	}

	// The event stream closes when the upstream is gone for good. If this
	// session still owns that client, fall back to idle so the user can
	// start over.
	cs.mu.Lock()
	if cs.upstream == client {
		cs.upstream = nil
		cs.ready = false
		if cs.status != StatusClosed {
			cs.status = StatusError
		}
	}
	cs.mu.Unlock()
}

// handleResponseText runs the assistant's reply through the action decoder.
// Structured output becomes an intent message; anything else is passed on
// as plain text.
func (cs *ClientSession) handleResponseText(text string) {
	result := action.Decode(text)
	if result.Parsed {
		for _, a := range result.Actions {
			metrics.ActionsDecoded.WithLabelValues(string(a.Type)).Inc()
		}
		cs.queueMessage(messages.NewIntentMessage(result.Actions, result.Message))
		return
	}
	cs.queueMessage(messages.NewResponseTextMessage(text))
}

// flushBufferedAudio drains audio captured while the upstream was
// connecting.
func (cs *ClientSession) flushBufferedAudio(client *realtime.Client) {
	chunks := cs.AudioBuffer.Flush()

	cs.mu.Lock()
	cs.ready = true
	cs.mu.Unlock()

	for _, chunk := range chunks {
		if err := client.SendAudio(chunk); err != nil {
			cs.logger.Warn().Err(err).Msg("failed to flush buffered audio")
			return
		}
		metrics.AudioBytesForwarded.Add(float64(len(chunk)))
	}
}

// Close terminates the session and releases all resources. Idempotent.
func (cs *ClientSession) Close() error {
	cs.mu.Lock()
	if cs.closed {
		cs.mu.Unlock()
		return nil
	}
	cs.closed = true
	cs.status = StatusClosed
	up := cs.upstream
	cs.upstream = nil
	// Closed under the mutex, mirroring queueMessage's locked send.
	close(cs.writeChan)
	close(cs.CloseChan)
	cs.mu.Unlock()

	cs.cancel()

	cs.AudioBuffer.Clear()
	if up != nil {
		up.Close()
	}
	if cs.ClientConn != nil {
		cs.ClientConn.Close()
	}
	return nil
}

// IsClosed reports whether Close has run.
func (cs *ClientSession) IsClosed() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.closed
}
