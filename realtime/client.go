package realtime

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lavjo97/eolia-voice-relay/logging"
	"github.com/lavjo97/eolia-voice-relay/metrics"
)

const (
	writeTimeout     = 10 * time.Second
	handshakeTimeout = 15 * time.Second
	maxReconnects    = 3
	eventChannelSize = 256
)

// ErrClosed is returned by send operations after Close.
var ErrClosed = errors.New("realtime: client closed")

// ErrNotConnected is returned by send operations before Connect succeeds.
var ErrNotConnected = errors.New("realtime: not connected")

// Client maintains one WebSocket session to the OpenAI Realtime API. Server
// events are translated into typed Events and delivered on a buffered
// channel; the session is configured immediately after dialing and Ready()
// is closed once the provider acknowledges it.
type Client struct {
	cfg    Config
	logger zerolog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	ready     chan struct{}
	readyOnce sync.Once

	events     chan Event
	eventsOnce sync.Once

	done chan struct{} // closed when the read loop for the current conn exits

	reconnects int

	// assistant text accumulation for the current response turn
	textBuf     []byte
	textFlushed bool
}

// New creates a client for one upstream session. Connect must be called
// before any send operation.
func New(cfg Config) *Client {
	return &Client{
		cfg:    cfg.withDefaults(),
		logger: logging.WithComponent("realtime"),
		ready:  make(chan struct{}),
		events: make(chan Event, eventChannelSize),
	}
}

// Events returns the typed event stream. The channel is closed after Close
// or once reconnection attempts are exhausted.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Ready is closed when the provider acknowledges the session configuration.
// Audio sent before that point is accepted by the provider but callers that
// need strict ordering can wait on it.
func (c *Client) Ready() <-chan struct{} {
	return c.ready
}

// Connect dials the provider, configures the session and starts the read
// and keepalive loops.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.conn != nil {
		c.mu.Unlock()
		return errors.New("realtime: already connected")
	}
	c.mu.Unlock()

	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	if err := c.configureSession(); err != nil {
		c.teardownConn()
		return fmt.Errorf("configure session: %w", err)
	}

	go c.readLoop(conn, done)
	go c.keepAlive(conn, done)

	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	if c.cfg.APIKey == "" {
		return nil, errors.New("realtime: missing API key")
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	url := c.cfg.URL + "?model=" + c.cfg.Model

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial realtime API: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial realtime API: %w", err)
	}
	return conn, nil
}

func (c *Client) configureSession() error {
	update := sessionUpdate{
		Type: "session.update",
		Session: sessionConfig{
			Modalities:              c.cfg.Modalities,
			Instructions:            c.cfg.Instructions,
			Voice:                   c.cfg.Voice,
			InputAudioFormat:        "pcm16",
			OutputAudioFormat:       "pcm16",
			InputAudioTranscription: transcriptionModel{Model: c.cfg.TranscriptionModel},
			TurnDetection: turnDetection{
				Type:              "server_vad",
				Threshold:         c.cfg.VAD.Threshold,
				PrefixPaddingMS:   c.cfg.VAD.PrefixPaddingMS,
				SilenceDurationMS: c.cfg.VAD.SilenceDurationMS,
			},
		},
	}
	return c.send(update)
}

// SendAudio appends a chunk of raw PCM16 audio to the provider's input
// buffer. The chunk is base64-encoded on the wire.
func (c *Client) SendAudio(pcm []byte) error {
	return c.SendAudioBase64(base64.StdEncoding.EncodeToString(pcm))
}

// SendAudioBase64 appends already-encoded audio, avoiding a decode/encode
// round trip when the client delivered base64 in a JSON message.
func (c *Client) SendAudioBase64(audio string) error {
	return c.send(inputAudioBufferAppend{Type: "input_audio_buffer.append", Audio: audio})
}

// CommitAudio asks the provider to treat the buffered audio as a complete
// utterance. Unnecessary under server VAD but honored when the client
// requests an explicit end of turn.
func (c *Client) CommitAudio() error {
	return c.send(map[string]string{"type": "input_audio_buffer.commit"})
}

// ClearAudio discards any uncommitted input audio.
func (c *Client) ClearAudio() error {
	return c.send(map[string]string{"type": "input_audio_buffer.clear"})
}

// SendText submits a text turn and requests a response.
func (c *Client) SendText(text string) error {
	item := conversationItemCreate{
		Type: "conversation.item.create",
		Item: conversationItem{
			Type: "message",
			Role: "user",
			Content: []conversationItemContent{
				{Type: "input_text", Text: text},
			},
		},
	}
	if err := c.send(item); err != nil {
		return err
	}
	return c.send(map[string]string{"type": "response.create"})
}

// CancelResponse interrupts the in-flight assistant response, typically
// because the user started speaking again.
func (c *Client) CancelResponse() error {
	return c.send(map[string]string{"type": "response.cancel"})
}

// Close tears down the connection and closes the event channel. Safe to
// call more than once; no reconnection happens after Close.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.shutdownEvents()
	c.mu.Unlock()

	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}
	return nil
}

// shutdownEvents closes the event stream exactly once. Callers must hold
// c.mu: holding the lock across the close is what makes it safe against a
// concurrent emit, which sends while holding the same lock.
func (c *Client) shutdownEvents() {
	c.eventsOnce.Do(func() { close(c.events) })
}

func (c *Client) send(v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.conn == nil {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

func (c *Client) teardownConn() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (c *Client) keepAlive(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(c.cfg.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.closed || c.conn != conn {
				c.mu.Unlock()
				return
			}
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			c.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed || c.conn != conn
			c.mu.Unlock()
			if closed {
				return
			}
			c.logger.Warn().Err(err).Msg("upstream connection lost")
			c.teardownConn()
			c.reconnect()
			return
		}
		c.handleServerEvent(data)
	}
}

// reconnect re-dials and reconfigures the session after an unexpected drop.
// Gives up after maxReconnects attempts and closes the event stream so the
// consumer can surface the failure.
func (c *Client) reconnect() {
	for c.reconnects < maxReconnects {
		c.reconnects++
		attempt := c.reconnects

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		delay := time.Duration(attempt) * 2 * time.Second
		c.logger.Info().Int("attempt", attempt).Dur("delay", delay).Msg("reconnecting to realtime API")
		time.Sleep(delay)

		metrics.UpstreamReconnects.Inc()

		ctx, cancel := context.WithTimeout(context.Background(), handshakeTimeout)
		err := c.Connect(ctx)
		cancel()
		if err == nil {
			c.reconnects = 0
			return
		}
		if errors.Is(err, ErrClosed) {
			return
		}
		c.logger.Warn().Err(err).Int("attempt", attempt).Msg("reconnect failed")
	}

	c.logger.Error().Msg("reconnect attempts exhausted")
	c.emit(Event{Kind: KindError, Err: errors.New("realtime: connection lost")})
	c.emit(Event{Kind: KindDisconnected})

	c.mu.Lock()
	c.closed = true
	c.shutdownEvents()
	c.mu.Unlock()
}

// emit delivers an event without ever blocking the read loop. A full
// channel means the consumer stalled; dropping keeps the socket drained.
// The send happens under the mutex so it can never interleave with the
// channel close in Close or reconnect.
func (c *Client) emit(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- ev:
	default:
		c.logger.Warn().Str("kind", string(ev.Kind)).Msg("event channel full, dropping event")
	}
}
