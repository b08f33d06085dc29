package realtime

import (
	"encoding/base64"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/lavjo97/eolia-voice-relay/metrics"
)

// serverEvent covers every field we read from any provider event type.
// Unknown fields are ignored; unknown types fall through the switch.
type serverEvent struct {
	Type       string       `json:"type"`
	Delta      string       `json:"delta,omitempty"`
	Text       string       `json:"text,omitempty"`
	Transcript string       `json:"transcript,omitempty"`
	Item       *serverItem  `json:"item,omitempty"`
	Error      *serverError `json:"error,omitempty"`
}

type serverItem struct {
	Content []serverContent `json:"content"`
}

type serverContent struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	Transcript string `json:"transcript"`
}

type serverError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleServerEvent translates one provider event into zero or more typed
// Events. Assistant text arrives as deltas; the full reply is flushed as a
// single KindResponseText once the turn completes, so the decoder always
// sees complete JSON.
func (c *Client) handleServerEvent(data []byte) {
	var ev serverEvent
	if err := sonic.Unmarshal(data, &ev); err != nil {
		c.logger.Warn().Err(err).Msg("unparseable upstream event")
		return
	}

	metrics.UpstreamEvents.WithLabelValues(ev.Type).Inc()

	switch ev.Type {
	case "session.created":
		c.readyOnce.Do(func() { close(c.ready) })
		c.emit(Event{Kind: KindConnected})

	case "session.updated":
		// configuration acknowledged, nothing to surface

	case "input_audio_buffer.speech_started":
		c.emit(Event{Kind: KindSpeechStarted})

	case "input_audio_buffer.speech_stopped":
		c.emit(Event{Kind: KindSpeechStopped})

	case "conversation.item.input_audio_transcription.completed":
		c.emit(Event{Kind: KindTranscript, Text: ev.Transcript, Final: true})

	case "response.audio_transcript.delta", "response.text.delta":
		c.textBuf = append(c.textBuf, ev.Delta...)
		c.emit(Event{Kind: KindTranscript, Text: ev.Delta, Final: false})

	case "response.audio_transcript.done":
		c.flushResponseText(ev.Transcript)

	case "response.text.done":
		c.flushResponseText(ev.Text)

	case "response.output_item.done":
		// Some replies carry their text only on the completed item, with
		// no delta or .done text events preceding it.
		if ev.Item != nil {
			for _, part := range ev.Item.Content {
				if part.Text != "" {
					c.flushResponseText(part.Text)
					break
				}
				if part.Transcript != "" {
					c.flushResponseText(part.Transcript)
					break
				}
			}
		}

	case "response.audio.delta":
		pcm, err := base64.StdEncoding.DecodeString(ev.Delta)
		if err != nil {
			c.logger.Warn().Err(err).Msg("invalid audio delta")
			return
		}
		c.emit(Event{Kind: KindAudio, Audio: pcm})

	case "response.audio.done":
		c.emit(Event{Kind: KindAudioDone})

	case "response.done":
		// If no .done text event arrived, the accumulated deltas are the
		// reply. Flush before signaling completion.
		c.flushResponseText("")
		c.emit(Event{Kind: KindResponseDone})
		c.textBuf = c.textBuf[:0]
		c.textFlushed = false

	case "response.cancelled":
		c.textBuf = c.textBuf[:0]
		c.textFlushed = false

	case "error":
		msg := "upstream error"
		if ev.Error != nil {
			msg = fmt.Sprintf("%s: %s", ev.Error.Code, ev.Error.Message)
		}
		c.logger.Error().Str("detail", msg).Msg("upstream reported error")
		c.emit(Event{Kind: KindError, Err: fmt.Errorf("realtime: %s", msg)})

	default:
		c.logger.Debug().Str("type", ev.Type).Msg("ignoring upstream event")
	}
}

// flushResponseText emits the assistant's complete reply exactly once per
// turn. An explicit text from a .done event wins over the delta buffer.
func (c *Client) flushResponseText(full string) {
	if c.textFlushed {
		return
	}
	if full == "" {
		full = string(c.textBuf)
	}
	if full == "" {
		return
	}
	c.textFlushed = true
	c.emit(Event{Kind: KindResponseText, Text: full, Final: true})
}
