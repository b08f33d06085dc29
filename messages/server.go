package messages

import "github.com/lavjo97/eolia-voice-relay/action"

// Outbound control message types (relay -> client)
const (
	TypeConnected               = "connected"
	TypeSpeechStarted           = "speech_started"
	TypeSpeechStopped           = "speech_stopped"
	TypeTranscript              = "transcript"
	TypeResponseTranscriptDelta = "response_transcript_delta"
	TypeResponseText            = "response_text"
	TypeIntent                  = "intent"
	TypeAudioDelta              = "audio_delta"
	TypeAudioDone               = "audio_done"
	TypeResponseDone            = "response_done"
	TypeError                   = "error"
	TypeStopped                 = "stopped"
)

// Intent carries the assistant's decoded structured output.
type Intent struct {
	Actions []action.Action `json:"actions"`
	Message string          `json:"message,omitempty"`
}

// ServerMessage represents a message sent to the client.
type ServerMessage struct {
	Type    string  `json:"type"`
	Message string  `json:"message,omitempty"`
	Text    string  `json:"text,omitempty"`
	Delta   string  `json:"delta,omitempty"`
	Audio   string  `json:"audio,omitempty"` // base64-encoded PCM16
	Intent  *Intent `json:"intent,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// NewConnectedMessage signals that the upstream session is established.
func NewConnectedMessage(message string) *ServerMessage {
	return &ServerMessage{Type: TypeConnected, Message: message}
}

// NewSpeechStartedMessage signals server-side VAD detected speech.
func NewSpeechStartedMessage() *ServerMessage {
	return &ServerMessage{Type: TypeSpeechStarted}
}

// NewSpeechStoppedMessage signals server-side VAD detected end of speech.
func NewSpeechStoppedMessage() *ServerMessage {
	return &ServerMessage{Type: TypeSpeechStopped}
}

// NewTranscriptMessage carries the final transcript of the user's speech.
func NewTranscriptMessage(text string) *ServerMessage {
	return &ServerMessage{Type: TypeTranscript, Text: text}
}

// NewResponseTranscriptDeltaMessage carries an incremental piece of the
// assistant's reply.
func NewResponseTranscriptDeltaMessage(delta string) *ServerMessage {
	return &ServerMessage{Type: TypeResponseTranscriptDelta, Delta: delta}
}

// NewResponseTextMessage carries assistant output that did not decode to
// actions.
func NewResponseTextMessage(text string) *ServerMessage {
	return &ServerMessage{Type: TypeResponseText, Text: text}
}

// NewIntentMessage carries the assistant's decoded action list.
func NewIntentMessage(actions []action.Action, message string) *ServerMessage {
	return &ServerMessage{Type: TypeIntent, Intent: &Intent{Actions: actions, Message: message}}
}

// NewAudioDeltaMessage carries a chunk of synthesized speech.
func NewAudioDeltaMessage(audioBase64 string) *ServerMessage {
	return &ServerMessage{Type: TypeAudioDelta, Audio: audioBase64}
}

// NewAudioDoneMessage signals the end of the synthesized speech stream.
func NewAudioDoneMessage() *ServerMessage {
	return &ServerMessage{Type: TypeAudioDone}
}

// NewResponseDoneMessage signals the assistant turn is complete.
func NewResponseDoneMessage() *ServerMessage {
	return &ServerMessage{Type: TypeResponseDone}
}

// NewErrorMessage reports a relay or upstream error.
func NewErrorMessage(err string) *ServerMessage {
	return &ServerMessage{Type: TypeError, Error: err}
}

// NewStoppedMessage acknowledges that the upstream session was closed.
func NewStoppedMessage() *ServerMessage {
	return &ServerMessage{Type: TypeStopped}
}
