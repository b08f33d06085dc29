package realtime

// EventKind identifies an upstream session event after translation from the
// provider's wire vocabulary.
type EventKind string

const (
	KindConnected     EventKind = "connected"
	KindDisconnected  EventKind = "disconnected"
	KindError         EventKind = "error"
	KindSpeechStarted EventKind = "speech_started"
	KindSpeechStopped EventKind = "speech_stopped"
	KindTranscript    EventKind = "transcript"
	KindResponseText  EventKind = "response_text"
	KindAudio         EventKind = "audio"
	KindAudioDone     EventKind = "audio_done"
	KindResponseDone  EventKind = "response_done"
)

// Event is one typed upstream event. Consumers range over Client.Events()
// instead of wiring raw socket callbacks, so the decode/reduce pipeline can
// be driven by a deterministic event sequence in tests.
type Event struct {
	Kind  EventKind
	Text  string // transcript or response text
	Final bool   // transcript finality
	Audio []byte // decoded audio for KindAudio
	Err   error  // set for KindError
}

// Client -> provider wire messages.

type sessionUpdate struct {
	Type    string        `json:"type"`
	Session sessionConfig `json:"session"`
}

type sessionConfig struct {
	Modalities              []string           `json:"modalities"`
	Instructions            string             `json:"instructions"`
	Voice                   string             `json:"voice"`
	InputAudioFormat        string             `json:"input_audio_format"`
	OutputAudioFormat       string             `json:"output_audio_format"`
	InputAudioTranscription transcriptionModel `json:"input_audio_transcription"`
	TurnDetection           turnDetection      `json:"turn_detection"`
}

type transcriptionModel struct {
	Model string `json:"model"`
}

type turnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMS   int     `json:"prefix_padding_ms"`
	SilenceDurationMS int     `json:"silence_duration_ms"`
}

type inputAudioBufferAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

type conversationItemCreate struct {
	Type string           `json:"type"`
	Item conversationItem `json:"item"`
}

type conversationItem struct {
	Type    string                    `json:"type"`
	Role    string                    `json:"role"`
	Content []conversationItemContent `json:"content"`
}

type conversationItemContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
