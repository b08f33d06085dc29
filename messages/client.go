package messages

// Inbound control message types (client -> relay). Binary WebSocket frames
// bypass this vocabulary entirely: they are always raw PCM16 audio.
const (
	TypeStart       = "start"
	TypeStop        = "stop"
	TypeAudio       = "audio"
	TypeCommitAudio = "commit_audio"
	TypeText        = "text"
	TypeCancel      = "cancel"
)

// ClientMessage represents a JSON control message from the client.
type ClientMessage struct {
	Type  string `json:"type"`
	Audio string `json:"audio,omitempty"` // base64-encoded PCM16
	Text  string `json:"text,omitempty"`
}
