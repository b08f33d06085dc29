package realtime

import "time"

// DefaultURL is the OpenAI Realtime API endpoint.
const DefaultURL = "wss://api.openai.com/v1/realtime"

// DefaultModel is used when the config leaves the model empty.
const DefaultModel = "gpt-4o-realtime-preview-2024-12-17"

// VADConfig holds the server-side voice activity detection parameters sent
// in the session configuration.
type VADConfig struct {
	Threshold         float64
	PrefixPaddingMS   int
	SilenceDurationMS int
}

// DefaultVAD returns the detection parameters used by both relay variants.
func DefaultVAD() VADConfig {
	return VADConfig{
		Threshold:         0.5,
		PrefixPaddingMS:   300,
		SilenceDurationMS: 700,
	}
}

// Config describes one upstream session. Voice and model choices come from
// the relay configuration; instructions carry the domain system prompt.
type Config struct {
	APIKey             string
	URL                string
	Model              string
	Voice              string
	Instructions       string
	Modalities         []string // ["text"] or ["text","audio"]
	TranscriptionModel string
	VAD                VADConfig
	KeepAlive          time.Duration
}

func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Voice == "" {
		c.Voice = "alloy"
	}
	if len(c.Modalities) == 0 {
		c.Modalities = []string{"text"}
	}
	if c.TranscriptionModel == "" {
		c.TranscriptionModel = "whisper-1"
	}
	if c.VAD == (VADConfig{}) {
		c.VAD = DefaultVAD()
	}
	if c.KeepAlive <= 0 {
		c.KeepAlive = 30 * time.Second
	}
	return c
}
