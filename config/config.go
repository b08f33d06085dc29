package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all relay configuration
type Config struct {
	Port            int
	OpenAIAPIKey    string // server-held credential; may be empty, sessions are then rejected
	OpenAIModel     string
	OpenAIVoice     string
	Modalities      []string // ["text"] silent action-only mode, ["text","audio"] spoken mode
	VADSilenceMS    int      // server-side VAD silence duration
	RedisURL        string
	RedisPassword   string
	MaxSessions     int
	SessionTimeout  time.Duration
	AllowedOrigins  []string
	KeepAlivePeriod time.Duration
	MaxBufferSize   int // maximum audio buffer size in bytes per session
	LogLevel        string
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	config := &Config{
		Port:            8080,
		OpenAIModel:     "gpt-4o-realtime-preview-2024-12-17",
		OpenAIVoice:     "alloy",
		Modalities:      []string{"text"},
		VADSilenceMS:    700,
		RedisURL:        "localhost:6379",
		RedisPassword:   "",
		MaxSessions:     100,
		SessionTimeout:  30 * time.Minute,
		AllowedOrigins:  []string{"*"},
		KeepAlivePeriod: 30 * time.Second,
		MaxBufferSize:   5 * 1024 * 1024, // 5MB default
		LogLevel:        "info",
	}

	// OPENAI_API_KEY is deliberately allowed to be empty: the server still
	// starts (for health checks) but rejects every new session.
	config.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")

	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		config.OpenAIModel = model
	}

	if voice := os.Getenv("OPENAI_VOICE"); voice != "" {
		config.OpenAIVoice = voice
	}

	// Optional: RESPONSE_MODALITIES ("text" or "text,audio")
	if modalities := os.Getenv("RESPONSE_MODALITIES"); modalities != "" {
		parts := strings.Split(modalities, ",")
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
		}
		switch {
		case len(parts) == 1 && parts[0] == "text":
			config.Modalities = parts
		case len(parts) == 2 && parts[0] == "text" && parts[1] == "audio":
			config.Modalities = parts
		default:
			return nil, fmt.Errorf("invalid RESPONSE_MODALITIES: must be 'text' or 'text,audio'")
		}
	}

	// Optional: VAD_SILENCE_MS (500-800 depending on variant)
	if silence := os.Getenv("VAD_SILENCE_MS"); silence != "" {
		s, err := strconv.Atoi(silence)
		if err != nil {
			return nil, fmt.Errorf("invalid VAD_SILENCE_MS: %w", err)
		}
		config.VADSilenceMS = s
	}

	// Optional: PORT
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		config.Port = p
	}

	// Optional: REDIS_URL
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.RedisURL = redisURL
	}

	// Optional: REDIS_PASSWORD
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.RedisPassword = redisPassword
	}

	// Optional: MAX_SESSIONS
	if maxSessions := os.Getenv("MAX_SESSIONS"); maxSessions != "" {
		m, err := strconv.Atoi(maxSessions)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_SESSIONS: %w", err)
		}
		config.MaxSessions = m
	}

	// Optional: SESSION_TIMEOUT (in minutes)
	if timeout := os.Getenv("SESSION_TIMEOUT"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TIMEOUT: %w", err)
		}
		config.SessionTimeout = time.Duration(t) * time.Minute
	}

	// Optional: ALLOWED_ORIGINS (comma-separated)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}

	// Optional: KEEPALIVE_PERIOD (in seconds)
	if keepalive := os.Getenv("KEEPALIVE_PERIOD"); keepalive != "" {
		k, err := strconv.Atoi(keepalive)
		if err != nil {
			return nil, fmt.Errorf("invalid KEEPALIVE_PERIOD: %w", err)
		}
		config.KeepAlivePeriod = time.Duration(k) * time.Second
	}

	// Optional: MAX_BUFFER_SIZE (in bytes)
	if bufferSize := os.Getenv("MAX_BUFFER_SIZE"); bufferSize != "" {
		b, err := strconv.Atoi(bufferSize)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_BUFFER_SIZE: %w", err)
		}
		config.MaxBufferSize = b
	}

	// Optional: LOG_LEVEL
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}

	return config, nil
}

// OpenAIConfigured reports whether the server credential is present.
func (c *Config) OpenAIConfigured() bool {
	return c.OpenAIAPIKey != ""
}
